package services

import (
	"context"
	"fmt"

	"konfihub/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// photoService stores request photos in Cloudinary.
type photoService struct {
	client *cloudinary.Cloudinary
	folder string
	logger *zap.Logger
}

// NewPhotoService creates a Cloudinary-backed photo service. It returns
// an error when the credentials are missing; callers that run without
// photo support should use NewDisabledPhotoService instead.
func NewPhotoService(cfg *config.CloudinaryConfig, logger *zap.Logger) (PhotoService, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials are missing")
	}

	client, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &photoService{
		client: client,
		folder: cfg.UploadFolder,
		logger: logger,
	}, nil
}

// UploadPhoto uploads a base64 data URI and returns the delivery URL.
func (s *photoService) UploadPhoto(ctx context.Context, data string) (string, error) {
	publicID, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate photo id: %w", err)
	}

	result, err := s.client.Upload.Upload(ctx, data, uploader.UploadParams{
		Folder:   s.folder,
		PublicID: publicID.String(),
	})
	if err != nil {
		s.logger.Error("Photo upload failed", zap.Error(err))
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	s.logger.Info("Photo uploaded",
		zap.String("public_id", result.PublicID),
		zap.Int("bytes", result.Bytes),
	)
	return result.SecureURL, nil
}

// disabledPhotoService rejects uploads; used when Cloudinary is not
// configured.
type disabledPhotoService struct{}

// NewDisabledPhotoService returns a photo service that rejects uploads.
func NewDisabledPhotoService() PhotoService {
	return disabledPhotoService{}
}

func (disabledPhotoService) UploadPhoto(context.Context, string) (string, error) {
	return "", fmt.Errorf("photo storage is not configured")
}
