package services

import (
	"context"
	"strings"
	"time"

	"konfihub/internal/events"
	"konfihub/internal/models"
	"konfihub/internal/repositories"
	"konfihub/internal/validation"

	"go.uber.org/zap"
)

// requestService implements the request lifecycle state machine:
//
//	pending -> approved | rejected
//	approved <-> rejected (admin override)
//	approved -> approved (comment-only edit)
//
// Approval writes exactly one ledger entry per request and triggers badge
// re-evaluation; moving away from approved removes the entry again but
// never retracts awards.
type requestService struct {
	requestRepo  repositories.RequestRepository
	activityRepo repositories.ActivityRepository
	badgeService BadgeService
	photoService PhotoService
	events       events.EventBus
	logger       *zap.Logger
	now          func() time.Time
}

// NewRequestService creates a new request lifecycle controller.
func NewRequestService(
	requestRepo repositories.RequestRepository,
	activityRepo repositories.ActivityRepository,
	badgeService BadgeService,
	photoService PhotoService,
	eventBus events.EventBus,
	logger *zap.Logger,
) RequestService {
	return &requestService{
		requestRepo:  requestRepo,
		activityRepo: activityRepo,
		badgeService: badgeService,
		photoService: photoService,
		events:       eventBus,
		logger:       logger,
		now:          time.Now,
	}
}

// ===============================
// PARTICIPANT SIDE
// ===============================

// CreateRequest stores a new pending claim. The photo, when supplied, is
// handed to the media collaborator first so the stored request only
// carries the opaque reference.
func (s *requestService) CreateRequest(ctx context.Context, req *CreateRequestRequest) (*models.ActivityRequest, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid activity request", err)
	}
	if err := s.validateDate(req.RequestedDate); err != nil {
		return nil, err
	}

	activity, err := s.activityRepo.GetByID(ctx, req.ActivityID)
	if err != nil {
		return nil, NewServiceUnavailableError("activity catalog is unavailable")
	}
	if activity == nil || !activity.IsActive {
		return nil, NewValidationError("unknown or inactive activity", nil)
	}

	var photoRef *string
	if req.PhotoData != "" {
		ref, err := s.photoService.UploadPhoto(ctx, req.PhotoData)
		if err != nil {
			return nil, NewServiceUnavailableError("photo storage is unavailable")
		}
		photoRef = &ref
	}

	request := &models.ActivityRequest{
		ParticipantID: req.ParticipantID,
		ActivityID:    req.ActivityID,
		RequestedDate: req.RequestedDate,
		Comment:       req.Comment,
		PhotoRef:      photoRef,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, NewServiceUnavailableError("failed to store activity request")
	}

	s.logger.Info("Activity request created",
		zap.Int64("request_id", request.ID),
		zap.Int64("participant_id", request.ParticipantID),
		zap.Int64("activity_id", request.ActivityID),
	)
	return request, nil
}

// GetRequest returns one request.
func (s *requestService) GetRequest(ctx context.Context, id int64) (*models.ActivityRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceUnavailableError("request store is unavailable")
	}
	if request == nil {
		return nil, NewNotFoundError("activity request not found")
	}
	return request, nil
}

// ListByParticipant returns the participant's own requests.
func (s *requestService) ListByParticipant(ctx context.Context, participantID int64) ([]*models.ActivityRequest, error) {
	if participantID <= 0 {
		return nil, NewValidationError("invalid participant id", nil)
	}
	requests, err := s.requestRepo.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, NewServiceUnavailableError("request store is unavailable")
	}
	return requests, nil
}

// ListPending returns the admin approval queue.
func (s *requestService) ListPending(ctx context.Context) ([]*models.ActivityRequest, error) {
	requests, err := s.requestRepo.ListPending(ctx)
	if err != nil {
		return nil, NewServiceUnavailableError("request store is unavailable")
	}
	return requests, nil
}

// ===============================
// ADMIN TRANSITIONS
// ===============================

// UpdateRequestStatus applies one admin transition. Invalid transitions
// are rejected synchronously and leave the request untouched.
func (s *requestService) UpdateRequestStatus(ctx context.Context, req *UpdateRequestStatusRequest) (*RequestStatusResult, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid status update", err)
	}
	if !req.NewStatus.Valid() || req.NewStatus == models.RequestStatusPending {
		return nil, NewValidationError("invalid target status", nil)
	}

	current, err := s.requestRepo.GetByID(ctx, req.RequestID)
	if err != nil {
		return nil, NewServiceUnavailableError("request store is unavailable")
	}
	if current == nil {
		return nil, NewNotFoundError("activity request not found")
	}

	switch req.NewStatus {
	case models.RequestStatusRejected:
		return s.reject(ctx, current, req)
	case models.RequestStatusApproved:
		return s.approve(ctx, current, req)
	}
	return nil, NewValidationError("invalid target status", nil)
}

// reject requires a non-empty reason. Leaving the approved state removes
// the request's ledger entry; awards already granted stay.
func (s *requestService) reject(ctx context.Context, current *models.ActivityRequest, req *UpdateRequestStatusRequest) (*RequestStatusResult, error) {
	reason := strings.TrimSpace(req.AdminComment)
	if reason == "" {
		return nil, NewValidationError("a rejection reason is required", nil)
	}

	updated, err := s.requestRepo.Reject(ctx, current.ID, req.ApproverID, reason)
	if err != nil {
		return nil, NewServiceUnavailableError("failed to reject request")
	}
	if updated == nil {
		return nil, NewNotFoundError("activity request not found")
	}

	s.events.Publish(ctx, events.NewRequestResolvedEvent(
		updated.ParticipantID, updated.ID, string(updated.Status)))
	s.logger.Info("Activity request rejected",
		zap.Int64("request_id", updated.ID),
		zap.Int64("approver_id", req.ApproverID),
		zap.String("previous_status", string(current.Status)),
	)

	// Rejection never triggers evaluation; nothing was added to the ledger.
	return &RequestStatusResult{Request: updated}, nil
}

// approve covers pending->approved, rejected->approved (re-approval) and
// approved->approved (comment-only edit).
func (s *requestService) approve(ctx context.Context, current *models.ActivityRequest, req *UpdateRequestStatusRequest) (*RequestStatusResult, error) {
	if current.Status == models.RequestStatusApproved {
		// Comment-only edit: no ledger or award side effects.
		updated, err := s.requestRepo.UpdateAdminComment(ctx, current.ID, req.ApproverID, optionalComment(req.AdminComment))
		if err != nil {
			return nil, NewServiceUnavailableError("failed to update request")
		}
		if updated == nil {
			return nil, NewNotFoundError("activity request not found")
		}
		return &RequestStatusResult{Request: updated}, nil
	}

	activity, err := s.activityRepo.GetByID(ctx, current.ActivityID)
	if err != nil {
		return nil, NewServiceUnavailableError("activity catalog is unavailable")
	}
	if activity == nil {
		return nil, NewValidationError("the requested activity no longer exists", nil)
	}
	if err := s.validateDate(current.RequestedDate); err != nil {
		return nil, err
	}

	record := &models.ActivityRecord{
		ParticipantID: current.ParticipantID,
		RequestID:     &current.ID,
		Name:          activity.Name,
		Points:        activity.Points,
		Type:          activity.Type,
		Categories:    activity.Categories,
		Date:          current.RequestedDate,
		Source:        models.ActivitySourceAssigned,
	}

	updated, err := s.requestRepo.Approve(ctx, current.ID, req.ApproverID, optionalComment(req.AdminComment), record)
	if err != nil {
		return nil, NewServiceUnavailableError("failed to approve request")
	}
	if updated == nil {
		return nil, NewNotFoundError("activity request not found")
	}

	s.events.Publish(ctx, events.NewRequestResolvedEvent(
		updated.ParticipantID, updated.ID, string(updated.Status)))
	s.logger.Info("Activity request approved",
		zap.Int64("request_id", updated.ID),
		zap.Int64("approver_id", req.ApproverID),
		zap.String("previous_status", string(current.Status)),
	)

	newlyAwarded, err := s.badgeService.AwardEligibleBadges(ctx, updated.ParticipantID)
	if err != nil {
		// The approval itself committed; surface the evaluation failure so
		// the caller can retry the (idempotent) awarding pass.
		return nil, err
	}

	return &RequestStatusResult{
		Request:            updated,
		NewlyAwardedBadges: newlyAwarded,
	}, nil
}

// validateDate rejects zero and future dates; claims are for completed
// activities.
func (s *requestService) validateDate(date time.Time) error {
	if date.IsZero() {
		return NewValidationError("a date is required", nil)
	}
	if date.After(s.now().AddDate(0, 0, 1)) {
		return NewValidationError("the date must not be in the future", nil)
	}
	return nil
}

func optionalComment(comment string) *string {
	trimmed := strings.TrimSpace(comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
