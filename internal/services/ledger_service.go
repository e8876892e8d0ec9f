package services

import (
	"context"

	"konfihub/internal/events"
	"konfihub/internal/models"
	"konfihub/internal/repositories"
	"konfihub/internal/validation"

	"go.uber.org/zap"
)

// ledgerService implements LedgerService. Direct mutations run to
// completion within one call, including the awarding pass.
type ledgerService struct {
	ledgerRepo   repositories.LedgerRepository
	activityRepo repositories.ActivityRepository
	badgeService BadgeService
	events       events.EventBus
	logger       *zap.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(
	ledgerRepo repositories.LedgerRepository,
	activityRepo repositories.ActivityRepository,
	badgeService BadgeService,
	eventBus events.EventBus,
	logger *zap.Logger,
) LedgerService {
	return &ledgerService{
		ledgerRepo:   ledgerRepo,
		activityRepo: activityRepo,
		badgeService: badgeService,
		events:       eventBus,
		logger:       logger,
	}
}

// GetHistory returns the participant's full activity history with the
// totals derived from it.
func (s *ledgerService) GetHistory(ctx context.Context, participantID int64) (*HistoryResponse, error) {
	if participantID <= 0 {
		return nil, NewValidationError("invalid participant id", nil)
	}

	history, err := s.ledgerRepo.GetHistory(ctx, participantID)
	if err != nil {
		return nil, NewServiceUnavailableError("ledger is unavailable")
	}

	return &HistoryResponse{
		History: history,
		Totals:  totalsFromHistory(history),
	}, nil
}

// AssignActivity writes a ledger entry for a catalog activity directly,
// bypassing the request flow, then re-evaluates badges.
func (s *ledgerService) AssignActivity(ctx context.Context, req *AssignActivityRequest) (*LedgerMutationResult, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid activity assignment", err)
	}

	activity, err := s.activityRepo.GetByID(ctx, req.ActivityID)
	if err != nil {
		return nil, NewServiceUnavailableError("activity catalog is unavailable")
	}
	if activity == nil || !activity.IsActive {
		return nil, NewValidationError("unknown or inactive activity", nil)
	}

	record := &models.ActivityRecord{
		ParticipantID: req.ParticipantID,
		Name:          activity.Name,
		Points:        activity.Points,
		Type:          activity.Type,
		Categories:    activity.Categories,
		Date:          req.Date,
		Source:        models.ActivitySourceAssigned,
	}
	return s.record(ctx, record)
}

// GrantBonus writes a free-form bonus entry, then re-evaluates badges.
func (s *ledgerService) GrantBonus(ctx context.Context, req *GrantBonusRequest) (*LedgerMutationResult, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid bonus grant", err)
	}
	if !req.Type.Valid() {
		return nil, NewValidationError("invalid activity type", nil)
	}

	record := &models.ActivityRecord{
		ParticipantID: req.ParticipantID,
		Name:          req.Name,
		Points:        req.Points,
		Type:          req.Type,
		Categories:    req.Categories,
		Date:          req.Date,
		Source:        models.ActivitySourceBonus,
	}
	return s.record(ctx, record)
}

func (s *ledgerService) record(ctx context.Context, record *models.ActivityRecord) (*LedgerMutationResult, error) {
	if err := s.ledgerRepo.CreateRecord(ctx, record); err != nil {
		return nil, NewServiceUnavailableError("failed to write ledger entry")
	}

	s.events.Publish(ctx, events.NewActivityRecordedEvent(
		record.ParticipantID, record.ID, record.Name, record.Points, string(record.Source)))
	s.logger.Info("Ledger entry created",
		zap.Int64("participant_id", record.ParticipantID),
		zap.Int64("record_id", record.ID),
		zap.String("source", string(record.Source)),
		zap.Int("points", record.Points),
	)

	newlyAwarded, err := s.badgeService.AwardEligibleBadges(ctx, record.ParticipantID)
	if err != nil {
		return nil, err
	}

	return &LedgerMutationResult{
		Record:             record,
		NewlyAwardedBadges: newlyAwarded,
	}, nil
}
