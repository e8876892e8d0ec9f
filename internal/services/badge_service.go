package services

import (
	"context"
	"time"

	"konfihub/internal/cache"
	"konfihub/internal/events"
	"konfihub/internal/models"
	"konfihub/internal/repositories"
	"konfihub/internal/validation"

	"go.uber.org/zap"
)

const activeBadgesCacheKey = "badges:active"

// badgeService implements BadgeService.
type badgeService struct {
	badgeRepo  repositories.BadgeRepository
	ledgerRepo repositories.LedgerRepository
	evaluator  *Evaluator
	cache      cache.Cache
	cacheTTL   time.Duration
	events     events.EventBus
	logger     *zap.Logger
}

// NewBadgeService creates a new badge awarding service.
func NewBadgeService(
	badgeRepo repositories.BadgeRepository,
	ledgerRepo repositories.LedgerRepository,
	evaluator *Evaluator,
	cacheImpl cache.Cache,
	cacheTTL time.Duration,
	eventBus events.EventBus,
	logger *zap.Logger,
) BadgeService {
	return &badgeService{
		badgeRepo:  badgeRepo,
		ledgerRepo: ledgerRepo,
		evaluator:  evaluator,
		cache:      cacheImpl,
		cacheTTL:   cacheTTL,
		events:     eventBus,
		logger:     logger,
	}
}

// ===============================
// AWARDING
// ===============================

// AwardEligibleBadges reads one ledger snapshot, evaluates every unearned
// active badge against it and persists the awards that newly hold. The
// unique constraint on (participant, badge) makes concurrent invocations
// collapse to a single award per badge; only the awards this call
// actually inserted are returned, so a redundant call yields an empty
// list.
func (s *badgeService) AwardEligibleBadges(ctx context.Context, participantID int64) ([]*models.BadgeDefinition, error) {
	if participantID <= 0 {
		return nil, NewValidationError("invalid participant id", nil)
	}

	// One history read is the snapshot; totals are derived from it so the
	// point criteria and the history criteria agree on the same data.
	history, err := s.ledgerRepo.GetHistory(ctx, participantID)
	if err != nil {
		return nil, NewServiceUnavailableError("ledger is unavailable")
	}
	totals := totalsFromHistory(history)

	activeBadges, err := s.listActiveBadges(ctx)
	if err != nil {
		return nil, NewServiceUnavailableError("badge catalog is unavailable")
	}

	earned, err := s.badgeRepo.ListEarnedIDs(ctx, participantID)
	if err != nil {
		return nil, NewServiceUnavailableError("badge catalog is unavailable")
	}

	var newlyAwarded []*models.BadgeDefinition
	for _, badge := range activeBadges {
		if earned[badge.ID] {
			continue
		}
		if !s.evaluator.Evaluate(history, totals, badge) {
			continue
		}

		inserted, err := s.badgeRepo.InsertAward(ctx, participantID, badge.ID)
		if err != nil {
			return nil, NewServiceUnavailableError("failed to persist badge award")
		}
		if !inserted {
			// Lost a race against a concurrent invocation; the badge is
			// earned either way.
			continue
		}

		newlyAwarded = append(newlyAwarded, badge)
		s.events.Publish(ctx, events.NewBadgeAwardedEvent(participantID, badge.ID, badge.Name))
		s.logger.Info("Badge awarded",
			zap.Int64("participant_id", participantID),
			zap.Int64("badge_id", badge.ID),
			zap.String("badge_name", badge.Name),
		)
	}

	return newlyAwarded, nil
}

// totalsFromHistory derives point totals from the snapshot.
func totalsFromHistory(history []*models.ActivityRecord) models.PointTotals {
	var totals models.PointTotals
	for _, record := range history {
		switch record.Type {
		case models.ActivityTypeGottesdienst:
			totals.Gottesdienst += record.Points
		case models.ActivityTypeGemeinde:
			totals.Gemeinde += record.Points
		}
	}
	return totals
}

// ===============================
// CATALOG
// ===============================

// ListCatalog returns active badge definitions. Hidden badges stay out of
// participant-facing listings until earned.
func (s *badgeService) ListCatalog(ctx context.Context, includeHidden bool) ([]*models.BadgeDefinition, error) {
	badges, err := s.listActiveBadges(ctx)
	if err != nil {
		return nil, NewServiceUnavailableError("badge catalog is unavailable")
	}
	if includeHidden {
		return badges, nil
	}

	visible := make([]*models.BadgeDefinition, 0, len(badges))
	for _, badge := range badges {
		if !badge.IsHidden {
			visible = append(visible, badge)
		}
	}
	return visible, nil
}

// ListEarnedBadges returns the participant's earned badges.
func (s *badgeService) ListEarnedBadges(ctx context.Context, participantID int64) ([]*models.EarnedBadge, error) {
	if participantID <= 0 {
		return nil, NewValidationError("invalid participant id", nil)
	}
	earned, err := s.badgeRepo.ListEarned(ctx, participantID)
	if err != nil {
		return nil, NewServiceUnavailableError("badge catalog is unavailable")
	}
	return earned, nil
}

// CreateBadge validates and stores a new badge definition. The criteria
// payload is checked here, at definition time, so evaluation can assume
// well-formed definitions.
func (s *badgeService) CreateBadge(ctx context.Context, req *CreateBadgeRequest) (*models.BadgeDefinition, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid badge definition", err)
	}
	if err := models.ValidateCriteria(req.CriteriaKind, req.CriteriaValue, req.CriteriaExtra); err != nil {
		return nil, NewValidationError(err.Error(), err)
	}

	badge := &models.BadgeDefinition{
		Name:          req.Name,
		Description:   req.Description,
		Icon:          req.Icon,
		CriteriaKind:  req.CriteriaKind,
		CriteriaValue: req.CriteriaValue,
		CriteriaExtra: req.CriteriaExtra,
		IsActive:      req.IsActive,
		IsHidden:      req.IsHidden,
	}
	if err := s.badgeRepo.Create(ctx, badge); err != nil {
		return nil, NewServiceUnavailableError("failed to store badge definition")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("Badge definition created",
		zap.Int64("badge_id", badge.ID),
		zap.String("criteria_kind", string(badge.CriteriaKind)),
	)
	return badge, nil
}

// UpdateBadge validates and overwrites a badge definition.
func (s *badgeService) UpdateBadge(ctx context.Context, req *UpdateBadgeRequest) (*models.BadgeDefinition, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid badge definition", err)
	}
	if err := models.ValidateCriteria(req.CriteriaKind, req.CriteriaValue, req.CriteriaExtra); err != nil {
		return nil, NewValidationError(err.Error(), err)
	}

	existing, err := s.badgeRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, NewServiceUnavailableError("badge catalog is unavailable")
	}
	if existing == nil {
		return nil, NewNotFoundError("badge definition not found")
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.Icon = req.Icon
	existing.CriteriaKind = req.CriteriaKind
	existing.CriteriaValue = req.CriteriaValue
	existing.CriteriaExtra = req.CriteriaExtra
	existing.IsActive = req.IsActive
	existing.IsHidden = req.IsHidden

	if err := s.badgeRepo.Update(ctx, existing); err != nil {
		return nil, NewServiceUnavailableError("failed to update badge definition")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("Badge definition updated", zap.Int64("badge_id", existing.ID))
	return existing, nil
}

// listActiveBadges reads the catalog through the cache. Definitions are
// immutable during one evaluation pass because the pass works on the
// slice fetched here.
func (s *badgeService) listActiveBadges(ctx context.Context) ([]*models.BadgeDefinition, error) {
	var cached []*models.BadgeDefinition
	if s.cache.Get(ctx, activeBadgesCacheKey, &cached) {
		return cached, nil
	}

	badges, err := s.badgeRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, activeBadgesCacheKey, badges, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache badge catalog", zap.Error(err))
	}
	return badges, nil
}

func (s *badgeService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Delete(ctx, activeBadgesCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate badge catalog cache", zap.Error(err))
	}
}
