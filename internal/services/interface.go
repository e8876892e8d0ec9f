package services

import (
	"context"
	"encoding/json"
	"time"

	"konfihub/internal/models"
)

// ===============================
// CORE SERVICE INTERFACES
// ===============================

// BadgeService orchestrates the evaluator across the badge catalog and
// persists awards exactly once.
type BadgeService interface {
	// AwardEligibleBadges evaluates every unearned active badge against a
	// fresh ledger snapshot and returns the badges newly earned by this
	// call. Safe to invoke redundantly after any point-affecting mutation.
	AwardEligibleBadges(ctx context.Context, participantID int64) ([]*models.BadgeDefinition, error)

	// Catalog
	ListCatalog(ctx context.Context, includeHidden bool) ([]*models.BadgeDefinition, error)
	ListEarnedBadges(ctx context.Context, participantID int64) ([]*models.EarnedBadge, error)
	CreateBadge(ctx context.Context, req *CreateBadgeRequest) (*models.BadgeDefinition, error)
	UpdateBadge(ctx context.Context, req *UpdateBadgeRequest) (*models.BadgeDefinition, error)
}

// RequestService is the request lifecycle controller: it gates which
// activity claims enter the point ledger and triggers re-evaluation.
type RequestService interface {
	CreateRequest(ctx context.Context, req *CreateRequestRequest) (*models.ActivityRequest, error)
	UpdateRequestStatus(ctx context.Context, req *UpdateRequestStatusRequest) (*RequestStatusResult, error)
	GetRequest(ctx context.Context, id int64) (*models.ActivityRequest, error)
	ListByParticipant(ctx context.Context, participantID int64) ([]*models.ActivityRequest, error)
	ListPending(ctx context.Context) ([]*models.ActivityRequest, error)
}

// LedgerService exposes the participant's point history and the direct
// mutations (assignment, bonus) that bypass the request flow.
type LedgerService interface {
	GetHistory(ctx context.Context, participantID int64) (*HistoryResponse, error)
	AssignActivity(ctx context.Context, req *AssignActivityRequest) (*LedgerMutationResult, error)
	GrantBonus(ctx context.Context, req *GrantBonusRequest) (*LedgerMutationResult, error)
}

// PhotoService stores request photos with the external media collaborator
// and returns an opaque reference.
type PhotoService interface {
	UploadPhoto(ctx context.Context, data string) (string, error)
}

// ===============================
// REQUEST / RESPONSE TYPES
// ===============================

// CreateBadgeRequest carries a new badge definition.
type CreateBadgeRequest struct {
	Name          string              `json:"name" validate:"required,max=100"`
	Description   string              `json:"description" validate:"max=500"`
	Icon          string              `json:"icon" validate:"max=100"`
	CriteriaKind  models.CriteriaKind `json:"criteria_kind" validate:"required"`
	CriteriaValue int                 `json:"criteria_value"`
	CriteriaExtra json.RawMessage     `json:"criteria_extra,omitempty"`
	IsActive      bool                `json:"is_active"`
	IsHidden      bool                `json:"is_hidden"`
}

// UpdateBadgeRequest carries an edited badge definition.
type UpdateBadgeRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
	CreateBadgeRequest
}

// CreateRequestRequest carries a participant's activity claim. The photo,
// when present, is a base64 data URI handed to the photo collaborator
// before the request is stored.
type CreateRequestRequest struct {
	ParticipantID int64     `json:"participant_id" validate:"required,gt=0"`
	ActivityID    int64     `json:"activity_id" validate:"required,gt=0"`
	RequestedDate time.Time `json:"requested_date" validate:"required"`
	Comment       string    `json:"comment" validate:"max=1000"`
	PhotoData     string    `json:"photo_data,omitempty"`
}

// UpdateRequestStatusRequest carries an admin transition.
type UpdateRequestStatusRequest struct {
	RequestID    int64                `json:"request_id" validate:"required,gt=0"`
	ApproverID   int64                `json:"approver_id" validate:"required,gt=0"`
	NewStatus    models.RequestStatus `json:"new_status" validate:"required"`
	AdminComment string               `json:"admin_comment" validate:"max=1000"`
}

// RequestStatusResult is the outcome of a transition: the updated request
// plus any badges the participant crossed as a result.
type RequestStatusResult struct {
	Request            *models.ActivityRequest   `json:"request"`
	NewlyAwardedBadges []*models.BadgeDefinition `json:"newly_awarded_badges"`
}

// HistoryResponse bundles the ledger snapshot with its derived totals.
type HistoryResponse struct {
	History []*models.ActivityRecord `json:"history"`
	Totals  models.PointTotals       `json:"totals"`
}

// AssignActivityRequest carries a direct admin assignment.
type AssignActivityRequest struct {
	ParticipantID int64     `json:"participant_id" validate:"required,gt=0"`
	ActivityID    int64     `json:"activity_id" validate:"required,gt=0"`
	Date          time.Time `json:"date" validate:"required"`
}

// GrantBonusRequest carries a free-form bonus grant.
type GrantBonusRequest struct {
	ParticipantID int64               `json:"participant_id" validate:"required,gt=0"`
	Name          string              `json:"name" validate:"required,max=200"`
	Points        int                 `json:"points" validate:"required,gt=0"`
	Type          models.ActivityType `json:"type" validate:"required"`
	Categories    []string            `json:"categories,omitempty"`
	Date          time.Time           `json:"date" validate:"required"`
}

// LedgerMutationResult is the outcome of a direct ledger mutation.
type LedgerMutationResult struct {
	Record             *models.ActivityRecord    `json:"record"`
	NewlyAwardedBadges []*models.BadgeDefinition `json:"newly_awarded_badges"`
}
