package repositories

import (
	"context"

	"konfihub/internal/models"
)

// ===============================
// CORE REPOSITORY INTERFACES
// ===============================

// LedgerRepository supplies the point ledger: the participant's activity
// history snapshot and derived totals, plus the mutations that add or
// remove entries. History carries no ordering guarantee; the evaluator
// imposes its own ordering where it needs one.
type LedgerRepository interface {
	// Snapshot reads
	GetHistory(ctx context.Context, participantID int64) ([]*models.ActivityRecord, error)
	GetTotals(ctx context.Context, participantID int64) (models.PointTotals, error)

	// Mutations
	CreateRecord(ctx context.Context, record *models.ActivityRecord) error
	// CreateForRequest inserts the ledger entry tied to a request. The
	// insert is a no-op when an entry for the request already exists;
	// created reports whether a row was actually written.
	CreateForRequest(ctx context.Context, record *models.ActivityRecord) (created bool, err error)
	DeleteForRequest(ctx context.Context, requestID int64) error
}

// BadgeRepository supplies the badge catalog and persists awards.
type BadgeRepository interface {
	// Catalog
	ListActive(ctx context.Context) ([]*models.BadgeDefinition, error)
	GetByID(ctx context.Context, id int64) (*models.BadgeDefinition, error)
	Create(ctx context.Context, badge *models.BadgeDefinition) error
	Update(ctx context.Context, badge *models.BadgeDefinition) error

	// Awards
	ListEarnedIDs(ctx context.Context, participantID int64) (map[int64]bool, error)
	ListEarned(ctx context.Context, participantID int64) ([]*models.EarnedBadge, error)
	// InsertAward persists an award at most once per (participant, badge).
	// inserted is false when the award already existed; that is a benign
	// outcome, not an error.
	InsertAward(ctx context.Context, participantID, badgeID int64) (inserted bool, err error)
}

// RequestRepository persists activity requests and their transitions.
// Approve and Reject run the status change and the paired ledger mutation
// in a single transaction so the one-entry-per-approved-request invariant
// holds under concurrent admin actions.
type RequestRepository interface {
	Create(ctx context.Context, request *models.ActivityRequest) error
	GetByID(ctx context.Context, id int64) (*models.ActivityRequest, error)
	ListByParticipant(ctx context.Context, participantID int64) ([]*models.ActivityRequest, error)
	ListPending(ctx context.Context) ([]*models.ActivityRequest, error)

	Approve(ctx context.Context, requestID, approverID int64, adminComment *string, record *models.ActivityRecord) (*models.ActivityRequest, error)
	Reject(ctx context.Context, requestID, approverID int64, adminComment string) (*models.ActivityRequest, error)
	UpdateAdminComment(ctx context.Context, requestID, approverID int64, adminComment *string) (*models.ActivityRequest, error)
}

// ActivityRepository supplies the catalog of assignable activities.
type ActivityRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Activity, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) error
}
