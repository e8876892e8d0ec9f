package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"konfihub/internal/database"
	"konfihub/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ledgerRepository implements LedgerRepository over Postgres.
type ledgerRepository struct {
	*BaseRepository
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *database.Manager, logger *zap.Logger) LedgerRepository {
	return &ledgerRepository{NewBaseRepository(db, logger)}
}

const activityRecordColumns = `
	id, participant_id, request_id, name, points, type, categories,
	activity_date, source, created_at`

// GetHistory returns every ledger entry for the participant in one read.
func (r *ledgerRepository) GetHistory(ctx context.Context, participantID int64) ([]*models.ActivityRecord, error) {
	query := `SELECT` + activityRecordColumns + `
		FROM activity_records
		WHERE participant_id = $1`

	rows, err := r.db.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity history: %w", err)
	}
	defer rows.Close()

	var history []*models.ActivityRecord
	for rows.Next() {
		record, err := scanActivityRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity record: %w", err)
		}
		history = append(history, record)
	}
	return history, rows.Err()
}

// GetTotals derives the point totals from the ledger.
func (r *ledgerRepository) GetTotals(ctx context.Context, participantID int64) (models.PointTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(points) FILTER (WHERE type = 'gottesdienst'), 0),
			COALESCE(SUM(points) FILTER (WHERE type = 'gemeinde'), 0)
		FROM activity_records
		WHERE participant_id = $1`

	var totals models.PointTotals
	err := r.db.QueryRowContext(ctx, query, participantID).
		Scan(&totals.Gottesdienst, &totals.Gemeinde)
	if err != nil {
		return models.PointTotals{}, fmt.Errorf("failed to query point totals: %w", err)
	}
	return totals, nil
}

// CreateRecord inserts a ledger entry that is not tied to a request
// (direct assignment or bonus grant).
func (r *ledgerRepository) CreateRecord(ctx context.Context, record *models.ActivityRecord) error {
	query := `
		INSERT INTO activity_records
			(participant_id, request_id, name, points, type, categories, activity_date, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		record.ParticipantID,
		record.RequestID,
		record.Name,
		record.Points,
		record.Type,
		pq.Array(record.Categories),
		record.Date,
		record.Source,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity record: %w", err)
	}
	return nil
}

// CreateForRequest inserts the entry tied to a request. The unique
// constraint on request_id makes a replayed approval a no-op.
func (r *ledgerRepository) CreateForRequest(ctx context.Context, record *models.ActivityRecord) (bool, error) {
	if record.RequestID == nil {
		return false, fmt.Errorf("record has no request id")
	}

	query := `
		INSERT INTO activity_records
			(participant_id, request_id, name, points, type, categories, activity_date, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (request_id) DO NOTHING
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		record.ParticipantID,
		record.RequestID,
		record.Name,
		record.Points,
		record.Type,
		pq.Array(record.Categories),
		record.Date,
		record.Source,
	).Scan(&record.ID, &record.CreatedAt)
	if r.IsNotFound(err) {
		// Entry already exists for this request.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create activity record for request: %w", err)
	}
	return true, nil
}

// DeleteForRequest removes the entry tied to a request, preserving the
// 1:1 invariant when an approval is revoked.
func (r *ledgerRepository) DeleteForRequest(ctx context.Context, requestID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM activity_records WHERE request_id = $1`, requestID)
	if err != nil {
		return fmt.Errorf("failed to delete activity record for request: %w", err)
	}
	return nil
}

// scanActivityRecord scans one ledger row.
func scanActivityRecord(rows *sql.Rows) (*models.ActivityRecord, error) {
	record := &models.ActivityRecord{}
	err := rows.Scan(
		&record.ID,
		&record.ParticipantID,
		&record.RequestID,
		&record.Name,
		&record.Points,
		&record.Type,
		pq.Array(&record.Categories),
		&record.Date,
		&record.Source,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}
