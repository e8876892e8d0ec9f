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

// requestRepository implements RequestRepository over Postgres.
type requestRepository struct {
	*BaseRepository
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *database.Manager, logger *zap.Logger) RequestRepository {
	return &requestRepository{NewBaseRepository(db, logger)}
}

const requestColumns = `
	id, participant_id, activity_id, requested_date, comment, photo_ref,
	status, admin_comment, approver_id, created_at, updated_at`

// Create inserts a new pending request.
func (r *requestRepository) Create(ctx context.Context, request *models.ActivityRequest) error {
	query := `
		INSERT INTO activity_requests
			(participant_id, activity_id, requested_date, comment, photo_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		request.ParticipantID,
		request.ActivityID,
		request.RequestedDate,
		request.Comment,
		request.PhotoRef,
	).Scan(&request.ID, &request.Status, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity request: %w", err)
	}
	return nil
}

// GetByID returns one request or nil when it does not exist.
func (r *requestRepository) GetByID(ctx context.Context, id int64) (*models.ActivityRequest, error) {
	query := `SELECT` + requestColumns + ` FROM activity_requests WHERE id = $1`

	request, err := scanRequestRow(r.db.QueryRowContext(ctx, query, id))
	if r.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity request: %w", err)
	}
	return request, nil
}

// ListByParticipant returns the participant's requests, newest first.
func (r *requestRepository) ListByParticipant(ctx context.Context, participantID int64) ([]*models.ActivityRequest, error) {
	query := `SELECT` + requestColumns + `
		FROM activity_requests
		WHERE participant_id = $1
		ORDER BY created_at DESC`
	return r.queryRequests(ctx, query, participantID)
}

// ListPending returns the admin approval queue, oldest first.
func (r *requestRepository) ListPending(ctx context.Context) ([]*models.ActivityRequest, error) {
	query := `SELECT` + requestColumns + `
		FROM activity_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC`
	return r.queryRequests(ctx, query)
}

// Approve transitions the request to approved and writes the paired
// ledger entry in the same transaction. The ledger insert ignores a
// conflict on request_id so that re-approval never duplicates an entry.
func (r *requestRepository) Approve(ctx context.Context, requestID, approverID int64, adminComment *string, record *models.ActivityRecord) (*models.ActivityRequest, error) {
	var request *models.ActivityRequest

	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE activity_requests
			SET status = 'approved', approver_id = $2, admin_comment = $3,
				updated_at = NOW()
			WHERE id = $1
			RETURNING`+requestColumns,
			requestID, approverID, adminComment)

		var err error
		request, err = scanRequestRow(row)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO activity_records
				(participant_id, request_id, name, points, type, categories, activity_date, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (request_id) DO NOTHING`,
			record.ParticipantID,
			requestID,
			record.Name,
			record.Points,
			record.Type,
			pq.Array(record.Categories),
			record.Date,
			record.Source,
		)
		return err
	})
	if r.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to approve request: %w", err)
	}
	return request, nil
}

// Reject transitions the request to rejected and removes any ledger entry
// tied to it, in one transaction. Badge awards are untouched; they are
// monotonic.
func (r *requestRepository) Reject(ctx context.Context, requestID, approverID int64, adminComment string) (*models.ActivityRequest, error) {
	var request *models.ActivityRequest

	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE activity_requests
			SET status = 'rejected', approver_id = $2, admin_comment = $3,
				updated_at = NOW()
			WHERE id = $1
			RETURNING`+requestColumns,
			requestID, approverID, adminComment)

		var err error
		request, err = scanRequestRow(row)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM activity_records WHERE request_id = $1`, requestID)
		return err
	})
	if r.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reject request: %w", err)
	}
	return request, nil
}

// UpdateAdminComment edits the comment of an already-approved request
// without any ledger or award side effects.
func (r *requestRepository) UpdateAdminComment(ctx context.Context, requestID, approverID int64, adminComment *string) (*models.ActivityRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE activity_requests
		SET approver_id = $2, admin_comment = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING`+requestColumns,
		requestID, approverID, adminComment)

	request, err := scanRequestRow(row)
	if r.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update admin comment: %w", err)
	}
	return request, nil
}

func (r *requestRepository) queryRequests(ctx context.Context, query string, args ...interface{}) ([]*models.ActivityRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.ActivityRequest
	for rows.Next() {
		request := &models.ActivityRequest{}
		if err := rows.Scan(
			&request.ID, &request.ParticipantID, &request.ActivityID,
			&request.RequestedDate, &request.Comment, &request.PhotoRef,
			&request.Status, &request.AdminComment, &request.ApproverID,
			&request.CreatedAt, &request.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// rowScanner lets one scan helper serve sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequestRow(row rowScanner) (*models.ActivityRequest, error) {
	request := &models.ActivityRequest{}
	err := row.Scan(
		&request.ID, &request.ParticipantID, &request.ActivityID,
		&request.RequestedDate, &request.Comment, &request.PhotoRef,
		&request.Status, &request.AdminComment, &request.ApproverID,
		&request.CreatedAt, &request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return request, nil
}
