package repositories

import (
	"context"
	"fmt"

	"konfihub/internal/database"
	"konfihub/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// activityRepository implements ActivityRepository over Postgres.
type activityRepository struct {
	*BaseRepository
}

// NewActivityRepository creates a new activity catalog repository.
func NewActivityRepository(db *database.Manager, logger *zap.Logger) ActivityRepository {
	return &activityRepository{NewBaseRepository(db, logger)}
}

// GetByID returns one catalog activity or nil when it does not exist.
func (r *activityRepository) GetByID(ctx context.Context, id int64) (*models.Activity, error) {
	query := `
		SELECT id, name, points, type, categories, is_active, created_at
		FROM activities
		WHERE id = $1`

	activity := &models.Activity{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&activity.ID, &activity.Name, &activity.Points, &activity.Type,
		pq.Array(&activity.Categories), &activity.IsActive, &activity.CreatedAt,
	)
	if r.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return activity, nil
}

// List returns catalog activities, optionally only active ones.
func (r *activityRepository) List(ctx context.Context, activeOnly bool) ([]*models.Activity, error) {
	query := `
		SELECT id, name, points, type, categories, is_active, created_at
		FROM activities`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		activity := &models.Activity{}
		if err := rows.Scan(
			&activity.ID, &activity.Name, &activity.Points, &activity.Type,
			pq.Array(&activity.Categories), &activity.IsActive, &activity.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}

// Create inserts a catalog activity.
func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activities (name, points, type, categories, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		activity.Name, activity.Points, activity.Type,
		pq.Array(activity.Categories), activity.IsActive,
	).Scan(&activity.ID, &activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}
