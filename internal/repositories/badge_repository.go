package repositories

import (
	"context"
	"fmt"

	"konfihub/internal/database"
	"konfihub/internal/models"

	"go.uber.org/zap"
)

// badgeRepository implements BadgeRepository over Postgres.
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{NewBaseRepository(db, logger)}
}

const badgeColumns = `
	id, name, description, icon, criteria_kind, criteria_value,
	criteria_extra, is_active, is_hidden, created_at, updated_at`

// ListActive returns every active badge definition.
func (r *badgeRepository) ListActive(ctx context.Context) ([]*models.BadgeDefinition, error) {
	query := `SELECT` + badgeColumns + `
		FROM badge_definitions
		WHERE is_active = TRUE
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active badges: %w", err)
	}
	defer rows.Close()

	var badges []*models.BadgeDefinition
	for rows.Next() {
		badge := &models.BadgeDefinition{}
		if err := rows.Scan(
			&badge.ID, &badge.Name, &badge.Description, &badge.Icon,
			&badge.CriteriaKind, &badge.CriteriaValue, &badge.CriteriaExtra,
			&badge.IsActive, &badge.IsHidden, &badge.CreatedAt, &badge.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan badge definition: %w", err)
		}
		badges = append(badges, badge)
	}
	return badges, rows.Err()
}

// GetByID returns one badge definition or nil when it does not exist.
func (r *badgeRepository) GetByID(ctx context.Context, id int64) (*models.BadgeDefinition, error) {
	query := `SELECT` + badgeColumns + `
		FROM badge_definitions
		WHERE id = $1`

	badge := &models.BadgeDefinition{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&badge.ID, &badge.Name, &badge.Description, &badge.Icon,
		&badge.CriteriaKind, &badge.CriteriaValue, &badge.CriteriaExtra,
		&badge.IsActive, &badge.IsHidden, &badge.CreatedAt, &badge.UpdatedAt,
	)
	if r.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get badge definition: %w", err)
	}
	return badge, nil
}

// Create inserts a new badge definition.
func (r *badgeRepository) Create(ctx context.Context, badge *models.BadgeDefinition) error {
	query := `
		INSERT INTO badge_definitions
			(name, description, icon, criteria_kind, criteria_value, criteria_extra, is_active, is_hidden)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		badge.Name, badge.Description, badge.Icon,
		badge.CriteriaKind, badge.CriteriaValue, badge.CriteriaExtra,
		badge.IsActive, badge.IsHidden,
	).Scan(&badge.ID, &badge.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create badge definition: %w", err)
	}
	return nil
}

// Update overwrites a badge definition.
func (r *badgeRepository) Update(ctx context.Context, badge *models.BadgeDefinition) error {
	query := `
		UPDATE badge_definitions
		SET name = $2, description = $3, icon = $4, criteria_kind = $5,
			criteria_value = $6, criteria_extra = $7, is_active = $8,
			is_hidden = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		badge.ID, badge.Name, badge.Description, badge.Icon,
		badge.CriteriaKind, badge.CriteriaValue, badge.CriteriaExtra,
		badge.IsActive, badge.IsHidden,
	).Scan(&badge.UpdatedAt)
	if r.IsNotFound(err) {
		return fmt.Errorf("badge definition %d does not exist", badge.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update badge definition: %w", err)
	}
	return nil
}

// ListEarnedIDs returns the set of badge ids the participant has earned.
func (r *badgeRepository) ListEarnedIDs(ctx context.Context, participantID int64) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT badge_id FROM badge_awards WHERE participant_id = $1`, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query earned badge ids: %w", err)
	}
	defer rows.Close()

	earned := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan badge id: %w", err)
		}
		earned[id] = true
	}
	return earned, rows.Err()
}

// ListEarned returns the participant's earned badges with award times.
func (r *badgeRepository) ListEarned(ctx context.Context, participantID int64) ([]*models.EarnedBadge, error) {
	query := `
		SELECT b.id, b.name, b.description, b.icon, b.criteria_kind,
			b.criteria_value, b.criteria_extra, b.is_active, b.is_hidden,
			b.created_at, b.updated_at, a.earned_at
		FROM badge_awards a
		JOIN badge_definitions b ON b.id = a.badge_id
		WHERE a.participant_id = $1
		ORDER BY a.earned_at DESC`

	rows, err := r.db.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query earned badges: %w", err)
	}
	defer rows.Close()

	var earned []*models.EarnedBadge
	for rows.Next() {
		badge := &models.EarnedBadge{}
		if err := rows.Scan(
			&badge.ID, &badge.Name, &badge.Description, &badge.Icon,
			&badge.CriteriaKind, &badge.CriteriaValue, &badge.CriteriaExtra,
			&badge.IsActive, &badge.IsHidden, &badge.CreatedAt, &badge.UpdatedAt,
			&badge.EarnedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan earned badge: %w", err)
		}
		earned = append(earned, badge)
	}
	return earned, rows.Err()
}

// InsertAward persists an award at most once. The primary key on
// (participant_id, badge_id) makes concurrent duplicate attempts collapse
// into a single row; the losing insert reports inserted=false.
func (r *badgeRepository) InsertAward(ctx context.Context, participantID, badgeID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO badge_awards (participant_id, badge_id)
		VALUES ($1, $2)
		ON CONFLICT (participant_id, badge_id) DO NOTHING`,
		participantID, badgeID)
	if err != nil {
		return false, fmt.Errorf("failed to insert badge award: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return affected == 1, nil
}
