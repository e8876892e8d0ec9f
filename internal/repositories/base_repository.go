package repositories

import (
	"database/sql"
	"errors"

	"konfihub/internal/database"

	"go.uber.org/zap"
)

// BaseRepository provides the shared database handle and helpers for the
// concrete repositories. Query logging and slow-query detection live in
// the database manager.
type BaseRepository struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewBaseRepository creates a new base repository.
func NewBaseRepository(db *database.Manager, logger *zap.Logger) *BaseRepository {
	return &BaseRepository{
		db:     db,
		logger: logger,
	}
}

// IsNotFound checks if error is a "not found" error.
func (r *BaseRepository) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// HandleNotFound converts sql.ErrNoRows to nil for optional queries.
func (r *BaseRepository) HandleNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
