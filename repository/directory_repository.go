package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"melodex/model"

	"github.com/google/uuid"
)

// DirectoryRepository defines the interface for directory data operations.
// All lookups consider only active (non soft-deleted) rows.
type DirectoryRepository interface {
	Create(ctx context.Context, directory *model.Directory) error
	GetByID(ctx context.Context, id string) (*model.Directory, error)
	FindAll(ctx context.Context) ([]*model.Directory, error)
	FindAllEnabled(ctx context.Context) ([]*model.Directory, error)
	SoftDelete(ctx context.Context, id string) error
}

type sqlDirectoryRepository struct {
	db *sql.DB
}

// NewDirectoryRepository creates a SQL-backed directory repository.
func NewDirectoryRepository(database *sql.DB) DirectoryRepository {
	return &sqlDirectoryRepository{db: database}
}

// Create adds a new directory. The id is generated when not supplied.
func (r *sqlDirectoryRepository) Create(ctx context.Context, directory *model.Directory) error {
	if directory.ID == "" {
		directory.ID = uuid.NewString()
	}
	directory.CreatedAt = time.Now().UTC()

	query := `INSERT INTO directories (id, location, enabled, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, directory.ID, directory.Location, directory.Enabled, directory.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", directory.Location, err)
	}
	return nil
}

// GetByID retrieves an active directory by id, or nil when not found.
func (r *sqlDirectoryRepository) GetByID(ctx context.Context, id string) (*model.Directory, error) {
	query := `SELECT id, location, enabled, created_at FROM directories WHERE id = ? AND deleted_at IS NULL`
	row := r.db.QueryRowContext(ctx, query, id)

	directory := &model.Directory{}
	err := row.Scan(&directory.ID, &directory.Location, &directory.Enabled, &directory.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan directory by ID %s: %w", id, err)
	}
	return directory, nil
}

// FindAll retrieves all active directories.
func (r *sqlDirectoryRepository) FindAll(ctx context.Context) ([]*model.Directory, error) {
	return r.find(ctx, `SELECT id, location, enabled, created_at FROM directories WHERE deleted_at IS NULL ORDER BY location`)
}

// FindAllEnabled retrieves the active directories eligible for reindexing.
func (r *sqlDirectoryRepository) FindAllEnabled(ctx context.Context) ([]*model.Directory, error) {
	return r.find(ctx, `SELECT id, location, enabled, created_at FROM directories WHERE deleted_at IS NULL AND enabled = TRUE ORDER BY location`)
}

func (r *sqlDirectoryRepository) find(ctx context.Context, query string) ([]*model.Directory, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query directories: %w", err)
	}
	defer rows.Close()

	directories := make([]*model.Directory, 0)
	for rows.Next() {
		directory := &model.Directory{}
		if err := rows.Scan(&directory.ID, &directory.Location, &directory.Enabled, &directory.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan directory row: %w", err)
		}
		directories = append(directories, directory)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during directories iteration: %w", err)
	}
	return directories, nil
}

// SoftDelete marks a directory as deleted.
func (r *sqlDirectoryRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE directories SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete directory %s: %w", id, err)
	}
	return nil
}
