package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"melodex/model"

	"github.com/google/uuid"
)

// ArtistRepository defines the interface for artist data operations.
// All lookups consider only active (non soft-deleted) rows.
type ArtistRepository interface {
	Create(ctx context.Context, artist *model.Artist) error
	GetByID(ctx context.Context, id string) (*model.Artist, error)
	GetActiveByName(ctx context.Context, name string) (*model.Artist, error)
	FindByCriteria(ctx context.Context, criteria ArtistCriteria) ([]*model.Artist, error)
	SoftDelete(ctx context.Context, id string) error
	DeleteEmptyArtists(ctx context.Context) (int64, error)
}

type sqlArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a SQL-backed artist repository.
func NewArtistRepository(database *sql.DB) ArtistRepository {
	return &sqlArtistRepository{db: database}
}

// Create adds a new artist. The id is generated when not supplied.
func (r *sqlArtistRepository) Create(ctx context.Context, artist *model.Artist) error {
	if artist.ID == "" {
		artist.ID = uuid.NewString()
	}
	artist.CreatedAt = time.Now().UTC()

	query := `INSERT INTO artists (id, name, created_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, artist.ID, artist.Name, artist.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create artist %q: %w", artist.Name, err)
	}
	return nil
}

// GetByID retrieves an active artist by id, or nil when not found.
func (r *sqlArtistRepository) GetByID(ctx context.Context, id string) (*model.Artist, error) {
	query := `SELECT id, name, created_at FROM artists WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetActiveByName retrieves an active artist by its exact name, or nil when
// not found. The name is the tag string as extracted; no case or whitespace
// normalization is applied.
func (r *sqlArtistRepository) GetActiveByName(ctx context.Context, name string) (*model.Artist, error) {
	query := `SELECT id, name, created_at FROM artists WHERE name = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, name))
}

func (r *sqlArtistRepository) scanOne(row *sql.Row) (*model.Artist, error) {
	artist := &model.Artist{}
	err := row.Scan(&artist.ID, &artist.Name, &artist.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan artist row: %w", err)
	}
	return artist, nil
}

// FindByCriteria retrieves active artists matching the criteria.
func (r *sqlArtistRepository) FindByCriteria(ctx context.Context, criteria ArtistCriteria) ([]*model.Artist, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, name, created_at FROM artists WHERE deleted_at IS NULL`)
	args := make([]interface{}, 0, 1)
	if criteria.NameLike != "" {
		sb.WriteString(` AND name LIKE ?`)
		args = append(args, "%"+criteria.NameLike+"%")
	}
	sb.WriteString(` ORDER BY name`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	artists := make([]*model.Artist, 0)
	for rows.Next() {
		artist := &model.Artist{}
		if err := rows.Scan(&artist.ID, &artist.Name, &artist.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artist in FindByCriteria: %w", err)
		}
		artists = append(artists, artist)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during artists iteration: %w", err)
	}
	return artists, nil
}

// SoftDelete marks an artist as deleted.
func (r *sqlArtistRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE artists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete artist %s: %w", id, err)
	}
	return nil
}

// DeleteEmptyArtists soft-deletes every active artist that has no active
// album and no active track left, and returns how many were removed.
func (r *sqlArtistRepository) DeleteEmptyArtists(ctx context.Context) (int64, error) {
	query := `
	UPDATE artists SET deleted_at = ?
	WHERE deleted_at IS NULL
	  AND NOT EXISTS (SELECT 1 FROM albums WHERE albums.artist_id = artists.id AND albums.deleted_at IS NULL)
	  AND NOT EXISTS (SELECT 1 FROM tracks WHERE tracks.artist_id = artists.id AND tracks.deleted_at IS NULL)`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete empty artists: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted empty artists: %w", err)
	}
	return deleted, nil
}
