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

// AlbumRepository defines the interface for album data operations.
// All lookups consider only active (non soft-deleted) rows.
type AlbumRepository interface {
	Create(ctx context.Context, album *model.Album) error
	GetByID(ctx context.Context, id string) (*model.Album, error)
	GetActiveByArtistAndName(ctx context.Context, artistID, name string) (*model.Album, error)
	FindByDirectory(ctx context.Context, directoryID string) ([]*model.Album, error)
	FindByCriteria(ctx context.Context, criteria AlbumCriteria) ([]*model.Album, error)
	FindArtIDsByArtist(ctx context.Context, artistID string, limit int) ([]string, error)
	SoftDeleteCascade(ctx context.Context, id string) error
}

type sqlAlbumRepository struct {
	db *sql.DB
}

// NewAlbumRepository creates a SQL-backed album repository.
func NewAlbumRepository(database *sql.DB) AlbumRepository {
	return &sqlAlbumRepository{db: database}
}

// Create adds a new album. The id is generated when not supplied.
func (r *sqlAlbumRepository) Create(ctx context.Context, album *model.Album) error {
	if album.ID == "" {
		album.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	album.CreatedAt = now
	album.UpdatedAt = now

	query := `INSERT INTO albums (id, name, artist_id, directory_id, art_id, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		album.ID, album.Name, album.ArtistID, album.DirectoryID, nullString(album.ArtID), album.CreatedAt, album.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create album %q: %w", album.Name, err)
	}
	return nil
}

// GetByID retrieves an active album by id, or nil when not found.
func (r *sqlAlbumRepository) GetByID(ctx context.Context, id string) (*model.Album, error) {
	query := `SELECT id, name, artist_id, directory_id, art_id, created_at, updated_at
	           FROM albums WHERE id = ? AND deleted_at IS NULL`
	return scanAlbum(r.db.QueryRowContext(ctx, query, id))
}

// GetActiveByArtistAndName retrieves an active album by its natural key
// (owning artist id, exact name), or nil when not found.
func (r *sqlAlbumRepository) GetActiveByArtistAndName(ctx context.Context, artistID, name string) (*model.Album, error) {
	query := `SELECT id, name, artist_id, directory_id, art_id, created_at, updated_at
	           FROM albums WHERE artist_id = ? AND name = ? AND deleted_at IS NULL`
	return scanAlbum(r.db.QueryRowContext(ctx, query, artistID, name))
}

func scanAlbum(row *sql.Row) (*model.Album, error) {
	album := &model.Album{}
	var artID sql.NullString
	err := row.Scan(&album.ID, &album.Name, &album.ArtistID, &album.DirectoryID, &artID, &album.CreatedAt, &album.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan album row: %w", err)
	}
	album.ArtID = artID.String
	return album, nil
}

// FindByDirectory retrieves all active albums owned by a directory.
func (r *sqlAlbumRepository) FindByDirectory(ctx context.Context, directoryID string) ([]*model.Album, error) {
	return r.FindByCriteria(ctx, AlbumCriteria{DirectoryID: directoryID})
}

// FindByCriteria retrieves active albums matching the criteria, with the
// artist name joined in.
func (r *sqlAlbumRepository) FindByCriteria(ctx context.Context, criteria AlbumCriteria) ([]*model.Album, error) {
	var sb strings.Builder
	sb.WriteString(`
	SELECT a.id, a.name, a.artist_id, a.directory_id, a.art_id, a.created_at, a.updated_at, ar.name
	FROM albums a
	JOIN artists ar ON ar.id = a.artist_id
	WHERE a.deleted_at IS NULL`)
	args := make([]interface{}, 0, 3)
	if criteria.ArtistID != "" {
		sb.WriteString(` AND a.artist_id = ?`)
		args = append(args, criteria.ArtistID)
	}
	if criteria.DirectoryID != "" {
		sb.WriteString(` AND a.directory_id = ?`)
		args = append(args, criteria.DirectoryID)
	}
	if criteria.NameLike != "" {
		sb.WriteString(` AND a.name LIKE ?`)
		args = append(args, "%"+criteria.NameLike+"%")
	}
	sb.WriteString(` ORDER BY a.name`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	albums := make([]*model.Album, 0)
	for rows.Next() {
		album := &model.Album{}
		var artID sql.NullString
		err := rows.Scan(&album.ID, &album.Name, &album.ArtistID, &album.DirectoryID, &artID,
			&album.CreatedAt, &album.UpdatedAt, &album.ArtistName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan album in FindByCriteria: %w", err)
		}
		album.ArtID = artID.String
		albums = append(albums, album)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during albums iteration: %w", err)
	}
	return albums, nil
}

// FindArtIDsByArtist retrieves the art asset ids of an artist's active
// albums that have art, up to limit, oldest album first.
func (r *sqlAlbumRepository) FindArtIDsByArtist(ctx context.Context, artistID string, limit int) ([]string, error) {
	query := `SELECT art_id FROM albums
	           WHERE artist_id = ? AND deleted_at IS NULL AND art_id IS NOT NULL
	           ORDER BY created_at LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, artistID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query album art for artist %s: %w", artistID, err)
	}
	defer rows.Close()

	artIDs := make([]string, 0, limit)
	for rows.Next() {
		var artID string
		if err := rows.Scan(&artID); err != nil {
			return nil, fmt.Errorf("failed to scan album art id: %w", err)
		}
		artIDs = append(artIDs, artID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during album art iteration: %w", err)
	}
	return artIDs, nil
}

// SoftDeleteCascade marks an album and all of its active tracks as deleted
// inside one transaction, so a failure leaves neither half-applied.
func (r *sqlAlbumRepository) SoftDeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin album delete transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE tracks SET deleted_at = ? WHERE album_id = ? AND deleted_at IS NULL`, now, id); err != nil {
		return fmt.Errorf("failed to soft-delete tracks of album %s: %w", id, err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE albums SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, now, id); err != nil {
		return fmt.Errorf("failed to soft-delete album %s: %w", id, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit album delete transaction: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
