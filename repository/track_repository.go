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

// TrackRepository defines the interface for track data operations.
// All lookups consider only active (non soft-deleted) rows.
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	Update(ctx context.Context, track *model.Track) error
	GetByID(ctx context.Context, id string) (*model.Track, error)
	GetActiveByDirectoryAndPath(ctx context.Context, directoryID, filePath string) (*model.Track, error)
	FindByCriteria(ctx context.Context, criteria TrackCriteria) ([]*model.Track, error)
	SoftDelete(ctx context.Context, id string) error
}

type sqlTrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a SQL-backed track repository.
func NewTrackRepository(database *sql.DB) TrackRepository {
	return &sqlTrackRepository{db: database}
}

// Create adds a new track. The id is generated when not supplied.
func (r *sqlTrackRepository) Create(ctx context.Context, track *model.Track) error {
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	track.CreatedAt = now
	track.UpdatedAt = now

	query := `INSERT INTO tracks (id, directory_id, album_id, artist_id, file_path, title, length, bitrate, format, vbr, year, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		track.ID, track.DirectoryID, track.AlbumID, track.ArtistID, track.FilePath,
		track.Title, track.Length, track.Bitrate, track.Format, track.VBR, nullInt(track.Year),
		track.CreatedAt, track.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create track %s: %w", track.FilePath, err)
	}
	return nil
}

// Update refreshes the metadata of an existing track in place.
func (r *sqlTrackRepository) Update(ctx context.Context, track *model.Track) error {
	track.UpdatedAt = time.Now().UTC()

	query := `UPDATE tracks SET album_id = ?, artist_id = ?, title = ?, length = ?, bitrate = ?, format = ?, vbr = ?, year = ?, updated_at = ?
	           WHERE id = ? AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query,
		track.AlbumID, track.ArtistID, track.Title, track.Length, track.Bitrate,
		track.Format, track.VBR, nullInt(track.Year), track.UpdatedAt, track.ID)
	if err != nil {
		return fmt.Errorf("failed to update track %s: %w", track.ID, err)
	}
	return nil
}

// GetByID retrieves an active track by id, or nil when not found.
func (r *sqlTrackRepository) GetByID(ctx context.Context, id string) (*model.Track, error) {
	query := trackSelect + ` WHERE t.id = ? AND t.deleted_at IS NULL`
	return scanTrack(r.db.QueryRowContext(ctx, query, id))
}

// GetActiveByDirectoryAndPath retrieves an active track by its natural key
// (owning directory id, absolute file path), or nil when not found.
func (r *sqlTrackRepository) GetActiveByDirectoryAndPath(ctx context.Context, directoryID, filePath string) (*model.Track, error) {
	query := trackSelect + ` WHERE t.directory_id = ? AND t.file_path = ? AND t.deleted_at IS NULL`
	return scanTrack(r.db.QueryRowContext(ctx, query, directoryID, filePath))
}

const trackSelect = `
	SELECT t.id, t.directory_id, t.album_id, t.artist_id, t.file_path, t.title,
	       t.length, t.bitrate, t.format, t.vbr, t.year, t.created_at, t.updated_at
	FROM tracks t`

func scanTrack(row *sql.Row) (*model.Track, error) {
	track := &model.Track{}
	var year sql.NullInt64
	err := row.Scan(&track.ID, &track.DirectoryID, &track.AlbumID, &track.ArtistID, &track.FilePath,
		&track.Title, &track.Length, &track.Bitrate, &track.Format, &track.VBR, &year,
		&track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track row: %w", err)
	}
	track.Year = intPtr(year)
	return track, nil
}

// FindByCriteria retrieves active tracks matching the criteria, with the
// artist and album names joined in.
func (r *sqlTrackRepository) FindByCriteria(ctx context.Context, criteria TrackCriteria) ([]*model.Track, error) {
	var sb strings.Builder
	sb.WriteString(`
	SELECT t.id, t.directory_id, t.album_id, t.artist_id, t.file_path, t.title,
	       t.length, t.bitrate, t.format, t.vbr, t.year, t.created_at, t.updated_at,
	       ar.name, al.name
	FROM tracks t
	JOIN artists ar ON ar.id = t.artist_id
	JOIN albums al ON al.id = t.album_id
	WHERE t.deleted_at IS NULL`)
	args := make([]interface{}, 0, 4)
	if criteria.ArtistID != "" {
		sb.WriteString(` AND t.artist_id = ?`)
		args = append(args, criteria.ArtistID)
	}
	if criteria.AlbumID != "" {
		sb.WriteString(` AND t.album_id = ?`)
		args = append(args, criteria.AlbumID)
	}
	if criteria.DirectoryID != "" {
		sb.WriteString(` AND t.directory_id = ?`)
		args = append(args, criteria.DirectoryID)
	}
	if criteria.TitleLike != "" {
		sb.WriteString(` AND t.title LIKE ?`)
		args = append(args, "%"+criteria.TitleLike+"%")
	}
	sb.WriteString(` ORDER BY al.name, t.file_path`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track := &model.Track{}
		var year sql.NullInt64
		err := rows.Scan(&track.ID, &track.DirectoryID, &track.AlbumID, &track.ArtistID, &track.FilePath,
			&track.Title, &track.Length, &track.Bitrate, &track.Format, &track.VBR, &year,
			&track.CreatedAt, &track.UpdatedAt, &track.ArtistName, &track.AlbumName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in FindByCriteria: %w", err)
		}
		track.Year = intPtr(year)
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tracks iteration: %w", err)
	}
	return tracks, nil
}

// SoftDelete marks a track as deleted.
func (r *sqlTrackRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE tracks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete track %s: %w", id, err)
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
