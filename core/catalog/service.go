// Package catalog exposes the operations the core offers to its consumers:
// directory lifecycle, browse queries, art retrieval and manual reindex.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"melodex/cache"
	"melodex/core/albumart"
	"melodex/core/collection"
	"melodex/logger"
	"melodex/model"
	"melodex/repository"
)

// ErrDirectoryNotFound is returned when a directory id does not resolve
// to an active directory.
var ErrDirectoryNotFound = errors.New("catalog: directory not found")

// Service is the catalog's external interface. It speaks no network
// protocol; an administrative or presentation surface calls it directly.
type Service struct {
	directories repository.DirectoryRepository
	artists     repository.ArtistRepository
	albums      repository.AlbumRepository
	tracks      repository.TrackRepository
	indexer     *collection.Indexer
	art         *albumart.Service
	cache       *cache.CatalogCache
}

// NewService wires the catalog facade.
func NewService(
	directories repository.DirectoryRepository,
	artists repository.ArtistRepository,
	albums repository.AlbumRepository,
	tracks repository.TrackRepository,
	indexer *collection.Indexer,
	art *albumart.Service,
	catalogCache *cache.CatalogCache,
) *Service {
	return &Service{
		directories: directories,
		artists:     artists,
		albums:      albums,
		tracks:      tracks,
		indexer:     indexer,
		art:         art,
		cache:       catalogCache,
	}
}

// AddDirectory registers a new enabled directory and indexes it. The
// directory row is kept even when the initial indexing pass fails; a later
// reindex will pick it up.
func (s *Service) AddDirectory(ctx context.Context, location string) (*model.Directory, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("invalid directory location %s: %w", location, err)
	}

	directory := &model.Directory{Location: abs, Enabled: true}
	if err = s.directories.Create(ctx, directory); err != nil {
		return nil, err
	}

	_, err = s.indexer.AddDirectoryToIndex(ctx, directory)
	s.cache.InvalidateAll(ctx)
	if err != nil {
		return directory, err
	}
	return directory, nil
}

// RemoveDirectory removes a directory from the index, cascading to its
// albums and tracks, and soft-deletes the directory itself.
func (s *Service) RemoveDirectory(ctx context.Context, directoryID string) error {
	directory, err := s.directories.GetByID(ctx, directoryID)
	if err != nil {
		return err
	}
	if directory == nil {
		return ErrDirectoryNotFound
	}

	if err = s.indexer.RemoveDirectoryFromIndex(ctx, directory); err != nil {
		return err
	}
	if err = s.directories.SoftDelete(ctx, directoryID); err != nil {
		return err
	}
	s.cache.InvalidateAll(ctx)
	return nil
}

// ListDirectories returns all active directories.
func (s *Service) ListDirectories(ctx context.Context) ([]*model.Directory, error) {
	return s.directories.FindAll(ctx)
}

// ListArtists returns active artists matching the criteria.
func (s *Service) ListArtists(ctx context.Context, criteria repository.ArtistCriteria) ([]*model.Artist, error) {
	key := fmt.Sprintf("artists:%s", criteria.NameLike)
	var cached []*model.Artist
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	artists, err := s.artists.FindByCriteria(ctx, criteria)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, artists)
	return artists, nil
}

// ListAlbums returns active albums matching the criteria.
func (s *Service) ListAlbums(ctx context.Context, criteria repository.AlbumCriteria) ([]*model.Album, error) {
	key := fmt.Sprintf("albums:%s:%s:%s", criteria.ArtistID, criteria.DirectoryID, criteria.NameLike)
	var cached []*model.Album
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	albums, err := s.albums.FindByCriteria(ctx, criteria)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, albums)
	return albums, nil
}

// ListTracks returns active tracks matching the criteria.
func (s *Service) ListTracks(ctx context.Context, criteria repository.TrackCriteria) ([]*model.Track, error) {
	key := fmt.Sprintf("tracks:%s:%s:%s:%s", criteria.ArtistID, criteria.AlbumID, criteria.DirectoryID, criteria.TitleLike)
	var cached []*model.Track
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	tracks, err := s.tracks.FindByCriteria(ctx, criteria)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, tracks)
	return tracks, nil
}

// GetAlbumArt returns the album's art as JPEG at the requested size, or
// nil when the album has none.
func (s *Service) GetAlbumArt(ctx context.Context, albumID string, size albumart.Size) ([]byte, error) {
	return s.art.GetAlbumArt(ctx, albumID, size)
}

// GetArtistArt returns a mosaic of the artist's album covers as JPEG at
// the requested size, or nil when no cover exists.
func (s *Service) GetArtistArt(ctx context.Context, artistID string, size albumart.Size) ([]byte, error) {
	return s.art.GetArtistArt(ctx, artistID, size)
}

// TriggerReindex runs a full reindex of all enabled directories. Returns
// collection.ErrAlreadyScanning when a cycle is already in flight.
func (s *Service) TriggerReindex(ctx context.Context) error {
	err := s.indexer.Reindex(ctx)
	if err == nil {
		s.cache.InvalidateAll(ctx)
	} else if !errors.Is(err, collection.ErrAlreadyScanning) {
		logger.Error("Manual reindex failed", logger.ErrorField(err))
	}
	return err
}

// ScanStatus reports the indexer's current status.
func (s *Service) ScanStatus() collection.Status {
	return s.indexer.Status()
}
