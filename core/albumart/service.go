package albumart

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"melodex/logger"
	"melodex/repository"
	"melodex/storage"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Size is a square art rendition size in pixels.
type Size int

const (
	SizeSmall Size = 330
	SizeLarge Size = 768
)

var allSizes = []Size{SizeSmall, SizeLarge}

// Service imports album art assets and serves album and artist art.
// Assets are immutable once imported; assets orphaned by album deletion
// are not garbage-collected.
type Service struct {
	store  storage.ArtStorage
	albums repository.AlbumRepository
}

// NewService creates an album art service on the given storage backend.
func NewService(store storage.ArtStorage, albums repository.AlbumRepository) *Service {
	return &Service{store: store, albums: albums}
}

// ImportAlbumArt decodes the cover image at path and stores one JPEG
// rendition per size, all keyed by a fresh art id, which is returned.
func (s *Service) ImportAlbumArt(ctx context.Context, path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode cover image %s: %w", path, err)
	}

	artID := uuid.NewString()
	for _, size := range allSizes {
		resized := fill(img, int(size), int(size))
		data, err := encodeJPEG(resized)
		if err != nil {
			return "", fmt.Errorf("failed to encode art rendition %s: %w", path, err)
		}
		if err = s.store.Put(ctx, objectName(artID, size), data); err != nil {
			return "", err
		}
	}

	logger.Debug("Imported album art", logger.String("path", path), logger.String("artId", artID))
	return artID, nil
}

// GetAlbumArt returns the JPEG art of an album at the requested size, or
// nil when the album does not exist or has no art.
func (s *Service) GetAlbumArt(ctx context.Context, albumID string, size Size) ([]byte, error) {
	album, err := s.albums.GetByID(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if album == nil || album.ArtID == "" {
		return nil, nil
	}
	return s.store.Get(ctx, objectName(album.ArtID, size))
}

// GetArtistArt composes a mosaic of up to four of the artist's album
// covers at the requested size. Returns nil when no album of the artist
// has art. The mosaic is built on demand and not persisted.
func (s *Service) GetArtistArt(ctx context.Context, artistID string, size Size) ([]byte, error) {
	artIDs, err := s.albums.FindArtIDsByArtist(ctx, artistID, 4)
	if err != nil {
		return nil, err
	}

	images := make([]image.Image, 0, len(artIDs))
	for _, artID := range artIDs {
		data, err := s.store.Get(ctx, objectName(artID, SizeSmall))
		if err != nil {
			logger.Warn("Skipping unreadable art asset", logger.String("artId", artID), logger.ErrorField(err))
			continue
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			logger.Warn("Skipping undecodable art asset", logger.String("artId", artID), logger.ErrorField(err))
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, nil
	}

	mosaic, err := MakeMosaic(images, int(size))
	if err != nil {
		return nil, err
	}
	return encodeJPEG(mosaic)
}

func objectName(artID string, size Size) string {
	return fmt.Sprintf("%s_%d.jpg", artID, size)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
