package collection

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"melodex/core/albumart"
	"melodex/core/metadata"
	"melodex/logger"
	"melodex/model"
	"melodex/repository"
)

// ErrAlreadyScanning is returned when a reindex cycle is requested while
// another one is still running. The request is skipped, not queued.
var ErrAlreadyScanning = errors.New("collection: reindex already in progress")

// Stats counts the outcome of one directory indexing pass.
type Stats struct {
	FilesSeen int `json:"filesSeen"`
	Indexed   int `json:"indexed"`
	Skipped   int `json:"skipped"` // files skipped due to extraction errors
}

func (s *Stats) add(other Stats) {
	s.FilesSeen += other.FilesSeen
	s.Indexed += other.Indexed
	s.Skipped += other.Skipped
}

// Status describes the indexer's last completed reindex cycle.
type Status struct {
	Scanning  bool      `json:"scanning"`
	LastRunAt time.Time `json:"lastRunAt"`
	LastError string    `json:"lastError,omitempty"`
	LastStats Stats     `json:"lastStats"`
}

// Indexer drives walker, extractor and entity resolution against the
// catalog store. Every lookup is store-backed; no entity cache is shared
// across operations.
type Indexer struct {
	directories repository.DirectoryRepository
	artists     repository.ArtistRepository
	albums      repository.AlbumRepository
	tracks      repository.TrackRepository
	extractor   metadata.Extractor
	art         *albumart.Service

	// resolveMu serializes artist/album find-or-create and empty-artist
	// garbage collection, so concurrent scans cannot create duplicate
	// active rows or collect an artist while a track is being attached.
	resolveMu sync.Mutex

	dirMu    sync.Mutex
	dirLocks map[string]*sync.Mutex

	scanning atomic.Bool

	statusMu sync.Mutex
	status   Status
}

// NewIndexer creates a collection indexer. The album art service is an
// explicit dependency; albums are created without art when it fails.
func NewIndexer(
	directories repository.DirectoryRepository,
	artists repository.ArtistRepository,
	albums repository.AlbumRepository,
	tracks repository.TrackRepository,
	extractor metadata.Extractor,
	art *albumart.Service,
) *Indexer {
	return &Indexer{
		directories: directories,
		artists:     artists,
		albums:      albums,
		tracks:      tracks,
		extractor:   extractor,
		art:         art,
		dirLocks:    make(map[string]*sync.Mutex),
	}
}

// directoryLock returns the mutex serializing indexing operations on one
// directory. Operations on different directories may run concurrently.
func (ix *Indexer) directoryLock(directoryID string) *sync.Mutex {
	ix.dirMu.Lock()
	defer ix.dirMu.Unlock()
	lock, ok := ix.dirLocks[directoryID]
	if !ok {
		lock = &sync.Mutex{}
		ix.dirLocks[directoryID] = lock
	}
	return lock
}

// AddDirectoryToIndex walks the directory tree and indexes every candidate
// audio file, then garbage-collects empty artists. Idempotent: re-running
// on an unchanged tree refreshes tracks in place and creates nothing new.
// Extraction failures are counted and skipped; store failures abort.
func (ix *Indexer) AddDirectoryToIndex(ctx context.Context, directory *model.Directory) (Stats, error) {
	lock := ix.directoryLock(directory.ID)
	lock.Lock()
	defer lock.Unlock()

	logger.Info("Adding directory to index", logger.String("location", directory.Location))
	start := time.Now()

	stats := Stats{}
	err := WalkAudioFiles(ctx, directory.Location, func(path string) error {
		stats.FilesSeen++
		if err := ix.IndexFile(ctx, directory, path); err != nil {
			var extractionErr *metadata.ExtractionError
			if errors.As(err, &extractionErr) {
				logger.Warn("Skipping file with unreadable metadata",
					logger.String("path", path), logger.ErrorField(err))
				stats.Skipped++
				return nil
			}
			// Store failure implies systemic unavailability, not a bad file.
			return err
		}
		stats.Indexed++
		return nil
	})
	if err != nil {
		return stats, err
	}

	if err = ix.deleteEmptyArtists(ctx); err != nil {
		return stats, err
	}

	logger.Info("Done adding directory to index",
		logger.String("location", directory.Location),
		logger.Int("filesSeen", stats.FilesSeen),
		logger.Int("indexed", stats.Indexed),
		logger.Int("skipped", stats.Skipped),
		logger.Duration("elapsed", time.Since(start)))
	return stats, nil
}

// RemoveDirectoryFromIndex soft-deletes every album owned by the directory,
// cascading to their tracks, then garbage-collects empty artists.
func (ix *Indexer) RemoveDirectoryFromIndex(ctx context.Context, directory *model.Directory) error {
	lock := ix.directoryLock(directory.ID)
	lock.Lock()
	defer lock.Unlock()

	logger.Info("Removing directory from index", logger.String("location", directory.Location))

	albums, err := ix.albums.FindByDirectory(ctx, directory.ID)
	if err != nil {
		return err
	}
	for _, album := range albums {
		if err = ix.albums.SoftDeleteCascade(ctx, album.ID); err != nil {
			return err
		}
	}

	if err = ix.deleteEmptyArtists(ctx); err != nil {
		return err
	}

	logger.Info("Done removing directory from index",
		logger.String("location", directory.Location), logger.Int("albums", len(albums)))
	return nil
}

// IndexFile adds one audio file to the index, or refreshes the existing
// track's metadata in place when the path was seen before. Extraction and
// cover art import run before the resolve lock is taken; entity
// resolution and the track write commit under it, so the empty-artist
// sweep can never collect an artist between its resolution and the
// track insert.
func (ix *Indexer) IndexFile(ctx context.Context, rootDirectory *model.Directory, path string) error {
	track, err := ix.tracks.GetActiveByDirectoryAndPath(ctx, rootDirectory.ID, path)
	if err != nil {
		return err
	}

	md, err := ix.extractor.Extract(path)
	if err != nil {
		return err
	}

	artID, err := ix.importArtForNewAlbum(ctx, md, path)
	if err != nil {
		return err
	}

	ix.resolveMu.Lock()
	defer ix.resolveMu.Unlock()

	existing := track != nil
	if !existing {
		track = &model.Track{
			DirectoryID: rootDirectory.ID,
			FilePath:    path,
		}
	}
	if err = ix.resolveTrack(ctx, rootDirectory, md, artID, track); err != nil {
		return err
	}
	if existing {
		return ix.tracks.Update(ctx, track)
	}
	return ix.tracks.Create(ctx, track)
}

// importArtForNewAlbum imports the directory's cover art when the file's
// album does not exist yet, returning the new asset id or "". Image decode
// and encode are too slow for the resolve lock, so the existence check
// runs without it; when another scan wins the album creation race the
// imported asset stays unreferenced, like any asset orphaned later.
func (ix *Indexer) importArtForNewAlbum(ctx context.Context, md *metadata.TrackMetadata, path string) (string, error) {
	albumArtist, err := ix.artists.GetActiveByName(ctx, md.AlbumArtist)
	if err != nil {
		return "", err
	}
	if albumArtist != nil {
		album, err := ix.albums.GetActiveByArtistAndName(ctx, albumArtist.ID, md.Album)
		if err != nil {
			return "", err
		}
		if album != nil {
			return "", nil
		}
	}

	coverPath := albumart.Locate(filepath.Dir(path))
	if coverPath == "" {
		return "", nil
	}
	artID, err := ix.art.ImportAlbumArt(ctx, coverPath)
	if err != nil {
		logger.Warn("Album created without art",
			logger.String("cover", coverPath), logger.ErrorField(err))
		return "", nil
	}
	return artID, nil
}

// resolveTrack fills the track from the extracted metadata and resolves
// its artist and album references, creating them on first sight. The
// resolution order matters: track artist, then album artist, then album,
// then the track's album link, since each find-or-create key depends on
// the previously resolved id. Callers must hold resolveMu.
func (ix *Indexer) resolveTrack(ctx context.Context, rootDirectory *model.Directory, md *metadata.TrackMetadata, artID string, track *model.Track) error {
	track.Title = md.Title
	track.Length = md.Length
	track.Bitrate = md.Bitrate
	track.Format = md.Format
	track.VBR = md.VBR
	track.Year = md.Year

	artist, err := ix.findOrCreateArtist(ctx, md.Artist)
	if err != nil {
		return err
	}
	track.ArtistID = artist.ID

	albumArtist := artist
	if md.AlbumArtist != md.Artist {
		albumArtist, err = ix.findOrCreateArtist(ctx, md.AlbumArtist)
		if err != nil {
			return err
		}
	}

	album, err := ix.albums.GetActiveByArtistAndName(ctx, albumArtist.ID, md.Album)
	if err != nil {
		return err
	}
	if album == nil {
		album = &model.Album{
			Name:        md.Album,
			ArtistID:    albumArtist.ID,
			DirectoryID: rootDirectory.ID,
			ArtID:       artID, // cover art is attached on album creation only
		}
		if err = ix.albums.Create(ctx, album); err != nil {
			return err
		}
	}
	track.AlbumID = album.ID

	return nil
}

// findOrCreateArtist resolves an artist by exact name, creating it when no
// active row exists. Callers must hold resolveMu.
func (ix *Indexer) findOrCreateArtist(ctx context.Context, name string) (*model.Artist, error) {
	artist, err := ix.artists.GetActiveByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if artist != nil {
		return artist, nil
	}

	artist = &model.Artist{Name: name}
	if err = ix.artists.Create(ctx, artist); err != nil {
		return nil, err
	}
	return artist, nil
}

// deleteEmptyArtists collects artists left with no active album and no
// active track. It takes resolveMu so it cannot race a track being
// attached to an artist that is about to become non-empty.
func (ix *Indexer) deleteEmptyArtists(ctx context.Context) error {
	ix.resolveMu.Lock()
	defer ix.resolveMu.Unlock()

	deleted, err := ix.artists.DeleteEmptyArtists(ctx)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info("Deleted empty artists", logger.Int64("count", deleted))
	}
	return nil
}

// Reindex walks every enabled directory sequentially. Only one cycle may
// be in flight at a time; an overlapping request returns
// ErrAlreadyScanning and is skipped.
func (ix *Indexer) Reindex(ctx context.Context) error {
	if !ix.scanning.CompareAndSwap(false, true) {
		return ErrAlreadyScanning
	}
	defer ix.scanning.Store(false)

	logger.Info("Starting collection reindex")
	start := time.Now()

	directories, err := ix.directories.FindAllEnabled(ctx)
	if err != nil {
		ix.recordCycle(Stats{}, err)
		return err
	}

	total := Stats{}
	for _, directory := range directories {
		stats, err := ix.AddDirectoryToIndex(ctx, directory)
		total.add(stats)
		if err != nil {
			ix.recordCycle(total, err)
			return err
		}
	}

	ix.recordCycle(total, nil)
	logger.Info("Collection reindex complete",
		logger.Int("directories", len(directories)),
		logger.Int("filesSeen", total.FilesSeen),
		logger.Int("indexed", total.Indexed),
		logger.Int("skipped", total.Skipped),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func (ix *Indexer) recordCycle(stats Stats, err error) {
	ix.statusMu.Lock()
	defer ix.statusMu.Unlock()
	ix.status.LastRunAt = time.Now().UTC()
	ix.status.LastStats = stats
	if err != nil {
		ix.status.LastError = err.Error()
	} else {
		ix.status.LastError = ""
	}
}

// Status reports whether a reindex is running and the outcome of the last
// completed cycle.
func (ix *Indexer) Status() Status {
	ix.statusMu.Lock()
	defer ix.statusMu.Unlock()
	status := ix.status
	status.Scanning = ix.scanning.Load()
	return status
}
