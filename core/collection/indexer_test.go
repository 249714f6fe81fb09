package collection

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"melodex/core/albumart"
	"melodex/core/metadata"
	"melodex/db"
	"melodex/model"
	"melodex/repository"
	"melodex/storage"

	"github.com/disintegration/imaging"
	_ "github.com/mattn/go-sqlite3"
)

// fakeExtractor maps file paths to canned metadata. Unknown paths fail
// with an ExtractionError, like a corrupt file would.
type fakeExtractor struct {
	mu    sync.Mutex
	files map[string]metadata.TrackMetadata
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{files: make(map[string]metadata.TrackMetadata)}
}

func (f *fakeExtractor) set(path string, md metadata.TrackMetadata) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if md.AlbumArtist == "" {
		// The real extractor always defaults the album artist.
		md.AlbumArtist = md.Artist
	}
	f.files[path] = md
}

func (f *fakeExtractor) Extract(path string) (*metadata.TrackMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	md, ok := f.files[path]
	if !ok {
		return nil, &metadata.ExtractionError{Path: path, Err: errors.New("unsupported format")}
	}
	out := md
	return &out, nil
}

type testEnv struct {
	directories repository.DirectoryRepository
	artists     repository.ArtistRepository
	albums      repository.AlbumRepository
	tracks      repository.TrackRepository
	extractor   *fakeExtractor
	art         *albumart.Service
	indexer     *Indexer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })
	if err := db.InitSchema(database); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create art storage: %v", err)
	}

	env := &testEnv{
		directories: repository.NewDirectoryRepository(database),
		artists:     repository.NewArtistRepository(database),
		albums:      repository.NewAlbumRepository(database),
		tracks:      repository.NewTrackRepository(database),
		extractor:   newFakeExtractor(),
	}
	env.art = albumart.NewService(store, env.albums)
	env.indexer = NewIndexer(env.directories, env.artists, env.albums, env.tracks, env.extractor, env.art)
	return env
}

// addMusicDir registers an enabled directory rooted at a fresh temp dir.
func (env *testEnv) addMusicDir(t *testing.T) *model.Directory {
	t.Helper()
	directory := &model.Directory{Location: t.TempDir(), Enabled: true}
	if err := env.directories.Create(context.Background(), directory); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	return directory
}

// writeAudioFile creates an empty placeholder file; the fake extractor
// supplies its metadata.
func writeAudioFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		t.Fatalf("failed to write audio file: %v", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("failed to resolve path: %v", err)
	}
	return abs
}

func TestAddDirectoryToIndexScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	directory := env.addMusicDir(t)

	t1 := writeAudioFile(t, directory.Location, "01.mp3")
	t2 := writeAudioFile(t, directory.Location, "02.mp3")
	env.extractor.set(t1, metadata.TrackMetadata{Artist: "A", Album: "X", Title: "T1"})
	env.extractor.set(t2, metadata.TrackMetadata{Artist: "A", Album: "X", Title: "T2"})

	stats, err := env.indexer.AddDirectoryToIndex(ctx, directory)
	if err != nil {
		t.Fatalf("AddDirectoryToIndex failed: %v", err)
	}
	if stats.FilesSeen != 2 || stats.Indexed != 2 || stats.Skipped != 0 {
		t.Fatalf("stats = %+v, want 2 seen, 2 indexed, 0 skipped", stats)
	}

	artists, err := env.artists.FindByCriteria(ctx, repository.ArtistCriteria{})
	if err != nil {
		t.Fatalf("artist list failed: %v", err)
	}
	if len(artists) != 1 || artists[0].Name != "A" {
		t.Fatalf("artists = %+v, want exactly one artist A", artists)
	}

	albums, err := env.albums.FindByCriteria(ctx, repository.AlbumCriteria{})
	if err != nil {
		t.Fatalf("album list failed: %v", err)
	}
	if len(albums) != 1 || albums[0].Name != "X" {
		t.Fatalf("albums = %+v, want exactly one album X", albums)
	}

	tracks, err := env.tracks.FindByCriteria(ctx, repository.TrackCriteria{})
	if err != nil {
		t.Fatalf("track list failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("tracks = %+v, want two tracks", tracks)
	}
	for _, track := range tracks {
		if track.AlbumID != albums[0].ID {
			t.Errorf("track %s references album %s, want %s", track.Title, track.AlbumID, albums[0].ID)
		}
		if track.Year != nil {
			t.Errorf("track %s year = %v, want unset", track.Title, *track.Year)
		}
	}
}

func TestAddDirectoryToIndexIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	directory := env.addMusicDir(t)

	t1 := writeAudioFile(t, directory.Location, "01.flac")
	t2 := writeAudioFile(t, directory.Location, "02.flac")
	env.extractor.set(t1, metadata.TrackMetadata{Artist: "A", Album: "X", Title: "T1"})
	env.extractor.set(t2, metadata.TrackMetadata{Artist: "A", Album: "X", Title: "T2"})

	if _, err := env.indexer.AddDirectoryToIndex(ctx, directory); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	firstArtists, _ := env.artists.FindByCriteria(ctx, repository.ArtistCriteria{})
	firstAlbums, _ := env.albums.FindByCriteria(ctx, repository.AlbumCriteria{})
	firstTracks, _ := env.tracks.FindByCriteria(ctx, repository.TrackCriteria{})

	if _, err := env.indexer.AddDirectoryToIndex(ctx, directory); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	secondArtists, _ := env.artists.FindByCriteria(ctx, repository.ArtistCriteria{})
	secondAlbums, _ := env.albums.FindByCriteria(ctx, repository.AlbumCriteria{})
	secondTracks, _ := env.tracks.FindByCriteria(ctx, repository.TrackCriteria{})

	if len(secondArtists) != 1 || secondArtists[0].ID != firstArtists[0].ID {
		t.Errorf("artist rows changed across passes: %+v vs %+v", firstArtists, secondArtists)
	}
	if len(secondAlbums) != 1 || secondAlbums[0].ID != firstAlbums[0].ID {
		t.Errorf("album rows changed across passes: %+v vs %+v", firstAlbums, secondAlbums)
	}
	if len(secondTracks) != len(firstTracks) {
		t.Fatalf("track count changed: %d vs %d", len(firstTracks), len(secondTracks))
	}
	firstIDs := map[string]bool{}
	for _, track := range firstTracks {
		firstIDs[track.ID] = true
	}
	for _, track := range secondTracks {
		if !firstIDs[track.ID] {
			t.Errorf("track %s gained a new id on the second pass", track.Title)
		}
	}
}

func TestRetagRefreshesTrackInPlace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	directory := env.addMusicDir(t)

	t1 := writeAudioFile(t, directory.Location, "01.mp3")
	env.extractor.set(t1, metadata.TrackMetadata{Artist: "A", Album: "X", Title: "T1"})

	if _, err := env.indexer.AddDirectoryToIndex(ctx, directory); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	before, err := env.tracks.GetActiveByDirectoryAndPath(ctx, directory.ID, t1)
	if err != nil || before == nil {
		t.Fatalf("track not indexed: %v", err)
	}

	env.extractor.set(t1, metadata.TrackMetadata{Artist: "A", Album: "X", Title: "T1b"})
	if _, err := env.indexer.AddDirectoryToIndex(ctx, directory); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}

	after, err := env.tracks.GetActiveByDirectoryAndPath(ctx, directory.ID, t1)
	if err != nil || after == nil {
		t.Fatalf("track lost on rescan: %v", err)
	}
	if after.ID != before.ID {
		t.Errorf("rescan created a new track: %s vs %s", after.ID, before.ID)
	}
	if after.Title != "T1b" {
		t.Errorf("title = %q, want T1b", after.Title)
	}

	albums, _ := env.albums.FindByCriteria(ctx, repository.AlbumCriteria{})
	if len(albums) != 1 {
		t.Errorf("albums = %+v, want the single original album", albums)
	}
}

func TestExtractionFailureSkipsFileAndContinues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	directory := env.addMusicDir(t)

	good := writeAudioFile(t, directory.Location, "good.mp3")
	writeAudioFile(t, directory.Location, "corrupt.mp3") // unknown to the extractor
	env.extractor.set(good, metadata.TrackMetadata{Artist: "A", Album: "X", Title: "Good"})

	stats, err := env.indexer.AddDirectoryToIndex(ctx, directory)
	if err != nil {
		t.Fatalf("AddDirectoryToIndex failed: %v", err)
	}
	if stats.FilesSeen != 2 || stats.Indexed != 1 || stats.Skipped != 1 {
		t.Fatalf("stats = %+v, want 2 seen, 1 indexed, 1 skipped", stats)
	}

	tracks, _ := env.tracks.FindByCriteria(ctx, repository.TrackCriteria{})
	if len(tracks) != 1 || tracks[0].Title != "Good" {
		t.Fatalf("tracks = %+v, want only the good file", tracks)
	}
}

func TestRemoveDirectoryCascadesAndCollectsArtists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	directory := env.addMusicDir(t)

	t1 := writeAudioFile(t, directory.Location, "01.ogg")
	env.extractor.set(t1, metadata.TrackMetadata{Artist: "A", Album: "X", Title: "T1"})
	if _, err := env.indexer.AddDirectoryToIndex(ctx, directory); err != nil {
		t.Fatalf("indexing failed: %v", err)
	}

	if err := env.indexer.RemoveDirectoryFromIndex(ctx, directory); err != nil {
		t.Fatalf("RemoveDirectoryFromIndex failed: %v", err)
	}

	albums, _ := env.albums.FindByCriteria(ctx, repository.AlbumCriteria{DirectoryID: directory.ID})
	if len(albums) != 0 {
		t.Errorf("active albums remain after removal: %+v", albums)
	}
	tracks, _ := env.tracks.FindByCriteria(ctx, repository.TrackCriteria{DirectoryID: directory.ID})
	if len(tracks) != 0 {
		t.Errorf("active tracks remain after removal: %+v", tracks)
	}
	artists, _ := env.artists.FindByCriteria(ctx, repository.ArtistCriteria{})
	if len(artists) != 0 {
		t.Errorf("orphaned artists remain after removal: %+v", artists)
	}
}

func TestAlbumArtistGroupsTheAlbum(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	directory := env.addMusicDir(t)

	t1 := writeAudioFile(t, directory.Location, "01.mp3")
	env.extractor.set(t1, metadata.TrackMetadata{
		Artist: "A feat. B", AlbumArtist: "A", Album: "X", Title: "T1",
	})
	if _, err := env.indexer.AddDirectoryToIndex(ctx, directory); err != nil {
		t.Fatalf("indexing failed: %v", err)
	}

	albumArtist, err := env.artists.GetActiveByName(ctx, "A")
	if err != nil || albumArtist == nil {
		t.Fatalf("album artist A not created: %v", err)
	}
	trackArtist, err := env.artists.GetActiveByName(ctx, "A feat. B")
	if err != nil || trackArtist == nil {
		t.Fatalf("track artist not created: %v", err)
	}

	albums, _ := env.albums.FindByCriteria(ctx, repository.AlbumCriteria{})
	if len(albums) != 1 || albums[0].ArtistID != albumArtist.ID {
		t.Fatalf("albums = %+v, want one album owned by artist A", albums)
	}
	track, _ := env.tracks.GetActiveByDirectoryAndPath(ctx, directory.ID, t1)
	if track == nil || track.ArtistID != trackArtist.ID {
		t.Fatalf("track = %+v, want track artist %q", track, "A feat. B")
	}
}

func TestConcurrentIndexingCreatesOneArtist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	directory := env.addMusicDir(t)

	t1 := writeAudioFile(t, directory.Location, "01.mp3")
	t2 := writeAudioFile(t, directory.Location, "02.mp3")
	env.extractor.set(t1, metadata.TrackMetadata{Artist: "Simultaneous", Album: "X", Title: "T1"})
	env.extractor.set(t2, metadata.TrackMetadata{Artist: "Simultaneous", Album: "X", Title: "T2"})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, path := range []string{t1, t2} {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			errs[i] = env.indexer.IndexFile(ctx, directory, path)
		}(i, path)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("concurrent IndexFile failed: %v", err)
		}
	}

	artists, err := env.artists.FindByCriteria(ctx, repository.ArtistCriteria{NameLike: "Simultaneous"})
	if err != nil {
		t.Fatalf("artist list failed: %v", err)
	}
	if len(artists) != 1 {
		t.Fatalf("got %d active artists named Simultaneous, want exactly 1", len(artists))
	}
}

func TestCoverArtImportedOnAlbumCreation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	directory := env.addMusicDir(t)

	cover := imaging.New(24, 24, color.NRGBA{R: 200, A: 255})
	if err := imaging.Save(cover, filepath.Join(directory.Location, "cover.jpg")); err != nil {
		t.Fatalf("failed to write cover fixture: %v", err)
	}
	t1 := writeAudioFile(t, directory.Location, "01.mp3")
	env.extractor.set(t1, metadata.TrackMetadata{Artist: "A", Album: "X", Title: "T1"})

	if _, err := env.indexer.AddDirectoryToIndex(ctx, directory); err != nil {
		t.Fatalf("indexing failed: %v", err)
	}

	albums, _ := env.albums.FindByCriteria(ctx, repository.AlbumCriteria{})
	if len(albums) != 1 {
		t.Fatalf("albums = %+v, want one", albums)
	}
	if albums[0].ArtID == "" {
		t.Fatal("album created without art despite cover.jpg")
	}

	data, err := env.art.GetAlbumArt(ctx, albums[0].ID, albumart.SizeSmall)
	if err != nil {
		t.Fatalf("GetAlbumArt failed: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("stored art is not decodable: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != int(albumart.SizeSmall) || bounds.Dy() != int(albumart.SizeSmall) {
		t.Errorf("art rendition is %dx%d, want %dx%d",
			bounds.Dx(), bounds.Dy(), albumart.SizeSmall, albumart.SizeSmall)
	}

	// A rescan sees the existing album and must not import the art again.
	if _, err := env.indexer.AddDirectoryToIndex(ctx, directory); err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	again, _ := env.albums.FindByCriteria(ctx, repository.AlbumCriteria{})
	if len(again) != 1 || again[0].ArtID != albums[0].ArtID {
		t.Errorf("rescan changed album art: %+v, want art id %s", again, albums[0].ArtID)
	}
}

// gatedTrackRepo holds the first Create open so another operation can be
// attempted while a track insert is pending.
type gatedTrackRepo struct {
	repository.TrackRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedTrackRepo) Create(ctx context.Context, track *model.Track) error {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.TrackRepository.Create(ctx, track)
}

func TestEmptyArtistSweepWaitsForPendingTrackInsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	directory := env.addMusicDir(t)
	other := env.addMusicDir(t)

	// "A feat. B" owns no album of its own, so it is collectable the
	// moment it has no track either.
	t1 := writeAudioFile(t, directory.Location, "01.mp3")
	env.extractor.set(t1, metadata.TrackMetadata{
		Artist: "A feat. B", AlbumArtist: "A", Album: "X", Title: "T1",
	})

	gate := &gatedTrackRepo{
		TrackRepository: env.tracks,
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	indexer := NewIndexer(env.directories, env.artists, env.albums, gate, env.extractor, env.art)

	indexDone := make(chan error, 1)
	go func() { indexDone <- indexer.IndexFile(ctx, directory, t1) }()

	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("track insert never started")
	}

	// Removing the other directory sweeps empty artists. With the track
	// insert still pending it must wait for the insert to commit rather
	// than collect the freshly resolved track artist.
	removeDone := make(chan error, 1)
	go func() { removeDone <- indexer.RemoveDirectoryFromIndex(ctx, other) }()

	time.Sleep(200 * time.Millisecond)
	close(gate.release)

	if err := <-indexDone; err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}
	if err := <-removeDone; err != nil {
		t.Fatalf("RemoveDirectoryFromIndex failed: %v", err)
	}

	track, err := env.tracks.GetActiveByDirectoryAndPath(ctx, directory.ID, t1)
	if err != nil || track == nil {
		t.Fatalf("track not indexed: %v", err)
	}
	artist, err := env.artists.GetByID(ctx, track.ArtistID)
	if err != nil {
		t.Fatalf("artist lookup failed: %v", err)
	}
	if artist == nil {
		t.Fatalf("active track %s references artist %s, but that artist is no longer active",
			track.ID, track.ArtistID)
	}
}

// blockingExtractor parks the first extraction until released, to hold a
// reindex cycle open.
type blockingExtractor struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingExtractor) Extract(string) (*metadata.TrackMetadata, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return &metadata.TrackMetadata{Artist: "A", AlbumArtist: "A", Album: "X", Title: "T"}, nil
}

func TestReindexSkipsWhenCycleInFlight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	directory := env.addMusicDir(t)
	writeAudioFile(t, directory.Location, "01.mp3")

	blocker := &blockingExtractor{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	indexer := NewIndexer(env.directories, env.artists, env.albums, env.tracks, blocker, env.art)

	done := make(chan error, 1)
	go func() { done <- indexer.Reindex(ctx) }()

	select {
	case <-blocker.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first reindex never started extracting")
	}

	if err := indexer.Reindex(ctx); !errors.Is(err, ErrAlreadyScanning) {
		t.Fatalf("overlapping reindex returned %v, want ErrAlreadyScanning", err)
	}

	close(blocker.release)
	if err := <-done; err != nil {
		t.Fatalf("first reindex failed: %v", err)
	}

	if err := indexer.Reindex(ctx); err != nil {
		t.Fatalf("reindex after completion failed: %v", err)
	}
}
