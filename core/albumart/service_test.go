package albumart

import (
	"bytes"
	"context"
	"database/sql"
	"image/color"
	"path/filepath"
	"testing"

	"melodex/db"
	"melodex/model"
	"melodex/repository"
	"melodex/storage"

	"github.com/disintegration/imaging"
	_ "github.com/mattn/go-sqlite3"
)

type serviceEnv struct {
	albums  repository.AlbumRepository
	service *Service
	artist  *model.Artist
	dir     *model.Directory
}

func newServiceEnv(t *testing.T) *serviceEnv {
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

	ctx := context.Background()
	directories := repository.NewDirectoryRepository(database)
	artists := repository.NewArtistRepository(database)
	albums := repository.NewAlbumRepository(database)

	dir := &model.Directory{Location: t.TempDir(), Enabled: true}
	if err := directories.Create(ctx, dir); err != nil {
		t.Fatal(err)
	}
	artist := &model.Artist{Name: "A"}
	if err := artists.Create(ctx, artist); err != nil {
		t.Fatal(err)
	}

	return &serviceEnv{
		albums:  albums,
		service: NewService(store, albums),
		artist:  artist,
		dir:     dir,
	}
}

// writeCover writes a small JPEG fixture and returns its path.
func writeCover(t *testing.T, c color.NRGBA) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cover.jpg")
	if err := imaging.Save(imaging.New(50, 30, c), path); err != nil {
		t.Fatalf("failed to write cover fixture: %v", err)
	}
	return path
}

// createAlbum inserts an album for the env's artist, optionally with art.
func (env *serviceEnv) createAlbum(t *testing.T, name, artID string) *model.Album {
	t.Helper()
	album := &model.Album{Name: name, ArtistID: env.artist.ID, DirectoryID: env.dir.ID, ArtID: artID}
	if err := env.albums.Create(context.Background(), album); err != nil {
		t.Fatal(err)
	}
	return album
}

func TestImportAlbumArtStoresBothRenditions(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	artID, err := env.service.ImportAlbumArt(ctx, writeCover(t, color.NRGBA{R: 220, A: 255}))
	if err != nil {
		t.Fatalf("ImportAlbumArt failed: %v", err)
	}
	if artID == "" {
		t.Fatal("ImportAlbumArt returned an empty art id")
	}

	album := env.createAlbum(t, "X", artID)
	for _, size := range []Size{SizeSmall, SizeLarge} {
		data, err := env.service.GetAlbumArt(ctx, album.ID, size)
		if err != nil {
			t.Fatalf("GetAlbumArt(%d) failed: %v", size, err)
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("rendition %d is not decodable: %v", size, err)
		}
		if img.Bounds().Dx() != int(size) || img.Bounds().Dy() != int(size) {
			t.Errorf("rendition %d is %dx%d, want square of %d",
				size, img.Bounds().Dx(), img.Bounds().Dy(), size)
		}
	}
}

func TestImportAlbumArtRejectsNonImage(t *testing.T) {
	env := newServiceEnv(t)

	if _, err := env.service.ImportAlbumArt(context.Background(), "/nonexistent/cover.jpg"); err == nil {
		t.Fatal("expected an error for a missing cover file")
	}
}

func TestGetAlbumArtWithoutArt(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	album := env.createAlbum(t, "Bare", "")
	data, err := env.service.GetAlbumArt(ctx, album.ID, SizeSmall)
	if err != nil {
		t.Fatalf("GetAlbumArt failed: %v", err)
	}
	if data != nil {
		t.Error("got art data for an album without art")
	}

	data, err = env.service.GetAlbumArt(ctx, "no-such-album", SizeSmall)
	if err != nil || data != nil {
		t.Errorf("missing album: data=%v err=%v, want nil, nil", data, err)
	}
}

func TestGetArtistArtComposesMosaic(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	colors := []color.NRGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
	}
	for i, c := range colors {
		artID, err := env.service.ImportAlbumArt(ctx, writeCover(t, c))
		if err != nil {
			t.Fatalf("ImportAlbumArt failed: %v", err)
		}
		env.createAlbum(t, "Album "+string(rune('A'+i)), artID)
	}
	env.createAlbum(t, "Bare", "") // no art, must not break the mosaic

	data, err := env.service.GetArtistArt(ctx, env.artist.ID, SizeSmall)
	if err != nil {
		t.Fatalf("GetArtistArt failed: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("mosaic is not decodable: %v", err)
	}
	if img.Bounds().Dx() != int(SizeSmall) || img.Bounds().Dy() != int(SizeSmall) {
		t.Errorf("mosaic is %dx%d, want square of %d", img.Bounds().Dx(), img.Bounds().Dy(), SizeSmall)
	}
}

func TestGetArtistArtWithoutAnyArt(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	env.createAlbum(t, "Bare", "")
	data, err := env.service.GetArtistArt(ctx, env.artist.ID, SizeSmall)
	if err != nil {
		t.Fatalf("GetArtistArt failed: %v", err)
	}
	if data != nil {
		t.Error("got mosaic data for an artist with no album art")
	}
}
