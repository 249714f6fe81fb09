package cmd

import (
	"database/sql"
	"fmt"

	"melodex/cache"
	"melodex/config"
	"melodex/core/albumart"
	"melodex/core/catalog"
	"melodex/core/collection"
	"melodex/core/metadata"
	"melodex/db"
	"melodex/logger"
	"melodex/repository"
	"melodex/storage"

	"github.com/redis/go-redis/v9"
)

// app holds the wired-up application for one command invocation.
type app struct {
	cfg         *config.Config
	database    *sql.DB
	redisClient *redis.Client
	directories repository.DirectoryRepository
	indexer     *collection.Indexer
	catalog     *catalog.Service
}

// newApp loads configuration and wires the catalog, indexer and their
// dependencies. The album art service is injected into the indexer here,
// not looked up from any global context.
func newApp() (*app, error) {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	database, err := db.ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	if err = db.InitSchema(database); err != nil {
		database.Close()
		return nil, err
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		// The browse cache is optional; run without it.
		logger.Warn("Running without Redis browse cache", logger.ErrorField(err))
		redisClient = nil
	}

	var artStore storage.ArtStorage
	if cfg.MinioEndpoint != "" {
		artStore, err = storage.NewMinioStorage(cfg)
	} else {
		artStore, err = storage.NewLocalStorage(cfg.ArtDir)
	}
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize art storage: %w", err)
	}

	directoryRepo := repository.NewDirectoryRepository(database)
	artistRepo := repository.NewArtistRepository(database)
	albumRepo := repository.NewAlbumRepository(database)
	trackRepo := repository.NewTrackRepository(database)

	artService := albumart.NewService(artStore, albumRepo)
	indexer := collection.NewIndexer(directoryRepo, artistRepo, albumRepo, trackRepo,
		metadata.NewTagLibExtractor(), artService)
	catalogService := catalog.NewService(directoryRepo, artistRepo, albumRepo, trackRepo,
		indexer, artService, cache.NewCatalogCache(redisClient))

	return &app{
		cfg:         cfg,
		database:    database,
		redisClient: redisClient,
		directories: directoryRepo,
		indexer:     indexer,
		catalog:     catalogService,
	}, nil
}

func (a *app) close() {
	if a.redisClient != nil {
		a.redisClient.Close()
	}
	a.database.Close()
}
