package db

import (
	"database/sql"
	"fmt"
	"strings"

	"melodex/config"
	"melodex/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// ConnectDB opens the catalog database selected by the configuration.
// MySQL is used for shared deployments, SQLite for self-contained ones.
func ConnectDB(cfg *config.Config) (*sql.DB, error) {
	var (
		database *sql.DB
		err      error
	)

	switch cfg.DBDriver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		database, err = sql.Open("mysql", dsn)
	case "sqlite3":
		// Serialize access and keep foreign key semantics close to MySQL.
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.SQLitePath)
		database, err = sql.Open("sqlite3", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to the catalog database", logger.String("driver", cfg.DBDriver))
	return database, nil
}

// InitSchema creates the catalog tables if they don't exist. The DDL is
// written to run unchanged on MySQL and SQLite: UUID string primary keys,
// no engine-specific auto-increment.
func InitSchema(database *sql.DB) error {
	if err := createDirectoriesTable(database); err != nil {
		return err
	}
	if err := createArtistsTable(database); err != nil {
		return err
	}
	if err := createAlbumsTable(database); err != nil {
		return err
	}
	if err := createTracksTable(database); err != nil {
		return err
	}
	createIndexes(database)

	logger.Info("Catalog schema initialized")
	return nil
}

func createDirectoriesTable(database *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS directories (
		id VARCHAR(36) PRIMARY KEY,
		location VARCHAR(1024) NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		deleted_at DATETIME
	);
	`
	if _, err := database.Exec(query); err != nil {
		return fmt.Errorf("failed to create directories table: %w", err)
	}
	return nil
}

func createArtistsTable(database *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS artists (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(1000) NOT NULL,
		created_at DATETIME NOT NULL,
		deleted_at DATETIME
	);
	`
	if _, err := database.Exec(query); err != nil {
		return fmt.Errorf("failed to create artists table: %w", err)
	}
	return nil
}

func createAlbumsTable(database *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS albums (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(1000) NOT NULL,
		artist_id VARCHAR(36) NOT NULL,
		directory_id VARCHAR(36) NOT NULL,
		art_id VARCHAR(36),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME
	);
	`
	if _, err := database.Exec(query); err != nil {
		return fmt.Errorf("failed to create albums table: %w", err)
	}
	return nil
}

func createTracksTable(database *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id VARCHAR(36) PRIMARY KEY,
		directory_id VARCHAR(36) NOT NULL,
		album_id VARCHAR(36) NOT NULL,
		artist_id VARCHAR(36) NOT NULL,
		file_path VARCHAR(2048) NOT NULL,
		title VARCHAR(2000) NOT NULL,
		length INT NOT NULL DEFAULT 0,
		bitrate INT NOT NULL DEFAULT 0,
		format VARCHAR(50) NOT NULL DEFAULT '',
		vbr BOOLEAN NOT NULL DEFAULT FALSE,
		year INT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME
	);
	`
	if _, err := database.Exec(query); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	return nil
}

// createIndexes adds the lookup indexes. MySQL has no CREATE INDEX IF NOT
// EXISTS, so duplicate-index errors on a second startup are ignored.
func createIndexes(database *sql.DB) {
	statements := []string{
		`CREATE INDEX idx_artists_name ON artists (name);`,
		`CREATE INDEX idx_albums_artist ON albums (artist_id);`,
		`CREATE INDEX idx_albums_directory ON albums (directory_id);`,
		`CREATE INDEX idx_tracks_album ON tracks (album_id);`,
		`CREATE INDEX idx_tracks_directory_path ON tracks (directory_id, file_path(512));`,
	}
	for _, stmt := range statements {
		if _, err := database.Exec(stmt); err != nil {
			if isDuplicateIndexErr(err) {
				continue
			}
			// SQLite rejects the MySQL prefix-length syntax; retry without it.
			if strings.Contains(stmt, "(512)") {
				retry := strings.Replace(stmt, "file_path(512)", "file_path", 1)
				if _, err = database.Exec(retry); err == nil || isDuplicateIndexErr(err) {
					continue
				}
			}
			logger.Warn("Could not create index", logger.String("statement", stmt), logger.ErrorField(err))
		}
	}
}

func isDuplicateIndexErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key name") || strings.Contains(msg, "already exists")
}
