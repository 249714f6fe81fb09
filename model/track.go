package model

import "time"

// Track represents one audio file in the catalog. Exactly one active
// track exists per (directory, absolute file path); rescanning the same
// path refreshes the existing row in place.
type Track struct {
	ID          string     `json:"id"`
	DirectoryID string     `json:"directoryId"`
	AlbumID     string     `json:"albumId"`
	ArtistID    string     `json:"artistId"`
	FilePath    string     `json:"-"` // absolute path to the audio file
	Title       string     `json:"title"`
	Length      int        `json:"length"`  // seconds
	Bitrate     int        `json:"bitrate"` // kbps
	Format      string     `json:"format"`  // encoding format label
	VBR         bool       `json:"vbr"`
	Year        *int       `json:"year,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"-"`

	// ArtistName and AlbumName are populated by list queries that join
	// the referenced rows.
	ArtistName string `json:"artistName,omitempty"`
	AlbumName  string `json:"albumName,omitempty"`
}
