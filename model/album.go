package model

import "time"

// Album belongs to the directory it was found under and references its
// album artist. ArtID points at an imported album art asset, if any.
type Album struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ArtistID    string     `json:"artistId"`
	DirectoryID string     `json:"directoryId"`
	ArtID       string     `json:"artId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"-"`

	// ArtistName is populated by list queries that join the artist row.
	ArtistName string `json:"artistName,omitempty"`
}
