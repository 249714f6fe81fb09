package model

import "time"

// Directory is a root of the on-disk music collection. Removing a
// directory cascades to its albums and their tracks.
type Directory struct {
	ID        string     `json:"id"`
	Location  string     `json:"location"` // absolute filesystem path
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"-"`
}
