package model

import "time"

// Artist is created lazily the first time a track or album references a
// previously-unseen artist name. Names are deduplicated by exact string
// match on the extracted tag; at most one active artist exists per name.
type Artist struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"-"`
}
