package repository

// ArtistCriteria filters artist list queries. Zero values match everything.
type ArtistCriteria struct {
	NameLike string
}

// AlbumCriteria filters album list queries. Zero values match everything.
type AlbumCriteria struct {
	ArtistID    string
	DirectoryID string
	NameLike    string
}

// TrackCriteria filters track list queries. Zero values match everything.
type TrackCriteria struct {
	ArtistID    string
	AlbumID     string
	DirectoryID string
	TitleLike   string
}
