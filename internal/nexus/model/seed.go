package model

import "time"

// Seed is a piece of content with a version history. AuthorAddress is the
// wallet recognized as the author of record; nil means the seed was created
// without wallet attribution and cannot be updated or attached.
type Seed struct {
	ID            int64     `json:"seed_id"`
	AuthorAddress *string   `json:"author_address"`
	Content       string    `json:"content"`
	LatestVersion int       `json:"latest_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SeedVersion is one historical revision of a seed's content.
type SeedVersion struct {
	SeedID    int64     `json:"seed_id"`
	Version   int       `json:"version"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthoredBy reports whether address is the seed's author of record.
func (s *Seed) AuthoredBy(address string) bool {
	return s.AuthorAddress != nil && *s.AuthorAddress == address
}
