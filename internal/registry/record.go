package registry

import (
	"slices"
	"time"
)

// ShortenedURL is a single shortened-URL record. The registry hands out
// copies; callers never share memory with registry state.
type ShortenedURL struct {
	ID          string        `json:"id"`
	OriginalURL string        `json:"originalUrl"`
	ShortCode   string        `json:"shortCode"`
	CreatedAt   time.Time     `json:"createdAt"`
	ExpiryDate  time.Time     `json:"expiryDate"`
	Clicks      []ClickRecord `json:"clicks"`

	// Expired is derived from ExpiryDate and recomputed on every read.
	// It is serialized for the statistics view but never trusted across
	// a reload boundary.
	Expired bool `json:"isExpired"`
}

// ClickRecord captures one resolution of a live shortcode.
type ClickRecord struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"`
	UserLocation string    `json:"userLocation"`
}

func (u *ShortenedURL) clone() *ShortenedURL {
	c := *u
	c.Clicks = slices.Clone(u.Clicks)

	return &c
}
