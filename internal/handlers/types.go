package handlers

import (
	"time"

	"github.com/shortbox/shortbox/internal/logbuf"
	"github.com/shortbox/shortbox/internal/registry"
)

// ShortenRequest is the request body for creating a shortened URL.
type ShortenRequest struct {
	Body struct {
		URL             string `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"url"`
		ValidityMinutes int    `default:"30" doc:"Minutes until the code expires" example:"30" json:"validityMinutes,omitempty"`
		Shortcode       string `doc:"Custom shortcode, 3 to 20 alphanumeric characters" example:"mylink" json:"shortcode,omitempty"`
	}
}

// ClickBody is the wire form of one recorded click.
type ClickBody struct {
	ID           string    `doc:"Click identifier" json:"id"`
	Timestamp    time.Time `doc:"When the click happened" json:"timestamp"`
	Source       string    `doc:"Referrer, or 'direct'" json:"source"`
	UserLocation string    `doc:"Coarse caller location" json:"userLocation"`
}

// URLBody is the wire form of one shortened URL record.
type URLBody struct {
	ID          string      `doc:"Record identifier" json:"id"`
	OriginalURL string      `doc:"The original URL" example:"https://example.com/very/long/path" json:"originalUrl"`
	ShortCode   string      `doc:"The short code" example:"abc123" json:"shortCode"`
	ShortURL    string      `doc:"The full short URL" example:"http://localhost:8888/abc123" json:"shortUrl"`
	CreatedAt   time.Time   `doc:"Creation time" json:"createdAt"`
	ExpiryDate  time.Time   `doc:"Expiry time" json:"expiryDate"`
	Expired     bool        `doc:"Whether the code has expired" json:"isExpired"`
	ClickCount  int         `doc:"Number of recorded clicks" json:"clickCount"`
	Clicks      []ClickBody `doc:"Recorded clicks, oldest first" json:"clicks"`
}

// ShortenResponse is the response for a successfully created short URL.
type ShortenResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body URLBody
}

// RedirectRequest is the request for resolving a short code.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// RedirectResponse carries a permanent redirect to the original URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The original URL" header:"Location"`
	}
}

// ListURLsResponse returns every record, newest first.
type ListURLsResponse struct {
	Body struct {
		URLs  []URLBody `doc:"Shortened URLs, newest first" json:"urls"`
		Count int       `doc:"Number of records" json:"count"`
	}
}

// GetURLRequest fetches one record by shortcode, expired records included.
type GetURLRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// GetURLResponse returns one record.
type GetURLResponse struct {
	Body URLBody
}

// DeleteURLRequest removes one record, freeing its shortcode.
type DeleteURLRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// ListLogsResponse returns the buffered log entries, oldest first.
type ListLogsResponse struct {
	Body struct {
		Entries []logbuf.Entry `doc:"Buffered log entries, oldest first" json:"entries"`
		Count   int            `doc:"Number of entries" json:"count"`
	}
}

func recordBody(rec *registry.ShortenedURL, baseURL string) URLBody {
	clicks := make([]ClickBody, 0, len(rec.Clicks))
	for _, c := range rec.Clicks {
		clicks = append(clicks, ClickBody{
			ID:           c.ID,
			Timestamp:    c.Timestamp,
			Source:       c.Source,
			UserLocation: c.UserLocation,
		})
	}

	return URLBody{
		ID:          rec.ID,
		OriginalURL: rec.OriginalURL,
		ShortCode:   rec.ShortCode,
		ShortURL:    baseURL + "/" + rec.ShortCode,
		CreatedAt:   rec.CreatedAt,
		ExpiryDate:  rec.ExpiryDate,
		Expired:     rec.Expired,
		ClickCount:  len(rec.Clicks),
		Clicks:      clicks,
	}
}
