package handlers

import (
	"context"

	"github.com/shortbox/shortbox/internal/registry"
)

// URLRegistry is the registry surface the URL handlers consume.
type URLRegistry interface {
	Create(ctx context.Context, originalURL string, validityMinutes int, preferredCode string) (*registry.ShortenedURL, error)
	Resolve(ctx context.Context, code string) (*registry.ShortenedURL, error)
	RecordClick(ctx context.Context, code, source string) error
	Get(ctx context.Context, code string) (*registry.ShortenedURL, error)
	List(ctx context.Context) []*registry.ShortenedURL
	Delete(ctx context.Context, code string) bool
	Clear(ctx context.Context)
}
