package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shortbox/shortbox/internal/logbuf"
	"github.com/shortbox/shortbox/internal/metrics"
	"github.com/shortbox/shortbox/internal/registry"
)

// defaultValidityMinutes applies when a shorten request leaves the
// validity period unset.
const defaultValidityMinutes = 30

// Tags for buffer entries originating in this package.
const (
	stackTag   = "backend"
	packageTag = "handlers"
)

// URLHandler handles shortened URL operations.
type URLHandler struct {
	registry URLRegistry
	buffer   *logbuf.Buffer
	metrics  *metrics.Metrics
	baseURL  string
}

// NewURLHandler creates a URL handler.
func NewURLHandler(reg URLRegistry, buffer *logbuf.Buffer, m *metrics.Metrics, baseURL string) *URLHandler {
	return &URLHandler{
		registry: reg,
		buffer:   buffer,
		metrics:  m,
		baseURL:  baseURL,
	}
}

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata for click records and rate
// limiting.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

func (h *URLHandler) Shorten(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	minutes := req.Body.ValidityMinutes
	if minutes == 0 {
		minutes = defaultValidityMinutes
	}

	rec, err := h.registry.Create(ctx, req.Body.URL, minutes, req.Body.Shortcode)
	if err != nil {
		h.buffer.Warn(stackTag, packageTag, "shorten rejected: "+err.Error())

		return nil, mapRegistryError(err)
	}

	h.metrics.URLCreated()
	h.buffer.Info(stackTag, packageTag, "shortened url created", map[string]string{"shortCode": rec.ShortCode})

	resp := &ShortenResponse{}
	resp.Body = recordBody(rec, h.baseURL)
	resp.Headers.Location = resp.Body.ShortURL

	return resp, nil
}

func (h *URLHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	rec, err := h.registry.Resolve(ctx, req.Code)
	if err != nil {
		return nil, h.resolveFailure(req.Code, err)
	}

	source := RequestMetaFromContext(ctx).Referrer
	if source == "" {
		source = "direct"
	}

	if err := h.registry.RecordClick(ctx, req.Code, source); err == nil {
		h.metrics.Click()
	}

	h.metrics.Resolve(metrics.OutcomeOK)
	h.buffer.Info(stackTag, packageTag, "shortcode resolved", map[string]string{"shortCode": req.Code})

	resp := &RedirectResponse{
		Status: http.StatusMovedPermanently,
	}
	resp.Headers.Location = rec.OriginalURL

	return resp, nil
}

func (h *URLHandler) resolveFailure(code string, err error) error {
	if errors.Is(err, registry.ErrCodeExpired) {
		h.metrics.Resolve(metrics.OutcomeExpired)
		h.buffer.Warn(stackTag, packageTag, "expired shortcode requested", map[string]string{"shortCode": code})
	} else {
		h.metrics.Resolve(metrics.OutcomeNotFound)
		h.buffer.Warn(stackTag, packageTag, "unknown shortcode requested", map[string]string{"shortCode": code})
	}

	return mapRegistryError(err)
}

func (h *URLHandler) ListURLs(ctx context.Context, _ *struct{}) (*ListURLsResponse, error) {
	records := h.registry.List(ctx)

	resp := &ListURLsResponse{}
	resp.Body.URLs = make([]URLBody, 0, len(records))
	for _, rec := range records {
		resp.Body.URLs = append(resp.Body.URLs, recordBody(rec, h.baseURL))
	}
	resp.Body.Count = len(records)

	return resp, nil
}

func (h *URLHandler) GetURL(ctx context.Context, req *GetURLRequest) (*GetURLResponse, error) {
	rec, err := h.registry.Get(ctx, req.Code)
	if err != nil {
		return nil, mapRegistryError(err)
	}

	resp := &GetURLResponse{}
	resp.Body = recordBody(rec, h.baseURL)

	return resp, nil
}

func (h *URLHandler) DeleteURL(ctx context.Context, req *DeleteURLRequest) (*struct{}, error) {
	if !h.registry.Delete(ctx, req.Code) {
		return nil, huma.Error404NotFound("short url not found")
	}

	h.buffer.Info(stackTag, packageTag, "shortened url deleted", map[string]string{"shortCode": req.Code})

	return &struct{}{}, nil
}

func (h *URLHandler) ClearURLs(ctx context.Context, _ *struct{}) (*struct{}, error) {
	h.registry.Clear(ctx)
	h.buffer.Info(stackTag, packageTag, "all shortened urls cleared")

	return &struct{}{}, nil
}

// mapRegistryError translates registry sentinels into HTTP errors. The
// expired check runs before the not-found check because ErrCodeExpired
// matches both.
func mapRegistryError(err error) error {
	switch {
	case errors.Is(err, registry.ErrInvalidURL),
		errors.Is(err, registry.ErrCodeFormat),
		errors.Is(err, registry.ErrValidityRange):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, registry.ErrCodeTaken):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, registry.ErrCodeExpired):
		return huma.Error410Gone("short url expired")
	case errors.Is(err, registry.ErrNotFound):
		return huma.Error404NotFound("short url not found")
	default:
		return huma.Error500InternalServerError("unexpected failure")
	}
}
