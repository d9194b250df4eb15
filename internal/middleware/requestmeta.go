package middleware

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shortbox/shortbox/internal/handlers"
	"github.com/shortbox/shortbox/internal/registry"
)

// RequestMeta is a middleware that captures client IP, user-agent, referrer,
// and the caller's preferred locale into the request context.
func RequestMeta(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			ClientIP:  clientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
			Referrer:  ctx.Header("Referer"),
		}

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		if locale := preferredLocale(ctx.Header("Accept-Language")); locale != "" {
			newCtx = registry.WithUserLocation(newCtx, locale)
		}

		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

// preferredLocale picks the first language tag from an Accept-Language value.
// Quality weights are ignored and a wildcard counts as no preference.
func preferredLocale(header string) string {
	if idx := strings.Index(header, ","); idx != -1 {
		header = header[:idx]
	}

	if idx := strings.Index(header, ";"); idx != -1 {
		header = header[:idx]
	}

	tag := strings.TrimSpace(header)
	if tag == "*" {
		return ""
	}

	return tag
}
