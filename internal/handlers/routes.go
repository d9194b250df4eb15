package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers every API operation.
func RegisterRoutes(api huma.API, urls *URLHandler, logs *LogsHandler, health *HealthHandler) {
	huma.Register(api, huma.Operation{
		Method:        http.MethodPost,
		Path:          "/api/shorten",
		Summary:       "Create short URL",
		Description:   "Creates a shortened URL with an optional custom shortcode and validity period.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
	}, urls.Shorten)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL and records a click. Expired codes answer 410.",
		Tags:        []string{"URLs"},
	}, urls.Redirect)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/api/urls",
		Summary:     "List shortened URLs",
		Description: "Returns every record newest first, expired ones included, with click statistics.",
		Tags:        []string{"URLs"},
	}, urls.ListURLs)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/api/urls/{code}",
		Summary:     "Get one shortened URL",
		Description: "Returns a single record by shortcode, expired ones included.",
		Tags:        []string{"URLs"},
	}, urls.GetURL)

	huma.Register(api, huma.Operation{
		Method:        http.MethodDelete,
		Path:          "/api/urls/{code}",
		Summary:       "Delete a shortened URL",
		Description:   "Removes a record and frees its shortcode.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusNoContent,
	}, urls.DeleteURL)

	huma.Register(api, huma.Operation{
		Method:        http.MethodDelete,
		Path:          "/api/urls",
		Summary:       "Clear all shortened URLs",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusNoContent,
	}, urls.ClearURLs)

	huma.Register(api, huma.Operation{
		Method:  http.MethodGet,
		Path:    "/api/logs",
		Summary: "List buffered log entries",
		Tags:    []string{"Logs"},
	}, logs.ListLogs)

	huma.Register(api, huma.Operation{
		Method:        http.MethodDelete,
		Path:          "/api/logs",
		Summary:       "Clear the log buffer",
		Tags:          []string{"Logs"},
		DefaultStatus: http.StatusNoContent,
	}, logs.ClearLogs)

	huma.Register(api, huma.Operation{
		Method:  http.MethodGet,
		Path:    "/health",
		Summary: "Health check",
		Tags:    []string{"Health"},
	}, health.Check)
}
