package handlers

import "context"

// HealthChecker reports backing storage connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check operations.
type HealthHandler struct {
	storage HealthChecker
}

// NewHealthHandler creates a health handler. A nil checker reports the
// storage as unchecked, which purely in-memory slots use.
func NewHealthHandler(storage HealthChecker) *HealthHandler {
	return &HealthHandler{storage: storage}
}

// HealthResponse reports liveness and storage connectivity.
type HealthResponse struct {
	Body struct {
		Status  string `doc:"Overall status" example:"ok" json:"status"`
		Storage string `doc:"Record slot connectivity" example:"healthy" json:"storage"`
	}
}

// Check performs a health check of the service and its storage.
func (h *HealthHandler) Check(ctx context.Context, _ *struct{}) (*HealthResponse, error) {
	resp := &HealthResponse{}
	resp.Body.Status = "ok"

	if h.storage == nil {
		resp.Body.Storage = "unchecked"

		return resp, nil
	}

	if err := h.storage.Ping(ctx); err != nil {
		resp.Body.Storage = "unhealthy"
		resp.Body.Status = "degraded"
	} else {
		resp.Body.Storage = "healthy"
	}

	return resp, nil
}
