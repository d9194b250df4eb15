package handlers

import (
	"context"

	"github.com/shortbox/shortbox/internal/logbuf"
)

// LogsHandler exposes the diagnostic log buffer.
type LogsHandler struct {
	buffer *logbuf.Buffer
}

// NewLogsHandler creates a logs handler.
func NewLogsHandler(buffer *logbuf.Buffer) *LogsHandler {
	return &LogsHandler{buffer: buffer}
}

func (h *LogsHandler) ListLogs(_ context.Context, _ *struct{}) (*ListLogsResponse, error) {
	entries := h.buffer.Entries()
	if entries == nil {
		entries = []logbuf.Entry{}
	}

	resp := &ListLogsResponse{}
	resp.Body.Entries = entries
	resp.Body.Count = len(entries)

	return resp, nil
}

func (h *LogsHandler) ClearLogs(_ context.Context, _ *struct{}) (*struct{}, error) {
	h.buffer.Clear()

	return &struct{}{}, nil
}
