package handlers

import (
	"context"

	"github.com/thepatisserielane/studio/internal/apierrors"
	"github.com/thepatisserielane/studio/internal/history"
)

// HistoryHandler exposes the configuration audit trail.
type HistoryHandler struct {
	Svc *Services
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(svc *Services) *HistoryHandler {
	return &HistoryHandler{Svc: svc}
}

// HistoryRequest asks for recent configuration commits.
type HistoryRequest struct {
	Limit int `query:"limit"`
}

// HistoryResponse carries the audit trail, newest first.
type HistoryResponse struct {
	Enabled bool              `json:"enabled"`
	Commits []*history.Commit `json:"commits"`
}

// List returns recent configuration changes. With history disabled the
// response says so instead of failing.
func (h *HistoryHandler) List(ctx context.Context, req HistoryRequest) (*HistoryResponse, error) {
	if h.Svc.History == nil {
		return &HistoryResponse{Enabled: false}, nil
	}
	commits, err := h.Svc.History.History(ctx, "local.json", req.Limit)
	if err != nil {
		return nil, apierrors.InternalWithError("failed to read history", err)
	}
	return &HistoryResponse{Enabled: true, Commits: commits}, nil
}
