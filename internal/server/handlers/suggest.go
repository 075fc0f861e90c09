package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/thepatisserielane/studio/internal/apierrors"
	"github.com/thepatisserielane/studio/internal/suggest"
)

// maxInspirationBytes bounds an inspiration photo upload.
const maxInspirationBytes = 20 << 20

// SuggestHandler handles the pastry consultant endpoints.
type SuggestHandler struct {
	Svc *Services
}

// NewSuggestHandler creates a new suggest handler.
func NewSuggestHandler(svc *Services) *SuggestHandler {
	return &SuggestHandler{Svc: svc}
}

// IdeasRequest describes the shopper's event.
type IdeasRequest struct {
	Event string `json:"event"`
}

// IdeasResponse carries the consultant's reply.
type IdeasResponse struct {
	Suggestion string `json:"suggestion"`
}

// Ideas suggests cake concepts for an event.
func (h *SuggestHandler) Ideas(ctx context.Context, req IdeasRequest) (*IdeasResponse, error) {
	if req.Event == "" {
		return nil, apierrors.MissingField("event")
	}
	text, err := h.Svc.Suggest.CakeIdeas(ctx, req.Event)
	if err != nil {
		if errors.Is(err, suggest.ErrDisabled) {
			return nil, apierrors.NewAPIError(http.StatusServiceUnavailable, apierrors.ErrInternal,
				"suggestions are not configured")
		}
		return nil, apierrors.InternalWithError("suggestion failed", err)
	}
	return &IdeasResponse{Suggestion: text}, nil
}

// Inspiration analyzes an uploaded inspiration photo. This is a raw
// http.HandlerFunc because it handles multipart forms.
func (h *SuggestHandler) Inspiration(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxInspirationBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIError(w, apierrors.PayloadTooLarge(maxInspirationBytes))
			return
		}
		writeAPIError(w, apierrors.BadRequest("failed to parse multipart form"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeAPIError(w, apierrors.MissingField("image"))
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.ErrorContext(r.Context(), "Failed to close uploaded image", "err", err)
		}
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		writeAPIError(w, apierrors.InternalWithError("failed to read image", err))
		return
	}

	text, err := h.Svc.Suggest.AnalyzeInspiration(r.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, suggest.ErrDisabled) {
			writeAPIError(w, apierrors.NewAPIError(http.StatusServiceUnavailable, apierrors.ErrInternal,
				"suggestions are not configured"))
			return
		}
		writeAPIError(w, apierrors.InternalWithError("analysis failed", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(r.Context(), w, IdeasResponse{Suggestion: text})
}
