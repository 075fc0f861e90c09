package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/thepatisserielane/studio/internal/apierrors"
	"github.com/thepatisserielane/studio/internal/sitecfg"
)

// TextHandler handles site copy reads and edits.
type TextHandler struct {
	Svc *Services
}

// NewTextHandler creates a new text handler.
func NewTextHandler(svc *Services) *TextHandler {
	return &TextHandler{Svc: svc}
}

// GetTextRequest asks for one copy slot.
type GetTextRequest struct {
	Key string `path:"key"`
}

// TextResponse carries the effective value for one copy slot.
type TextResponse struct {
	Key        string `json:"key"`
	Value      string `json:"value"`
	Overridden bool   `json:"overridden"`
}

// GetText returns the effective value for a copy slot.
func (h *TextHandler) GetText(ctx context.Context, req GetTextRequest) (*TextResponse, error) {
	if !sitecfg.IsTextKey(req.Key) {
		return nil, apierrors.NotFound(fmt.Sprintf("text key %q", req.Key))
	}
	_, overridden := h.Svc.Site.TextOverrides()[req.Key]
	return &TextResponse{
		Key:        req.Key,
		Value:      h.Svc.Site.Text(req.Key),
		Overridden: overridden,
	}, nil
}

// ListTextRequest asks for all copy slots.
type ListTextRequest struct{}

// ListTextResponse carries every copy slot with its effective value.
type ListTextResponse struct {
	Text      map[string]string `json:"text"`
	Overrides map[string]string `json:"overrides"`
}

// ListText returns every copy slot with defaults and overrides merged.
func (h *TextHandler) ListText(ctx context.Context, req ListTextRequest) (*ListTextResponse, error) {
	return &ListTextResponse{
		Text:      h.Svc.Site.AllText(),
		Overrides: h.Svc.Site.TextOverrides(),
	}, nil
}

// SetTextRequest overrides one copy slot.
type SetTextRequest struct {
	Key   string `path:"key"`
	Value string `json:"value"`
}

// SetText stores an override for a copy slot.
func (h *TextHandler) SetText(ctx context.Context, req SetTextRequest) (*TextResponse, error) {
	if err := h.Svc.Site.SetText(req.Key, req.Value); err != nil {
		if errors.Is(err, sitecfg.ErrUnknownTextKey) {
			return nil, apierrors.NotFound(fmt.Sprintf("text key %q", req.Key))
		}
		return nil, apierrors.InternalWithError("failed to store text override", err)
	}
	h.recordHistory(ctx, fmt.Sprintf("text: set %s", req.Key))
	return &TextResponse{Key: req.Key, Value: req.Value, Overridden: true}, nil
}

func (h *TextHandler) recordHistory(ctx context.Context, msg string) {
	if err := h.Svc.History.Record(ctx, msg, "local.json"); err != nil {
		// History is best effort; the mutation already landed.
		logHistoryFailure(ctx, err)
	}
}
