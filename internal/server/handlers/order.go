package handlers

import (
	"context"

	"github.com/thepatisserielane/studio/internal/apierrors"
	"github.com/thepatisserielane/studio/internal/order"
)

// OrderHandler drafts WhatsApp orders from the order form.
type OrderHandler struct{}

// NewOrderHandler creates a new order handler.
func NewOrderHandler() *OrderHandler {
	return &OrderHandler{}
}

// DraftRequest is the submitted order form.
type DraftRequest struct {
	order.Form
}

// DraftResponse carries the prefilled chat handoff.
type DraftResponse struct {
	Message string `json:"message"`
	Link    string `json:"link"`
}

// Draft validates the form and returns the WhatsApp handoff link.
func (h *OrderHandler) Draft(ctx context.Context, req DraftRequest) (*DraftResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apierrors.BadRequest(err.Error())
	}
	return &DraftResponse{
		Message: req.DraftMessage(),
		Link:    req.DeepLink(),
	}, nil
}
