package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thepatisserielane/studio/internal/apierrors"
	"github.com/thepatisserielane/studio/internal/sitecfg"
)

// CatalogHandler handles product catalog reads and edits.
type CatalogHandler struct {
	Svc *Services
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(svc *Services) *CatalogHandler {
	return &CatalogHandler{Svc: svc}
}

// GetCatalogRequest asks for the active catalog.
type GetCatalogRequest struct{}

// CatalogResponse carries the active catalog and where it came from.
type CatalogResponse struct {
	Products   []sitecfg.Product `json:"products"`
	Overridden bool              `json:"overridden"`
	Recovered  bool              `json:"recovered,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

func catalogResponse(res sitecfg.CatalogResult) *CatalogResponse {
	return &CatalogResponse{
		Products:   res.Products,
		Overridden: res.Overridden,
		Recovered:  res.Recovered,
		Reason:     res.Reason,
	}
}

// GetCatalog returns the active product catalog.
func (h *CatalogHandler) GetCatalog(ctx context.Context, req GetCatalogRequest) (*CatalogResponse, error) {
	return catalogResponse(h.Svc.Site.ActiveCatalog()), nil
}

// ReplaceCatalogRequest replaces the whole catalog.
type ReplaceCatalogRequest struct {
	Products []sitecfg.Product `json:"products"`
}

// ReplaceCatalog validates and stores a full replacement catalog.
func (h *CatalogHandler) ReplaceCatalog(ctx context.Context, req ReplaceCatalogRequest) (*CatalogResponse, error) {
	if err := h.Svc.Site.ReplaceAll(req.Products); err != nil {
		return nil, apierrors.BadRequest(err.Error())
	}
	h.recordHistory(ctx, fmt.Sprintf("catalog: replace with %d products", len(req.Products)))
	return catalogResponse(h.Svc.Site.ActiveCatalog()), nil
}

// AddProductRequest asks for a fresh placeholder product.
type AddProductRequest struct{}

// AddProductResponse returns the created product and the new catalog.
type AddProductResponse struct {
	Product sitecfg.Product   `json:"product"`
	Catalog []sitecfg.Product `json:"catalog"`
}

// AddProduct appends a placeholder product the owner edits afterwards.
func (h *CatalogHandler) AddProduct(ctx context.Context, req AddProductRequest) (*AddProductResponse, error) {
	p, err := h.Svc.Site.AddNew()
	if err != nil {
		return nil, apierrors.InternalWithError("failed to add product", err)
	}
	h.recordHistory(ctx, fmt.Sprintf("catalog: add %s", p.ID))
	return &AddProductResponse{
		Product: p,
		Catalog: h.Svc.Site.ActiveCatalog().Products,
	}, nil
}

// RemoveProductRequest removes one product by ID.
type RemoveProductRequest struct {
	ID string `path:"id"`
}

// RemoveProduct removes a product from the catalog.
func (h *CatalogHandler) RemoveProduct(ctx context.Context, req RemoveProductRequest) (*CatalogResponse, error) {
	found := false
	for _, p := range h.Svc.Site.ActiveCatalog().Products {
		if p.ID == req.ID {
			found = true
			break
		}
	}
	if !found {
		return nil, apierrors.NewAPIError(http.StatusNotFound, apierrors.ErrProductNotFound,
			fmt.Sprintf("product %q not found", req.ID))
	}
	if err := h.Svc.Site.Remove(req.ID); err != nil {
		return nil, apierrors.InternalWithError("failed to remove product", err)
	}
	h.recordHistory(ctx, fmt.Sprintf("catalog: remove %s", req.ID))
	return catalogResponse(h.Svc.Site.ActiveCatalog()), nil
}

// ResetRequest wipes all configuration overrides.
type ResetRequest struct {
	Confirm bool `query:"confirm"`
}

// ResetResponse confirms the wipe and tells the console to reload.
type ResetResponse struct {
	Reset  bool `json:"reset"`
	Reload bool `json:"reload"`
}

// Reset clears the catalog override and every text override in one batch.
// Stored media is left alone; it is removed per key via the assets API.
func (h *CatalogHandler) Reset(ctx context.Context, req ResetRequest) (*ResetResponse, error) {
	if !req.Confirm {
		return nil, apierrors.ConfirmationRequired("reset")
	}
	if err := h.Svc.Site.ResetEverything(); err != nil {
		return nil, apierrors.InternalWithError("failed to reset configuration", err)
	}
	h.recordHistory(ctx, "config: factory reset")
	return &ResetResponse{Reset: true, Reload: true}, nil
}

func (h *CatalogHandler) recordHistory(ctx context.Context, msg string) {
	if err := h.Svc.History.Record(ctx, msg, "local.json"); err != nil {
		logHistoryFailure(ctx, err)
	}
}
