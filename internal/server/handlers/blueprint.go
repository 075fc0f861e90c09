package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/thepatisserielane/studio/internal/apierrors"
	"github.com/thepatisserielane/studio/internal/sitecfg"
)

// maxBlueprintBytes bounds a blueprint upload. Catalogs are small; a
// megabyte-scale file is already suspect.
const maxBlueprintBytes = 8 << 20

// BlueprintHandler handles blueprint export, import and schema requests.
type BlueprintHandler struct {
	Svc *Services
}

// NewBlueprintHandler creates a new blueprint handler.
func NewBlueprintHandler(svc *Services) *BlueprintHandler {
	return &BlueprintHandler{Svc: svc}
}

// Export streams the current configuration as a downloadable JSON file.
// This is a raw http.HandlerFunc because it sets download headers.
func (h *BlueprintHandler) Export(w http.ResponseWriter, r *http.Request) {
	bp := h.Svc.Site.Export()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sitecfg.ExportFilename))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bp); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write blueprint", "err", err)
	}
}

// Import applies an uploaded blueprint. This is a raw http.HandlerFunc
// because the body is the file itself, not a JSON envelope.
func (h *BlueprintHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBlueprintBytes+1))
	if err != nil {
		writeAPIError(w, apierrors.BadRequest("failed to read blueprint body"))
		return
	}
	if len(data) > maxBlueprintBytes {
		writeAPIError(w, apierrors.PayloadTooLarge(maxBlueprintBytes))
		return
	}
	if err := h.Svc.Site.Import(data); err != nil {
		if errors.Is(err, sitecfg.ErrMalformedBlueprint) {
			writeAPIError(w, apierrors.NewAPIError(http.StatusBadRequest, apierrors.ErrMalformedBlueprint, err.Error()))
			return
		}
		writeAPIError(w, apierrors.InternalWithError("failed to apply blueprint", err))
		return
	}
	if err := h.Svc.History.Record(r.Context(), "config: import blueprint", "local.json"); err != nil {
		logHistoryFailure(r.Context(), err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"imported": true, "reload": true})
}

// SchemaRequest asks for the blueprint JSON schema.
type SchemaRequest struct{}

// SchemaResponse carries the generated JSON schema.
type SchemaResponse struct {
	Schema json.RawMessage `json:"schema"`
}

// Schema returns the JSON schema a valid blueprint conforms to.
func (h *BlueprintHandler) Schema(ctx context.Context, req SchemaRequest) (*SchemaResponse, error) {
	schema, err := sitecfg.BlueprintSchema()
	if err != nil {
		return nil, apierrors.InternalWithError("failed to generate schema", err)
	}
	return &SchemaResponse{Schema: schema}, nil
}
