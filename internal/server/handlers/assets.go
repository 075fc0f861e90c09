// Handles media upload, replacement, removal and serving.

package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thepatisserielane/studio/internal/apierrors"
	"github.com/thepatisserielane/studio/internal/media"
	"github.com/thepatisserielane/studio/internal/mediastore"
)

func init() {
	// Register MIME types not in the standard library.
	for _, pair := range [][2]string{
		{".avif", "image/avif"},
		{".heic", "image/heic"},
		{".webm", "video/webm"},
	} {
		if err := mime.AddExtensionType(pair[0], pair[1]); err != nil {
			panic(err)
		}
	}
}

// AssetHandler handles media upload and retrieval.
type AssetHandler struct {
	Svc *Services
}

// NewAssetHandler creates a new asset handler.
func NewAssetHandler(svc *Services) *AssetHandler {
	return &AssetHandler{Svc: svc}
}

// Upload stores or replaces the media under an asset key
// (multipart/form-data, field "file"). Replacing is the same operation as
// storing; the previous payload is unlinked once the new one commits.
// This is a raw http.HandlerFunc because it handles multipart forms.
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeAPIError(w, apierrors.MissingField("key"))
		return
	}

	// The size gate applies to the file itself, so the body limit leaves
	// room for the multipart envelope around it.
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+uploadEnvelopeBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIError(w, apierrors.PayloadTooLarge(MaxUploadBytes))
			return
		}
		writeAPIError(w, apierrors.BadRequest("failed to parse multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIError(w, apierrors.MissingField("file"))
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.ErrorContext(r.Context(), "Failed to close uploaded file", "err", err)
		}
	}()
	if header.Size > MaxUploadBytes {
		writeAPIError(w, apierrors.PayloadTooLarge(MaxUploadBytes))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
			mimeType = byExt
		}
	}

	size, err := h.Svc.Store.PutBlob(r.Context(), key, file, mimeType)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(r.Context(), w, map[string]any{
		"key":  key,
		"size": size,
		"mime": mimeType,
		"url":  media.ServedPath(key),
	})
}

// DeleteRequest removes stored media for a key. The confirm flag guards
// against stray clicks in the console.
type DeleteRequest struct {
	Key     string `path:"key"`
	Confirm bool   `query:"confirm"`
}

// DeleteResponse confirms the removal.
type DeleteResponse struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

// Delete removes the stored media for a key. Deleting an absent key is
// not an error; the outcome is the same.
func (h *AssetHandler) Delete(ctx context.Context, req DeleteRequest) (*DeleteResponse, error) {
	if !req.Confirm {
		return nil, apierrors.ConfirmationRequired("delete")
	}
	if err := h.Svc.Store.Delete(ctx, req.Key); err != nil {
		return nil, storeError(err)
	}
	// Clear the flat-store fallback too so the key fully disappears.
	if h.Svc.Local != nil {
		if err := h.Svc.Local.Remove(req.Key); err != nil {
			slog.WarnContext(ctx, "Failed to remove fallback value", "err", err, "key", req.Key)
		}
	}
	return &DeleteResponse{Key: req.Key, Deleted: true}, nil
}

// ListRequest lists stored asset keys, optionally by prefix.
type ListRequest struct {
	Prefix string `query:"prefix"`
}

// ListResponse carries the stored keys.
type ListResponse struct {
	Keys []string `json:"keys"`
}

// List returns stored asset keys in sorted order.
func (h *AssetHandler) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	keys, err := h.Svc.Store.Keys(ctx, req.Prefix)
	if err != nil {
		return nil, storeError(err)
	}
	return &ListResponse{Keys: keys}, nil
}

// EstimateRequest asks for storage usage.
type EstimateRequest struct{}

// EstimateResponse reports rounded storage usage against the quota.
type EstimateResponse struct {
	Available bool                 `json:"available"`
	Estimate  *mediastore.Estimate `json:"estimate,omitempty"`
}

// Estimate reports how much of the storage quota is used. When usage
// cannot be measured the response says so instead of guessing.
func (h *AssetHandler) Estimate(ctx context.Context, req EstimateRequest) (*EstimateResponse, error) {
	est, ok := h.Svc.Store.Estimate()
	if !ok {
		return &EstimateResponse{Available: false}, nil
	}
	return &EstimateResponse{Available: true, Estimate: &est}, nil
}

// Serve streams the stored payload for an asset key. This is a raw
// http.HandlerFunc for direct file serving.
func (h *AssetHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	lease, ok, err := h.Svc.Resolver.OpenBlob(r.Context(), key)
	if err != nil {
		if errors.Is(err, media.ErrNotBlob) {
			// Text entries hold a URL rather than a payload; send the
			// client there instead of streaming.
			val, found, getErr := h.Svc.Store.Get(r.Context(), key)
			if getErr == nil && found && (strings.HasPrefix(val.Text, "http://") || strings.HasPrefix(val.Text, "https://")) {
				http.Redirect(w, r, val.Text, http.StatusFound)
				return
			}
			writeAPIError(w, apierrors.AssetNotFound(key))
			return
		}
		writeStoreError(w, err)
		return
	}
	if !ok {
		writeAPIError(w, apierrors.AssetNotFound(key))
		return
	}
	defer func() {
		if err := lease.Release(); err != nil {
			slog.ErrorContext(r.Context(), "Failed to release media lease", "err", err, "key", key)
		}
	}()

	mimeType := lease.MIME
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(lease.Size, 10))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, lease); err != nil {
		slog.ErrorContext(r.Context(), "Failed to stream media", "err", err, "key", key)
	}
}

// storeError maps store failures onto API errors.
func storeError(err error) *apierrors.APIError {
	if errors.Is(err, mediastore.ErrStoreUnavailable) {
		return apierrors.StorageUnavailable(err)
	}
	return apierrors.InternalWithError("storage operation failed", err)
}

func writeStoreError(w http.ResponseWriter, err error) {
	writeAPIError(w, storeError(err))
}
