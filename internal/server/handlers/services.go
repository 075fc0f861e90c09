// Package handlers implements the HTTP handlers for the studio API and
// the served media endpoint.
package handlers

import (
	"context"
	"log/slog"

	"github.com/thepatisserielane/studio/internal/history"
	"github.com/thepatisserielane/studio/internal/localstore"
	"github.com/thepatisserielane/studio/internal/media"
	"github.com/thepatisserielane/studio/internal/mediastore"
	"github.com/thepatisserielane/studio/internal/sitecfg"
	"github.com/thepatisserielane/studio/internal/suggest"
)

// MaxUploadBytes is the hard gate on a single uploaded file.
const MaxUploadBytes = 150 << 20

// uploadEnvelopeBytes is the slack allowed for multipart framing around
// the file, so a file of exactly MaxUploadBytes still fits in the body.
const uploadEnvelopeBytes = 1 << 20

// Services bundles the stores and domain services the handlers need.
type Services struct {
	Store    *mediastore.Store
	Local    *localstore.Store
	Site     *sitecfg.Config
	Resolver *media.Resolver
	Suggest  *suggest.Service
	History  *history.Log
}

// logHistoryFailure notes a failed audit commit. The mutation that
// triggered it already landed, so this is never surfaced to the client.
func logHistoryFailure(ctx context.Context, err error) {
	slog.WarnContext(ctx, "history commit failed", "err", err)
}
