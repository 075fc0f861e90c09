// Package media resolves logical asset keys to displayable sources.
//
// Every branded media slot on the storefront goes through the same fixed
// fallback chain: binary media store, then the legacy flat store, then the
// remote default URL, then an explicit "no media" state. Store failures
// degrade to the next fallback instead of surfacing; a shopper never sees
// a broken element because the owner's browser storage misbehaved.
package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/thepatisserielane/studio/internal/localstore"
	"github.com/thepatisserielane/studio/internal/mediastore"
)

// Origin names the fallback level a resolution came from.
type Origin string

const (
	// OriginStore means the binary media store held a value for the key.
	OriginStore Origin = "store"
	// OriginLegacy means the flat legacy store held a value for the key.
	OriginLegacy Origin = "legacy"
	// OriginRemote means the provided remote default URL was used.
	OriginRemote Origin = "remote"
	// OriginNone means nothing resolved; render the "no media" placeholder.
	OriginNone Origin = "none"
)

// Kind is the rendering treatment for a resolved source.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// videoKeyPrefix is the reserved asset-key namespace for video slots.
const videoKeyPrefix = "reel_"

// Resolution is the outcome of resolving one asset slot.
type Resolution struct {
	// Source is the display source: a served media URL for stored blobs, a
	// raw string value for stored text, or the remote default. Empty when
	// Origin is OriginNone.
	Source string
	Kind   Kind
	Origin Origin
}

// Resolver picks display sources for asset keys.
type Resolver struct {
	store  *mediastore.Store
	legacy *localstore.Store
}

// NewResolver returns a resolver backed by the binary store with the flat
// store as legacy fallback.
func NewResolver(store *mediastore.Store, legacy *localstore.Store) *Resolver {
	return &Resolver{store: store, legacy: legacy}
}

// ServedPath returns the URL path that streams the stored blob for key.
// It is the server-side analogue of an object URL: the payload stays in
// the store and consumers reference it indirectly.
func ServedPath(key string) string {
	return "/media/" + url.PathEscape(key)
}

// Resolve applies the fallback order and returns the first hit.
//
// Read errors from the binary store are logged and demoted to the next
// fallback; Resolve itself never fails.
func (r *Resolver) Resolve(ctx context.Context, assetKey, fallbackSrc string) Resolution {
	if assetKey != "" {
		v, ok, err := r.store.Get(ctx, assetKey)
		if err != nil {
			slog.DebugContext(ctx, "media store read failed, falling back", "key", assetKey, "err", err)
		} else if ok {
			if v.Kind == mediastore.KindBlob {
				return Resolution{
					Source: ServedPath(assetKey),
					Kind:   kindOf(assetKey, v.MIME, ""),
					Origin: OriginStore,
				}
			}
			return Resolution{
				Source: v.Text,
				Kind:   kindOf(assetKey, v.MIME, v.Text),
				Origin: OriginStore,
			}
		}
		if val, ok := r.legacy.Get(assetKey); ok {
			return Resolution{Source: val, Kind: kindOf(assetKey, "", val), Origin: OriginLegacy}
		}
	}
	if fallbackSrc != "" {
		return Resolution{Source: fallbackSrc, Kind: kindOf(assetKey, "", fallbackSrc), Origin: OriginRemote}
	}
	return Resolution{Origin: OriginNone, Kind: KindImage}
}

// kindOf decides the rendering treatment: video when the key lives in the
// reserved video namespace, the stored metadata says video, or the source
// self-describes as one. Everything else renders as a still image.
func kindOf(assetKey, mimeType, source string) Kind {
	if strings.HasPrefix(assetKey, videoKeyPrefix) {
		return KindVideo
	}
	if strings.HasPrefix(mimeType, "video/") {
		return KindVideo
	}
	if strings.HasPrefix(source, "data:video") || strings.Contains(source, "video/") {
		return KindVideo
	}
	return KindImage
}

// Lease is an open handle on a stored blob: the scoped resource backing
// one binary resolution. Exactly one is acquired per successful OpenBlob
// and it must be released when the consumer is done; Release is idempotent
// so teardown paths cannot double-release.
type Lease struct {
	MIME string
	Size int64

	rc      io.ReadCloser
	release sync.Once
	err     error
}

// Read implements io.Reader over the leased payload.
func (l *Lease) Read(p []byte) (int, error) {
	return l.rc.Read(p)
}

// Release closes the underlying handle. Safe to call more than once; only
// the first call does work.
func (l *Lease) Release() error {
	l.release.Do(func() {
		l.err = l.rc.Close()
	})
	return l.err
}

// ErrNotBlob is returned by OpenBlob when the key resolves to something
// other than stored binary data.
var ErrNotBlob = errors.New("asset is not stored binary data")

// OpenBlob acquires a lease on the blob stored under key.
//
// Returns ok=false with a nil lease when the key has no stored value.
func (r *Resolver) OpenBlob(ctx context.Context, key string) (*Lease, bool, error) {
	v, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	if v.Kind != mediastore.KindBlob {
		return nil, true, ErrNotBlob
	}
	rc, err := v.Reader()
	if err != nil {
		return nil, true, err
	}
	return &Lease{MIME: v.MIME, Size: v.Size, rc: rc}, true, nil
}
