// Package mediastore implements the versioned key→(blob|text) store that
// holds uploaded media overrides.
//
// On disk the store is a directory (studio.db) containing a manifest with
// the format version, a JSONL index of one record per key, and a blobs
// directory of content-addressed payload files. The index file is rewritten
// through a temp file and rename on every mutation; the rename is the
// commit point, so a Put that returns nil has durably replaced the previous
// value and a Put that returns an error has left it untouched.
//
// Opening is lazy and memoized: the first operation performs the open,
// concurrent first operations share a single in-flight attempt, and a
// failed open is not memoized so the next operation retries.
package mediastore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	storeDirName  = "studio.db"
	manifestName  = "manifest.json"
	indexName     = "index.jsonl"
	blobsDirName  = "blobs"
	formatVersion = 1
)

// ErrStoreUnavailable reports that the store directory could not be opened.
// Operations fail fast with this error until a later open attempt succeeds.
var ErrStoreUnavailable = errors.New("media store unavailable")

// Kind discriminates the two value shapes a key can hold.
type Kind string

const (
	// KindBlob is raw uploaded binary data (image or video file).
	KindBlob Kind = "blob"
	// KindText is a string value, typically a URL or embedded data URL.
	KindText Kind = "text"
)

// Value is a stored asset value returned by [Store.Get].
type Value struct {
	Kind Kind
	// Text holds the value for KindText entries.
	Text string
	// MIME is the content type recorded at upload time, may be empty.
	MIME string
	// Size is the payload size in bytes (blob entries only).
	Size int64

	ref   blobRef
	blobs *blobDir
}

// Reader opens the underlying blob for streaming.
//
// Only valid for KindBlob values. The caller owns the returned ReadCloser;
// it is the scoped resource whose lifetime the resolver manages.
func (v Value) Reader() (io.ReadCloser, error) {
	if v.Kind != KindBlob {
		return nil, errors.New("value is not a blob")
	}
	return v.blobs.open(v.ref)
}

type record struct {
	Key     string    `json:"key"`
	Kind    Kind      `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Ref     blobRef   `json:"ref,omitempty"`
	MIME    string    `json:"mime,omitempty"`
	Size    int64     `json:"size,omitempty"`
	Updated time.Time `json:"updated"`
}

type manifest struct {
	Version int `json:"version"`
}

// db is an open store handle: the loaded index plus the blob directory.
type db struct {
	dir   string
	blobs *blobDir

	mu      sync.Mutex // serializes index transactions
	records map[string]record
}

// Store is the media override store rooted in a data directory.
//
// The zero value is not usable; create with [New]. All methods are safe for
// concurrent use.
type Store struct {
	dataDir string
	quota   int64 // bytes, 0 disables the estimator

	mu    sync.Mutex
	db    *db
	group singleflight.Group
	opens int // open attempts, observed by tests
}

// New returns a store rooted at dataDir. quotaMB caps the usage gauge;
// 0 makes the estimator report unavailable. Nothing is opened until the
// first operation.
func New(dataDir string, quotaMB int) *Store {
	return &Store{dataDir: dataDir, quota: int64(quotaMB) << 20}
}

// open returns the memoized handle, opening the store on first use.
func (s *Store) open(ctx context.Context) (*db, error) {
	s.mu.Lock()
	d := s.db
	s.mu.Unlock()
	if d != nil {
		return d, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err, _ := s.group.Do("open", func() (any, error) {
		s.mu.Lock()
		s.opens++
		s.mu.Unlock()
		d, err := openDB(filepath.Join(s.dataDir, storeDirName))
		if err != nil {
			// Not memoized: the next operation retries.
			return nil, err
		}
		s.mu.Lock()
		s.db = d
		s.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return v.(*db), nil
}

func openDB(dir string) (*db, error) {
	if err := os.MkdirAll(filepath.Join(dir, blobsDirName), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := checkManifest(dir); err != nil {
		return nil, err
	}
	records, err := loadIndex(filepath.Join(dir, indexName))
	if err != nil {
		return nil, err
	}
	return &db{
		dir:     dir,
		blobs:   &blobDir{dir: filepath.Join(dir, blobsDirName)},
		records: records,
	}, nil
}

// checkManifest creates the manifest on first use and rejects directories
// written by a newer format version.
func checkManifest(dir string) error {
	path := filepath.Join(dir, manifestName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data, err = json.Marshal(manifest{Version: formatVersion})
		if err != nil {
			return fmt.Errorf("failed to marshal manifest: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Version > formatVersion {
		return fmt.Errorf("store format version %d is newer than supported version %d", m.Version, formatVersion)
	}
	return nil
}

func loadIndex(path string) (map[string]record, error) {
	records := map[string]record{}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("failed to parse index record: %w", err)
		}
		records[r.Key] = r
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	return records, nil
}

// PutBlob streams r into the store under key, replacing any previous value.
// It returns the stored size and resolves only once the index rewrite has
// committed. mimeType may be empty.
func (s *Store) PutBlob(ctx context.Context, key string, r io.Reader, mimeType string) (int64, error) {
	if key == "" {
		return 0, errors.New("key cannot be empty")
	}
	d, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	w, err := d.blobs.newWriter()
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	size, err := io.Copy(w, r)
	if err != nil {
		return 0, errors.Join(fmt.Errorf("put %s: %w", key, err), w.abort())
	}
	ref, err := w.close()
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	rec := record{Key: key, Kind: KindBlob, Ref: ref, MIME: mimeType, Size: size, Updated: time.Now().UTC()}
	if err := d.commit(key, &rec); err != nil {
		// The index still points at the old value; drop the orphan payload.
		_ = d.blobs.remove(ref)
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	return size, nil
}

// PutText stores a string value under key, replacing any previous value.
func (s *Store) PutText(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	d, err := s.open(ctx)
	if err != nil {
		return err
	}
	rec := record{Key: key, Kind: KindText, Text: value, Size: int64(len(value)), Updated: time.Now().UTC()}
	if err := d.commit(key, &rec); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key. A missing key reports ok=false
// with a nil error; errors are reserved for store or read failures.
func (s *Store) Get(ctx context.Context, key string) (Value, bool, error) {
	d, err := s.open(ctx)
	if err != nil {
		return Value{}, false, err
	}
	d.mu.Lock()
	rec, ok := d.records[key]
	d.mu.Unlock()
	if !ok {
		return Value{}, false, nil
	}
	return Value{
		Kind:  rec.Kind,
		Text:  rec.Text,
		MIME:  rec.MIME,
		Size:  rec.Size,
		ref:   rec.Ref,
		blobs: d.blobs,
	}, true, nil
}

// Delete removes the value stored under key. Absence of the key is not an
// error. The payload file is removed once no record references it.
func (s *Store) Delete(ctx context.Context, key string) error {
	d, err := s.open(ctx)
	if err != nil {
		return err
	}
	if err := d.commit(key, nil); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys returns all stored keys with the given prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	d, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var keys []string
	for k := range d.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// commit applies one upsert (rec != nil) or removal (rec == nil) for key
// and persists the index. The in-memory map only changes after the rename
// succeeds. Removing a payload file orphaned by the change happens after
// the commit point, so its failure only leaks the file and is never
// returned as an error.
func (d *db) commit(key string, rec *record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, hadPrev := d.records[key]
	next := make(map[string]record, len(d.records)+1)
	for k, r := range d.records {
		next[k] = r
	}
	if rec != nil {
		next[key] = *rec
	} else {
		delete(next, key)
	}

	if err := d.writeIndex(next); err != nil {
		return err
	}
	d.records = next

	if hadPrev && prev.Kind == KindBlob {
		replaced := rec == nil || rec.Ref != prev.Ref
		if replaced && !refInUse(next, prev.Ref) {
			if err := d.blobs.remove(prev.Ref); err != nil {
				slog.Warn("Failed to remove replaced payload", "err", err, "key", key, "ref", string(prev.Ref))
			}
		}
	}
	return nil
}

func refInUse(records map[string]record, ref blobRef) bool {
	for _, r := range records {
		if r.Kind == KindBlob && r.Ref == ref {
			return true
		}
	}
	return false
}

func (d *db) writeIndex(records map[string]record) error {
	tmp, err := os.CreateTemp(d.dir, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create index temp file: %w", err)
	}
	w := bufio.NewWriter(tmp)
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("failed to marshal index record: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("failed to write index record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to flush index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close index: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, indexName)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}
