// Content-addressed blob files backing the media store.

package mediastore

import (
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// base32Enc uses the base32 "Extended Hex" alphabet (0-9A-V) which is
// ASCII-sorted and safe on case-insensitive filesystems.
var base32Enc = base32.HexEncoding.WithPadding(base32.NoPadding)

// blobRef is a content-addressed reference in format "sha256:<BASE32>-<size>".
type blobRef string

const blobRefPrefix = "sha256:"

var errInvalidBlobRef = errors.New("invalid blob ref")

// validate checks the "sha256:<52 base32 chars>-<digits>" shape.
func (r blobRef) validate() error {
	if len(r) < 61 || string(r[:7]) != blobRefPrefix || r[59] != '-' {
		return errInvalidBlobRef
	}
	for i := 7; i < 59; i++ {
		c := r[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'V') {
			return errInvalidBlobRef
		}
	}
	for i := 60; i < len(r); i++ {
		if r[i] < '0' || r[i] > '9' {
			return errInvalidBlobRef
		}
	}
	return nil
}

// blobDir manages content-addressed files with 256-way fan-out:
// <dir>/<hash[:2]>/<hash[2:]>. Writes stream through a temp file in
// <dir>/tmp and are renamed into place once the hash is known.
type blobDir struct {
	dir string
}

func (b *blobDir) pathFor(ref blobRef) string {
	hashPart := string(ref)[len(blobRefPrefix):]
	return filepath.Join(b.dir, hashPart[:2], hashPart[2:])
}

type blobWriter struct {
	blobs   *blobDir
	tmpPath string
	file    io.WriteCloser // nil after close or abort
	hasher  hash.Hash
	size    int64
}

func (b *blobDir) newWriter() (*blobWriter, error) {
	if err := os.MkdirAll(filepath.Join(b.dir, "tmp"), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create tmp directory: %w", err)
	}
	f, err := os.CreateTemp(filepath.Join(b.dir, "tmp"), "*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &blobWriter{blobs: b, file: f, tmpPath: f.Name(), hasher: sha256.New()}, nil
}

func (w *blobWriter) Write(p []byte) (int, error) {
	if w.file == nil {
		return 0, fs.ErrClosed
	}
	n, err := w.file.Write(p)
	if n > 0 {
		w.size += int64(n)
		w.hasher.Write(p[:n])
	}
	return n, err
}

// close finalizes the blob: the temp file is renamed to its
// content-addressed location and the ref is returned.
func (w *blobWriter) close() (blobRef, error) {
	if w.file == nil {
		return "", fs.ErrClosed
	}
	if err := w.file.Close(); err != nil {
		w.file = nil
		return "", errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(w.tmpPath))
	}
	w.file = nil

	ref := blobRef(fmt.Sprintf("%s%s-%d", blobRefPrefix, base32Enc.EncodeToString(w.hasher.Sum(nil)), w.size))
	target := w.blobs.pathFor(ref)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", errors.Join(fmt.Errorf("failed to create blob subdirectory: %w", err), os.Remove(w.tmpPath))
	}
	// Same content already stored: keep the existing file.
	if _, err := os.Stat(target); err == nil {
		if err := os.Remove(w.tmpPath); err != nil {
			return "", fmt.Errorf("failed to remove temp file: %w", err)
		}
		return ref, nil
	}
	if err := os.Rename(w.tmpPath, target); err != nil {
		return "", errors.Join(fmt.Errorf("failed to rename blob into place: %w", err), os.Remove(w.tmpPath))
	}
	return ref, nil
}

// abort cancels the write and removes the temp file.
func (w *blobWriter) abort() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return errors.Join(err, os.Remove(w.tmpPath))
}

// open returns a reader for the blob with the given ref.
func (b *blobDir) open(ref blobRef) (io.ReadCloser, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	f, err := os.Open(b.pathFor(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// remove deletes the blob file for ref. A missing file is not an error.
func (b *blobDir) remove(ref blobRef) error {
	if err := ref.validate(); err != nil {
		return err
	}
	if err := os.Remove(b.pathFor(ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
