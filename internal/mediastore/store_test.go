package mediastore

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// findPayloadFile returns the path of the single payload file under the
// store's blobs directory.
func findPayloadFile(t *testing.T, dataDir string) string {
	t.Helper()
	blobs := filepath.Join(dataDir, storeDirName, blobsDirName)
	entries, err := os.ReadDir(blobs)
	if err != nil {
		t.Fatal(err)
	}
	var found []string
	for _, e := range entries {
		if e.Name() == "tmp" {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(blobs, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range sub {
			found = append(found, filepath.Join(blobs, e.Name(), f.Name()))
		}
	}
	if len(found) != 1 {
		t.Fatalf("payload files = %d, want 1", len(found))
	}
	return found[0]
}

func readValue(t *testing.T, v Value) []byte {
	t.Helper()
	r, err := v.Reader()
	if err != nil {
		t.Fatalf("Reader() error = %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	return data
}

func TestStorePutGet(t *testing.T) {
	t.Run("BlobRoundTrip", func(t *testing.T) {
		s := New(t.TempDir(), 100)
		data := []byte("\x89PNG fake image payload")
		size, err := s.PutBlob(t.Context(), "brand_logo", bytes.NewReader(data), "image/png")
		if err != nil {
			t.Fatalf("PutBlob() error = %v", err)
		}
		if size != int64(len(data)) {
			t.Errorf("PutBlob() size = %d, want %d", size, len(data))
		}
		v, ok, err := s.Get(t.Context(), "brand_logo")
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v", ok, err)
		}
		if v.Kind != KindBlob || v.MIME != "image/png" || v.Size != int64(len(data)) {
			t.Errorf("Get() value = %+v", v)
		}
		if got := readValue(t, v); !bytes.Equal(got, data) {
			t.Errorf("Get() payload = %q, want %q", got, data)
		}
	})

	t.Run("TextRoundTrip", func(t *testing.T) {
		s := New(t.TempDir(), 100)
		if err := s.PutText(t.Context(), "brand_hero", "https://example.com/hero.jpg"); err != nil {
			t.Fatalf("PutText() error = %v", err)
		}
		v, ok, err := s.Get(t.Context(), "brand_hero")
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v", ok, err)
		}
		if v.Kind != KindText || v.Text != "https://example.com/hero.jpg" {
			t.Errorf("Get() value = %+v", v)
		}
	})

	t.Run("OverwriteReplacesValue", func(t *testing.T) {
		s := New(t.TempDir(), 100)
		if _, err := s.PutBlob(t.Context(), "reel_1", strings.NewReader("v1"), "video/mp4"); err != nil {
			t.Fatal(err)
		}
		if _, err := s.PutBlob(t.Context(), "reel_1", strings.NewReader("v2 longer"), "video/mp4"); err != nil {
			t.Fatal(err)
		}
		v, ok, err := s.Get(t.Context(), "reel_1")
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v", ok, err)
		}
		if got := string(readValue(t, v)); got != "v2 longer" {
			t.Errorf("Get() after overwrite = %q", got)
		}
	})

	t.Run("AbsentIsNotAnError", func(t *testing.T) {
		s := New(t.TempDir(), 100)
		_, ok, err := s.Get(t.Context(), "prod_never_written")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if ok {
			t.Error("Get() of absent key reported present")
		}
	})

	t.Run("PersistsAcrossReopen", func(t *testing.T) {
		dir := t.TempDir()
		s := New(dir, 100)
		if _, err := s.PutBlob(t.Context(), "brand_about", strings.NewReader("portrait"), "image/jpeg"); err != nil {
			t.Fatal(err)
		}
		s2 := New(dir, 100)
		v, ok, err := s2.Get(t.Context(), "brand_about")
		if err != nil || !ok {
			t.Fatalf("Get() after reopen = %v, %v", ok, err)
		}
		if got := string(readValue(t, v)); got != "portrait" {
			t.Errorf("payload after reopen = %q", got)
		}
	})
}

func TestStoreDelete(t *testing.T) {
	t.Run("DeleteThenGetAbsent", func(t *testing.T) {
		s := New(t.TempDir(), 100)
		if _, err := s.PutBlob(t.Context(), "reel_2", strings.NewReader("clip"), "video/mp4"); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(t.Context(), "reel_2"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, ok, err := s.Get(t.Context(), "reel_2"); err != nil || ok {
			t.Errorf("Get() after Delete() = %v, %v", ok, err)
		}
	})

	t.Run("DeleteNeverWrittenKey", func(t *testing.T) {
		s := New(t.TempDir(), 100)
		if err := s.Delete(t.Context(), "no_such_key"); err != nil {
			t.Errorf("Delete() of absent key error = %v", err)
		}
	})

	t.Run("DeleteRemovesPayloadFile", func(t *testing.T) {
		dir := t.TempDir()
		s := New(dir, 100)
		if _, err := s.PutBlob(t.Context(), "reel_3", strings.NewReader("unique payload"), ""); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(t.Context(), "reel_3"); err != nil {
			t.Fatal(err)
		}
		var files int
		blobs := filepath.Join(dir, storeDirName, blobsDirName)
		entries, err := os.ReadDir(blobs)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if e.Name() == "tmp" {
				continue
			}
			sub, err := os.ReadDir(filepath.Join(blobs, e.Name()))
			if err != nil {
				t.Fatal(err)
			}
			files += len(sub)
		}
		if files != 0 {
			t.Errorf("blob files left after delete = %d, want 0", files)
		}
	})

	t.Run("OverwriteSurvivesStuckOldPayload", func(t *testing.T) {
		dir := t.TempDir()
		s := New(dir, 100)
		if _, err := s.PutBlob(t.Context(), "brand_hero", strings.NewReader("first bytes"), ""); err != nil {
			t.Fatal(err)
		}
		// Swap the payload file for a non-empty directory so removing it
		// during the overwrite fails.
		old := findPayloadFile(t, dir)
		if err := os.Remove(old); err != nil {
			t.Fatal(err)
		}
		if err := os.MkdirAll(filepath.Join(old, "child"), 0o755); err != nil {
			t.Fatal(err)
		}
		// The overwrite commits; the stuck old payload only leaks.
		if _, err := s.PutBlob(t.Context(), "brand_hero", strings.NewReader("second bytes"), ""); err != nil {
			t.Fatalf("PutBlob() error = %v", err)
		}
		v, ok, err := s.Get(t.Context(), "brand_hero")
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v", ok, err)
		}
		if got := string(readValue(t, v)); got != "second bytes" {
			t.Errorf("payload after overwrite = %q", got)
		}
	})

	t.Run("SharedPayloadSurvivesDelete", func(t *testing.T) {
		s := New(t.TempDir(), 100)
		// Two keys storing identical content share one payload file.
		for _, k := range []string{"reel_1", "reel_2"} {
			if _, err := s.PutBlob(t.Context(), k, strings.NewReader("same bytes"), ""); err != nil {
				t.Fatal(err)
			}
		}
		if err := s.Delete(t.Context(), "reel_1"); err != nil {
			t.Fatal(err)
		}
		v, ok, err := s.Get(t.Context(), "reel_2")
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v", ok, err)
		}
		if got := string(readValue(t, v)); got != "same bytes" {
			t.Errorf("surviving payload = %q", got)
		}
	})
}

func TestStoreOpen(t *testing.T) {
	t.Run("ConcurrentFirstAccessOpensOnce", func(t *testing.T) {
		s := New(t.TempDir(), 100)
		var wg sync.WaitGroup
		errs := make([]error, 16)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, errs[i] = s.Get(t.Context(), "brand_logo")
			}()
		}
		wg.Wait()
		for i, err := range errs {
			if err != nil {
				t.Errorf("Get() %d error = %v", i, err)
			}
		}
		s.mu.Lock()
		opens := s.opens
		s.mu.Unlock()
		if opens != 1 {
			t.Errorf("open attempts = %d, want 1", opens)
		}
	})

	t.Run("FailedOpenRetries", func(t *testing.T) {
		dir := t.TempDir()
		// A regular file where the store directory should be makes the
		// open fail.
		blocker := filepath.Join(dir, storeDirName)
		if err := os.WriteFile(blocker, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		s := New(dir, 100)
		if _, _, err := s.Get(t.Context(), "k"); !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("Get() error = %v, want ErrStoreUnavailable", err)
		}
		// Clearing the obstruction must let a later call succeed; a
		// memoized failure would keep failing forever.
		if err := os.Remove(blocker); err != nil {
			t.Fatal(err)
		}
		if err := s.PutText(t.Context(), "k", "v"); err != nil {
			t.Fatalf("PutText() after recovery error = %v", err)
		}
	})

	t.Run("NewerFormatVersionRejected", func(t *testing.T) {
		dir := t.TempDir()
		storeDir := filepath.Join(dir, storeDirName)
		if err := os.MkdirAll(storeDir, 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(storeDir, manifestName), []byte(`{"version":99}`), 0o644); err != nil {
			t.Fatal(err)
		}
		s := New(dir, 100)
		if _, _, err := s.Get(t.Context(), "k"); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("Get() error = %v, want ErrStoreUnavailable", err)
		}
	})
}

func TestEstimate(t *testing.T) {
	t.Run("RoundsToWholeMB", func(t *testing.T) {
		dir := t.TempDir()
		s := New(dir, 100)
		// 3 MiB of payload.
		if _, err := s.PutBlob(t.Context(), "reel_1", bytes.NewReader(make([]byte, 3<<20)), "video/mp4"); err != nil {
			t.Fatal(err)
		}
		e, ok := s.Estimate()
		if !ok {
			t.Fatal("Estimate() unavailable")
		}
		if e.UsedMB != 3 {
			t.Errorf("UsedMB = %d, want 3", e.UsedMB)
		}
		if e.QuotaMB != 100 {
			t.Errorf("QuotaMB = %d, want 100", e.QuotaMB)
		}
		if e.Percent != 3 {
			t.Errorf("Percent = %d, want 3", e.Percent)
		}
	})

	t.Run("UnavailableWithoutQuota", func(t *testing.T) {
		s := New(t.TempDir(), 0)
		if _, ok := s.Estimate(); ok {
			t.Error("Estimate() with no quota should be unavailable")
		}
	})

	t.Run("UnavailableWithoutDataDir", func(t *testing.T) {
		s := New(filepath.Join(t.TempDir(), "missing"), 100)
		if _, ok := s.Estimate(); ok {
			t.Error("Estimate() with missing data dir should be unavailable")
		}
	})
}
