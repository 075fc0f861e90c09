package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thepatisserielane/studio/internal/localstore"
	"github.com/thepatisserielane/studio/internal/media"
	"github.com/thepatisserielane/studio/internal/mediastore"
	"github.com/thepatisserielane/studio/internal/server/handlers"
	"github.com/thepatisserielane/studio/internal/sitecfg"
	"github.com/thepatisserielane/studio/web"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, _ := newTestStack(t)
	return srv
}

func newTestStack(t *testing.T) (*httptest.Server, *mediastore.Store) {
	t.Helper()
	dir := t.TempDir()
	store := mediastore.New(dir, 100)
	local := localstore.Open(filepath.Join(dir, "local.json"))
	site := sitecfg.New(local)
	resolver := media.NewResolver(store, local)
	pages, err := web.New(site, resolver, store)
	if err != nil {
		t.Fatal(err)
	}
	svc := &handlers.Services{
		Store:    store,
		Local:    local,
		Site:     site,
		Resolver: resolver,
	}
	srv := httptest.NewServer(NewRouter(svc, pages, "test"))
	t.Cleanup(srv.Close)
	return srv, store
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	decodeJSON(t, resp, &body)
	if body.Status != "ok" || body.Version != "test" {
		t.Fatalf("got %+v", body)
	}
}

func TestTextEndpoints(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	t.Run("GetDefault", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/api/text/stalls_active")
		if err != nil {
			t.Fatal(err)
		}
		var body struct {
			Value      string `json:"value"`
			Overridden bool   `json:"overridden"`
		}
		decodeJSON(t, resp, &body)
		if body.Value != "YES" || body.Overridden {
			t.Fatalf("got %+v", body)
		}
	})
	t.Run("PutOverride", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/text/stalls_active",
			strings.NewReader(`{"value":"NO"}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}

		resp, err = client.Get(srv.URL + "/api/text/stalls_active")
		if err != nil {
			t.Fatal(err)
		}
		var body struct {
			Value      string `json:"value"`
			Overridden bool   `json:"overridden"`
		}
		decodeJSON(t, resp, &body)
		if body.Value != "NO" || !body.Overridden {
			t.Fatalf("got %+v", body)
		}
	})
	t.Run("UnknownKeyIs404", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/api/text/not_a_key")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	getCatalog := func() (products []sitecfg.Product) {
		t.Helper()
		resp, err := client.Get(srv.URL + "/api/catalog")
		if err != nil {
			t.Fatal(err)
		}
		var body struct {
			Products []sitecfg.Product `json:"products"`
		}
		decodeJSON(t, resp, &body)
		return body.Products
	}

	if got := len(getCatalog()); got != 6 {
		t.Fatalf("default catalog has %d products, want 6", got)
	}

	// Add a placeholder product.
	resp, err := client.Post(srv.URL+"/api/catalog/new", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var added struct {
		Product sitecfg.Product `json:"product"`
	}
	decodeJSON(t, resp, &added)
	if added.Product.ID == "" {
		t.Fatal("added product has no ID")
	}
	if got := len(getCatalog()); got != 7 {
		t.Fatalf("catalog has %d products after add, want 7", got)
	}

	// Remove it again.
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/catalog/"+added.Product.ID, nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if got := len(getCatalog()); got != 6 {
		t.Fatalf("catalog has %d products after remove, want 6", got)
	}

	// Inline edits replace the whole catalog.
	products := getCatalog()
	products[0].Name = "Renamed Bento Kit"
	products[0].Price = 425
	body, err := json.Marshal(map[string]any{"products": products})
	if err != nil {
		t.Fatal(err)
	}
	req, _ = http.NewRequest(http.MethodPut, srv.URL+"/api/catalog", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replace status = %d", resp.StatusCode)
	}
	if got := getCatalog()[0]; got.Name != "Renamed Bento Kit" || got.Price != 425 {
		t.Fatalf("edited product = %+v", got)
	}

	// Removing an unknown product is a 404.
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/catalog/no-such-product", nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete unknown status = %d", resp.StatusCode)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	resp, err := client.Post(srv.URL+"/api/reset", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unconfirmed reset status = %d", resp.StatusCode)
	}

	// Override some text, then reset with confirmation.
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/text/stalls_active",
		strings.NewReader(`{"value":"NO"}`))
	if resp, err = client.Do(req); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp, err = client.Post(srv.URL+"/api/reset?confirm=true", "application/json", nil); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirmed reset status = %d", resp.StatusCode)
	}

	resp, err = client.Get(srv.URL + "/api/text/stalls_active")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Value string `json:"value"`
	}
	decodeJSON(t, resp, &body)
	if body.Value != "YES" {
		t.Fatalf("stalls_active after reset = %q, want default", body.Value)
	}
}

func uploadAsset(t *testing.T, client *http.Client, url, key, filename, mimeType string, payload []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{mimeType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	resp, err := client.Post(url+"/api/assets/"+key, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAssetLifecycle(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	payload := []byte("fake png bytes")
	resp := uploadAsset(t, client, srv.URL, "brand_hero", "hero.png", "image/png", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var up struct {
		Key  string `json:"key"`
		Size int64  `json:"size"`
		URL  string `json:"url"`
	}
	decodeJSON(t, resp, &up)
	if up.Key != "brand_hero" || up.Size != int64(len(payload)) {
		t.Fatalf("upload response = %+v", up)
	}

	// The served endpoint streams back the same bytes.
	resp, err := client.Get(srv.URL + up.URL)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(body, payload) {
		t.Fatalf("served bytes = %q", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}

	// Replacing swaps the payload under the same key.
	resp = uploadAsset(t, client, srv.URL, "brand_hero", "hero2.png", "image/png", []byte("second version"))
	resp.Body.Close()
	resp, err = client.Get(srv.URL + "/media/brand_hero")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "second version" {
		t.Fatalf("served bytes after replace = %q", body)
	}

	// Delete needs confirmation.
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/assets/brand_hero", nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unconfirmed delete status = %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/assets/brand_hero?confirm=true", nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirmed delete status = %d", resp.StatusCode)
	}

	resp, err = client.Get(srv.URL + "/media/brand_hero")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("serve after delete status = %d", resp.StatusCode)
	}
}

// zeroReader yields an endless stream of zero bytes.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) { return len(p), nil }

// uploadZeros streams a multipart upload of n zero bytes without buffering
// the payload.
func uploadZeros(t *testing.T, srv *httptest.Server, key string, n int64) *http.Response {
	t.Helper()
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", "payload.bin")
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.CopyN(part, zeroReader{}, n); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/assets/"+key, pr)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestUploadSizeGate(t *testing.T) {
	srv, store := newTestStack(t)

	t.Run("ExactlyAtLimitAccepted", func(t *testing.T) {
		resp := uploadZeros(t, srv, "reel_1", handlers.MaxUploadBytes)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
		v, ok, err := store.Get(context.Background(), "reel_1")
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v", ok, err)
		}
		if v.Size != handlers.MaxUploadBytes {
			t.Fatalf("stored size = %d", v.Size)
		}
	})

	t.Run("OneByteOverRejected", func(t *testing.T) {
		resp := uploadZeros(t, srv, "brand_hero", handlers.MaxUploadBytes+1)
		resp.Body.Close()
		if resp.StatusCode != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusRequestEntityTooLarge)
		}
		// Nothing was written under the key.
		_, ok, err := store.Get(context.Background(), "brand_hero")
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatal("oversize upload left a stored value behind")
		}
	})
}

func TestServeRedirectsTextURL(t *testing.T) {
	srv, store := newTestStack(t)
	if err := store.PutText(context.Background(), "brand_logo", "https://example.com/logo.png"); err != nil {
		t.Fatal(err)
	}

	client := srv.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := client.Get(srv.URL + "/media/brand_logo")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/logo.png" {
		t.Fatalf("location = %q", loc)
	}
}

func TestStorageEstimate(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/storage/estimate")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Available bool `json:"available"`
		Estimate  *struct {
			UsedMB  int `json:"used_mb"`
			QuotaMB int `json:"quota_mb"`
		} `json:"estimate"`
	}
	decodeJSON(t, resp, &body)
	if !body.Available || body.Estimate == nil {
		t.Fatalf("got %+v", body)
	}
	if body.Estimate.QuotaMB != 100 {
		t.Fatalf("quota = %d", body.Estimate.QuotaMB)
	}
}

func TestBlueprintRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	// Make an edit so the blueprint has content.
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/text/stalls_active",
		strings.NewReader(`{"value":"NO"}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/api/blueprint")
	if err != nil {
		t.Fatal(err)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Patisserie_Lane_Blueprint.json") {
		t.Fatalf("content disposition = %q", cd)
	}
	blueprint, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}

	// Reset, then import brings the edit back.
	if resp, err = client.Post(srv.URL+"/api/reset?confirm=true", "application/json", nil); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = client.Post(srv.URL+"/api/blueprint", "application/json", bytes.NewReader(blueprint))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", resp.StatusCode)
	}

	resp, err = client.Get(srv.URL + "/api/text/stalls_active")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Value string `json:"value"`
	}
	decodeJSON(t, resp, &body)
	if body.Value != "NO" {
		t.Fatalf("stalls_active after import = %q", body.Value)
	}

	// A malformed file is rejected outright.
	resp, err = client.Post(srv.URL+"/api/blueprint", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed import status = %d", resp.StatusCode)
	}
}

func TestOrderDraft(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	resp, err := client.Post(srv.URL+"/api/order/draft", "application/json",
		strings.NewReader(`{"name":"Priya","product":"Heart Cookies","date":"2026-09-14"}`))
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Message string `json:"message"`
		Link    string `json:"link"`
	}
	decodeJSON(t, resp, &body)
	if !strings.HasPrefix(body.Link, "https://wa.me/") {
		t.Fatalf("link = %q", body.Link)
	}
	if !strings.Contains(body.Message, "Priya") {
		t.Fatalf("message = %q", body.Message)
	}

	resp, err = client.Post(srv.URL+"/api/order/draft", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty form status = %d", resp.StatusCode)
	}
}

func TestPagesRender(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	for _, path := range []string{"/", "/menu", "/about", "/process", "/order", "/strategy"} {
		resp, err := client.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
		if !bytes.Contains(body, []byte("The Patisserie Lane")) {
			t.Errorf("%s looks empty", path)
		}
		if path == "/strategy" {
			// The console carries the inline catalog editor.
			for _, want := range []string{`id="save-catalog"`, `data-field="name"`, `data-field="price"`} {
				if !bytes.Contains(body, []byte(want)) {
					t.Errorf("strategy page missing %s", want)
				}
			}
		}
	}
}

func TestSuggestDisabled(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Post(srv.URL+"/api/suggest/ideas", "application/json",
		strings.NewReader(`{"event":"anniversary"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
