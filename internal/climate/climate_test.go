package climate

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func newTestFetcher(baseURL string) *Fetcher {
	fetcher := NewFetcher(baseURL)
	fetcher.RetryDelay = time.Millisecond
	return fetcher
}

func TestKeyFileName(t *testing.T) {
	key := Key{Region: "BEN", Class: "bio", Resolution: "30s"}
	if got := key.FileName(); got != "BEN_wc2.1_30s_bio.tif" {
		t.Errorf("Expected BEN_wc2.1_30s_bio.tif, got %s", got)
	}
}

func TestFetcherURL(t *testing.T) {
	fetcher := NewFetcher("https://example.com/tiles/")
	key := Key{Region: "BEN", Class: "elev", Resolution: "30s"}
	expected := "https://example.com/tiles/BEN_wc2.1_30s_elev.tif"
	if got := fetcher.URL(key); got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

func TestCachingProviderDownloads(t *testing.T) {
	payload := []byte("fake geotiff bytes")
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/BEN_wc2.1_30s_bio.tif" {
			t.Errorf("Expected request for /BEN_wc2.1_30s_bio.tif, got %s", r.URL.Path)
		}
		w.Write(payload)
	}))
	defer server.Close()

	provider := &CachingProvider{
		Store:   &LocalStore{Dir: t.TempDir()},
		Fetcher: newTestFetcher(server.URL),
	}
	key := Key{Region: "BEN", Class: "bio", Resolution: "30s"}

	path, err := provider.Acquire(key)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected tile on disk, got %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("Expected downloaded tile to match payload, got %q", data)
	}
	if requests != 1 {
		t.Errorf("Expected 1 request, got %d", requests)
	}
}

func TestCachingProviderUsesCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("fresh download"))
	}))
	defer server.Close()

	store := &LocalStore{Dir: t.TempDir()}
	key := Key{Region: "BEN", Class: "bio", Resolution: "30s"}
	if err := os.WriteFile(store.Path(key), []byte("cached tile"), 0644); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}

	provider := &CachingProvider{Store: store, Fetcher: newTestFetcher(server.URL)}
	path, err := provider.Acquire(key)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "cached tile" {
		t.Errorf("Expected cached tile to be kept, got %q", data)
	}
	if requests != 0 {
		t.Errorf("Expected no requests for a cached tile, got %d", requests)
	}
}

func TestFetcherRetriesUntilSuccess(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("tile"))
	}))
	defer server.Close()

	provider := &CachingProvider{
		Store:   &LocalStore{Dir: t.TempDir()},
		Fetcher: newTestFetcher(server.URL),
	}
	if _, err := provider.Acquire(Key{Region: "BEN", Class: "bio", Resolution: "30s"}); err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if requests != 3 {
		t.Errorf("Expected 3 requests, got %d", requests)
	}
}

func TestFetcherGivesUpAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := newTestFetcher(server.URL)
	key := Key{Region: "BEN", Class: "bio", Resolution: "30s"}
	if err := fetcher.Fetch(key, (&LocalStore{Dir: dir}).Path(key)); err == nil {
		t.Fatal("Expected an error after exhausting retries, got nil")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to list store directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no leftover files after a failed download, got %d", len(entries))
	}
}

func TestLocalStoreAcquire(t *testing.T) {
	store := &LocalStore{Dir: t.TempDir()}
	key := Key{Region: "BEN", Class: "bio", Resolution: "30s"}

	if _, err := store.Acquire(key); err == nil {
		t.Fatal("Expected an error for a missing tile, got nil")
	}

	if err := os.WriteFile(store.Path(key), []byte("tile"), 0644); err != nil {
		t.Fatalf("Failed to write tile: %v", err)
	}
	path, err := store.Acquire(key)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if path != store.Path(key) {
		t.Errorf("Expected %s, got %s", store.Path(key), path)
	}
}
