package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/barysiuk/specify/internal/core/exterr"
)

const testCatalog = `{
  "schema_version": "1.0",
  "updated_at": "2026-01-01T00:00:00Z",
  "extensions": {
    "jira": {
      "name": "Jira Integration",
      "description": "Sync tasks to Jira issues",
      "author": "Acme",
      "version": "1.2.0",
      "download_url": "%s/jira.zip",
      "tags": ["issues", "Tracking"],
      "verified": true
    },
    "lint": {
      "name": "Spec Linter",
      "description": "Checks specs for style",
      "author": "someone",
      "version": "0.3.1",
      "tags": ["quality"]
    }
  }
}`

// catalogServer serves the test catalog and a fake archive, counting
// catalog requests.
func catalogServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog.json":
			atomic.AddInt32(&hits, 1)
			_, _ = w.Write([]byte(strings.Replace(testCatalog, "%s", srv.URL, 1)))
		case "/jira.zip":
			_, _ = w.Write([]byte("PK-fake-archive"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return New(t.TempDir(), WithURL(srv.URL+"/catalog.json"), WithHTTPClient(srv.Client()))
}

func TestFetch_CachesWithinTTL(t *testing.T) {
	srv, hits := catalogServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	doc, err := c.Fetch(ctx, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(doc.Extensions) != 2 || doc.Extensions["jira"].ID != "jira" {
		t.Fatalf("unexpected document: %+v", doc)
	}

	if _, err := c.Fetch(ctx, false); err != nil {
		t.Fatalf("Fetch (cached): %v", err)
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("server hits = %d, want 1 (second fetch should use cache)", got)
	}

	if _, err := c.Fetch(ctx, true); err != nil {
		t.Fatalf("Fetch (force): %v", err)
	}
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("server hits = %d, want 2 after forced refresh", got)
	}
}

func TestFetch_ExpiredCacheRefetches(t *testing.T) {
	srv, hits := catalogServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	if _, err := c.Fetch(ctx, false); err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := c.Fetch(ctx, false); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestFetch_DifferentURLBypassesCache(t *testing.T) {
	srv, hits := catalogServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	if _, err := c.Fetch(ctx, false); err != nil {
		t.Fatal(err)
	}
	c.URL = srv.URL + "/catalog.json?v=2"
	if _, err := c.Fetch(ctx, false); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		kind exterr.Kind
	}{
		{"http error", "", http.StatusInternalServerError, exterr.Network},
		{"not json", "<html>", http.StatusOK, exterr.CatalogIO},
		{"missing extensions", `{"schema_version":"1.0"}`, http.StatusOK, exterr.CatalogIO},
		{"bad entry", `{"schema_version":"1.0","extensions":{"x":{"name":"X","version":"one"}}}`, http.StatusOK, exterr.CatalogIO},
		{"bad id", `{"schema_version":"1.0","extensions":{"Bad_ID":{"name":"X","version":"1.0.0"}}}`, http.StatusOK, exterr.CatalogIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(t.TempDir(), WithURL(srv.URL), WithHTTPClient(srv.Client()))
			_, err := c.Fetch(context.Background(), false)
			if exterr.KindOf(err) != tt.kind {
				t.Errorf("KindOf = %q, want %q (err: %v)", exterr.KindOf(err), tt.kind, err)
			}
			if _, statErr := os.Stat(filepath.Join(CacheDir(c.ProjectDir), cacheFile)); !os.IsNotExist(statErr) {
				t.Error("a failed fetch must not be cached")
			}
		})
	}
}

func TestFetch_InsecureURL(t *testing.T) {
	c := New(t.TempDir(), WithURL("http://example.com/catalog.json"))
	_, err := c.Fetch(context.Background(), false)
	if exterr.KindOf(err) != exterr.Network {
		t.Errorf("KindOf = %q, want network", exterr.KindOf(err))
	}
}

func TestClearCache(t *testing.T) {
	srv, hits := catalogServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	if _, err := c.Fetch(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := c.ClearCache(); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if _, err := c.Fetch(ctx, false); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestSearch(t *testing.T) {
	srv, _ := catalogServer(t)
	c := newClient(t, srv)

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"all", Query{}, []string{"jira", "lint"}},
		{"text in name", Query{Text: "LINTER"}, []string{"lint"}},
		{"text in description", Query{Text: "jira issues"}, []string{"jira"}},
		{"text in tag", Query{Text: "quality"}, []string{"lint"}},
		{"text in id", Query{Text: "jir"}, []string{"jira"}},
		{"tag", Query{Tag: "tracking"}, []string{"jira"}},
		{"tag is exact", Query{Tag: "track"}, nil},
		{"author", Query{Author: "acme"}, []string{"jira"}},
		{"verified", Query{VerifiedOnly: true}, []string{"jira"}},
		{"combined miss", Query{Text: "lint", VerifiedOnly: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := c.Search(context.Background(), tt.q)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			var ids []string
			for _, e := range results {
				ids = append(ids, e.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGet(t *testing.T) {
	srv, _ := catalogServer(t)
	c := newClient(t, srv)

	e, err := c.Get(context.Background(), "lint")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.Version != "0.3.1" || e.Name != "Spec Linter" {
		t.Errorf("entry = %+v", e)
	}

	_, err = c.Get(context.Background(), "missing")
	if exterr.KindOf(err) != exterr.NotFound {
		t.Errorf("KindOf = %q, want not_found", exterr.KindOf(err))
	}
}

func TestDownload(t *testing.T) {
	srv, _ := catalogServer(t)
	c := newClient(t, srv)

	path, err := c.Download(context.Background(), "jira")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(path) != "jira-1.2.0.zip" {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "PK-fake-archive" {
		t.Errorf("content = %q", data)
	}

	_, err = c.Download(context.Background(), "lint")
	if exterr.KindOf(err) != exterr.CatalogIO {
		t.Errorf("missing download URL: KindOf = %q, want catalog_io", exterr.KindOf(err))
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://example.com/catalog.json", true},
		{"http://localhost:8080/c.json", true},
		{"http://127.0.0.1/c.json", true},
		{"http://[::1]:9000/c.json", true},
		{"http://example.com/c.json", false},
		{"ftp://example.com/c.json", false},
		{"https:///nohost", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		err := ValidateURL(tt.url)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateURL(%q) = %v, want ok=%v", tt.url, err, tt.ok)
		}
	}
}

func TestResolveURL(t *testing.T) {
	t.Setenv(EnvURL, "")
	if u, _ := ResolveURL(""); u != DefaultURL {
		t.Errorf("default = %q", u)
	}
	if u, _ := ResolveURL("https://configured.example/c.json"); u != "https://configured.example/c.json" {
		t.Errorf("configured = %q", u)
	}

	t.Setenv(EnvURL, "https://env.example/c.json")
	if u, _ := ResolveURL("https://configured.example/c.json"); u != "https://env.example/c.json" {
		t.Errorf("env should win, got %q", u)
	}

	t.Setenv(EnvURL, "http://insecure.example/c.json")
	if _, err := ResolveURL(""); err == nil {
		t.Error("expected error for insecure env URL")
	}
}
