package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/barysiuk/specify/cmd/specify/cmd"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"specify": func() { os.Exit(cmd.Main()) },
	})
}

type catalogKey struct{}

func TestScript(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:                 filepath.Join("testdata", "script"),
		RequireExplicitExec: true,
		Setup: func(e *testscript.Env) error {
			// Set HOME to WORK so ~/.specify/ is created inside the temp dir
			e.Vars = append(e.Vars, "HOME="+e.WorkDir)

			srv := newCatalogServer()
			e.Defer(srv.Close)
			e.Values[catalogKey{}] = srv
			e.Vars = append(e.Vars, "SPECIFY_CATALOG_URL="+srv.URL()+"/catalog.json")
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			// file-contains asserts that a file contains (or doesn't contain) a substring.
			// Usage: [!] file-contains <path> <substring>
			"file-contains": cmdFileContains,

			// dir-not-exists asserts that a directory does not exist.
			// Usage: [!] dir-not-exists <path>
			"dir-not-exists": cmdDirNotExists,

			// catalog-version sets the jira version the catalog advertises.
			// Usage: catalog-version <version>
			"catalog-version": cmdCatalogVersion,
		},
	})
}

// catalogServer serves a catalog listing jira at a mutable version, plus
// the matching release archive.
type catalogServer struct {
	mu      sync.Mutex
	version string
	srv     *httptest.Server
}

func newCatalogServer() *catalogServer {
	c := &catalogServer{version: "1.0.0"}
	c.srv = httptest.NewServer(http.HandlerFunc(c.serve))
	return c
}

func (c *catalogServer) URL() string { return c.srv.URL }

func (c *catalogServer) Close() { c.srv.Close() }

func (c *catalogServer) setVersion(v string) {
	c.mu.Lock()
	c.version = v
	c.mu.Unlock()
}

func (c *catalogServer) serve(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	ver := c.version
	c.mu.Unlock()

	switch r.URL.Path {
	case "/catalog.json":
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
  "schema_version": "1.0",
  "updated_at": "2026-03-01T00:00:00Z",
  "extensions": {
    "jira": {"name": "Jira Integration", "description": "Sync tasks to Jira issues", "author": "acme", "version": %q, "download_url": "%s/jira.zip", "tags": ["issues", "jira"], "verified": true},
    "future": {"name": "Future Tools", "description": "Needs a newer specify", "author": "acme", "version": "1.0.0", "download_url": "%s/future.zip", "tags": ["misc"]}
  }
}`, ver, c.srv.URL, c.srv.URL)
	case "/jira.zip":
		data, err := extensionZip("jira", "Jira Integration", ver, ">=0.1.0")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(data)
	case "/future.zip":
		data, err := extensionZip("future", "Future Tools", "1.0.0", ">=9.0.0")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

// extensionZip builds a release archive with a single top-level directory,
// the layout GitHub produces for source downloads.
func extensionZip(id, name, version, requires string) ([]byte, error) {
	manifest := fmt.Sprintf(`schema_version: "1.0"
extension:
  id: %[1]s
  name: %[2]s
  version: %[3]s
  description: %[2]s for specify
requires:
  specify_version: "%[4]s"
provides:
  commands:
    - name: specify.%[1]s.sync
      file: commands/sync.md
  config:
    - name: %[1]s-config.yml
      template: config-template.yml
`, id, name, version, requires)

	files := map[string]string{
		"extension.yml":       manifest,
		"commands/sync.md":    "---\ndescription: Sync tasks\n---\nSync $ARGUMENTS.\n",
		"config-template.yml": "project:\n  key: DEMO\n",
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for n, content := range files {
		fw, err := w.Create(id + "-" + version + "/" + n)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cmdCatalogVersion changes the jira version served by the catalog.
func cmdCatalogVersion(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("catalog-version does not support negation")
	}
	if len(args) != 1 {
		ts.Fatalf("usage: catalog-version <version>")
	}
	srv, ok := ts.Value(catalogKey{}).(*catalogServer)
	if !ok {
		ts.Fatalf("no catalog server")
	}
	srv.setVersion(args[0])
}

// cmdFileContains checks if a file contains a substring.
func cmdFileContains(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) < 2 {
		ts.Fatalf("usage: file-contains <path> <substring>")
	}
	data, err := os.ReadFile(ts.MkAbs(args[0]))
	if err != nil {
		ts.Fatalf("reading %s: %v", args[0], err)
	}

	contains := strings.Contains(string(data), args[1])
	if neg && contains {
		ts.Fatalf("file %s contains %q (expected not to)", args[0], args[1])
	}
	if !neg && !contains {
		ts.Fatalf("file %s does not contain %q\nContent:\n%s", args[0], args[1], string(data))
	}
}

// cmdDirNotExists checks that a directory does not exist.
func cmdDirNotExists(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 1 {
		ts.Fatalf("usage: dir-not-exists <path>")
	}
	_, err := os.Stat(ts.MkAbs(args[0]))
	doesNotExist := os.IsNotExist(err)

	if neg && doesNotExist {
		// ! dir-not-exists == dir exists
		ts.Fatalf("%s does not exist (expected it to exist)", args[0])
	}
	if !neg && !doesNotExist {
		ts.Fatalf("%s exists (expected it not to)", args[0])
	}
}
