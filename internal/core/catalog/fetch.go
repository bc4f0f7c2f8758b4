package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/fileutil"
)

const (
	cacheFile    = "catalog.json"
	metadataFile = "catalog-metadata.json"
)

type cacheMetadata struct {
	CachedAt   string `json:"cached_at"`
	CatalogURL string `json:"catalog_url"`
}

// Fetch returns the catalog, from cache when it is younger than the TTL and
// was fetched from the same URL. force skips the cache.
func (c *Client) Fetch(ctx context.Context, force bool) (*Document, error) {
	if !force {
		if doc, ok := c.readCache(); ok {
			c.Logger.Debug("using cached catalog", "url", c.URL)
			return doc, nil
		}
	}

	if err := ValidateURL(c.URL); err != nil {
		return nil, exterr.NewNetwork(c.URL, err)
	}
	c.Logger.Debug("fetching catalog", "url", c.URL)
	data, err := c.get(ctx, c.URL)
	if err != nil {
		return nil, err
	}

	doc, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := c.writeCache(data); err != nil {
		// A stale or missing cache only costs a refetch.
		c.Logger.Warn("could not cache catalog", "error", err)
	}
	return doc, nil
}

// ClearCache removes the cached catalog and its metadata.
func (c *Client) ClearCache() error {
	for _, name := range []string{cacheFile, metadataFile} {
		p := filepath.Join(CacheDir(c.ProjectDir), name)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return exterr.NewCatalogIO("clearing catalog cache", err)
		}
	}
	return nil
}

// decode validates catalog JSON against the schema and decodes it. Each
// entry's ID is set from its key.
func decode(data []byte) (*Document, error) {
	issues, err := validateDocument(data)
	if err != nil {
		return nil, exterr.NewCatalogIO("invalid catalog", err)
	}
	if len(issues) > 0 {
		return nil, exterr.NewCatalogIO("invalid catalog: "+joinIssues(issues), nil)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, exterr.NewCatalogIO("invalid catalog", err)
	}
	for id, e := range doc.Extensions {
		e.ID = id
		doc.Extensions[id] = e
	}
	return &doc, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, exterr.NewNetwork(u, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, exterr.NewNetwork(u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, exterr.NewNetwork(u, fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exterr.NewNetwork(u, err)
	}
	return data, nil
}

func (c *Client) readCache() (*Document, bool) {
	dir := CacheDir(c.ProjectDir)
	raw, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, false
	}
	var meta cacheMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, false
	}
	if meta.CatalogURL != c.URL {
		return nil, false
	}
	cachedAt, err := time.Parse(time.RFC3339, meta.CachedAt)
	if err != nil || c.now().Sub(cachedAt) >= c.TTL {
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if err != nil {
		return nil, false
	}
	doc, err := decode(data)
	if err != nil {
		return nil, false
	}
	return doc, true
}

func (c *Client) writeCache(data []byte) error {
	dir := CacheDir(c.ProjectDir)
	if err := fileutil.WriteAtomic(filepath.Join(dir, cacheFile), data, 0o644); err != nil {
		return err
	}
	meta, err := json.MarshalIndent(cacheMetadata{
		CachedAt:   c.now().UTC().Format(time.RFC3339),
		CatalogURL: c.URL,
	}, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(filepath.Join(dir, metadataFile), meta, 0o644)
}
