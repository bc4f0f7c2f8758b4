package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/fileutil"
)

// Query filters a catalog search. Zero fields match everything.
type Query struct {
	Text         string // substring of name, description, id or a tag
	Tag          string // exact tag, case-insensitive
	Author       string // exact author, case-insensitive
	VerifiedOnly bool
}

// Match reports whether e satisfies q.
func (q Query) Match(e Entry) bool {
	if q.VerifiedOnly && !e.Verified {
		return false
	}
	if q.Author != "" && !strings.EqualFold(e.Author, q.Author) {
		return false
	}
	if q.Tag != "" && !slices.ContainsFunc(e.Tags, func(t string) bool { return strings.EqualFold(t, q.Tag) }) {
		return false
	}
	if q.Text != "" {
		haystack := strings.ToLower(strings.Join(append([]string{e.Name, e.Description, e.ID}, e.Tags...), " "))
		if !strings.Contains(haystack, strings.ToLower(q.Text)) {
			return false
		}
	}
	return true
}

// Search returns matching entries sorted by id.
func (c *Client) Search(ctx context.Context, q Query) ([]Entry, error) {
	doc, err := c.Fetch(ctx, false)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range doc.Extensions {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// Get returns the catalog entry for id, or a not_found error.
func (c *Client) Get(ctx context.Context, id string) (Entry, error) {
	doc, err := c.Fetch(ctx, false)
	if err != nil {
		return Entry{}, err
	}
	e, ok := doc.Extensions[id]
	if !ok {
		return Entry{}, exterr.NewNotFound(id, "catalog")
	}
	return e, nil
}

// Download fetches the release archive of id into the cache's downloads
// directory and returns its path.
func (c *Client) Download(ctx context.Context, id string) (string, error) {
	e, err := c.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if e.DownloadURL == "" {
		return "", exterr.NewCatalogIO(fmt.Sprintf("extension %q has no download URL", id), nil)
	}
	if err := ValidateURL(e.DownloadURL); err != nil {
		return "", exterr.NewNetwork(e.DownloadURL, err)
	}
	return c.DownloadURL(ctx, e.DownloadURL, fmt.Sprintf("%s-%s.zip", id, e.Version))
}

// DownloadURL fetches u into the downloads directory as name.
func (c *Client) DownloadURL(ctx context.Context, u, name string) (string, error) {
	if err := ValidateURL(u); err != nil {
		return "", exterr.NewNetwork(u, err)
	}
	c.Logger.Debug("downloading extension", "url", u)
	data, err := c.get(ctx, u)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(CacheDir(c.ProjectDir), "downloads", name)
	if err := fileutil.WriteAtomic(dest, data, 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

// RemoveDownload deletes a downloaded archive. Missing files are ignored.
func RemoveDownload(path string) {
	_ = os.Remove(path)
}
