// Package catalog reads the remote extension catalog: a JSON document of
// extension metadata keyed by id. The catalog is cached per project and
// never modified locally.
package catalog

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultURL is the catalog used when neither the environment nor the
	// tool config names one.
	DefaultURL = "https://raw.githubusercontent.com/github/spec-kit/main/extensions/catalog.json"

	// EnvURL overrides every other catalog URL source.
	EnvURL = "SPECIFY_CATALOG_URL"

	// DefaultTTL is how long a cached catalog is trusted.
	DefaultTTL = time.Hour

	// DefaultTimeout bounds a single catalog or download request.
	DefaultTimeout = 60 * time.Second
)

// Entry is the catalog metadata of one extension.
type Entry struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Author      string         `json:"author,omitempty"`
	Version     string         `json:"version"`
	DownloadURL string         `json:"download_url,omitempty"`
	Repository  string         `json:"repository,omitempty"`
	Homepage    string         `json:"homepage,omitempty"`
	License     string         `json:"license,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Verified    bool           `json:"verified"`
	Downloads   int            `json:"downloads,omitempty"`
	Stars       int            `json:"stars,omitempty"`
	Requires    map[string]any `json:"requires,omitempty"`
}

// Document is a whole catalog.
type Document struct {
	SchemaVersion string           `json:"schema_version"`
	UpdatedAt     string           `json:"updated_at,omitempty"`
	Extensions    map[string]Entry `json:"extensions"`
}

// Client fetches, caches and queries the catalog for one project.
type Client struct {
	ProjectDir string
	URL        string
	TTL        time.Duration
	HTTP       *http.Client
	Logger     *slog.Logger

	now func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithURL sets the catalog URL.
func WithURL(u string) Option { return func(c *Client) { c.URL = u } }

// WithTTL sets the cache lifetime.
func WithTTL(d time.Duration) Option { return func(c *Client) { c.TTL = d } }

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.HTTP = h } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.Logger = l } }

// New returns a Client for projectDir with default URL, TTL and timeout.
func New(projectDir string, opts ...Option) *Client {
	c := &Client{
		ProjectDir: projectDir,
		URL:        DefaultURL,
		TTL:        DefaultTTL,
		HTTP:       &http.Client{Timeout: DefaultTimeout},
		Logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ResolveURL picks the catalog URL: the SPECIFY_CATALOG_URL environment
// variable, then configured, then DefaultURL. The result is validated.
func ResolveURL(configured string) (string, error) {
	u := os.Getenv(EnvURL)
	if u == "" {
		u = configured
	}
	if u == "" {
		u = DefaultURL
	}
	if err := ValidateURL(u); err != nil {
		return "", err
	}
	return u, nil
}

// ValidateURL accepts https URLs, and http URLs only for localhost.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if isLocalhost(u.Hostname()) {
			return nil
		}
	}
	return fmt.Errorf("URL %q must use https (http is allowed only for localhost)", raw)
}

func isLocalhost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// CacheDir is the project's catalog cache directory.
func CacheDir(projectDir string) string {
	return filepath.Join(projectDir, ".specify", "extensions", ".cache")
}
