// Package core orchestrates extension installs for a project. It composes
// the manifest, registry, catalog, command and hook packages into the
// add/remove/list/search/info/update pipelines. It has zero UI
// dependencies and is independently testable.
package core

import (
	"time"

	"github.com/barysiuk/specify/internal/core/catalog"
	"github.com/barysiuk/specify/internal/core/manifest"
	"github.com/barysiuk/specify/internal/core/registry"
)

// Config is the tool configuration stored at ~/.specify/config.json.
type Config struct {
	CatalogURL      string   `json:"catalogUrl,omitempty"`
	CatalogCacheTTL string   `json:"catalogCacheTTL,omitempty"` // Go duration, e.g. "30m"
	DefaultAgents   []string `json:"defaultAgents,omitempty"`
	HTTPTimeout     string   `json:"httpTimeout,omitempty"` // Go duration
}

// CacheTTL returns the configured catalog cache lifetime, or the default
// when unset or unparsable.
func (c *Config) CacheTTL() time.Duration {
	return parseDuration(c.CatalogCacheTTL, catalog.DefaultTTL)
}

// Timeout returns the configured HTTP timeout, or the default.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.HTTPTimeout, catalog.DefaultTimeout)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Source values recorded in registry entries.
const (
	SourceLocal   = "local"
	SourceCatalog = "catalog"
)

// InstallOptions controls an install.
type InstallOptions struct {
	// Agents names the agents to render commands for. Empty means every
	// agent detected in the project.
	Agents []string

	// Source is recorded in the registry entry. Defaults to "local".
	Source string
}

// InstallResult describes a completed install.
type InstallResult struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Version  string              `json:"version"`
	Source   string              `json:"source"`
	Path     string              `json:"path"`
	Commands map[string][]string `json:"commands"` // agent => command names
	Hooks    []string            `json:"hooks,omitempty"`
}

// RemoveOptions controls a removal.
type RemoveOptions struct {
	// KeepConfig backs up the extension's config files before deleting
	// its directory.
	KeepConfig bool
}

// RemoveResult describes a completed removal.
type RemoveResult struct {
	ID        string `json:"id"`
	Version   string `json:"version"`
	Commands  int    `json:"commands"` // files deleted
	BackupDir string `json:"backupDir,omitempty"`
}

// InstalledExtension is one row of List.
type InstalledExtension struct {
	ID          string              `json:"id"`
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`
	Version     string              `json:"version"`
	Source      string              `json:"source"`
	InstalledAt string              `json:"installedAt"`
	Commands    map[string][]string `json:"commands,omitempty"`
}

// SearchResult is a catalog entry annotated with local install state.
type SearchResult struct {
	catalog.Entry
	Installed        bool   `json:"installed"`
	InstalledVersion string `json:"installedVersion,omitempty"`
}

// ExtensionInfo merges what is known about one extension locally and in
// the catalog. Either side may be absent.
type ExtensionInfo struct {
	ID        string             `json:"id"`
	Installed *registry.Entry    `json:"installed,omitempty"`
	Manifest  *manifest.Manifest `json:"manifest,omitempty"`
	Catalog   *catalog.Entry     `json:"catalog,omitempty"`

	// Config is the effective configuration of an installed extension,
	// all layers merged.
	Config map[string]any `json:"config,omitempty"`
}

// UpdateInfo compares an installed version with the catalog.
type UpdateInfo struct {
	ID              string `json:"id"`
	Installed       string `json:"installed"`
	Available       string `json:"available,omitempty"`
	InCatalog       bool   `json:"inCatalog"`
	UpdateAvailable bool   `json:"updateAvailable"`
}

// UpdateResult describes the outcome of Update.
type UpdateResult struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Updated bool   `json:"updated"`
}
