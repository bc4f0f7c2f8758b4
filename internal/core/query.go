package core

import (
	"context"

	"github.com/barysiuk/specify/internal/core/catalog"
	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/hook"
	"github.com/barysiuk/specify/internal/core/manifest"
	"github.com/barysiuk/specify/internal/core/registry"
	"github.com/barysiuk/specify/internal/core/version"
)

// List returns the installed extensions sorted by id. Name and
// description come from the installed manifest when it is readable.
func (m *Manager) List() ([]InstalledExtension, error) {
	if err := CheckProject(m.ProjectDir); err != nil {
		return nil, err
	}
	reg, err := registry.Load(m.ProjectDir)
	if err != nil {
		return nil, err
	}
	out := make([]InstalledExtension, 0, reg.Len())
	for _, id := range reg.IDs() {
		entry, _ := reg.Get(id)
		ext := InstalledExtension{
			ID:          id,
			Version:     entry.Version,
			Source:      entry.Source,
			InstalledAt: entry.InstalledAt,
			Commands:    entry.Commands,
		}
		if mf, err := manifest.Load(m.ExtensionDir(id)); err == nil {
			ext.Name = mf.Extension.Name
			ext.Description = mf.Extension.Description
		} else {
			m.Logger.Debug("installed manifest unreadable", "id", id, "error", err)
		}
		out = append(out, ext)
	}
	return out, nil
}

// Search queries the catalog and marks the results already installed.
func (m *Manager) Search(ctx context.Context, q catalog.Query) ([]SearchResult, error) {
	if err := CheckProject(m.ProjectDir); err != nil {
		return nil, err
	}
	cat, err := m.catalog()
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(m.ProjectDir)
	if err != nil {
		return nil, err
	}
	entries, err := cat.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(entries))
	for _, e := range entries {
		r := SearchResult{Entry: e}
		if installed, ok := reg.Get(e.ID); ok {
			r.Installed = true
			r.InstalledVersion = installed.Version
		}
		out = append(out, r)
	}
	return out, nil
}

// RefreshCatalog drops the cached catalog so the next lookup fetches it.
func (m *Manager) RefreshCatalog() error {
	cat, err := m.catalog()
	if err != nil {
		return err
	}
	m.Logger.Debug("clearing catalog cache", "dir", catalog.CacheDir(m.ProjectDir))
	return cat.ClearCache()
}

// Info gathers what is known about id locally and, when a catalog is
// configured, remotely. It fails with not_found only when neither side
// knows the extension. A catalog that cannot be reached is not an error
// for an installed extension.
func (m *Manager) Info(ctx context.Context, id string) (*ExtensionInfo, error) {
	if err := CheckProject(m.ProjectDir); err != nil {
		return nil, err
	}
	reg, err := registry.Load(m.ProjectDir)
	if err != nil {
		return nil, err
	}
	info := &ExtensionInfo{ID: id}
	if entry, ok := reg.Get(id); ok {
		info.Installed = &entry
		if mf, err := manifest.Load(m.ExtensionDir(id)); err == nil {
			info.Manifest = mf
			if cfg, err := hook.LoadExtensionConfig(m.ProjectDir, id, mf.Defaults); err == nil {
				info.Config = cfg.Settings()
			} else {
				m.Logger.Warn("extension config unreadable", "id", id, "error", err)
			}
		}
	}

	if m.Catalog != nil {
		e, err := m.Catalog.Get(ctx, id)
		switch {
		case err == nil:
			info.Catalog = &e
		case info.Installed == nil && exterr.KindOf(err) != exterr.NotFound:
			return nil, err
		case err != nil:
			m.Logger.Debug("catalog lookup failed", "id", id, "error", err)
		}
	}

	if info.Installed == nil && info.Catalog == nil {
		return nil, exterr.NewNotFound(id, "registry or catalog")
	}
	return info, nil
}

// CheckUpdates compares every installed extension with the catalog.
// Extensions missing from the catalog are reported as not updatable.
func (m *Manager) CheckUpdates(ctx context.Context) ([]UpdateInfo, error) {
	if err := CheckProject(m.ProjectDir); err != nil {
		return nil, err
	}
	cat, err := m.catalog()
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(m.ProjectDir)
	if err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		return nil, nil
	}
	doc, err := cat.Fetch(ctx, false)
	if err != nil {
		return nil, err
	}

	out := make([]UpdateInfo, 0, reg.Len())
	for _, id := range reg.IDs() {
		entry, _ := reg.Get(id)
		u := UpdateInfo{ID: id, Installed: entry.Version}
		if e, ok := doc.Extensions[id]; ok {
			u.InCatalog = true
			u.Available = e.Version
			u.UpdateAvailable = version.Compare(e.Version, entry.Version) > 0
		}
		out = append(out, u)
	}
	return out, nil
}
