package core

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/barysiuk/specify/internal/core/catalog"
	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/fileutil"
	"github.com/barysiuk/specify/internal/core/manifest"
	"github.com/barysiuk/specify/internal/core/registry"
	"github.com/barysiuk/specify/internal/core/version"
)

// Update replaces installed extension id with the catalog's newer release.
// The new release is downloaded, validated, checked for compatibility and
// for the files its manifest names before the old one is removed. When the
// swap still fails, the old release is restored from a snapshot. Config
// files survive the swap and the agents the old release was rendered for
// are kept.
func (m *Manager) Update(ctx context.Context, id string) (*UpdateResult, error) {
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
	if err := CheckIsInstalled(reg, id); err != nil {
		return nil, err
	}
	entry, _ := reg.Get(id)

	available, err := cat.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &UpdateResult{ID: id, From: entry.Version, To: entry.Version}
	if version.Compare(available.Version, entry.Version) <= 0 {
		return result, nil
	}

	zipPath, err := cat.Download(ctx, id)
	if err != nil {
		return nil, err
	}
	defer catalog.RemoveDownload(zipPath)

	root, cleanup, err := extractArchive(zipPath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	mf, err := manifest.Load(root)
	if err != nil {
		return nil, err
	}
	if mf.Extension.ID != id {
		return nil, exterr.NewValidation("extension.id", "archive for %q contains extension %q", id, mf.Extension.ID)
	}
	if err := CheckCompatibility(m.ToolVersion, mf.Requires.SpecifyVersion); err != nil {
		return nil, err
	}

	if err := checkSourceFiles(mf, root); err != nil {
		return nil, err
	}

	agents := slices.Sorted(maps.Keys(entry.Commands))
	snap, dropSnap, err := m.snapshot(id)
	if err != nil {
		return nil, err
	}
	defer dropSnap()

	if _, err := m.Remove(id, RemoveOptions{KeepConfig: true}); err != nil {
		return nil, m.restoreAfter(fmt.Errorf("removing %s %s: %w", id, entry.Version, err), id, entry, agents, snap)
	}
	installed, err := m.InstallFromDirectory(root, InstallOptions{Agents: agents, Source: entry.Source})
	if err != nil {
		return nil, m.restoreAfter(fmt.Errorf("installing %s %s: %w", id, mf.Extension.Version, err), id, entry, agents, snap)
	}
	m.Logger.Debug("updated extension", "id", id, "from", entry.Version, "to", installed.Version)

	result.To = installed.Version
	result.Updated = true
	return result, nil
}

// snapshot copies the installed directory of id to a temporary location.
// snap is "" when the extension has no directory to keep.
func (m *Manager) snapshot(id string) (snap string, drop func(), err error) {
	src := m.ExtensionDir(id)
	if !fileutil.DirExists(src) {
		return "", func() {}, nil
	}
	tmp, err := os.MkdirTemp("", "specify-snapshot-*")
	if err != nil {
		return "", nil, exterr.NewFS(os.TempDir(), err)
	}
	drop = func() { _ = os.RemoveAll(tmp) }
	snap = filepath.Join(tmp, id)
	if err := fileutil.CopyTree(src, snap, nil); err != nil {
		drop()
		return "", nil, err
	}
	return snap, drop, nil
}

// restoreAfter puts the release captured in snap back in place after a
// failed swap and returns cause. A failed restore is reported with it.
func (m *Manager) restoreAfter(cause error, id string, entry registry.Entry, agents []string, snap string) error {
	if err := m.restore(id, entry, agents, snap); err != nil {
		m.Logger.Error("could not restore extension after failed update", "id", id, "error", err)
		return fmt.Errorf("%w (restoring %s %s failed: %v)", cause, id, entry.Version, err)
	}
	m.Logger.Warn("update failed; previous release restored", "id", id, "version", entry.Version)
	return cause
}

// restore reinstalls the release in snap for agents and records entry
// again.
func (m *Manager) restore(id string, entry registry.Entry, agents []string, snap string) error {
	reg, err := registry.Load(m.ProjectDir)
	if err != nil {
		return err
	}
	if snap != "" {
		dest := m.ExtensionDir(id)
		if err := os.RemoveAll(dest); err != nil {
			return exterr.NewFS(dest, err)
		}
		if err := fileutil.CopyTree(snap, dest, nil); err != nil {
			return err
		}
		mf, err := manifest.Load(dest)
		if err != nil {
			return err
		}
		formats, err := m.targetFormats(agents)
		if err != nil {
			return err
		}
		registered, err := m.registrar.Register(mf, dest, formats)
		if err != nil {
			return err
		}
		if err := m.hooks.Register(id, mf.Hooks); err != nil {
			return err
		}
		entry.Commands = registered
	}
	if err := registry.Save(m.ProjectDir, reg.Add(id, entry)); err != nil {
		return err
	}
	m.dropBackup(id)
	return nil
}
