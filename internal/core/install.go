package core

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/barysiuk/specify/internal/core/agent"
	"github.com/barysiuk/specify/internal/core/catalog"
	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/fileutil"
	"github.com/barysiuk/specify/internal/core/manifest"
	"github.com/barysiuk/specify/internal/core/registry"
)

// InstallFromDirectory installs the extension rooted at srcDir.
//  1. Load the registry and validate the manifest
//  2. Run the compatibility and not-installed guards
//  3. Copy the extension into .specify/extensions/<id>
//  4. Render its commands for every target agent and register its hooks
//  5. Record it in the registry
//
// The registry is written last, so any failure leaves it as it was. Files
// written by earlier steps are removed again.
func (m *Manager) InstallFromDirectory(srcDir string, opts InstallOptions) (*InstallResult, error) {
	if err := CheckProject(m.ProjectDir); err != nil {
		return nil, err
	}
	reg, err := registry.Load(m.ProjectDir)
	if err != nil {
		return nil, err
	}
	mf, err := manifest.Load(srcDir)
	if err != nil {
		return nil, err
	}
	id := mf.Extension.ID
	if err := CheckCompatibility(m.ToolVersion, mf.Requires.SpecifyVersion); err != nil {
		return nil, err
	}
	if err := CheckNotInstalled(reg, id); err != nil {
		return nil, err
	}
	if err := checkSourceFiles(mf, srcDir); err != nil {
		return nil, err
	}

	formats, err := m.targetFormats(opts.Agents)
	if err != nil {
		return nil, err
	}
	source := opts.Source
	if source == "" {
		source = SourceLocal
	}

	dest := m.ExtensionDir(id)
	if samePath(srcDir, dest) {
		return nil, &exterr.Error{
			Kind:    exterr.FS,
			Path:    srcDir,
			Message: fmt.Sprintf("%s is the install location of %s; copy it elsewhere before installing", srcDir, id),
		}
	}
	if err := os.RemoveAll(dest); err != nil {
		return nil, exterr.NewFS(dest, err)
	}

	var registered map[string][]string
	rollback := func() {
		if registered != nil {
			_ = m.registrar.Unregister(registered)
		}
		_ = m.hooks.Unregister(id)
		if err := os.RemoveAll(dest); err != nil {
			m.Logger.Warn("could not clean up extension directory", "path", dest, "error", err)
		}
	}

	ignore, err := fileutil.LoadIgnore(srcDir)
	if err != nil {
		return nil, err
	}
	m.Logger.Debug("copying extension", "id", id, "from", srcDir, "to", dest)
	if err := fileutil.CopyTree(srcDir, dest, ignore); err != nil {
		rollback()
		return nil, fmt.Errorf("copying extension: %w", err)
	}
	if err := m.restoreConfig(id); err != nil {
		rollback()
		return nil, err
	}
	if err := m.seedConfig(mf, dest); err != nil {
		rollback()
		return nil, err
	}

	registered, err = m.registrar.Register(mf, dest, formats)
	if err != nil {
		rollback()
		return nil, err
	}
	if err := m.hooks.Register(id, mf.Hooks); err != nil {
		rollback()
		return nil, fmt.Errorf("registering hooks: %w", err)
	}

	entry := BuildRegistryEntry(mf, source, m.Now())
	entry.Commands = registered
	if err := registry.Save(m.ProjectDir, reg.Add(id, entry)); err != nil {
		rollback()
		return nil, err
	}
	m.dropBackup(id)
	m.Logger.Debug("installed extension", "id", id, "version", mf.Extension.Version, "agents", len(registered))

	hooks := make([]string, 0, len(mf.Hooks))
	for event := range mf.Hooks {
		hooks = append(hooks, event)
	}
	sort.Strings(hooks)

	return &InstallResult{
		ID:       id,
		Name:     mf.Extension.Name,
		Version:  mf.Extension.Version,
		Source:   source,
		Path:     dest,
		Commands: registered,
		Hooks:    hooks,
	}, nil
}

// InstallFromZip extracts the archive at zipPath into a temporary
// directory and installs from there. The manifest may sit at the archive
// root or inside a single top-level directory.
func (m *Manager) InstallFromZip(zipPath string, opts InstallOptions) (*InstallResult, error) {
	if err := CheckProject(m.ProjectDir); err != nil {
		return nil, err
	}
	root, cleanup, err := extractArchive(zipPath)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return m.InstallFromDirectory(root, opts)
}

// extractArchive unpacks zipPath into a temporary directory and returns
// the directory holding the manifest. cleanup removes the temporary tree.
func extractArchive(zipPath string) (root string, cleanup func(), err error) {
	tmpDir, err := os.MkdirTemp("", "specify-extension-*")
	if err != nil {
		return "", nil, exterr.NewFS(os.TempDir(), err)
	}
	cleanup = func() { _ = os.RemoveAll(tmpDir) }

	if err := fileutil.ExtractZip(zipPath, tmpDir); err != nil {
		cleanup()
		return "", nil, err
	}
	root, err = findManifestRoot(tmpDir)
	if err != nil {
		cleanup()
		return "", nil, &exterr.Error{
			Kind:    exterr.FS,
			Path:    zipPath,
			Message: fmt.Sprintf("no %s found in archive", manifest.FileName),
			Err:     err,
		}
	}
	return root, cleanup, nil
}

// InstallFromCatalog downloads extension id from the catalog and installs
// it. The already-installed guard runs before anything is downloaded.
func (m *Manager) InstallFromCatalog(ctx context.Context, id string, opts InstallOptions) (*InstallResult, error) {
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
	if err := CheckNotInstalled(reg, id); err != nil {
		return nil, err
	}

	zipPath, err := cat.Download(ctx, id)
	if err != nil {
		return nil, err
	}
	defer catalog.RemoveDownload(zipPath)

	if opts.Source == "" {
		opts.Source = SourceCatalog
	}
	return m.InstallFromZip(zipPath, opts)
}

// InstallFromURL downloads a release archive from rawURL and installs it.
// The URL is recorded as the source.
func (m *Manager) InstallFromURL(ctx context.Context, rawURL string, opts InstallOptions) (*InstallResult, error) {
	if err := CheckProject(m.ProjectDir); err != nil {
		return nil, err
	}
	cat, err := m.catalog()
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, exterr.NewNetwork(rawURL, err)
	}
	name := path.Base(u.Path)
	if path.Ext(name) != ".zip" {
		name = "download.zip"
	}

	zipPath, err := cat.DownloadURL(ctx, rawURL, name)
	if err != nil {
		return nil, err
	}
	defer catalog.RemoveDownload(zipPath)

	if opts.Source == "" {
		opts.Source = rawURL
	}
	return m.InstallFromZip(zipPath, opts)
}

// targetFormats resolves agent names, or detects the agents configured in
// the project when none are given.
func (m *Manager) targetFormats(names []string) ([]agent.Format, error) {
	if len(names) > 0 {
		return agent.ByNames(names)
	}
	detected := agent.DetectInFolder(m.ProjectDir)
	if len(detected) == 0 {
		m.Logger.Warn("no agent directories found; commands will not be registered", "dir", m.ProjectDir)
	}
	return detected, nil
}

// checkSourceFiles verifies that every command file and every required
// config template the manifest names exists below root.
func checkSourceFiles(mf *manifest.Manifest, root string) error {
	for _, c := range mf.Commands {
		p, err := fileutil.SafeJoin(root, c.File)
		if err != nil {
			return exterr.NewValidation("provides.commands", "command %s: %v", c.Name, err)
		}
		if !fileutil.PathExists(p) {
			return &exterr.Error{
				Kind:    exterr.FS,
				Path:    p,
				Message: fmt.Sprintf("command %s: %s not found in extension", c.Name, c.File),
			}
		}
	}
	for _, cf := range mf.ConfigFiles {
		if !cf.Required {
			continue
		}
		p, err := fileutil.SafeJoin(root, cf.Template)
		if err != nil {
			return exterr.NewValidation("provides.config", "config template: %v", err)
		}
		if !fileutil.PathExists(p) {
			return exterr.NewValidation("provides.config", "template %q for %s is missing", cf.Template, cf.Name)
		}
	}
	return nil
}

// samePath reports whether a and b name the same directory, after
// resolving symlinks where the paths exist.
func samePath(a, b string) bool {
	resolve := func(p string) string {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if real, err := filepath.EvalSymlinks(p); err == nil {
			p = real
		}
		return filepath.Clean(p)
	}
	return resolve(a) == resolve(b)
}

// seedConfig copies each declared config template to its target name
// unless the target already exists.
func (m *Manager) seedConfig(mf *manifest.Manifest, dest string) error {
	for _, cf := range mf.ConfigFiles {
		target, err := fileutil.SafeJoin(dest, cf.Name)
		if err != nil {
			return exterr.NewValidation("provides.config", "config file: %v", err)
		}
		if fileutil.PathExists(target) {
			continue
		}
		tmpl, err := fileutil.SafeJoin(dest, cf.Template)
		if err != nil {
			return exterr.NewValidation("provides.config", "config template: %v", err)
		}
		if !fileutil.PathExists(tmpl) {
			if cf.Required {
				return exterr.NewValidation("provides.config", "template %q for %s is missing", cf.Template, cf.Name)
			}
			m.Logger.Warn("config template missing", "extension", mf.Extension.ID, "template", cf.Template)
			continue
		}
		if err := fileutil.CopyFile(tmpl, target); err != nil {
			return err
		}
		m.Logger.Debug("seeded config", "extension", mf.Extension.ID, "file", cf.Name)
	}
	return nil
}

// findManifestRoot returns dir when it holds a manifest, or its single
// subdirectory when that does.
func findManifestRoot(dir string) (string, error) {
	if fileutil.PathExists(filepath.Join(dir, manifest.FileName)) {
		return dir, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var subdirs []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != "__MACOSX" {
			subdirs = append(subdirs, e.Name())
		}
	}
	if len(subdirs) == 1 {
		root := filepath.Join(dir, subdirs[0])
		if fileutil.PathExists(filepath.Join(root, manifest.FileName)) {
			return root, nil
		}
	}
	return "", os.ErrNotExist
}
