package core

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/barysiuk/specify/internal/core/catalog"
	"github.com/barysiuk/specify/internal/core/command"
	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/fileutil"
	"github.com/barysiuk/specify/internal/core/hook"
	"github.com/barysiuk/specify/internal/core/manifest"
	"github.com/barysiuk/specify/internal/core/registry"
	"github.com/barysiuk/specify/internal/core/version"
)

// ProjectMarker is the directory whose presence makes a directory a
// specify project.
const ProjectMarker = ".specify"

// CheckProject fails with an fs error when dir has no ProjectMarker
// directory.
func CheckProject(dir string) error {
	if !fileutil.DirExists(filepath.Join(dir, ProjectMarker)) {
		return exterr.NewNotProject(dir)
	}
	return nil
}

// CheckCompatibility fails with a compatibility error when actual does not
// satisfy the required specifier.
func CheckCompatibility(actual, required string) error {
	return version.Satisfies(actual, required)
}

// CheckNotInstalled fails with already_installed when id is in r.
func CheckNotInstalled(r registry.Registry, id string) error {
	if r.IsInstalled(id) {
		return exterr.NewAlreadyInstalled(id)
	}
	return nil
}

// CheckIsInstalled fails with not_installed when id is absent from r.
func CheckIsInstalled(r registry.Registry, id string) error {
	if !r.IsInstalled(id) {
		return exterr.NewNotInstalled(id)
	}
	return nil
}

// BuildRegistryEntry records m as installed from source at now.
func BuildRegistryEntry(m *manifest.Manifest, source string, now time.Time) registry.Entry {
	return registry.Entry{
		Version:     m.Extension.Version,
		Source:      source,
		InstalledAt: now.UTC().Format(time.RFC3339),
	}
}

// Manager runs the extension pipelines for one project.
type Manager struct {
	ProjectDir  string
	ToolVersion string
	Catalog     *catalog.Client
	Logger      *slog.Logger

	// Now stamps registry entries. Defaults to time.Now.
	Now func() time.Time

	registrar *command.Registrar
	hooks     *hook.Executor
}

// NewManager creates a Manager. cat may be nil when no catalog operation
// will be used; a nil logger discards output.
func NewManager(projectDir, toolVersion string, cat *catalog.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		ProjectDir:  projectDir,
		ToolVersion: toolVersion,
		Catalog:     cat,
		Logger:      logger,
		Now:         time.Now,
		registrar:   command.NewRegistrar(projectDir, logger),
		hooks:       hook.NewExecutor(projectDir, logger),
	}
}

// ExtensionDir returns where extension id is installed.
func (m *Manager) ExtensionDir(id string) string {
	return hook.ExtensionDir(m.ProjectDir, id)
}

// Hooks returns the project's hook executor.
func (m *Manager) Hooks() *hook.Executor {
	return m.hooks
}

func (m *Manager) catalog() (*catalog.Client, error) {
	if m.Catalog == nil {
		return nil, exterr.NewCatalogIO("no catalog configured", nil)
	}
	return m.Catalog, nil
}
