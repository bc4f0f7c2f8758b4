package core

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/barysiuk/specify/internal/core/agent"
	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/fileutil"
	"github.com/barysiuk/specify/internal/core/manifest"
	"github.com/barysiuk/specify/internal/core/registry"
)

// configPattern matches the user-edited config files of an extension:
// <id>-config.yml and local-config.yml.
const configPattern = "*-config.yml"

// BackupDir returns where the config of extension id is kept between a
// remove with KeepConfig and the next install.
func BackupDir(projectDir, id string) string {
	return filepath.Join(projectDir, ".specify", "extensions", ".backup", id)
}

// Remove uninstalls extension id: its rendered commands and hooks are
// deleted and its registry entry dropped. Failing to delete the extension
// directory afterwards is logged, not returned.
func (m *Manager) Remove(id string, opts RemoveOptions) (*RemoveResult, error) {
	if err := CheckProject(m.ProjectDir); err != nil {
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
	dest := m.ExtensionDir(id)

	commands := m.registrar.Existing(m.recordedCommands(id, entry))
	removed := 0
	for _, names := range commands {
		removed += len(names)
	}
	if err := m.registrar.Unregister(commands); err != nil {
		return nil, err
	}
	if err := m.hooks.Unregister(id); err != nil {
		return nil, err
	}

	result := &RemoveResult{ID: id, Version: entry.Version, Commands: removed}
	if opts.KeepConfig {
		backup, err := m.backupConfig(id)
		if err != nil {
			return nil, err
		}
		result.BackupDir = backup
	}

	next, err := reg.Remove(id)
	if err != nil {
		return nil, err
	}
	if err := registry.Save(m.ProjectDir, next); err != nil {
		return nil, err
	}

	if err := os.RemoveAll(dest); err != nil {
		m.Logger.Warn("could not delete extension directory", "path", dest, "error", err)
	}
	m.Logger.Debug("removed extension", "id", id, "commands", removed)
	return result, nil
}

// recordedCommands returns the commands the registry recorded for id.
// Entries written before commands were tracked fall back to every command
// name of the installed manifest across all agents.
func (m *Manager) recordedCommands(id string, entry registry.Entry) map[string][]string {
	if len(entry.Commands) > 0 {
		return entry.Commands
	}
	mf, err := manifest.Load(m.ExtensionDir(id))
	if err != nil {
		m.Logger.Warn("no command record and no readable manifest", "id", id, "error", err)
		return nil
	}
	out := map[string][]string{}
	for _, f := range agent.All() {
		out[f.Name] = mf.CommandNames()
	}
	return out
}

// backupConfig copies the extension's config files into BackupDir. It
// returns "" when there was nothing to back up.
func (m *Manager) backupConfig(id string) (string, error) {
	src := m.ExtensionDir(id)
	matches, err := doublestar.Glob(os.DirFS(src), configPattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", exterr.NewFS(src, err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	backup := BackupDir(m.ProjectDir, id)
	if err := os.RemoveAll(backup); err != nil {
		return "", exterr.NewFS(backup, err)
	}
	for _, name := range matches {
		if err := fileutil.CopyFile(filepath.Join(src, name), filepath.Join(backup, name)); err != nil {
			return "", err
		}
	}
	m.Logger.Debug("backed up config", "id", id, "files", len(matches), "to", backup)
	return backup, nil
}

// restoreConfig copies backed-up config files of id into its freshly
// copied extension directory. Files shipped by the extension itself are
// overwritten: the backup holds the user's edits. The backup is dropped
// separately, once the install has been recorded.
func (m *Manager) restoreConfig(id string) error {
	backup := BackupDir(m.ProjectDir, id)
	if !fileutil.DirExists(backup) {
		return nil
	}
	matches, err := doublestar.Glob(os.DirFS(backup), configPattern, doublestar.WithFilesOnly())
	if err != nil {
		return exterr.NewFS(backup, err)
	}
	dest := m.ExtensionDir(id)
	for _, name := range matches {
		if err := fileutil.CopyFile(filepath.Join(backup, name), filepath.Join(dest, name)); err != nil {
			return err
		}
	}
	m.Logger.Debug("restored config", "id", id, "files", len(matches))
	return nil
}

func (m *Manager) dropBackup(id string) {
	backup := BackupDir(m.ProjectDir, id)
	if !fileutil.DirExists(backup) {
		return
	}
	if err := os.RemoveAll(backup); err != nil {
		m.Logger.Warn("could not delete config backup", "path", backup, "error", err)
		return
	}
	fileutil.RemoveEmptyDir(filepath.Dir(backup))
}
