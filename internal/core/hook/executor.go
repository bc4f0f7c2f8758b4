package hook

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/fileutil"
	"github.com/barysiuk/specify/internal/core/manifest"
)

// ProjectFileName is the project hook table, relative to .specify/.
const ProjectFileName = "extensions.yml"

// Entry is one registered hook.
type Entry struct {
	Extension   string `yaml:"extension" json:"extension"`
	Command     string `yaml:"command" json:"command"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Optional    bool   `yaml:"optional" json:"optional"`
	Prompt      string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Condition   string `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// ProjectConfig is the content of .specify/extensions.yml. Unknown
// top-level keys are kept across a load/save cycle.
type ProjectConfig struct {
	Settings map[string]any     `yaml:"settings,omitempty"`
	Hooks    map[string][]Entry `yaml:"hooks"`
	Extra    map[string]any     `yaml:",inline"`
}

func newProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Settings: map[string]any{"auto_execute_hooks": true},
		Hooks:    map[string][]Entry{},
	}
}

// Executor manages the hook table of one project and decides which hooks
// fire for an event.
type Executor struct {
	ProjectDir string
	Logger     *slog.Logger
}

// NewExecutor returns an Executor for projectDir. A nil logger discards
// output.
func NewExecutor(projectDir string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{ProjectDir: projectDir, Logger: logger}
}

func (e *Executor) path() string {
	return filepath.Join(e.ProjectDir, ".specify", ProjectFileName)
}

// Load reads the hook table. A missing file yields an empty table.
func (e *Executor) Load() (*ProjectConfig, error) {
	data, err := os.ReadFile(e.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newProjectConfig(), nil
		}
		return nil, exterr.NewFS(e.path(), err)
	}
	cfg := &ProjectConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, exterr.NewDocumentParse(e.path(), err)
	}
	if cfg.Hooks == nil {
		cfg.Hooks = map[string][]Entry{}
	}
	return cfg, nil
}

// Save writes the hook table atomically.
func (e *Executor) Save(cfg *ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ProjectFileName, err)
	}
	return fileutil.WriteAtomic(e.path(), data, 0o644)
}

// Register adds the hooks an extension declares, replacing any entries it
// registered before. Entries that are not mappings or name no command are
// skipped. Nothing is written when the extension declares no hooks.
func (e *Executor) Register(extensionID string, hooks map[string]any) error {
	entries := entriesFromManifest(extensionID, hooks)
	if len(entries) == 0 {
		return nil
	}

	cfg, err := e.Load()
	if err != nil {
		return err
	}
	for event, entry := range entries {
		if entry.Condition != "" {
			if _, err := ParseCondition(entry.Condition); err != nil {
				e.Logger.Warn("hook condition will never match", "extension", extensionID, "event", event, "error", err)
			}
		}
		list := cfg.Hooks[event]
		i := slices.IndexFunc(list, func(h Entry) bool { return h.Extension == extensionID })
		if i >= 0 {
			list[i] = entry
		} else {
			list = append(list, entry)
		}
		cfg.Hooks[event] = list
		e.Logger.Debug("registered hook", "extension", extensionID, "event", event, "command", entry.Command)
	}
	return e.Save(cfg)
}

// Unregister drops every hook of extensionID. A missing table is a no-op.
func (e *Executor) Unregister(extensionID string) error {
	if !fileutil.PathExists(e.path()) {
		return nil
	}
	cfg, err := e.Load()
	if err != nil {
		return err
	}
	changed := false
	for event, list := range cfg.Hooks {
		kept := slices.DeleteFunc(slices.Clone(list), func(h Entry) bool { return h.Extension == extensionID })
		if len(kept) != len(list) {
			changed = true
		}
		if len(kept) == 0 {
			delete(cfg.Hooks, event)
			continue
		}
		cfg.Hooks[event] = kept
	}
	if !changed {
		return nil
	}
	return e.Save(cfg)
}

// Registered returns every enabled hook for event, before conditions.
func (e *Executor) Registered(event string) ([]Entry, error) {
	cfg, err := e.Load()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, h := range cfg.Hooks[event] {
		if h.Enabled {
			out = append(out, h)
		}
	}
	return out, nil
}

// HooksForEvent returns the enabled hooks for event whose condition holds.
// Hooks with an unparsable condition are skipped with a warning.
func (e *Executor) HooksForEvent(event string) ([]Entry, error) {
	registered, err := e.Registered(event)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, h := range registered {
		ok, err := e.ShouldExecute(h)
		if err != nil {
			e.Logger.Warn("skipping hook", "extension", h.Extension, "event", event, "error", err)
			continue
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// ShouldExecute evaluates the hook's condition against its extension's
// configuration. A hook without a condition always runs.
func (e *Executor) ShouldExecute(h Entry) (bool, error) {
	if h.Condition == "" {
		return true, nil
	}
	cond, err := ParseCondition(h.Condition)
	if err != nil {
		return false, err
	}

	var defaults map[string]any
	if m, err := manifest.Load(ExtensionDir(e.ProjectDir, h.Extension)); err == nil {
		defaults = m.Defaults
	}
	ctx, err := LoadExtensionConfig(e.ProjectDir, h.Extension, defaults)
	if err != nil {
		return false, err
	}
	return cond.Evaluate(ctx)
}

// entriesFromManifest converts a manifest hooks map (event => settings)
// into registry entries.
func entriesFromManifest(extensionID string, hooks map[string]any) map[string]Entry {
	out := map[string]Entry{}
	for event, raw := range hooks {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cmd, _ := fields["command"].(string)
		if cmd == "" {
			continue
		}
		entry := Entry{
			Extension: extensionID,
			Command:   cmd,
			Enabled:   true,
			Optional:  true,
			Prompt:    fmt.Sprintf("Execute %s?", cmd),
		}
		if v, ok := fields["optional"].(bool); ok {
			entry.Optional = v
		}
		if v, ok := fields["prompt"].(string); ok && v != "" {
			entry.Prompt = v
		}
		entry.Description, _ = fields["description"].(string)
		entry.Condition, _ = fields["condition"].(string)
		out[event] = entry
	}
	return out
}
