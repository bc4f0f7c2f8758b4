package command

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/barysiuk/specify/internal/core/agent"
	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/fileutil"
	"github.com/barysiuk/specify/internal/core/manifest"
)

// Registrar writes rendered commands into a project and removes them.
type Registrar struct {
	ProjectDir string
	Logger     *slog.Logger
}

// NewRegistrar returns a Registrar rooted at projectDir. A nil logger
// discards output.
func NewRegistrar(projectDir string, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registrar{ProjectDir: projectDir, Logger: logger}
}

// Register renders every command of m (aliases included) for every format
// and writes the results. Sources are read from extDir. It returns the
// names written per agent, for recording in the registry.
//
// On failure, files already written by this call are removed.
func (r *Registrar) Register(m *manifest.Manifest, extDir string, formats []agent.Format) (map[string][]string, error) {
	type source struct {
		cmd  manifest.Command
		meta Metadata
		body string
	}

	sources := make([]source, 0, len(m.Commands))
	for _, c := range m.Commands {
		p, err := fileutil.SafeJoin(extDir, c.File)
		if err != nil {
			return nil, exterr.NewValidation("provides.commands", "command %s: %v", c.Name, err)
		}
		text, err := fileutil.ReadText(p)
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", c.Name, err)
		}
		meta, body := ParseFrontmatter(text)
		sources = append(sources, source{cmd: c, meta: meta, body: body})
	}

	registered := map[string][]string{}
	for _, f := range formats {
		for _, s := range sources {
			out, err := Render(s.meta, s.body, f, m.Extension.ID)
			if err != nil {
				_ = r.Unregister(registered)
				return nil, err
			}
			for _, name := range append([]string{s.cmd.Name}, s.cmd.Aliases...) {
				dest := r.path(f, name)
				if err := fileutil.WriteAtomic(dest, out, 0o644); err != nil {
					_ = r.Unregister(registered)
					return nil, err
				}
				registered[f.Name] = append(registered[f.Name], name)
				r.Logger.Debug("registered command", "agent", f.Name, "command", name, "path", dest)
			}
		}
	}
	return registered, nil
}

// Unregister deletes the files recorded by Register. Files already gone
// and agents no longer in the format table are skipped. All deletions are
// attempted; the first failure is returned.
func (r *Registrar) Unregister(commands map[string][]string) error {
	var first error
	for agentName, names := range commands {
		f, ok := agent.ByName(agentName)
		if !ok {
			r.Logger.Warn("skipping commands for unknown agent", "agent", agentName)
			continue
		}
		for _, name := range names {
			p := r.path(f, name)
			err := os.Remove(p)
			if err == nil {
				r.Logger.Debug("removed command", "agent", agentName, "command", name)
				continue
			}
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if first == nil {
				first = exterr.NewFS(p, err)
			}
		}
	}
	return first
}

func (r *Registrar) path(f agent.Format, name string) string {
	return filepath.Join(r.ProjectDir, filepath.FromSlash(OutputPath(f, name)))
}

// Existing filters commands down to the files present on disk. Agents no
// longer in the format table are dropped.
func (r *Registrar) Existing(commands map[string][]string) map[string][]string {
	out := map[string][]string{}
	for name, cmds := range commands {
		f, ok := agent.ByName(name)
		if !ok {
			continue
		}
		for _, c := range cmds {
			if fileutil.PathExists(r.path(f, c)) {
				out[name] = append(out[name], c)
			}
		}
	}
	return out
}
