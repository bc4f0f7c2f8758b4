package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/fileutil"
)

// RelPath is the registry file location relative to the project root.
var RelPath = filepath.Join(".specify", "extensions", ".registry")

// Path returns the registry file path for a project.
func Path(projectDir string) string {
	return filepath.Join(projectDir, RelPath)
}

type fileEntry struct {
	Version     string              `json:"version"`
	Source      string              `json:"source"`
	InstalledAt string              `json:"installed_at"`
	Commands    map[string][]string `json:"registered_commands,omitempty"`
}

type fileFormat struct {
	SchemaVersion string               `json:"schema_version"`
	Extensions    map[string]fileEntry `json:"extensions"`
}

// Serialize encodes r with snake_case keys. Ids are sorted by the JSON
// encoder, so the output is deterministic.
func Serialize(r Registry) []byte {
	ff := fileFormat{
		SchemaVersion: r.schemaVersion,
		Extensions:    make(map[string]fileEntry, len(r.entries)),
	}
	if ff.SchemaVersion == "" {
		ff.SchemaVersion = SchemaVersion
	}
	for id, e := range r.entries {
		ff.Extensions[id] = fileEntry(e)
	}
	// Marshal cannot fail: every field is a string or a string map.
	data, _ := json.MarshalIndent(ff, "", "  ")
	return append(data, '\n')
}

// Parse decodes a registry leniently. Comments and trailing commas are
// accepted, installedAt is read when installed_at is missing, absent
// fields default to "", and anything structurally invalid yields Empty.
func Parse(data []byte) Registry {
	std, err := hujson.Standardize(data)
	if err != nil {
		return Empty()
	}

	var root map[string]any
	if err := json.Unmarshal(std, &root); err != nil || root == nil {
		return Empty()
	}

	r := Empty()
	if sv, ok := root["schema_version"].(string); ok && sv != "" {
		r.schemaVersion = sv
	}

	rawExts, present := root["extensions"]
	if !present || rawExts == nil {
		return r
	}
	exts, ok := rawExts.(map[string]any)
	if !ok {
		return Empty()
	}

	for id, raw := range exts {
		fields, ok := raw.(map[string]any)
		if !ok {
			return Empty()
		}
		installedAt := str(fields, "installed_at")
		if installedAt == "" {
			installedAt = str(fields, "installedAt")
		}
		r.entries[id] = normalize(Entry{
			Version:     str(fields, "version"),
			Source:      str(fields, "source"),
			InstalledAt: installedAt,
			Commands:    commandMap(fields["registered_commands"]),
		})
	}
	return r
}

// Load reads the project's registry. A missing or corrupt file yields an
// empty registry; only unreadable files are errors.
func Load(projectDir string) (Registry, error) {
	data, err := os.ReadFile(Path(projectDir))
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return Empty(), exterr.NewFS(Path(projectDir), err)
	}
	return Parse(data), nil
}

// Save writes r atomically, creating .specify/extensions if needed.
func Save(projectDir string, r Registry) error {
	if err := fileutil.WriteAtomic(Path(projectDir), Serialize(r), 0o644); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}
	return nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func commandMap(v any) map[string][]string {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := map[string][]string{}
	for agent, list := range raw {
		items, ok := list.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			if s, ok := item.(string); ok {
				out[agent] = append(out[agent], s)
			}
		}
	}
	return out
}
