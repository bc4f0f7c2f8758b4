// Package registry is the durable record of which extensions are installed
// in a project. Registry is an immutable value: every mutation returns a
// new Registry and leaves the receiver untouched.
package registry

import (
	"maps"
	"slices"

	"github.com/barysiuk/specify/internal/core/exterr"
)

// SchemaVersion is written into every registry file.
const SchemaVersion = "1.0"

// Entry is the installation record of one extension.
type Entry struct {
	Version     string `json:"version"`
	Source      string `json:"source"`      // "local", "catalog" or a download URL
	InstalledAt string `json:"installedAt"` // RFC 3339

	// Commands maps an agent name to the command names rendered for it,
	// so removal deletes exactly what install wrote.
	Commands map[string][]string `json:"commands,omitempty"`
}

// Registry maps extension id to Entry. The zero value is not usable; start
// from Empty or Parse.
type Registry struct {
	schemaVersion string
	entries       map[string]Entry
}

// Empty returns a registry with no extensions.
func Empty() Registry {
	return Registry{schemaVersion: SchemaVersion, entries: map[string]Entry{}}
}

// SchemaVersion returns the registry's schema version.
func (r Registry) SchemaVersion() string { return r.schemaVersion }

// Add upserts entry under id.
func (r Registry) Add(id string, entry Entry) Registry {
	next := r.clone()
	next.entries[id] = normalize(entry)
	return next
}

// Remove drops id. It fails with not_found when id is absent.
func (r Registry) Remove(id string) (Registry, error) {
	if _, ok := r.entries[id]; !ok {
		return r, exterr.NewNotFound(id, "registry")
	}
	next := r.clone()
	delete(next.entries, id)
	return next, nil
}

// Get returns the entry for id.
func (r Registry) Get(id string) (Entry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return cloneEntry(e), true
}

// IsInstalled reports whether id has an entry.
func (r Registry) IsInstalled(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// List returns a copy of every entry keyed by id. Map order is unspecified;
// use IDs for display order.
func (r Registry) List() map[string]Entry {
	out := make(map[string]Entry, len(r.entries))
	for id, e := range r.entries {
		out[id] = cloneEntry(e)
	}
	return out
}

// IDs returns installed ids in sorted order.
func (r Registry) IDs() []string {
	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of installed extensions.
func (r Registry) Len() int { return len(r.entries) }

// Equal reports whether two registries hold the same schema version and
// entries.
func (r Registry) Equal(o Registry) bool {
	if r.schemaVersion != o.schemaVersion || len(r.entries) != len(o.entries) {
		return false
	}
	for id, a := range r.entries {
		b, ok := o.entries[id]
		if !ok || !entryEqual(a, b) {
			return false
		}
	}
	return true
}

func (r Registry) clone() Registry {
	next := Registry{schemaVersion: r.schemaVersion, entries: make(map[string]Entry, len(r.entries)+1)}
	if next.schemaVersion == "" {
		next.schemaVersion = SchemaVersion
	}
	for id, e := range r.entries {
		next.entries[id] = e
	}
	return next
}

// normalize deep-copies e and drops empty command lists so the in-memory
// form matches what Parse would produce from the serialized form.
func normalize(e Entry) Entry {
	out := Entry{Version: e.Version, Source: e.Source, InstalledAt: e.InstalledAt}
	for agent, names := range e.Commands {
		if len(names) == 0 {
			continue
		}
		if out.Commands == nil {
			out.Commands = map[string][]string{}
		}
		out.Commands[agent] = slices.Clone(names)
	}
	return out
}

func cloneEntry(e Entry) Entry {
	out := e
	if e.Commands != nil {
		out.Commands = make(map[string][]string, len(e.Commands))
		for k, v := range e.Commands {
			out.Commands[k] = slices.Clone(v)
		}
	}
	return out
}

func entryEqual(a, b Entry) bool {
	if a.Version != b.Version || a.Source != b.Source || a.InstalledAt != b.InstalledAt {
		return false
	}
	return maps.EqualFunc(a.Commands, b.Commands, func(x, y []string) bool {
		return slices.Equal(x, y)
	})
}
