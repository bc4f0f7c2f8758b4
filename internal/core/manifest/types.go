// Package manifest parses and validates extension.yml, the declared
// contract of an extension: identity, host compatibility and the commands
// it provides.
package manifest

// FileName is the manifest file at the root of every extension.
const FileName = "extension.yml"

// SchemaVersion is the only manifest schema version this tool understands.
const SchemaVersion = "1.0"

// CommandNamespace prefixes every provided command name:
// <namespace>.<extension-id>.<command>.
const CommandNamespace = "specify"

// Manifest is a fully validated extension manifest. It is immutable once
// returned by Validate.
type Manifest struct {
	SchemaVersion string         `json:"schema_version"`
	Extension     Extension      `json:"extension"`
	Requires      Requires       `json:"requires"`
	Commands      []Command      `json:"commands"`
	ConfigFiles   []ConfigFile   `json:"config,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Defaults      map[string]any `json:"defaults,omitempty"` // default values for the extension's config
	Hooks         map[string]any `json:"hooks,omitempty"`    // opaque; interpreted by the hook package
}

// Extension is the identity block.
type Extension struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Author      string `json:"author,omitempty"`
	Repository  string `json:"repository,omitempty"`
	License     string `json:"license,omitempty"`
	Homepage    string `json:"homepage,omitempty"`
}

// Requires holds the host compatibility constraint.
type Requires struct {
	SpecifyVersion string `json:"specify_version"`
}

// Command is one entry of provides.commands.
type Command struct {
	Name        string   `json:"name"`
	File        string   `json:"file"` // relative to the extension directory
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// ConfigFile is one entry of provides.config: a config file the extension
// reads, seeded from a template shipped in the extension.
type ConfigFile struct {
	Name        string `json:"name"`
	Template    string `json:"template"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// CommandNames returns every name the extension registers, aliases included.
func (m *Manifest) CommandNames() []string {
	var names []string
	for _, c := range m.Commands {
		names = append(names, c.Name)
		names = append(names, c.Aliases...)
	}
	return names
}
