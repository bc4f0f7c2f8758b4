package manifest

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/fileutil"
)

var (
	idPattern          = regexp.MustCompile(`^[a-z0-9-]+$`)
	versionPattern     = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	commandNamePattern = regexp.MustCompile(`^` + regexp.QuoteMeta(CommandNamespace) + `\.[a-z0-9-]+\.[a-z0-9-]+$`)
)

// Validate checks a parsed tree and builds a Manifest. Checks run in a fixed
// order and the first failure is returned as a validation error naming the
// dotted field path.
func Validate(tree map[string]any) (*Manifest, error) {
	m := &Manifest{}

	sv, _ := scalar(tree, "schema_version")
	if sv != SchemaVersion {
		if _, present := tree["schema_version"]; !present {
			return nil, exterr.NewValidation("schema_version", "is required")
		}
		return nil, exterr.NewValidation("schema_version", "unsupported version %q (expected %q)", sv, SchemaVersion)
	}
	m.SchemaVersion = sv

	ext, ok := mapping(tree, "extension")
	if !ok {
		return nil, exterr.NewValidation("extension", "is required and must be a mapping")
	}
	if err := validateExtension(ext, &m.Extension); err != nil {
		return nil, err
	}

	req, ok := mapping(tree, "requires")
	if !ok {
		return nil, exterr.NewValidation("requires", "is required and must be a mapping")
	}
	spec, _ := scalar(req, "specify_version")
	if spec == "" {
		return nil, exterr.NewValidation("requires.specify_version", "is required")
	}
	m.Requires.SpecifyVersion = spec

	provides, _ := mapping(tree, "provides")
	commands, err := validateCommands(provides)
	if err != nil {
		return nil, err
	}
	m.Commands = commands

	configs, err := validateConfigFiles(provides)
	if err != nil {
		return nil, err
	}
	m.ConfigFiles = configs

	m.Tags = stringList(tree["tags"])
	m.Defaults, _ = mapping(tree, "defaults")
	m.Hooks, _ = mapping(tree, "hooks")
	if m.Hooks == nil {
		m.Hooks = map[string]any{}
	}

	return m, nil
}

func validateExtension(ext map[string]any, out *Extension) error {
	id, _ := scalar(ext, "id")
	if id == "" {
		return exterr.NewValidation("extension.id", "is required")
	}
	if !idPattern.MatchString(id) {
		return exterr.NewValidation("extension.id", "%q must contain only lowercase letters, digits and hyphens", id)
	}

	name, _ := scalar(ext, "name")
	if name == "" {
		return exterr.NewValidation("extension.name", "is required")
	}

	ver, _ := scalar(ext, "version")
	if ver == "" {
		return exterr.NewValidation("extension.version", "is required")
	}
	if !versionPattern.MatchString(ver) {
		return exterr.NewValidation("extension.version", "%q must be a MAJOR.MINOR.PATCH version", ver)
	}

	desc, _ := scalar(ext, "description")
	if desc == "" {
		return exterr.NewValidation("extension.description", "is required")
	}

	*out = Extension{ID: id, Name: name, Version: ver, Description: desc}
	out.Author, _ = scalar(ext, "author")
	out.Repository, _ = scalar(ext, "repository")
	out.License, _ = scalar(ext, "license")
	out.Homepage, _ = scalar(ext, "homepage")
	return nil
}

func validateCommands(provides map[string]any) ([]Command, error) {
	raw, ok := provides["commands"].([]any)
	if !ok || len(raw) == 0 {
		return nil, exterr.NewValidation("provides.commands", "must be a non-empty list")
	}

	commands := make([]Command, 0, len(raw))
	for i, item := range raw {
		field := fmt.Sprintf("provides.commands[%d]", i)
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, exterr.NewValidation(field, "must be a mapping")
		}

		name, _ := scalar(entry, "name")
		if name == "" {
			return nil, exterr.NewValidation(field+".name", "is required")
		}
		if !commandNamePattern.MatchString(name) {
			return nil, exterr.NewValidation(field+".name", "%q must match %s.<extension-id>.<command>", name, CommandNamespace)
		}

		file, _ := scalar(entry, "file")
		if file == "" {
			return nil, exterr.NewValidation(field+".file", "is required")
		}
		if err := checkRelPath(field+".file", file); err != nil {
			return nil, err
		}

		aliases := stringList(entry["aliases"])
		for j, a := range aliases {
			if !commandNamePattern.MatchString(a) {
				return nil, exterr.NewValidation(fmt.Sprintf("%s.aliases[%d]", field, j), "%q must match %s.<extension-id>.<command>", a, CommandNamespace)
			}
		}

		desc, _ := scalar(entry, "description")
		commands = append(commands, Command{Name: name, File: file, Description: desc, Aliases: aliases})
	}
	return commands, nil
}

func validateConfigFiles(provides map[string]any) ([]ConfigFile, error) {
	raw, ok := provides["config"].([]any)
	if !ok {
		return nil, nil
	}

	var files []ConfigFile
	for i, item := range raw {
		field := fmt.Sprintf("provides.config[%d]", i)
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, exterr.NewValidation(field, "must be a mapping")
		}
		name, _ := scalar(entry, "name")
		if name == "" {
			return nil, exterr.NewValidation(field+".name", "is required")
		}
		if err := checkRelPath(field+".name", name); err != nil {
			return nil, err
		}
		tmpl, _ := scalar(entry, "template")
		if tmpl == "" {
			return nil, exterr.NewValidation(field+".template", "is required")
		}
		if err := checkRelPath(field+".template", tmpl); err != nil {
			return nil, err
		}
		desc, _ := scalar(entry, "description")
		required, _ := entry["required"].(bool)
		files = append(files, ConfigFile{Name: name, Template: tmpl, Description: desc, Required: required})
	}
	return files, nil
}

// checkRelPath requires p to stay inside the extension directory.
func checkRelPath(field, p string) error {
	if _, err := fileutil.SafeJoin(".", p); err != nil {
		return exterr.NewValidation(field, "must be a relative path inside the extension: %v", err)
	}
	return nil
}

// --- tree helpers ---

func mapping(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key].(map[string]any)
	return v, ok
}

// scalar returns a scalar value in string form. Non-scalars read as "".
func scalar(m map[string]any, key string) (string, bool) {
	switch v := m[key].(type) {
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
