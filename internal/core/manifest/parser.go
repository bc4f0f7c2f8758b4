package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/barysiuk/specify/internal/core/exterr"
)

// ParseDocument decodes YAML into an untyped tree. A syntax error or a
// root that is not a mapping is a document_parse failure.
func ParseDocument(data []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, exterr.NewDocumentParse(FileName, err)
	}
	tree, ok := raw.(map[string]any)
	if !ok {
		return nil, exterr.NewDocumentParse(FileName, fmt.Errorf("root must be a mapping, got %s", typeName(raw)))
	}
	return tree, nil
}

// Parse decodes and validates manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	tree, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return Validate(tree)
}

// Load reads and validates <dir>/extension.yml.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &exterr.Error{
				Kind:    exterr.FS,
				Path:    path,
				Message: fmt.Sprintf("no %s found in %s", FileName, dir),
				Err:     err,
			}
		}
		return nil, exterr.NewFS(path, err)
	}
	return Parse(data)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "empty document"
	case []any:
		return "list"
	case string:
		return "string"
	default:
		return fmt.Sprintf("%T", v)
	}
}
