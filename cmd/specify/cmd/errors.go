package cmd

import (
	"fmt"
	"io"

	"github.com/barysiuk/specify/internal/core/exterr"
)

// errorMessage renders err as one human-readable line.
func errorMessage(err error) string {
	if e, ok := exterr.As(err); ok {
		if msg := kindMessage(e); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// kindMessage returns the message for a tagged failure, or "" for a kind
// it does not know.
func kindMessage(e *exterr.Error) string {
	switch e.Kind {
	case exterr.Validation:
		return "invalid extension manifest: " + e.Message
	case exterr.DocumentParse:
		return "malformed document: " + e.Error()
	case exterr.Compatibility:
		return fmt.Sprintf("extension requires specify %s, but this is specify %s", e.Required, e.Actual)
	case exterr.AlreadyInstalled:
		return fmt.Sprintf("extension %q is already installed; remove it first or run 'specify extension update %s'", e.ID, e.ID)
	case exterr.NotInstalled:
		return fmt.Sprintf("extension %q is not installed; see 'specify extension list'", e.ID)
	case exterr.NotFound:
		return e.Message
	case exterr.InvalidCondition:
		return fmt.Sprintf("invalid hook condition %q", e.Input)
	case exterr.Network:
		return "network error: " + e.Error()
	case exterr.CatalogIO:
		return "catalog error: " + e.Error()
	case exterr.FS:
		return "file system error: " + e.Error()
	default:
		return ""
	}
}

// writeJSONError prints err as a JSON object. Untagged errors are reported
// with the tag "internal".
func writeJSONError(w io.Writer, err error) {
	if e, ok := exterr.As(err); ok {
		_ = printJSON(w, e)
		return
	}
	_ = printJSON(w, map[string]string{"error": "internal", "message": err.Error()})
}
