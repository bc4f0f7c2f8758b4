// Package exterr defines the tagged failures shared by every extension
// manager component. A failure carries a Kind discriminant plus the fields
// relevant to that kind; consumers switch on Kind.
package exterr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// Validation is a manifest field error. Field names the dotted path.
	Validation Kind = "validation"
	// DocumentParse means a source document could not be parsed.
	DocumentParse Kind = "document_parse"
	// Compatibility means a version constraint was not met.
	Compatibility Kind = "compatibility"
	// AlreadyInstalled means the extension id is already in the registry.
	AlreadyInstalled Kind = "already_installed"
	// NotInstalled means the extension id is missing from the registry.
	NotInstalled Kind = "not_installed"
	// NotFound means a lookup (registry or catalog) found nothing.
	NotFound Kind = "not_found"
	// InvalidCondition means a hook condition does not match the grammar.
	InvalidCondition Kind = "invalid_condition"
	// Network is a transport or HTTP status failure.
	Network Kind = "network"
	// CatalogIO is a catalog decode, schema or cache failure.
	CatalogIO Kind = "catalog_io"
	// FS is a filesystem boundary failure. Path names the file.
	FS Kind = "fs"
)

// Kinds returns every Kind. Consumers that render per-kind output iterate
// it in tests to prove their switch is exhaustive.
func Kinds() []Kind {
	return []Kind{
		Validation,
		DocumentParse,
		Compatibility,
		AlreadyInstalled,
		NotInstalled,
		NotFound,
		InvalidCondition,
		Network,
		CatalogIO,
		FS,
	}
}

// Error is a tagged failure. Only the fields relevant to Kind are set.
type Error struct {
	Kind     Kind
	Message  string
	Field    string // validation
	Required string // compatibility
	Actual   string // compatibility
	ID       string // registry and catalog lookups
	Path     string // fs
	Input    string // invalid_condition
	Err      error  // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind, so that
// errors.Is(err, &exterr.Error{Kind: exterr.NotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// MarshalJSON emits the tag and every populated field.
func (e *Error) MarshalJSON() ([]byte, error) {
	out := map[string]string{"error": string(e.Kind)}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("message", e.Message)
	set("field", e.Field)
	set("required", e.Required)
	set("actual", e.Actual)
	set("id", e.ID)
	set("path", e.Path)
	set("input", e.Input)
	if e.Err != nil {
		out["cause"] = e.Err.Error()
	}
	return json.Marshal(out)
}

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// --- Constructors ---

// NewValidation reports a manifest field failure.
func NewValidation(field, format string, args ...any) *Error {
	return &Error{Kind: Validation, Field: field, Message: field + ": " + fmt.Sprintf(format, args...)}
}

// NewDocumentParse reports a malformed document.
func NewDocumentParse(source string, err error) *Error {
	return &Error{Kind: DocumentParse, Path: source, Message: "parsing " + source, Err: err}
}

// NewCompatibility reports an unmet version constraint.
func NewCompatibility(required, actual string) *Error {
	return &Error{
		Kind:     Compatibility,
		Required: required,
		Actual:   actual,
		Message:  fmt.Sprintf("requires version %s, found %s", required, actual),
	}
}

// NewAlreadyInstalled reports an id that is already installed.
func NewAlreadyInstalled(id string) *Error {
	return &Error{Kind: AlreadyInstalled, ID: id, Message: fmt.Sprintf("extension %q is already installed", id)}
}

// NewNotInstalled reports an id that is not installed.
func NewNotInstalled(id string) *Error {
	return &Error{Kind: NotInstalled, ID: id, Message: fmt.Sprintf("extension %q is not installed", id)}
}

// NewNotFound reports a lookup miss.
func NewNotFound(id, where string) *Error {
	return &Error{Kind: NotFound, ID: id, Message: fmt.Sprintf("extension %q not found in %s", id, where)}
}

// NewInvalidCondition reports a hook condition that does not parse.
func NewInvalidCondition(input string) *Error {
	return &Error{Kind: InvalidCondition, Input: input, Message: fmt.Sprintf("invalid hook condition %q", input)}
}

// NewNetwork reports a transport failure against url.
func NewNetwork(url string, err error) *Error {
	return &Error{Kind: Network, Path: url, Message: "fetching " + url, Err: err}
}

// NewCatalogIO reports a catalog decode or cache failure.
func NewCatalogIO(msg string, err error) *Error {
	return &Error{Kind: CatalogIO, Message: msg, Err: err}
}

// NewNotProject reports a directory that has no .specify marker.
func NewNotProject(dir string) *Error {
	return &Error{Kind: FS, Path: dir, Message: fmt.Sprintf("%s is not a specify project (no .specify directory)", dir)}
}

// NewFS reports a filesystem failure on path.
func NewFS(path string, err error) *Error {
	return &Error{Kind: FS, Path: path, Message: path, Err: err}
}
