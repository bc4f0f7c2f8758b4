// Package hook evaluates extension hooks: the condition language that gates
// them, the layered extension configuration those conditions read, and the
// project-level hook table in .specify/extensions.yml.
package hook

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/barysiuk/specify/internal/core/exterr"
)

// Kind discriminates the six condition forms.
type Kind string

const (
	ConfigIsSet     Kind = "config_is_set"
	ConfigEquals    Kind = "config_equals"
	ConfigNotEquals Kind = "config_not_equals"
	EnvIsSet        Kind = "env_is_set"
	EnvEquals       Kind = "env_equals"
	EnvNotEquals    Kind = "env_not_equals"
)

// Kinds returns every condition kind.
func Kinds() []Kind {
	return []Kind{ConfigIsSet, ConfigEquals, ConfigNotEquals, EnvIsSet, EnvEquals, EnvNotEquals}
}

// Condition is a parsed hook condition. Key is a dotted config path for
// config kinds and a variable name for env kinds. Value is set only for
// comparisons.
type Condition struct {
	Kind  Kind   `json:"kind"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Context gives conditions read access to extension configuration.
type Context interface {
	ConfigHas(path string) bool
	ConfigGet(path string) any
}

var (
	configIsSetRe   = regexp.MustCompile(`(?i)^config\.([a-z0-9_.]+)\s+is\s+set$`)
	configCompareRe = regexp.MustCompile(`(?i)^config\.([a-z0-9_.]+)\s*(==|!=)\s*["']([^"']+)["']$`)
	envIsSetRe      = regexp.MustCompile(`(?i)^env\.([a-z0-9_]+)\s+is\s+set$`)
	envCompareRe    = regexp.MustCompile(`(?i)^env\.([a-z0-9_]+)\s*(==|!=)\s*["']([^"']+)["']$`)
)

// ParseCondition parses s. Patterns are anchored and tried in a fixed
// order; the first match wins.
func ParseCondition(s string) (Condition, error) {
	in := strings.TrimSpace(s)

	if m := configIsSetRe.FindStringSubmatch(in); m != nil {
		return Condition{Kind: ConfigIsSet, Key: m[1]}, nil
	}
	if m := configCompareRe.FindStringSubmatch(in); m != nil {
		kind := ConfigEquals
		if m[2] == "!=" {
			kind = ConfigNotEquals
		}
		return Condition{Kind: kind, Key: m[1], Value: m[3]}, nil
	}
	if m := envIsSetRe.FindStringSubmatch(in); m != nil {
		return Condition{Kind: EnvIsSet, Key: strings.ToUpper(m[1])}, nil
	}
	if m := envCompareRe.FindStringSubmatch(in); m != nil {
		kind := EnvEquals
		if m[2] == "!=" {
			kind = EnvNotEquals
		}
		return Condition{Kind: kind, Key: strings.ToUpper(m[1]), Value: m[3]}, nil
	}
	return Condition{}, exterr.NewInvalidCondition(in)
}

// Evaluate reports whether c holds. Env kinds read the process environment;
// config kinds read ctx.
func (c Condition) Evaluate(ctx Context) (bool, error) {
	switch c.Kind {
	case ConfigIsSet:
		return ctx.ConfigHas(c.Key), nil
	case ConfigEquals:
		return Normalize(ctx.ConfigGet(c.Key)) == c.Value, nil
	case ConfigNotEquals:
		return Normalize(ctx.ConfigGet(c.Key)) != c.Value, nil
	case EnvIsSet:
		_, ok := os.LookupEnv(c.Key)
		return ok, nil
	case EnvEquals:
		return os.Getenv(c.Key) == c.Value, nil
	case EnvNotEquals:
		return os.Getenv(c.Key) != c.Value, nil
	default:
		return false, fmt.Errorf("unknown condition kind %q", c.Kind)
	}
}

// String renders c back in the condition grammar.
func (c Condition) String() string {
	switch c.Kind {
	case ConfigIsSet:
		return "config." + c.Key + " is set"
	case ConfigEquals:
		return fmt.Sprintf("config.%s == %q", c.Key, c.Value)
	case ConfigNotEquals:
		return fmt.Sprintf("config.%s != %q", c.Key, c.Value)
	case EnvIsSet:
		return "env." + c.Key + " is set"
	case EnvEquals:
		return fmt.Sprintf("env.%s == %q", c.Key, c.Value)
	case EnvNotEquals:
		return fmt.Sprintf("env.%s != %q", c.Key, c.Value)
	default:
		return string(c.Kind)
	}
}

// Normalize renders a config value as the string compared against a
// condition literal. Booleans become "true"/"false", numbers their
// shortest decimal form, and nil the empty string.
func Normalize(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", x)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
