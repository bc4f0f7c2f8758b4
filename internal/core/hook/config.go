package hook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LocalConfigName is the per-developer override file, never committed.
const LocalConfigName = "local-config.yml"

// ExtensionDir is the installed location of an extension in a project.
func ExtensionDir(projectDir, extensionID string) string {
	return filepath.Join(projectDir, ".specify", "extensions", extensionID)
}

// ProjectConfigName is the shared config file of an extension.
func ProjectConfigName(extensionID string) string {
	return extensionID + "-config.yml"
}

// EnvPrefix is the environment prefix of an extension's config keys:
// SPECIFY_<ID>, with hyphens mapped to underscores.
func EnvPrefix(extensionID string) string {
	return "SPECIFY_" + strings.ToUpper(strings.ReplaceAll(extensionID, "-", "_"))
}

// ExtensionConfig is the layered configuration of one installed extension.
// Later layers win: manifest defaults, <id>-config.yml, local-config.yml,
// then SPECIFY_<ID>_<KEY> environment variables (dots become underscores).
// It implements Context.
type ExtensionConfig struct {
	v *viper.Viper
}

// LoadExtensionConfig reads the config layers of extensionID. Missing
// files are skipped; malformed files are errors.
func LoadExtensionConfig(projectDir, extensionID string, defaults map[string]any) (*ExtensionConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	dir := ExtensionDir(projectDir, extensionID)
	for _, name := range []string{ProjectConfigName(extensionID), LocalConfigName} {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		err = v.MergeConfig(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix(extensionID))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &ExtensionConfig{v: v}, nil
}

// ConfigHas reports whether path is set in any layer.
func (c *ExtensionConfig) ConfigHas(path string) bool {
	return c.v.IsSet(path)
}

// ConfigGet returns the effective value of path, or nil.
func (c *ExtensionConfig) ConfigGet(path string) any {
	return c.v.Get(path)
}

// Settings returns the effective config tree.
func (c *ExtensionConfig) Settings() map[string]any {
	return c.v.AllSettings()
}
