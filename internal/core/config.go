package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tailscale/hujson"

	"github.com/barysiuk/specify/internal/core/agent"
	"github.com/barysiuk/specify/internal/core/catalog"
	"github.com/barysiuk/specify/internal/core/fileutil"
)

const (
	configDirName  = ".specify"
	configFileName = "config.json"
)

// ConfigManager handles reading and writing the tool configuration.
type ConfigManager struct {
	configDir string
	mu        sync.RWMutex
}

// NewConfigManager creates a ConfigManager using the default config path (~/.specify/).
func NewConfigManager() (*ConfigManager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return &ConfigManager{
		configDir: filepath.Join(home, configDirName),
	}, nil
}

// NewConfigManagerWithDir creates a ConfigManager using a custom config directory.
// Useful for testing.
func NewConfigManagerWithDir(dir string) *ConfigManager {
	return &ConfigManager{configDir: dir}
}

// ConfigPath returns the full path to the config file.
func (cm *ConfigManager) ConfigPath() string {
	return filepath.Join(cm.configDir, configFileName)
}

// Load reads the config from disk. Returns default config if file doesn't
// exist. Comments and trailing commas are accepted.
func (cm *ConfigManager) Load() (*Config, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	data, err := os.ReadFile(cm.ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to disk atomically, creating the directory if needed.
func (cm *ConfigManager) Save(cfg *Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := fileutil.WriteAtomic(cm.ConfigPath(), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

// ConfigKeys lists the keys accepted by Config.Set, in display order.
var ConfigKeys = []string{"catalogUrl", "catalogCacheTTL", "defaultAgents", "httpTimeout"}

// Set assigns value to key after validating it. An empty value resets the
// key to its default.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "catalogUrl":
		if value != "" {
			if err := catalog.ValidateURL(value); err != nil {
				return err
			}
		}
		c.CatalogURL = value
	case "catalogCacheTTL":
		if err := checkDuration(key, value); err != nil {
			return err
		}
		c.CatalogCacheTTL = value
	case "httpTimeout":
		if err := checkDuration(key, value); err != nil {
			return err
		}
		c.HTTPTimeout = value
	case "defaultAgents":
		var names []string
		for _, n := range strings.Split(value, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		if _, err := agent.ByNames(names); err != nil {
			return err
		}
		c.DefaultAgents = names
	default:
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(ConfigKeys, ", "))
	}
	return nil
}

func checkDuration(key, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fmt.Errorf("%s: %q is not a positive duration such as 30m", key, value)
	}
	return nil
}
