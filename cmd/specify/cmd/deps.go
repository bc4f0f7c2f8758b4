package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/barysiuk/specify/internal/core"
	"github.com/barysiuk/specify/internal/core/catalog"
	"github.com/barysiuk/specify/internal/logging"
)

// deps holds shared dependencies for CLI commands.
type deps struct {
	config *core.ConfigManager
	cfg    *core.Config
	logger *slog.Logger
}

// newDeps creates shared dependencies. Called lazily by commands that need them.
func newDeps(cmd *cobra.Command) (*deps, error) {
	config, err := core.NewConfigManager()
	if err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	return &deps{
		config: config,
		cfg:    cfg,
		logger: logging.New(os.Stderr, verbose),
	}, nil
}

// manager builds a Manager for projectDir. withCatalog resolves the
// catalog URL, which fails for an insecure SPECIFY_CATALOG_URL.
func (d *deps) manager(projectDir string, withCatalog bool) (*core.Manager, error) {
	var cat *catalog.Client
	if withCatalog {
		u, err := catalog.ResolveURL(d.cfg.CatalogURL)
		if err != nil {
			return nil, err
		}
		cat = catalog.New(projectDir,
			catalog.WithURL(u),
			catalog.WithTTL(d.cfg.CacheTTL()),
			catalog.WithHTTPClient(&http.Client{Timeout: d.cfg.Timeout()}),
			catalog.WithLogger(d.logger),
		)
	}
	return core.NewManager(projectDir, Version, cat, d.logger), nil
}
