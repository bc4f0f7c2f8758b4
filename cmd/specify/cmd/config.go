package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barysiuk/specify/internal/core"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change tool settings",
	Long: `Show or change the settings stored in ~/.specify/config.json: the
catalog URL, catalog cache lifetime, HTTP timeout and the agents commands
are rendered for when none are detected.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), d.cfg)
		}

		values := map[string]string{
			"catalogUrl":      d.cfg.CatalogURL,
			"catalogCacheTTL": d.cfg.CatalogCacheTTL,
			"defaultAgents":   strings.Join(d.cfg.DefaultAgents, ","),
			"httpTimeout":     d.cfg.HTTPTimeout,
		}
		out := cmd.OutOrStdout()
		for _, key := range core.ConfigKeys {
			v := values[key]
			if v == "" {
				v = "(default)"
			}
			fmt.Fprintf(out, "%-16s %s\n", key, v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting. An empty value resets it to the default.
Keys: catalogUrl, catalogCacheTTL, defaultAgents, httpTimeout.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		if err := d.cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := d.config.Save(d.cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], d.config.ConfigPath())
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), d.config.ConfigPath())
		return nil
	},
}

func init() {
	configShowCmd.Flags().Bool("json", false, "Output as JSON")
	configCmd.AddCommand(configShowCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
