package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/barysiuk/specify/internal/core"
	"github.com/barysiuk/specify/internal/core/catalog"
	"github.com/barysiuk/specify/internal/tui"
)

var extensionCmd = &cobra.Command{
	Use:     "extension",
	Aliases: []string{"ext"},
	Short:   "Manage project extensions",
	Long: `Install, remove and inspect extensions. An extension adds commands to
every coding agent configured in the project and may register hooks.`,
}

func init() {
	extensionCmd.PersistentFlags().Bool("json", false, "Output as JSON for scripting")
	rootCmd.AddCommand(extensionCmd)
}

// wantsJSON reports whether --json was given to the command that ran.
func wantsJSON() bool {
	v, _ := extensionCmd.PersistentFlags().GetBool("json")
	return v
}

// --- add ---

var extensionAddCmd = &cobra.Command{
	Use:   "add <id|path>",
	Short: "Install an extension",
	Long: `Install an extension from the catalog by id.

With --dev the argument is a local extension directory or .zip archive.
With --from the argument is ignored and the archive at the URL is installed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		targetDir, err := resolveTargetDir(cmd)
		if err != nil {
			return err
		}

		dev, _ := cmd.Flags().GetBool("dev")
		from, _ := cmd.Flags().GetString("from")
		agentsFlag, _ := cmd.Flags().GetString("agents")
		if from == "" && len(args) == 0 {
			return fmt.Errorf("an extension id or path is required")
		}

		opts := core.InstallOptions{Agents: splitList(agentsFlag)}
		if len(opts.Agents) == 0 {
			opts.Agents = d.cfg.DefaultAgents
		}

		mgr, err := d.manager(targetDir, !dev)
		if err != nil {
			return err
		}

		ctx := context.Background()
		var result *core.InstallResult
		switch {
		case from != "":
			result, err = mgr.InstallFromURL(ctx, from, opts)
		case dev && strings.EqualFold(filepath.Ext(args[0]), ".zip"):
			result, err = mgr.InstallFromZip(args[0], opts)
		case dev:
			src, absErr := filepath.Abs(args[0])
			if absErr != nil {
				return absErr
			}
			result, err = mgr.InstallFromDirectory(src, opts)
		default:
			result, err = mgr.InstallFromCatalog(ctx, args[0], opts)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if wantsJSON() {
			return printJSON(out, result)
		}
		fmt.Fprintf(out, "%s %s %s (%s)\n", tui.Success("Installed"), result.ID, result.Version, result.Name)
		if len(result.Commands) == 0 {
			fmt.Fprintln(out, tui.Warning("  No agent directories found; no commands were registered."))
		}
		for _, agent := range slices.Sorted(maps.Keys(result.Commands)) {
			fmt.Fprintf(out, "  %s: %s\n", agent, strings.Join(result.Commands[agent], ", "))
		}
		if len(result.Hooks) > 0 {
			fmt.Fprintf(out, "  Hooks: %s\n", strings.Join(result.Hooks, ", "))
		}
		return nil
	},
}

// --- remove ---

var extensionRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Uninstall an extension",
	Long: `Remove an extension, its registered agent commands and its hooks.

Asks for confirmation on a terminal. Without a terminal, --force is required.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		targetDir, err := resolveTargetDir(cmd)
		if err != nil {
			return err
		}
		keepConfig, _ := cmd.Flags().GetBool("keep-config")
		force, _ := cmd.Flags().GetBool("force")
		id := args[0]

		mgr, err := d.manager(targetDir, false)
		if err != nil {
			return err
		}

		if !force {
			if !isTerminal(os.Stdin) || wantsJSON() {
				return fmt.Errorf("refusing to remove %q without confirmation; pass --force", id)
			}
			ok, err := tui.Confirm(os.Stdin, cmd.OutOrStdout(), fmt.Sprintf("Remove extension %s?", id))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), tui.Muted("Cancelled."))
				return nil
			}
		}

		result, err := mgr.Remove(id, core.RemoveOptions{KeepConfig: keepConfig})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if wantsJSON() {
			return printJSON(out, result)
		}
		fmt.Fprintf(out, "%s %s %s\n", tui.Success("Removed"), result.ID, result.Version)
		fmt.Fprintf(out, "  Deleted %d command file(s)\n", result.Commands)
		if result.BackupDir != "" {
			fmt.Fprintf(out, "  Config kept in %s\n", result.BackupDir)
		}
		return nil
	},
}

// --- list ---

var extensionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed extensions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		targetDir, err := resolveTargetDir(cmd)
		if err != nil {
			return err
		}
		available, _ := cmd.Flags().GetBool("available")

		mgr, err := d.manager(targetDir, available)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if available {
			results, err := mgr.Search(context.Background(), catalog.Query{})
			if err != nil {
				return err
			}
			results = slices.DeleteFunc(results, func(r core.SearchResult) bool { return r.Installed })
			if wantsJSON() {
				return printJSON(out, results)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "Every catalog extension is installed.")
				return nil
			}
			printSearchTable(out, results)
			return nil
		}

		installed, err := mgr.List()
		if err != nil {
			return err
		}
		if wantsJSON() {
			return printJSON(out, installed)
		}
		if len(installed) == 0 {
			fmt.Fprintln(out, tui.Muted("No extensions installed."))
			return nil
		}

		fmt.Fprintln(out, tui.Title("Installed extensions"))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tVersion\tSource\tAgents\tDescription")
		for _, e := range installed {
			agents := strings.Join(slices.Sorted(maps.Keys(e.Commands)), ",")
			if agents == "" {
				agents = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", tui.ID(e.ID), e.Version, e.Source, agents, tui.Truncate(e.Description, 50))
		}
		return w.Flush()
	},
}

// --- search ---

var extensionSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the extension catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		targetDir, err := resolveTargetDir(cmd)
		if err != nil {
			return err
		}

		var q catalog.Query
		if len(args) == 1 {
			q.Text = args[0]
		}
		q.Tag, _ = cmd.Flags().GetString("tag")
		q.Author, _ = cmd.Flags().GetString("author")
		q.VerifiedOnly, _ = cmd.Flags().GetBool("verified")

		mgr, err := d.manager(targetDir, true)
		if err != nil {
			return err
		}
		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			if err := mgr.RefreshCatalog(); err != nil {
				return err
			}
		}
		results, err := mgr.Search(context.Background(), q)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if wantsJSON() {
			return printJSON(out, results)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "No extensions found.")
			return nil
		}
		printSearchTable(out, results)
		return nil
	},
}

func printSearchTable(out io.Writer, results []core.SearchResult) {
	descWidth := max(20, terminalWidth()-50)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVersion\tStatus\tDescription")
	for _, r := range results {
		status := "available"
		if r.Installed {
			status = "installed " + r.InstalledVersion
		}
		if r.Verified {
			status += " ✓"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Version, status, tui.Truncate(r.Description, descWidth))
	}
	_ = w.Flush()
}

// --- info ---

var extensionInfoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show details about an extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		targetDir, err := resolveTargetDir(cmd)
		if err != nil {
			return err
		}
		mgr, err := d.manager(targetDir, true)
		if err != nil {
			return err
		}

		info, err := mgr.Info(context.Background(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if wantsJSON() {
			return printJSON(out, info)
		}
		fmt.Fprint(out, tui.RenderMarkdown(tui.InfoMarkdown(info), min(terminalWidth(), 100), isTerminal(os.Stdout)))
		return nil
	},
}

// --- update ---

var extensionUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update installed extensions from the catalog",
	Long: `Update one extension, or every extension with a newer catalog release.

With --check, only report which updates are available.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		targetDir, err := resolveTargetDir(cmd)
		if err != nil {
			return err
		}
		check, _ := cmd.Flags().GetBool("check")

		mgr, err := d.manager(targetDir, true)
		if err != nil {
			return err
		}
		ctx := context.Background()
		out := cmd.OutOrStdout()

		updates, err := mgr.CheckUpdates(ctx)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			updates = slices.DeleteFunc(updates, func(u core.UpdateInfo) bool { return u.ID != args[0] })
			if len(updates) == 0 {
				// Let Update report the precise failure.
				_, err := mgr.Update(ctx, args[0])
				return err
			}
		}

		if check {
			if updates == nil {
				updates = []core.UpdateInfo{}
			}
			if wantsJSON() {
				return printJSON(out, updates)
			}
			if len(updates) == 0 {
				fmt.Fprintln(out, "No extensions installed.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tInstalled\tAvailable\tStatus")
			for _, u := range updates {
				status := "up to date"
				switch {
				case !u.InCatalog:
					status = "not in catalog"
				case u.UpdateAvailable:
					status = "update available"
				}
				available := u.Available
				if available == "" {
					available = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Installed, available, status)
			}
			return w.Flush()
		}

		var results []core.UpdateResult
		for _, u := range updates {
			if !u.UpdateAvailable {
				continue
			}
			res, err := mgr.Update(ctx, u.ID)
			if err != nil {
				return err
			}
			results = append(results, *res)
		}
		if wantsJSON() {
			if results == nil {
				results = []core.UpdateResult{}
			}
			return printJSON(out, results)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "All extensions are up to date.")
			return nil
		}
		for _, r := range results {
			fmt.Fprintf(out, "%s %s %s -> %s\n", tui.Success("Updated"), r.ID, r.From, r.To)
		}
		return nil
	},
}

// --- hooks ---

var extensionHooksCmd = &cobra.Command{
	Use:   "hooks <event>",
	Short: "List the hooks that run for an event",
	Long: `List extension hooks registered for an event whose conditions hold
for the current configuration and environment. With --all, hooks are listed
without evaluating their conditions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		targetDir, err := resolveTargetDir(cmd)
		if err != nil {
			return err
		}
		all, _ := cmd.Flags().GetBool("all")

		mgr, err := d.manager(targetDir, false)
		if err != nil {
			return err
		}
		hooks := mgr.Hooks().HooksForEvent
		if all {
			hooks = mgr.Hooks().Registered
		}
		entries, err := hooks(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if wantsJSON() {
			return printJSON(out, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintf(out, "No hooks for %s.\n", args[0])
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Extension\tCommand\tOptional\tCondition")
		for _, h := range entries {
			cond := h.Condition
			if cond == "" {
				cond = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", h.Extension, h.Command, h.Optional, cond)
		}
		return w.Flush()
	},
}

func init() {
	extensionAddCmd.Flags().Bool("dev", false, "Install from a local directory or .zip archive")
	extensionAddCmd.Flags().String("from", "", "Install from a .zip archive URL")
	extensionAddCmd.Flags().String("agents", "", "Comma-separated agent names (default: detected agents)")
	addDirFlag(extensionAddCmd)

	extensionRemoveCmd.Flags().Bool("keep-config", false, "Back up config files before removing")
	extensionRemoveCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")
	addDirFlag(extensionRemoveCmd)

	extensionListCmd.Flags().Bool("available", false, "List catalog extensions that are not installed")
	addDirFlag(extensionListCmd)

	extensionSearchCmd.Flags().String("tag", "", "Only extensions with this tag")
	extensionSearchCmd.Flags().String("author", "", "Only extensions by this author")
	extensionSearchCmd.Flags().Bool("verified", false, "Only verified extensions")
	extensionSearchCmd.Flags().Bool("refresh", false, "Fetch the catalog again instead of using the cache")
	addDirFlag(extensionSearchCmd)

	addDirFlag(extensionInfoCmd)

	extensionUpdateCmd.Flags().Bool("check", false, "Only report available updates")
	addDirFlag(extensionUpdateCmd)

	extensionHooksCmd.Flags().Bool("all", false, "Include hooks whose conditions do not hold")
	addDirFlag(extensionHooksCmd)

	extensionCmd.AddCommand(
		extensionAddCmd,
		extensionRemoveCmd,
		extensionListCmd,
		extensionSearchCmd,
		extensionInfoCmd,
		extensionUpdateCmd,
		extensionHooksCmd,
	)
}
