package main

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/aliceagent/alice-display/internal/app"
	"github.com/aliceagent/alice-display/internal/config"
	"github.com/aliceagent/alice-display/internal/display"

	"github.com/spf13/cobra"
)

// Exit status 1 means no image could be selected; 2 is any other failure.
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "alice: %v\n", err)
		if errors.Is(err, display.ErrNoSelection) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

// newApp reads the config and creates an AliceApp. The caller must defer app.Close().
// command identifies the CLI command being run (e.g. "select", "stats").
func newApp(command string, opts app.Options) (*app.AliceApp, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewAliceApp(cfg, command, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

var rootCmd = &cobra.Command{
	Use:           "alice",
	Short:         "Pick the image to show for the current weather and time of day",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// select command
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select an image for the current conditions",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		showStats, _ := cmd.Flags().GetBool("stats")

		opts := app.Options{Verbose: verbose}
		if cmd.Flags().Changed("seed") {
			seed, _ := cmd.Flags().GetUint64("seed")
			opts.Seed = &seed
		}

		req := app.SelectRequest{}
		req.Weather, _ = cmd.Flags().GetString("weather")
		req.TimeOfDay, _ = cmd.Flags().GetString("time")
		req.DryRun, _ = cmd.Flags().GetBool("dry-run")
		req.NoAvoidRecent, _ = cmd.Flags().GetBool("no-avoid-recent")
		if cmd.Flags().Changed("hour") {
			hour, _ := cmd.Flags().GetInt("hour")
			if hour < 0 || hour > 23 {
				return fmt.Errorf("--hour must be in 0-23, got %d", hour)
			}
			req.Hour = display.AtHour(hour)
		}

		opts.ReadOnly = req.DryRun
		a, err := newApp("select", opts)
		if err != nil {
			return err
		}
		defer a.Close()

		if showStats {
			s, err := a.Stats()
			if err != nil {
				a.Finish(err)
				return err
			}
			printStats(s)
			fmt.Println()
		}

		res, err := a.Select(req)
		a.Finish(err)
		if err != nil {
			return err
		}

		sel := res.Selection
		fmt.Printf("Conditions: %s / %s (hour %d)\n", res.Conditions.Condition, res.Conditions.TimePeriod, res.Hour)
		fmt.Printf("Selected:   %s  %s\n", sel.Record.Key(), sel.Record.Name)
		fmt.Printf("URL:        %s\n", sel.Record.DisplayURL())
		fmt.Printf("Stage:      %s (%d candidate(s))\n", sel.Stage, sel.Candidates)
		if sel.RelaxedRecency {
			fmt.Println("Note:       recently shown images were allowed back")
		}
		if req.DryRun {
			fmt.Println("Dry run: nothing written.")
		}
		for _, p := range res.Written {
			fmt.Printf("Wrote %s\n", p)
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("stats", app.Options{ReadOnly: true})
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Stats()
		a.Finish(err)
		if err != nil {
			return err
		}
		printStats(s)
		return nil
	},
}

func printStats(s display.Stats) {
	fmt.Printf("Total images:    %d\n", s.Total)
	fmt.Printf("Verified:        %d\n", s.Verified)
	fmt.Printf("With CDN URL:    %d\n", s.WithCDNURL)
	fmt.Printf("Holiday:         %d\n", s.Holiday)
	fmt.Printf("Recently shown:  %d\n", s.RecentlyShown)
	printCounts("By weather", s.ByWeather)
	printCounts("By time of day", s.ByTimeOfDay)
	printCounts("By activity", s.ByActivity)
}

func printCounts(title string, counts map[string]int) {
	fmt.Printf("\n%s:\n", title)
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		fmt.Printf("  %-20s %d\n", k, counts[k])
	}
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent selections",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("history", app.Options{ReadOnly: true})
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.History(limit)
		a.Finish(err)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No selections recorded.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s  %-10s  %-14s  %-12s  %s\n",
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Weather,
				e.TimeOfDay,
				e.ID,
				e.Name,
			)
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Catalog:      %s\n", cfg.Catalog.Path)
		fmt.Printf("URL Map:      %s\n", cfg.Catalog.URLMapPath)
		fmt.Printf("History:      %s\n", historyLocation(cfg.History))
		fmt.Printf("Weather:      %s\n", cfg.Weather.Path)
		fmt.Printf("Output:       %s\n", cfg.Output.SelectedPath)
		fmt.Printf("Control:      %s\n", cfg.Output.ControlPath)
		fmt.Printf("Match Mode:   %s\n", cfg.Selection.MatchMode)
		fmt.Printf("Fallbacks:    %s\n", cfg.Selection.Fallbacks)
		fmt.Printf("Recency:      %dh (avoid=%t)\n", cfg.Selection.RecencyHours, cfg.Selection.AvoidRecent)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		return nil
	},
}

func historyLocation(h config.HistoryConfig) string {
	switch h.Type {
	case "sqlite":
		return "sqlite " + h.DataDir
	case "memory":
		return "memory"
	default:
		return "file " + h.Path
	}
}

const keysHelp = `Generate an age key pair for sealed catalogs. The private key is protected
with the passphrase in ALICE_KEY_PASSPHRASE when it is set, and stored in
plaintext otherwise.`

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the key pair for sealed catalogs",
	Long:  keysHelp,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		pub, err := app.SetupKeys(cfg.Encryption, app.KeyPassphrase())
		if err != nil {
			return err
		}

		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		fmt.Printf("Public key:  %s\n", pub)
		return nil
	},
}

// catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and seal the image catalog",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report catalog entries that can never be selected",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("catalog-check", app.Options{ReadOnly: true})
		if err != nil {
			return err
		}
		defer a.Close()

		report := a.CheckCatalog()
		a.Finish(nil)

		fmt.Printf("Images:    %d\n", report.Total)
		fmt.Printf("Eligible:  %d\n", report.Eligible)
		fmt.Printf("Holiday:   %d\n", report.Holiday)
		if len(report.MissingURL) > 0 {
			fmt.Printf("\nNo location (%d):\n", len(report.MissingURL))
			for _, k := range report.MissingURL {
				fmt.Printf("  %s\n", k)
			}
		}
		if len(report.Untagged) > 0 {
			fmt.Printf("\nMissing weather or time of day (%d):\n", len(report.Untagged))
			for _, k := range report.Untagged {
				fmt.Printf("  %s\n", k)
			}
		}
		if report.Eligible == 0 {
			return display.ErrNoSelection
		}
		return nil
	},
}

var catalogSealCmd = &cobra.Command{
	Use:   "seal FILENAME",
	Short: "Encrypt a catalog export with the configured public key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp("catalog-seal", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		dst, err := a.SealCatalog(args[0], output)
		a.Finish(err)
		if err != nil {
			return err
		}

		fmt.Printf("Sealed catalog written to %s\n", dst)
		return nil
	},
}

func init() {
	// select flags
	selectCmd.Flags().String("weather", "", "Override the weather condition")
	selectCmd.Flags().String("time", "", "Override the time-of-day label")
	selectCmd.Flags().Int("hour", 0, "Override the local hour (0-23)")
	selectCmd.Flags().Uint64("seed", 0, "Seed the weighted draw for a reproducible pick")
	selectCmd.Flags().Bool("dry-run", false, "Select without writing history or output files")
	selectCmd.Flags().Bool("stats", false, "Print catalog statistics before selecting")
	selectCmd.Flags().Bool("no-avoid-recent", false, "Allow recently shown images on the first pass")
	selectCmd.Flags().BoolP("verbose", "v", false, "Log debug detail")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// catalog subcommands
	catalogCmd.AddCommand(catalogCheckCmd)
	catalogCmd.AddCommand(catalogSealCmd)
	catalogSealCmd.Flags().StringP("output", "o", "", "Sealed output path (default FILENAME.age)")

	// root commands
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 10, "Maximum number of selections to show")
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(catalogCmd)
}
