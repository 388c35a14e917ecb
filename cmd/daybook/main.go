package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	daybook "github.com/unowned-ai/daybook/pkg"
	"github.com/unowned-ai/daybook/pkg/config"
	"github.com/unowned-ai/daybook/pkg/seed"
)

var (
	dbPath    string
	walMode   bool
	syncMode  string
	logLevel  string
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:           "daybook",
	Short:         "A personal journal you can read in the browser and edit from the terminal.",
	Version:       fmt.Sprintf("v%s", daybook.Version),
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionCmd = &cobra.Command{
	Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for daybook.

The command prints a completion script to stdout. You can source it in your shell
or install it to the appropriate location for your shell to enable completions permanently.

Examples:

  Bash (current shell):
    $ source <(daybook completion bash)

  Zsh:
    $ daybook completion zsh > "${fpath[1]}/_daybook"

  Fish:
    $ daybook completion fish > ~/.config/fish/completions/daybook.fish

  PowerShell:
    PS> daybook completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of daybook",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), daybook.Version)
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the daybook database",
	Long:  `Provides commands for managing the daybook database, including schema upgrades and demo data.`,
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the database schema to the latest version",
	Long: `Connects to the configured database (SQLite by default, or PostgreSQL when
database.driver is "postgres") and applies any schema migrations needed to bring
the daybookdb component up to the current application schema version. A new or
empty database is initialized with the latest schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := cliLogger(cfg, cmd.ErrOrStderr())

		target := cfg.Database.Path
		if cfg.Database.Driver == config.DriverPostgres {
			target = "postgres"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Upgrading daybookdb component in %s (driver: %s)\n", target, cfg.Database.Driver)

		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return store.Close()
	},
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with generated entries",
	Long: `Creates --count generated entries with titles, paragraphs of text, and tags.
The same --seed always produces the same entries, so demo data is reproducible.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		seedValue, _ := cmd.Flags().GetInt64("seed")
		if seedValue == 0 {
			seedValue = time.Now().UnixNano()
		}

		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		created, err := seed.Seed(cmd.Context(), svc, seed.NewGenerator(seedValue, time.Now()), count, nil)
		if err != nil {
			return err
		}
		for _, e := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", e.UUID, e.Date, e.Title)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d entries.\n", len(created))
		return nil
	},
}

func initCmd() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the SQLite database file (overrides database.path and selects the sqlite driver)")
	rootCmd.PersistentFlags().BoolVar(&walMode, "wal", true, "Enable SQLite WAL (Write-Ahead Logging) mode")
	rootCmd.PersistentFlags().StringVar(&syncMode, "sync", "NORMAL", "SQLite synchronous pragma (OFF, NORMAL, FULL, EXTRA)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Base URL of a running daybook server to use instead of the local database")

	dbSeedCmd.Flags().Int("count", 20, "Number of entries to create")
	dbSeedCmd.Flags().Int64("seed", 0, "Random seed for the generated entries (0 picks one)")
	dbCmd.AddCommand(dbUpgradeCmd, dbSeedCmd)

	initEntriesCmd()
	initTagsCmd()
	rootCmd.AddCommand(completionCmd, versionCmd, dbCmd, entriesCmd, tagsCmd, editCmd, newCmd, serveCmd, mcpCmd)
}

func main() {
	initCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
