package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"snapgc/internal/app"
	"snapgc/internal/config"
	"snapgc/internal/database"
	"snapgc/internal/model"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a SnapGCApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "run", "daemon").
func newApp(ctx context.Context, operation string) (*app.SnapGCApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewSnapGCApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "snapgc",
	Short:        "Snapshot deletion reconciler",
	SilenceUsage: true,
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
		zone, _ := cmd.Flags().GetString("zone")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := defaults.Config(zone)
		if err != nil {
			return err
		}

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Zone:     %s\n", cfg.Zone)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		fmt.Printf("Database: %s\n", defaults.DataDir)
		fmt.Printf("Interval: %s\n", defaults.Interval)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Zone:        %s\n", cfg.Zone)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Interval:    %s\n", cfg.Interval())
		fmt.Printf("Database:    %s\n", cfg.Database.Type)
		fmt.Printf("Block Tier:  %s (%s)\n", cfg.BlockTier.Name, cfg.BlockTier.Type)
		fmt.Printf("Object Tier: %s (%s)\n", cfg.ObjectTier.Name, cfg.ObjectTier.Type)
		if cfg.Metrics.ListenAddr != "" {
			fmt.Printf("Metrics:     %s\n", cfg.Metrics.ListenAddr)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the snapshot database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		db, err := database.NewDatabaseFromConfig(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return err
		}

		fmt.Printf("Database at %s is up to date\n", db.Path())
		return nil
	},
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "run")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.RunCycle(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Cycle %s: %s in %s\n", report.RunID, report.Status(), report.Duration().Truncate(time.Millisecond))
		fmt.Printf("  primary:   %d candidates, %d advanced, %d deleted, %d skipped, %d failed\n",
			report.Primary.Candidates, report.Primary.Advanced, report.Primary.Deleted, report.Primary.Skipped, report.Primary.Failed)
		fmt.Printf("  secondary: %d candidates, %d deleted, %d held, %d skipped, %d failed\n",
			report.Secondary.Candidates, report.Secondary.Deleted, report.Secondary.Held, report.Secondary.Skipped, report.Secondary.Failed)
		return nil
	},
}

// daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run reconciliation cycles until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "daemon")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(ctx, interval)
	},
}

// mark command
var markCmd = &cobra.Command{
	Use:   "mark SNAPSHOT_ID",
	Short: "Mark a snapshot for deletion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "mark")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.MarkForDeletion(ctx, args[0]); err != nil {
			return err
		}

		fmt.Printf("Snapshot %s marked for deletion\n", args[0])
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show snapshot counts per status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, "status")
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.GetStatus(ctx)
		if err != nil {
			return err
		}

		if len(counts) == 0 {
			fmt.Println("No snapshots recorded.")
			return nil
		}

		statuses := make([]string, 0, len(counts))
		for s := range counts {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)

		for _, s := range statuses {
			fmt.Printf("%-22s %d\n", s, counts[model.Status(s)])
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View reconciliation cycle history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(ctx, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		cycles, err := a.GetHistory(ctx, limit)
		if err != nil {
			return err
		}

		if len(cycles) == 0 {
			fmt.Println("No cycles recorded.")
			return nil
		}

		for _, c := range cycles {
			duration := ""
			if c.FinishedAt.Valid {
				d := c.FinishedAt.Time.Sub(c.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %s  %-8s  primary %d/%d  secondary %d/%d held %d  %s\n",
				c.ID,
				c.StartedAt.Format("2006-01-02 15:04:05"),
				c.Status,
				c.PrimaryDeleted, c.PrimaryCandidates,
				c.SecondaryDeleted, c.SecondaryCandidates, c.SecondaryHeld,
				duration,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("zone", "", "Zone this reconciler runs in (default: $SNAPGC_ZONE, then hostname)")

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().Duration("interval", 0, "Time between cycles (default: reconciler.interval from config, or 30s)")
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of cycles to show")
}
