package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/dojang/internal/app"
	"github.com/abhisek/dojang/internal/catalog"
	"github.com/abhisek/dojang/internal/config"
	"github.com/abhisek/dojang/internal/logger"
	"github.com/abhisek/dojang/internal/store"
)

var (
	cfg *config.Config
	log = logger.Nop()
)

// now is the clock used by every command.
var now = func() time.Time { return time.Now().UTC() }

var rootCmd = &cobra.Command{
	Use:   "dojang",
	Short: "Spaced-repetition trainer for taekwondo theory",
	Long: "Dojang schedules taekwondo terminology, patterns and theory with a five-box\n" +
		"Leitner system, gated by the learner's belt rank.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("config")
		c, err := config.Load(file)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := logger.New(logger.Options{
			Mode:  cfg.Log.Mode,
			File:  cfg.Log.File,
			Quiet: !verbose,
		})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides DOJANG_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./dojang.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then db.path from config or DOJANG_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.DB.Path != "" {
		return cfg.DB.Path, store.EnsureDir(cfg.DB.Path)
	}
	return store.DefaultDBPath()
}

// loadCatalog returns the configured curriculum, or nil for the built-in one.
func loadCatalog() (*catalog.Catalog, error) {
	if cfg == nil || cfg.Catalog.Path == "" {
		return nil, nil
	}
	c, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.Catalog.Path, err)
	}
	return c, nil
}

// openApp opens the database and builds the services for one command.
func openApp(cmd *cobra.Command) (*app.App, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	iv, err := cfg.Intervals()
	if err != nil {
		return nil, err
	}
	return app.Open(app.Options{
		DBPath:    dbPath,
		Catalog:   cat,
		Intervals: iv,
		Logger:    log,
	})
}
