// Package main is the entry point for the deckforge CLI.
//
// Each engine operation is a subcommand: ingest, classify, assemble, and
// list. Decks are ingested once, then slide units can be recombined across
// decks into new presentations.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbaranov/deckforge"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "deckforge",
	Short: "Per-slide extraction and recomposition for PowerPoint decks",
	Long: `deckforge decomposes .pptx presentations into self-contained single-slide
units and recomposes selections of units into new presentations.

Ingest a deck to extract its slides, then assemble units from any number of
ingested decks. Slides whose structure cannot survive extraction (SmartArt,
charts, embedded objects) are flagged and can be carried as pre-rendered
alternate pages instead.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the deckforge version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("deckforge", version)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (JSON)")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default ~/.deckforge)")
	rootCmd.PersistentFlags().String("db", "", "database path (default <data-dir>/deckforge.db)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the engine configuration from defaults, the optional
// config file, and persistent flags, in that precedence order.
func loadConfig(cmd *cobra.Command) (deckforge.Config, error) {
	cfg := deckforge.DefaultConfig()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("opening config: %w", err)
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DBPath = db
	}
	return cfg, nil
}

// newEngine opens the engine for a command invocation.
func newEngine(cmd *cobra.Command) (deckforge.Engine, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return deckforge.New(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
