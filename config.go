package deckforge

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the deckforge engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to <DataDir>/deckforge.db.
	DBPath string `json:"db_path" yaml:"db_path"`

	// DataDir is the root directory for extracted units, alternate pages,
	// and assembled outputs. Options for the default location follow
	// StorageDir; subdirectories units/, pages/ and exports/ are created
	// underneath it.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// StorageDir controls where DataDir is created when it is not set
	// explicitly. Options: "home" (default) uses ~/.deckforge/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// ComplexityThreshold is the score at or above which a slide is flagged
	// as requiring an alternate representation. Tunable policy, not protocol.
	ComplexityThreshold int `json:"complexity_threshold" yaml:"complexity_threshold"`

	// ExtractConcurrency bounds the worker pool for per-slide extraction
	// during deck ingestion (default 8).
	ExtractConcurrency int `json:"extract_concurrency" yaml:"extract_concurrency"`

	// Rendering of alternate-representation pages.
	RenderEnabled     bool   `json:"render_enabled" yaml:"render_enabled"`
	SofficePath       string `json:"soffice_path" yaml:"soffice_path"`             // LibreOffice binary; looked up in PATH when empty
	RenderTimeoutSecs int    `json:"render_timeout_secs" yaml:"render_timeout_secs"` // per-deck conversion timeout (default 60)

	// ProbeChartWorkbooks enables opening embedded chart workbooks of flagged
	// slides to enrich the ingestion audit trail.
	ProbeChartWorkbooks bool `json:"probe_chart_workbooks" yaml:"probe_chart_workbooks"`
}

// DefaultConfig returns a Config with sensible defaults for local use.
// Data is stored under ~/.deckforge/ by default.
func DefaultConfig() Config {
	return Config{
		StorageDir:          "home",
		ComplexityThreshold: 15,
		ExtractConcurrency:  8,
		RenderEnabled:       true,
		RenderTimeoutSecs:   60,
		ProbeChartWorkbooks: true,
	}
}

// resolveDataDir computes the final data directory from config fields.
func (c *Config) resolveDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}

	switch c.StorageDir {
	case "local", "cwd":
		return ".deckforge"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return ".deckforge" // fallback to cwd
		}
		return filepath.Join(home, ".deckforge")
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.resolveDataDir(), "deckforge.db")
}
