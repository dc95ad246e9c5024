// Package main implements the unified playlog binary.
// One invocation runs one batch: fetch and merge the recently-played page
// (sync), archive cached events to the object store (archive), or both
// (all). Runs must not overlap against the same data directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/playlog/playlog/internal/app"
	"github.com/playlog/playlog/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configFile  string
		dataDir     string
		mode        string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&mode, "mode", "", "Pipeline mode: all, sync, archive, report")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "playlog - play-history ingestion and archival pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Usage: playlog [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  playlog --data-dir /data/playlog\n")
		fmt.Fprintf(os.Stderr, "  playlog --mode archive --data-dir /data/playlog\n")
		fmt.Fprintf(os.Stderr, "  playlog --config /etc/playlog/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PLAYLOG_MODE              Pipeline mode (all, sync, archive, report)\n")
		fmt.Fprintf(os.Stderr, "  PLAYLOG_DATA_DIR          Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  PLAYLOG_SPOTIFY_TOKEN     Bearer token for the recently-played call\n")
		fmt.Fprintf(os.Stderr, "  PLAYLOG_ARCHIVE_TIMEZONE  Target civil timezone for archival\n")
		fmt.Fprintf(os.Stderr, "  PLAYLOG_STORAGE_TYPE      Storage type (local, s3)\n")
		fmt.Fprintf(os.Stderr, "  PLAYLOG_S3_BUCKET         Bucket for archived records\n")
		fmt.Fprintf(os.Stderr, "  PLAYLOG_NOTIFY_ENDPOINT   Optional notification endpoint\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("playlog version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// A .env next to the binary supplies tokens and bucket credentials in
	// cron setups; absence is fine.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	cfg, err := loadConfig(configFile, dataDir, mode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	printBanner(cfg)

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile, dataDir, mode string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if mode != "" {
		cfg.Mode = config.Mode(mode)
	}

	return cfg, nil
}

// printBanner prints the startup configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("playlog %s starting", version)
	log.Printf("Configuration:")
	log.Printf("  Mode:     %s", cfg.Mode)
	log.Printf("  Data Dir: %s", cfg.DataDir)
	log.Printf("  Storage:  %s", cfg.Storage.Type)
	if cfg.ShouldRunArchive() {
		log.Printf("  Timezone: %s", cfg.Archive.Timezone)
	}
}
