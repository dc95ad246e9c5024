// Package config provides unified configuration for the playlog pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/playlog/playlog/internal/errors"
)

// Mode represents the pipeline stage(s) to run.
type Mode string

const (
	ModeAll     Mode = "all"
	ModeSync    Mode = "sync"
	ModeArchive Mode = "archive"
	ModeReport  Mode = "report"
)

// Config holds the unified configuration for the playlog pipeline.
type Config struct {
	// Mode specifies which stages to run: all, sync, archive, report
	Mode Mode `json:"mode" yaml:"mode"`

	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Spotify upstream API configuration
	Spotify SpotifyConfig `json:"spotify" yaml:"spotify"`

	// Export configuration (durable log and report sinks)
	Export ExportConfig `json:"export" yaml:"export"`

	// Archive configuration
	Archive ArchiveConfig `json:"archive" yaml:"archive"`

	// Storage configuration (object store for archival)
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Notify configuration (best-effort run notifications)
	Notify NotifyConfig `json:"notify" yaml:"notify"`
}

// SpotifyConfig holds upstream API configuration.
type SpotifyConfig struct {
	// BaseURL is the API base URL (overridable for tests)
	BaseURL string `json:"base_url" yaml:"base_url"`

	// AccessToken is the bearer token for the recently-played call.
	// Token acquisition (the OAuth flow) happens outside this process.
	AccessToken string `json:"-" yaml:"-"`

	// FetchLimit is the page size for the recently-played call (1-50).
	// Plays beyond one page between runs are unreachable; this is a
	// coverage limitation of the upstream endpoint, not a retry target.
	FetchLimit int `json:"fetch_limit" yaml:"fetch_limit"`

	// StreamDir is the directory for raw play-event JSON files
	StreamDir string `json:"stream_dir" yaml:"stream_dir"`
}

// ExportConfig holds durable log and report output configuration.
type ExportConfig struct {
	// Dir is the directory for the durable log and report files
	Dir string `json:"dir" yaml:"dir"`

	// LogFile is the semicolon-delimited durable log path
	LogFile string `json:"log_file" yaml:"log_file"`

	// ReportFile is the rendered wiki report path
	ReportFile string `json:"report_file" yaml:"report_file"`
}

// ArchiveConfig holds archival normalization configuration.
type ArchiveConfig struct {
	// Timezone is the IANA name of the target civil timezone
	Timezone string `json:"timezone" yaml:"timezone"`

	// StripField is removed recursively from every archived document
	StripField string `json:"strip_field" yaml:"strip_field"`

	// CatalogPath is the path to the upload catalog database
	CatalogPath string `json:"catalog_path" yaml:"catalog_path"`

	// KeyPrefix is the object key prefix for archived records
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for MinIO and other S3-compatible stores)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// NotifyConfig holds notification configuration.
type NotifyConfig struct {
	// Endpoint is the base URL of the notification service; empty disables
	// notifications entirely
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Mode:    ModeAll,
		DataDir: "./data/playlog",
		Spotify: SpotifyConfig{
			BaseURL:    "https://api.spotify.com/v1",
			FetchLimit: 50,
		},
		Archive: ArchiveConfig{
			Timezone:   "Europe/Berlin",
			StripField: "available_markets",
			KeyPrefix:  "streams/raw",
		},
		Storage: StorageConfig{
			Type: "local",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/playlog"
	}

	if c.Spotify.StreamDir == "" {
		c.Spotify.StreamDir = filepath.Join(c.DataDir, "streams")
	}

	if c.Export.Dir == "" {
		c.Export.Dir = filepath.Join(c.DataDir, "export")
	}
	if c.Export.LogFile == "" {
		c.Export.LogFile = filepath.Join(c.Export.Dir, "spotify_recently_played.csv")
	}
	if c.Export.ReportFile == "" {
		c.Export.ReportFile = filepath.Join(c.Export.Dir, "smw_subobjects.txt")
	}

	if c.Archive.CatalogPath == "" {
		c.Archive.CatalogPath = filepath.Join(c.DataDir, "uploads.db")
	}

	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
}

// Validate validates the configuration. Validation runs before any I/O so
// a missing setting aborts the run without side effects.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAll, ModeSync, ModeArchive, ModeReport:
		// Valid modes
	default:
		return apperrors.NewConfigError(apperrors.CodeInvalidSetting,
			fmt.Sprintf("invalid mode: %s (must be all, sync, archive, or report)", c.Mode))
	}

	if c.DataDir == "" {
		return apperrors.NewConfigError(apperrors.CodeMissingSetting, "data_dir is required")
	}

	if c.Spotify.FetchLimit < 1 || c.Spotify.FetchLimit > 50 {
		return apperrors.NewConfigError(apperrors.CodeInvalidSetting,
			fmt.Sprintf("spotify.fetch_limit must be between 1 and 50, got %d", c.Spotify.FetchLimit))
	}

	if c.ShouldRunSync() && c.Spotify.AccessToken == "" {
		return apperrors.NewConfigError(apperrors.CodeMissingSetting,
			"PLAYLOG_SPOTIFY_TOKEN is required when mode includes sync")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return apperrors.NewConfigError(apperrors.CodeInvalidSetting,
			fmt.Sprintf("invalid storage type: %s (must be local or s3)", c.Storage.Type))
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return apperrors.NewConfigError(apperrors.CodeMissingSetting,
			"s3.bucket is required when storage type is s3")
	}

	if c.Archive.Timezone == "" {
		return apperrors.NewConfigError(apperrors.CodeMissingSetting, "archive.timezone is required")
	}

	if c.Archive.StripField == "" {
		return apperrors.NewConfigError(apperrors.CodeMissingSetting, "archive.strip_field is required")
	}

	return nil
}

// ShouldRunSync returns true if the fetch/merge/report stage should run.
func (c *Config) ShouldRunSync() bool {
	return c.Mode == ModeAll || c.Mode == ModeSync
}

// ShouldRunArchive returns true if the archival upload stage should run.
func (c *Config) ShouldRunArchive() bool {
	return c.Mode == ModeAll || c.Mode == ModeArchive
}

// ShouldRunReport returns true if the report stage should run standalone.
func (c *Config) ShouldRunReport() bool {
	return c.Mode == ModeReport
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the PLAYLOG_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("PLAYLOG_MODE"); v != "" {
		cfg.Mode = Mode(v)
	}
	if v := os.Getenv("PLAYLOG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Spotify configuration
	if v := os.Getenv("PLAYLOG_SPOTIFY_TOKEN"); v != "" {
		cfg.Spotify.AccessToken = v
	}
	if v := os.Getenv("PLAYLOG_SPOTIFY_BASE_URL"); v != "" {
		cfg.Spotify.BaseURL = v
	}
	if v := os.Getenv("PLAYLOG_SPOTIFY_FETCH_LIMIT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Spotify.FetchLimit)
	}
	if v := os.Getenv("PLAYLOG_STREAM_DIR"); v != "" {
		cfg.Spotify.StreamDir = v
	}

	// Archive configuration
	if v := os.Getenv("PLAYLOG_ARCHIVE_TIMEZONE"); v != "" {
		cfg.Archive.Timezone = v
	}
	if v := os.Getenv("PLAYLOG_ARCHIVE_STRIP_FIELD"); v != "" {
		cfg.Archive.StripField = v
	}

	// Storage configuration
	if v := os.Getenv("PLAYLOG_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("PLAYLOG_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("PLAYLOG_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("PLAYLOG_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("PLAYLOG_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("PLAYLOG_S3_PATH_STYLE"); v != "" {
		cfg.Storage.S3.UsePathStyle = v == "true" || v == "1"
	}

	// Notify configuration
	if v := os.Getenv("PLAYLOG_NOTIFY_ENDPOINT"); v != "" {
		cfg.Notify.Endpoint = v
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.Spotify.StreamDir,
		c.Export.Dir,
		c.Storage.Path,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
