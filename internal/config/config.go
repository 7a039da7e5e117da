// Package config holds runtime configuration for photocopy: defaults, the
// optional YAML config file, and validation. Per-run selection bounds
// (sequence range, date range) are not part of the file; they arrive as CLI
// arguments and are turned into a selection.Filter by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"photocopy/internal/metadata"
)

// TimestampSource selects where a file's capture time comes from.
type TimestampSource string

const (
	TimestampMtime TimestampSource = "mtime" // Filesystem modification time.
	TimestampExif  TimestampSource = "exif"  // Embedded DateTimeOriginal tag (default).
)

// ExifReader selects the tag reader used by the exif timestamp source.
type ExifReader string

const (
	ReaderGoexif   ExifReader = "goexif"   // In-process decoder (default).
	ReaderExiftool ExifReader = "exiftool" // External exiftool binary, one batch call per scan.
)

// Copier selects the copy-execution backend.
type Copier string

const (
	CopierRsync   Copier = "rsync"   // rsync with a --files-from list (default).
	CopierBuiltin Copier = "builtin" // In-process copy.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// DefaultConfigName is looked up in the user's home directory when no
// --config flag is given.
const DefaultConfigName = ".photocopy.yaml"

// Config holds the settings that stay the same from one card import to the
// next. It is built once by DefaultConfig/LoadConfig, overridden by CLI
// flags, validated, and then only read.
type Config struct {
	// Paths.
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`

	// Naming convention prefix; files must look like <Prefix><digits>.<ext>.
	Prefix string `yaml:"prefix"`

	// Timestamp resolution.
	Timestamp    TimestampSource `yaml:"timestamp"`
	ExifReader   ExifReader      `yaml:"exif_reader"`
	ExiftoolPath string          `yaml:"exiftool_path"` // Default: "exiftool" from PATH.

	// Transfer.
	Copier    Copier `yaml:"copier"`
	RsyncPath string `yaml:"rsync_path"` // Default: "rsync" from PATH.
	Jobs      int    `yaml:"jobs"`       // Concurrent copies per group for the builtin copier.
	DryRun    bool   `yaml:"-"`
	Manifest  string `yaml:"manifest"` // Optional CSV recording every copied file.

	// Display and logging.
	Verbose  bool      `yaml:"-"`
	LogLevel string    `yaml:"log_level"`
	LogFile  string    `yaml:"log_file"`
	Color    ColorMode `yaml:"color"`
}

// DefaultConfig returns the built-in defaults. Source and Dest match a Canon
// card mounted on macOS and the usual Pictures library.
func DefaultConfig() *Config {
	dest := filepath.Join("Pictures", "Canon")
	if home, err := os.UserHomeDir(); err == nil {
		dest = filepath.Join(home, dest)
	}
	return &Config{
		Source:       "/Volumes/Untitled/DCIM/100CANON",
		Dest:         dest,
		Prefix:       metadata.DefaultPrefix,
		Timestamp:    TimestampExif,
		ExifReader:   ReaderGoexif,
		ExiftoolPath: "exiftool",
		Copier:       CopierRsync,
		RsyncPath:    "rsync",
		Jobs:         4,
		LogLevel:     "info",
		Color:        ColorAuto,
	}
}

// DefaultConfigPath returns $HOME/.photocopy.yaml, or "" when the home
// directory cannot be determined.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultConfigName)
}

// LoadConfig loads configuration from path, merged over DefaultConfig.
// A missing file is not an error; a malformed one is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.merge(&fileCfg)
	return cfg, nil
}

// merge copies every non-zero field of other onto c.
func (c *Config) merge(other *Config) {
	if other.Source != "" {
		c.Source = expandHome(other.Source)
	}
	if other.Dest != "" {
		c.Dest = expandHome(other.Dest)
	}
	if other.Prefix != "" {
		c.Prefix = other.Prefix
	}
	if other.Timestamp != "" {
		c.Timestamp = other.Timestamp
	}
	if other.ExifReader != "" {
		c.ExifReader = other.ExifReader
	}
	if other.ExiftoolPath != "" {
		c.ExiftoolPath = other.ExiftoolPath
	}
	if other.Copier != "" {
		c.Copier = other.Copier
	}
	if other.RsyncPath != "" {
		c.RsyncPath = other.RsyncPath
	}
	if other.Jobs != 0 {
		c.Jobs = other.Jobs
	}
	if other.Manifest != "" {
		c.Manifest = expandHome(other.Manifest)
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFile != "" {
		c.LogFile = expandHome(other.LogFile)
	}
	if other.Color != "" {
		c.Color = other.Color
	}
}

// Validate checks enum fields and required paths.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Source) == "" {
		errs = append(errs, errors.New("source directory must not be empty"))
	}
	if strings.TrimSpace(c.Dest) == "" {
		errs = append(errs, errors.New("destination directory must not be empty"))
	}
	if c.Prefix == "" {
		errs = append(errs, errors.New("filename prefix must not be empty"))
	}
	switch c.Timestamp {
	case TimestampMtime, TimestampExif:
	default:
		errs = append(errs, fmt.Errorf("invalid timestamp source %q (must be mtime or exif)", c.Timestamp))
	}
	switch c.ExifReader {
	case ReaderGoexif, ReaderExiftool:
	default:
		errs = append(errs, fmt.Errorf("invalid exif reader %q (must be goexif or exiftool)", c.ExifReader))
	}
	switch c.Copier {
	case CopierRsync, CopierBuiltin:
	default:
		errs = append(errs, fmt.Errorf("invalid copier %q (must be rsync or builtin)", c.Copier))
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("invalid color mode %q (must be auto, always or never)", c.Color))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	if c.Jobs < 1 {
		errs = append(errs, fmt.Errorf("jobs must be at least 1, got %d", c.Jobs))
	}
	return errors.Join(errs...)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
