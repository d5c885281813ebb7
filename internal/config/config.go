package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TempDir   string `toml:"temp_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Workers contains worker pool sizing and timing configuration.
type Workers struct {
	Count             int `toml:"count"`
	PollIntervalMS    int `toml:"poll_interval_ms"`
	SubprocessTimeout int `toml:"subprocess_timeout"`
	MinFreeSpaceGiB   int `toml:"min_free_space_gib"`
}

// Behavior contains per-job conversion behavior toggles.
type Behavior struct {
	CopyLocally           bool `toml:"copy_locally"`
	OverwriteOutputs      bool `toml:"overwrite_outputs"`
	DeleteSourceOnSuccess bool `toml:"delete_source_on_success"`
	UseTrash              bool `toml:"use_trash"`
}

// Tools contains external binary names or absolute paths.
type Tools struct {
	Chdman      string `toml:"chdman"`
	DolphinTool string `toml:"dolphin_tool"`
	SevenZip    string `toml:"sevenzip"`
	Maxcso      string `toml:"maxcso"`
}

// CHDMan contains per-media chdman tuning.
//
// Hunk sizes of zero and empty compression strings mean "use the tool's
// defaults"; chdman flags are only emitted for explicit values.
type CHDMan struct {
	NumProcessors  int    `toml:"num_processors"`
	CDHunkSize     int    `toml:"cd_hunk_size"`
	CDCompression  string `toml:"cd_compression"`
	DVDHunkSize    int    `toml:"dvd_hunk_size"`
	DVDCompression string `toml:"dvd_compression"`
	HDHunkSize     int    `toml:"hd_hunk_size"`
	HDCompression  string `toml:"hd_compression"`
	LDHunkSize     int    `toml:"ld_hunk_size"`
	LDCompression  string `toml:"ld_compression"`
	RawHunkSize    int    `toml:"raw_hunk_size"`
	RawCompression string `toml:"raw_compression"`
}

// Dolphin contains DolphinTool conversion settings.
type Dolphin struct {
	Format           string `toml:"format"`
	CompressionLevel int    `toml:"compression_level"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for transmute.
//
// Configuration sections by subsystem:
//   - Paths: scratch base, default output directory, log directory
//   - Workers: pool size, coordinator tick, subprocess timeout, disk floor
//   - Behavior: staging copy mode, collision policy, source deletion
//   - Tools: external binary locations
//   - CHDMan / Dolphin: per-format tool tuning
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Workers  Workers  `toml:"workers"`
	Behavior Behavior `toml:"behavior"`
	Tools    Tools    `toml:"tools"`
	CHDMan   CHDMan   `toml:"chdman"`
	Dolphin  Dolphin  `toml:"dolphin"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/transmute/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("transmute.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for batch operation.
// OutputDir is created on a best-effort basis so configuration can load when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
