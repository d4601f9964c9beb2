// Package config provides layered configuration for dockgrade.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// DirName is the per-user and per-workspace configuration directory.
	DirName = ".dockgrade"
	// FileName is the configuration file inside DirName.
	FileName = "config.yaml"
	// EnvPrefix prefixes every environment override, e.g. DOCKGRADE_RUNTIME_BACKEND.
	EnvPrefix = "DOCKGRADE"
)

// Backend names accepted for runtime.backend.
const (
	BackendCLI = "cli"
	BackendSDK = "sdk"
)

// Log formats accepted for log.format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds the application configuration.
type Config struct {
	// BaseDir holds the global config file. DOCKGRADE_DIR overrides it.
	BaseDir string `mapstructure:"-"`

	// WorkspaceRoot is the discovered workspace root path, empty when none.
	WorkspaceRoot string `mapstructure:"-"`

	// Files lists the config files that were merged, lowest precedence first.
	Files []string `mapstructure:"-"`

	Runtime RuntimeConfig `mapstructure:"runtime"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Stages  StagesConfig  `mapstructure:"stages"`
	Report  ReportConfig  `mapstructure:"report"`
	Log     LogConfig     `mapstructure:"log"`
}

// RuntimeConfig selects how the container runtime is queried.
type RuntimeConfig struct {
	// Backend is "cli" (run the runtime binary) or "sdk" (Docker Engine API).
	Backend string `mapstructure:"backend"`
	// CLI is the runtime binary used by the cli backend.
	CLI string `mapstructure:"cli"`
	// Timeout bounds each subprocess. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`
}

// HTTPConfig tunes the reachability probe.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// StagesConfig points at an optional stage catalogue file.
type StagesConfig struct {
	File string `mapstructure:"file"`
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Color bool `mapstructure:"color"`
}

// LogConfig mirrors the logging flags so they can live in a config file.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`

	// Format is "text" for console output or "json" for one object per line.
	Format string `mapstructure:"format"`
}

// FlagKeys maps command-line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"backend":      "runtime.backend",
	"runtime-cli":  "runtime.cli",
	"timeout":      "runtime.timeout",
	"http-timeout": "http.timeout",
	"retries":      "http.retries",
	"stages-file":  "stages.file",
	"color":        "report.color",
	"log-level":    "log.level",
	"logfile":      "log.file",
	"log-format":   "log.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runtime.backend", BackendCLI)
	v.SetDefault("runtime.cli", "docker")
	v.SetDefault("runtime.timeout", "0s")
	v.SetDefault("http.timeout", "10s")
	v.SetDefault("http.retries", 0)
	v.SetDefault("stages.file", "")
	v.SetDefault("report.color", true)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("log.format", LogFormatText)
}

func expandTildePath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(homeDir, path[2:])
}

// mergeConfigFile merges path into v. A missing file is not an error.
func mergeConfigFile(v *viper.Viper, path string) (bool, error) {
	path = expandTildePath(path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.MergeInConfig(); err != nil {
		return false, err
	}
	log.Debug().Str("file", path).Msg("Merged config file")
	return true, nil
}

func findWorkspaceRoot(startDir string) string {
	currentDir := filepath.Clean(startDir)
	for {
		if _, err := os.Stat(filepath.Join(currentDir, DirName, FileName)); err == nil {
			return currentDir
		} else if !os.IsNotExist(err) {
			return ""
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// GlobalDir returns the directory holding the global config file.
func GlobalDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "_DIR"); dir != "" {
		return expandTildePath(dir), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// Load resolves configuration from defaults, the global config file, the
// workspace config file, DOCKGRADE_* environment variables and, when flags is
// non-nil, any flags in FlagKeys that were set. Later layers win.
func Load(flags *pflag.FlagSet) (*Config, error) {
	baseDir, err := GlobalDir()
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	cfg := &Config{BaseDir: baseDir}

	globalPath := filepath.Join(baseDir, FileName)
	merged, err := mergeConfigFile(v, globalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}
	if merged {
		cfg.Files = append(cfg.Files, globalPath)
	}

	cfg.WorkspaceRoot = findWorkspaceRoot(cwd)
	if cfg.WorkspaceRoot != "" {
		workspacePath := filepath.Join(cfg.WorkspaceRoot, DirName, FileName)
		// the global and workspace files are the same when cwd is under $HOME
		// and no project config exists
		if workspacePath != globalPath {
			merged, err = mergeConfigFile(v, workspacePath)
			if err != nil {
				return nil, fmt.Errorf("failed to load workspace config: %w", err)
			}
			if merged {
				cfg.Files = append(cfg.Files, workspacePath)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			flag := flags.Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s to key %s: %w", name, key, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Stages.File = cfg.resolvePath(cfg.Stages.File, cwd)
	cfg.Log.File = cfg.resolvePath(cfg.Log.File, cwd)
	cfg.Runtime.Backend = strings.ToLower(strings.TrimSpace(cfg.Runtime.Backend))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePath expands ~ and anchors relative paths at the workspace root, or
// at cwd when there is no workspace.
func (c *Config) resolvePath(path, cwd string) string {
	if path == "" {
		return ""
	}
	path = expandTildePath(path)
	if filepath.IsAbs(path) {
		return path
	}
	if c.WorkspaceRoot != "" {
		return filepath.Join(c.WorkspaceRoot, path)
	}
	return filepath.Join(cwd, path)
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Runtime.Backend {
	case BackendCLI, BackendSDK:
	default:
		return fmt.Errorf("invalid runtime.backend %q (use %s or %s)", c.Runtime.Backend, BackendCLI, BackendSDK)
	}
	if c.Runtime.Backend == BackendCLI && strings.TrimSpace(c.Runtime.CLI) == "" {
		return errors.New("runtime.cli must not be empty when runtime.backend is cli")
	}
	if c.Runtime.Timeout < 0 {
		return fmt.Errorf("runtime.timeout must not be negative, got %s", c.Runtime.Timeout)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.Retries < 0 {
		return fmt.Errorf("http.retries must not be negative, got %d", c.HTTP.Retries)
	}
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log.format %q (use %s or %s)", c.Log.Format, LogFormatText, LogFormatJSON)
	}
	return nil
}
