package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/go-shellwords"
	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultDlltool   = "dlltool.exe"
	DefaultDumpbin   = "dumpbin.exe"
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
	DefaultNoCache   = false
	DefaultVerbose   = false
)

// Holds the configuration options for irscan
type Config struct {
	// Explicit Windows compiler family (msvc or mingw32)
	Compiler string `yaml:"compiler,omitempty"`

	// MinGW import library tool
	Dlltool string `yaml:"dlltool"`

	// MSVC symbol dumper
	Dumpbin string `yaml:"dumpbin"`

	// Libtool wrapper command, split like a shell would
	Libtool []string `yaml:"libtool,omitempty"`

	// Never link through libtool
	NoLibtool bool `yaml:"no_libtool"`

	// Runtime libraries the MinGW probe links with
	DLLLibraries []string `yaml:"dll_libraries,omitempty"`

	// Cache directory, defaults to ~/.cache/irscan
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Disable the introspection cache
	NoCache bool `yaml:"no_cache"`

	// Enable verbose output
	Verbose bool `yaml:"verbose"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

var (
	logLevels  = []string{"trace", "debug", "info", "warn", "warning", "error"}
	logFormats = []string{"console", "json"}
)

func Load() (*Config, error) {
	cfg := &Config{
		Compiler:     viper.GetString("compiler"),
		Dlltool:      viper.GetString("dlltool"),
		Dumpbin:      viper.GetString("dumpbin"),
		NoLibtool:    viper.GetBool("no_libtool"),
		DLLLibraries: viper.GetStringSlice("dll_libraries"),
		CacheDir:     viper.GetString("cache_dir"),
		NoCache:      viper.GetBool("no_cache"),
		Verbose:      viper.GetBool("verbose"),
		LogLevel:     viper.GetString("log_level"),
		LogFormat:    viper.GetString("log_format"),
	}

	libtool, err := splitCommand(viper.GetString("libtool"))
	if err != nil {
		return nil, err
	}
	cfg.Libtool = libtool

	// Apply defaults if not set
	if cfg.Dlltool == "" {
		cfg.Dlltool = DefaultDlltool
	}

	if cfg.Dumpbin == "" {
		cfg.Dumpbin = DefaultDumpbin
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	if !contains(logLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	c.LogFormat = strings.ToLower(c.LogFormat)
	if !contains(logFormats, c.LogFormat) {
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}

	// Resolve cache directory
	if c.CacheDir != "" {
		abs, err := filepath.Abs(c.CacheDir)
		if err != nil {
			return fmt.Errorf("invalid cache directory: %v", err)
		}

		c.CacheDir = abs
	}

	if c.NoLibtool {
		c.Libtool = nil
	}

	return nil
}

// LibtoolCommand returns the libtool wrapper to link and run tools
// through, or nil when libtool is not used.
func (c *Config) LibtoolCommand() []string {
	if c.NoLibtool {
		return nil
	}
	return c.Libtool
}

func splitCommand(value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	words, err := shellwords.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid libtool command %q: %w", value, err)
	}

	return words, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
