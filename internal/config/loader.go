package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. IRSCAN_CACHE_DIR.
const EnvPrefix = "IRSCAN"

// flagKeys maps command flags to config keys.
var flagKeys = map[string]string{
	"compiler":      "compiler",
	"verbose":       "verbose",
	"no-cache":      "no_cache",
	"log-level":     "log_level",
	"log-format":    "log_format",
	"libtool-cmd":   "libtool",
	"no-libtool":    "no_libtool",
	"dlltool":       "dlltool",
	"dumpbin":       "dumpbin",
	"dll-libraries": "dll_libraries",
	"cache-dir":     "cache_dir",
}

// Loader handles configuration loading from various sources
type Loader struct {
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		userConfigDir: os.UserConfigDir,
		getwd:         os.Getwd,
	}
}

// Load layers defaults, the global config, the nearest local config,
// IRSCAN_* environment variables and the command's flags.
func (l *Loader) Load(cmd *cobra.Command) (*Config, error) {
	l.setupViperDefaults()

	if err := l.loadGlobalConfig(); err != nil {
		return nil, err
	}

	if err := l.loadLocalConfig(); err != nil {
		return nil, err
	}

	l.bindEnv()
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("dlltool", DefaultDlltool)
	viper.SetDefault("dumpbin", DefaultDumpbin)
	viper.SetDefault("log_level", DefaultLogLevel)
	viper.SetDefault("log_format", DefaultLogFormat)
	viper.SetDefault("no_cache", DefaultNoCache)
	viper.SetDefault("verbose", DefaultVerbose)
}

// GlobalDir returns the directory holding the user-wide config file.
func (l *Loader) GlobalDir() (string, error) {
	dir, err := l.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "irscan"), nil
}

// loadGlobalConfig loads the user-wide configuration, if any
func (l *Loader) loadGlobalConfig() error {
	dir, err := l.GlobalDir()
	if err != nil {
		// No config directory means no global config.
		return nil
	}

	path := FindGlobalConfig(dir)
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read global config %s: %w", path, err)
	}

	return nil
}

// loadLocalConfig merges the nearest .irscan.* above the working directory
func (l *Loader) loadLocalConfig() error {
	wd, err := l.getwd()
	if err != nil {
		return nil
	}

	path := FindLocalConfig(wd)
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		return fmt.Errorf("failed to read local config %s: %w", path, err)
	}

	return nil
}

func (l *Loader) bindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}
