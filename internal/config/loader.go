package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Dir is the per-project directory holding config, manifest and cache.
const Dir = ".smrt"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader loads an explicit config file instead of searching .smrt/.
func NewFileLoader(rootDir, configFile string) Loader {
	return &loader{
		rootDir:    rootDir,
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (SMRT_*)
// 2. Config file (.smrt/config.yml or .smrt/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	// Configure viper
	v := viper.New()

	// Use the explicit file, or search .smrt/ for config.yml / config.yaml
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, Dir))
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("SMRT")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., SMRT_SCAN_FOLLOW_IMPORTS)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables to config keys
	// Scan configuration
	v.BindEnv("scan.include_private_methods")
	v.BindEnv("scan.include_static_methods")
	v.BindEnv("scan.follow_imports")
	v.BindEnv("scan.workers")

	// Manifest configuration
	v.BindEnv("manifest.output")
	v.BindEnv("manifest.package_name")

	// Schema configuration
	v.BindEnv("schema.dialect")
	v.BindEnv("schema.api_prefix")

	// Storage configuration
	v.BindEnv("storage.cache_enabled")
	v.BindEnv("storage.cache_path")
	v.BindEnv("storage.cache_keep")

	// Set defaults in viper
	setDefaults(v)

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable when searching: defaults + env vars.
		// An explicit --config file must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate the configuration
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Scan defaults
	v.SetDefault("scan.include", defaults.Scan.Include)
	v.SetDefault("scan.ignore", defaults.Scan.Ignore)
	v.SetDefault("scan.decorators", defaults.Scan.Decorators)
	v.SetDefault("scan.include_private_methods", defaults.Scan.IncludePrivateMethods)
	v.SetDefault("scan.include_static_methods", defaults.Scan.IncludeStaticMethods)
	v.SetDefault("scan.follow_imports", defaults.Scan.FollowImports)
	v.SetDefault("scan.workers", defaults.Scan.Workers)

	// Manifest defaults
	v.SetDefault("manifest.output", defaults.Manifest.Output)
	v.SetDefault("manifest.package_name", defaults.Manifest.PackageName)

	// Schema defaults
	v.SetDefault("schema.dialect", defaults.Schema.Dialect)
	v.SetDefault("schema.api_prefix", defaults.Schema.APIPrefix)

	// Storage defaults (the cache is a SQLite file under .smrt/)
	v.SetDefault("storage.cache_enabled", defaults.Storage.CacheEnabled)
	v.SetDefault("storage.cache_path", defaults.Storage.CachePath)
	v.SetDefault("storage.cache_keep", defaults.Storage.CacheKeep)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
