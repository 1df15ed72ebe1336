// Package config loads project configuration for smrt.
//
// Configuration lives in .smrt/config.yml (or .yaml) under the project root.
// Priority, highest first:
//  1. Environment variables (SMRT_*, e.g. SMRT_SCAN_FOLLOW_IMPORTS)
//  2. The project config file
//  3. Built-in defaults
package config

import (
	"github.com/happyvertical/smrt-sub009/internal/scanner"
)

// Config is the complete smrt configuration.
type Config struct {
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Manifest ManifestConfig `yaml:"manifest" mapstructure:"manifest"`
	Schema   SchemaConfig   `yaml:"schema" mapstructure:"schema"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
}

// ScanConfig selects source files and controls extraction.
type ScanConfig struct {
	Include               []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore                []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
	Decorators            []string `yaml:"decorators" mapstructure:"decorators"`
	BaseClasses           []string `yaml:"base_classes" mapstructure:"base_classes"` // in addition to SmrtObject/SmrtClass
	IncludePrivateMethods bool     `yaml:"include_private_methods" mapstructure:"include_private_methods"`
	IncludeStaticMethods  bool     `yaml:"include_static_methods" mapstructure:"include_static_methods"`
	FollowImports         bool     `yaml:"follow_imports" mapstructure:"follow_imports"`
	Workers               int      `yaml:"workers" mapstructure:"workers"` // 0 = one per CPU
}

// ManifestConfig controls where the manifest is written.
type ManifestConfig struct {
	Output      string `yaml:"output" mapstructure:"output"`
	PackageName string `yaml:"package_name" mapstructure:"package_name"`
}

// SchemaConfig controls DDL and surface rendering.
type SchemaConfig struct {
	Dialect   string `yaml:"dialect" mapstructure:"dialect"` // "sqlite" or "postgres"
	APIPrefix string `yaml:"api_prefix" mapstructure:"api_prefix"`
}

// StorageConfig controls the manifest cache.
type StorageConfig struct {
	CacheEnabled bool   `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CachePath    string `yaml:"cache_path" mapstructure:"cache_path"` // relative to the project root
	CacheKeep    int    `yaml:"cache_keep" mapstructure:"cache_keep"` // cached manifests kept after a scan
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Include: []string{
				"**/*.ts",
				"**/*.tsx",
			},
			Ignore: []string{
				"node_modules/**",
				"dist/**",
				"build/**",
				".git/**",
				"coverage/**",
				"**/*.test.ts",
				"**/*.spec.ts",
			},
			Decorators:    []string{"smrt"},
			FollowImports: true,
		},
		Manifest: ManifestConfig{
			Output: ".smrt/manifest.json",
		},
		Schema: SchemaConfig{
			Dialect:   "sqlite",
			APIPrefix: "/api/v1",
		},
		Storage: StorageConfig{
			CacheEnabled: true,
			CachePath:    ".smrt/cache.db",
			CacheKeep:    5,
		},
	}
}

// ToScanOptions converts the scan section to scanner options.
func (c *Config) ToScanOptions() scanner.ScanOptions {
	return scanner.ScanOptions{
		IncludePrivateMethods: c.Scan.IncludePrivateMethods,
		IncludeStaticMethods:  c.Scan.IncludeStaticMethods,
		FollowImports:         c.Scan.FollowImports,
		BaseClasses:           c.Scan.BaseClasses,
		DecoratorNames:        c.Scan.Decorators,
		Workers:               c.Scan.Workers,
	}
}
