package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/happyvertical/smrt-sub009/internal/projection"
)

var (
	// ErrInvalidPattern indicates a scan glob that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrEmptyInclude indicates no include patterns
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidDialect indicates an unsupported SQL dialect
	ErrInvalidDialect = errors.New("invalid schema dialect")

	// ErrEmptyOutput indicates a missing manifest output path
	ErrEmptyOutput = errors.New("empty manifest output")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateScan(&cfg.Scan); err != nil {
		errs = append(errs, err)
	}
	if err := validateManifest(&cfg.Manifest); err != nil {
		errs = append(errs, err)
	}
	if err := validateSchema(&cfg.Schema); err != nil {
		errs = append(errs, err)
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateScan(cfg *ScanConfig) error {
	var errs []error

	if len(cfg.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one include pattern required", ErrEmptyInclude))
	}
	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Ignore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateManifest(cfg *ManifestConfig) error {
	if strings.TrimSpace(cfg.Output) == "" {
		return fmt.Errorf("%w: output path is required", ErrEmptyOutput)
	}
	return nil
}

func validateSchema(cfg *SchemaConfig) error {
	if _, err := projection.ParseDialect(cfg.Dialect); err != nil {
		return fmt.Errorf("%w: must be 'sqlite' or 'postgres', got '%s'", ErrInvalidDialect, cfg.Dialect)
	}
	return nil
}

func validateStorage(cfg *StorageConfig) error {
	var errs []error

	if cfg.CacheEnabled && strings.TrimSpace(cfg.CachePath) == "" {
		errs = append(errs, fmt.Errorf("%w: cache_path is required when the cache is enabled", ErrInvalidCacheSettings))
	}
	// Zero keeps every entry.
	if cfg.CacheKeep < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_keep cannot be negative, got %d", ErrInvalidCacheSettings, cfg.CacheKeep))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into one. errors.Is still matches each
// sentinel.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return &validationError{msg: "validation failed:\n  - " + strings.Join(msgs, "\n  - "), errs: errs}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
