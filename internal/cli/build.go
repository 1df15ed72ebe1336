package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/happyvertical/smrt-sub009/internal/discovery"
	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/scanner"
	"github.com/happyvertical/smrt-sub009/internal/storage"
)

// rescanCacheSize bounds the per-file results a long-lived scanner keeps
// between rescans.
const rescanCacheSize = 4096

// buildOptions controls one manifest build.
type buildOptions struct {
	noCache  bool
	progress scanner.ProgressReporter

	// scanner is reused across builds when set, so its per-file cache
	// skips unchanged files. progress is ignored in that case.
	scanner *scanner.Scanner
}

// buildResult is a built manifest plus how it was obtained.
type buildResult struct {
	Manifest *manifest.Manifest
	// Report carries the errors and warnings of the scan that produced
	// Manifest. For a cached manifest they are the stored ones and Stats
	// only counts files, objects, errors and warnings.
	Report      *scanner.Report
	Cached      bool
	Fingerprint string
	Files       int
}

// newRescanner returns a scanner meant to live across rebuilds, such as the
// watch loop. The caller closes it.
func (p *project) newRescanner() (*scanner.Scanner, error) {
	s, err := scanner.New(p.cfg.ToScanOptions(), scanner.WithCache(rescanCacheSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}
	return s, nil
}

// discovery returns the file discovery configured for the project.
func (p *project) discovery() (*discovery.FileDiscovery, error) {
	fd, err := discovery.New(p.root, p.cfg.Scan.Include, p.cfg.Scan.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to configure discovery: %w", err)
	}
	return fd, nil
}

// packageName is the configured package name, else the name in package.json.
func (p *project) packageName() string {
	if p.cfg.Manifest.PackageName != "" {
		return p.cfg.Manifest.PackageName
	}
	data, err := os.ReadFile(p.path("package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		p.logger.Debug("ignoring unreadable package.json", "error", err)
		return ""
	}
	return pkg.Name
}

// build discovers sources and returns the manifest, reusing a cached manifest
// when neither the sources nor the scan options changed. When assembly fails
// the result still carries the report so diagnostics can be shown.
func (p *project) build(ctx context.Context, opts buildOptions) (*buildResult, error) {
	fd, err := p.discovery()
	if err != nil {
		return nil, err
	}
	files, err := fd.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover source files: %w", err)
	}
	p.logger.Debug("discovered source files", "count", len(files))

	scanOpts := p.cfg.ToScanOptions()
	result := &buildResult{Files: len(files)}

	var store *storage.ManifestStore
	if p.cfg.Storage.CacheEnabled {
		result.Fingerprint, err = scanner.SourceFingerprint(files, scanOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to fingerprint sources: %w", err)
		}

		store, err = storage.OpenManifestStore(p.path(p.cfg.Storage.CachePath))
		if err != nil {
			// The cache only saves time; scan without it.
			p.logger.Warn("manifest cache unavailable", "error", err)
		} else {
			defer store.Close()
		}
	}

	if store != nil && !opts.noCache {
		cached, ok, err := store.Get(ctx, result.Fingerprint)
		if err != nil {
			p.logger.Warn("failed to read manifest cache", "error", err)
		} else if ok {
			p.logger.Debug("using cached manifest", "fingerprint", result.Fingerprint)
			result.Manifest = cached.Manifest
			result.Report = &scanner.Report{
				Manifest: cached.Manifest,
				Errors:   cached.Errors,
				Warnings: cached.Warnings,
				Stats: scanner.ScanStats{
					Files:    len(files),
					Objects:  len(cached.Manifest.Objects),
					Errors:   len(cached.Errors),
					Warnings: len(cached.Warnings),
				},
			}
			result.Cached = true
			return result, nil
		}
	}

	s := opts.scanner
	if s == nil {
		progress := opts.progress
		if progress == nil {
			progress = scanner.NoOpProgressReporter{}
		}
		s, err = scanner.New(scanOpts, scanner.WithProgress(progress))
		if err != nil {
			return nil, fmt.Errorf("failed to create scanner: %w", err)
		}
		defer s.Close()
	}

	report, err := s.Scan(ctx, files, p.packageName())
	if report != nil {
		result.Report = report
		result.Manifest = report.Manifest
	}
	if err != nil {
		if report != nil {
			return result, err
		}
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	if store != nil {
		scan := &storage.CachedScan{Manifest: report.Manifest, Errors: report.Errors, Warnings: report.Warnings}
		if err := store.Put(ctx, result.Fingerprint, scan); err != nil {
			p.logger.Warn("failed to cache manifest", "error", err)
		} else if keep := p.cfg.Storage.CacheKeep; keep > 0 {
			if n, err := store.Prune(ctx, keep); err != nil {
				p.logger.Warn("failed to prune manifest cache", "error", err)
			} else if n > 0 {
				p.logger.Debug("pruned manifest cache", "removed", n)
			}
		}
	}

	return result, nil
}

// loadManifest builds the manifest for commands that only read it, reporting
// diagnostics the same way scan does.
func (p *project) loadManifest(ctx context.Context, d *diagnosticPrinter, opts buildOptions) (*manifest.Manifest, error) {
	result, err := p.build(ctx, opts)
	if result != nil && result.Report != nil {
		d.report(result.Report)
	}
	if err != nil {
		return nil, err
	}
	return result.Manifest, nil
}
