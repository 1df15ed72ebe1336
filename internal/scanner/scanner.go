// Package scanner statically analyzes TypeScript sources and produces one
// manifest.SmartObjectDefinition per class that opts into the framework.
//
// Nothing in a scanned file is executed. Files are parsed with tree-sitter,
// classes are located by marker decorator or base class, decorator arguments
// and field initializers are read with a literal matcher, and everything else
// degrades to a documented default plus a warning.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/names"
	"github.com/happyvertical/smrt-sub009/internal/projection"
	"github.com/maypok86/otter"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseClasses are always recognized as smart-object bases.
var DefaultBaseClasses = []string{"SmrtObject", "SmrtClass"}

// DefaultDecoratorNames are the recognized marker decorators.
var DefaultDecoratorNames = []string{"smrt"}

// ScanOptions controls what the scanner extracts.
type ScanOptions struct {
	IncludePrivateMethods bool
	IncludeStaticMethods  bool
	// FollowImports resolves relative imports of base classes, makes
	// recognition transitive and merges inherited members.
	FollowImports bool
	// BaseClasses are recognized in addition to DefaultBaseClasses.
	BaseClasses []string
	// DecoratorNames replaces DefaultDecoratorNames when non-empty.
	DecoratorNames []string
	// Workers bounds parallel file parsing. Zero means runtime.NumCPU().
	Workers int
}

// DefaultScanOptions follows imports and uses the default marker decorator.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		FollowImports:  true,
		DecoratorNames: DefaultDecoratorNames,
		Workers:        runtime.NumCPU(),
	}
}

func (o ScanOptions) normalized() ScanOptions {
	if len(o.DecoratorNames) == 0 {
		o.DecoratorNames = DefaultDecoratorNames
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

// baseClasses returns the default base classes plus any extras, deduplicated.
func (o ScanOptions) baseClasses() []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{DefaultBaseClasses, o.BaseClasses} {
		for _, b := range list {
			if b != "" && !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
	}
	return out
}

// Scanner scans file sets. It is safe for sequential reuse; the optional
// per-file cache makes rescans of unchanged files cheap.
type Scanner struct {
	opts        ScanOptions
	fingerprint string
	progress    ProgressReporter
	now         func() time.Time

	cacheSize int
	cache     *otter.Cache[string, *fileFacts]
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithProgress sets the progress reporter.
func WithProgress(p ProgressReporter) Option {
	return func(s *Scanner) {
		if p != nil {
			s.progress = p
		}
	}
}

// WithCache keeps up to capacity per-file extraction results keyed by path,
// content hash and options.
func WithCache(capacity int) Option {
	return func(s *Scanner) {
		s.cacheSize = capacity
	}
}

// WithClock overrides the manifest timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a scanner.
func New(opts ScanOptions, options ...Option) (*Scanner, error) {
	s := &Scanner{
		opts:     opts.normalized(),
		progress: NoOpProgressReporter{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range options {
		opt(s)
	}
	s.fingerprint = s.opts.Fingerprint()

	if s.cacheSize > 0 {
		cache, err := otter.MustBuilder[string, *fileFacts](s.cacheSize).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to create scan cache: %w", err)
		}
		s.cache = &cache
	}
	return s, nil
}

// Options returns the normalized options.
func (s *Scanner) Options() ScanOptions {
	return s.opts
}

// Close releases the cache.
func (s *Scanner) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// Report is the outcome of a full scan.
type Report struct {
	// Manifest is nil when assembly failed.
	Manifest *manifest.Manifest
	Results  []manifest.ScanResult
	Errors   []manifest.ScanError
	Warnings []manifest.Diagnostic
	Stats    ScanStats
}

// Scan scans paths and assembles the manifest. On a collection collision the
// report is still returned, without a manifest, alongside the error.
func (s *Scanner) Scan(ctx context.Context, paths []string, packageName string) (*Report, error) {
	start := time.Now()

	results, stats, err := s.scan(ctx, paths)
	if err != nil {
		return nil, err
	}

	report := &Report{Results: results}
	for _, r := range results {
		report.Warnings = append(report.Warnings, r.Warnings...)
	}

	m, scanErrs, err := manifest.Assemble(results, manifest.AssembleOptions{
		PackageName: packageName,
		Timestamp:   s.now(),
	})
	report.Errors = scanErrs
	report.Manifest = m

	stats.Errors = len(scanErrs)
	stats.Warnings = len(report.Warnings)
	stats.Duration = time.Since(start)
	report.Stats = *stats
	s.progress.OnScanComplete(&report.Stats)

	if err != nil {
		return report, fmt.Errorf("failed to assemble manifest: %w", err)
	}
	return report, nil
}

// ScanFiles returns one ScanResult per input path, ordered by path. Per-file
// failures are reported in the results; only cancellation returns an error.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) ([]manifest.ScanResult, error) {
	results, _, err := s.scan(ctx, paths)
	return results, err
}

func (s *Scanner) scan(ctx context.Context, paths []string) ([]manifest.ScanResult, *ScanStats, error) {
	inputs := cleanPaths(paths)
	stats := &ScanStats{Files: len(inputs)}
	s.progress.OnScanStart(len(inputs))

	var hits atomic.Int64
	facts, err := s.loadFacts(ctx, inputs, true, &hits)
	if err != nil {
		return nil, nil, err
	}

	resolver := newImportResolver()
	all := facts
	if s.opts.FollowImports {
		aux, err := s.loadImported(ctx, facts, resolver, &hits)
		if err != nil {
			return nil, nil, err
		}
		stats.Auxiliary = len(aux)
		all = append(append([]*fileFacts(nil), facts...), aux...)
	}
	stats.CacheHits = int(hits.Load())

	h, err := buildHierarchy(all, resolver, &s.opts)
	if err != nil {
		return nil, nil, err
	}
	byKey := make(map[string]*classNode, len(h.nodes))
	for _, n := range h.nodes {
		byKey[n.key] = n
	}

	results := make([]manifest.ScanResult, len(facts))
	for i, f := range facts {
		res := manifest.ScanResult{
			FilePath: f.path,
			Objects:  []*manifest.SmartObjectDefinition{},
		}
		if f.err != nil {
			res.Errors = append(res.Errors, *f.err)
			results[i] = res
			continue
		}

		seen := make(map[string]bool)
		for _, decl := range f.classes {
			n := byKey[classKey(f.path, decl.name)]
			if n == nil || seen[n.key] {
				continue
			}
			seen[n.key] = true
			res.Warnings = append(res.Warnings, n.warnings...)
			if !n.recognized {
				continue
			}
			def, warnings := s.definition(n, h.known)
			res.Objects = append(res.Objects, def)
			res.Warnings = append(res.Warnings, warnings...)
		}
		stats.Objects += len(res.Objects)
		results[i] = res
	}

	return results, stats, nil
}

// loadFacts extracts every path on a bounded worker pool. Each worker writes
// only its own slot; trees never leave the worker.
func (s *Scanner) loadFacts(ctx context.Context, paths []string, report bool, hits *atomic.Int64) ([]*fileFacts, error) {
	facts := make([]*fileFacts, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, hit := s.scanFile(path)
			if hit {
				hits.Add(1)
			}
			facts[i] = f
			if report {
				s.progress.OnFileScanned(path)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}
	return facts, nil
}

// loadImported follows relative imports of extended classes until no new
// files appear. Imported files are used for heritage only.
func (s *Scanner) loadImported(ctx context.Context, inputs []*fileFacts, resolver *importResolver, hits *atomic.Int64) ([]*fileFacts, error) {
	loaded := make(map[string]bool, len(inputs))
	for _, f := range inputs {
		loaded[f.path] = true
	}

	var aux []*fileFacts
	frontier := inputs
	for len(frontier) > 0 {
		var next []string
		for _, f := range frontier {
			for _, decl := range f.classes {
				binding, ok := f.imports[decl.parent]
				if decl.parent == "" || !ok || !binding.relative() {
					continue
				}
				target, found := resolver.resolve(f.path, binding.specifier)
				if !found || loaded[target] {
					continue
				}
				loaded[target] = true
				next = append(next, target)
			}
		}
		if len(next) == 0 {
			break
		}
		sort.Strings(next)

		facts, err := s.loadFacts(ctx, next, false, hits)
		if err != nil {
			return nil, err
		}
		aux = append(aux, facts...)
		frontier = facts
	}
	return aux, nil
}

// scanFile reads, parses and extracts one file, consulting the cache.
func (s *Scanner) scanFile(path string) (*fileFacts, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &fileFacts{path: path, err: &manifest.ScanError{
			FilePath: path,
			Message:  fmt.Sprintf("failed to read file: %v", err),
		}}, false
	}

	var key string
	if s.cache != nil {
		key = path + ":" + contentHash(data) + ":" + s.fingerprint
		if f, ok := s.cache.Get(key); ok {
			return f, true
		}
	}

	f := s.extract(path, data)
	if s.cache != nil {
		s.cache.Set(key, f)
	}
	return f, false
}

func (s *Scanner) extract(path string, data []byte) *fileFacts {
	pf, scanErr := parseSource(path, data)
	if scanErr != nil {
		return &fileFacts{path: path, err: scanErr}
	}
	defer pf.Close()
	return extractFile(pf, &s.opts)
}

// definition builds the manifest entry for a recognized class.
func (s *Scanner) definition(n *classNode, known map[string]bool) (*manifest.SmartObjectDefinition, []manifest.Diagnostic) {
	decl := n.decl
	warnings := append([]manifest.Diagnostic(nil), decl.warnings...)

	def := manifest.NewDefinition(decl.name, n.file.path)
	def.DecoratorConfig = decl.config
	def.Name = firstNonEmpty(decl.config.Name, decl.name)
	def.Collection = names.TableName(decl.name, firstNonEmpty(decl.members.tableName, decl.config.TableName))
	def.Extends = decl.parent

	for _, f := range n.fields {
		fd := f.def
		if f.ref != "" {
			if known[f.ref] {
				fd.Type = manifest.FieldForeignKey
				fd.Related = f.ref
			} else {
				fd.Type = manifest.FieldText
				warnings = append(warnings, manifest.Diagnostic{
					FilePath: n.file.path,
					Line:     f.line,
					Column:   f.column,
					Class:    decl.name,
					Member:   f.name,
					Code:     manifest.DiagUnresolvedType,
					Message:  fmt.Sprintf("type %s is not a scanned class; stored as text", f.ref),
				})
			}
		}
		def.Fields.Set(f.name, fd)
	}

	for _, m := range n.methods {
		m.Parameters = append([]manifest.Parameter{}, m.Parameters...)
		def.Methods.Set(m.Name, m)
	}

	def.Tools = projection.Tools(def)
	return def, warnings
}

// cleanPaths cleans, deduplicates and sorts paths.
func cleanPaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
