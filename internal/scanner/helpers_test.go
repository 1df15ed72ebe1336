package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// writeSources writes name -> content into a temp dir and returns the dir and
// the written paths, sorted.
func writeSources(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return dir, paths
}

func newTestScanner(t *testing.T, opts ScanOptions, options ...Option) *Scanner {
	t.Helper()
	options = append([]Option{WithClock(func() time.Time { return fixedTime })}, options...)
	s, err := New(opts, options...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// scanSources scans every file with default options and requires success.
func scanSources(t *testing.T, files map[string]string) *Report {
	t.Helper()
	_, paths := writeSources(t, files)
	report, err := newTestScanner(t, DefaultScanOptions()).Scan(context.Background(), paths, "")
	require.NoError(t, err)
	require.NotNil(t, report.Manifest)
	return report
}

func mustObject(t *testing.T, m *manifest.Manifest, className string) *manifest.SmartObjectDefinition {
	t.Helper()
	def, err := m.Object(className)
	require.NoError(t, err)
	return def
}

func mustField(t *testing.T, def *manifest.SmartObjectDefinition, name string) manifest.FieldDefinition {
	t.Helper()
	f, ok := def.Fields.Get(name)
	require.True(t, ok, "field %s missing from %s (have %v)", name, def.ClassName, def.FieldNames())
	return f
}

func mustMethod(t *testing.T, def *manifest.SmartObjectDefinition, name string) manifest.MethodDefinition {
	t.Helper()
	m, ok := def.Methods.Get(name)
	require.True(t, ok, "method %s missing from %s (have %v)", name, def.ClassName, def.MethodNames())
	return m
}

func warningCodes(diags []manifest.Diagnostic, member string) []string {
	var out []string
	for _, d := range diags {
		if d.Member == member {
			out = append(out, d.Code)
		}
	}
	return out
}

func hasWarning(diags []manifest.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

// recordingProgress counts progress callbacks; OnFileScanned runs on workers.
type recordingProgress struct {
	mu       sync.Mutex
	total    int
	scanned  []string
	complete *ScanStats
}

func (r *recordingProgress) OnScanStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingProgress) OnFileScanned(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanned = append(r.scanned, path)
}

func (r *recordingProgress) OnScanComplete(stats *ScanStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = stats
}
