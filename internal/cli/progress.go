package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/happyvertical/smrt-sub009/internal/scanner"
	"github.com/schollz/progressbar/v3"
)

// ScanProgressReporter renders scan progress as a progress bar.
// OnFileScanned runs on scanner workers, so all state is behind mu.
type ScanProgressReporter struct {
	out     io.Writer
	quiet   bool
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	scanned int
}

// NewScanProgressReporter creates a reporter drawing on out.
func NewScanProgressReporter(out io.Writer, quiet bool) *ScanProgressReporter {
	return &ScanProgressReporter{out: out, quiet: quiet}
}

func (r *ScanProgressReporter) OnScanStart(totalFiles int) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scanned = 0
	r.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(r.out)
		}),
	)
}

func (r *ScanProgressReporter) OnFileScanned(path string) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar != nil {
		r.scanned++
		r.bar.Add(1)
	}
}

func (r *ScanProgressReporter) OnScanComplete(stats *scanner.ScanStats) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
	}
}

// Scanned returns how many files have been reported so far.
func (r *ScanProgressReporter) Scanned() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanned
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
