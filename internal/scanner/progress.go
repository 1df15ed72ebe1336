package scanner

import "time"

// ScanStats summarizes one scan.
type ScanStats struct {
	Files     int
	Auxiliary int
	Objects   int
	Errors    int
	Warnings  int
	CacheHits int
	Duration  time.Duration
}

// ProgressReporter provides callbacks for reporting scan progress.
// OnFileScanned is called from worker goroutines and must be safe for
// concurrent use.
type ProgressReporter interface {
	// OnScanStart is called once the input file list is known.
	OnScanStart(totalFiles int)

	// OnFileScanned is called after each input file is parsed and extracted.
	OnFileScanned(path string)

	// OnScanComplete is called when every result has been built.
	OnScanComplete(stats *ScanStats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnScanStart(totalFiles int)      {}
func (NoOpProgressReporter) OnFileScanned(path string)       {}
func (NoOpProgressReporter) OnScanComplete(stats *ScanStats) {}
