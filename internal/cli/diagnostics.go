package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/happyvertical/smrt-sub009/internal/scanner"
)

var (
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// diagnosticPrinter reports per-file errors and warnings. With a JSON logger
// every diagnostic becomes a structured log record; otherwise it is printed
// as colored text.
type diagnosticPrinter struct {
	out     io.Writer
	logger  *slog.Logger
	jsonLog bool
}

func (p *project) diagnostics(out io.Writer) *diagnosticPrinter {
	return &diagnosticPrinter{out: out, logger: p.logger, jsonLog: p.jsonLog}
}

func (d *diagnosticPrinter) report(report *scanner.Report) {
	if d.jsonLog {
		for _, e := range report.Errors {
			d.logger.Error("scan error", "file", e.FilePath, "line", e.Line, "column", e.Column, "message", e.Message)
		}
		for _, w := range report.Warnings {
			d.logger.Warn("scan warning", "file", w.FilePath, "line", w.Line, "column", w.Column,
				"class", w.Class, "member", w.Member, "code", w.Code, "message", w.Message)
		}
		return
	}

	for _, e := range report.Errors {
		fmt.Fprintf(d.out, "%s %s\n", red("error:"), e.Error())
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(d.out, "%s %s\n", yellow("warning:"), w.String())
	}
}

// summary prints the one-line scan result.
func (d *diagnosticPrinter) summary(result *buildResult) {
	if result.Cached {
		if d.jsonLog {
			d.logger.Info("manifest unchanged", "objects", len(result.Manifest.Objects), "files", result.Files,
				"errors", len(result.Report.Errors), "warnings", len(result.Report.Warnings))
			return
		}
		fmt.Fprintf(d.out, "%s %s objects from %s files (unchanged, cached)\n",
			green("✓"), formatNumber(len(result.Manifest.Objects)), formatNumber(result.Files))
		d.counts(result.Report.Stats)
		return
	}

	stats := result.Report.Stats
	if d.jsonLog {
		d.logger.Info("scan complete", "objects", stats.Objects, "files", stats.Files,
			"auxiliary", stats.Auxiliary, "cache_hits", stats.CacheHits, "errors", stats.Errors,
			"warnings", stats.Warnings, "duration", stats.Duration)
		return
	}
	fmt.Fprintf(d.out, "%s Scan complete: %s objects from %s files in %.1fs\n",
		green("✓"), formatNumber(stats.Objects), formatNumber(stats.Files), stats.Duration.Seconds())
	if stats.Auxiliary > 0 {
		fmt.Fprintf(d.out, "  Imported files: %s\n", formatNumber(stats.Auxiliary))
	}
	if stats.CacheHits > 0 {
		fmt.Fprintf(d.out, "  Unchanged files: %s\n", formatNumber(stats.CacheHits))
	}
	d.counts(stats)
}

func (d *diagnosticPrinter) counts(stats scanner.ScanStats) {
	if stats.Errors > 0 {
		fmt.Fprintf(d.out, "  Errors:   %s\n", red(formatNumber(stats.Errors)))
	}
	if stats.Warnings > 0 {
		fmt.Fprintf(d.out, "  Warnings: %s\n", yellow(formatNumber(stats.Warnings)))
	}
}
