package cli

import (
	"fmt"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/spf13/cobra"
)

type scanOptions struct {
	noCache bool
	output  string
	quiet   bool
	strict  bool
}

func newScanCmd(root *rootOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan sources and write the manifest",
		Long: `Scan discovers TypeScript sources under the project directory, extracts
every smart object and writes the manifest (default .smrt/manifest.json).

Unreadable or unparseable files are reported and skipped. Two classes that
map to the same collection abort the scan.

When neither the sources nor the scan options changed since a previous scan,
the cached manifest is reused. Use --no-cache to force a fresh scan.

Examples:
  # Scan the current project
  smrt scan

  # Scan another directory and write the manifest elsewhere
  smrt scan -C ./app --output build/manifest.json

  # Fail when any file could not be scanned
  smrt scan --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "ignore the manifest cache and rescan")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "manifest output path (default from config)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress output")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with an error when any file failed to scan")

	return cmd
}

func runScan(cmd *cobra.Command, root *rootOptions, opts *scanOptions) error {
	p, err := loadProject(cmd, root)
	if err != nil {
		return err
	}

	progress := NewScanProgressReporter(cmd.ErrOrStderr(), opts.quiet || root.jsonLog)
	result, err := p.build(cmd.Context(), buildOptions{noCache: opts.noCache, progress: progress})

	diags := p.diagnostics(cmd.ErrOrStderr())
	if result != nil && result.Report != nil {
		diags.report(result.Report)
	}
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = p.cfg.Manifest.Output
	}
	output = p.path(output)
	if err := manifest.Save(output, result.Manifest); err != nil {
		return err
	}

	if !opts.quiet {
		diags.out = cmd.OutOrStdout()
		diags.summary(result)
		if !p.jsonLog {
			fmt.Fprintf(cmd.OutOrStdout(), "  Manifest: %s\n", cyan(output))
		}
	}

	if opts.strict && result.Report != nil && len(result.Report.Errors) > 0 {
		return fmt.Errorf("%d files failed to scan", len(result.Report.Errors))
	}
	return nil
}
