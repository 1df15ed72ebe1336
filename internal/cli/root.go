// Package cli implements the smrt command line: scanning a TypeScript project
// into a manifest and projecting that manifest into schema, endpoints, tools
// and an MCP server.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/happyvertical/smrt-sub009/internal/config"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	cfgFile string
	dir     string
	verbose bool
	jsonLog bool
}

// NewRootCommand builds the smrt command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "smrt",
		Short: "Scan smart objects and generate their schema, endpoints and tools",
		Long: `smrt scans TypeScript sources for classes marked as smart objects
(decorated with @smrt or extending a smart base class) and builds a manifest
describing their fields, methods and surface configuration.

From the manifest it renders SQL schema, REST endpoints, CLI commands,
AI tool definitions, and serves everything to MCP clients.

Configuration is read from .smrt/config.yml in the project directory and
can be overridden with SMRT_* environment variables.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is .smrt/config.yml)")
	rootCmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "project directory")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonLog, "json-log", false, "emit logs and diagnostics as JSON on stderr")

	rootCmd.AddCommand(
		newScanCmd(opts),
		newSchemaCmd(opts),
		newEndpointsCmd(opts),
		newToolsCmd(opts),
		newMCPCmd(opts),
		newWatchCmd(opts),
		newCacheCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// project is a loaded project directory with its configuration.
type project struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
	// jsonLog routes diagnostics through the logger instead of colored text.
	jsonLog bool
}

// loadProject resolves the project directory and loads its configuration.
func loadProject(cmd *cobra.Command, opts *rootOptions) (*project, error) {
	root, err := filepath.Abs(opts.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project directory %s does not exist", root)
	}

	var loader config.Loader
	if opts.cfgFile != "" {
		loader = config.NewFileLoader(root, opts.cfgFile)
	} else {
		loader = config.NewLoader(root)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.verbose, opts.jsonLog)
	logger.Debug("loaded configuration", "root", root, "dialect", cfg.Schema.Dialect)

	return &project{root: root, cfg: cfg, logger: logger, jsonLog: opts.jsonLog}, nil
}

// path resolves a config path against the project root.
func (p *project) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.root, rel)
}

// newLogger returns a text or JSON slog logger writing to w.
func newLogger(w io.Writer, verbose, jsonLog bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if jsonLog {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
