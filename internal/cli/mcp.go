package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/happyvertical/smrt-sub009/internal/mcp"
	"github.com/happyvertical/smrt-sub009/internal/projection"
	"github.com/happyvertical/smrt-sub009/internal/watcher"
	"github.com/spf13/cobra"
)

type mcpOptions struct {
	watch    bool
	debounce time.Duration
}

func newMCPCmd(root *rootOptions) *cobra.Command {
	opts := &mcpOptions{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for manifest inspection",
		Long: `Start a Model Context Protocol (MCP) server on stdio that lets coding
assistants inspect the project's smart objects.

Tools:
  smrt_list_objects   - every object with its fields, methods and tools
  smrt_get_object     - one object's definition and generated surfaces
  smrt_schema         - SQL DDL in either dialect
  smrt_validate_call  - check a proposed tool call against its schema

All tools are read-only. Logs go to stderr; stdout carries the protocol.
With --watch the manifest is rebuilt whenever sources change.

Example:
  smrt mcp --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "rebuild the manifest when sources change")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watcher.DefaultDebounce, "quiet period before a rebuild")

	return cmd
}

func runMCP(cmd *cobra.Command, root *rootOptions, opts *mcpOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p, err := loadProject(cmd, root)
	if err != nil {
		return err
	}
	dialect, err := projection.ParseDialect(p.cfg.Schema.Dialect)
	if err != nil {
		return err
	}

	var build buildOptions
	if opts.watch {
		s, err := p.newRescanner()
		if err != nil {
			return err
		}
		defer s.Close()
		build.scanner = s
	}

	// stdout belongs to the protocol; diagnostics go to stderr only.
	diags := p.diagnostics(cmd.ErrOrStderr())
	m, err := p.loadManifest(ctx, diags, build)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(m, mcp.ServerConfig{
		Version:   Version,
		Dialect:   dialect,
		APIPrefix: p.cfg.Schema.APIPrefix,
		Logger:    p.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if opts.watch {
		w, err := p.startWatcher(ctx, opts.debounce, func(files []string) {
			next, err := p.loadManifest(ctx, diags, build)
			if err != nil {
				p.logger.Error("rebuild failed, keeping previous manifest", "error", err)
				return
			}
			srv.Update(next)
		})
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	return srv.Serve(ctx)
}
