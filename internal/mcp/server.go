// Package mcp exposes a scanned manifest to MCP clients over stdio. All tools
// are read-only: they describe objects, render schema and check proposed
// tool calls, but never execute anything.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/projection"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is reported to clients during initialization.
const ServerName = "smrt-mcp"

// ServerConfig controls tool defaults.
type ServerConfig struct {
	Version   string
	Dialect   projection.Dialect
	APIPrefix string
	Logger    *slog.Logger
}

// Server manages the MCP server lifecycle.
type Server struct {
	catalog *Catalog
	logger  *slog.Logger
	mcp     *server.MCPServer
}

// NewServer creates a server answering from m. Update swaps the manifest later.
func NewServer(m *manifest.Manifest, cfg ServerConfig) (*Server, error) {
	if m == nil {
		return nil, fmt.Errorf("manifest is required")
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Dialect == "" {
		cfg.Dialect = projection.DialectSQLite
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	catalog := NewCatalog(m)
	mcpServer := server.NewMCPServer(
		ServerName,
		cfg.Version,
		server.WithToolCapabilities(true),
	)

	AddListObjectsTool(mcpServer, catalog)
	AddGetObjectTool(mcpServer, catalog, cfg.APIPrefix)
	AddSchemaTool(mcpServer, catalog, cfg.Dialect)
	AddValidateCallTool(mcpServer, catalog)

	return &Server{catalog: catalog, logger: cfg.Logger, mcp: mcpServer}, nil
}

// Update replaces the manifest the tools answer from.
func (s *Server) Update(m *manifest.Manifest) {
	if m == nil {
		return
	}
	s.catalog.Set(m)
	s.logger.Info("manifest updated", "objects", len(m.Objects))
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio", "objects", len(s.catalog.Manifest().Objects))
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		s.logger.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
