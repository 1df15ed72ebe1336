package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/projection"
	"github.com/spf13/cobra"
)

type endpointsOptions struct {
	objects []string
	prefix  string
	asJSON  bool
}

// objectSurfaces is the JSON form of one object's generated surfaces.
type objectSurfaces struct {
	Object     string                `json:"object"`
	Collection string                `json:"collection"`
	Endpoints  []projection.Endpoint `json:"endpoints"`
	Commands   []string              `json:"commands"`
	MCPActions []string              `json:"mcpActions"`
}

func newEndpointsCmd(root *rootOptions) *cobra.Command {
	opts := &endpointsOptions{}

	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List the REST endpoints, CLI commands and MCP actions per object",
		Long: `Endpoints lists what each smart object exposes according to its api, cli
and mcp decorator settings: REST routes under the API prefix, CLI commands,
and MCP action names.

Examples:
  smrt endpoints
  smrt endpoints --object Product --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEndpoints(cmd, root, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.objects, "object", nil, "limit output to these classes or collections")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "API path prefix (default from config)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON")

	return cmd
}

func runEndpoints(cmd *cobra.Command, root *rootOptions, opts *endpointsOptions) error {
	p, err := loadProject(cmd, root)
	if err != nil {
		return err
	}
	m, err := p.loadManifest(cmd.Context(), p.diagnostics(cmd.ErrOrStderr()), buildOptions{})
	if err != nil {
		return err
	}
	defs, err := selectObjects(m, opts.objects)
	if err != nil {
		return err
	}

	prefix := p.cfg.Schema.APIPrefix
	if cmd.Flags().Changed("prefix") {
		prefix = opts.prefix
	}

	surfaces := make([]objectSurfaces, 0, len(defs))
	for _, def := range defs {
		surfaces = append(surfaces, surfacesOf(def, prefix))
	}

	if opts.asJSON {
		return writeJSON(cmd.OutOrStdout(), surfaces)
	}

	out := cmd.OutOrStdout()
	for i, s := range surfaces {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s (%s)\n", bold(s.Object), s.Collection)
		printSection(out, "REST", endpointLines(s.Endpoints))
		printSection(out, "CLI", s.Commands)
		printSection(out, "MCP", s.MCPActions)
	}
	return nil
}

func surfacesOf(def *manifest.SmartObjectDefinition, prefix string) objectSurfaces {
	s := objectSurfaces{
		Object:     def.ClassName,
		Collection: def.Collection,
		Endpoints:  projection.Endpoints(def, prefix),
		Commands:   []string{},
		MCPActions: projection.MCPActions(def),
	}
	if s.Endpoints == nil {
		s.Endpoints = []projection.Endpoint{}
	}
	for _, c := range projection.Commands(def) {
		s.Commands = append(s.Commands, c.Use())
	}
	if s.MCPActions == nil {
		s.MCPActions = []string{}
	}
	return s
}

func endpointLines(eps []projection.Endpoint) []string {
	out := make([]string, 0, len(eps))
	for _, e := range eps {
		out = append(out, e.String())
	}
	return out
}

func printSection(out io.Writer, title string, lines []string) {
	fmt.Fprintf(out, "  %s\n", cyan(title))
	if len(lines) == 0 {
		fmt.Fprintln(out, "    (disabled)")
		return
	}
	for _, line := range lines {
		fmt.Fprintf(out, "    %s\n", line)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
