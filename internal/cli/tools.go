package cli

import (
	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/projection"
	"github.com/spf13/cobra"
)

// objectTools is the JSON form of one object's AI tool definitions.
type objectTools struct {
	Object string                    `json:"object"`
	Tools  []manifest.ToolDefinition `json:"tools"`
}

func newToolsCmd(root *rootOptions) *cobra.Command {
	var objects []string
	var all bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print AI tool definitions derived from object methods",
		Long: `Tools prints one JSON tool definition per AI-callable method. Which
methods are callable follows each object's ai decorator setting; by default
that is every public async method.

Objects without callable methods are omitted unless --all is given.

Examples:
  smrt tools
  smrt tools --object Task`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd, root)
			if err != nil {
				return err
			}
			m, err := p.loadManifest(cmd.Context(), p.diagnostics(cmd.ErrOrStderr()), buildOptions{})
			if err != nil {
				return err
			}
			defs, err := selectObjects(m, objects)
			if err != nil {
				return err
			}

			out := []objectTools{}
			for _, def := range defs {
				tools := projection.Tools(def)
				if len(tools) == 0 && !all {
					continue
				}
				if tools == nil {
					tools = []manifest.ToolDefinition{}
				}
				out = append(out, objectTools{Object: def.ClassName, Tools: tools})
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringSliceVar(&objects, "object", nil, "limit output to these classes or collections")
	cmd.Flags().BoolVar(&all, "all", false, "include objects without callable methods")

	return cmd
}
