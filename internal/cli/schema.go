package cli

import (
	"fmt"
	"strings"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/projection"
	"github.com/happyvertical/smrt-sub009/internal/storage"
	"github.com/spf13/cobra"
)

type schemaOptions struct {
	dialect string
	objects []string
	apply   string
}

func newSchemaCmd(root *rootOptions) *cobra.Command {
	opts := &schemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print or apply the SQL schema for every smart object",
		Long: `Schema renders one CREATE TABLE statement per smart object plus its
indexes. Referenced tables are created before the tables that point at them.

With --apply the statements are executed inside a single transaction against
the given database instead of being printed. A postgres:// or postgresql://
DSN selects PostgreSQL; anything else is treated as a SQLite file path.

Examples:
  # Print SQLite DDL
  smrt schema

  # Print PostgreSQL DDL for one object
  smrt schema --dialect postgres --object Product

  # Create the tables in a local SQLite database
  smrt schema --apply ./data/app.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dialect, "dialect", "d", "", "SQL dialect: sqlite or postgres (default from config)")
	cmd.Flags().StringSliceVar(&opts.objects, "object", nil, "limit output to these classes or collections")
	cmd.Flags().StringVar(&opts.apply, "apply", "", "apply the schema to this database DSN")

	return cmd
}

func runSchema(cmd *cobra.Command, root *rootOptions, opts *schemaOptions) error {
	p, err := loadProject(cmd, root)
	if err != nil {
		return err
	}

	dialectName := p.cfg.Schema.Dialect
	if opts.dialect != "" {
		dialectName = opts.dialect
	}
	dialect, err := projection.ParseDialect(dialectName)
	if err != nil {
		return err
	}

	var target *storage.Target
	if opts.apply != "" {
		target, err = storage.OpenTarget(opts.apply)
		if err != nil {
			return err
		}
		defer target.Close()
		if opts.dialect != "" && dialect != target.Dialect {
			return fmt.Errorf("--dialect %s does not match %s target", dialect, target.Dialect)
		}
		dialect = target.Dialect
	}

	m, err := p.loadManifest(cmd.Context(), p.diagnostics(cmd.ErrOrStderr()), buildOptions{})
	if err != nil {
		return err
	}

	stmts, err := schemaStatements(m, dialect, opts.objects)
	if err != nil {
		return err
	}

	if target == nil {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(stmts, "\n"))
		return nil
	}

	n, err := storage.ApplySchema(cmd.Context(), target.DB, stmts)
	if err != nil {
		return err
	}
	p.logger.Info("applied schema", "dialect", dialect, "statements", n)
	fmt.Fprintf(cmd.OutOrStdout(), "%s Applied %d statements (%s)\n", green("✓"), n, dialect)
	return nil
}

// schemaStatements renders the whole schema, or only the named objects in
// the order given.
func schemaStatements(m *manifest.Manifest, dialect projection.Dialect, objects []string) ([]string, error) {
	if len(objects) == 0 {
		return projection.SchemaStatements(m, dialect)
	}

	defs, err := selectObjects(m, objects)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, def := range defs {
		stmts, err := projection.Statements(def, m, dialect)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	return out, nil
}

// selectObjects resolves class or collection names. No names selects every
// object, ordered by class name.
func selectObjects(m *manifest.Manifest, names []string) ([]*manifest.SmartObjectDefinition, error) {
	if len(names) == 0 {
		return m.Definitions(), nil
	}

	out := make([]*manifest.SmartObjectDefinition, 0, len(names))
	for _, name := range names {
		def, err := m.Object(name)
		if err != nil {
			def, err = m.ByCollection(name)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}
