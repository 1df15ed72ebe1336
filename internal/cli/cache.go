package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/happyvertical/smrt-sub009/internal/storage"
	"github.com/spf13/cobra"
)

func newCacheCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the manifest cache",
		Long: `Manage the SQLite cache of previously built manifests.

Every scan stores its manifest under a fingerprint of the source files and
scan options. An unchanged project reuses the stored manifest instead of
rescanning.

Available commands:
  list   - Show cached manifests, most recently used first
  prune  - Keep only the most recently used manifests
  clean  - Delete the cache database`,
	}

	cmd.AddCommand(newCacheListCmd(root), newCachePruneCmd(root), newCacheCleanCmd(root))
	return cmd
}

// openCache opens the project's manifest cache.
func (p *project) openCache() (*storage.ManifestStore, error) {
	if !p.cfg.Storage.CacheEnabled {
		return nil, fmt.Errorf("manifest cache is disabled (storage.cache_enabled)")
	}
	return storage.OpenManifestStore(p.path(p.cfg.Storage.CachePath))
}

func newCacheListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show cached manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd, root)
			if err != nil {
				return err
			}
			store, err := p.openCache()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache Location: %s\n", p.path(p.cfg.Storage.CachePath))
			if len(entries) == 0 {
				fmt.Fprintln(out, "No cached manifests")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FINGERPRINT\tPACKAGE\tOBJECTS\tLAST USED")
			for _, e := range entries {
				pkg := e.PackageName
				if pkg == "" {
					pkg = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Fingerprint, pkg, formatNumber(e.ObjectCount), formatAge(time.Since(e.UsedAt)))
			}
			return tw.Flush()
		},
	}
}

func newCachePruneCmd(root *rootOptions) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Keep only the most recently used manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd, root)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep") {
				keep = p.cfg.Storage.CacheKeep
			}
			if keep < 1 {
				return fmt.Errorf("--keep must be at least 1")
			}

			store, err := p.openCache()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %d cached manifests\n", green("✓"), n)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "number of manifests to keep (default from config)")
	return cmd
}

func newCacheCleanCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete the cache database",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd, root)
			if err != nil {
				return err
			}

			path := p.path(p.cfg.Storage.CachePath)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No cache found for this project")
				return nil
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %s\n", green("✓"), path)
			return nil
		},
	}
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		if m := int(d.Minutes()); m != 1 {
			return fmt.Sprintf("%d mins ago", m)
		}
		return "1 min ago"
	case d < 24*time.Hour:
		if h := int(d.Hours()); h != 1 {
			return fmt.Sprintf("%d hours ago", h)
		}
		return "1 hour ago"
	default:
		if days := int(d.Hours() / 24); days != 1 {
			return fmt.Sprintf("%d days ago", days)
		}
		return "1 day ago"
	}
}
