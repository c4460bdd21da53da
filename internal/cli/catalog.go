package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"getcmake/internal/catalog"
	"getcmake/internal/tools"
	"getcmake/internal/tui"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect or regenerate the release catalogs",
	}

	cmd.AddCommand(newCatalogListCmd())
	cmd.AddCommand(newCatalogResolveCmd())
	cmd.AddCommand(newCatalogGenerateCmd())
	return cmd
}

func catalogFor(cmd *cobra.Command, tool string) (*catalog.Catalog, error) {
	if _, ok := tools.Definition(tool); !ok {
		return nil, fmt.Errorf("unknown tool %q (known: %s)", tool, strings.Join(tools.KnownTools(), ", "))
	}
	s, _, err := loadSettings(cmd, nil)
	if err != nil {
		return nil, err
	}
	file := s.Config.Catalogs.CMakeFile
	if tool == tools.Ninja {
		file = s.Config.Catalogs.NinjaFile
	}
	return loadCatalog(tool, file)
}

func newCatalogListCmd() *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "list <tool>",
		Short: "List catalog versions and the platforms they ship for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalogFor(cmd, args[0])
			if err != nil {
				return err
			}
			var filter catalog.Platform
			if platform != "" {
				if filter, err = catalog.ParsePlatform(platform); err != nil {
					return err
				}
			}
			return printCatalog(cmd, c, filter)
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "Only list versions available for this platform")
	return cmd
}

type catalogRow struct {
	Version   string             `json:"version"`
	Platforms []catalog.Platform `json:"platforms"`
}

func printCatalog(cmd *cobra.Command, c *catalog.Catalog, filter catalog.Platform) error {
	var rows []catalogRow
	for _, v := range c.Versions() {
		platforms := c.Platforms(v)
		if filter != "" {
			if _, ok := c.Lookup(v, filter); !ok {
				continue
			}
		}
		rows = append(rows, catalogRow{Version: v, Platforms: platforms})
	}

	if outputJSON {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	faint := lipgloss.NewStyle().Faint(true)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tPLATFORMS")
	for _, r := range rows {
		names := make([]string, len(r.Platforms))
		for i, p := range r.Platforms {
			names[i] = string(p)
		}
		version := r.Version
		if catalog.IsReserved(version) {
			version = faint.Render(version)
		}
		fmt.Fprintf(w, "%s\t%s\n", version, strings.Join(names, ", "))
	}
	return w.Flush()
}

func newCatalogResolveCmd() *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "resolve <tool> <version>",
		Short: "Show which catalog release a version or range selects",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalogFor(cmd, args[0])
			if err != nil {
				return err
			}
			p, err := choosePlatform(platform)
			if err != nil {
				return err
			}
			version, desc, err := catalog.ResolveDescriptor(c, args[1], p)
			if err != nil {
				return err
			}

			if outputJSON {
				data, err := json.MarshalIndent(struct {
					Version    string                    `json:"version"`
					Platform   catalog.Platform          `json:"platform"`
					Descriptor catalog.PackageDescriptor `json:"descriptor"`
				}{version, p, desc}, "", "  ")
				if err != nil {
					return fmt.Errorf("encode json: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n  %s\n", args[0], version, p, desc.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "Catalog platform (default: this host)")
	return cmd
}

func newCatalogGenerateCmd() *cobra.Command {
	var (
		outDir  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "generate [tool...]",
		Short: "Rebuild catalogs from the GitHub releases API",
		Long: "Rebuild catalogs from the GitHub releases API. Set GITHUB_TOKEN to avoid " +
			"the anonymous rate limit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = tools.KnownTools()
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return generateCatalogs(ctx, cmd, names, outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "Directory to write <tool>.json into")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Give up after this long")
	return cmd
}

func generateCatalogs(ctx context.Context, cmd *cobra.Command, names []string, outDir string) error {
	token, _ := lookupEnv("GITHUB_TOKEN")
	fetcher := catalog.NewFetcher(token, logger)
	if base, ok := lookupEnv("GITHUB_API_URL"); ok && base != "" {
		fetcher.BaseURL = strings.TrimRight(base, "/")
	}

	var status *tui.StatusWriter
	if tui.DetectMode(cmd.ErrOrStderr(), false, outputJSON, false) == tui.ModeTUI {
		status = tui.NewStatusWriter(cmd.ErrOrStderr())
		defer status.Stop()
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("prepare output dir: %w", err)
	}
	for _, name := range names {
		if _, ok := catalog.Sources[name]; !ok {
			return fmt.Errorf("no release source for %q", name)
		}
		if status != nil {
			status.Updatef("Collecting %s releases", name)
		}
		c, err := catalog.Generate(ctx, name, fetcher)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s catalog: %w", name, err)
		}
		path := filepath.Join(outDir, name+".json")
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Infof("wrote %s (%d versions)", path, len(c.Versions()))
	}
	return nil
}
