package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"getcmake/internal/catalog"
	"getcmake/internal/tools"
)

// Version is stamped at build time with -ldflags "-X getcmake/internal/cli.Version=...".
var Version = "dev"

func buildVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the getcmake version and the newest catalog releases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := struct {
				Version string            `json:"version"`
				Go      string            `json:"go"`
				Latest  map[string]string `json:"latest"`
			}{
				Version: buildVersion(),
				Go:      runtime.Version(),
				Latest:  map[string]string{},
			}
			for _, name := range tools.KnownTools() {
				c, err := catalog.Embedded(name)
				if err != nil {
					return err
				}
				if v, ok := newestRelease(c); ok {
					info.Latest[name] = v
				}
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("encode json: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprintf(out, "getcmake %s (%s)\n", info.Version, info.Go)
			for _, name := range tools.KnownTools() {
				fmt.Fprintf(out, "  %s latest: %s\n", name, info.Latest[name])
			}
			return nil
		},
	}
}

// newestRelease returns the version the "latest" alias points at on any
// platform.
func newestRelease(c *catalog.Catalog) (string, bool) {
	for _, p := range catalog.Platforms {
		desc, ok := c.Lookup(catalog.Latest, p)
		if !ok {
			continue
		}
		for _, v := range c.Versions() {
			if catalog.IsReserved(v) {
				continue
			}
			if d, ok := c.Lookup(v, p); ok && d.URL == desc.URL {
				return v, true
			}
		}
	}
	return "", false
}
