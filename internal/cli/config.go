package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"getcmake/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var flags configFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration after inputs and flags are applied, in YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := loadSettings(cmd, &flags)
			if err != nil {
				return err
			}
			cfg := s.Config
			if cfg.RemoteCache.Token != "" {
				cfg.RemoteCache.Token = "redacted"
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			if len(data) == 0 || data[len(data)-1] != '\n' {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var flags configFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, results, err := loadSettings(cmd, &flags)
			if err != nil && results == nil {
				return err
			}
			if outputJSON {
				data, jerr := json.MarshalIndent(results, "", "  ")
				if jerr != nil {
					return fmt.Errorf("encode json: %w", jerr)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			printValidation(cmd, results)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func printValidation(cmd *cobra.Command, results []config.ValidationResult) {
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, green.Render("OK")+"    configuration is valid")
		return
	}
	for _, r := range results {
		label := yellow.Render("WARN ")
		if r.Level == "error" {
			label = red.Render("ERROR")
		}
		fmt.Fprintf(out, "%s %s\n", label, r.Message)
	}
}
