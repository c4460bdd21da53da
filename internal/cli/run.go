package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"getcmake/internal/actions"
	"getcmake/internal/archive"
	"getcmake/internal/catalog"
	"getcmake/internal/toolcache"
	"getcmake/internal/tools"
	"getcmake/internal/tui"
)

func newRunCmd() *cobra.Command {
	var (
		flags      configFlags
		platform   string
		noProgress bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Provision CMake and Ninja and add them to PATH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runProvision(ctx, cmd, &flags, platform, noProgress)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&platform, "platform", "", "Catalog platform (default: this host)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the interactive progress table")
	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Minute, "Give up after this long")
	return cmd
}

func runProvision(ctx context.Context, cmd *cobra.Command, flags *configFlags, platformFlag string, noProgress bool) error {
	s, results, err := loadSettings(cmd, flags)
	for _, r := range results {
		if r.Level == "warning" {
			logger.Warn(r.Message)
		}
	}
	if err != nil {
		return err
	}

	platform, err := choosePlatform(platformFlag)
	if err != nil {
		return err
	}
	cmakeCat, ninjaCat, err := loadCatalogs(s.Config)
	if err != nil {
		return err
	}

	getter := &tools.Getter{
		CMake:      cmakeCat,
		Ninja:      ninjaCat,
		Downloader: tools.NewHTTPDownloader(logger),
		Extractor:  archive.Extractor{},
		Path:       actions.NewPathEnv(s.Paths.PathFile),
		Probe:      tools.ProbeVersion,
		Logger:     logger,
	}
	if s.Config.LocalCacheEnabled() {
		getter.Local = toolcache.New(s.Paths.ToolCache)
	}
	if s.Config.RemoteCacheEnabled() {
		remote, err := newRemoteCache(s)
		if err != nil {
			return err
		}
		getter.Remote = remote
	}

	req := tools.Request{
		CMakeVersion:   s.Config.CMakeVersion,
		NinjaVersion:   s.Config.NinjaVersion,
		Platform:       platform,
		ScratchRoot:    s.Paths.Temp,
		DownloadDir:    s.Paths.DownloadsDir(),
		UseLocalCache:  s.Config.LocalCacheEnabled(),
		UseRemoteCache: s.Config.RemoteCacheEnabled(),
	}

	out := cmd.OutOrStdout()
	workflow := actions.IsActions(lookupEnv)
	var outcome tools.Outcome

	switch tui.DetectMode(out, noProgress, outputJSON, workflow) {
	case tui.ModeTUI:
		err = runWithProgress(ctx, out, getter, req, &outcome)
	default:
		var cmds *actions.Commands
		if workflow {
			cmds = actions.NewCommands(out)
		}
		getter.Reporter = actions.NewGroupReporter(cmds, logger)
		outcome, err = getter.Run(ctx, req)
	}
	if err != nil {
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	if !workflow {
		printOutcome(out, outcome)
	}
	return nil
}

func choosePlatform(flag string) (catalog.Platform, error) {
	if flag != "" {
		return catalog.ParsePlatform(flag)
	}
	return catalog.DetectPlatform()
}

// runWithProgress drives the getter behind the progress table. Console
// logging is paused while the table owns the terminal.
func runWithProgress(ctx context.Context, out io.Writer, getter *tools.Getter, req tools.Request, outcome *tools.Outcome) error {
	if l, ok := logger.(*log.Logger); ok {
		prev := l.Out
		l.SetOutput(io.Discard)
		defer l.SetOutput(prev)
	}

	model := tui.NewToolModel("getcmake", tools.KnownTools())
	return tui.RunWithWork(out, model, func(send func(tea.Msg)) error {
		getter.Reporter = tui.NewToolReporter(send)
		result, err := getter.Run(ctx, req)
		*outcome = result
		return err
	})
}

func printOutcome(w io.Writer, o tools.Outcome) {
	bold := lipgloss.NewStyle().Bold(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	faint := lipgloss.NewStyle().Faint(true)

	source := "downloaded"
	switch {
	case o.LocalCacheHit:
		source = "local cache"
	case o.RemoteCacheHit:
		source = "remote cache"
	}
	fmt.Fprintln(w, bold.Render("Install root:")+" "+o.InstallRoot+faint.Render(" ("+source+", key "+tools.KeyString(o.Key)+")"))
	for _, r := range []tools.ToolResult{o.CMake, o.Ninja} {
		headline := green.Render("✓") + " " + bold.Render(r.Name) + " " + r.Version
		if r.ReportedVersion != "" {
			headline += faint.Render(" (" + r.ReportedVersion + ")")
		}
		fmt.Fprintln(w, headline)
		fmt.Fprintln(w, faint.Render("  "+tui.NonEmptyOrDash(r.Executable)))
	}
}
