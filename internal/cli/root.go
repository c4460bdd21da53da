package cli

import (
	"errors"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"getcmake/internal/actions"
	"getcmake/internal/logx"
	"getcmake/internal/paths"
)

// ExitFailure is the process status for any failed run.
const ExitFailure = 2

var (
	configPath string
	verbose    bool
	logToFile  bool
	outputJSON bool

	// lookupEnv reads the environment; tests replace it.
	lookupEnv = os.LookupEnv

	logger    log.FieldLogger = log.StandardLogger()
	logCloser io.Closer
)

// Execute runs the root cobra command and exits with ExitFailure on error.
func Execute() {
	cmd := newRootCmd()
	err := cmd.Execute()
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err != nil {
		reportFailure(cmd.OutOrStdout(), err)
		os.Exit(ExitFailure)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "getcmake",
		Short:             "Provision CMake and Ninja on build workers",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to getcmake.yaml (default ~/.getcmake/getcmake.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "Also write logs to ~/.getcmake/logs")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	l, err := logx.New(logx.Options{Verbose: verbose, Lookup: lookupEnv, Out: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	if actions.IsActions(lookupEnv) {
		// Workflow commands are only recognised on stdout.
		l.SetOutput(cmd.OutOrStdout())
	}
	if logToFile {
		dir, err := paths.GlobalLogsDir()
		if err != nil {
			return err
		}
		path, closer, err := logx.AttachFile(l, dir)
		if err != nil {
			return err
		}
		logCloser = closer
		l.Debugf("logging to %s", path)
	}
	logger = l
	return nil
}

// reportFailure logs every wrapped cause at debug level and the top-level
// message as a failure.
func reportFailure(out io.Writer, err error) {
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		logger.Debugf("caused by %T: %v", cause, cause)
	}
	if actions.IsActions(lookupEnv) {
		actions.NewCommands(out).SetFailed(err.Error())
		return
	}
	logger.Error(err.Error())
}
