package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"getcmake/internal/actions"
)

// EnvLogLevel overrides the log level (trace, debug, info, warn, error).
const EnvLogLevel = "GETCMAKE_LOG_LEVEL"

// Options configures the logger.
type Options struct {
	// Verbose forces debug output.
	Verbose bool
	// Lookup reads the environment; nil means os.LookupEnv.
	Lookup func(string) (string, bool)
	// Out receives console output; nil means os.Stdout.
	Out io.Writer
}

// New builds the process logger. Inside a GitHub Actions job entries are
// rendered as workflow commands, elsewhere as plain text.
func New(opts Options) (*log.Logger, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	logger := log.New()
	logger.SetOutput(out)

	if actions.IsActions(lookup) {
		logger.SetFormatter(actions.WorkflowFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	}

	level := log.InfoLevel
	if v, _ := lookup("RUNNER_DEBUG"); v == "1" || opts.Verbose {
		level = log.DebugLevel
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		parsed, err := log.ParseLevel(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		level = parsed
	}
	logger.SetLevel(level)
	return logger, nil
}

// AttachFile mirrors every entry into a timestamped file inside dir. The
// returned closer should be closed when logging is no longer needed.
func AttachFile(logger *log.Logger, dir string) (string, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(dir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", nil, fmt.Errorf("open log file: %w", err)
	}

	logger.AddHook(&fileHook{
		w:         file,
		formatter: &log.TextFormatter{DisableColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339Nano},
	})
	return filePath, file, nil
}

type fileHook struct {
	w         io.Writer
	formatter log.Formatter
}

func (h *fileHook) Levels() []log.Level { return log.AllLevels }

func (h *fileHook) Fire(entry *log.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.w.Write(line)
	return err
}
