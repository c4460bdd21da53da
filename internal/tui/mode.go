package tui

import (
	"io"
	"os"
	"runtime"
	"strings"
)

// OutputMode describes how progress output should be rendered.
type OutputMode int

const (
	// ModeTUI uses bubbletea for interactive progress rendering.
	ModeTUI OutputMode = iota
	// ModePlain writes log lines only.
	ModePlain
	// ModeJSON writes the outcome as JSON.
	ModeJSON
)

// DetectMode picks the output mode for out. Workflow runs always get plain
// output so the log keeps its group markers.
func DetectMode(out io.Writer, noProgress, jsonOutput, workflow bool) OutputMode {
	if jsonOutput {
		return ModeJSON
	}
	if noProgress || workflow {
		return ModePlain
	}
	file, ok := out.(*os.File)
	if !ok {
		return ModePlain
	}
	info, err := file.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return ModePlain
	}
	if runtime.GOOS != "windows" {
		term := os.Getenv("TERM")
		if term == "" || strings.EqualFold(term, "dumb") {
			return ModePlain
		}
	}
	return ModeTUI
}
