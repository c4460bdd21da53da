package tools

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ProbeVersion runs executable with versionSwitch and returns the first line
// of its output.
func ProbeVersion(ctx context.Context, executable, versionSwitch string) (string, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, executable, versionSwitch)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", filepath.Base(executable), versionSwitch, err)
	}
	return firstLine(strings.TrimSpace(string(output))), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimRight(text[:idx], "\r")
	}
	return text
}
