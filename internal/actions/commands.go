package actions

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Commands writes workflow commands to the runner's stdout.
type Commands struct {
	mu sync.Mutex
	w  io.Writer
}

// NewCommands writes to w; nil means os.Stdout.
func NewCommands(w io.Writer) *Commands {
	if w == nil {
		w = os.Stdout
	}
	return &Commands{w: w}
}

// Issue writes a single "::name::message" command.
func (c *Commands) Issue(name, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "::%s::%s\n", name, escapeData(message))
}

// Info writes a plain log line.
func (c *Commands) Info(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, message)
}

func (c *Commands) Debug(message string)   { c.Issue("debug", message) }
func (c *Commands) Warning(message string) { c.Issue("warning", message) }
func (c *Commands) Error(message string)   { c.Issue("error", message) }

// StartGroup begins a collapsible log group.
func (c *Commands) StartGroup(name string) { c.Issue("group", name) }

// EndGroup closes the current log group.
func (c *Commands) EndGroup() { c.Issue("endgroup", "") }

// Group runs fn inside a log group.
func (c *Commands) Group(name string, fn func() error) error {
	c.StartGroup(name)
	defer c.EndGroup()
	return fn()
}

// SetFailed reports the job step as failed.
func (c *Commands) SetFailed(message string) {
	c.Error(message)
}

func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}
