package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ToolReporter turns provisioning progress into bubbletea messages.
type ToolReporter struct {
	send func(tea.Msg)
}

// NewToolReporter returns a reporter that delivers messages through send.
func NewToolReporter(send func(tea.Msg)) *ToolReporter {
	return &ToolReporter{send: send}
}

// StartGroup shows name as the running stage.
func (r *ToolReporter) StartGroup(name string) {
	r.send(StageMsg{Name: name})
}

// EndGroup clears the running stage.
func (r *ToolReporter) EndGroup() {
	r.send(StageMsg{})
}

// Update sets the status of tool's row. The detail of a "resolved" update is
// the resolved version.
func (r *ToolReporter) Update(tool, status, detail string) {
	fields := map[string]string{"STATUS": status, "DETAIL": detail}
	if status == "resolved" || status == "cached" {
		fields["VERSION"] = NonEmptyOrDash(detail)
		fields["DETAIL"] = ""
	}
	r.send(RowUpdateMsg{Key: tool, Fields: fields})
}
