package actions

import (
	log "github.com/sirupsen/logrus"
)

// GroupReporter reports acquisition progress as collapsible log groups.
type GroupReporter struct {
	Commands *Commands
	Logger   log.FieldLogger
}

// NewGroupReporter writes groups through cmds and status lines through logger.
// cmds may be nil outside a workflow.
func NewGroupReporter(cmds *Commands, logger log.FieldLogger) *GroupReporter {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &GroupReporter{Commands: cmds, Logger: logger}
}

// StartGroup opens a log group. Without workflow commands the stage name is
// logged instead.
func (r *GroupReporter) StartGroup(name string) {
	if r.Commands == nil {
		r.Logger.Info(name)
		return
	}
	r.Commands.StartGroup(name)
}

func (r *GroupReporter) EndGroup() {
	if r.Commands != nil {
		r.Commands.EndGroup()
	}
}

// Update logs a per-tool status change.
func (r *GroupReporter) Update(tool, status, detail string) {
	entry := r.Logger.WithField("tool", tool)
	if detail == "" {
		entry.Info(status)
		return
	}
	entry.Infof("%s: %s", status, detail)
}
