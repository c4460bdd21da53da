package actions

import (
	"bytes"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

// WorkflowFormatter renders logrus entries as workflow commands so the runner
// highlights warnings and errors and hides debug lines unless step debugging
// is on.
type WorkflowFormatter struct{}

// Format implements logrus.Formatter.
func (WorkflowFormatter) Format(entry *log.Entry) ([]byte, error) {
	msg := entry.Message
	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b bytes.Buffer
		b.WriteString(msg)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
		}
		msg = b.String()
	}

	var line string
	switch entry.Level {
	case log.TraceLevel, log.DebugLevel:
		line = "::debug::" + escapeData(msg)
	case log.WarnLevel:
		line = "::warning::" + escapeData(msg)
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		line = "::error::" + escapeData(msg)
	default:
		line = msg
	}
	return []byte(line + "\n"), nil
}
