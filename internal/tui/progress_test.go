package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func toolModel() ProgressModel {
	return NewToolModel("getcmake", []string{"cmake", "ninja"})
}

func TestNewToolModelRows(t *testing.T) {
	m := toolModel()
	if len(m.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.rows))
	}
	if m.rows[1].Fields[0] != "ninja" || m.rows[1].Fields[2] != "pending" {
		t.Errorf("unexpected ninja row %v", m.rows[1].Fields)
	}
}

func TestRowUpdateMsg(t *testing.T) {
	m := toolModel()

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "cmake",
		Fields: map[string]string{"STATUS": "downloading", "VERSION": "3.20.2"},
	})
	m = updated.(ProgressModel)

	if m.rows[0].Fields[1] != "3.20.2" {
		t.Errorf("expected VERSION=3.20.2, got %q", m.rows[0].Fields[1])
	}
	if m.rows[0].Fields[2] != "downloading" {
		t.Errorf("expected STATUS=downloading, got %q", m.rows[0].Fields[2])
	}
	if m.rows[1].Fields[2] != "pending" {
		t.Errorf("expected ninja STATUS=pending, got %q", m.rows[1].Fields[2])
	}
}

func TestRowUpdateMsg_UnknownKey(t *testing.T) {
	m := toolModel()

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "meson",
		Fields: map[string]string{"STATUS": "ready"},
	})
	m = updated.(ProgressModel)

	for _, row := range m.rows {
		if row.Fields[2] != "pending" {
			t.Errorf("expected %s unchanged, got %q", row.Key, row.Fields[2])
		}
	}
}

func TestStageMsg(t *testing.T) {
	m := toolModel()

	updated, _ := m.Update(StageMsg{Name: "Restore from remote cache"})
	m = updated.(ProgressModel)
	if !strings.Contains(m.View(), "Restore from remote cache (0/2 ready)") {
		t.Errorf("expected stage in footer, got:\n%s", m.View())
	}

	updated, _ = m.Update(StageMsg{})
	m = updated.(ProgressModel)
	if !strings.Contains(m.View(), "Working (0/2 ready)") {
		t.Errorf("expected idle footer, got:\n%s", m.View())
	}
	if got := m.Stages(); len(got) != 1 || got[0] != "Restore from remote cache" {
		t.Errorf("unexpected stages %v", got)
	}
}

func TestWorkDoneMsg(t *testing.T) {
	m := toolModel()

	updated, cmd := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after WorkDoneMsg")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
	if strings.Contains(m.View(), "ready)") {
		t.Error("expected no footer once done")
	}
}

func TestErrorMsg(t *testing.T) {
	m := toolModel()

	updated, cmd := m.Update(ErrorMsg{Err: errors.New("remote cache unreachable")})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after ErrorMsg")
	}
	if m.Err() == nil {
		t.Error("expected Err() to be non-nil")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
	view := m.View()
	if !strings.Contains(view, "remote cache unreachable") || !strings.Contains(view, "cmake") {
		t.Errorf("expected table and error in view, got:\n%s", view)
	}
}

func TestView(t *testing.T) {
	m := toolModel()
	updated, _ := m.Update(RowUpdateMsg{Key: "ninja", Fields: map[string]string{"VERSION": "1.11.1", "STATUS": "cached"}})
	m = updated.(ProgressModel)

	view := m.View()
	for _, want := range []string{"getcmake", "TOOL", "VERSION", "STATUS", "DETAIL", "cmake", "1.11.1", "cached", "pending"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestNonEmptyOrDash(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "-"},
		{"  ", "-"},
		{"3.20.2", "3.20.2"},
		{" 3.20.2 ", "3.20.2"},
	}
	for _, tt := range tests {
		got := NonEmptyOrDash(tt.input)
		if got != tt.want {
			t.Errorf("NonEmptyOrDash(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"short", 10, "short"},
		{"a longer string here", 10, "a longe..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		got := TruncateWithEllipsis(tt.input, tt.max)
		if got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

func TestMarqueeText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		tick  int
		want  string
	}{
		{"short", 10, 0, "short"},
		{"ninja-linux.zip", 5, 0, "ninja"},
		{"ninja-linux.zip", 5, 1, "inja-"},
		{"ninja-linux.zip", 5, 6, "linux"},
		{"abcdef", 4, 6, "   a"},
	}
	for _, tt := range tests {
		got := marqueeText(tt.text, tt.width, tt.tick)
		if got != tt.want {
			t.Errorf("marqueeText(%q, %d, %d) = %q, want %q", tt.text, tt.width, tt.tick, got, tt.want)
		}
	}
}

func TestTickStopsAfterDone(t *testing.T) {
	m := toolModel()

	updated, cmd := m.Update(tickMsg{})
	m = updated.(ProgressModel)
	if m.tick != 1 || cmd == nil {
		t.Errorf("expected tick=1 and a follow-up tick, got tick=%d", m.tick)
	}

	updated, _ = m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)
	_, cmd = m.Update(tickMsg{})
	if cmd != nil {
		t.Error("expected no tick command after done")
	}
}

func TestProgressCounts(t *testing.T) {
	m := toolModel()
	m.AddRow("extra", []string{"extra", "-", "unverified"})
	updated, _ := m.Update(RowUpdateMsg{Key: "cmake", Fields: map[string]string{"STATUS": "ready"}})
	m = updated.(ProgressModel)

	ready, total := m.progressCounts()
	if total != 3 {
		t.Errorf("expected total=3, got %d", total)
	}
	if ready != 2 {
		t.Errorf("expected ready=2, got %d", ready)
	}
}

func TestCtrlC(t *testing.T) {
	m := toolModel()

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after ctrl+c")
	}
	if !errors.Is(m.Err(), ErrInterrupted) {
		t.Errorf("expected ErrInterrupted, got %v", m.Err())
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestToolReporter(t *testing.T) {
	var msgs []tea.Msg
	r := NewToolReporter(func(msg tea.Msg) { msgs = append(msgs, msg) })

	r.StartGroup("Resolve versions")
	r.Update("cmake", "resolved", "3.20.2")
	r.Update("cmake", "downloading", "https://example.com/cmake.tar.gz")
	r.EndGroup()

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if stage, ok := msgs[0].(StageMsg); !ok || stage.Name != "Resolve versions" {
		t.Errorf("unexpected first message %#v", msgs[0])
	}
	resolved := msgs[1].(RowUpdateMsg)
	if resolved.Fields["VERSION"] != "3.20.2" || resolved.Fields["DETAIL"] != "" {
		t.Errorf("unexpected resolved fields %v", resolved.Fields)
	}
	downloading := msgs[2].(RowUpdateMsg)
	if downloading.Fields["DETAIL"] != "https://example.com/cmake.tar.gz" {
		t.Errorf("unexpected downloading fields %v", downloading.Fields)
	}
	if _, exists := downloading.Fields["VERSION"]; exists {
		t.Error("expected downloading update to leave VERSION alone")
	}
	if stage := msgs[3].(StageMsg); stage.Name != "" {
		t.Errorf("expected empty stage, got %q", stage.Name)
	}
}
