package logview

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultExportName(t *testing.T) {
	ts := time.Date(2026, 3, 7, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "esimctl-logs-2026-03-07_14-05-09.txt", DefaultExportName(ts))
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	text := "line one\nüñîçødé\n"

	tests := []struct {
		name    string
		dest    string
		written bool
	}{
		{name: "empty destination", dest: "", written: false},
		{name: "blank destination", dest: "   ", written: false},
		{name: "file", dest: filepath.Join(dir, "out.txt"), written: true},
		{name: "nested directory", dest: filepath.Join(dir, "a", "b", "out.txt"), written: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			written, err := Export(tt.dest, text)
			require.NoError(t, err)
			assert.Equal(t, tt.written, written)
			if tt.written {
				data, err := os.ReadFile(tt.dest)
				require.NoError(t, err)
				assert.Equal(t, text, string(data))
			}
		})
	}
}

func TestExport_EmptyDestinationTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	written, err := Export("", "text")
	require.NoError(t, err)
	assert.False(t, written)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSource_Load(t *testing.T) {
	text, err := TextSource("hello").Load()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	path := filepath.Join(t.TempDir(), "missing.log")
	text, err = FileSource(path).Load()
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0600))
	text, err = FileSource(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "first\n", text)
}

// run executes cmd synchronously and feeds its message back into m.
func run(m *Model, cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg.(type) {
	case loadedMsg, exportedMsg:
		_, next := m.Update(msg)
		return run(m, next)
	}
	return msg
}

func press(m *Model, msg tea.KeyMsg) tea.Msg {
	_, cmd := m.Update(msg)
	return run(m, cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func fixedNow() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestModel_RefreshPicksUpNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esimctl.log")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0600))

	m := New(FileSource(path), Options{Now: fixedNow})
	run(m, m.Init())
	assert.Equal(t, "one\n", m.Text())
	assert.True(t, m.viewport.AtBottom())

	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0600))
	press(m, runes("r"))
	assert.Equal(t, "one\ntwo\n", m.Text())
}

func TestModel_ExportWritesDisplayedText(t *testing.T) {
	m := New(TextSource("displayed\n"), Options{Now: fixedNow})
	run(m, m.Init())

	press(m, runes("s"))
	require.True(t, m.prompting)
	assert.Equal(t, "esimctl-logs-2026-01-02_03-04-05.txt", m.dest.Value())

	dest := filepath.Join(t.TempDir(), "export.txt")
	m.dest.SetValue(dest)
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.prompting)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "displayed\n", string(data))
	assert.Contains(t, m.status, dest)
}

func TestModel_CancelledExportIsNoop(t *testing.T) {
	dir := t.TempDir()
	m := New(TextSource("x"), Options{Now: fixedNow})
	run(m, m.Init())

	press(m, runes("s"))
	m.dest.SetValue(filepath.Join(dir, "never.txt"))
	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.prompting)

	press(m, runes("s"))
	m.dest.SetValue("")
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestModel_Close(t *testing.T) {
	embedded := New(TextSource("x"), Options{})
	msg := press(embedded, runes("q"))
	assert.Equal(t, ClosedMsg{}, msg)

	standalone := New(TextSource("x"), Options{Standalone: true})
	msg = press(standalone, runes("q"))
	assert.Equal(t, tea.QuitMsg{}, msg)
}
