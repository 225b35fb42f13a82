package logview

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/config"
	"github.com/esimkit/esimctl/internal/logging"
)

// Source is what the viewer shows: either text handed in by the caller or
// a file read on every refresh.
type Source struct {
	text string
	path string
}

// TextSource shows fixed text, such as logs piped in on stdin.
func TextSource(text string) Source {
	return Source{text: text}
}

// FileSource shows the contents of path.
func FileSource(path string) Source {
	return Source{path: path}
}

// SelfLog shows esimctl's own log file. When logging writes to a file that
// one is used, otherwise the default location in the state directory.
func SelfLog() (Source, error) {
	if path := logging.FilePath(); path != "" {
		return FileSource(path), nil
	}
	path, err := config.StateFile(logging.LogFileName)
	if err != nil {
		return Source{}, fmt.Errorf("failed to locate log file: %w", err)
	}
	return FileSource(path), nil
}

// Describe names the source for headers.
func (s Source) Describe() string {
	if s.path == "" {
		return "supplied text"
	}
	return s.path
}

// Load returns the current text. A log file that does not exist yet reads
// as empty.
func (s Source) Load() (string, error) {
	if s.path == "" {
		return s.text, nil
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return string(data), nil
}

const exportTimeLayout = "2006-01-02_15-04-05"

// DefaultExportName is the file name offered when exporting at t.
func DefaultExportName(t time.Time) string {
	return "esimctl-logs-" + t.Format(exportTimeLayout) + ".txt"
}

// Export writes text to dest verbatim. An empty destination means the user
// backed out: nothing is written and written is false.
func Export(dest, text string) (written bool, err error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return false, nil
	}
	if err := config.WriteFileAtomic(dest, []byte(text), 0644); err != nil {
		return false, fmt.Errorf("failed to export logs: %w", err)
	}
	logging.Info("Logs exported", zap.String("path", dest))
	return true, nil
}
