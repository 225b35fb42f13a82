package lpa

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Download failure reasons that do not come from lpac itself.
const (
	ReasonCancelled = "cancelled"
	ReasonInternal  = "internal"
	ReasonTransport = "transport"
	ReasonTimeout   = "timeout"
)

// DownloadError is the typed failure of a download task. It crosses the
// daemon wire unchanged and is stored as-is in the wizard state.
type DownloadError struct {
	Stage     Stage  `json:"stage" yaml:"stage"`
	Reason    string `json:"reason" yaml:"reason"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
	Retryable bool   `json:"retryable" yaml:"retryable"`
}

func (e *DownloadError) Error() string {
	var b strings.Builder
	b.WriteString("download failed")
	if e.Stage != "" {
		fmt.Fprintf(&b, " while %s", e.Stage)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " (%s)", e.Message)
	}
	return b.String()
}

// Is matches another *DownloadError with the same reason, so callers can
// compare against a template such as &DownloadError{Reason: ReasonCancelled}.
func (e *DownloadError) Is(target error) bool {
	t, ok := target.(*DownloadError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// AsDownloadError converts any error into a *DownloadError. A nil error
// stays nil.
func AsDownloadError(err error) *DownloadError {
	if err == nil {
		return nil
	}

	var de *DownloadError
	if errors.As(err, &de) {
		return de
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &DownloadError{Reason: ReasonCancelled, Message: err.Error(), Retryable: true}
	}
	return &DownloadError{Reason: ReasonInternal, Message: err.Error()}
}

// failureFromLpac builds the error for a non-zero lpac result. Failures on
// the server side (es9p, es11) are worth retrying; card-side ones are not.
func failureFromLpac(stage Stage, function, detail string) *DownloadError {
	if s, ok := stageOf(function); ok {
		stage = s.stage
	}
	return &DownloadError{
		Stage:     stage,
		Reason:    function,
		Message:   detail,
		Retryable: strings.HasPrefix(function, "es9p") || strings.HasPrefix(function, "es11"),
	}
}
