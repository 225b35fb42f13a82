package lpa

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestAsDownloadError(t *testing.T) {
	original := &DownloadError{Stage: StageInstalling, Reason: "es10b_load_bound_profile_package", Message: "no space"}

	tests := []struct {
		name   string
		err    error
		reason string
		same   bool
	}{
		{name: "nil", err: nil},
		{name: "typed", err: original, reason: original.Reason, same: true},
		{name: "wrapped", err: fmt.Errorf("task 3: %w", original), reason: original.Reason, same: true},
		{name: "cancelled", err: context.Canceled, reason: ReasonCancelled},
		{name: "deadline", err: fmt.Errorf("waiting: %w", context.DeadlineExceeded), reason: ReasonCancelled},
		{name: "other", err: errors.New("boom"), reason: ReasonInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AsDownloadError(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("AsDownloadError(nil) = %v, want nil", got)
				}
				return
			}
			if got.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.reason)
			}
			if tt.same && got != original {
				t.Errorf("AsDownloadError() returned a copy, want the original")
			}
		})
	}
}

func TestDownloadError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &DownloadError{Reason: ReasonCancelled, Message: "ctx"})
	if !errors.Is(err, &DownloadError{Reason: ReasonCancelled}) {
		t.Error("errors.Is() = false, want true for matching reason")
	}
	if errors.Is(err, &DownloadError{Reason: ReasonInternal}) {
		t.Error("errors.Is() = true, want false for different reason")
	}
}

func TestDownloadError_Error(t *testing.T) {
	err := &DownloadError{Stage: StageAuthenticating, Reason: "es9p_initiate_authentication", Message: "8.1 invalid address"}
	want := "download failed while authenticating: es9p_initiate_authentication (8.1 invalid address)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestFailureFromLpac_Retryable(t *testing.T) {
	tests := []struct {
		function  string
		stage     Stage
		retryable bool
	}{
		{"es9p_initiate_authentication", StageAuthenticating, true},
		{"es10b_load_bound_profile_package", StageInstalling, false},
		{"es11_authenticate_client", StagePreparing, true},
		{"something_else", StagePreparing, false},
	}
	for _, tt := range tests {
		got := failureFromLpac(StagePreparing, tt.function, "")
		if got.Stage != tt.stage {
			t.Errorf("failureFromLpac(%q).Stage = %q, want %q", tt.function, got.Stage, tt.stage)
		}
		if got.Retryable != tt.retryable {
			t.Errorf("failureFromLpac(%q).Retryable = %v, want %v", tt.function, got.Retryable, tt.retryable)
		}
	}
}
