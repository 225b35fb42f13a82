package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestProgress_Advance(t *testing.T) {
	p := NewProgress("Downloading", []string{"preparing", "authenticating", "downloading", "installing"})

	p.Advance("downloading", 60)

	want := []StepStatus{StepComplete, StepComplete, StepRunning, StepPending}
	for i, s := range p.Steps {
		if s.Status != want[i] {
			t.Errorf("Steps[%d].Status = %v, want %v", i, s.Status, want[i])
		}
	}
	if p.Current() != 3 {
		t.Errorf("Current() = %d, want 3", p.Current())
	}
	if p.Percent != 0.6 {
		t.Errorf("Percent = %v, want 0.6", p.Percent)
	}
}

func TestProgress_UnknownStageMovesBarOnly(t *testing.T) {
	p := NewProgress("", []string{"a", "b"})
	p.Advance("mystery", 150)

	if p.Percent != 1 {
		t.Errorf("Percent = %v, want 1", p.Percent)
	}
	if p.Current() != 0 {
		t.Errorf("Current() = %d, want 0", p.Current())
	}
}

func TestProgress_Fail(t *testing.T) {
	p := NewProgress("", []string{"a", "b", "c"})
	p.Advance("b", 40)
	p.Fail("", "card removed")

	if p.Steps[1].Status != StepFailed {
		t.Errorf("Steps[1].Status = %v, want StepFailed", p.Steps[1].Status)
	}
	if !strings.Contains(p.Render(), "card removed") {
		t.Error("Render() missing failure message")
	}
}

func TestProgress_Complete(t *testing.T) {
	p := NewProgress("", []string{"a", "b"})
	p.Complete()
	for i, s := range p.Steps {
		if s.Status != StepComplete {
			t.Errorf("Steps[%d].Status = %v, want StepComplete", i, s.Status)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"SLOT", "NAME"}, [][]string{
		{"0", "Reader A"},
		{"12", "B"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("RenderTable() lines = %d, want 3", len(lines))
	}
	if lines[1] != "0     Reader A" {
		t.Errorf("row 1 = %q, want %q", lines[1], "0     Reader A")
	}
	if lines[2] != "12    B" {
		t.Errorf("row 2 = %q, want %q", lines[2], "12    B")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := Confirm(strings.NewReader(tt.input), &out, "Overwrite", []string{"file exists"}, "Continue?")
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRenderErrorBox_IncludesError(t *testing.T) {
	out := RenderErrorBox("Download", errors.New("boom"), []string{"check reader"}, 80)
	if !strings.Contains(out, "boom") || !strings.Contains(out, "check reader") {
		t.Errorf("RenderErrorBox() missing content:\n%s", out)
	}
}
