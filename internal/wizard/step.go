package wizard

import (
	"errors"
	"fmt"
)

// ErrUnknownStep is returned when a persisted or produced Kind has no step.
var ErrUnknownStep = errors.New("unknown wizard step")

// Kind identifies a step. It is what gets persisted and what steps return
// to name their neighbours.
type Kind string

// The closed set of steps.
const (
	KindNone           Kind = ""
	KindSlotSelect     Kind = "slot_select"
	KindMethodSelect   Kind = "method_select"
	KindActivationCode Kind = "activation_code"
	KindDetails        Kind = "details"
	KindConfirm        Kind = "confirm"
	KindProgress       Kind = "progress"
	KindFailure        Kind = "failure"
)

// Kinds lists every step kind in flow order.
func Kinds() []Kind {
	return []Kind{
		KindSlotSelect,
		KindMethodSelect,
		KindActivationCode,
		KindDetails,
		KindConfirm,
		KindProgress,
		KindFailure,
	}
}

// Valid reports whether k names a step.
func (k Kind) Valid() bool {
	switch k {
	case KindSlotSelect, KindMethodSelect, KindActivationCode, KindDetails,
		KindConfirm, KindProgress, KindFailure:
		return true
	}
	return false
}

// Step is one screen of the wizard.
//
// HasNext and HasPrev are pure queries of the step's own input. BeforeNext
// commits that input into the state and runs once per OnNext, after the
// capability check. Next and Prev name the neighbouring step; KindNone ends
// the wizard.
type Step interface {
	Kind() Kind
	HasNext() bool
	HasPrev() bool
	BeforeNext(s *State)
	Next(s *State) Kind
	Prev(s *State) Kind
}

// Factory builds the step for a kind.
type Factory[S Step] func(k Kind) (S, error)

// UnknownStep wraps ErrUnknownStep with the offending kind.
func UnknownStep(k Kind) error {
	return fmt.Errorf("%w: %q", ErrUnknownStep, string(k))
}
