// Package wizard is the download wizard's navigation state machine,
// independent of any UI.
//
// A Controller holds exactly one current Step. OnNext and OnPrev consult
// the step's HasNext/HasPrev before asking it for a neighbour; a step that
// answers KindNone ends the wizard, completed going forward and cancelled
// going back. Steps are a closed set named by Kind, and a Factory maps each
// Kind to a fresh step, which is how a wizard saved as a Bundle is rebuilt.
//
// State is shared by all steps and passed to them explicitly. SaveTo and
// RestoreFrom round-trip every field; Store keeps the bundle on disk between
// runs.
package wizard
