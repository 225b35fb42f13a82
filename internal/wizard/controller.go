package wizard

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
)

// Direction is the way the wizard moved to reach the rendered step.
type Direction int

const (
	DirectionNone Direction = iota // initial render or restore
	DirectionForward
	DirectionBackward
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return "none"
	}
}

// Outcome is how a wizard ended.
type Outcome int

const (
	OutcomeRunning Outcome = iota
	OutcomeCompleted
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "running"
	}
}

// Controls says which navigation buttons are shown.
type Controls struct {
	Next bool
	Prev bool
}

// RenderEvent is delivered every time a step becomes current.
type RenderEvent[S Step] struct {
	Step      S
	Direction Direction
	Controls  Controls
}

// Controller holds the wizard's single cursor. It is not safe for
// concurrent use; drive it from one goroutine (the UI's update loop).
type Controller[S Step] struct {
	session string
	factory Factory[S]
	state   *State

	current  S
	started  bool
	controls Controls
	outcome  Outcome

	onRender func(RenderEvent[S])
	onFinish func(Outcome)
}

// New creates a controller building steps with factory. Call Initialize
// before navigating.
func New[S Step](factory Factory[S]) *Controller[S] {
	return &Controller[S]{
		session: uuid.NewString(),
		factory: factory,
		state:   NewState(0),
	}
}

// OnRender registers the listener told about every rendered step.
func (c *Controller[S]) OnRender(fn func(RenderEvent[S])) {
	c.onRender = fn
}

// OnFinish registers the listener told when the wizard ends.
func (c *Controller[S]) OnFinish(fn func(Outcome)) {
	c.onFinish = fn
}

// Initialize starts a session on initialSlot. When restored is non-nil its
// entries are applied over the fresh state and the persisted step is
// rebuilt; otherwise the wizard opens on slot selection.
func (c *Controller[S]) Initialize(initialSlot int, restored *Bundle) error {
	c.state = NewState(initialSlot)
	c.outcome = OutcomeRunning
	c.started = false

	if restored != nil {
		return c.Restore(*restored)
	}
	return c.show(KindSlotSelect, DirectionNone)
}

// Restore applies b to the current state and rebuilds the step it names.
func (c *Controller[S]) Restore(b Bundle) error {
	c.state.RestoreFrom(b)

	kind := c.state.CurrentStep
	if kind == KindNone {
		kind = KindSlotSelect
	}
	logging.Debug("Restoring wizard",
		zap.String("session", c.session),
		zap.String("step", string(kind)),
		zap.Int("slot", c.state.SelectedSlot),
	)
	return c.show(kind, DirectionNone)
}

// Persist snapshots the state.
func (c *Controller[S]) Persist() Bundle {
	var b Bundle
	c.state.SaveTo(&b)
	return b
}

// OnNext advances when the current step allows it. A step answering
// KindNone completes the wizard. After the wizard ended this is a no-op.
func (c *Controller[S]) OnNext() error {
	if !c.active() || !c.current.HasNext() {
		return nil
	}

	c.current.BeforeNext(c.state)
	next := c.current.Next(c.state)
	if next == KindNone {
		c.finish(OutcomeCompleted)
		return nil
	}
	return c.show(next, DirectionForward)
}

// OnPrev goes back when the current step allows it. A step answering
// KindNone cancels the wizard. Back keys map here.
func (c *Controller[S]) OnPrev() error {
	if !c.active() || !c.current.HasPrev() {
		return nil
	}

	prev := c.current.Prev(c.state)
	if prev == KindNone {
		c.finish(OutcomeCancelled)
		return nil
	}
	return c.show(prev, DirectionBackward)
}

// Render makes step current, records its kind and recomputes controls.
func (c *Controller[S]) Render(step S, dir Direction) {
	from := c.state.CurrentStep
	c.current = step
	c.started = true
	c.state.CurrentStep = step.Kind()
	c.controls = controlsOf(step)

	logging.LogTransition(c.session, string(from), string(step.Kind()), dir.String())

	if c.onRender != nil {
		c.onRender(RenderEvent[S]{Step: step, Direction: dir, Controls: c.controls})
	}
}

// RefreshControls re-reads the current step's capabilities, for when its
// input changed without a transition. It reports whether they changed.
func (c *Controller[S]) RefreshControls() bool {
	if !c.active() {
		return false
	}
	next := controlsOf(c.current)
	changed := next != c.controls
	c.controls = next
	return changed
}

func (c *Controller[S]) show(kind Kind, dir Direction) error {
	step, err := c.factory(kind)
	if err != nil {
		return err
	}
	c.Render(step, dir)
	return nil
}

func (c *Controller[S]) finish(o Outcome) {
	c.outcome = o
	c.controls = Controls{}
	logging.Debug("Wizard finished",
		zap.String("session", c.session),
		zap.String("outcome", o.String()),
		zap.String("step", string(c.state.CurrentStep)),
	)
	if c.onFinish != nil {
		c.onFinish(o)
	}
}

func (c *Controller[S]) active() bool {
	return c.started && c.outcome == OutcomeRunning
}

func controlsOf(s Step) Controls {
	return Controls{Next: s.HasNext(), Prev: s.HasPrev()}
}

// Current returns the visible step.
func (c *Controller[S]) Current() S {
	return c.current
}

// State returns the shared state.
func (c *Controller[S]) State() *State {
	return c.state
}

// Controls returns the current navigation visibility.
func (c *Controller[S]) Controls() Controls {
	return c.controls
}

// Outcome reports whether and how the wizard ended.
func (c *Controller[S]) Outcome() Outcome {
	return c.outcome
}

// Finished reports whether the wizard ended.
func (c *Controller[S]) Finished() bool {
	return c.outcome != OutcomeRunning
}

// Session identifies this run in the logs.
func (c *Controller[S]) Session() string {
	return c.session
}
