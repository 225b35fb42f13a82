package wizard

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStep follows a fixed script. BeforeNext copies input into the state.
type fakeStep struct {
	kind    Kind
	next    Kind
	prev    Kind
	canNext bool
	canPrev bool
	input   string
	log     *[]string
}

func (s *fakeStep) Kind() Kind    { return s.kind }
func (s *fakeStep) HasNext() bool { return s.canNext }
func (s *fakeStep) HasPrev() bool { return s.canPrev }

func (s *fakeStep) BeforeNext(st *State) {
	*s.log = append(*s.log, "before:"+string(s.kind))
	if s.input != "" {
		st.ServerAddress = s.input
	}
}

func (s *fakeStep) Next(*State) Kind {
	*s.log = append(*s.log, "next:"+string(s.kind))
	return s.next
}

func (s *fakeStep) Prev(*State) Kind {
	*s.log = append(*s.log, "prev:"+string(s.kind))
	return s.prev
}

// flow is slot_select → details → confirm → done.
type flow struct {
	steps map[Kind]fakeStep
	log   []string
	built []Kind
}

func newFlow() *flow {
	return &flow{steps: map[Kind]fakeStep{
		KindSlotSelect: {kind: KindSlotSelect, next: KindDetails, prev: KindNone, canNext: true, canPrev: true},
		KindDetails:    {kind: KindDetails, next: KindConfirm, prev: KindSlotSelect, canNext: true, canPrev: true, input: "rsp.example.com"},
		KindConfirm:    {kind: KindConfirm, next: KindNone, prev: KindDetails, canNext: true, canPrev: true},
	}}
}

func (f *flow) factory(k Kind) (*fakeStep, error) {
	s, ok := f.steps[k]
	if !ok {
		return nil, UnknownStep(k)
	}
	s.log = &f.log
	f.built = append(f.built, k)
	return &s, nil
}

func newController(t *testing.T, f *flow) (*Controller[*fakeStep], *[]RenderEvent[*fakeStep], *[]Outcome) {
	t.Helper()
	c := New[*fakeStep](f.factory)
	var renders []RenderEvent[*fakeStep]
	var outcomes []Outcome
	c.OnRender(func(e RenderEvent[*fakeStep]) { renders = append(renders, e) })
	c.OnFinish(func(o Outcome) { outcomes = append(outcomes, o) })
	require.NoError(t, c.Initialize(2, nil))
	return c, &renders, &outcomes
}

func TestController_InitializeFresh(t *testing.T) {
	c, renders, _ := newController(t, newFlow())

	assert.Equal(t, KindSlotSelect, c.Current().Kind())
	assert.Equal(t, KindSlotSelect, c.State().CurrentStep)
	assert.Equal(t, 2, c.State().SelectedSlot)
	assert.Equal(t, "", c.State().ServerAddress)
	assert.False(t, c.State().DownloadStarted)
	assert.EqualValues(t, -1, c.State().DownloadTaskID)

	require.Len(t, *renders, 1)
	assert.Equal(t, DirectionNone, (*renders)[0].Direction)
	assert.Equal(t, Controls{Next: true, Prev: true}, c.Controls())
}

func TestController_ExamplePath(t *testing.T) {
	f := newFlow()
	c, renders, outcomes := newController(t, f)

	require.NoError(t, c.OnNext())
	assert.Equal(t, KindDetails, c.Current().Kind())

	require.NoError(t, c.OnNext())
	assert.Equal(t, KindConfirm, c.Current().Kind())
	assert.Equal(t, "rsp.example.com", c.State().ServerAddress)

	// Back from confirm keeps the address.
	require.NoError(t, c.OnPrev())
	assert.Equal(t, KindDetails, c.Current().Kind())
	assert.Equal(t, "rsp.example.com", c.State().ServerAddress)
	assert.Equal(t, DirectionBackward, (*renders)[len(*renders)-1].Direction)

	require.NoError(t, c.OnNext())
	require.NoError(t, c.OnNext())
	assert.True(t, c.Finished())
	assert.Equal(t, OutcomeCompleted, c.Outcome())
	assert.Equal(t, []Outcome{OutcomeCompleted}, *outcomes)

	wantKinds := []Kind{KindSlotSelect, KindDetails, KindConfirm, KindDetails, KindConfirm}
	var got []Kind
	for _, r := range *renders {
		got = append(got, r.Step.Kind())
	}
	if diff := cmp.Diff(wantKinds, got); diff != "" {
		t.Errorf("rendered steps mismatch (-want +got):\n%s", diff)
	}
}

func TestController_BeforeNextRunsBetweenCheckAndNext(t *testing.T) {
	f := newFlow()
	c, _, _ := newController(t, f)

	require.NoError(t, c.OnNext())

	want := []string{"before:slot_select", "next:slot_select"}
	if diff := cmp.Diff(want, f.log); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestController_CapabilityGatesTransitions(t *testing.T) {
	f := newFlow()
	s := f.steps[KindSlotSelect]
	s.canNext = false
	s.canPrev = false
	f.steps[KindSlotSelect] = s

	c, renders, outcomes := newController(t, f)
	assert.Equal(t, Controls{}, c.Controls())

	require.NoError(t, c.OnNext())
	require.NoError(t, c.OnPrev())

	assert.Empty(t, f.log, "neither hook nor factory consulted")
	assert.Len(t, *renders, 1)
	assert.Empty(t, *outcomes)
	assert.Equal(t, KindSlotSelect, c.Current().Kind())
}

func TestController_PrevAtFirstStepCancels(t *testing.T) {
	f := newFlow()
	c, renders, outcomes := newController(t, f)

	require.NoError(t, c.OnPrev())

	assert.Equal(t, OutcomeCancelled, c.Outcome())
	assert.Equal(t, []Outcome{OutcomeCancelled}, *outcomes)
	assert.Len(t, *renders, 1, "no step rendered on cancel")
	assert.Equal(t, Controls{}, c.Controls())
}

func TestController_NoOpAfterFinish(t *testing.T) {
	f := newFlow()
	c, renders, outcomes := newController(t, f)
	require.NoError(t, c.OnPrev())

	require.NoError(t, c.OnNext())
	require.NoError(t, c.OnPrev())

	assert.Len(t, *renders, 1)
	assert.Len(t, *outcomes, 1)
	assert.False(t, c.RefreshControls())
}

func TestController_UnknownStepFromFactory(t *testing.T) {
	f := newFlow()
	s := f.steps[KindSlotSelect]
	s.next = KindProgress // not in this flow
	f.steps[KindSlotSelect] = s

	c, _, _ := newController(t, f)
	err := c.OnNext()
	assert.True(t, errors.Is(err, ErrUnknownStep))
	assert.Equal(t, KindSlotSelect, c.Current().Kind(), "cursor unchanged")
}

func TestController_RefreshControls(t *testing.T) {
	c, _, _ := newController(t, newFlow())

	assert.False(t, c.RefreshControls())
	c.Current().canNext = false
	assert.True(t, c.RefreshControls())
	assert.Equal(t, Controls{Next: false, Prev: true}, c.Controls())
}

func TestController_RestoreRebuildsSameStepAndSlot(t *testing.T) {
	f := newFlow()
	c, _, _ := newController(t, f)
	require.NoError(t, c.OnNext())
	require.NoError(t, c.OnNext())
	saved := c.Persist()

	f2 := newFlow()
	restored := New[*fakeStep](f2.factory)
	require.NoError(t, restored.Initialize(0, &saved))

	assert.Equal(t, KindConfirm, restored.Current().Kind())
	assert.Equal(t, 2, restored.State().SelectedSlot)
	assert.Equal(t, "rsp.example.com", restored.State().ServerAddress)
	assert.Equal(t, []Kind{KindConfirm}, f2.built, "only the persisted step is built")
}

func TestController_RestoreWithoutStepStartsAtSlotSelect(t *testing.T) {
	slot := 5
	c := New[*fakeStep](newFlow().factory)
	require.NoError(t, c.Initialize(0, &Bundle{Version: bundleVersion, SelectedSlot: &slot}))

	assert.Equal(t, KindSlotSelect, c.Current().Kind())
	assert.Equal(t, 5, c.State().SelectedSlot)
}
