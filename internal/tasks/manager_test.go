package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/esimkit/esimctl/internal/lpa"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedBackend reports one stage, then blocks until released or cancelled.
type gatedBackend struct {
	started chan int
	release chan error
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{
		started: make(chan int, 8),
		release: make(chan error, 8),
	}
}

func (b *gatedBackend) Slots(context.Context) ([]lpa.Slot, error) {
	return []lpa.Slot{{ID: 0, Name: "Reader"}}, nil
}

func (b *gatedBackend) Download(ctx context.Context, req lpa.DownloadRequest, report lpa.ReportFunc) error {
	report(lpa.StageAuthenticating, 20)
	b.started <- req.Slot
	select {
	case err := <-b.release:
		if err == nil {
			report(lpa.StageInstalling, 80)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func request(slot int) lpa.DownloadRequest {
	return lpa.DownloadRequest{Slot: slot, SMDP: "rsp.example.com", MatchingID: "ABC"}
}

func drain(t *testing.T, ch <-chan lpa.Progress) lpa.Progress {
	t.Helper()
	var last lpa.Progress
	timeout := time.After(2 * time.Second)
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				return last
			}
			last = p
		case <-timeout:
			t.Fatal("watch channel not closed")
		}
	}
}

func TestManager_IDsStartAtOneAndGrow(t *testing.T) {
	b := newGatedBackend()
	m := NewManager(b)
	defer m.Close()

	id1, err := m.StartDownload(context.Background(), request(0))
	require.NoError(t, err)
	id2, err := m.StartDownload(context.Background(), request(1))
	require.NoError(t, err)

	assert.Equal(t, lpa.TaskID(1), id1)
	assert.Equal(t, lpa.TaskID(2), id2)

	b.release <- nil
	b.release <- nil
}

func TestManager_WatchSuccess(t *testing.T) {
	b := newGatedBackend()
	m := NewManager(b)
	defer m.Close()

	id, err := m.StartDownload(context.Background(), request(0))
	require.NoError(t, err)
	<-b.started

	ch, err := m.Watch(context.Background(), id)
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, lpa.StageAuthenticating, first.Stage)
	assert.False(t, first.Done)

	b.release <- nil
	final := drain(t, ch)
	assert.True(t, final.Done)
	assert.Nil(t, final.Err)
	assert.Equal(t, lpa.StageDone, final.Stage)
	assert.Equal(t, 100, final.Percent)
}

func TestManager_WatchFailure(t *testing.T) {
	b := newGatedBackend()
	m := NewManager(b)
	defer m.Close()

	id, err := m.StartDownload(context.Background(), request(0))
	require.NoError(t, err)
	<-b.started

	ch, err := m.Watch(context.Background(), id)
	require.NoError(t, err)

	b.release <- &lpa.DownloadError{Reason: "es9p_authenticate_client", Retryable: true}
	final := drain(t, ch)

	require.True(t, final.Failed())
	assert.Equal(t, "es9p_authenticate_client", final.Err.Reason)
	assert.Equal(t, lpa.StageAuthenticating, final.Err.Stage, "stage filled from the last event")
}

func TestManager_LateWatcherGetsFinalEvent(t *testing.T) {
	b := newGatedBackend()
	m := NewManager(b)
	defer m.Close()

	id, err := m.StartDownload(context.Background(), request(0))
	require.NoError(t, err)
	<-b.started
	b.release <- nil

	require.Eventually(t, func() bool {
		p, ok := m.Last(id)
		return ok && p.Done
	}, 2*time.Second, 10*time.Millisecond)

	ch, err := m.Watch(context.Background(), id)
	require.NoError(t, err)

	p, ok := <-ch
	require.True(t, ok)
	assert.True(t, p.Done)
	_, ok = <-ch
	assert.False(t, ok, "channel closed after the final event")
}

func TestManager_FanOut(t *testing.T) {
	b := newGatedBackend()
	m := NewManager(b)
	defer m.Close()

	id, err := m.StartDownload(context.Background(), request(0))
	require.NoError(t, err)
	<-b.started

	a, err := m.Watch(context.Background(), id)
	require.NoError(t, err)
	c, err := m.Watch(context.Background(), id)
	require.NoError(t, err)

	b.release <- nil
	assert.True(t, drain(t, a).Done)
	assert.True(t, drain(t, c).Done)
}

func TestManager_WatchCancel(t *testing.T) {
	b := newGatedBackend()
	m := NewManager(b)
	defer m.Close()

	id, err := m.StartDownload(context.Background(), request(0))
	require.NoError(t, err)
	<-b.started

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := m.Watch(ctx, id)
	require.NoError(t, err)
	<-ch

	cancel()
	final := drain(t, ch)
	assert.False(t, final.Done, "closed by cancel, not by completion")

	b.release <- nil
}

func TestManager_SlotBusy(t *testing.T) {
	b := newGatedBackend()
	m := NewManager(b)
	defer m.Close()

	id, err := m.StartDownload(context.Background(), request(3))
	require.NoError(t, err)
	<-b.started

	_, err = m.StartDownload(context.Background(), request(3))
	assert.True(t, errors.Is(err, ErrSlotBusy))

	b.release <- nil
	require.Eventually(t, func() bool {
		p, _ := m.Last(id)
		return p.Done
	}, 2*time.Second, 10*time.Millisecond)

	_, err = m.StartDownload(context.Background(), request(3))
	require.NoError(t, err, "slot is free again")
	b.release <- nil
}

func TestManager_UnknownAndInvalid(t *testing.T) {
	m := NewManager(newGatedBackend())
	defer m.Close()

	_, err := m.Watch(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrUnknownTask))

	id, err := m.StartDownload(context.Background(), lpa.DownloadRequest{Slot: 0})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, lpa.NoTask, id)
}

func TestManager_HistoryIsBounded(t *testing.T) {
	b := newGatedBackend()
	m := NewManager(b, WithHistory(2))
	defer m.Close()

	var ids []lpa.TaskID
	for i := 0; i < 3; i++ {
		id, err := m.StartDownload(context.Background(), request(0))
		require.NoError(t, err)
		<-b.started
		b.release <- nil
		require.Eventually(t, func() bool {
			p, _ := m.Last(id)
			return p.Done
		}, 2*time.Second, 10*time.Millisecond)
		ids = append(ids, id)
	}

	_, ok := m.Last(ids[0])
	assert.False(t, ok, "oldest task pruned")
	_, ok = m.Last(ids[2])
	assert.True(t, ok)
}

func TestManager_CloseCancelsRunning(t *testing.T) {
	b := newGatedBackend()
	m := NewManager(b)

	id, err := m.StartDownload(context.Background(), request(0))
	require.NoError(t, err)
	<-b.started

	ch, err := m.Watch(context.Background(), id)
	require.NoError(t, err)

	m.Close()

	final := drain(t, ch)
	require.True(t, final.Failed())
	assert.Equal(t, lpa.ReasonCancelled, final.Err.Reason)

	_, err = m.StartDownload(context.Background(), request(0))
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestManager_DownloadTimeout(t *testing.T) {
	b := newGatedBackend()
	m := NewManager(b, WithDownloadTimeout(50*time.Millisecond))
	defer m.Close()

	id, err := m.StartDownload(context.Background(), request(0))
	require.NoError(t, err)
	ch, err := m.Watch(context.Background(), id)
	require.NoError(t, err)

	final := drain(t, ch)
	require.True(t, final.Failed())
	assert.Equal(t, lpa.ReasonTimeout, final.Err.Reason)
	assert.True(t, final.Err.Retryable)
	assert.Equal(t, lpa.StageAuthenticating, final.Err.Stage)
}
