package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/lpa"
)

// DefaultHistory is how many finished tasks a Manager remembers.
const DefaultHistory = 32

var (
	// ErrUnknownTask is returned for IDs that never existed or were pruned.
	ErrUnknownTask = errors.New("unknown task")
	// ErrSlotBusy is returned when a download is already running on a slot.
	ErrSlotBusy = errors.New("slot busy")
	// ErrInvalidRequest wraps validation failures of a download request.
	ErrInvalidRequest = errors.New("invalid download request")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("task manager closed")
)

type watcher struct {
	ch   chan lpa.Progress
	stop chan struct{}
}

type task struct {
	id       lpa.TaskID
	slot     int
	last     lpa.Progress
	watchers map[int]*watcher
}

// Manager turns a Backend into an lpa.Engine: every download runs in its
// own goroutine under a task ID, and any number of watchers can follow it.
type Manager struct {
	backend lpa.Backend
	history int
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	nextID   lpa.TaskID
	nextW    int
	tasks    map[lpa.TaskID]*task
	finished []lpa.TaskID
	busy     map[int]lpa.TaskID
}

// Option configures a Manager.
type Option func(*Manager)

// WithHistory bounds the number of finished tasks kept for late watchers.
func WithHistory(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.history = n
		}
	}
}

// WithDownloadTimeout bounds each download. Zero means no limit.
func WithDownloadTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// NewManager creates a manager running downloads on backend.
func NewManager(backend lpa.Backend, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		backend: backend,
		history: DefaultHistory,
		ctx:     ctx,
		cancel:  cancel,
		nextID:  1,
		tasks:   make(map[lpa.TaskID]*task),
		busy:    make(map[int]lpa.TaskID),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ lpa.Engine = (*Manager)(nil)

// Slots passes through to the backend.
func (m *Manager) Slots(ctx context.Context) ([]lpa.Slot, error) {
	return m.backend.Slots(ctx)
}

// StartDownload validates req and runs it in the background. The context
// only bounds the dispatch; the download itself lives until it finishes or
// the manager is closed.
func (m *Manager) StartDownload(ctx context.Context, req lpa.DownloadRequest) (lpa.TaskID, error) {
	if err := ctx.Err(); err != nil {
		return lpa.NoTask, err
	}
	if err := req.Validate(); err != nil {
		return lpa.NoTask, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return lpa.NoTask, ErrClosed
	}
	if running, ok := m.busy[req.Slot]; ok {
		return lpa.NoTask, fmt.Errorf("%w: slot %d is running task %d", ErrSlotBusy, req.Slot, running)
	}

	id := m.nextID
	m.nextID++

	t := &task{
		id:       id,
		slot:     req.Slot,
		last:     lpa.Progress{TaskID: id, Stage: lpa.StagePreparing},
		watchers: make(map[int]*watcher),
	}
	m.tasks[id] = t
	m.busy[req.Slot] = id

	logging.Info("Download started",
		zap.Int64("task", int64(id)),
		zap.Int("slot", req.Slot),
		zap.String("smdp", req.SMDP),
	)

	m.wg.Add(1)
	go m.run(t, req)

	return id, nil
}

func (m *Manager) run(t *task, req lpa.DownloadRequest) {
	defer m.wg.Done()

	ctx, cancel := m.ctx, context.CancelFunc(func() {})
	if m.timeout > 0 {
		ctx, cancel = context.WithTimeout(m.ctx, m.timeout)
	}
	err := m.backend.Download(ctx, req, func(stage lpa.Stage, percent int) {
		m.publish(t, lpa.Progress{TaskID: t.id, Stage: stage, Percent: percent})
	})
	if err != nil && m.ctx.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = &lpa.DownloadError{
			Reason:    lpa.ReasonTimeout,
			Message:   fmt.Sprintf("download did not finish within %s", m.timeout),
			Retryable: true,
		}
	}
	cancel()

	final := lpa.Progress{TaskID: t.id, Stage: lpa.StageDone, Percent: 100, Done: true}
	if err != nil {
		de := lpa.AsDownloadError(err)
		m.mu.Lock()
		final.Stage = t.last.Stage
		final.Percent = t.last.Percent
		m.mu.Unlock()
		if de.Stage == "" {
			de.Stage = final.Stage
		}
		final.Err = de
		logging.Warn("Download failed", zap.Int64("task", int64(t.id)), zap.Error(de))
	} else {
		logging.Info("Download finished", zap.Int64("task", int64(t.id)))
	}

	m.publish(t, final)
}

// publish records p as the task's latest event and hands it to every
// watcher. A Done event closes the watchers and retires the task.
func (m *Manager) publish(t *task, p lpa.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.last.Done {
		return
	}
	t.last = p

	for id, w := range t.watchers {
		offer(w.ch, p)
		if p.Done {
			close(w.stop)
			close(w.ch)
			delete(t.watchers, id)
		}
	}

	if p.Done {
		delete(m.busy, t.slot)
		m.finished = append(m.finished, t.id)
		for len(m.finished) > m.history {
			delete(m.tasks, m.finished[0])
			m.finished = m.finished[1:]
		}
	}
}

// offer replaces any unread event so a slow watcher only sees the newest.
func offer(ch chan lpa.Progress, p lpa.Progress) {
	select {
	case <-ch:
	default:
	}
	ch <- p
}

// Watch follows task id. The latest event is available immediately; the
// channel is closed after the Done event or when ctx is done.
func (m *Manager) Watch(ctx context.Context, id lpa.TaskID) (<-chan lpa.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}

	ch := make(chan lpa.Progress, 1)
	ch <- t.last
	if t.last.Done {
		close(ch)
		return ch, nil
	}

	w := &watcher{ch: ch, stop: make(chan struct{})}
	wid := m.nextW
	m.nextW++
	t.watchers[wid] = w

	go func() {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			if _, ok := t.watchers[wid]; ok {
				delete(t.watchers, wid)
				close(w.ch)
			}
			m.mu.Unlock()
		case <-w.stop:
		}
	}()

	return ch, nil
}

// Last returns the latest event of task id.
func (m *Manager) Last(id lpa.TaskID) (lpa.Progress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return lpa.Progress{}, false
	}
	return t.last, true
}

// Close cancels running downloads and waits for them to report.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}
