package preferences

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/esimkit/esimctl/internal/config"
	"github.com/esimkit/esimctl/internal/logging"
)

// FileName is the preference file inside the configuration directory.
const FileName = "preferences.yaml"

const fileVersion = 1

type fileFormat struct {
	Version     int          `yaml:"version"`
	Preferences map[Key]bool `yaml:"preferences"`
}

// Repository is a persisted boolean key-value store with reactive reads.
// Subscribers receive the current value immediately and every later change,
// whether it came from Update or from an external edit of the file.
type Repository struct {
	path string

	mu     sync.Mutex
	values map[Key]bool
	subs   map[Key]map[int]chan bool
	nextID int
}

// Open loads the preference file at path. A missing file yields defaults.
func Open(path string) (*Repository, error) {
	r := &Repository{
		path:   path,
		values: make(map[Key]bool, len(defaults)),
		subs:   make(map[Key]map[int]chan bool),
	}
	for k, v := range defaults {
		r.values[k] = v
	}

	stored, err := readFile(path)
	if err != nil {
		return nil, err
	}
	for k, v := range stored {
		r.values[k] = v
	}
	return r, nil
}

// OpenDefault opens preferences.yaml in the configuration directory.
func OpenDefault() (*Repository, error) {
	path, err := config.ConfigFile(FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences path: %w", err)
	}
	return Open(path)
}

func readFile(path string) (map[Key]bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	if f.Version != fileVersion {
		return nil, fmt.Errorf("unsupported preferences version: %d (expected %d)", f.Version, fileVersion)
	}

	out := make(map[Key]bool, len(f.Preferences))
	for k, v := range f.Preferences {
		if !k.Valid() {
			logging.Warn("Ignoring unknown preference", zap.String("key", string(k)))
			continue
		}
		out[k] = v
	}
	return out, nil
}

// Path returns the backing file.
func (r *Repository) Path() string {
	return r.path
}

// Get returns the current value of key.
func (r *Repository) Get(key Key) (bool, error) {
	if !key.Valid() {
		return false, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[key], nil
}

// All returns a snapshot of every preference.
func (r *Repository) All() map[Key]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Key]bool, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Update sets key to value and persists the whole store. Each call performs
// exactly one file write. Subscribers are notified only when the value changed.
func (r *Repository) Update(ctx context.Context, key Key, value bool) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.values[key]
	r.values[key] = value
	if err := r.saveLocked(); err != nil {
		r.values[key] = old
		return err
	}

	logging.Debug("Preference updated",
		zap.String("key", string(key)),
		zap.Bool("value", value),
	)

	if old != value {
		r.notifyLocked(key, value)
	}
	return nil
}

func (r *Repository) saveLocked() error {
	data, err := yaml.Marshal(fileFormat{Version: fileVersion, Preferences: r.values})
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := config.WriteFileAtomic(r.path, data, 0600); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Subscribe returns a channel carrying the latest value of key. The current
// value is available immediately. Slow readers only ever see the newest value.
// The channel is closed once ctx is done.
func (r *Repository) Subscribe(ctx context.Context, key Key) (<-chan bool, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	ch := make(chan bool, 1)

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	if r.subs[key] == nil {
		r.subs[key] = make(map[int]chan bool)
	}
	r.subs[key][id] = ch
	ch <- r.values[key]
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.subs[key], id)
		close(ch)
		r.mu.Unlock()
	}()

	return ch, nil
}

// notifyLocked replaces any unread value in each subscriber's buffer.
func (r *Repository) notifyLocked(key Key, value bool) {
	for _, ch := range r.subs[key] {
		select {
		case <-ch:
		default:
		}
		ch <- value
	}
}

// Reload re-reads the backing file and notifies subscribers of any values
// that differ from memory. Keys missing from the file revert to defaults.
func (r *Repository) Reload() error {
	stored, err := readFile(r.path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for k, def := range defaults {
		v, ok := stored[k]
		if !ok {
			v = def
		}
		if r.values[k] != v {
			r.values[k] = v
			r.notifyLocked(k, v)
			logging.Debug("Preference changed externally",
				zap.String("key", string(k)),
				zap.Bool("value", v),
			)
		}
	}
	return nil
}

func (r *Repository) fileName() string {
	return filepath.Base(r.path)
}
