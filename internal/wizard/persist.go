package wizard

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/esimkit/esimctl/internal/config"
	"github.com/esimkit/esimctl/internal/lpa"
)

// StateFileName is the saved wizard inside the state directory.
const StateFileName = "wizard-state.yaml"

const bundleVersion = 1

// Bundle is the persisted form of State. Every entry is optional: restoring
// a bundle keeps the in-memory value for any entry that is absent.
type Bundle struct {
	Version              int                `yaml:"version"`
	SavedAt              time.Time          `yaml:"saved_at,omitempty"`
	CurrentStep          *Kind              `yaml:"current_step,omitempty"`
	SelectedSlot         *int               `yaml:"selected_slot,omitempty"`
	ServerAddress        *string            `yaml:"server_address,omitempty"`
	MatchingID           *string            `yaml:"matching_id,omitempty"`
	ConfirmationCode     *string            `yaml:"confirmation_code,omitempty"`
	ConfirmationRequired *bool              `yaml:"confirmation_required,omitempty"`
	IMEI                 *string            `yaml:"imei,omitempty"`
	DownloadStarted      *bool              `yaml:"download_started,omitempty"`
	DownloadTaskID       *int64             `yaml:"download_task_id,omitempty"`
	DownloadError        *lpa.DownloadError `yaml:"download_error,omitempty"`
}

// SaveTo writes every field of s into b.
func (s *State) SaveTo(b *Bundle) {
	step := s.CurrentStep
	slot := s.SelectedSlot
	addr := s.ServerAddress
	matching := s.MatchingID
	code := s.ConfirmationCode
	required := s.ConfirmationRequired
	imei := s.IMEI
	started := s.DownloadStarted
	task := int64(s.DownloadTaskID)

	b.Version = bundleVersion
	b.CurrentStep = &step
	b.SelectedSlot = &slot
	b.ServerAddress = &addr
	b.MatchingID = &matching
	b.ConfirmationCode = &code
	b.ConfirmationRequired = &required
	b.IMEI = &imei
	b.DownloadStarted = &started
	b.DownloadTaskID = &task
	b.DownloadError = nil
	if s.DownloadError != nil {
		e := *s.DownloadError
		b.DownloadError = &e
	}
}

// RestoreFrom applies each entry present in b. Absent entries leave the
// current value alone.
func (s *State) RestoreFrom(b Bundle) {
	if b.CurrentStep != nil {
		s.CurrentStep = *b.CurrentStep
	}
	if b.SelectedSlot != nil {
		s.SelectedSlot = *b.SelectedSlot
	}
	if b.ServerAddress != nil {
		s.ServerAddress = *b.ServerAddress
	}
	if b.MatchingID != nil {
		s.MatchingID = *b.MatchingID
	}
	if b.ConfirmationCode != nil {
		s.ConfirmationCode = *b.ConfirmationCode
	}
	if b.ConfirmationRequired != nil {
		s.ConfirmationRequired = *b.ConfirmationRequired
	}
	if b.IMEI != nil {
		s.IMEI = *b.IMEI
	}
	if b.DownloadStarted != nil {
		s.DownloadStarted = *b.DownloadStarted
	}
	if b.DownloadTaskID != nil {
		s.DownloadTaskID = lpa.TaskID(*b.DownloadTaskID)
	}
	if b.DownloadError != nil {
		e := *b.DownloadError
		s.DownloadError = &e
	}
}

// Store keeps one saved wizard on disk.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// DefaultStore uses wizard-state.yaml in the state directory.
func DefaultStore() (*Store, error) {
	path, err := config.StateFile(StateFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to get wizard state path: %w", err)
	}
	return NewStore(path), nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Save writes b atomically.
func (s *Store) Save(b Bundle) error {
	b.Version = bundleVersion
	b.SavedAt = s.now().UTC()

	data, err := yaml.Marshal(&b)
	if err != nil {
		return fmt.Errorf("failed to marshal wizard state: %w", err)
	}
	if err := config.WriteFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to save wizard state: %w", err)
	}
	return nil
}

// Load reads the saved wizard. It returns nil and no error when nothing
// was saved.
func (s *Store) Load() (*Bundle, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wizard state: %w", err)
	}

	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse wizard state: %w", err)
	}
	if b.Version != bundleVersion {
		return nil, fmt.Errorf("unsupported wizard state version: %d (expected %d)", b.Version, bundleVersion)
	}
	if b.CurrentStep != nil && *b.CurrentStep != KindNone && !b.CurrentStep.Valid() {
		return nil, UnknownStep(*b.CurrentStep)
	}
	return &b, nil
}

// Clear removes the saved wizard, if any.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove wizard state: %w", err)
	}
	return nil
}
