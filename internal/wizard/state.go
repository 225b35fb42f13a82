package wizard

import (
	"errors"

	"github.com/esimkit/esimctl/internal/lpa"
)

// ErrDownloadAlreadyStarted is returned when a second download would be
// dispatched without ResetDownload in between.
var ErrDownloadAlreadyStarted = errors.New("download already started")

// State is everything the wizard accumulates across steps. The controller
// owns it; steps receive it explicitly.
type State struct {
	CurrentStep          Kind
	SelectedSlot         int
	ServerAddress        string
	MatchingID           string
	ConfirmationCode     string
	ConfirmationRequired bool
	IMEI                 string
	DownloadStarted      bool
	DownloadTaskID       lpa.TaskID
	DownloadError        *lpa.DownloadError
}

// NewState returns a fresh state targeting slot.
func NewState(slot int) *State {
	return &State{
		SelectedSlot:   slot,
		DownloadTaskID: lpa.NoTask,
	}
}

// MarkDownloadStarted flips DownloadStarted. It fails if a download was
// already started in this session.
func (s *State) MarkDownloadStarted() error {
	if s.DownloadStarted {
		return ErrDownloadAlreadyStarted
	}
	s.DownloadStarted = true
	return nil
}

// ResetDownload forgets the previous attempt so the user can retry with
// the values already entered.
func (s *State) ResetDownload() {
	s.DownloadStarted = false
	s.DownloadTaskID = lpa.NoTask
	s.DownloadError = nil
}

// Request builds the download request from the collected values.
func (s *State) Request() lpa.DownloadRequest {
	return lpa.DownloadRequest{
		Slot:             s.SelectedSlot,
		SMDP:             s.ServerAddress,
		MatchingID:       s.MatchingID,
		ConfirmationCode: s.ConfirmationCode,
		IMEI:             s.IMEI,
	}
}
