package protocol

import (
	"github.com/google/uuid"

	"github.com/esimkit/esimctl/internal/lpa"
)

// Path is where esimd accepts websocket connections.
const Path = "/v1/ws"

// Type names a message.
type Type string

// Requests.
const (
	TypeSlots    Type = "slots"
	TypeDownload Type = "download"
	TypeWatch    Type = "watch"
)

// Replies. A slots request is answered with TypeSlots.
const (
	TypeTask     Type = "task"
	TypeProgress Type = "progress"
	TypeError    Type = "error"
)

// Error codes carried by TypeError replies.
const (
	CodeBadRequest  = "bad_request"
	CodeUnknownTask = "unknown_task"
	CodeSlotBusy    = "slot_busy"
	CodeInternal    = "internal"
)

// Message is the single envelope used in both directions. A reply carries
// the ID of the request it answers; every progress event of a watch reuses
// the watch request's ID.
type Message struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`

	Slots    []SlotInfo      `json:"slots,omitempty"`
	Download *DownloadParams `json:"download,omitempty"`
	TaskID   int64           `json:"task_id,omitempty"`
	Progress *ProgressEvent  `json:"progress,omitempty"`

	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// SlotInfo is lpa.Slot on the wire.
type SlotInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// DownloadParams is lpa.DownloadRequest on the wire.
type DownloadParams struct {
	Slot             int    `json:"slot"`
	SMDP             string `json:"smdp"`
	MatchingID       string `json:"matching_id,omitempty"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
	IMEI             string `json:"imei,omitempty"`
}

// ProgressEvent is lpa.Progress on the wire, minus the task ID which the
// watch already names.
type ProgressEvent struct {
	Stage   lpa.Stage          `json:"stage"`
	Percent int                `json:"percent"`
	Done    bool               `json:"done,omitempty"`
	Error   *lpa.DownloadError `json:"error,omitempty"`
}

// NewID returns a fresh request ID.
func NewID() string {
	return uuid.NewString()
}

// NewSlotsRequest asks for the daemon's readers.
func NewSlotsRequest() Message {
	return Message{ID: NewID(), Type: TypeSlots}
}

// NewDownloadRequest asks the daemon to start req.
func NewDownloadRequest(req lpa.DownloadRequest) Message {
	p := ParamsFromRequest(req)
	return Message{ID: NewID(), Type: TypeDownload, Download: &p}
}

// NewWatchRequest subscribes to the events of a task.
func NewWatchRequest(id lpa.TaskID) Message {
	return Message{ID: NewID(), Type: TypeWatch, TaskID: int64(id)}
}

// SlotsReply answers a slots request.
func SlotsReply(id string, slots []lpa.Slot) Message {
	infos := make([]SlotInfo, len(slots))
	for i, s := range slots {
		infos[i] = SlotInfo{ID: s.ID, Name: s.Name}
	}
	return Message{ID: id, Type: TypeSlots, Slots: infos}
}

// TaskReply answers a download request.
func TaskReply(id string, task lpa.TaskID) Message {
	return Message{ID: id, Type: TypeTask, TaskID: int64(task)}
}

// ProgressReply carries one event of a watched task.
func ProgressReply(id string, p lpa.Progress) Message {
	return Message{
		ID:     id,
		Type:   TypeProgress,
		TaskID: int64(p.TaskID),
		Progress: &ProgressEvent{
			Stage:   p.Stage,
			Percent: p.Percent,
			Done:    p.Done,
			Error:   p.Err,
		},
	}
}

// ErrorReply reports a failed request.
func ErrorReply(id, code string, err error) Message {
	return Message{ID: id, Type: TypeError, Code: code, Error: err.Error()}
}

// ParamsFromRequest converts a request for the wire.
func ParamsFromRequest(req lpa.DownloadRequest) DownloadParams {
	return DownloadParams{
		Slot:             req.Slot,
		SMDP:             req.SMDP,
		MatchingID:       req.MatchingID,
		ConfirmationCode: req.ConfirmationCode,
		IMEI:             req.IMEI,
	}
}

// Request converts the parameters back.
func (p DownloadParams) Request() lpa.DownloadRequest {
	return lpa.DownloadRequest{
		Slot:             p.Slot,
		SMDP:             p.SMDP,
		MatchingID:       p.MatchingID,
		ConfirmationCode: p.ConfirmationCode,
		IMEI:             p.IMEI,
	}
}

// SlotList converts a slots reply.
func (m *Message) SlotList() []lpa.Slot {
	slots := make([]lpa.Slot, len(m.Slots))
	for i, s := range m.Slots {
		slots[i] = lpa.Slot{ID: s.ID, Name: s.Name}
	}
	return slots
}

// ProgressValue converts a progress reply.
func (m *Message) ProgressValue() lpa.Progress {
	p := lpa.Progress{TaskID: lpa.TaskID(m.TaskID)}
	if m.Progress != nil {
		p.Stage = m.Progress.Stage
		p.Percent = m.Progress.Percent
		p.Done = m.Progress.Done
		p.Err = m.Progress.Error
	}
	return p
}
