package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidMessage is wrapped by every Decode failure.
var ErrInvalidMessage = errors.New("invalid message")

// RemoteError is an error reply turned back into an error.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("esimd: %s (%s)", e.Message, e.Code)
}

// Err returns the RemoteError of an error reply, or nil.
func (m *Message) Err() error {
	if m.Type != TypeError {
		return nil
	}
	return &RemoteError{Code: m.Code, Message: m.Error}
}

// Encode marshals m.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Type, err)
	}
	return data, nil
}

// Decode unmarshals and validates one message. The ID is always required;
// request types must carry their parameters.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}

	switch m.Type {
	case TypeSlots, TypeTask, TypeError:
	case TypeDownload:
		if m.Download == nil {
			return &m, fmt.Errorf("%w: download without parameters", ErrInvalidMessage)
		}
	case TypeWatch:
		if m.TaskID <= 0 {
			return &m, fmt.Errorf("%w: watch without task_id", ErrInvalidMessage)
		}
	case TypeProgress:
		if m.Progress == nil {
			return &m, fmt.Errorf("%w: progress without event", ErrInvalidMessage)
		}
	default:
		return &m, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, m.Type)
	}
	return &m, nil
}
