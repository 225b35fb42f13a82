package lpa

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// TaskID identifies a download task. NoTask means none was started.
type TaskID int64

// NoTask is the zero task: no download has been dispatched.
const NoTask TaskID = -1

// Slot is a card reader (or modem) that hosts an eUICC.
type Slot struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (s Slot) String() string {
	if s.Name == "" {
		return fmt.Sprintf("Slot %d", s.ID)
	}
	return fmt.Sprintf("Slot %d (%s)", s.ID, s.Name)
}

// DownloadRequest carries everything needed to download one profile.
type DownloadRequest struct {
	Slot             int    `json:"slot"`
	SMDP             string `json:"smdp"`
	MatchingID       string `json:"matchingId,omitempty"`
	ConfirmationCode string `json:"confirmationCode,omitempty"`
	IMEI             string `json:"imei,omitempty"`
}

// Validate checks the request before it reaches a backend.
func (r DownloadRequest) Validate() error {
	if r.Slot < 0 {
		return fmt.Errorf("invalid slot: %d", r.Slot)
	}
	if err := ValidateAddress(r.SMDP); err != nil {
		return err
	}
	return ValidateIMEI(r.IMEI)
}

// ValidateAddress checks an SM-DP+ address of the form host[:port].
func ValidateAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("server address is required")
	}
	if strings.Contains(addr, "://") || strings.ContainsAny(addr, "/ $") {
		return fmt.Errorf("server address must be host[:port], got %q", addr)
	}

	host := addr
	if h, p, err := net.SplitHostPort(addr); err == nil {
		port, perr := strconv.Atoi(p)
		if perr != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid port in server address: %q", p)
		}
		host = h
	}
	if host == "" || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return fmt.Errorf("invalid server address: %q", addr)
	}
	return nil
}

// ValidateIMEI accepts an empty IMEI or exactly 15 digits.
func ValidateIMEI(imei string) error {
	if imei == "" {
		return nil
	}
	if len(imei) != 15 {
		return fmt.Errorf("IMEI must be 15 digits, got %d", len(imei))
	}
	for _, c := range imei {
		if c < '0' || c > '9' {
			return fmt.Errorf("IMEI must contain only digits")
		}
	}
	return nil
}

// Progress is one event of a download task. The last event of a task has
// Done set; Err is non-nil when that task failed.
type Progress struct {
	TaskID  TaskID         `json:"taskId"`
	Stage   Stage          `json:"stage"`
	Percent int            `json:"percent"`
	Done    bool           `json:"done"`
	Err     *DownloadError `json:"error,omitempty"`
}

// Failed reports whether this is a terminal failure event.
func (p Progress) Failed() bool {
	return p.Done && p.Err != nil
}
