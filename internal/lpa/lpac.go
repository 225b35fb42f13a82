package lpa

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
)

// DefaultApduDriver is the lpac APDU backend used for card readers.
const DefaultApduDriver = "pcsc"

// lpac output envelope: one JSON object per line.
type lpacMessage struct {
	Type    string      `json:"type"`
	Payload lpacPayload `json:"payload"`
}

type lpacPayload struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// dataString renders payload data for error messages. lpac sends a string,
// null, or occasionally an object.
func (p lpacPayload) dataString() string {
	if len(p.Data) == 0 || string(p.Data) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Data, &s); err == nil {
		return s
	}
	return string(p.Data)
}

type lpacDevice struct {
	Env  string `json:"env"`
	Name string `json:"name"`
}

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// LpacBackend drives the lpac command-line LPA. It never speaks the
// download protocol itself; it starts lpac and decodes its JSON output.
type LpacBackend struct {
	path    string
	driver  string
	notify  func() bool
	command commandFunc
}

// LpacOption configures an LpacBackend.
type LpacOption func(*LpacBackend)

// WithApduDriver selects the lpac APDU driver (LPAC_APDU).
func WithApduDriver(driver string) LpacOption {
	return func(b *LpacBackend) {
		b.driver = driver
	}
}

// WithNotifyAfterDownload makes the backend process pending notifications
// after a successful download whenever enabled returns true.
func WithNotifyAfterDownload(enabled func() bool) LpacOption {
	return func(b *LpacBackend) {
		b.notify = enabled
	}
}

// NewLpacBackend creates a backend running the lpac binary at path.
func NewLpacBackend(path string, opts ...LpacOption) *LpacBackend {
	b := &LpacBackend{
		path:    path,
		driver:  DefaultApduDriver,
		notify:  func() bool { return false },
		command: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Slots lists the readers lpac can see.
func (b *LpacBackend) Slots(ctx context.Context) ([]Slot, error) {
	result, err := b.run(ctx, -1, nil, "driver", "apdu", "list")
	if err != nil {
		return nil, err
	}
	if result.Payload.Code != 0 {
		return nil, fmt.Errorf("lpac driver list failed: %s", result.Payload.Message)
	}

	var devices []lpacDevice
	if len(result.Payload.Data) > 0 && string(result.Payload.Data) != "null" {
		if err := json.Unmarshal(result.Payload.Data, &devices); err != nil {
			return nil, fmt.Errorf("failed to decode lpac reader list: %w", err)
		}
	}

	slots := make([]Slot, 0, len(devices))
	for _, d := range devices {
		id, err := strconv.Atoi(d.Env)
		if err != nil {
			logging.Warn("Skipping reader with non-numeric id",
				zap.String("env", d.Env),
				zap.String("name", d.Name),
			)
			continue
		}
		slots = append(slots, Slot{ID: id, Name: d.Name})
	}
	return slots, nil
}

// Download runs "lpac profile download" for req, reporting lpac's progress
// messages as stages.
func (b *LpacBackend) Download(ctx context.Context, req DownloadRequest, report ReportFunc) error {
	if report == nil {
		report = func(Stage, int) {}
	}
	if err := req.Validate(); err != nil {
		return &DownloadError{Stage: StagePreparing, Reason: ReasonInternal, Message: err.Error()}
	}

	args := []string{"profile", "download", "-s", req.SMDP}
	if req.MatchingID != "" {
		args = append(args, "-m", req.MatchingID)
	}
	if req.ConfirmationCode != "" {
		args = append(args, "-c", req.ConfirmationCode)
	}
	if req.IMEI != "" {
		args = append(args, "-i", req.IMEI)
	}

	stage := StagePreparing
	report(stage, 0)

	result, err := b.run(ctx, req.Slot, func(p lpacPayload) {
		step, ok := stageOf(p.Message)
		if !ok {
			logging.Debug("Unmapped lpac progress", zap.String("message", p.Message))
			return
		}
		stage = step.stage
		report(step.stage, step.percent)
	}, args...)
	if err != nil {
		de := AsDownloadError(err)
		if de.Stage == "" {
			de.Stage = stage
		}
		return de
	}
	if result.Payload.Code != 0 {
		return failureFromLpac(stage, result.Payload.Message, result.Payload.dataString())
	}

	if b.notify() {
		report(StageNotifying, 90)
		b.processNotifications(ctx, req.Slot)
	}
	return nil
}

// processNotifications is best effort: the profile is already installed.
func (b *LpacBackend) processNotifications(ctx context.Context, slot int) {
	result, err := b.run(ctx, slot, nil, "notification", "process", "-a", "-r")
	if err != nil {
		logging.Warn("Failed to process notifications", zap.Error(err))
		return
	}
	if result.Payload.Code != 0 {
		logging.Warn("lpac notification processing failed",
			zap.String("message", result.Payload.Message),
			zap.String("data", result.Payload.dataString()),
		)
	}
}

// run executes lpac and returns its final "lpa" or "driver" message.
// slot < 0 leaves DRIVER_IFID unset.
func (b *LpacBackend) run(ctx context.Context, slot int, onProgress func(lpacPayload), args ...string) (*lpacMessage, error) {
	cmd := b.command(ctx, b.path, args...)
	env := append(cmd.Environ(), "LPAC_APDU="+b.driver)
	if slot >= 0 {
		env = append(env, "DRIVER_IFID="+strconv.Itoa(slot))
	}
	cmd.Env = env

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to attach to lpac output: %w", err)
	}

	logging.Debug("Running lpac",
		zap.String("path", b.path),
		zap.Strings("args", args),
		zap.Int("slot", slot),
	)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start lpac: %w", err)
	}

	result, decodeErr := decodeOutput(stdout, onProgress)
	// Drain so Wait never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	if result == nil {
		msg := strings.TrimSpace(stderr.String())
		if waitErr != nil {
			return nil, fmt.Errorf("lpac exited without a result: %w: %s", waitErr, msg)
		}
		return nil, fmt.Errorf("lpac exited without a result: %s", msg)
	}
	// lpac exits non-zero on failure but still prints its result line.
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("lpac failed: %w", waitErr)
		}
	}
	return result, nil
}

// decodeOutput reads lpac's JSON lines. Progress payloads go to onProgress;
// the last "lpa" or "driver" message is returned. Lines that are not JSON
// are logged and skipped.
func decodeOutput(r io.Reader, onProgress func(lpacPayload)) (*lpacMessage, error) {
	var result *lpacMessage

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var msg lpacMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			logging.Debug("Skipping non-JSON lpac output", zap.ByteString("line", line))
			continue
		}

		switch msg.Type {
		case "progress":
			if onProgress != nil {
				onProgress(msg.Payload)
			}
		case "lpa", "driver":
			m := msg
			result = &m
		default:
			logging.Debug("Ignoring lpac message", zap.String("type", msg.Type))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lpac output: %w", err)
	}
	return result, nil
}
