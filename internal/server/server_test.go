package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/protocol"
	"github.com/esimkit/esimctl/internal/tasks"
)

// heldBackend reports authentication and waits for release.
type heldBackend struct {
	release chan error
}

func (b *heldBackend) Slots(context.Context) ([]lpa.Slot, error) {
	return []lpa.Slot{{ID: 0, Name: "Reader A"}, {ID: 1, Name: "Reader B"}}, nil
}

func (b *heldBackend) Download(ctx context.Context, _ lpa.DownloadRequest, report lpa.ReportFunc) error {
	report(lpa.StageAuthenticating, 30)
	select {
	case err := <-b.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type testServer struct {
	backend *heldBackend
	srv     *Server
	http    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	backend := &heldBackend{release: make(chan error, 4)}
	manager := tasks.NewManager(backend)

	srv, err := New(&Config{Host: "127.0.0.1"}, manager)
	require.NoError(t, err)

	ts := &testServer{backend: backend, srv: srv, http: httptest.NewServer(srv.Handler())}
	t.Cleanup(func() {
		ts.http.Close()
		manager.Close()
	})
	return ts
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + protocol.Path
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, m protocol.Message) {
	t.Helper()
	data, err := protocol.Encode(m)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))
}

func read(t *testing.T, ws *websocket.Conn) *protocol.Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	m, err := protocol.Decode(data)
	require.NoError(t, err)
	return m
}

func call(t *testing.T, ws *websocket.Conn, m protocol.Message) *protocol.Message {
	t.Helper()
	send(t, ws, m)
	reply := read(t, ws)
	require.Equal(t, m.ID, reply.ID, "reply must answer the request")
	return reply
}

func validRequest(slot int) lpa.DownloadRequest {
	return lpa.DownloadRequest{Slot: slot, SMDP: "rsp.example.com", MatchingID: "QR-1"}
}

func TestNew_RequiresEngine(t *testing.T) {
	_, err := New(&Config{}, nil)
	assert.Error(t, err)
}

func TestNew_TLSNeedsBothFiles(t *testing.T) {
	_, err := New(&Config{CertPath: "/nonexistent/cert.pem"}, tasks.NewManager(&heldBackend{}))
	assert.Error(t, err)
}

func TestServer_Slots(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t)

	reply := call(t, ws, protocol.NewSlotsRequest())
	require.NoError(t, reply.Err())
	assert.Equal(t, protocol.TypeSlots, reply.Type)
	assert.Equal(t, []lpa.Slot{{ID: 0, Name: "Reader A"}, {ID: 1, Name: "Reader B"}}, reply.SlotList())
}

func TestServer_DownloadAndWatch(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t)

	reply := call(t, ws, protocol.NewDownloadRequest(validRequest(0)))
	require.NoError(t, reply.Err())
	require.Equal(t, protocol.TypeTask, reply.Type)
	task := lpa.TaskID(reply.TaskID)
	assert.Equal(t, lpa.TaskID(1), task)

	watch := protocol.NewWatchRequest(task)
	send(t, ws, watch)

	first := read(t, ws)
	assert.Equal(t, watch.ID, first.ID)
	assert.Equal(t, protocol.TypeProgress, first.Type)
	assert.False(t, first.ProgressValue().Done)

	ts.backend.release <- nil

	var last lpa.Progress
	for !last.Done {
		m := read(t, ws)
		require.Equal(t, watch.ID, m.ID)
		last = m.ProgressValue()
	}
	assert.Equal(t, task, last.TaskID)
	assert.Equal(t, lpa.StageDone, last.Stage)
	assert.Nil(t, last.Err)
}

func TestServer_FailureTravelsInFinalEvent(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t)

	reply := call(t, ws, protocol.NewDownloadRequest(validRequest(0)))
	require.NoError(t, reply.Err())

	ts.backend.release <- &lpa.DownloadError{Reason: "profile_not_released", Message: "matching ID already used"}

	watch := protocol.NewWatchRequest(lpa.TaskID(reply.TaskID))
	send(t, ws, watch)

	var last lpa.Progress
	for !last.Done {
		last = read(t, ws).ProgressValue()
	}
	require.NotNil(t, last.Err)
	assert.Equal(t, "profile_not_released", last.Err.Reason)
	assert.Equal(t, lpa.StageAuthenticating, last.Err.Stage)
}

func TestServer_ErrorCodes(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t)

	reply := call(t, ws, protocol.NewDownloadRequest(validRequest(1)))
	require.NoError(t, reply.Err())

	tests := []struct {
		name string
		msg  protocol.Message
		code string
	}{
		{"busy slot", protocol.NewDownloadRequest(validRequest(1)), protocol.CodeSlotBusy},
		{"invalid request", protocol.NewDownloadRequest(lpa.DownloadRequest{Slot: 0}), protocol.CodeBadRequest},
		{"unknown task", protocol.NewWatchRequest(99), protocol.CodeUnknownTask},
		{"reply sent as request", protocol.TaskReply(protocol.NewID(), 1), protocol.CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := call(t, ws, tt.msg)
			assert.Equal(t, protocol.TypeError, reply.Type)
			assert.Equal(t, tt.code, reply.Code)
			assert.NotEmpty(t, reply.Error)
		})
	}

	ts.backend.release <- nil
}

func TestServer_MalformedMessageKeepsConnection(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"id":"abc","type":"watch"}`)))
	reply := read(t, ws)
	assert.Equal(t, "abc", reply.ID)
	assert.Equal(t, protocol.CodeBadRequest, reply.Code)

	// No ID to answer, so the reply cannot pass Decode; check the raw JSON.
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var raw protocol.Message
	require.NoError(t, ws.ReadJSON(&raw))
	assert.Empty(t, raw.ID)
	assert.Equal(t, protocol.TypeError, raw.Type)
	assert.Equal(t, protocol.CodeBadRequest, raw.Code)

	// Still usable afterwards.
	reply = call(t, ws, protocol.NewSlotsRequest())
	assert.NoError(t, reply.Err())
}

func TestServer_DownloadOutlivesConnection(t *testing.T) {
	ts := newTestServer(t)

	first := ts.dial(t)
	reply := call(t, first, protocol.NewDownloadRequest(validRequest(0)))
	require.NoError(t, reply.Err())
	task := lpa.TaskID(reply.TaskID)
	require.NoError(t, first.Close())

	second := ts.dial(t)
	watch := protocol.NewWatchRequest(task)
	send(t, second, watch)
	assert.Equal(t, protocol.TypeProgress, read(t, second).Type)

	ts.backend.release <- nil
	var last lpa.Progress
	for !last.Done {
		last = read(t, second).ProgressValue()
	}
	assert.Nil(t, last.Err)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.http.URL + HealthPath)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_StartAndShutdown(t *testing.T) {
	manager := tasks.NewManager(&heldBackend{release: make(chan error)})
	defer manager.Close()

	srv, err := New(&Config{Host: "127.0.0.1", Port: 0}, manager)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer addrCancel()
	addr, err := srv.Addr(addrCtx)
	require.NoError(t, err)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr.String()+protocol.Path, nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	require.Eventually(t, func() bool { return srv.GetActiveConnections() == 1 },
		2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.Equal(t, 0, srv.GetActiveConnections())
}
