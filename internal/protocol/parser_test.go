package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esimkit/esimctl/internal/lpa"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		verify  func(t *testing.T, m *Message)
	}{
		{
			name: "slots request",
			data: `{"id":"1","type":"slots"}`,
			verify: func(t *testing.T, m *Message) {
				assert.Equal(t, TypeSlots, m.Type)
			},
		},
		{
			name: "download request",
			data: `{"id":"2","type":"download","download":{"slot":1,"smdp":"rsp.example.com","matching_id":"M"}}`,
			verify: func(t *testing.T, m *Message) {
				want := lpa.DownloadRequest{Slot: 1, SMDP: "rsp.example.com", MatchingID: "M"}
				assert.Equal(t, want, m.Download.Request())
			},
		},
		{
			name: "progress with failure",
			data: `{"id":"3","type":"progress","task_id":7,"progress":{"stage":"authenticating","percent":20,"done":true,"error":{"stage":"authenticating","reason":"es9p_authenticate_client","message":"bad","retryable":true}}}`,
			verify: func(t *testing.T, m *Message) {
				p := m.ProgressValue()
				assert.Equal(t, lpa.TaskID(7), p.TaskID)
				assert.True(t, p.Done)
				require.NotNil(t, p.Err)
				assert.Equal(t, "es9p_authenticate_client", p.Err.Reason)
				assert.True(t, p.Err.Retryable)
			},
		},
		{
			name: "error reply",
			data: `{"id":"4","type":"error","code":"unknown_task","error":"no such task"}`,
			verify: func(t *testing.T, m *Message) {
				var re *RemoteError
				require.True(t, errors.As(m.Err(), &re))
				assert.Equal(t, CodeUnknownTask, re.Code)
			},
		},
		{name: "not json", data: `{"id":`, wantErr: true},
		{name: "missing id", data: `{"type":"slots"}`, wantErr: true},
		{name: "unknown type", data: `{"id":"5","type":"reboot"}`, wantErr: true},
		{name: "download without params", data: `{"id":"6","type":"download"}`, wantErr: true},
		{name: "watch without task", data: `{"id":"7","type":"watch"}`, wantErr: true},
		{name: "progress without event", data: `{"id":"8","type":"progress","task_id":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			require.NoError(t, err)
			if tt.verify != nil {
				tt.verify(t, m)
			}
		})
	}
}

func TestDecode_KeepsIDOnBadRequest(t *testing.T) {
	m, err := Decode([]byte(`{"id":"abc","type":"watch"}`))
	require.Error(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "abc", m.ID)
}

func TestEncode_DownloadRequest(t *testing.T) {
	req := lpa.DownloadRequest{Slot: 2, SMDP: "smdp.example.net", IMEI: "490154203237518"}
	msg := NewDownloadRequest(req)
	assert.NotEmpty(t, msg.ID)

	data, err := Encode(msg)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(req, decoded.Download.Request()); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, string(data), "confirmation_code", "empty optional fields are omitted")
}

func TestRequestIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewSlotsRequest().ID
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSlotsReply(t *testing.T) {
	slots := []lpa.Slot{{ID: 0, Name: "Reader A"}, {ID: 3, Name: "Reader B"}}
	reply := SlotsReply("x", slots)
	assert.Equal(t, "x", reply.ID)
	assert.Equal(t, slots, reply.SlotList())
}
