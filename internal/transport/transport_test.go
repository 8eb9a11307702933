// SPDX-License-Identifier: MIT
package transport

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hummer/internal/segment"
	"hummer/pkg/utils"
)

func TestEventSink(t *testing.T) {
	mock := &utils.MockTransport{}
	sink := EventSink{Transport: mock}

	sink.Emit(segment.Event{Kind: segment.NoteOn, Voice: segment.Lead, Midi: 69, Note: "A4", Time: 1.5})
	sink.Emit(segment.Event{Kind: segment.Detune, Voice: segment.Lead, Cents: 12})
	sink.Emit(segment.Event{Kind: segment.Release, Voice: segment.Harmony, Midi: segment.AllNotes})

	require.Equal(t, 2, mock.Len())
	assert.Equal(t, EventMessage{
		Type: "event", Kind: "note_on", Voice: "lead", Midi: 69, Note: "A4", Time: 1.5,
	}, mock.Payloads[0])
	assert.Equal(t, "release", mock.Payloads[1].(EventMessage).Kind)
	assert.Equal(t, "harmony", mock.Payloads[1].(EventMessage).Voice)

	sink.Detune = true
	sink.Emit(segment.Event{Kind: segment.Detune, Voice: segment.Lead, Cents: 12})
	require.Equal(t, 3, mock.Len())
	assert.Equal(t, 12.0, mock.Payloads[2].(EventMessage).Cents)
}

func TestParseControl(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{"Implicit settings", `{"scale":"MINOR"}`, ControlSettings, false},
		{"Record", `{"type":"record"}`, ControlRecord, false},
		{"Stop", `{"type":"stop"}`, ControlStop, false},
		{"Reset", `{"type":"reset"}`, ControlReset, false},
		{"Unknown type", `{"type":"explode"}`, "", true},
		{"Not JSON", `scale=MINOR`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseControl([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Type)
		})
	}

	msg, err := ParseControl([]byte(`{"mode":"RECORD","harmonize":false,"glide":0,"sensitivity":0.02}`))
	require.NoError(t, err)
	require.NotNil(t, msg.Mode)
	assert.Equal(t, "RECORD", *msg.Mode)
	require.NotNil(t, msg.Harmonize)
	assert.False(t, *msg.Harmonize)
	require.NotNil(t, msg.Glide)
	assert.Zero(t, *msg.Glide)
	assert.Nil(t, msg.Scale)
	assert.Nil(t, msg.Bend)
	assert.InDelta(t, 0.02, *msg.Sensitivity, 1e-9)
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	require.NoError(t, lt.Send(Status{Note: "A4"}))
	require.NoError(t, lt.Send(EventMessage{Kind: "note_on"}))
	assert.Equal(t, uint64(2), lt.Sent())
	assert.NoError(t, lt.Close())
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := newWebSocketTransport("", nil)
	go wst.handleBroadcasts()
	srv := httptest.NewServer(wst)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { wst.Close() })

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return wst.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, wst.Send(Status{Mode: "MIDI", Note: "C4", Midi: 60, Sounding: true}))

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got Status
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "C4", got.Note)
		assert.Equal(t, 60, got.Midi)
		assert.True(t, got.Sounding)
	}
}

func TestWebSocketControl(t *testing.T) {
	var (
		mu  sync.Mutex
		got []ControlMessage
	)
	wst := newWebSocketTransport("", func(msg ControlMessage) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
	})
	srv := httptest.NewServer(wst)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { wst.Close() })

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))
	require.NoError(t, conn.WriteJSON(map[string]any{"scale": "BLUES"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "record"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, ControlSettings, got[0].Type)
	require.NotNil(t, got[0].Scale)
	assert.Equal(t, "BLUES", *got[0].Scale)
	assert.Equal(t, ControlRecord, got[1].Type)
}

func TestWebSocketDisconnect(t *testing.T) {
	wst := newWebSocketTransport("", nil)
	srv := httptest.NewServer(wst)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { wst.Close() })

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return wst.Clients() == 1 }, time.Second, 5*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return wst.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst := newWebSocketTransport("", nil)
	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close())
	assert.ErrorIs(t, wst.Send("late"), ErrClosed)
}

func TestWebSocketSendNeverBlocks(t *testing.T) {
	wst := newWebSocketTransport("", nil)
	t.Cleanup(func() { wst.Close() })

	// Nothing drains the queue, so everything past the buffer is dropped.
	for i := 0; i < broadcastBuffer*2; i++ {
		require.NoError(t, wst.Send(i))
	}
	assert.Len(t, wst.broadcast, broadcastBuffer)
}
