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

	"github.com/anicoll/switchbridge/internal/pkg/bridge"
)

type fakeBridge struct {
	ready      bool
	snapshot   []bridge.SwitchStatus
	getErr     error
	setErr     error
	setResult  bool
	reconciled int
	lastSet    struct {
		index int
		on    bool
	}
}

func (f *fakeBridge) Ready() bool                      { return f.ready }
func (f *fakeBridge) Snapshot() []bridge.SwitchStatus  { return f.snapshot }
func (f *fakeBridge) Reconcile(context.Context) error  { f.reconciled++; return nil }
func (f *fakeBridge) GetSwitch(index int) (bool, error) {
	if f.getErr != nil {
		return false, f.getErr
	}
	for _, s := range f.snapshot {
		if s.Index == index {
			return s.On, nil
		}
	}
	return false, bridge.ErrInvalidIndex
}

func (f *fakeBridge) SetSwitch(_ context.Context, index int, on bool) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	f.lastSet.index = index
	f.lastSet.on = on
	return f.setResult, nil
}

func newTestServer(t *testing.T, svc bridgeService) *httptest.Server {
	t.Helper()
	srv := New("127.0.0.1:0", svc, NewHub())
	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestReadyz(t *testing.T) {
	svc := &fakeBridge{}
	ts := newTestServer(t, svc)

	resp, err := http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	svc.ready = true
	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListSwitches(t *testing.T) {
	svc := &fakeBridge{
		ready: true,
		snapshot: []bridge.SwitchStatus{
			{Index: 0, UUID: "u-0", Name: "Lamp", On: true},
			{Index: 2, UUID: "u-2", Name: "Fan", On: false},
		},
	}
	ts := newTestServer(t, svc)

	resp, err := http.Get(ts.URL + "/switches")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []bridge.SwitchStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, svc.snapshot, got)
}

func TestGetSwitch(t *testing.T) {
	svc := &fakeBridge{
		ready:    true,
		snapshot: []bridge.SwitchStatus{{Index: 1, On: true}},
	}
	ts := newTestServer(t, svc)

	resp, err := http.Get(ts.URL + "/switches/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got switchStatePayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.On)
}

func TestGetSwitch_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unknown index", err: bridge.ErrInvalidIndex, status: http.StatusNotFound},
		{name: "not ready", err: bridge.ErrNotReady, status: http.StatusServiceUnavailable},
		{name: "remote down", err: bridge.ErrCommunication, status: http.StatusBadGateway},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeBridge{getErr: tc.err})

			resp, err := http.Get(ts.URL + "/switches/0")
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestSetSwitch(t *testing.T) {
	svc := &fakeBridge{ready: true, setResult: true}
	ts := newTestServer(t, svc)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/switches/2", strings.NewReader(`{"on":true}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, svc.lastSet.index)
	assert.True(t, svc.lastSet.on)

	var got switchStatePayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.On)
}

func TestSetSwitch_BadPayload(t *testing.T) {
	ts := newTestServer(t, &fakeBridge{ready: true})

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/switches/0", strings.NewReader("not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetSwitch_BadIndex(t *testing.T) {
	ts := newTestServer(t, &fakeBridge{ready: true})

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/switches/kitchen", strings.NewReader(`{"on":true}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReconcileEndpoint(t *testing.T) {
	svc := &fakeBridge{ready: true}
	ts := newTestServer(t, svc)

	resp, err := http.Post(ts.URL+"/reconcile", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, svc.reconciled)
}

func TestEventFeed_BroadcastsBridgeEvents(t *testing.T) {
	hub := NewHub()
	srv := New("127.0.0.1:0", &fakeBridge{ready: true}, hub)
	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// Subscription registration races the dial returning; give it a beat.
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastEvent(bridge.Event{Type: bridge.EventStateChanged, Index: 1, On: true})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev bridge.Event
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, bridge.EventStateChanged, ev.Type)
	assert.Equal(t, 1, ev.Index)
	assert.True(t, ev.On)
}
