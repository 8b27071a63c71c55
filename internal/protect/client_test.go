package protect

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) *Client {
	logger, _ := zap.NewDevelopment()
	client := NewClient(ClientConfig{
		Host:   "protect.local",
		APIKey: "test-key",
	}, logger)

	httpmock.ActivateNonDefault(client.http.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestClient_HostNormalization(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	tests := []struct {
		in   string
		want string
	}{
		{"protect.local", "https://protect.local"},
		{"protect.local/", "https://protect.local"},
		{"https://protect.local", "https://protect.local"},
		{"http://10.0.0.1", "http://10.0.0.1"},
	}
	for _, tt := range tests {
		client := NewClient(ClientConfig{Host: tt.in, APIKey: "k"}, logger)
		assert.Equal(t, tt.want, client.Host())
	}
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuth},
		{"forbidden", http.StatusForbidden, ErrAuth},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrConn},
		{"server error", http.StatusInternalServerError, ErrConn},
		{"bad gateway", http.StatusBadGateway, ErrConn},
		{"unavailable", http.StatusServiceUnavailable, ErrConn},
		{"other 4xx", http.StatusConflict, ErrAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t)
			httpmock.RegisterResponder(http.MethodGet,
				"https://protect.local"+apiPrefix+"/cameras",
				httpmock.NewStringResponder(tt.status, `{"error":"nope"}`))

			_, err := client.Cameras(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_NoContentReturnsEmpty(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost,
		"https://protect.local"+apiPrefix+"/cameras/c1/ptz/patrol/stop",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	assert.NoError(t, client.PTZStopPatrol(context.Background(), "c1"))
}

func TestClient_NetworkErrorIsConnFailure(t *testing.T) {
	client := newTestClient(t)
	// No responder registered: httpmock fails the request at the
	// transport level, same shape as a DNS or TLS failure.

	_, err := client.Bootstrap(context.Background())
	assert.ErrorIs(t, err, ErrConn)
}

func TestClient_ValidationRejectsBeforeNetwork(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	vol := 150
	err := client.UpdateCamera(ctx, "c1", CameraUpdate{MicVolume: &vol})
	assert.ErrorIs(t, err, ErrValidation)

	assert.ErrorIs(t, client.SetLightBrightness(ctx, "l1", 0), ErrValidation)
	assert.ErrorIs(t, client.SetLightBrightness(ctx, "l1", 7), ErrValidation)
	assert.ErrorIs(t, client.PTZStartPatrol(ctx, "c1", 5), ErrValidation)
	assert.ErrorIs(t, client.PTZGotoPreset(ctx, "c1", -2), ErrValidation)

	err = client.UpdateChime(ctx, "ch1", ChimeUpdate{
		RingSettings: []ChimeRingSetting{{CameraID: "c1", RepeatTimes: 11, Volume: 50}},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = client.UploadAssetFile(ctx, "ringtones", "a.mp3", "audio/mpeg", []byte("x"))
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, httpmock.GetTotalCallCount(), "validation failures must not reach the network")
}

func TestClient_UpdateCameraSendsPatch(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPatch,
		"https://protect.local"+apiPrefix+"/cameras/c1",
		httpmock.NewStringResponder(http.StatusOK, `{}`))

	name := "Porch"
	require.NoError(t, client.UpdateCamera(context.Background(), "c1", CameraUpdate{Name: &name}))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestClient_StreamsTolerateEmptyBody(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet,
		"https://protect.local"+apiPrefix+"/cameras/c1/rtsps-stream",
		httpmock.NewStringResponder(http.StatusOK,
			`{"high":"rtsps://protect.local:7441/abc","low":null}`))

	streams, err := client.Streams(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, streams["high"])
	assert.Equal(t, "rtsps://protect.local:7441/abc", *streams["high"])
	assert.Nil(t, streams["low"])
}

func TestClient_DeviceFrameDemux(t *testing.T) {
	client := newTestClient(t)

	var got []DeviceUpdate
	client.RegisterDeviceCallback(func(msg DeviceUpdate) {
		got = append(got, msg)
	})

	// The vendor's "add" frame covers creation and in-place change, so
	// both normalize to an update.
	client.handleDeviceFrame([]byte(`{"type":"add","item":{"modelKey":"camera","id":"c1"}}`))
	client.handleDeviceFrame([]byte(`{"type":"update","item":{"modelKey":"light","id":"l1"}}`))
	client.handleDeviceFrame([]byte(`{"type":"remove","item":{"modelKey":"camera","id":"c1"}}`))

	// Malformed and empty frames are dropped without reaching callbacks.
	client.handleDeviceFrame([]byte(`not json`))
	client.handleDeviceFrame([]byte(`{"type":"add"}`))
	client.handleDeviceFrame([]byte(`{"type":"add","item":null}`))
	client.handleDeviceFrame([]byte(`{"type":"add","item":{"id":"c1"}}`))

	require.Len(t, got, 3)
	assert.Equal(t, ActionUpdate, got[0].Action)
	assert.Equal(t, ModelKeyCamera, got[0].ModelKey)
	assert.Equal(t, ActionUpdate, got[1].Action)
	assert.Equal(t, ModelKeyLight, got[1].ModelKey)
	assert.Equal(t, ActionRemove, got[2].Action)
}

func TestClient_EventFrameDemux(t *testing.T) {
	client := newTestClient(t)

	var got []Event
	client.RegisterEventCallback(func(ev Event) {
		got = append(got, ev)
	})

	client.handleEventFrame([]byte(`{"type":"add","item":{"id":"e1","type":"ring","device":"c1","start":1700000000000}}`))
	client.handleEventFrame([]byte(`{"type":"add","item":null}`))
	client.handleEventFrame([]byte(`garbage`))

	require.Len(t, got, 1)
	assert.Equal(t, EventTypeRing, got[0].Type)
	assert.Equal(t, "c1", got[0].Device)
	assert.True(t, got[0].Ongoing())
}

func TestClient_CallbackPanicDoesNotStopOthers(t *testing.T) {
	client := newTestClient(t)

	client.RegisterDeviceCallback(func(DeviceUpdate) {
		panic("listener bug")
	})
	var called bool
	client.RegisterDeviceCallback(func(DeviceUpdate) {
		called = true
	})

	assert.NotPanics(t, func() {
		client.handleDeviceFrame([]byte(`{"type":"add","item":{"modelKey":"camera","id":"c1"}}`))
	})
	assert.True(t, called)
}
