package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraFromPayloadDefaults(t *testing.T) {
	cam, err := CameraFromPayload(json.RawMessage(`{"id":"c1"}`))
	require.NoError(t, err)

	assert.Equal(t, "c1", cam.ID)
	assert.Equal(t, "Unknown Camera", cam.Name)
	assert.Equal(t, "Unknown", cam.Model)
	assert.Equal(t, StateDisconnected, cam.State)
	assert.False(t, cam.Connected)
	assert.Equal(t, "never", cam.RecordingMode)
	assert.True(t, cam.MicEnabled)
	assert.Equal(t, 100, cam.MicVolume)
	assert.Equal(t, "default", cam.VideoMode)
	assert.Equal(t, "auto", cam.HDRType)
	assert.Nil(t, cam.LastMotion)
	assert.Nil(t, cam.LastRing)
}

func TestCameraFromPayloadMissingID(t *testing.T) {
	_, err := CameraFromPayload(json.RawMessage(`{"name":"Front"}`))
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = CameraFromPayload(json.RawMessage(`{"id":""}`))
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestCameraConnectionDerivation(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		connected bool
	}{
		{"connected state", `{"id":"c1","state":"CONNECTED"}`, true},
		{"connecting counts as connected", `{"id":"c1","state":"CONNECTING"}`, true},
		{"disconnected state", `{"id":"c1","state":"DISCONNECTED"}`, false},
		{"explicit flag wins over state", `{"id":"c1","state":"CONNECTED","isConnected":false}`, false},
		{"explicit flag without state", `{"id":"c1","isConnected":true}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam, err := CameraFromPayload(json.RawMessage(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.connected, cam.Connected)
		})
	}
}

func TestCameraPatchLeavesAbsentFieldsUnchanged(t *testing.T) {
	cam, err := CameraFromPayload(json.RawMessage(
		`{"id":"c1","name":"Front Door","state":"CONNECTED","micVolume":40,"isDark":true}`))
	require.NoError(t, err)

	require.NoError(t, cam.Patch(json.RawMessage(`{"id":"c1","name":"Porch"}`)))

	assert.Equal(t, "Porch", cam.Name)
	assert.Equal(t, StateConnected, cam.State)
	assert.True(t, cam.Connected)
	assert.Equal(t, 40, cam.MicVolume)
	assert.True(t, cam.Dark)
}

func TestCameraPatchNeverChangesID(t *testing.T) {
	cam, err := CameraFromPayload(json.RawMessage(`{"id":"c1"}`))
	require.NoError(t, err)

	for _, payload := range []string{
		`{"id":"c2","name":"Renamed"}`,
		`{"name":"No ID at all"}`,
		`{"id":"","state":"CONNECTED"}`,
	} {
		require.NoError(t, cam.Patch(json.RawMessage(payload)))
		assert.Equal(t, "c1", cam.DeviceID())
	}
}

func TestCameraIdenticalPatchIsIdempotent(t *testing.T) {
	payload := json.RawMessage(`{
		"id":"c1","name":"Front","state":"CONNECTED","isRecording":true,
		"recordingSettings":{"mode":"motion"},"micVolume":80,
		"lastMotion":1700000000000,"featureFlags":{"hasHdr":true},
		"smartDetectSettings":{"objectTypes":["person"],"audioTypes":[]}
	}`)

	cam, err := CameraFromPayload(payload)
	require.NoError(t, err)
	before := *cam

	require.NoError(t, cam.Patch(payload))
	assert.Equal(t, before, *cam)
}

func TestCameraPatchStateUpdatesConnection(t *testing.T) {
	cam, err := CameraFromPayload(json.RawMessage(`{"id":"c1","state":"CONNECTED"}`))
	require.NoError(t, err)
	require.True(t, cam.Connected)

	require.NoError(t, cam.Patch(json.RawMessage(`{"state":"DISCONNECTED"}`)))
	assert.False(t, cam.Connected)

	// Explicit flag in the same patch overrides the state derivation.
	require.NoError(t, cam.Patch(json.RawMessage(`{"state":"DISCONNECTED","isConnected":true}`)))
	assert.True(t, cam.Connected)
}

func TestCameraSmartDetectHelpers(t *testing.T) {
	cam, err := CameraFromPayload(json.RawMessage(`{
		"id":"c1",
		"featureFlags":{"smartDetectTypes":["person","vehicle"]},
		"smartDetectSettings":{"objectTypes":["person"],"audioTypes":[]}
	}`))
	require.NoError(t, err)

	assert.True(t, cam.HasSmartDetect())
	assert.True(t, cam.SmartDetected())
	assert.True(t, cam.ObjectDetected("person"))
	assert.False(t, cam.ObjectDetected("vehicle"))

	require.NoError(t, cam.Patch(json.RawMessage(`{"smartDetectSettings":{"objectTypes":[],"audioTypes":[]}}`)))
	assert.False(t, cam.SmartDetected())
}

func TestCameraRevisionStamp(t *testing.T) {
	cam, err := CameraFromPayload(json.RawMessage(`{"id":"c1"}`))
	require.NoError(t, err)

	assert.Equal(t, int64(0), cam.Revision())
	cam.SetRevision(7)
	assert.Equal(t, int64(7), cam.Revision())

	// Patching never touches the stamp; only the owner does.
	require.NoError(t, cam.Patch(json.RawMessage(`{"name":"Front"}`)))
	assert.Equal(t, int64(7), cam.Revision())
}
