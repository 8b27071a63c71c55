package protect

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockCall records one command invocation against a MockAPI.
type MockCall struct {
	Method string
	Args   []any
}

// MockAPI implements API for testing consumers without a console.
// Responses are keyed by endpoint name in Payloads; a matching entry in
// Errors forces that endpoint to fail instead.
type MockAPI struct {
	mu sync.Mutex

	HostValue      string
	Payloads       map[string]json.RawMessage
	Errors         map[string]error
	SnapshotData   []byte
	StreamURLValue string

	calls []MockCall

	deviceCbs []DeviceCallback
	eventCbs  []EventCallback

	DeviceChannelOpen bool
	EventChannelOpen  bool
	Closed            bool
}

var _ API = (*MockAPI)(nil)

// NewMockAPI creates an empty mock. Populate Payloads before use.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		HostValue: "https://protect.test",
		Payloads:  make(map[string]json.RawMessage),
		Errors:    make(map[string]error),
	}
}

// Calls returns a copy of all recorded command invocations.
func (m *MockAPI) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallsTo returns the recorded invocations of one method.
func (m *MockAPI) CallsTo(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockCall
	for _, c := range m.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockAPI) record(method string, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Args: args})
	return m.Errors[method]
}

func (m *MockAPI) respond(name string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: name})
	if err := m.Errors[name]; err != nil {
		return nil, err
	}
	if data, ok := m.Payloads[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: no mock payload for %s", ErrNotFound, name)
}

func (m *MockAPI) Host() string { return m.HostValue }

func (m *MockAPI) Bootstrap(ctx context.Context) (json.RawMessage, error) {
	return m.respond("bootstrap")
}

func (m *MockAPI) ApplicationInfo(ctx context.Context) (json.RawMessage, error) {
	return m.respond("applicationInfo")
}

func (m *MockAPI) NVR(ctx context.Context) (json.RawMessage, error) {
	return m.respond("nvr")
}

func (m *MockAPI) Lights(ctx context.Context) (json.RawMessage, error) {
	return m.respond("lights")
}

func (m *MockAPI) Chimes(ctx context.Context) (json.RawMessage, error) {
	return m.respond("chimes")
}

func (m *MockAPI) Viewers(ctx context.Context) (json.RawMessage, error) {
	return m.respond("viewers")
}

func (m *MockAPI) Liveviews(ctx context.Context) (json.RawMessage, error) {
	return m.respond("liveviews")
}

func (m *MockAPI) SetRecordingMode(ctx context.Context, cameraID, mode string) error {
	return m.record("SetRecordingMode", cameraID, mode)
}

func (m *MockAPI) SetPrivacyMode(ctx context.Context, cameraID string, enabled bool) error {
	return m.record("SetPrivacyMode", cameraID, enabled)
}

func (m *MockAPI) UpdateCamera(ctx context.Context, cameraID string, upd CameraUpdate) error {
	if err := upd.validate(); err != nil {
		return err
	}
	return m.record("UpdateCamera", cameraID, upd)
}

func (m *MockAPI) DisableMicPermanently(ctx context.Context, cameraID string) error {
	return m.record("DisableMicPermanently", cameraID)
}

func (m *MockAPI) CreateTalkbackSession(ctx context.Context, cameraID string) (json.RawMessage, error) {
	if err := m.record("CreateTalkbackSession", cameraID); err != nil {
		return nil, err
	}
	return m.Payloads["talkback"], nil
}

func (m *MockAPI) PTZStartPatrol(ctx context.Context, cameraID string, slot int) error {
	if slot < 0 || slot > 4 {
		return fmt.Errorf("%w: patrol slot must be between 0 and 4, got %d", ErrValidation, slot)
	}
	return m.record("PTZStartPatrol", cameraID, slot)
}

func (m *MockAPI) PTZStopPatrol(ctx context.Context, cameraID string) error {
	return m.record("PTZStopPatrol", cameraID)
}

func (m *MockAPI) PTZGotoPreset(ctx context.Context, cameraID string, slot int) error {
	if slot < -1 {
		return fmt.Errorf("%w: preset slot must be -1 or greater, got %d", ErrValidation, slot)
	}
	return m.record("PTZGotoPreset", cameraID, slot)
}

func (m *MockAPI) FetchSnapshot(ctx context.Context, cameraID string, force bool) ([]byte, error) {
	if err := m.record("FetchSnapshot", cameraID, force); err != nil {
		return nil, err
	}
	return m.SnapshotData, nil
}

func (m *MockAPI) StreamURL(ctx context.Context, cameraID string) (string, error) {
	if err := m.record("StreamURL", cameraID); err != nil {
		return "", err
	}
	return m.StreamURLValue, nil
}

func (m *MockAPI) UpdateSensor(ctx context.Context, sensorID string, upd SensorUpdate) error {
	return m.record("UpdateSensor", sensorID, upd)
}

func (m *MockAPI) UpdateLight(ctx context.Context, lightID string, upd LightUpdate) error {
	return m.record("UpdateLight", lightID, upd)
}

func (m *MockAPI) SetLightBrightness(ctx context.Context, lightID string, level int) error {
	if level < 1 || level > 6 {
		return fmt.Errorf("%w: brightness must be between 1 and 6, got %d", ErrValidation, level)
	}
	return m.record("SetLightBrightness", lightID, level)
}

func (m *MockAPI) UpdateChime(ctx context.Context, chimeID string, upd ChimeUpdate) error {
	if err := upd.validate(); err != nil {
		return err
	}
	return m.record("UpdateChime", chimeID, upd)
}

func (m *MockAPI) UpdateViewer(ctx context.Context, viewerID string, upd ViewerUpdate) error {
	return m.record("UpdateViewer", viewerID, upd)
}

func (m *MockAPI) CreateLiveview(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	if err := m.record("CreateLiveview"); err != nil {
		return nil, err
	}
	return data, nil
}

func (m *MockAPI) UpdateLiveview(ctx context.Context, liveviewID string, data json.RawMessage) (json.RawMessage, error) {
	if err := m.record("UpdateLiveview", liveviewID); err != nil {
		return nil, err
	}
	return data, nil
}

func (m *MockAPI) TriggerAlarm(ctx context.Context, triggerID string) error {
	return m.record("TriggerAlarm", triggerID)
}

func (m *MockAPI) UploadAssetFile(ctx context.Context, fileType, filename, contentType string, data []byte) (json.RawMessage, error) {
	if fileType != "animations" {
		return nil, fmt.Errorf("%w: unsupported asset file type %q", ErrValidation, fileType)
	}
	if err := m.record("UploadAssetFile", fileType, filename); err != nil {
		return nil, err
	}
	return m.Payloads["assetUpload"], nil
}

func (m *MockAPI) AssetFiles(ctx context.Context, fileType string) (json.RawMessage, error) {
	if fileType != "animations" {
		return nil, fmt.Errorf("%w: unsupported asset file type %q", ErrValidation, fileType)
	}
	return m.respond("assetFiles")
}

func (m *MockAPI) RegisterDeviceCallback(cb DeviceCallback) {
	m.mu.Lock()
	m.deviceCbs = append(m.deviceCbs, cb)
	m.mu.Unlock()
}

func (m *MockAPI) RegisterEventCallback(cb EventCallback) {
	m.mu.Lock()
	m.eventCbs = append(m.eventCbs, cb)
	m.mu.Unlock()
}

func (m *MockAPI) OpenDeviceChannel() {
	m.mu.Lock()
	m.DeviceChannelOpen = true
	m.mu.Unlock()
}

func (m *MockAPI) OpenEventChannel() {
	m.mu.Lock()
	m.EventChannelOpen = true
	m.mu.Unlock()
}

func (m *MockAPI) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.DeviceChannelOpen = false
	m.EventChannelOpen = false
	m.mu.Unlock()
	return nil
}

// PushDeviceUpdate delivers a device-channel message to every registered
// callback, as the live channel would.
func (m *MockAPI) PushDeviceUpdate(msg DeviceUpdate) {
	m.mu.Lock()
	cbs := append([]DeviceCallback(nil), m.deviceCbs...)
	m.mu.Unlock()
	for _, cb := range cbs {
		cb(msg)
	}
}

// PushEvent delivers an event-channel message to every registered
// callback.
func (m *MockAPI) PushEvent(ev Event) {
	m.mu.Lock()
	cbs := append([]EventCallback(nil), m.eventCbs...)
	m.mu.Unlock()
	for _, cb := range cbs {
		cb(ev)
	}
}
