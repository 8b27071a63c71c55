package protect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	apiPrefix     = "/proxy/protect/integration/v1"
	bootstrapPath = "/proxy/protect/api/bootstrap"

	devicesSubscribePath = apiPrefix + "/subscribe/devices"
	eventsSubscribePath  = apiPrefix + "/subscribe/events"
)

// API is the surface the coordinator and entity adapters consume. Client
// implements it; MockAPI implements it for tests.
type API interface {
	Host() string

	// Reads used by the reconciliation loop.
	Bootstrap(ctx context.Context) (json.RawMessage, error)
	ApplicationInfo(ctx context.Context) (json.RawMessage, error)
	NVR(ctx context.Context) (json.RawMessage, error)
	Lights(ctx context.Context) (json.RawMessage, error)
	Chimes(ctx context.Context) (json.RawMessage, error)
	Viewers(ctx context.Context) (json.RawMessage, error)
	Liveviews(ctx context.Context) (json.RawMessage, error)

	// Camera commands.
	SetRecordingMode(ctx context.Context, cameraID, mode string) error
	SetPrivacyMode(ctx context.Context, cameraID string, enabled bool) error
	UpdateCamera(ctx context.Context, cameraID string, upd CameraUpdate) error
	DisableMicPermanently(ctx context.Context, cameraID string) error
	CreateTalkbackSession(ctx context.Context, cameraID string) (json.RawMessage, error)
	PTZStartPatrol(ctx context.Context, cameraID string, slot int) error
	PTZStopPatrol(ctx context.Context, cameraID string) error
	PTZGotoPreset(ctx context.Context, cameraID string, slot int) error
	FetchSnapshot(ctx context.Context, cameraID string, force bool) ([]byte, error)
	StreamURL(ctx context.Context, cameraID string) (string, error)

	// Other device commands.
	UpdateSensor(ctx context.Context, sensorID string, upd SensorUpdate) error
	UpdateLight(ctx context.Context, lightID string, upd LightUpdate) error
	SetLightBrightness(ctx context.Context, lightID string, level int) error
	UpdateChime(ctx context.Context, chimeID string, upd ChimeUpdate) error
	UpdateViewer(ctx context.Context, viewerID string, upd ViewerUpdate) error
	CreateLiveview(ctx context.Context, data json.RawMessage) (json.RawMessage, error)
	UpdateLiveview(ctx context.Context, liveviewID string, data json.RawMessage) (json.RawMessage, error)
	TriggerAlarm(ctx context.Context, triggerID string) error
	UploadAssetFile(ctx context.Context, fileType, filename, contentType string, data []byte) (json.RawMessage, error)
	AssetFiles(ctx context.Context, fileType string) (json.RawMessage, error)

	// Channel lifecycle.
	RegisterDeviceCallback(cb DeviceCallback)
	RegisterEventCallback(cb EventCallback)
	OpenDeviceChannel()
	OpenEventChannel()
	Close() error
}

var _ API = (*Client)(nil)

// Bootstrap fetches the full-state snapshot: the authoritative device
// lists for every category plus the NVR.
func (c *Client) Bootstrap(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, bootstrapPath)
}

// ApplicationInfo fetches version metadata. Used as the NVR-details
// fallback on consoles whose firmware lacks the v1 NVR endpoint.
func (c *Client) ApplicationInfo(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, apiPrefix+"/meta/info")
}

// NVR fetches console details including doorbell settings.
func (c *Client) NVR(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, apiPrefix+"/nvr")
}

// VerifyConnection checks reachability and authentication in one call.
func (c *Client) VerifyConnection(ctx context.Context) error {
	_, err := c.ApplicationInfo(ctx)
	return err
}

// Cameras lists all cameras with v1 detail.
func (c *Client) Cameras(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, apiPrefix+"/cameras")
}

// Camera fetches one camera.
func (c *Client) Camera(ctx context.Context, cameraID string) (json.RawMessage, error) {
	return c.get(ctx, apiPrefix+"/cameras/"+cameraID)
}

// Sensors lists all sensors with v1 detail.
func (c *Client) Sensors(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, apiPrefix+"/sensors")
}

// Lights lists all lights.
func (c *Client) Lights(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, apiPrefix+"/lights")
}

// Chimes lists all chimes.
func (c *Client) Chimes(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, apiPrefix+"/chimes")
}

// Viewers lists all viewers.
func (c *Client) Viewers(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, apiPrefix+"/viewers")
}

// Liveviews lists all liveview layouts.
func (c *Client) Liveviews(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, apiPrefix+"/liveviews")
}

// SetRecordingMode sets a camera's recording mode (always, never, motion,
// detections).
func (c *Client) SetRecordingMode(ctx context.Context, cameraID, mode string) error {
	body := map[string]any{"recordingSettings": map[string]any{"mode": mode}}
	_, err := c.patch(ctx, "/proxy/protect/api/cameras/"+cameraID, body)
	return err
}

// SetPrivacyMode enables or disables a camera's privacy mode.
func (c *Client) SetPrivacyMode(ctx context.Context, cameraID string, enabled bool) error {
	_, err := c.patch(ctx, "/proxy/protect/api/cameras/"+cameraID, map[string]any{"privacyModeEnabled": enabled})
	return err
}

// UpdateCamera applies a partial settings change. Out-of-range values are
// rejected before any network call.
func (c *Client) UpdateCamera(ctx context.Context, cameraID string, upd CameraUpdate) error {
	if err := upd.validate(); err != nil {
		return err
	}
	_, err := c.patch(ctx, apiPrefix+"/cameras/"+cameraID, upd)
	return err
}

// DisableMicPermanently disables a camera microphone until factory reset.
func (c *Client) DisableMicPermanently(ctx context.Context, cameraID string) error {
	_, err := c.post(ctx, apiPrefix+"/cameras/"+cameraID+"/disable-mic-permanently", nil)
	return err
}

// CreateTalkbackSession provisions a talkback stream for a camera and
// returns its url/codec/samplingRate configuration.
func (c *Client) CreateTalkbackSession(ctx context.Context, cameraID string) (json.RawMessage, error) {
	return c.post(ctx, apiPrefix+"/cameras/"+cameraID+"/talkback-session", nil)
}

// PTZStartPatrol starts the patrol stored in the given slot (0-4).
func (c *Client) PTZStartPatrol(ctx context.Context, cameraID string, slot int) error {
	if slot < 0 || slot > 4 {
		return fmt.Errorf("%w: patrol slot must be between 0 and 4, got %d", ErrValidation, slot)
	}
	_, err := c.post(ctx, fmt.Sprintf("%s/cameras/%s/ptz/patrol/start/%d", apiPrefix, cameraID, slot), nil)
	return err
}

// PTZStopPatrol stops any active patrol.
func (c *Client) PTZStopPatrol(ctx context.Context, cameraID string) error {
	_, err := c.post(ctx, apiPrefix+"/cameras/"+cameraID+"/ptz/patrol/stop", nil)
	return err
}

// PTZGotoPreset moves the camera to a preset slot; -1 is the home
// position.
func (c *Client) PTZGotoPreset(ctx context.Context, cameraID string, slot int) error {
	if slot < -1 {
		return fmt.Errorf("%w: preset slot must be -1 or greater, got %d", ErrValidation, slot)
	}
	_, err := c.post(ctx, fmt.Sprintf("%s/cameras/%s/ptz/goto/%d", apiPrefix, cameraID, slot), nil)
	return err
}

// UpdateSensor applies a partial sensor settings change.
func (c *Client) UpdateSensor(ctx context.Context, sensorID string, upd SensorUpdate) error {
	_, err := c.patch(ctx, apiPrefix+"/sensors/"+sensorID, upd)
	return err
}

// UpdateLight applies a partial light settings change.
func (c *Client) UpdateLight(ctx context.Context, lightID string, upd LightUpdate) error {
	_, err := c.patch(ctx, apiPrefix+"/lights/"+lightID, upd)
	return err
}

// SetLightBrightness sets the floodlight LED level (1-6).
func (c *Client) SetLightBrightness(ctx context.Context, lightID string, level int) error {
	if level < 1 || level > 6 {
		return fmt.Errorf("%w: brightness must be between 1 and 6, got %d", ErrValidation, level)
	}
	return c.UpdateLight(ctx, lightID, LightUpdate{
		LightDeviceSettings: map[string]any{"ledLevel": level},
	})
}

// UpdateChime applies a partial chime settings change, validating any
// ring settings first.
func (c *Client) UpdateChime(ctx context.Context, chimeID string, upd ChimeUpdate) error {
	if err := upd.validate(); err != nil {
		return err
	}
	_, err := c.patch(ctx, apiPrefix+"/chimes/"+chimeID, upd)
	return err
}

// UpdateViewer applies a partial viewer settings change (name, assigned
// liveview).
func (c *Client) UpdateViewer(ctx context.Context, viewerID string, upd ViewerUpdate) error {
	_, err := c.patch(ctx, apiPrefix+"/viewers/"+viewerID, upd)
	return err
}

// CreateLiveview creates a liveview layout from raw configuration.
func (c *Client) CreateLiveview(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, apiPrefix+"/liveviews", data)
}

// UpdateLiveview replaces a liveview's configuration.
func (c *Client) UpdateLiveview(ctx context.Context, liveviewID string, data json.RawMessage) (json.RawMessage, error) {
	return c.patch(ctx, apiPrefix+"/liveviews/"+liveviewID, data)
}

// TriggerAlarm fires the alarm-manager webhook for the given user-defined
// trigger id.
func (c *Client) TriggerAlarm(ctx context.Context, triggerID string) error {
	_, err := c.post(ctx, apiPrefix+"/alarm-manager/webhook/"+triggerID, nil)
	return err
}

// UploadAssetFile uploads a device asset as multipart form data. Only the
// "animations" file type is accepted by current firmware.
func (c *Client) UploadAssetFile(ctx context.Context, fileType, filename, contentType string, data []byte) (json.RawMessage, error) {
	if fileType != "animations" {
		return nil, fmt.Errorf("%w: unsupported asset file type %q", ErrValidation, fileType)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("file", filename, contentType, bytes.NewReader(data)).
		Post(apiPrefix + "/files/" + fileType)
	if err != nil {
		return nil, fmt.Errorf("%w: upload %s: %v", ErrConn, filename, err)
	}
	if err := classifyStatus(resp.StatusCode(), http.MethodPost, apiPrefix+"/files/"+fileType); err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

// AssetFiles lists uploaded device assets of the given type.
func (c *Client) AssetFiles(ctx context.Context, fileType string) (json.RawMessage, error) {
	if fileType != "animations" {
		return nil, fmt.Errorf("%w: unsupported asset file type %q", ErrValidation, fileType)
	}
	return c.get(ctx, apiPrefix+"/files/"+fileType)
}

// CreateStreams provisions RTSPS streams for the given qualities and
// returns quality → URL.
func (c *Client) CreateStreams(ctx context.Context, cameraID string, qualities []string) (map[string]string, error) {
	raw, err := c.post(ctx, apiPrefix+"/cameras/"+cameraID+"/rtsps-stream", map[string]any{"qualities": qualities})
	if err != nil {
		return nil, err
	}
	streams := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &streams); err != nil {
			return nil, fmt.Errorf("%w: decoding stream response: %v", ErrAPI, err)
		}
	}
	return streams, nil
}

// Streams fetches the existing RTSPS streams; a quality maps to nil when
// no stream has been provisioned for it.
func (c *Client) Streams(ctx context.Context, cameraID string) (map[string]*string, error) {
	raw, err := c.get(ctx, apiPrefix+"/cameras/"+cameraID+"/rtsps-stream")
	if err != nil {
		return nil, err
	}
	streams := map[string]*string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &streams); err != nil {
			return nil, fmt.Errorf("%w: decoding stream response: %v", ErrAPI, err)
		}
	}
	return streams, nil
}

// DeleteStreams removes the RTSPS streams for the given qualities.
func (c *Client) DeleteStreams(ctx context.Context, cameraID string, qualities []string) error {
	params := make([]string, 0, len(qualities))
	for _, q := range qualities {
		params = append(params, "qualities="+q)
	}
	path := apiPrefix + "/cameras/" + cameraID + "/rtsps-stream?" + strings.Join(params, "&")
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}
