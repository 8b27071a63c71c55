package coordinator

import (
	"context"
	"encoding/json"

	"protectsync/internal/protect"
)

// Command methods delegate to the transport and, for mutations, request
// an out-of-band refresh so the maps converge without waiting a full
// poll interval. Errors propagate to the caller unchanged and are never
// retried here.

// SetRecordingMode changes a camera's recording mode.
func (c *Coordinator) SetRecordingMode(ctx context.Context, cameraID, mode string) error {
	if err := c.api.SetRecordingMode(ctx, cameraID, mode); err != nil {
		return err
	}
	c.RequestRefresh()
	return nil
}

// SetPrivacyMode enables or disables a camera's privacy mode.
func (c *Coordinator) SetPrivacyMode(ctx context.Context, cameraID string, enabled bool) error {
	if err := c.api.SetPrivacyMode(ctx, cameraID, enabled); err != nil {
		return err
	}
	c.RequestRefresh()
	return nil
}

// UpdateCamera applies a partial camera settings change.
func (c *Coordinator) UpdateCamera(ctx context.Context, cameraID string, upd protect.CameraUpdate) error {
	if err := c.api.UpdateCamera(ctx, cameraID, upd); err != nil {
		return err
	}
	c.RequestRefresh()
	return nil
}

// DisableMicPermanently disables a camera microphone until factory
// reset.
func (c *Coordinator) DisableMicPermanently(ctx context.Context, cameraID string) error {
	if err := c.api.DisableMicPermanently(ctx, cameraID); err != nil {
		return err
	}
	c.RequestRefresh()
	return nil
}

// CreateTalkbackSession provisions a talkback stream for a camera.
func (c *Coordinator) CreateTalkbackSession(ctx context.Context, cameraID string) (json.RawMessage, error) {
	return c.api.CreateTalkbackSession(ctx, cameraID)
}

// PTZStartPatrol starts the patrol stored in the given slot.
func (c *Coordinator) PTZStartPatrol(ctx context.Context, cameraID string, slot int) error {
	return c.api.PTZStartPatrol(ctx, cameraID, slot)
}

// PTZStopPatrol stops any active patrol.
func (c *Coordinator) PTZStopPatrol(ctx context.Context, cameraID string) error {
	return c.api.PTZStopPatrol(ctx, cameraID)
}

// PTZGotoPreset moves the camera to a preset slot.
func (c *Coordinator) PTZGotoPreset(ctx context.Context, cameraID string, slot int) error {
	return c.api.PTZGotoPreset(ctx, cameraID, slot)
}

// FetchSnapshot returns a still image from a camera.
func (c *Coordinator) FetchSnapshot(ctx context.Context, cameraID string, force bool) ([]byte, error) {
	return c.api.FetchSnapshot(ctx, cameraID, force)
}

// StreamURL returns an RTSPS stream URL for a camera.
func (c *Coordinator) StreamURL(ctx context.Context, cameraID string) (string, error) {
	return c.api.StreamURL(ctx, cameraID)
}

// UpdateSensor applies a partial sensor settings change.
func (c *Coordinator) UpdateSensor(ctx context.Context, sensorID string, upd protect.SensorUpdate) error {
	if err := c.api.UpdateSensor(ctx, sensorID, upd); err != nil {
		return err
	}
	c.RequestRefresh()
	return nil
}

// UpdateLight applies a partial light settings change.
func (c *Coordinator) UpdateLight(ctx context.Context, lightID string, upd protect.LightUpdate) error {
	if err := c.api.UpdateLight(ctx, lightID, upd); err != nil {
		return err
	}
	c.RequestRefresh()
	return nil
}

// SetLightBrightness sets a floodlight's LED level.
func (c *Coordinator) SetLightBrightness(ctx context.Context, lightID string, level int) error {
	if err := c.api.SetLightBrightness(ctx, lightID, level); err != nil {
		return err
	}
	c.RequestRefresh()
	return nil
}

// UpdateChime applies a partial chime settings change.
func (c *Coordinator) UpdateChime(ctx context.Context, chimeID string, upd protect.ChimeUpdate) error {
	if err := c.api.UpdateChime(ctx, chimeID, upd); err != nil {
		return err
	}
	c.RequestRefresh()
	return nil
}

// UpdateViewer applies a partial viewer settings change.
func (c *Coordinator) UpdateViewer(ctx context.Context, viewerID string, upd protect.ViewerUpdate) error {
	if err := c.api.UpdateViewer(ctx, viewerID, upd); err != nil {
		return err
	}
	c.RequestRefresh()
	return nil
}

// CreateLiveview creates a liveview layout.
func (c *Coordinator) CreateLiveview(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	out, err := c.api.CreateLiveview(ctx, data)
	if err != nil {
		return nil, err
	}
	c.RequestRefresh()
	return out, nil
}

// UpdateLiveview replaces a liveview's configuration.
func (c *Coordinator) UpdateLiveview(ctx context.Context, liveviewID string, data json.RawMessage) (json.RawMessage, error) {
	out, err := c.api.UpdateLiveview(ctx, liveviewID, data)
	if err != nil {
		return nil, err
	}
	c.RequestRefresh()
	return out, nil
}

// TriggerAlarm fires an alarm-manager webhook trigger.
func (c *Coordinator) TriggerAlarm(ctx context.Context, triggerID string) error {
	return c.api.TriggerAlarm(ctx, triggerID)
}

// UploadAssetFile uploads a device asset.
func (c *Coordinator) UploadAssetFile(ctx context.Context, fileType, filename, contentType string, data []byte) (json.RawMessage, error) {
	return c.api.UploadAssetFile(ctx, fileType, filename, contentType, data)
}

// AssetFiles lists uploaded device assets.
func (c *Coordinator) AssetFiles(ctx context.Context, fileType string) (json.RawMessage, error) {
	return c.api.AssetFiles(ctx, fileType)
}
