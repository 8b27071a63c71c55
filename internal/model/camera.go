package model

import "encoding/json"

// SmartDetectSettings lists the object and audio classes a camera is
// currently configured to detect.
type SmartDetectSettings struct {
	ObjectTypes []string `json:"objectTypes"`
	AudioTypes  []string `json:"audioTypes"`
}

// Camera represents a Protect camera, doorbells included.
type Camera struct {
	revision

	ID               string
	Name             string
	Model            string
	Type             string
	MAC              string
	Host             string
	State            string
	Connected        bool
	Recording        bool
	MotionDetected   bool
	PrivacyMode      bool
	RecordingMode    string
	Channels         []map[string]any
	LastMotion       *int64
	LastRing         *int64
	FirmwareVersion  string
	HardwareRevision string

	MicEnabled       bool
	OSDSettings      map[string]any
	LEDSettings      map[string]any
	LCDMessage       map[string]any
	MicVolume        int
	ActivePatrolSlot *int
	VideoMode        string
	HDRType          string
	FeatureFlags     map[string]any
	SmartDetect      SmartDetectSettings

	Dark         bool
	Uptime       *int64
	Voltage      *float64
	WDRValue     *int
	ZoomPosition *int
	Stats        map[string]any
}

// cameraPayload mirrors the wire format with pointer fields so a patch can
// distinguish "absent" from "zero".
type cameraPayload struct {
	ID                *string `json:"id"`
	Name              *string `json:"name"`
	Model             *string `json:"model"`
	Type              *string `json:"type"`
	MAC               *string `json:"mac"`
	Host              *string `json:"host"`
	State             *string `json:"state"`
	IsConnected       *bool   `json:"isConnected"`
	IsRecording       *bool   `json:"isRecording"`
	IsMotionDetected  *bool   `json:"isMotionDetected"`
	PrivacyMode       *bool   `json:"privacyModeEnabled"`
	RecordingSettings *struct {
		Mode *string `json:"mode"`
	} `json:"recordingSettings"`
	Channels         []map[string]any     `json:"channels"`
	LastMotion       *int64               `json:"lastMotion"`
	LastRing         *int64               `json:"lastRing"`
	FirmwareVersion  *string              `json:"firmwareVersion"`
	HardwareRevision *string              `json:"hardwareRevision"`
	IsMicEnabled     *bool                `json:"isMicEnabled"`
	OSDSettings      map[string]any       `json:"osdSettings"`
	LEDSettings      map[string]any       `json:"ledSettings"`
	LCDMessage       map[string]any       `json:"lcdMessage"`
	MicVolume        *int                 `json:"micVolume"`
	ActivePatrolSlot *int                 `json:"activePatrolSlot"`
	VideoMode        *string              `json:"videoMode"`
	HDRType          *string              `json:"hdrType"`
	FeatureFlags     map[string]any       `json:"featureFlags"`
	SmartDetect      *SmartDetectSettings `json:"smartDetectSettings"`
	IsDark           *bool                `json:"isDark"`
	Uptime           *int64               `json:"uptime"`
	Voltage          *float64             `json:"voltage"`
	WDRValue         *int                 `json:"wdrValue"`
	ZoomPosition     *int                 `json:"zoomPosition"`
	Stats            map[string]any       `json:"stats"`
}

// CameraFromPayload builds a Camera from a full API payload. Every field
// gets a default so absence in the payload never leaves an attribute
// undefined.
func CameraFromPayload(data json.RawMessage) (*Camera, error) {
	var p cameraPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == nil || *p.ID == "" {
		return nil, ErrMissingID
	}

	c := &Camera{
		ID:            *p.ID,
		Name:          "Unknown Camera",
		Model:         "Unknown",
		Type:          "camera",
		State:         StateDisconnected,
		RecordingMode: "never",
		MicEnabled:    true,
		MicVolume:     100,
		VideoMode:     "default",
		HDRType:       "auto",
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Model != nil {
		c.Model = *p.Model
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.MAC != nil {
		c.MAC = *p.MAC
	}
	if p.Host != nil {
		c.Host = *p.Host
	}
	if p.State != nil {
		c.State = *p.State
	}
	// The integration API reports a discrete state; older payloads carry an
	// explicit isConnected boolean which wins when present.
	if p.IsConnected != nil {
		c.Connected = *p.IsConnected
	} else {
		c.Connected = connectedFromState(c.State)
	}
	if p.IsRecording != nil {
		c.Recording = *p.IsRecording
	}
	if p.IsMotionDetected != nil {
		c.MotionDetected = *p.IsMotionDetected
	}
	if p.PrivacyMode != nil {
		c.PrivacyMode = *p.PrivacyMode
	}
	if p.RecordingSettings != nil && p.RecordingSettings.Mode != nil {
		c.RecordingMode = *p.RecordingSettings.Mode
	}
	if p.Channels != nil {
		c.Channels = p.Channels
	}
	c.LastMotion = p.LastMotion
	c.LastRing = p.LastRing
	if p.FirmwareVersion != nil {
		c.FirmwareVersion = *p.FirmwareVersion
	}
	if p.HardwareRevision != nil {
		c.HardwareRevision = *p.HardwareRevision
	}
	if p.IsMicEnabled != nil {
		c.MicEnabled = *p.IsMicEnabled
	}
	c.OSDSettings = p.OSDSettings
	c.LEDSettings = p.LEDSettings
	c.LCDMessage = p.LCDMessage
	if p.MicVolume != nil {
		c.MicVolume = *p.MicVolume
	}
	c.ActivePatrolSlot = p.ActivePatrolSlot
	if p.VideoMode != nil {
		c.VideoMode = *p.VideoMode
	}
	if p.HDRType != nil {
		c.HDRType = *p.HDRType
	}
	c.FeatureFlags = p.FeatureFlags
	if p.SmartDetect != nil {
		c.SmartDetect = *p.SmartDetect
	}
	if p.IsDark != nil {
		c.Dark = *p.IsDark
	}
	c.Uptime = p.Uptime
	c.Voltage = p.Voltage
	c.WDRValue = p.WDRValue
	c.ZoomPosition = p.ZoomPosition
	c.Stats = p.Stats
	return c, nil
}

// DeviceID implements Device.
func (c *Camera) DeviceID() string { return c.ID }

// Patch merges the fields present in a partial payload. The id is never
// overwritten.
func (c *Camera) Patch(data json.RawMessage) error {
	var p cameraPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.State != nil {
		c.State = *p.State
		if p.IsConnected == nil {
			c.Connected = connectedFromState(c.State)
		}
	}
	if p.IsConnected != nil {
		c.Connected = *p.IsConnected
	}
	if p.IsRecording != nil {
		c.Recording = *p.IsRecording
	}
	if p.IsMotionDetected != nil {
		c.MotionDetected = *p.IsMotionDetected
	}
	if p.PrivacyMode != nil {
		c.PrivacyMode = *p.PrivacyMode
	}
	if p.LastMotion != nil {
		c.LastMotion = p.LastMotion
	}
	if p.LastRing != nil {
		c.LastRing = p.LastRing
	}
	if p.RecordingSettings != nil && p.RecordingSettings.Mode != nil {
		c.RecordingMode = *p.RecordingSettings.Mode
	}
	if p.IsMicEnabled != nil {
		c.MicEnabled = *p.IsMicEnabled
	}
	if p.OSDSettings != nil {
		c.OSDSettings = p.OSDSettings
	}
	if p.LEDSettings != nil {
		c.LEDSettings = p.LEDSettings
	}
	if p.LCDMessage != nil {
		c.LCDMessage = p.LCDMessage
	}
	if p.MicVolume != nil {
		c.MicVolume = *p.MicVolume
	}
	if p.ActivePatrolSlot != nil {
		c.ActivePatrolSlot = p.ActivePatrolSlot
	}
	if p.VideoMode != nil {
		c.VideoMode = *p.VideoMode
	}
	if p.HDRType != nil {
		c.HDRType = *p.HDRType
	}
	if p.FeatureFlags != nil {
		c.FeatureFlags = p.FeatureFlags
	}
	if p.SmartDetect != nil {
		c.SmartDetect = *p.SmartDetect
	}
	if p.IsDark != nil {
		c.Dark = *p.IsDark
	}
	if p.Uptime != nil {
		c.Uptime = p.Uptime
	}
	if p.Voltage != nil {
		c.Voltage = p.Voltage
	}
	if p.WDRValue != nil {
		c.WDRValue = p.WDRValue
	}
	if p.ZoomPosition != nil {
		c.ZoomPosition = p.ZoomPosition
	}
	if p.Stats != nil {
		c.Stats = p.Stats
	}
	return nil
}

// HasSmartDetect reports whether the camera firmware advertises any smart
// detection capability.
func (c *Camera) HasSmartDetect() bool {
	types, ok := c.FeatureFlags["smartDetectTypes"].([]any)
	return ok && len(types) > 0
}

// SmartDetected reports whether any smart object or audio detection is
// currently active.
func (c *Camera) SmartDetected() bool {
	return len(c.SmartDetect.ObjectTypes) > 0 || len(c.SmartDetect.AudioTypes) > 0
}

// ObjectDetected reports whether the given smart object class (person,
// vehicle, package, animal, licensePlate, face) is currently detected.
func (c *Camera) ObjectDetected(objectType string) bool {
	for _, t := range c.SmartDetect.ObjectTypes {
		if t == objectType {
			return true
		}
	}
	return false
}
