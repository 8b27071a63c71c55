package protect

import (
	"encoding/json"
	"fmt"
)

// Actions produced by the device-channel demultiplexer.
const (
	ActionUpdate = "update"
	ActionRemove = "remove"
)

// Model keys carried on the device channel.
const (
	ModelKeyCamera   = "camera"
	ModelKeySensor   = "sensor"
	ModelKeyLight    = "light"
	ModelKeyChime    = "chime"
	ModelKeyViewer   = "viewer"
	ModelKeyLiveview = "liveview"
	ModelKeyNVR      = "nvr"
)

// Event types carried on the event channel.
const (
	EventTypeRing            = "ring"
	EventTypeMotion          = "motion"
	EventTypeSmartDetectZone = "smartDetectZone"
	EventTypeSmartDetectLine = "smartDetectLine"
	EventTypeLightMotion     = "lightMotion"
)

// envelope is the vendor's raw frame format on both WebSocket channels.
type envelope struct {
	Type string          `json:"type"`
	Item json.RawMessage `json:"item"`
}

// DeviceUpdate is a normalized device-channel message. The vendor reuses
// the "add" frame type for both creation and in-place change, so both
// normalize to ActionUpdate and consumers upsert on it; only an explicit
// "remove" maps to ActionRemove.
type DeviceUpdate struct {
	Action   string
	ModelKey string
	Data     json.RawMessage
}

// Event is a discrete event frame: motion, ring, smart detection.
type Event struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Device           string   `json:"device"`
	Start            *int64   `json:"start"`
	End              *int64   `json:"end"`
	Score            int      `json:"score"`
	SmartDetectTypes []string `json:"smartDetectTypes"`
}

// Ongoing reports whether the event is still in progress (no end stamp).
func (e Event) Ongoing() bool { return e.End == nil }

// DeviceCallback receives normalized device-channel messages.
type DeviceCallback func(DeviceUpdate)

// EventCallback receives event-channel messages.
type EventCallback func(Event)

// CameraUpdate is a partial camera settings change. Nil/empty fields are
// omitted from the PATCH body.
type CameraUpdate struct {
	Name                *string        `json:"name,omitempty"`
	OSDSettings         map[string]any `json:"osdSettings,omitempty"`
	LEDSettings         map[string]any `json:"ledSettings,omitempty"`
	LCDMessage          map[string]any `json:"lcdMessage,omitempty"`
	MicVolume           *int           `json:"micVolume,omitempty"`
	VideoMode           string         `json:"videoMode,omitempty"`
	HDRType             string         `json:"hdrType,omitempty"`
	SmartDetectSettings map[string]any `json:"smartDetectSettings,omitempty"`
}

func (u CameraUpdate) validate() error {
	if u.MicVolume != nil && (*u.MicVolume < 0 || *u.MicVolume > 100) {
		return fmt.Errorf("%w: mic volume must be between 0 and 100, got %d", ErrValidation, *u.MicVolume)
	}
	return nil
}

// SensorUpdate is a partial sensor settings change.
type SensorUpdate struct {
	Name                *string        `json:"name,omitempty"`
	LightSettings       map[string]any `json:"lightSettings,omitempty"`
	HumiditySettings    map[string]any `json:"humiditySettings,omitempty"`
	TemperatureSettings map[string]any `json:"temperatureSettings,omitempty"`
	MotionSettings      map[string]any `json:"motionSettings,omitempty"`
	AlarmSettings       map[string]any `json:"alarmSettings,omitempty"`
}

// LightUpdate is a partial light settings change.
type LightUpdate struct {
	Name                *string        `json:"name,omitempty"`
	ForceEnabled        *bool          `json:"isLightForceEnabled,omitempty"`
	LightModeSettings   map[string]any `json:"lightModeSettings,omitempty"`
	LightDeviceSettings map[string]any `json:"lightDeviceSettings,omitempty"`
}

// ChimeRingSetting is one per-camera ringtone entry in a ChimeUpdate.
type ChimeRingSetting struct {
	CameraID    string `json:"cameraId"`
	RepeatTimes int    `json:"repeatTimes"`
	RingtoneID  string `json:"ringtoneId"`
	Volume      int    `json:"volume"`
}

func (s ChimeRingSetting) validate() error {
	if s.RepeatTimes < 1 || s.RepeatTimes > 10 {
		return fmt.Errorf("%w: repeat times must be between 1 and 10, got %d", ErrValidation, s.RepeatTimes)
	}
	if s.Volume < 0 || s.Volume > 100 {
		return fmt.Errorf("%w: ring volume must be between 0 and 100, got %d", ErrValidation, s.Volume)
	}
	return nil
}

// ChimeUpdate is a partial chime settings change.
type ChimeUpdate struct {
	Name         *string            `json:"name,omitempty"`
	CameraIDs    []string           `json:"cameraIds,omitempty"`
	RingSettings []ChimeRingSetting `json:"ringSettings,omitempty"`
}

func (u ChimeUpdate) validate() error {
	for _, s := range u.RingSettings {
		if err := s.validate(); err != nil {
			return err
		}
	}
	return nil
}

// ViewerUpdate is a partial viewer settings change.
type ViewerUpdate struct {
	Name     *string `json:"name,omitempty"`
	Liveview *string `json:"liveview,omitempty"`
}

// streamQualities is the provisioning set and, in this order, the
// selection priority for StreamURL.
var streamQualities = []string{"package", "high", "medium", "low"}
