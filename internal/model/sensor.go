package model

import "encoding/json"

// SensorThresholdSettings configures one threshold-based modality
// (light, humidity, temperature).
type SensorThresholdSettings struct {
	Enabled       bool     `json:"isEnabled"`
	LowThreshold  *float64 `json:"lowThreshold"`
	HighThreshold *float64 `json:"highThreshold"`
}

// SensorMotionSettings configures the motion modality.
type SensorMotionSettings struct {
	Enabled     bool `json:"isEnabled"`
	Sensitivity int  `json:"sensitivity"`
}

// SensorToggleSettings configures an on/off-only modality (alarm, leak).
type SensorToggleSettings struct {
	Enabled bool `json:"isEnabled"`
}

// SensorReading is one measured value plus the threshold status derived
// for it (neutral, low, safe, high, unknown).
type SensorReading struct {
	Value  *float64 `json:"value"`
	Status string   `json:"status"`
}

// SensorStats groups the current readings of the measuring modalities.
type SensorStats struct {
	Light       SensorReading `json:"light"`
	Humidity    SensorReading `json:"humidity"`
	Temperature SensorReading `json:"temperature"`
}

// BatteryStatus reports the sensor battery.
type BatteryStatus struct {
	Percentage *int `json:"percentage"`
	IsLow      bool `json:"isLow"`
}

// Sensor represents a Protect multi-modality sensor.
type Sensor struct {
	revision

	ID              string
	Name            string
	Model           string
	Type            string
	MAC             string
	State           string
	Connected       bool
	FirmwareVersion string
	MountType       string
	Battery         BatteryStatus
	Stats           SensorStats

	LightSettings       SensorThresholdSettings
	HumiditySettings    SensorThresholdSettings
	TemperatureSettings SensorThresholdSettings
	MotionSettings      SensorMotionSettings
	AlarmSettings       SensorToggleSettings
	LeakSettings        SensorToggleSettings

	Opened                 bool
	OpenStatusChangedAt    *int64
	MotionDetected         bool
	MotionDetectedAt       *int64
	AlarmTriggeredAt       *int64
	LeakDetectedAt         *int64
	ExternalLeakDetectedAt *int64
	TamperingDetectedAt    *int64
}

type sensorPayload struct {
	ID                     *string                  `json:"id"`
	Name                   *string                  `json:"name"`
	Model                  *string                  `json:"model"`
	Type                   *string                  `json:"type"`
	MAC                    *string                  `json:"mac"`
	State                  *string                  `json:"state"`
	IsConnected            *bool                    `json:"isConnected"`
	FirmwareVersion        *string                  `json:"firmwareVersion"`
	MountType              *string                  `json:"mountType"`
	BatteryStatus          *BatteryStatus           `json:"batteryStatus"`
	Stats                  *SensorStats             `json:"stats"`
	LightSettings          *SensorThresholdSettings `json:"lightSettings"`
	HumiditySettings       *SensorThresholdSettings `json:"humiditySettings"`
	TemperatureSettings    *SensorThresholdSettings `json:"temperatureSettings"`
	MotionSettings         *SensorMotionSettings    `json:"motionSettings"`
	AlarmSettings          *SensorToggleSettings    `json:"alarmSettings"`
	LeakSettings           *SensorToggleSettings    `json:"leakSettings"`
	IsOpened               *bool                    `json:"isOpened"`
	OpenStatusChangedAt    *int64                   `json:"openStatusChangedAt"`
	IsMotionDetected       *bool                    `json:"isMotionDetected"`
	MotionDetectedAt       *int64                   `json:"motionDetectedAt"`
	AlarmTriggeredAt       *int64                   `json:"alarmTriggeredAt"`
	LeakDetectedAt         *int64                   `json:"leakDetectedAt"`
	ExternalLeakDetectedAt *int64                   `json:"externalLeakDetectedAt"`
	TamperingDetectedAt    *int64                   `json:"tamperingDetectedAt"`
}

// SensorFromPayload builds a Sensor from a full API payload.
func SensorFromPayload(data json.RawMessage) (*Sensor, error) {
	var p sensorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == nil || *p.ID == "" {
		return nil, ErrMissingID
	}

	s := &Sensor{
		ID:        *p.ID,
		Name:      "Unknown Sensor",
		Model:     "Unknown",
		Type:      "sensor",
		State:     StateDisconnected,
		MountType: "none",
	}
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Model != nil {
		s.Model = *p.Model
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.MAC != nil {
		s.MAC = *p.MAC
	}
	if p.State != nil {
		s.State = *p.State
	}
	if p.IsConnected != nil {
		s.Connected = *p.IsConnected
	} else {
		s.Connected = connectedFromState(s.State)
	}
	if p.FirmwareVersion != nil {
		s.FirmwareVersion = *p.FirmwareVersion
	}
	if p.MountType != nil {
		s.MountType = *p.MountType
	}
	if p.BatteryStatus != nil {
		s.Battery = *p.BatteryStatus
	}
	if p.Stats != nil {
		s.Stats = *p.Stats
	}
	if p.LightSettings != nil {
		s.LightSettings = *p.LightSettings
	}
	if p.HumiditySettings != nil {
		s.HumiditySettings = *p.HumiditySettings
	}
	if p.TemperatureSettings != nil {
		s.TemperatureSettings = *p.TemperatureSettings
	}
	if p.MotionSettings != nil {
		s.MotionSettings = *p.MotionSettings
	}
	if p.AlarmSettings != nil {
		s.AlarmSettings = *p.AlarmSettings
	}
	if p.LeakSettings != nil {
		s.LeakSettings = *p.LeakSettings
	}
	if p.IsOpened != nil {
		s.Opened = *p.IsOpened
	}
	s.OpenStatusChangedAt = p.OpenStatusChangedAt
	if p.IsMotionDetected != nil {
		s.MotionDetected = *p.IsMotionDetected
	}
	s.MotionDetectedAt = p.MotionDetectedAt
	s.AlarmTriggeredAt = p.AlarmTriggeredAt
	s.LeakDetectedAt = p.LeakDetectedAt
	s.ExternalLeakDetectedAt = p.ExternalLeakDetectedAt
	s.TamperingDetectedAt = p.TamperingDetectedAt
	return s, nil
}

// DeviceID implements Device.
func (s *Sensor) DeviceID() string { return s.ID }

// Patch merges the fields present in a partial payload.
func (s *Sensor) Patch(data json.RawMessage) error {
	var p sensorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.State != nil {
		s.State = *p.State
		if p.IsConnected == nil {
			s.Connected = connectedFromState(s.State)
		}
	}
	if p.IsConnected != nil {
		s.Connected = *p.IsConnected
	}
	if p.FirmwareVersion != nil {
		s.FirmwareVersion = *p.FirmwareVersion
	}
	if p.MountType != nil {
		s.MountType = *p.MountType
	}
	if p.BatteryStatus != nil {
		s.Battery = *p.BatteryStatus
	}
	if p.Stats != nil {
		s.Stats = *p.Stats
	}
	if p.LightSettings != nil {
		s.LightSettings = *p.LightSettings
	}
	if p.HumiditySettings != nil {
		s.HumiditySettings = *p.HumiditySettings
	}
	if p.TemperatureSettings != nil {
		s.TemperatureSettings = *p.TemperatureSettings
	}
	if p.MotionSettings != nil {
		s.MotionSettings = *p.MotionSettings
	}
	if p.AlarmSettings != nil {
		s.AlarmSettings = *p.AlarmSettings
	}
	if p.LeakSettings != nil {
		s.LeakSettings = *p.LeakSettings
	}
	if p.IsOpened != nil {
		s.Opened = *p.IsOpened
	}
	if p.OpenStatusChangedAt != nil {
		s.OpenStatusChangedAt = p.OpenStatusChangedAt
	}
	if p.IsMotionDetected != nil {
		s.MotionDetected = *p.IsMotionDetected
	}
	if p.MotionDetectedAt != nil {
		s.MotionDetectedAt = p.MotionDetectedAt
	}
	if p.AlarmTriggeredAt != nil {
		s.AlarmTriggeredAt = p.AlarmTriggeredAt
	}
	if p.LeakDetectedAt != nil {
		s.LeakDetectedAt = p.LeakDetectedAt
	}
	if p.ExternalLeakDetectedAt != nil {
		s.ExternalLeakDetectedAt = p.ExternalLeakDetectedAt
	}
	if p.TamperingDetectedAt != nil {
		s.TamperingDetectedAt = p.TamperingDetectedAt
	}
	return nil
}

// BatteryLevel returns the battery percentage, or -1 when unknown.
func (s *Sensor) BatteryLevel() int {
	if s.Battery.Percentage == nil {
		return -1
	}
	return *s.Battery.Percentage
}
