package model

import "encoding/json"

// Light represents a Protect smart floodlight.
type Light struct {
	revision

	ID                string
	Name              string
	State             string
	Connected         bool
	Dark              bool
	LightOn           bool
	ForceEnabled      bool
	PIRMotionDetected bool
	LastMotion        *int64
	Camera            string

	// lightModeSettings
	Mode     string
	EnableAt string

	// lightDeviceSettings
	LEDLevel         int
	PIRDuration      int
	PIRSensitivity   int
	IndicatorEnabled bool
}

type lightPayload struct {
	ID                  *string `json:"id"`
	Name                *string `json:"name"`
	State               *string `json:"state"`
	IsConnected         *bool   `json:"isConnected"`
	IsDark              *bool   `json:"isDark"`
	IsLightOn           *bool   `json:"isLightOn"`
	IsLightForceEnabled *bool   `json:"isLightForceEnabled"`
	IsPIRMotionDetected *bool   `json:"isPirMotionDetected"`
	LastMotion          *int64  `json:"lastMotion"`
	Camera              *string `json:"camera"`
	LightModeSettings   *struct {
		Mode     *string `json:"mode"`
		EnableAt *string `json:"enableAt"`
	} `json:"lightModeSettings"`
	LightDeviceSettings *struct {
		LEDLevel           *int  `json:"ledLevel"`
		PIRDuration        *int  `json:"pirDuration"`
		PIRSensitivity     *int  `json:"pirSensitivity"`
		IsIndicatorEnabled *bool `json:"isIndicatorEnabled"`
	} `json:"lightDeviceSettings"`
}

// LightFromPayload builds a Light from a full API payload.
func LightFromPayload(data json.RawMessage) (*Light, error) {
	var p lightPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == nil || *p.ID == "" {
		return nil, ErrMissingID
	}

	l := &Light{
		ID:               *p.ID,
		State:            StateDisconnected,
		Mode:             "motion",
		EnableAt:         "dark",
		LEDLevel:         6,
		PIRDuration:      15000,
		PIRSensitivity:   50,
		IndicatorEnabled: true,
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.State != nil {
		l.State = *p.State
	}
	if p.IsConnected != nil {
		l.Connected = *p.IsConnected
	} else {
		l.Connected = connectedFromState(l.State)
	}
	if p.IsDark != nil {
		l.Dark = *p.IsDark
	}
	if p.IsLightOn != nil {
		l.LightOn = *p.IsLightOn
	}
	if p.IsLightForceEnabled != nil {
		l.ForceEnabled = *p.IsLightForceEnabled
	}
	if p.IsPIRMotionDetected != nil {
		l.PIRMotionDetected = *p.IsPIRMotionDetected
	}
	l.LastMotion = p.LastMotion
	if p.Camera != nil {
		l.Camera = *p.Camera
	}
	if m := p.LightModeSettings; m != nil {
		if m.Mode != nil {
			l.Mode = *m.Mode
		}
		if m.EnableAt != nil {
			l.EnableAt = *m.EnableAt
		}
	}
	if d := p.LightDeviceSettings; d != nil {
		if d.LEDLevel != nil {
			l.LEDLevel = *d.LEDLevel
		}
		if d.PIRDuration != nil {
			l.PIRDuration = *d.PIRDuration
		}
		if d.PIRSensitivity != nil {
			l.PIRSensitivity = *d.PIRSensitivity
		}
		if d.IsIndicatorEnabled != nil {
			l.IndicatorEnabled = *d.IsIndicatorEnabled
		}
	}
	return l, nil
}

// DeviceID implements Device.
func (l *Light) DeviceID() string { return l.ID }

// Patch merges the fields present in a partial payload. Nested settings
// objects are merged field by field, not replaced.
func (l *Light) Patch(data json.RawMessage) error {
	var p lightPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.State != nil {
		l.State = *p.State
		if p.IsConnected == nil {
			l.Connected = connectedFromState(l.State)
		}
	}
	if p.IsConnected != nil {
		l.Connected = *p.IsConnected
	}
	if p.IsDark != nil {
		l.Dark = *p.IsDark
	}
	if p.IsLightOn != nil {
		l.LightOn = *p.IsLightOn
	}
	if p.IsLightForceEnabled != nil {
		l.ForceEnabled = *p.IsLightForceEnabled
	}
	if p.IsPIRMotionDetected != nil {
		l.PIRMotionDetected = *p.IsPIRMotionDetected
	}
	if p.LastMotion != nil {
		l.LastMotion = p.LastMotion
	}
	if p.Camera != nil {
		l.Camera = *p.Camera
	}
	if m := p.LightModeSettings; m != nil {
		if m.Mode != nil {
			l.Mode = *m.Mode
		}
		if m.EnableAt != nil {
			l.EnableAt = *m.EnableAt
		}
	}
	if d := p.LightDeviceSettings; d != nil {
		if d.LEDLevel != nil {
			l.LEDLevel = *d.LEDLevel
		}
		if d.PIRDuration != nil {
			l.PIRDuration = *d.PIRDuration
		}
		if d.PIRSensitivity != nil {
			l.PIRSensitivity = *d.PIRSensitivity
		}
		if d.IsIndicatorEnabled != nil {
			l.IndicatorEnabled = *d.IsIndicatorEnabled
		}
	}
	return nil
}

// BrightnessPercent converts the 1-6 LED level to a 0-100 percentage.
func (l *Light) BrightnessPercent() int {
	return int(float64(l.LEDLevel) / 6 * 100)
}
