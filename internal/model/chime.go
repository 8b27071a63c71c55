package model

import "encoding/json"

// RingSetting is a per-camera ringtone configuration on a chime.
type RingSetting struct {
	CameraID    string `json:"cameraId"`
	RepeatTimes int    `json:"repeatTimes"`
	RingtoneID  string `json:"ringtoneId"`
	Volume      int    `json:"volume"`
}

// Chime represents a Protect wireless doorbell chime.
type Chime struct {
	revision

	ID           string
	Name         string
	State        string
	Connected    bool
	CameraIDs    []string
	RingSettings []RingSetting
	LastRing     *int64
}

type chimePayload struct {
	ID           *string       `json:"id"`
	Name         *string       `json:"name"`
	State        *string       `json:"state"`
	IsConnected  *bool         `json:"isConnected"`
	CameraIDs    []string      `json:"cameraIds"`
	RingSettings []RingSetting `json:"ringSettings"`
	LastRing     *int64        `json:"lastRing"`
}

// ChimeFromPayload builds a Chime from a full API payload.
func ChimeFromPayload(data json.RawMessage) (*Chime, error) {
	var p chimePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == nil || *p.ID == "" {
		return nil, ErrMissingID
	}

	c := &Chime{
		ID:    *p.ID,
		State: StateDisconnected,
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.State != nil {
		c.State = *p.State
	}
	if p.IsConnected != nil {
		c.Connected = *p.IsConnected
	} else {
		c.Connected = connectedFromState(c.State)
	}
	if p.CameraIDs != nil {
		c.CameraIDs = p.CameraIDs
	}
	if p.RingSettings != nil {
		c.RingSettings = p.RingSettings
	}
	c.LastRing = p.LastRing
	return c, nil
}

// DeviceID implements Device.
func (c *Chime) DeviceID() string { return c.ID }

// Patch merges the fields present in a partial payload.
func (c *Chime) Patch(data json.RawMessage) error {
	var p chimePayload
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
	if p.CameraIDs != nil {
		c.CameraIDs = p.CameraIDs
	}
	if p.RingSettings != nil {
		c.RingSettings = p.RingSettings
	}
	if p.LastRing != nil {
		c.LastRing = p.LastRing
	}
	return nil
}

// RingSettingFor returns the ring configuration for the given paired
// camera, or nil when none exists.
func (c *Chime) RingSettingFor(cameraID string) *RingSetting {
	for i := range c.RingSettings {
		if c.RingSettings[i].CameraID == cameraID {
			return &c.RingSettings[i]
		}
	}
	return nil
}
