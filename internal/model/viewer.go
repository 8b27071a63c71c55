package model

import "encoding/json"

// Viewer represents a Protect Viewport display device.
type Viewer struct {
	revision

	ID          string
	Name        string
	State       string
	Connected   bool
	Liveview    string
	StreamLimit int
}

type viewerPayload struct {
	ID          *string `json:"id"`
	Name        *string `json:"name"`
	State       *string `json:"state"`
	IsConnected *bool   `json:"isConnected"`
	Liveview    *string `json:"liveview"`
	StreamLimit *int    `json:"streamLimit"`
}

// ViewerFromPayload builds a Viewer from a full API payload.
func ViewerFromPayload(data json.RawMessage) (*Viewer, error) {
	var p viewerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == nil || *p.ID == "" {
		return nil, ErrMissingID
	}

	v := &Viewer{
		ID:    *p.ID,
		State: StateDisconnected,
	}
	if p.Name != nil {
		v.Name = *p.Name
	}
	if p.State != nil {
		v.State = *p.State
	}
	if p.IsConnected != nil {
		v.Connected = *p.IsConnected
	} else {
		v.Connected = connectedFromState(v.State)
	}
	if p.Liveview != nil {
		v.Liveview = *p.Liveview
	}
	if p.StreamLimit != nil {
		v.StreamLimit = *p.StreamLimit
	}
	return v, nil
}

// DeviceID implements Device.
func (v *Viewer) DeviceID() string { return v.ID }

// Patch merges the fields present in a partial payload.
func (v *Viewer) Patch(data json.RawMessage) error {
	var p viewerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if p.Name != nil {
		v.Name = *p.Name
	}
	if p.State != nil {
		v.State = *p.State
		if p.IsConnected == nil {
			v.Connected = connectedFromState(v.State)
		}
	}
	if p.IsConnected != nil {
		v.Connected = *p.IsConnected
	}
	if p.Liveview != nil {
		v.Liveview = *p.Liveview
	}
	if p.StreamLimit != nil {
		v.StreamLimit = *p.StreamLimit
	}
	return nil
}
