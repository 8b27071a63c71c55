package model

import "encoding/json"

// LiveviewSlot is one display slot in a liveview layout: the cameras it
// cycles through and how.
type LiveviewSlot struct {
	Cameras       []string `json:"cameras"`
	CycleMode     string   `json:"cycleMode"`
	CycleInterval int      `json:"cycleInterval"`
}

// Liveview represents a Protect liveview layout configuration.
type Liveview struct {
	revision

	ID      string
	Name    string
	Default bool
	Global  bool
	Owner   string
	Layout  int
	Slots   []LiveviewSlot
}

type liveviewPayload struct {
	ID        *string `json:"id"`
	Name      *string `json:"name"`
	IsDefault *bool   `json:"isDefault"`
	IsGlobal  *bool   `json:"isGlobal"`
	Owner     *string `json:"owner"`
	Layout    *int    `json:"layout"`
	Slots     []struct {
		Cameras       []string `json:"cameras"`
		CycleMode     *string  `json:"cycleMode"`
		CycleInterval *int     `json:"cycleInterval"`
	} `json:"slots"`
}

func (p *liveviewPayload) buildSlots() []LiveviewSlot {
	slots := make([]LiveviewSlot, 0, len(p.Slots))
	for _, s := range p.Slots {
		slot := LiveviewSlot{
			Cameras:       s.Cameras,
			CycleMode:     "time",
			CycleInterval: 30,
		}
		if s.CycleMode != nil {
			slot.CycleMode = *s.CycleMode
		}
		if s.CycleInterval != nil {
			slot.CycleInterval = *s.CycleInterval
		}
		slots = append(slots, slot)
	}
	return slots
}

// LiveviewFromPayload builds a Liveview from a full API payload.
func LiveviewFromPayload(data json.RawMessage) (*Liveview, error) {
	var p liveviewPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == nil || *p.ID == "" {
		return nil, ErrMissingID
	}

	l := &Liveview{
		ID:     *p.ID,
		Layout: 1,
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.IsDefault != nil {
		l.Default = *p.IsDefault
	}
	if p.IsGlobal != nil {
		l.Global = *p.IsGlobal
	}
	if p.Owner != nil {
		l.Owner = *p.Owner
	}
	if p.Layout != nil {
		l.Layout = *p.Layout
	}
	if p.Slots != nil {
		l.Slots = p.buildSlots()
	}
	return l, nil
}

// DeviceID implements Device.
func (l *Liveview) DeviceID() string { return l.ID }

// Patch merges the fields present in a partial payload. The slot list is
// replaced wholesale when present since slots carry no identity.
func (l *Liveview) Patch(data json.RawMessage) error {
	var p liveviewPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.IsDefault != nil {
		l.Default = *p.IsDefault
	}
	if p.IsGlobal != nil {
		l.Global = *p.IsGlobal
	}
	if p.Owner != nil {
		l.Owner = *p.Owner
	}
	if p.Layout != nil {
		l.Layout = *p.Layout
	}
	if p.Slots != nil {
		l.Slots = p.buildSlots()
	}
	return nil
}

// CameraCount returns the total number of camera assignments across all
// slots.
func (l *Liveview) CameraCount() int {
	n := 0
	for _, slot := range l.Slots {
		n += len(slot.Cameras)
	}
	return n
}
