package model

import "encoding/json"

// StorageStats reports NVR disk usage in bytes.
type StorageStats struct {
	Available int64 `json:"available"`
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
}

// NVR represents the Protect console. There is exactly one per
// connection; it is created from the first bootstrap and patched in place
// afterwards.
type NVR struct {
	revision

	ID               string
	Name             string
	Version          string
	Model            string
	MAC              string
	Host             string
	Recording        bool
	Storage          StorageStats
	DoorbellSettings map[string]any
}

type nvrPayload struct {
	ID               *string        `json:"id"`
	Name             *string        `json:"name"`
	Version          *string        `json:"version"`
	Model            *string        `json:"model"`
	MAC              *string        `json:"mac"`
	Host             *string        `json:"host"`
	IsRecording      *bool          `json:"isRecording"`
	StorageStats     *StorageStats  `json:"storageStats"`
	DoorbellSettings map[string]any `json:"doorbellSettings"`
}

// NVRFromPayload builds the NVR from an API payload. Unlike the device
// models the NVR payload may omit the id (the meta/info endpoint does), so
// no id check is made.
func NVRFromPayload(data json.RawMessage) (*NVR, error) {
	var p nvrPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	n := &NVR{Name: "UniFi Protect"}
	if p.ID != nil {
		n.ID = *p.ID
	}
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Version != nil {
		n.Version = *p.Version
	}
	if p.Model != nil {
		n.Model = *p.Model
	}
	if p.MAC != nil {
		n.MAC = *p.MAC
	}
	if p.Host != nil {
		n.Host = *p.Host
	}
	if p.IsRecording != nil {
		n.Recording = *p.IsRecording
	}
	if p.StorageStats != nil {
		n.Storage = *p.StorageStats
	}
	n.DoorbellSettings = p.DoorbellSettings
	return n, nil
}

// DeviceID implements Device.
func (n *NVR) DeviceID() string { return n.ID }

// Patch merges the fields present in a partial payload.
func (n *NVR) Patch(data json.RawMessage) error {
	var p nvrPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Version != nil {
		n.Version = *p.Version
	}
	if p.Model != nil {
		n.Model = *p.Model
	}
	if p.Host != nil {
		n.Host = *p.Host
	}
	if p.IsRecording != nil {
		n.Recording = *p.IsRecording
	}
	if p.StorageStats != nil {
		n.Storage = *p.StorageStats
	}
	if p.DoorbellSettings != nil {
		n.DoorbellSettings = p.DoorbellSettings
	}
	return nil
}

// StorageUsedPercent returns disk usage as a percentage, 0 when the total
// is unknown.
func (n *NVR) StorageUsedPercent() float64 {
	if n.Storage.Total <= 0 {
		return 0
	}
	return float64(n.Storage.Used) / float64(n.Storage.Total) * 100
}
