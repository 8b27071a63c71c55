// Package model holds the in-memory representations of UniFi Protect
// devices. Each model is constructed once from a full API payload and then
// patched in place with partial payloads: a field absent from a patch is
// never changed, and a field absent from a full payload falls back to a
// default so no attribute is ever left undefined.
package model

import (
	"encoding/json"
	"errors"
)

// ErrMissingID is returned when a payload that must identify a device
// carries no id.
var ErrMissingID = errors.New("payload missing device id")

// Device state strings reported by the Protect integration API.
const (
	StateConnected    = "CONNECTED"
	StateConnecting   = "CONNECTING"
	StateDisconnected = "DISCONNECTED"
)

// Device is the common surface the coordinator needs from every tracked
// entity: identity, patch-merge, and a revision stamp used to order
// poll-driven writes against push-driven ones.
type Device interface {
	// DeviceID returns the entity's unique id. It never changes after
	// construction, regardless of how many patches are applied.
	DeviceID() string

	// Patch merges the fields present in a partial payload into the
	// entity. Fields absent from the payload are left untouched.
	Patch(data json.RawMessage) error

	// Revision returns the stamp set at the entity's last mutation.
	Revision() int64

	// SetRevision records a new mutation stamp.
	SetRevision(rev int64)
}

// connectedFromState reports whether a state string counts as connected
// for availability purposes. CONNECTING is treated as connected so a
// device does not flap to unavailable during a firmware reboot.
func connectedFromState(state string) bool {
	return state == StateConnected || state == StateConnecting
}

// revision implements the Revision half of Device and is embedded by
// every model. The stamp is owned by the coordinator, never the payload.
type revision struct {
	rev int64
}

func (r *revision) Revision() int64        { return r.rev }
func (r *revision) SetRevision(rev int64)  { r.rev = rev }
