package coordinator

import (
	"encoding/json"

	"go.uber.org/zap"

	"protectsync/internal/model"
	"protectsync/internal/protect"
)

// handleDeviceUpdate applies one device-channel message and, when it
// changed anything, broadcasts the new snapshot. Registered with the
// transport before the channels open, so every frame flows through here
// in arrival order.
func (c *Coordinator) handleDeviceUpdate(msg protect.DeviceUpdate) {
	c.mu.Lock()
	changed := c.applyDeviceUpdate(msg)
	c.mu.Unlock()

	if changed {
		c.broadcast()
	}
}

// applyDeviceUpdate mutates the target map. Called with c.mu held.
func (c *Coordinator) applyDeviceUpdate(msg protect.DeviceUpdate) bool {
	if msg.Action == protect.ActionRemove {
		return c.applyRemove(msg)
	}

	switch msg.ModelKey {
	case protect.ModelKeyCamera:
		return upsert(c.cameras, msg.Data, model.CameraFromPayload, c.nextRev, c.logger, msg.ModelKey)
	case protect.ModelKeySensor:
		return upsert(c.sensors, msg.Data, model.SensorFromPayload, c.nextRev, c.logger, msg.ModelKey)
	case protect.ModelKeyLight:
		return upsert(c.lights, msg.Data, model.LightFromPayload, c.nextRev, c.logger, msg.ModelKey)
	case protect.ModelKeyChime:
		return upsert(c.chimes, msg.Data, model.ChimeFromPayload, c.nextRev, c.logger, msg.ModelKey)
	case protect.ModelKeyViewer:
		return upsert(c.viewers, msg.Data, model.ViewerFromPayload, c.nextRev, c.logger, msg.ModelKey)
	case protect.ModelKeyLiveview:
		return upsert(c.liveviews, msg.Data, model.LiveviewFromPayload, c.nextRev, c.logger, msg.ModelKey)
	case protect.ModelKeyNVR:
		c.applyNVR(msg.Data, c.seq.Load())
		return c.nvr != nil
	default:
		c.logger.Debug("ignoring update for unknown model", zap.String("model", msg.ModelKey))
		return false
	}
}

func (c *Coordinator) applyRemove(msg protect.DeviceUpdate) bool {
	switch msg.ModelKey {
	case protect.ModelKeyCamera:
		return removeByID(c.cameras, msg.Data)
	case protect.ModelKeySensor:
		return removeByID(c.sensors, msg.Data)
	case protect.ModelKeyLight:
		return removeByID(c.lights, msg.Data)
	case protect.ModelKeyChime:
		return removeByID(c.chimes, msg.Data)
	case protect.ModelKeyViewer:
		return removeByID(c.viewers, msg.Data)
	case protect.ModelKeyLiveview:
		return removeByID(c.liveviews, msg.Data)
	default:
		return false
	}
}

// upsert patches a tracked entity or inserts a new one. The console
// reuses its "add" frame for in-place changes, so an unknown id on an
// update is a create, not an error.
func upsert[D model.Device](
	m map[string]D,
	data json.RawMessage,
	build func(json.RawMessage) (D, error),
	nextRev func() int64,
	logger *zap.Logger,
	kind string,
) bool {
	id, err := payloadID(data)
	if err != nil {
		logger.Debug("dropping update without id", zap.String("model", kind), zap.Error(err))
		return false
	}

	if existing, ok := m[id]; ok {
		if err := existing.Patch(data); err != nil {
			logger.Warn("dropping undecodable patch",
				zap.String("model", kind), zap.String("id", id), zap.Error(err))
			return false
		}
		existing.SetRevision(nextRev())
		return true
	}

	d, err := build(data)
	if err != nil {
		logger.Warn("dropping undecodable payload",
			zap.String("model", kind), zap.String("id", id), zap.Error(err))
		return false
	}
	d.SetRevision(nextRev())
	m[id] = d
	return true
}

// removeByID deletes by payload id; an unknown id is a no-op.
func removeByID[D model.Device](m map[string]D, data json.RawMessage) bool {
	id, err := payloadID(data)
	if err != nil {
		return false
	}
	if _, ok := m[id]; !ok {
		return false
	}
	delete(m, id)
	return true
}

// handleEvent mutates the transient fields an event describes (last
// motion, last ring, detection flags) without going through the
// patch-merge path, then broadcasts.
func (c *Coordinator) handleEvent(ev protect.Event) {
	c.mu.Lock()
	changed := c.applyEvent(ev)
	c.mu.Unlock()

	if changed {
		c.broadcast()
	}
}

func (c *Coordinator) applyEvent(ev protect.Event) bool {
	switch ev.Type {
	case protect.EventTypeRing:
		return c.applyRing(ev)
	case protect.EventTypeMotion, protect.EventTypeSmartDetectZone, protect.EventTypeSmartDetectLine:
		return c.applyMotion(ev)
	case protect.EventTypeLightMotion:
		return c.applyLightMotion(ev)
	default:
		c.logger.Debug("ignoring event of unknown type", zap.String("type", ev.Type))
		return false
	}
}

func (c *Coordinator) applyRing(ev protect.Event) bool {
	at := c.eventStamp(ev)
	if cam, ok := c.cameras[ev.Device]; ok {
		cam.LastRing = &at
		cam.SetRevision(c.nextRev())
		return true
	}
	if ch, ok := c.chimes[ev.Device]; ok {
		ch.LastRing = &at
		ch.SetRevision(c.nextRev())
		return true
	}
	return false
}

func (c *Coordinator) applyMotion(ev protect.Event) bool {
	if cam, ok := c.cameras[ev.Device]; ok {
		cam.MotionDetected = ev.Ongoing()
		if ev.Start != nil {
			cam.LastMotion = ev.Start
		}
		cam.SetRevision(c.nextRev())
		return true
	}
	if s, ok := c.sensors[ev.Device]; ok {
		s.MotionDetected = ev.Ongoing()
		if ev.Start != nil {
			s.MotionDetectedAt = ev.Start
		}
		s.SetRevision(c.nextRev())
		return true
	}
	return false
}

func (c *Coordinator) applyLightMotion(ev protect.Event) bool {
	l, ok := c.lights[ev.Device]
	if !ok {
		return false
	}
	l.PIRMotionDetected = ev.Ongoing()
	if ev.Start != nil {
		l.LastMotion = ev.Start
	}
	l.SetRevision(c.nextRev())
	return true
}

// eventStamp picks the event's start time, falling back to the clock
// when the frame carries none.
func (c *Coordinator) eventStamp(ev protect.Event) int64 {
	if ev.Start != nil {
		return *ev.Start
	}
	return c.clock.Now().UnixMilli()
}
