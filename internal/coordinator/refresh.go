package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"protectsync/internal/model"
	"protectsync/internal/protect"
)

// bootstrapPayload is the slice of the bootstrap response the refresh
// consumes: the authoritative camera and sensor lists plus the embedded
// console record.
type bootstrapPayload struct {
	Cameras []json.RawMessage `json:"cameras"`
	Sensors []json.RawMessage `json:"sensors"`
	NVR     json.RawMessage   `json:"nvr"`
}

// refresh performs one full reconciliation: bootstrap fetch, auxiliary
// category fetches, then a locked apply pass. A bootstrap failure aborts
// the refresh; an auxiliary failure only skips its own category.
func (c *Coordinator) refresh(ctx context.Context) error {
	startRev := c.seq.Load()

	raw, err := c.api.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap fetch: %w", err)
	}
	var boot bootstrapPayload
	if err := json.Unmarshal(raw, &boot); err != nil {
		return fmt.Errorf("%w: decoding bootstrap: %v", protect.ErrAPI, err)
	}

	aux := c.fetchAuxiliary(ctx)
	nvrRaw := c.fetchNVR(ctx, boot.NVR)

	c.mu.Lock()
	reconcile(c.cameras, boot.Cameras, model.CameraFromPayload, startRev, c.nextRev, c.logger, protect.ModelKeyCamera)
	reconcile(c.sensors, boot.Sensors, model.SensorFromPayload, startRev, c.nextRev, c.logger, protect.ModelKeySensor)
	if items, ok := aux[protect.ModelKeyViewer]; ok {
		reconcile(c.viewers, items, model.ViewerFromPayload, startRev, c.nextRev, c.logger, protect.ModelKeyViewer)
	}
	if items, ok := aux[protect.ModelKeyLiveview]; ok {
		reconcile(c.liveviews, items, model.LiveviewFromPayload, startRev, c.nextRev, c.logger, protect.ModelKeyLiveview)
	}
	if items, ok := aux[protect.ModelKeyLight]; ok {
		reconcile(c.lights, items, model.LightFromPayload, startRev, c.nextRev, c.logger, protect.ModelKeyLight)
	}
	if items, ok := aux[protect.ModelKeyChime]; ok {
		reconcile(c.chimes, items, model.ChimeFromPayload, startRev, c.nextRev, c.logger, protect.ModelKeyChime)
	}
	c.applyNVR(nvrRaw, startRev)
	c.lastSync = c.clock.Now()
	c.stale = false
	c.mu.Unlock()

	c.broadcast()
	return nil
}

// fetchAuxiliary fetches the categories served outside the bootstrap.
// Each failed category is logged and omitted from the result; presence
// in the returned map means that category's list is authoritative for
// this refresh. Short pauses between requests keep the console's rate
// limiter quiet.
func (c *Coordinator) fetchAuxiliary(ctx context.Context) map[string][]json.RawMessage {
	fetches := []struct {
		key   string
		fetch func(context.Context) (json.RawMessage, error)
	}{
		{protect.ModelKeyViewer, c.api.Viewers},
		{protect.ModelKeyLiveview, c.api.Liveviews},
		{protect.ModelKeyLight, c.api.Lights},
		{protect.ModelKeyChime, c.api.Chimes},
	}

	out := make(map[string][]json.RawMessage, len(fetches))
	var errs error
	for i, f := range fetches {
		if i > 0 && c.auxDelay > 0 {
			c.clock.Sleep(c.auxDelay)
		}
		raw, err := f.fetch(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", f.key, err))
			continue
		}
		var items []json.RawMessage
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &items); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: decoding list: %w", f.key, err))
				continue
			}
		}
		out[f.key] = items
	}
	if errs != nil {
		c.logger.Warn("auxiliary fetch incomplete", zap.Error(errs))
	}
	return out
}

// fetchNVR resolves the console record: the v1 endpoint when the
// firmware has it, the version metadata endpoint when it does not, and
// the bootstrap's embedded record as the last resort.
func (c *Coordinator) fetchNVR(ctx context.Context, fallback json.RawMessage) json.RawMessage {
	raw, err := c.api.NVR(ctx)
	if err == nil {
		return raw
	}
	if errors.Is(err, protect.ErrNotFound) {
		if info, infoErr := c.api.ApplicationInfo(ctx); infoErr == nil {
			return info
		}
	}
	c.logger.Warn("nvr fetch failed", zap.Error(err))
	return fallback
}

// applyNVR creates the console singleton on first sight and patches it
// in place afterwards. Called with c.mu held.
func (c *Coordinator) applyNVR(raw json.RawMessage, startRev int64) {
	if len(raw) == 0 {
		return
	}
	if c.nvr == nil {
		n, err := model.NVRFromPayload(raw)
		if err != nil {
			c.logger.Warn("dropping undecodable nvr payload", zap.Error(err))
			return
		}
		if n.Host == "" {
			n.Host = c.api.Host()
		}
		n.SetRevision(c.nextRev())
		c.nvr = n
		return
	}
	if c.nvr.Revision() > startRev {
		return
	}
	if err := c.nvr.Patch(raw); err != nil {
		c.logger.Warn("dropping undecodable nvr payload", zap.Error(err))
		return
	}
	c.nvr.SetRevision(c.nextRev())
}

// reconcile applies one category's authoritative list to its map: patch
// tracked entities, insert new ones, and remove everything absent from
// the list. Entities stamped after startRev were written by a push
// mid-poll and are left alone so the older poll data cannot clobber
// them.
func reconcile[D model.Device](
	m map[string]D,
	payloads []json.RawMessage,
	build func(json.RawMessage) (D, error),
	startRev int64,
	nextRev func() int64,
	logger *zap.Logger,
	kind string,
) {
	incoming := make(map[string]struct{}, len(payloads))
	for _, raw := range payloads {
		id, err := payloadID(raw)
		if err != nil {
			logger.Warn("dropping payload without id", zap.String("model", kind), zap.Error(err))
			continue
		}
		incoming[id] = struct{}{}

		if existing, ok := m[id]; ok {
			if existing.Revision() > startRev {
				continue
			}
			if err := existing.Patch(raw); err != nil {
				logger.Warn("dropping undecodable patch",
					zap.String("model", kind), zap.String("id", id), zap.Error(err))
				continue
			}
			existing.SetRevision(nextRev())
			continue
		}

		d, err := build(raw)
		if err != nil {
			logger.Warn("dropping undecodable payload",
				zap.String("model", kind), zap.String("id", id), zap.Error(err))
			continue
		}
		d.SetRevision(nextRev())
		m[id] = d
	}

	for id, d := range m {
		if _, ok := incoming[id]; ok {
			continue
		}
		if d.Revision() > startRev {
			continue
		}
		delete(m, id)
		logger.Debug("device removed by refresh", zap.String("model", kind), zap.String("id", id))
	}
}

// payloadID peeks the id field of a raw device payload.
func payloadID(raw json.RawMessage) (string, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", model.ErrMissingID
	}
	return p.ID, nil
}
