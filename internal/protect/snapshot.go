package protect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	snapshotAttempts    = 3
	snapshotBackoffBase = 500 * time.Millisecond
	snapshotTimeout     = 10 * time.Second
	snapshotMinSize     = 100
)

// FetchSnapshot returns the latest JPEG snapshot for a camera. Results
// are cached for a short window so rapid consumers (thumbnail refresh,
// entity previews) do not hammer the console; force bypasses the cache.
// A definitive 404 returns nil bytes without an error; transient failures
// are retried with exponential backoff before giving up.
func (c *Client) FetchSnapshot(ctx context.Context, cameraID string, force bool) ([]byte, error) {
	key := "snapshot:" + cameraID
	if !force {
		if cached, ok := c.snapshots.Get(key); ok {
			return cached.([]byte), nil
		}
	}

	path := apiPrefix + "/cameras/" + cameraID + "/snapshot"
	delay := snapshotBackoffBase
	var lastErr error
	for attempt := 1; attempt <= snapshotAttempts; attempt++ {
		if attempt > 1 {
			c.clock.Sleep(delay)
			delay *= 2
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: snapshot %s: %v", ErrConn, cameraID, ctx.Err())
		}

		attemptCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
		resp, err := c.http.R().SetContext(attemptCtx).Get(path)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("%w: snapshot %s: %v", ErrConn, cameraID, err)
			continue
		}

		status := resp.StatusCode()
		switch {
		case status == http.StatusNotFound:
			// Definitive: this camera has no snapshot to give.
			return nil, nil
		case retryableStatus(status):
			lastErr = classifyStatus(status, http.MethodGet, path)
			continue
		case status < 200 || status >= 300:
			return nil, classifyStatus(status, http.MethodGet, path)
		}

		body := resp.Body()
		if len(body) < snapshotMinSize {
			// Almost certainly a truncated or placeholder image.
			lastErr = fmt.Errorf("%w: suspect snapshot of %d bytes for camera %s", ErrAPI, len(body), cameraID)
			continue
		}

		buf := append([]byte(nil), body...)
		c.snapshots.Set(key, buf, c.snapshotTTL)
		return buf, nil
	}

	c.logger.Warn("Snapshot fetch exhausted retries",
		zap.String("camera_id", cameraID),
		zap.Error(lastErr))
	return nil, lastErr
}

// StreamURL returns an RTSPS stream URL for the camera, provisioning one
// when none exists. URLs are cached for 30 minutes; candidates are picked
// in quality priority order (package first, low last).
func (c *Client) StreamURL(ctx context.Context, cameraID string) (string, error) {
	key := "stream:" + cameraID
	if cached, ok := c.streamURLs.Get(key); ok {
		return cached.(string), nil
	}

	existing, err := c.Streams(ctx, cameraID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if url := pickStream(existing); url != "" {
		c.streamURLs.Set(key, url, c.streamTTL)
		return url, nil
	}

	created, err := c.CreateStreams(ctx, cameraID, streamQualities)
	if err != nil {
		return "", err
	}
	for _, q := range streamQualities {
		if url := created[q]; url != "" {
			c.streamURLs.Set(key, url, c.streamTTL)
			return url, nil
		}
	}
	return "", fmt.Errorf("%w: no usable stream for camera %s", ErrAPI, cameraID)
}

func pickStream(streams map[string]*string) string {
	for _, q := range streamQualities {
		if url, ok := streams[q]; ok && url != nil && *url != "" {
			return *url
		}
	}
	return ""
}
