package protect

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protectsync/internal/clock"
)

const snapshotURL = "https://protect.local" + apiPrefix + "/cameras/c1/snapshot"

// fakeImage is comfortably above the suspect-size threshold.
var fakeImage = bytes.Repeat([]byte{0xff}, 4096)

func newSnapshotClient(t *testing.T) *Client {
	client := newTestClient(t)
	// MockClock makes the retry backoff instantaneous.
	client.clock = clock.NewMockClock(time.Now())
	return client
}

func TestFetchSnapshot_CachesWithinTTL(t *testing.T) {
	client := newSnapshotClient(t)
	httpmock.RegisterResponder(http.MethodGet, snapshotURL,
		httpmock.NewBytesResponder(http.StatusOK, fakeImage))

	ctx := context.Background()
	first, err := client.FetchSnapshot(ctx, "c1", false)
	require.NoError(t, err)
	assert.Equal(t, fakeImage, first)

	second, err := client.FetchSnapshot(ctx, "c1", false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "second fetch within TTL must be served from cache")
}

func TestFetchSnapshot_ForceBypassesCache(t *testing.T) {
	client := newSnapshotClient(t)
	httpmock.RegisterResponder(http.MethodGet, snapshotURL,
		httpmock.NewBytesResponder(http.StatusOK, fakeImage))

	ctx := context.Background()
	_, err := client.FetchSnapshot(ctx, "c1", false)
	require.NoError(t, err)
	_, err = client.FetchSnapshot(ctx, "c1", true)
	require.NoError(t, err)

	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestFetchSnapshot_ExpiredEntryRefetches(t *testing.T) {
	client := newSnapshotClient(t)
	client.snapshotTTL = 10 * time.Millisecond
	httpmock.RegisterResponder(http.MethodGet, snapshotURL,
		httpmock.NewBytesResponder(http.StatusOK, fakeImage))

	ctx := context.Background()
	_, err := client.FetchSnapshot(ctx, "c1", false)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = client.FetchSnapshot(ctx, "c1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestFetchSnapshot_RetriesTransientFailures(t *testing.T) {
	client := newSnapshotClient(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, snapshotURL,
		func(*http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(http.StatusServiceUnavailable, ""), nil
			}
			return httpmock.NewBytesResponse(http.StatusOK, fakeImage), nil
		})

	data, err := client.FetchSnapshot(context.Background(), "c1", false)
	require.NoError(t, err)
	assert.Equal(t, fakeImage, data)
	assert.Equal(t, 3, calls)
}

func TestFetchSnapshot_ExhaustedRetriesReturnLastError(t *testing.T) {
	client := newSnapshotClient(t)
	httpmock.RegisterResponder(http.MethodGet, snapshotURL,
		httpmock.NewStringResponder(http.StatusTooManyRequests, ""))

	data, err := client.FetchSnapshot(context.Background(), "c1", false)
	assert.Nil(t, data)
	assert.ErrorIs(t, err, ErrConn)
	assert.Equal(t, snapshotAttempts, httpmock.GetTotalCallCount())
}

func TestFetchSnapshot_NotFoundReturnsNilNil(t *testing.T) {
	client := newSnapshotClient(t)
	httpmock.RegisterResponder(http.MethodGet, snapshotURL,
		httpmock.NewStringResponder(http.StatusNotFound, ""))

	data, err := client.FetchSnapshot(context.Background(), "c1", false)
	assert.Nil(t, data)
	assert.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "404 is definitive, no retry")
}

func TestFetchSnapshot_SuspectSizeRetries(t *testing.T) {
	client := newSnapshotClient(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, snapshotURL,
		func(*http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewBytesResponse(http.StatusOK, []byte("tiny")), nil
			}
			return httpmock.NewBytesResponse(http.StatusOK, fakeImage), nil
		})

	data, err := client.FetchSnapshot(context.Background(), "c1", false)
	require.NoError(t, err)
	assert.Equal(t, fakeImage, data)
	assert.Equal(t, 2, calls)
}

func TestFetchSnapshot_AuthFailureDoesNotRetry(t *testing.T) {
	client := newSnapshotClient(t)
	httpmock.RegisterResponder(http.MethodGet, snapshotURL,
		httpmock.NewStringResponder(http.StatusUnauthorized, ""))

	_, err := client.FetchSnapshot(context.Background(), "c1", false)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestStreamURL_PrefersExistingByPriority(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet,
		"https://protect.local"+apiPrefix+"/cameras/c1/rtsps-stream",
		httpmock.NewStringResponder(http.StatusOK,
			`{"low":"rtsps://host/low","high":"rtsps://host/high","package":null}`))

	url, err := client.StreamURL(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "rtsps://host/high", url)
}

func TestStreamURL_ProvisionsWhenNoneExist(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet,
		"https://protect.local"+apiPrefix+"/cameras/c1/rtsps-stream",
		httpmock.NewStringResponder(http.StatusOK, `{}`))
	httpmock.RegisterResponder(http.MethodPost,
		"https://protect.local"+apiPrefix+"/cameras/c1/rtsps-stream",
		httpmock.NewStringResponder(http.StatusOK, `{"high":"rtsps://host/new"}`))

	url, err := client.StreamURL(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "rtsps://host/new", url)
}

func TestStreamURL_CachesResult(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet,
		"https://protect.local"+apiPrefix+"/cameras/c1/rtsps-stream",
		httpmock.NewStringResponder(http.StatusOK, `{"high":"rtsps://host/high"}`))

	ctx := context.Background()
	_, err := client.StreamURL(ctx, "c1")
	require.NoError(t, err)
	url, err := client.StreamURL(ctx, "c1")
	require.NoError(t, err)

	assert.Equal(t, "rtsps://host/high", url)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}
