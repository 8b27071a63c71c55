package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"protectsync/internal/clock"
	"protectsync/internal/protect"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// seedMock returns a MockAPI with one device in every category.
func seedMock() *protect.MockAPI {
	api := protect.NewMockAPI()
	api.Payloads["bootstrap"] = json.RawMessage(`{
		"cameras":[{"id":"c1","name":"Front","state":"CONNECTED"}],
		"sensors":[{"id":"s1","name":"Garage","state":"CONNECTED"}],
		"nvr":{"id":"n1","name":"Console","version":"5.0.34"}
	}`)
	api.Payloads["nvr"] = json.RawMessage(`{"id":"n1","name":"Console","version":"5.0.34"}`)
	api.Payloads["applicationInfo"] = json.RawMessage(`{"applicationVersion":"5.0.34"}`)
	api.Payloads["lights"] = json.RawMessage(`[{"id":"l1","name":"Driveway","state":"CONNECTED"}]`)
	api.Payloads["chimes"] = json.RawMessage(`[{"id":"ch1","name":"Hallway","state":"CONNECTED"}]`)
	api.Payloads["viewers"] = json.RawMessage(`[{"id":"v1","name":"Lobby","state":"CONNECTED"}]`)
	api.Payloads["liveviews"] = json.RawMessage(`[{"id":"lv1","name":"All"}]`)
	return api
}

func newTestCoordinator(api protect.API) *Coordinator {
	logger, _ := zap.NewDevelopment()
	return New(api, Config{
		Logger: logger,
		Clock:  clock.NewMockClock(time.Now()),
		// No pacing between auxiliary fetches in tests.
		AuxDelay: -1,
	})
}

func TestCoordinator_StartPopulatesState(t *testing.T) {
	api := seedMock()
	coord := newTestCoordinator(api)

	require.NoError(t, coord.Start(context.Background()))
	defer coord.Shutdown()

	assert.Equal(t, StateReady, coord.State())
	assert.True(t, api.DeviceChannelOpen)
	assert.True(t, api.EventChannelOpen)

	cameras := coord.Cameras()
	require.Len(t, cameras, 1)
	assert.Equal(t, "Front", cameras["c1"].Name)
	assert.True(t, cameras["c1"].Connected)

	assert.Len(t, coord.Sensors(), 1)
	assert.Len(t, coord.Lights(), 1)
	assert.Len(t, coord.Chimes(), 1)
	assert.Len(t, coord.Viewers(), 1)
	assert.Len(t, coord.Liveviews(), 1)

	nvr := coord.NVR()
	require.NotNil(t, nvr)
	assert.Equal(t, "Console", nvr.Name)
	assert.Equal(t, "https://protect.test", nvr.Host, "host injected from the client when the payload has none")

	assert.False(t, coord.Stale())
	assert.False(t, coord.LastSync().IsZero())
}

func TestCoordinator_InitialRefreshFailureIsFatal(t *testing.T) {
	api := seedMock()
	api.Errors["bootstrap"] = protect.ErrAuth
	coord := newTestCoordinator(api)

	err := coord.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, protect.ErrAuth)
	assert.Equal(t, StateUninitialized, coord.State())
	assert.Empty(t, coord.Cameras())

	require.NoError(t, coord.Shutdown())
	assert.Equal(t, StateClosed, coord.State())
}

func TestCoordinator_RefreshRemovesMissingDevices(t *testing.T) {
	api := seedMock()
	api.Payloads["bootstrap"] = json.RawMessage(`{
		"cameras":[{"id":"c1","name":"Front"},{"id":"c2","name":"Back"}],
		"sensors":[]
	}`)
	coord := newTestCoordinator(api)
	require.NoError(t, coord.Start(context.Background()))
	defer coord.Shutdown()
	require.Len(t, coord.Cameras(), 2)

	// The next bootstrap is a strict subset: exactly c2 disappears.
	api.Payloads["bootstrap"] = json.RawMessage(`{"cameras":[{"id":"c1","name":"Front"}],"sensors":[]}`)
	require.NoError(t, coord.refresh(context.Background()))

	cameras := coord.Cameras()
	require.Len(t, cameras, 1)
	assert.Contains(t, cameras, "c1")

	api.Payloads["bootstrap"] = json.RawMessage(`{"cameras":[],"sensors":[]}`)
	require.NoError(t, coord.refresh(context.Background()))
	assert.Empty(t, coord.Cameras())
}

func TestCoordinator_RefreshPatchesInPlace(t *testing.T) {
	api := seedMock()
	coord := newTestCoordinator(api)
	require.NoError(t, coord.Start(context.Background()))
	defer coord.Shutdown()

	before, ok := coord.Camera("c1")
	require.True(t, ok)

	api.Payloads["bootstrap"] = json.RawMessage(`{
		"cameras":[{"id":"c1","name":"Front Door","state":"DISCONNECTED"}],
		"sensors":[{"id":"s1"}]
	}`)
	require.NoError(t, coord.refresh(context.Background()))

	after, ok := coord.Camera("c1")
	require.True(t, ok)
	assert.Same(t, before, after, "tracked devices are patched, not replaced")
	assert.Equal(t, "Front Door", after.Name)
	assert.False(t, after.Connected)
}

func TestCoordinator_AuxiliaryFailureIsIsolated(t *testing.T) {
	api := seedMock()
	coord := newTestCoordinator(api)
	require.NoError(t, coord.Start(context.Background()))
	defer coord.Shutdown()
	require.Len(t, coord.Lights(), 1)

	// One broken category must not abort the others or clear its own
	// last known state.
	api.Errors["lights"] = protect.ErrConn
	api.Payloads["chimes"] = json.RawMessage(`[]`)
	require.NoError(t, coord.refresh(context.Background()))

	assert.Len(t, coord.Lights(), 1, "failed category keeps last known state")
	assert.Empty(t, coord.Chimes(), "healthy categories still reconcile")
	assert.Len(t, coord.Cameras(), 1)
	assert.False(t, coord.Stale())
}

func TestCoordinator_NVRFallsBackToApplicationInfo(t *testing.T) {
	api := seedMock()
	api.Errors["nvr"] = protect.ErrNotFound
	api.Payloads["applicationInfo"] = json.RawMessage(`{"applicationVersion":"4.1.0"}`)
	// Old firmware: no v1 nvr endpoint, and strip the bootstrap copy so
	// the fallback is what populates the record.
	api.Payloads["bootstrap"] = json.RawMessage(`{"cameras":[],"sensors":[]}`)

	coord := newTestCoordinator(api)
	require.NoError(t, coord.Start(context.Background()))
	defer coord.Shutdown()

	require.NotNil(t, coord.NVR())
	assert.Equal(t, "UniFi Protect", coord.NVR().Name)
}

func TestCoordinator_FailedScheduledRefreshMarksStale(t *testing.T) {
	api := seedMock()
	coord := newTestCoordinator(api)

	snapshots := make(chan Snapshot, 8)
	unsubscribe := coord.Subscribe(func(snap Snapshot) {
		snapshots <- snap
	})
	defer unsubscribe()

	require.NoError(t, coord.Start(context.Background()))
	defer coord.Shutdown()
	<-snapshots // initial refresh broadcast

	api.Errors["bootstrap"] = errors.New("console rebooting")
	coord.RequestRefresh()

	select {
	case snap := <-snapshots:
		assert.True(t, snap.Stale)
		assert.Len(t, snap.Cameras, 1, "stale marker preserves last known state")
	case <-time.After(2 * time.Second):
		t.Fatal("no stale snapshot broadcast")
	}
	assert.True(t, coord.Stale())

	// The next successful refresh clears the marker.
	delete(api.Errors, "bootstrap")
	require.NoError(t, coord.refresh(context.Background()))
	assert.False(t, coord.Stale())
}

// raceAPI fires a hook right after the bootstrap fetch, simulating a
// push update arriving while a refresh is in flight.
type raceAPI struct {
	*protect.MockAPI
	afterBootstrap func()
}

func (r *raceAPI) Bootstrap(ctx context.Context) (json.RawMessage, error) {
	raw, err := r.MockAPI.Bootstrap(ctx)
	if err == nil && r.afterBootstrap != nil {
		r.afterBootstrap()
	}
	return raw, err
}

func TestCoordinator_PushDuringRefreshIsNotClobbered(t *testing.T) {
	mock := seedMock()
	api := &raceAPI{MockAPI: mock}
	coord := newTestCoordinator(api)
	require.NoError(t, coord.Start(context.Background()))
	defer coord.Shutdown()

	// During the next refresh, a push renames c1 after the bootstrap
	// payload (still carrying the old name) has been fetched.
	api.afterBootstrap = func() {
		mock.PushDeviceUpdate(protect.DeviceUpdate{
			Action:   protect.ActionUpdate,
			ModelKey: protect.ModelKeyCamera,
			Data:     json.RawMessage(`{"id":"c1","name":"Pushed Name"}`),
		})
		api.afterBootstrap = nil
	}

	require.NoError(t, coord.refresh(context.Background()))

	cam, ok := coord.Camera("c1")
	require.True(t, ok)
	assert.Equal(t, "Pushed Name", cam.Name, "newer push write wins over the older poll data")
}

func TestCoordinator_SubscriberPanicDoesNotStopOthers(t *testing.T) {
	api := seedMock()
	coord := newTestCoordinator(api)

	coord.Subscribe(func(Snapshot) { panic("subscriber bug") })
	var received bool
	coord.Subscribe(func(Snapshot) { received = true })

	require.NoError(t, coord.Start(context.Background()))
	defer coord.Shutdown()

	assert.True(t, received)
}

func TestCoordinator_ShutdownIsIdempotent(t *testing.T) {
	api := seedMock()
	coord := newTestCoordinator(api)
	require.NoError(t, coord.Start(context.Background()))

	require.NoError(t, coord.Shutdown())
	assert.Equal(t, StateClosed, coord.State())
	assert.True(t, api.Closed)

	require.NoError(t, coord.Shutdown())

	err := coord.Start(context.Background())
	assert.Error(t, err, "a closed coordinator cannot be restarted")
}
