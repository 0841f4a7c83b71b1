package internal

import (
	"antislack/internal/host"
	"antislack/internal/storage"
	"antislack/internal/testutil"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	persisted  int
	persistErr error
}

func (f *fakeScheduler) Init()                     {}
func (f *fakeScheduler) Stop()                     {}
func (f *fakeScheduler) RunOnce(_ context.Context) {}
func (f *fakeScheduler) Persist() error {
	f.persisted++
	return f.persistErr
}

func newTestApp(t *testing.T) (*App, *testutil.MockPartition, *fakeScheduler, *[]host.EventType) {
	t.Helper()
	logger := testutil.NewMockLogger()
	syncPart := testutil.NewMockPartition(storage.PartitionSync)
	sched := &fakeScheduler{}
	bus := host.NewBus(8, logger)

	var seen []host.EventType
	record := func(_ context.Context, ev host.Event) { seen = append(seen, ev.Type) }
	for _, et := range []host.EventType{host.EventInstalled, host.EventStartup, host.EventUpdated} {
		bus.Subscribe(et, record)
	}

	app := &App{
		logger:    logger,
		bus:       bus,
		alarms:    host.NewTimerAlarms(func(string) {}),
		parts:     &storage.Partitions{Sync: syncPart, Local: testutil.NewMockPartition(storage.PartitionLocal)},
		scheduler: sched,
	}
	return app, syncPart, sched, &seen
}

func TestBootInstallsOnEmptyStore(t *testing.T) {
	app, _, _, seen := newTestApp(t)

	require.NoError(t, app.Boot(t.Context()))
	assert.Equal(t, []host.EventType{host.EventInstalled}, *seen)
}

func TestBootStartsWhenSettingsExist(t *testing.T) {
	app, syncPart, _, seen := newTestApp(t)
	syncPart.Data[storage.KeySettings] = []byte(`{"enabled":true}`)

	require.NoError(t, app.Boot(t.Context()))
	assert.Equal(t, []host.EventType{host.EventStartup}, *seen)
}

func TestBootReadError(t *testing.T) {
	app, syncPart, _, seen := newTestApp(t)
	syncPart.GetErr = errors.New("disk gone")

	assert.Error(t, app.Boot(t.Context()))
	assert.Empty(t, *seen)
}

func TestUpgradeDispatchesUpdated(t *testing.T) {
	app, _, sched, seen := newTestApp(t)

	require.NoError(t, app.Upgrade(t.Context()))
	assert.Equal(t, []host.EventType{host.EventUpdated}, *seen)
	assert.Equal(t, 1, sched.persisted)
}

func TestUpgradePersistError(t *testing.T) {
	app, _, sched, _ := newTestApp(t)
	sched.persistErr = errors.New("flush failed")

	assert.ErrorContains(t, app.Upgrade(t.Context()), "flush failed")
}
