package nats

import (
	"context"
	"testing"
	"time"

	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBus(t *testing.T) *Bus {
	t.Helper()

	ns, err := StartEmbedded(t.TempDir())
	require.NoError(t, err)
	nc, err := ConnectInProcess(ns)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = Shutdown(nc, ns)
	})

	bus, err := NewBus(context.Background(), nc)
	require.NoError(t, err)
	return bus
}

func TestSubjectForSession(t *testing.T) {
	assert.Equal(t, "agriwizard.abc.snapshot", SubjectForSession("abc"))
}

func TestBus_HistoryFromRegistry(t *testing.T) {
	bus := startBus(t)

	reg := wizard.NewRegistry(nil, i18n.English, bus.Observer())
	defer reg.Close()

	a := reg.Create()
	b := reg.Create()

	_, err := a.SetField(wizard.FieldLocation, "Punjab")
	require.NoError(t, err)
	_, err = a.ToggleLanguage()
	require.NoError(t, err)
	_, err = b.ToggleLanguage()
	require.NoError(t, err)

	history, err := bus.History(context.Background(), a.ID())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Punjab", history[0].Draft.Location)
	assert.Equal(t, i18n.English, history[0].Language)
	assert.Equal(t, i18n.Hindi, history[1].Language)
	assert.Less(t, history[0].Version, history[1].Version)

	history, err = bus.History(context.Background(), b.ID())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, b.ID(), history[0].SessionID)
}

func TestBus_HistoryUnknownSession(t *testing.T) {
	bus := startBus(t)

	history, err := bus.History(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBus_Watch(t *testing.T) {
	bus := startBus(t)

	reg := wizard.NewRegistry(nil, i18n.English, bus.Observer())
	defer reg.Close()
	s := reg.Create()

	got := make(chan wizard.Snapshot, 4)
	unsubscribe, err := bus.Watch(s.ID(), func(snap wizard.Snapshot) {
		got <- snap
	})
	require.NoError(t, err)
	defer func() { _ = unsubscribe() }()

	_, err = s.SetField(wizard.FieldRainfall, "800")
	require.NoError(t, err)

	select {
	case snap := <-got:
		assert.Equal(t, "800", snap.Draft.Rainfall)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestBus_PublishRequiresSessionID(t *testing.T) {
	bus := startBus(t)

	_, err := bus.Publish(context.Background(), wizard.Snapshot{})
	require.Error(t, err)
}
