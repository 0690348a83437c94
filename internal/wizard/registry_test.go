package wizard

import (
	"context"
	"sync"
	"testing"

	"github.com/agrifair/agriwizard/internal/i18n"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateGetDelete(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, i18n.Hindi)
	s := r.Create()

	_, err := ulid.Parse(s.ID())
	require.NoError(t, err, "session ids are ULIDs")
	assert.Equal(t, i18n.Hindi, s.Snapshot().Language)
	assert.Equal(t, s.ID(), s.Snapshot().SessionID)

	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, r.Delete(s.ID()))
	_, err = r.Get(s.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, r.Delete(s.ID()), ErrSessionNotFound)

	_, err = s.ToggleLanguage()
	require.ErrorIs(t, err, ErrClosed, "deleted sessions are closed")
}

func TestRegistry_IDsInCreationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, i18n.English)
	var want []string
	for i := 0; i < 5; i++ {
		want = append(want, r.Create().ID())
	}
	assert.Equal(t, want, r.IDs())
}

func TestRegistry_ObserversSubscribed(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen = map[string]int{}
	)
	r := NewRegistry(nil, i18n.English, func(s Snapshot) {
		mu.Lock()
		seen[s.SessionID]++
		mu.Unlock()
	})

	a := r.Create()
	b := r.Create()
	_, err := a.SetField(FieldLocation, "Punjab")
	require.NoError(t, err)
	_, err = b.ToggleLanguage()
	require.NoError(t, err)
	_, err = b.ToggleLanguage()
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{a.ID(): 1, b.ID(): 2}, seen)
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, i18n.English)
	a := r.Create()
	b := r.Create()

	_, err := a.SetField(FieldLocation, "Punjab")
	require.NoError(t, err)
	_, err = a.SetField(FieldRainfall, "800")
	require.NoError(t, err)
	_, err = a.SetField(FieldTemperature, "27")
	require.NoError(t, err)
	_, err = a.Advance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StepSoil, a.Snapshot().Step)
	assert.Equal(t, StepLocation, b.Snapshot().Step)
	assert.Empty(t, b.Snapshot().Draft.Location)
}

func TestRegistry_Close(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, i18n.English)
	s := r.Create()
	r.Close()

	assert.Empty(t, r.IDs())
	_, err := s.Reset()
	require.ErrorIs(t, err, ErrClosed)
}
