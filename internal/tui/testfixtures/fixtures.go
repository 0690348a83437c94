package testfixtures

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/stretchr/testify/require"
)

// Wheat is the recommendation returned by the Punjab fixtures.
var Wheat = wizard.Recommendation{RecommendedCrop: "Wheat", Fertilizer: "Urea"}

// ErrBackendDown is returned by FailingRecommender.
var ErrBackendDown = errors.New("dial tcp 127.0.0.1:8000: connection refused")

// StaticRecommender always returns rec.
func StaticRecommender(rec wizard.Recommendation) wizard.Recommender {
	return wizard.RecommenderFunc(func(context.Context, wizard.Request) (wizard.Recommendation, error) {
		return rec, nil
	})
}

// FailingRecommender always fails with ErrBackendDown.
func FailingRecommender() wizard.Recommender {
	return wizard.RecommenderFunc(func(context.Context, wizard.Request) (wizard.Recommendation, error) {
		return wizard.Recommendation{}, ErrBackendDown
	})
}

// GatedRecommender holds every request until Release is called, so tests can
// observe the in-flight state.
type GatedRecommender struct {
	Result wizard.Recommendation
	Err    error

	calls   atomic.Int32
	once    sync.Once
	release chan struct{}

	mu   sync.Mutex
	last wizard.Request
}

// NewGatedRecommender creates a gate that answers with rec once released.
func NewGatedRecommender(rec wizard.Recommendation) *GatedRecommender {
	return &GatedRecommender{Result: rec, release: make(chan struct{})}
}

// Recommend implements wizard.Recommender.
func (g *GatedRecommender) Recommend(ctx context.Context, req wizard.Request) (wizard.Recommendation, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.last = req
	g.mu.Unlock()

	select {
	case <-g.release:
		return g.Result, g.Err
	case <-ctx.Done():
		return wizard.Recommendation{}, ctx.Err()
	}
}

// Release lets every pending and future request complete.
func (g *GatedRecommender) Release() {
	g.once.Do(func() { close(g.release) })
}

// Calls reports how many requests reached the gate.
func (g *GatedRecommender) Calls() int {
	return int(g.calls.Load())
}

// LastRequest returns the most recent request body.
func (g *GatedRecommender) LastRequest() wizard.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// PunjabSession returns a session with the Punjab example filled in and
// parked on the nutrients step: Punjab, 800 mm, 27 °C, black soil, N50 P30 K40.
func PunjabSession(t *testing.T, rec wizard.Recommender, opts ...wizard.Option) *wizard.Session {
	t.Helper()
	s := wizard.NewSession(rec, opts...)
	t.Cleanup(s.Close)

	ctx := context.Background()
	set := func(f wizard.Field, v any) {
		t.Helper()
		_, err := s.SetField(f, v)
		require.NoError(t, err)
	}

	set(wizard.FieldLocation, "Punjab")
	set(wizard.FieldRainfall, "800")
	set(wizard.FieldTemperature, "27")
	_, err := s.Advance(ctx)
	require.NoError(t, err)

	set(wizard.FieldSoilType, wizard.SoilBlack)
	_, err = s.Advance(ctx)
	require.NoError(t, err)

	set(wizard.FieldNitrogen, 50)
	set(wizard.FieldPhosphorus, 30)
	set(wizard.FieldPotassium, 40)
	return s
}
