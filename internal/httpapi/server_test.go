package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agrifair/agriwizard/internal/i18n"
	agnats "github.com/agrifair/agriwizard/internal/nats"
	"github.com/agrifair/agriwizard/internal/recommend"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePrices struct {
	prices      []recommend.MarketPrice
	fromBackend bool
	healthErr   error
}

func (f *fakePrices) MarketPricesOrFallback(context.Context) ([]recommend.MarketPrice, bool) {
	if !f.fromBackend {
		return recommend.FallbackPrices(), false
	}
	return f.prices, true
}

func (f *fakePrices) CheckPrice(_ context.Context, in recommend.PriceCheckRequest) (recommend.PriceCheck, error) {
	if in.Crop == "" {
		return recommend.PriceCheck{}, recommend.ErrInvalidPrice
	}
	return recommend.PriceCheck{Crop: in.Crop, MandiPrice: in.MandiPrice, MSPPrice: in.MSPPrice, Status: "Fair Price ✅"}, nil
}

func (f *fakePrices) Health(context.Context) error {
	return f.healthErr
}

func punjab() wizard.Recommender {
	return wizard.RecommenderFunc(func(context.Context, wizard.Request) (wizard.Recommendation, error) {
		return wizard.Recommendation{RecommendedCrop: "Wheat", Fertilizer: "Urea"}, nil
	})
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T, rec wizard.Recommender, opts ...Option) *testAPI {
	t.Helper()
	reg := wizard.NewRegistry(rec, i18n.English)
	srv := New(reg, &fakePrices{fromBackend: true, prices: recommend.FallbackPrices()}, opts...)
	t.Cleanup(func() {
		srv.Close()
		reg.Close()
	})
	return &testAPI{t: t, handler: srv.Handler()}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) create() string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(a.t, http.StatusCreated, w.Code)
	return decode[wizard.View](a.t, w).SessionID
}

func (a *testAPI) fillToStep3(id string) {
	a.t.Helper()
	base := "/api/v1/sessions/" + id
	for field, value := range map[string]any{"location": "Punjab", "rainfall": "800", "temperature": 27} {
		w := a.do(http.MethodPut, base+"/fields/"+field, gin.H{"value": value})
		require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	}
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, base+"/advance", nil).Code)
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPut, base+"/fields/soilType", gin.H{"value": "black"}).Code)
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, base+"/advance", nil).Code)
	for field, value := range map[string]any{"n": 50, "p": 30, "k": 40} {
		w := a.do(http.MethodPut, base+"/fields/"+field, gin.H{"value": value})
		require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["backend"])
}

func TestHealth_BackendDown(t *testing.T) {
	reg := wizard.NewRegistry(nil, i18n.English)
	srv := New(reg, &fakePrices{healthErr: errors.New("refused")})
	defer srv.Close()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	body := decode[map[string]any](t, w)
	assert.Equal(t, "unreachable", body["backend"])
}

func TestCreateSession(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodPost, "/api/v1/sessions", gin.H{"language": "hi-IN"})
	require.Equal(t, http.StatusCreated, w.Code)
	v := decode[wizard.View](t, w)
	assert.Equal(t, i18n.Hindi, v.Language)
	assert.Equal(t, "/api/v1/sessions/"+v.SessionID, w.Header().Get("Location"))

	w = api.do(http.MethodPost, "/api/v1/sessions", gin.H{"language": "xx-nope-!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionFlow_PunjabScenario(t *testing.T) {
	api := newTestAPI(t, punjab())
	id := api.create()
	api.fillToStep3(id)

	w := api.do(http.MethodPost, "/api/v1/sessions/"+id+"/advance?wait=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decode[wizard.View](t, w)
	assert.Equal(t, wizard.StepResults, v.Step)
	require.NotNil(t, v.Result)
	assert.Equal(t, "Wheat", v.Result.RecommendedCrop)
	assert.Equal(t, "Urea", v.Result.Fertilizer)
	assert.Equal(t, 50, v.Draft.Nitrogen)

	w = api.do(http.MethodPost, "/api/v1/sessions/"+id+"/restart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, wizard.StepLocation, decode[wizard.View](t, w).Step)
}

func TestAdvance_AsyncReturnsAccepted(t *testing.T) {
	release := make(chan struct{})
	rec := wizard.RecommenderFunc(func(ctx context.Context, _ wizard.Request) (wizard.Recommendation, error) {
		select {
		case <-release:
			return wizard.Recommendation{RecommendedCrop: "Rice", Fertilizer: "DAP"}, nil
		case <-ctx.Done():
			return wizard.Recommendation{}, ctx.Err()
		}
	})
	api := newTestAPI(t, rec)
	id := api.create()
	api.fillToStep3(id)

	w := api.do(http.MethodPost, "/api/v1/sessions/"+id+"/advance", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	v := decode[wizard.View](t, w)
	assert.Equal(t, wizard.StatusInFlight, v.Status)
	assert.Equal(t, "Analyzing...", v.PrimaryLabel)

	w = api.do(http.MethodPost, "/api/v1/sessions/"+id+"/advance", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "second submission is rejected while in flight")

	close(release)
	require.Eventually(t, func() bool {
		w := api.do(http.MethodGet, "/api/v1/sessions/"+id, nil)
		return decode[wizard.View](t, w).Status == wizard.StatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAdvance_Incomplete(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.create()

	w := api.do(http.MethodPost, "/api/v1/sessions/"+id+"/advance", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, []any{"location", "rainfall", "temperature"}, body["fields"])
	assert.NotNil(t, body["state"])
}

func TestSetField_Errors(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.create()
	base := "/api/v1/sessions/" + id + "/fields/"

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPut, base+"ph", gin.H{"value": 7}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPut, base+"location", gin.H{}).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPut, base+"n", gin.H{"value": 5}).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPut, "/api/v1/sessions/nope/fields/location", gin.H{"value": "x"}).Code)
}

func TestSetField_ZeroNutrient(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.create()
	api.fillToStep3(id)

	w := api.do(http.MethodPut, "/api/v1/sessions/"+id+"/fields/n", gin.H{"value": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, decode[wizard.View](t, w).Draft.Nitrogen)

	w = api.do(http.MethodPut, "/api/v1/sessions/"+id+"/fields/n", gin.H{"value": 250})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetreatAndLanguage(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.create()

	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/v1/sessions/"+id+"/retreat", nil).Code)

	w := api.do(http.MethodPost, "/api/v1/sessions/"+id+"/language", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, i18n.Hindi, decode[wizard.View](t, w).Language)

	w = api.do(http.MethodGet, "/api/v1/sessions/"+id+"/labels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	labels := decode[i18n.Labels](t, w)
	assert.Equal(t, i18n.For(i18n.Hindi), labels)
	assert.Equal(t, "hi", w.Header().Get("Content-Language"))
}

func TestDeleteSession(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.create()

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/v1/sessions/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/sessions/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/v1/sessions/"+id, nil).Code)
}

func TestMarketPrices(t *testing.T) {
	reg := wizard.NewRegistry(nil, i18n.English)
	srv := New(reg, &fakePrices{fromBackend: false})
	defer srv.Close()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/market-prices", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Prices   []recommend.MarketPrice `json:"prices"`
		Fallback bool                    `json:"fallback"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Fallback)
	assert.Equal(t, recommend.FallbackPrices(), body.Prices)
}

func TestCheckPrice(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodPost, "/api/v1/check-price", gin.H{"crop": "Rice", "mandi_price": 3200, "msp_price": 2183})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Fair Price ✅", decode[recommend.PriceCheck](t, w).Status)

	w = api.do(http.MethodPost, "/api/v1/check-price", gin.H{"mandi_price": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistory_Disabled(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.create()

	assert.Equal(t, http.StatusNotImplemented, api.do(http.MethodGet, "/api/v1/sessions/"+id+"/history", nil).Code)
	assert.Equal(t, http.StatusNotImplemented, api.do(http.MethodGet, "/api/v1/sessions/"+id+"/events", nil).Code)
}

func TestHistory_FromBus(t *testing.T) {
	ns, err := agnats.StartEmbedded(t.TempDir())
	require.NoError(t, err)
	nc, err := agnats.ConnectInProcess(ns)
	require.NoError(t, err)
	defer func() { _ = agnats.Shutdown(nc, ns) }()
	bus, err := agnats.NewBus(context.Background(), nc)
	require.NoError(t, err)

	reg := wizard.NewRegistry(punjab(), i18n.English, bus.Observer())
	defer reg.Close()
	srv := New(reg, &fakePrices{}, WithSnapshotLog(bus))
	defer srv.Close()
	api := &testAPI{t: t, handler: srv.Handler()}

	id := api.create()
	api.fillToStep3(id)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/sessions/"+id+"/advance?wait=true", nil).Code)

	w := api.do(http.MethodGet, "/api/v1/sessions/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]wizard.Snapshot](t, w)
	require.NotEmpty(t, history)

	last := history[len(history)-1]
	assert.Equal(t, wizard.StatusSucceeded, last.Status)
	assert.Equal(t, wizard.StatusInFlight, history[len(history)-2].Status)
}
