package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"address-risk-api/internal/client"
	"address-risk-api/internal/metrics"
	"address-risk-api/internal/models"
	"address-risk-api/internal/repository"
	"address-risk-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brunoyCollection = `{
	"features": [{
		"properties": {
			"label": "67 Rue de Mandres 91800 Brunoy",
			"housenumber": "67",
			"street": "Rue de Mandres",
			"postcode": "91800",
			"citycode": "91114"
		},
		"geometry": {"coordinates": [2.518272, 48.705268]}
	}]
}`

// memoryStore is an in-memory address store with the same uniqueness rule as the schema.
type memoryStore struct {
	mu        sync.Mutex
	addresses []models.Address
	pingErr   error
}

func (s *memoryStore) FindByID(_ context.Context, id int64) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.addresses {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) FindByCoordinates(_ context.Context, lat, lon float64) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.addresses {
		if a.Latitude == lat && a.Longitude == lon {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) Create(_ context.Context, addr *models.Address) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.addresses {
		if a.Latitude == addr.Latitude && a.Longitude == addr.Longitude {
			return nil, repository.ErrDuplicateCoordinates
		}
	}
	created := *addr
	created.ID = int64(len(s.addresses) + 1)
	s.addresses = append(s.addresses, created)
	return &created, nil
}

func (s *memoryStore) Ping(context.Context) error { return s.pingErr }

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.addresses)
}

// upstream is a scriptable stand-in for one external API.
type upstream struct {
	mu     sync.Mutex
	status int
	body   string
}

func (u *upstream) set(status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status, u.body = status, body
}

func (u *upstream) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		status, body := u.status, u.body
		u.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	router    *gin.Engine
	store     *memoryStore
	geocoder  *upstream
	risks     *upstream
	collector *metrics.Collector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		store:    &memoryStore{},
		geocoder: &upstream{status: http.StatusOK, body: brunoyCollection},
		risks:    &upstream{status: http.StatusOK, body: `{"risques": "exemple de risques"}`},
	}

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	env.collector = collector

	ban := client.NewBANClient(env.geocoder.server(t).URL, 5*time.Second, client.WithObserver(collector))
	georisques := client.NewGeorisquesClient(env.risks.server(t).URL, 20*time.Second, client.WithObserver(collector))

	env.router = NewRouter(RouterConfig{
		Addresses:  NewAddressHandler(service.NewAddressService(ban, env.store)),
		Risks:      NewRiskHandler(service.NewRiskService(env.store, georisques)),
		DB:         env.store,
		Middleware: []gin.HandlerFunc{collector.Middleware()},
		Metrics:    collector.Handler(),
	})
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRouter_CreateAddress(t *testing.T) {
	t.Run("missing q", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodPost, "/api/addresses/", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w), "error")
	})

	t.Run("empty q", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodPost, "/api/addresses/", `{"q": ""}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w), "error")
	})

	t.Run("geocoder failing", func(t *testing.T) {
		env := newTestEnv(t)
		env.geocoder.set(http.StatusInternalServerError, `{"message": "internal error"}`)
		w := env.do(http.MethodPost, "/api/addresses/", `{"q": "67 rue de mandres"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, decode(t, w), "error")
		assert.Equal(t, 0, env.store.count())
		assert.Equal(t, float64(1), testutil.ToFloat64(env.collector.UpstreamRequests.WithLabelValues("ban", client.OutcomeError)))
	})

	t.Run("no features", func(t *testing.T) {
		env := newTestEnv(t)
		env.geocoder.set(http.StatusOK, `{"features": []}`)
		w := env.do(http.MethodPost, "/api/addresses/", `{"q": "adresse inconnue"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, decode(t, w), "error")
		assert.Equal(t, 0, env.store.count())
	})

	t.Run("success creates one record", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodPost, "/api/addresses/", `{"q": "67 rue de mandres"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "91800", body["postcode"])
		assert.Equal(t, float64(1), body["id"])
		assert.Equal(t, 1, env.store.count())
	})

	t.Run("repeated query is idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.do(http.MethodPost, "/api/addresses/", `{"q": "67 rue de mandres"}`)
		second := env.do(http.MethodPost, "/api/addresses/", `{"q": "67 Rue de Mandres, Brunoy"}`)
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusOK, second.Code)
		assert.JSONEq(t, first.Body.String(), second.Body.String())
		assert.Equal(t, 1, env.store.count())
	})
}

func TestRouter_GetRisks(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodGet, "/api/addresses/9999/risks/", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, decode(t, w), "error")
	})

	t.Run("healthy risk api", func(t *testing.T) {
		env := newTestEnv(t)
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/addresses/", `{"q": "67 rue de mandres"}`).Code)

		w := env.do(http.MethodGet, "/api/addresses/1/risks/", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"risques": "exemple de risques"}`, w.Body.String())
	})

	t.Run("failing risk api", func(t *testing.T) {
		env := newTestEnv(t)
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/addresses/", `{"q": "67 rue de mandres"}`).Code)
		env.risks.set(http.StatusBadGateway, `{"message": "bad gateway"}`)

		w := env.do(http.MethodGet, "/api/addresses/1/risks/", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, decode(t, w), "error")
	})
}

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())

	env.store.pingErr = assert.AnError
	w = env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status": "unavailable"}`, w.Body.String())
}

func TestRouter_MetricsAndDocs(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/addresses/", `{"q": "67 rue de mandres"}`)

	w := env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{code="200",method="POST",route="/api/addresses/"} 1`)
	assert.Contains(t, w.Body.String(), `upstream_requests_total{outcome="ok",upstream="ban"} 1`)

	w = env.do(http.MethodGet, "/swagger/doc.json", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/addresses/{id}/risks/")
}

func TestRouter_PanicCountedInMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := env.do(http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.collector.HTTPRequests.WithLabelValues("GET", "/boom", "500")))
}
