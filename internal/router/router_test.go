package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/terra-tranquil-api/internal/config"
	"github.com/iliyamo/terra-tranquil-api/internal/logger"
	"github.com/iliyamo/terra-tranquil-api/internal/model"
	"github.com/iliyamo/terra-tranquil-api/internal/repository"
	"github.com/iliyamo/terra-tranquil-api/internal/service"
)

type testServer struct {
	handler http.Handler
	store   *repository.MemoryStore
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	log := logger.Nop()
	dir := service.NewDirectory(store.Businesses, log)
	_, err := dir.Seed(context.Background())
	require.NoError(t, err)

	e := New(Deps{
		Directory: dir,
		Impact:    service.NewImpactService(store.Businesses, store.Visits, store.Impacts, nil, log, 5),
		Store:     store,
		Cache:     config.CacheConfig{Enabled: true},
		RateLimit: config.RateLimitConfig{Enabled: true},
		Log:       log,
	})
	return testServer{handler: e, store: store}
}

func (s testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s testServer) businessID(t *testing.T, name string) string {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/businesses?search="+strings.ReplaceAll(name, " ", "%20"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Business](t, rec)
	require.Len(t, list, 1)
	return list[0].ID
}

func TestServiceEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Terra Tranquil API","status":"ok"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/schema", "")
	assert.JSONEq(t, `{"collections":["user","business","visit","impact"]}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/test", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"driver":"memory","connected":true,"tables":["user","business","visit","impact"]}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "terra_http_requests_total")

	rec = s.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]any](t, rec), "error")
}

func TestDirectoryEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/businesses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Business](t, rec), 5)

	rec = s.do(t, http.MethodGet, "/api/businesses?category=Farms", "")
	farms := decode[[]model.Business](t, rec)
	require.Len(t, farms, 1)
	assert.Equal(t, "Harvest Hill Farm", farms[0].Name)

	rec = s.do(t, http.MethodGet, "/api/businesses?search=%25", "")
	assert.Empty(t, decode[[]model.Business](t, rec))

	rec = s.do(t, http.MethodGet, "/api/businesses/"+farms[0].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 95, decode[model.Business](t, rec).EcoScore)

	rec = s.do(t, http.MethodGet, "/api/businesses/not-an-id", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/businesses/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"business not found"}`, rec.Body.String())
}

func TestRegisterBusiness(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/businesses",
		`{"name":"Sprout Bakery","category":"Cafés","location":"Harbor","eco_checks":[true,true,true,true,false]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decode[model.Business](t, rec)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 92, b.EcoScore)
	assert.Nil(t, b.Website)

	rec = s.do(t, http.MethodGet, "/api/businesses?category=Caf%C3%A9s", "")
	assert.Len(t, decode[[]model.Business](t, rec), 2)

	rec = s.do(t, http.MethodPost, "/api/businesses", `{"category":"Cafés","eco_score":150}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, rec)
	assert.Equal(t, "required", body.Fields["name"])
	assert.Equal(t, "required", body.Fields["location"])
	assert.Equal(t, "max", body.Fields["eco_score"])

	rec = s.do(t, http.MethodPost, "/api/businesses", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVisitFlow(t *testing.T) {
	s := newTestServer(t)
	cafe := s.businessID(t, "Leaf")

	// first sight creates a zero record, later visits accumulate on it
	rec := s.do(t, http.MethodGet, "/api/users/u1/impact?username=alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[model.Impact](t, rec).Visits)

	var last struct {
		Impact model.Impact `json:"impact"`
	}
	for i := 0; i < 3; i++ {
		rec = s.do(t, http.MethodPost, "/api/visits", fmt.Sprintf(`{"user_id":"u1","username":"bob","business_id":%q}`, cafe))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		last = decode[struct {
			Impact model.Impact `json:"impact"`
		}](t, rec)
	}
	assert.Equal(t, 3, last.Impact.Visits)
	assert.Equal(t, 30, last.Impact.EcoPoints)
	assert.Equal(t, 3, last.Impact.CommunityImpact)
	assert.Equal(t, 1, last.Impact.TerraLevel)
	assert.Equal(t, "alice", last.Impact.Username)

	rec = s.do(t, http.MethodGet, "/api/users/u1/impact", "")
	assert.Equal(t, last.Impact.Visits, decode[model.Impact](t, rec).Visits)

	rec = s.do(t, http.MethodGet, "/api/users/u1/visits", "")
	require.Equal(t, http.StatusOK, rec.Code)
	visits := decode[[]model.Visit](t, rec)
	require.Len(t, visits, 3)
	assert.Equal(t, "Leaf & Latte Café", visits[0].BusinessName)

	rec = s.do(t, http.MethodGet, "/api/users/nobody/visits", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestLogVisitErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/visits", `{"user_id":"u1","username":"alice","business_id":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/visits", fmt.Sprintf(`{"user_id":"u1","username":"alice","business_id":%q}`, uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/visits", `{"username":"alice"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fields := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, rec).Fields
	assert.Contains(t, fields, "user_id")
	assert.Contains(t, fields, "business_id")

	_, err := s.store.Impacts.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

type downBusinesses struct {
	service.BusinessStore
}

func (downBusinesses) GetByID(context.Context, string) (model.Business, error) {
	return model.Business{}, fmt.Errorf("get business: %w", repository.ErrUnavailable)
}

func (downBusinesses) List(context.Context, repository.BusinessFilter) ([]model.Business, error) {
	return nil, fmt.Errorf("list businesses: %w", repository.ErrUnavailable)
}

func TestStoreOutage(t *testing.T) {
	store := repository.NewMemoryStore()
	log := logger.Nop()
	e := New(Deps{
		Directory: service.NewDirectory(downBusinesses{}, log),
		Impact:    service.NewImpactService(downBusinesses{}, store.Visits, store.Impacts, nil, log, 5),
		Store:     store,
		Log:       log,
	})
	s := testServer{handler: e, store: store}

	rec := s.do(t, http.MethodGet, "/api/businesses", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/visits", fmt.Sprintf(`{"user_id":"u1","username":"alice","business_id":%q}`, uuid.NewString()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

// flakyBusinesses fails List while down is set.
type flakyBusinesses struct {
	*repository.MemoryBusinessRepo
	down atomic.Bool
}

func (f *flakyBusinesses) List(ctx context.Context, filter repository.BusinessFilter) ([]model.Business, error) {
	if f.down.Load() {
		return nil, fmt.Errorf("list businesses: %w", repository.ErrUnavailable)
	}
	return f.MemoryBusinessRepo.List(ctx, filter)
}

func TestDirectoryCache_RecoversAfterOutage(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := repository.NewMemoryStore()
	log := logger.Nop()
	businesses := &flakyBusinesses{MemoryBusinessRepo: store.Businesses}
	dir := service.NewDirectory(businesses, log)
	_, err := dir.Seed(context.Background())
	require.NoError(t, err)

	e := New(Deps{
		Directory: dir,
		Impact:    service.NewImpactService(businesses, store.Visits, store.Impacts, nil, log, 5),
		Store:     store,
		Redis:     rdb,
		Cache:     config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "terra:cache"},
		Log:       log,
	})
	s := testServer{handler: e, store: store}

	businesses.down.Store(true)
	rec := s.do(t, http.MethodGet, "/api/businesses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Degraded"))

	businesses.down.Store(false)
	rec = s.do(t, http.MethodGet, "/api/businesses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Len(t, decode[[]model.Business](t, rec), 5)

	rec = s.do(t, http.MethodGet, "/api/businesses", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Len(t, decode[[]model.Business](t, rec), 5)
	assert.Empty(t, rec.Header().Get("X-Degraded"))
}
