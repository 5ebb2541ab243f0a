package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-bi/internal/analytics"
	"github.com/wolfman30/clinic-bi/pkg/logging"
)

func newTestRouter(t *testing.T, load bool) http.Handler {
	t.Helper()
	svc := NewService(fixtureSource(), analytics.Options{}, nil, nil, logging.New("error"))
	if load {
		_, err := svc.Reload(context.Background())
		require.NoError(t, err)
	}
	h := NewHandler(svc, logging.New("error"))
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Mount("/api/v1", h.Routes())
	return r
}

func doGet(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandlerHealth(t *testing.T) {
	rec := doGet(t, newTestRouter(t, false), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandlerGetView(t *testing.T) {
	router := newTestRouter(t, true)

	rec := doGet(t, router, "/api/v1/views/overview?location=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var overview analytics.Overview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Equal(t, "1", overview.Location)
	assert.Equal(t, 700.0, overview.TotalRevenue)
	assert.Equal(t, analytics.TrendMonthly, overview.RevenueTrend.Mode)
}

func TestHandlerGetViewQueryParams(t *testing.T) {
	router := newTestRouter(t, true)

	rec := doGet(t, router, "/api/v1/views/appointments?state=completed&limit=1&offset=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var appts analytics.AppointmentsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &appts))
	assert.Equal(t, 2, appts.TotalRows)
	require.Len(t, appts.Rows, 1)
	assert.EqualValues(t, 102, appts.Rows[0].ID)

	rec = doGet(t, router, "/api/v1/views/operators?role=Igienista")
	require.Equal(t, http.StatusOK, rec.Code)
	var ops analytics.OperatorsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ops))
	require.Len(t, ops.Operators, 1)
	assert.Equal(t, "Sara Conti", ops.Operators[0].FullName)

	rec = doGet(t, router, "/api/v1/views/patients?q=bianchi")
	require.Equal(t, http.StatusOK, rec.Code)
	var patients analytics.PatientsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patients))
	assert.Equal(t, 1, patients.TotalRows)
}

func TestHandlerGetViewErrors(t *testing.T) {
	router := newTestRouter(t, true)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"unknown view", "/api/v1/views/revenue", http.StatusNotFound},
		{"non-numeric limit", "/api/v1/views/patients?limit=abc", http.StatusBadRequest},
		{"zero limit", "/api/v1/views/patients?limit=0", http.StatusBadRequest},
		{"limit above max", "/api/v1/views/patients?limit=501", http.StatusBadRequest},
		{"negative offset", "/api/v1/views/billing?offset=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, router, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandlerNotLoaded(t *testing.T) {
	router := newTestRouter(t, false)
	for _, target := range []string{"/api/v1/views/overview", "/api/v1/dataset", "/api/v1/filters"} {
		rec := doGet(t, router, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestHandlerGetDataset(t *testing.T) {
	rec := doGet(t, newTestRouter(t, true), "/api/v1/dataset")
	require.Equal(t, http.StatusOK, rec.Code)

	var info DatasetInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "file", info.Source)
	assert.Len(t, info.Version, 16)
	assert.NotEmpty(t, info.LoadedAt)
	assert.Equal(t, 5, info.Counts["bills"])
	assert.Equal(t, 3, info.Counts["chairs"])
}

func TestHandlerGetFilters(t *testing.T) {
	rec := doGet(t, newTestRouter(t, true), "/api/v1/filters")
	require.Equal(t, http.StatusOK, rec.Code)

	var opts FilterOptions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	require.Len(t, opts.Locations, 3)
	assert.Equal(t, "Milano Centro", opts.Locations[0].Name)
	assert.Equal(t, []string{"Dentista", "Igienista"}, opts.Roles)
	assert.Equal(t, []string{"completed", "noshow", "cancelled", "scheduled"}, opts.States)
}
