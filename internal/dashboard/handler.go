package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-bi/internal/analytics"
	"github.com/wolfman30/clinic-bi/internal/dataset"
	"github.com/wolfman30/clinic-bi/pkg/logging"
)

// Handler exposes the dashboard service over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the /api/v1 routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/dataset", h.GetDataset)
	r.Get("/filters", h.GetFilters)
	r.Get("/views/{view}", h.GetView)
	return r
}

// DatasetInfo describes the loaded dataset.
type DatasetInfo struct {
	Version  string         `json:"version"`
	Source   string         `json:"source"`
	LoadedAt string         `json:"loaded_at"`
	Counts   map[string]int `json:"counts"`
}

type LocationOption struct {
	ID   dataset.ID `json:"id"`
	Name string     `json:"name"`
	City string     `json:"city"`
}

// FilterOptions lists the values the dashboard filter controls offer.
type FilterOptions struct {
	Locations []LocationOption `json:"locations"`
	Roles     []string         `json:"roles"`
	States    []string         `json:"states"`
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetDataset reports the version and record counts of the loaded dataset.
// GET /api/v1/dataset
func (h *Handler) GetDataset(w http.ResponseWriter, _ *http.Request) {
	snap := h.service.Snapshot()
	if snap == nil {
		jsonError(w, "dataset not loaded", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, DatasetInfo{
		Version:  snap.Version,
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt.Format(time.RFC3339),
		Counts:   snap.Dataset.Counts(),
	})
}

// GetFilters returns the selectable locations, operator roles and
// appointment states.
// GET /api/v1/filters
func (h *Handler) GetFilters(w http.ResponseWriter, _ *http.Request) {
	snap := h.service.Snapshot()
	if snap == nil {
		jsonError(w, "dataset not loaded", http.StatusServiceUnavailable)
		return
	}
	d := snap.Dataset

	opts := FilterOptions{
		Locations: make([]LocationOption, 0, len(d.Locations)),
		Roles:     []string{},
		States:    []string{},
	}
	for _, l := range d.Locations {
		opts.Locations = append(opts.Locations, LocationOption{ID: l.ID, Name: l.Name.Display(), City: l.City.Display()})
	}
	opts.Roles = snap.Engine.Operators(analytics.Filter{}).Roles
	seen := map[string]bool{}
	for _, a := range d.Appointments {
		state := strings.TrimSpace(string(a.State))
		if state == "" || seen[state] {
			continue
		}
		seen[state] = true
		opts.States = append(opts.States, state)
	}
	writeJSON(w, http.StatusOK, opts)
}

// GetView returns one dashboard view.
// GET /api/v1/views/{view}
// Query params:
//   - location: location id or "All" (default)
//   - state: appointment state or "All" (appointments view rows)
//   - role: operator role or "All" (operators view)
//   - q: patient search term (patients view rows)
//   - limit, offset: table pagination (default 15, max 500)
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	f, err := parseFilter(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.service.Compute(r.Context(), view, f)
	switch {
	case errors.Is(err, ErrUnknownView):
		jsonError(w, "unknown view", http.StatusNotFound)
		return
	case errors.Is(err, ErrNotLoaded):
		jsonError(w, "dataset not loaded", http.StatusServiceUnavailable)
		return
	case err != nil:
		h.logger.Error("failed to compute view", "view", view, "error", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write view", "view", view, "error", err)
	}
}

func parseFilter(r *http.Request) (analytics.Filter, error) {
	q := r.URL.Query()
	f := analytics.Filter{
		Location: q.Get("location"),
		State:    q.Get("state"),
		Role:     q.Get("role"),
		Query:    q.Get("q"),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > analytics.MaxPageSize {
			return f, errors.New("limit must be an integer between 1 and " + strconv.Itoa(analytics.MaxPageSize))
		}
		f.Limit = n
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, errors.New("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
