package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/garminwrap/garminwrap/internal/core"
	apperrors "github.com/garminwrap/garminwrap/internal/errors"
	"github.com/garminwrap/garminwrap/internal/garmin"
)

// GarminHandler exposes the upstream read operations over HTTP.
type GarminHandler struct {
	svc *core.Service
}

// NewGarminHandler binds handlers to svc.
func NewGarminHandler(svc *core.Service) *GarminHandler {
	return &GarminHandler{svc: svc}
}

// Stats handles GET /stats?date=YYYY-MM-DD
func (h *GarminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	stats, err := h.svc.Stats(r.Context(), date)
	if err != nil {
		h.fail(w, r, err, map[string]interface{}{"operation": "get_stats", "date": date})
		return
	}
	writeRawJSON(w, stats)
}

// Activities handles GET /activities?start=0&limit=10
func (h *GarminHandler) Activities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start := intParam(query.Get("start"), core.DefaultStart)
	limit := intParam(query.Get("limit"), core.DefaultLimit)

	activities, err := h.svc.Activities(r.Context(), start, limit)
	if err != nil {
		h.fail(w, r, err, map[string]interface{}{"operation": "get_activities", "start": start, "limit": limit})
		return
	}
	writeRawJSON(w, activities)
}

// Activity handles GET /activities/{id}
func (h *GarminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	activity, err := h.svc.Activity(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, map[string]interface{}{"operation": "get_activity", "activity_id": id})
		return
	}
	writeRawJSON(w, activity)
}

// Download handles GET /activities/{id}/download?format=fit
func (h *GarminHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fields := map[string]interface{}{"operation": "download_activity", "activity_id": id}

	format, err := garmin.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, err, fields)
		return
	}
	fields["format"] = string(format)

	download, err := h.svc.DownloadActivity(r.Context(), id, format)
	if err != nil {
		h.fail(w, r, err, fields)
		return
	}

	w.Header().Set("Content-Type", download.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+download.Filename())
	w.Header().Set("Content-Length", strconv.Itoa(len(download.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(download.Data)
}

// Health handles GET /health. It reports the cached session or, when none
// exists, the outcome of one inline login.
func (h *GarminHandler) Health(w http.ResponseWriter, r *http.Request) {
	report, ok := h.svc.Health(r.Context())

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, report)
}

func (h *GarminHandler) fail(w http.ResponseWriter, r *http.Request, err error, fields map[string]interface{}) {
	respondWithError(w, r, apperrors.FromDomain(r.Context(), err, fields))
}

// intParam parses an optional integer query value; absent or non-numeric
// values fall back to def.
func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}
