package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/underscore-apis/internal/engine"
)

// registerDemoRoutes вешает маршруты хоста через ядро: каждый из них виден в _cat/routes
func registerDemoRoutes(core *engine.Core, r chi.Router) {
	core.Handle(r, http.MethodGet, "/", "index", index)
	core.Handle(r, http.MethodGet, "/items/{id}", "get_item", getItem)
	core.Handle(r, http.MethodPut, "/items/{id}", "put_item", putItem)
	core.Handle(r, http.MethodGet, "/slow", "slow", slow)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":     "underscore-demo",
		"trace_id": engine.TraceID(r.Context()),
	})
}

func getItem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
}

func putItem(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	body["id"] = chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, body)
}

// slow держит запрос, пока его не отменят через _routes/{id}/_cancel_tasks или не выйдет время
func slow(w http.ResponseWriter, r *http.Request) {
	d := 20 * time.Second
	if raw := r.URL.Query().Get("for"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			d = parsed
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		writeJSON(w, http.StatusOK, map[string]string{"slept": d.String()})
	case <-r.Context().Done():
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "cancelled"})
	}
}
