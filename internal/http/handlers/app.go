package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/jobs"
	"server/internal/session"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Sessions *session.Manager
	Tracker  *jobs.Tracker
	Queue    *jobs.Queue
	Geo      geoip.CountryResolver
	Logger   infra.Logger
}

func NewApp(sessions *session.Manager, tracker *jobs.Tracker, queue *jobs.Queue, geo geoip.CountryResolver, logger infra.Logger) *App {
	return &App{Sessions: sessions, Tracker: tracker, Queue: queue, Geo: geo, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
