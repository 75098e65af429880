package handler

import (
	"net/http"
	"time"

	"squeeze/internal/compress"
	"squeeze/internal/logging"
	"squeeze/internal/middleware"
	"squeeze/internal/storage"
)

type HealthHandler struct {
	backend  string
	db       *storage.DB
	sessions *compress.Manager
	traffic  *middleware.TrafficStats
}

// NewHealthHandler builds the health endpoint; db is nil when the cache is disabled.
func NewHealthHandler(backend string, db *storage.DB, sessions *compress.Manager, traffic *middleware.TrafficStats) *HealthHandler {
	return &HealthHandler{backend: backend, db: db, sessions: sessions, traffic: traffic}
}

type cacheJSON struct {
	Entries     int64 `json:"entries"`
	Bytes       int64 `json:"bytes"`
	Hits        int64 `json:"hits"`
	SourceBytes int64 `json:"source_bytes"`
}

type healthResponse struct {
	Status   string                      `json:"status"`
	Backend  string                      `json:"backend"`
	Sessions int                         `json:"sessions"`
	Cache    *cacheJSON                  `json:"cache,omitempty"`
	Traffic  *middleware.TrafficSnapshot `json:"traffic,omitempty"`
}

// GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Backend: h.backend}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}
	if h.db != nil {
		stats, err := h.db.GetStats()
		if err != nil {
			logging.Get(logging.App).Printf("health: cache stats: %v", err)
			resp.Status = "degraded"
		} else {
			resp.Cache = &cacheJSON{
				Entries:     stats.Entries,
				Bytes:       stats.TotalBytes,
				Hits:        stats.TotalHits,
				SourceBytes: stats.SourceBytes,
			}
		}
	}
	if h.traffic != nil {
		snap := h.traffic.Snapshot(time.Now())
		resp.Traffic = &snap
	}

	writeJSON(w, resp)
}
