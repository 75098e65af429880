package handler

import (
	"net/http"

	"squeeze/internal/compress"
	"squeeze/internal/config"
	"squeeze/internal/image"
	"squeeze/internal/middleware"
	"squeeze/internal/storage"
)

// Deps are the shared services the HTTP surface is built from.
// DB may be nil when the cache is disabled; RateLimiter may be nil to disable limiting.
type Deps struct {
	Config      *config.Config
	Processor   image.Processor
	Sessions    *compress.Manager
	DB          *storage.DB
	Traffic     *middleware.TrafficStats
	RateLimiter *middleware.RateLimiter
}

// NewRouter wires all routes and middleware.
func NewRouter(d Deps) http.Handler {
	page := NewPageHandler(d.Config)
	oneShot := NewCompressHandler(d.Config, d.Processor)
	sess := NewSessionHandler(d.Config)
	health := NewHealthHandler(d.Processor.Name(), d.DB, d.Sessions, d.Traffic)
	sessionMW := middleware.NewSessionMiddleware(d.Sessions, d.Config.CookieSecure)

	limit := func(h http.Handler) http.Handler {
		if d.RateLimiter == nil {
			return h
		}
		return d.RateLimiter.Middleware(h)
	}

	api := http.NewServeMux()
	api.HandleFunc("/api/source", sess.Source)
	api.HandleFunc("/api/params", sess.Params)
	api.HandleFunc("/api/state", sess.State)
	api.HandleFunc("/api/preview", sess.Preview)
	api.HandleFunc("/api/download", sess.Download)

	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/api/compress", limit(oneShot))
	mux.Handle("/api/", limit(sessionMW.Middleware(api)))
	mux.Handle("/", sessionMW.Middleware(http.HandlerFunc(page.Index)))

	return middleware.NewRequestLogger(d.Traffic).Middleware(mux)
}
