package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"squeeze/internal/logging"
)

type RequestLogger struct {
	traffic *TrafficStats
}

func NewRequestLogger(traffic *TrafficStats) *RequestLogger {
	return &RequestLogger{traffic: traffic}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (l *RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		duration := time.Since(start)
		if l.traffic != nil {
			l.traffic.Add(rec.size, rec.Header().Get("Content-Type") == "image/jpeg", time.Now())
		}
		logLine := fmt.Sprintf(
			"request method=%s path=%s status=%d bytes=%d ip=%s ua=%q dur_ms=%d",
			r.Method,
			r.URL.RequestURI(),
			rec.status,
			rec.size,
			ClientIP(r),
			r.UserAgent(),
			duration.Milliseconds(),
		)
		logging.Get(requestCategory(r.URL.Path, rec.status)).Print(logLine)
	})
}

// requestCategory splits failures by status and keeps the chatty preview polling
// out of the main request log.
func requestCategory(path string, status int) string {
	if status >= 400 {
		return fmt.Sprintf("%s_%d", logging.Requests, status)
	}
	if path == "/api/preview" || path == "/api/state" {
		return logging.Requests + "_preview"
	}
	return logging.Requests
}

// ClientIP prefers the first valid X-Forwarded-For address over RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if parsed := net.ParseIP(ip); parsed != nil {
				return parsed.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	if parsed := net.ParseIP(host); parsed != nil {
		return parsed.String()
	}
	return host
}
