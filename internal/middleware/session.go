package middleware

import (
	"context"
	"net/http"

	"squeeze/internal/compress"
	"squeeze/internal/logging"
)

type contextKey string

const (
	SessionContextKey contextKey = "session"
	SessionCookie                = "squeeze_session"
)

type SessionMiddleware struct {
	sessions *compress.Manager
	secure   bool
}

func NewSessionMiddleware(sessions *compress.Manager, secure bool) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, secure: secure}
}

// GetSession extracts the compression session from request context (set by middleware)
func GetSession(r *http.Request) *compress.Session {
	s, _ := r.Context().Value(SessionContextKey).(*compress.Session)
	return s
}

// Middleware attaches the caller's session, creating one and setting the cookie if needed.
func (m *SessionMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session *compress.Session
		if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
			session = m.sessions.Get(cookie.Value)
		}

		if session == nil {
			token, s, err := m.sessions.Create()
			if err != nil {
				logging.Get(logging.App).Printf("session create failed: %v", err)
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			session = s
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
