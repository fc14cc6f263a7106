package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/auth"
	"github.com/netops-tools/welcome-wizard/pkg/importer"
	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

type ctxKey struct{}

func userFrom(r *http.Request) string {
	if u, ok := r.Context().Value(ctxKey{}).(string); ok {
		return u
	}
	return ""
}

// authenticated resolves the request's user from basic auth. With no users
// configured every request runs as the anonymous superuser.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.Anonymous
		if s.Policy.Enabled() {
			name, pass, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}
			u, ok := s.Policy.Authenticate(name, pass)
			if !ok {
				utils.Log.WithField("user", name).Warn("Failed login")
				unauthorized(w)
				return
			}
			user = u.Username
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	}
}

// authorize is authenticated plus a permission check on entityType.
func (s *Server) authorize(action, entityType string, next http.HandlerFunc) http.HandlerFunc {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request) {
		if !s.Policy.HasPermission(userFrom(r), action, entityType) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="welcome-wizard"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and durations by matched route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.Metrics.RecordHTTPRequest(r.Method, route, rec.status, time.Since(start))
	})
}

// fail maps an error to its HTTP response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, importer.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.Is(err, importer.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		utils.Log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

const flashCookie = "welcome_wizard_flash"

// setFlash stores a one-shot message shown on the next page render.
func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending message, if any, and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	msg, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}
