package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gosom/yandex-maps-scraper/auth"
	"github.com/gosom/yandex-maps-scraper/storage"
)

type ctxKey string

const (
	licenseCtxKey   ctxKey = "license"
	remainingCtxKey ctxKey = "remaining"
)

// requireLicense gates an endpoint behind a valid X-License-Key header and
// puts the verified license plus its remaining daily quota on the request
// context.
func (s *Server) requireLicense(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-License-Key")
		if key == "" {
			renderJSON(w, http.StatusUnauthorized, apiError{
				Code:    http.StatusUnauthorized,
				Message: "license key is required",
			})

			return
		}

		lic, remaining, err := s.svc.auth.VerifyLicense(r.Context(), key)
		if err != nil {
			code := http.StatusUnauthorized

			switch {
			case errors.Is(err, auth.ErrDailyLimit):
				code = http.StatusTooManyRequests
			case errors.Is(err, auth.ErrUnknownKey),
				errors.Is(err, auth.ErrInactive),
				errors.Is(err, auth.ErrExpired):
			default:
				code = http.StatusInternalServerError
			}

			renderJSON(w, code, apiError{Code: code, Message: err.Error()})

			return
		}

		ctx := context.WithValue(r.Context(), licenseCtxKey, lic)
		ctx = context.WithValue(ctx, remainingCtxKey, remaining)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates an endpoint behind a bearer token issued by
// /api/admin/auth.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			renderJSON(w, http.StatusUnauthorized, apiError{
				Code:    http.StatusUnauthorized,
				Message: "admin token is required",
			})

			return
		}

		if _, err := s.svc.auth.VerifyToken(token); err != nil {
			renderJSON(w, http.StatusUnauthorized, apiError{
				Code:    http.StatusUnauthorized,
				Message: "invalid admin token",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func licenseFromRequest(r *http.Request) (*storage.License, int, bool) {
	lic, ok := r.Context().Value(licenseCtxKey).(*storage.License)
	if !ok {
		return nil, 0, false
	}

	remaining, _ := r.Context().Value(remainingCtxKey).(int)

	return lic, remaining, true
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline'; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")

		next.ServeHTTP(w, r)
	})
}
