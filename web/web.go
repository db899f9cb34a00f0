// Package web exposes the scraper over HTTP: a licensed search/export API,
// admin license management and two minimal HTML pages.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gosom/yandex-maps-scraper/exporter"
	"github.com/gosom/yandex-maps-scraper/scraper"
	"github.com/gosom/yandex-maps-scraper/storage"
)

//go:embed static
var static embed.FS

const defaultSearchLimit = 50

type Server struct {
	tmpl map[string]*template.Template
	srv  *http.Server
	svc  *Service
}

func New(svc *Service, addr string) (*Server, error) {
	ans := Server{
		svc:  svc,
		tmpl: make(map[string]*template.Template),
		srv: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      10 * time.Minute, // search passes run inside the request
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/", ans.index)
	r.Get("/admin", ans.adminPage)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(ans.requireLicense)
			r.Post("/search", ans.apiSearch)
			r.Get("/export/{requestID}", ans.apiExport)
			r.Get("/organizations/{orgID}", ans.apiOrganization)
		})

		r.Post("/admin/auth", ans.apiAdminAuth)

		r.Group(func(r chi.Router) {
			r.Use(ans.requireAdmin)
			r.Post("/admin/licenses", ans.apiCreateLicense)
			r.Get("/admin/licenses", ans.apiListLicenses)
		})
	})

	ans.srv.Handler = r

	tmplKeys := []string{
		"static/templates/index.html",
		"static/templates/admin.html",
	}

	for _, key := range tmplKeys {
		tmp, err := template.ParseFS(static, key)
		if err != nil {
			return nil, err
		}

		ans.tmpl[key] = tmp
	}

	return &ans, nil
}

func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		err := s.srv.Shutdown(context.Background())
		if err != nil {
			log.Println(err)

			return
		}

		log.Println("server stopped")
	}()

	fmt.Fprintf(os.Stderr, "visit http://localhost%s\n", s.srv.Addr)

	err := s.srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	tmpl, ok := s.tmpl["static/templates/index.html"]
	if !ok {
		http.Error(w, "missing tpl", http.StatusInternalServerError)

		return
	}

	_ = tmpl.Execute(w, nil)
}

func (s *Server) adminPage(w http.ResponseWriter, _ *http.Request) {
	tmpl, ok := s.tmpl["static/templates/admin.html"]
	if !ok {
		http.Error(w, "missing tpl", http.StatusInternalServerError)

		return
	}

	_ = tmpl.Execute(w, nil)
}

func (s *Server) apiSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderJSON(w, http.StatusUnprocessableEntity, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
		})

		return
	}

	query := r.Form.Get("query")
	if query == "" {
		renderJSON(w, http.StatusUnprocessableEntity, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: "query is required",
		})

		return
	}

	limit := defaultSearchLimit
	if raw := r.Form.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			renderJSON(w, http.StatusUnprocessableEntity, apiError{
				Code:    http.StatusUnprocessableEntity,
				Message: "invalid limit",
			})

			return
		}

		limit = n
	}

	lic, remaining, ok := licenseFromRequest(r)
	if !ok {
		renderJSON(w, http.StatusInternalServerError, apiError{
			Code:    http.StatusInternalServerError,
			Message: "license missing from context",
		})

		return
	}

	params := SearchParams{
		Query:     query,
		City:      r.Form.Get("city"),
		Limit:     limit,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}

	result, err := s.svc.RunSearch(r.Context(), lic, remaining, params)
	if err != nil {
		if errors.Is(err, scraper.ErrEmptyQuery) {
			renderJSON(w, http.StatusUnprocessableEntity, apiError{
				Code:    http.StatusUnprocessableEntity,
				Message: err.Error(),
			})

			return
		}

		renderJSON(w, http.StatusInternalServerError, apiError{
			Code:    http.StatusInternalServerError,
			Message: fmt.Sprintf("scrape failed: %v", err),
		})

		return
	}

	renderJSON(w, http.StatusOK, searchResponse{
		Success:      true,
		SearchResult: result,
	})
}

type searchResponse struct {
	Success bool `json:"success"`
	*SearchResult
}

func (s *Server) apiExport(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		renderJSON(w, http.StatusUnprocessableEntity, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: "invalid request id",
		})

		return
	}

	entries, err := s.svc.Export(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			renderJSON(w, http.StatusNotFound, apiError{
				Code:    http.StatusNotFound,
				Message: "no results for this request",
			})

			return
		}

		renderJSON(w, http.StatusInternalServerError, apiError{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})

		return
	}

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=results_%d.csv", requestID))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")

		if err := exporter.WriteCSV(w, entries); err != nil {
			log.Printf("csv export of request %d: %v", requestID, err)
		}
	case "excel":
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=results_%d.xlsx", requestID))
		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

		if err := exporter.WriteXLSX(w, entries); err != nil {
			log.Printf("xlsx export of request %d: %v", requestID, err)
		}
	default:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if err := exporter.WriteJSON(w, entries); err != nil {
			log.Printf("json export of request %d: %v", requestID, err)
		}
	}
}

func (s *Server) apiOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	entry, err := s.svc.Details(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, scraper.ErrNotFound) || errors.Is(err, scraper.ErrNoOrgID) {
			renderJSON(w, http.StatusNotFound, apiError{
				Code:    http.StatusNotFound,
				Message: "organization not found",
			})

			return
		}

		renderJSON(w, http.StatusInternalServerError, apiError{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})

		return
	}

	renderJSON(w, http.StatusOK, entry)
}

func (s *Server) apiAdminAuth(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderJSON(w, http.StatusUnprocessableEntity, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
		})

		return
	}

	if s.svc.settings.AdminPassword == "" {
		renderJSON(w, http.StatusForbidden, apiError{
			Code:    http.StatusForbidden,
			Message: "admin access is not configured",
		})

		return
	}

	if r.Form.Get("password") != s.svc.settings.AdminPassword {
		renderJSON(w, http.StatusUnauthorized, apiError{
			Code:    http.StatusUnauthorized,
			Message: "wrong password",
		})

		return
	}

	token, err := s.svc.auth.CreateAccessToken("admin")
	if err != nil {
		renderJSON(w, http.StatusInternalServerError, apiError{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})

		return
	}

	renderJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) apiCreateLicense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderJSON(w, http.StatusUnprocessableEntity, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
		})

		return
	}

	owner := r.Form.Get("owner_name")
	if owner == "" {
		renderJSON(w, http.StatusUnprocessableEntity, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: "owner_name is required",
		})

		return
	}

	durationDays, _ := strconv.Atoi(r.Form.Get("duration_days"))
	requestsPerDay, _ := strconv.Atoi(r.Form.Get("requests_per_day"))

	lic, err := s.svc.CreateLicense(r.Context(), CreateLicenseParams{
		OwnerName:      owner,
		Email:          r.Form.Get("email"),
		DurationDays:   durationDays,
		RequestsPerDay: requestsPerDay,
	})
	if err != nil {
		renderJSON(w, http.StatusInternalServerError, apiError{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})

		return
	}

	renderJSON(w, http.StatusCreated, map[string]any{
		"success":          true,
		"license_key":      lic.Key,
		"expires_at":       lic.ExpiresAt,
		"requests_per_day": lic.RequestsPerDay,
	})
}

func (s *Server) apiListLicenses(w http.ResponseWriter, r *http.Request) {
	infos, err := s.svc.ListLicenses(r.Context())
	if err != nil {
		renderJSON(w, http.StatusInternalServerError, apiError{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})

		return
	}

	renderJSON(w, http.StatusOK, infos)
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func renderJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(data)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
