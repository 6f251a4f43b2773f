package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vbonduro/applicheck/internal/logging"
	"github.com/vbonduro/applicheck/internal/metrics"
	"github.com/vbonduro/applicheck/internal/service"
)

const shutdownTimeout = 10 * time.Second

// ImageURLPrefix is the path photos are served under. Inventory image URLs
// are this prefix followed by the photo's storage key.
const ImageURLPrefix = "/images/"

type Server struct {
	appliances    *service.ApplianceService
	checks        *service.CheckService
	reports       *service.ReportService
	metrics       *metrics.Metrics
	defaultOrg    string
	maxPhotoBytes int64
	router        *chi.Mux
	logger        *slog.Logger
}

type Options struct {
	// DefaultOrg is used when a request carries no X-Org header.
	DefaultOrg    string
	MaxPhotoBytes int64
}

func NewServer(
	appliances *service.ApplianceService,
	checks *service.CheckService,
	reports *service.ReportService,
	m *metrics.Metrics,
	opts Options,
	logger *slog.Logger,
) *Server {
	s := &Server{
		appliances:    appliances,
		checks:        checks,
		reports:       reports,
		metrics:       m,
		defaultOrg:    opts.DefaultOrg,
		maxPhotoBytes: opts.MaxPhotoBytes,
		router:        chi.NewRouter(),
		logger:        logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/images/{key}", s.handleGetImage)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.identify)

		r.Get("/appliances", s.handleListAppliances)
		r.Post("/appliances", s.handleCreateAppliance)
		r.Route("/appliances/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetInventory)
			r.Put("/", s.handleSaveInventory)
			r.Delete("/", s.handleDeleteAppliance)
			r.Post("/lockers", s.handleEditLocker)
			r.Put("/lockers/{lockerID}", s.handleEditLocker)
			r.Delete("/lockers/{lockerID}", s.handleDeleteLocker)
			r.Post("/images", s.handleUploadImage)

			r.Get("/check", s.handleCheckStatus)
			r.Post("/check", s.handleStartCheck)
			r.Get("/check/view", s.handleCheckView)
			r.Post("/check/actions", s.handleCheckAction)
			r.Post("/check/finalize", s.handleFinalizeCheck)
			r.Post("/check/exit", s.handleExitCheck)
		})
		r.Delete("/images/{key}", s.handleDeleteImage)
		r.Post("/describe", s.handleDescribe)

		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{id}", s.handleGetReport)
		r.Get("/reports/{id}/pdf", s.handleReportPDF)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger attaches a request-scoped logger to the context, logs each
// request and counts it.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(logging.WithLogger(r.Context(), logger)))

		s.metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
