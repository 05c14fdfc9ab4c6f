package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bookable/internal/config"
	"bookable/internal/metrics"
	"bookable/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// Services are the engine components the HTTP API delegates to.
type Services struct {
	Catalog      *service.CatalogService
	Calendar     *service.CalendarService
	Availability *service.AvailabilityService
	Ledger       *service.BookingLedger
	Health       HealthChecker
}

// HTTPServer exposes the scheduling engine as a JSON API.
type HTTPServer struct {
	cfg    config.APIConfig
	svc    Services
	server *http.Server
	auth   *HTTPAuth
	log    zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{cfg: cfg, svc: svc, auth: NewHTTPAuth(cfg), log: zerolog.Nop()}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	s.handle(mux, "GET /healthz", "", "healthz", s.handleHealthz)

	s.handle(mux, "GET /api/v1/services", permReadAvailability, "services", s.handleListServices)
	s.handle(mux, "POST /api/v1/services", permManageCatalog, "services", s.handleCreateService)
	s.handle(mux, "GET /api/v1/services/{id}", permReadAvailability, "service", s.handleGetService)
	s.handle(mux, "PUT /api/v1/services/{id}", permManageCatalog, "service", s.handleUpdateService)
	s.handle(mux, "DELETE /api/v1/services/{id}", permManageCatalog, "service", s.handleDeactivateService)

	s.handle(mux, "GET /api/v1/services/{id}/staff", permReadAvailability, "staff", s.handleListStaff)
	s.handle(mux, "POST /api/v1/services/{id}/staff", permManageCatalog, "staff", s.handleAddStaff)
	s.handle(mux, "DELETE /api/v1/staff/{id}", permManageCatalog, "staff", s.handleDeactivateStaff)

	s.handle(mux, "GET /api/v1/services/{id}/windows", permReadAvailability, "windows", s.handleListWindows)
	s.handle(mux, "POST /api/v1/services/{id}/windows", permManageCatalog, "windows", s.handleAddWindow)
	s.handle(mux, "PUT /api/v1/windows/{id}", permManageCatalog, "window", s.handleUpdateWindow)
	s.handle(mux, "DELETE /api/v1/windows/{id}", permManageCatalog, "window", s.handleRemoveWindow)

	s.handle(mux, "GET /api/v1/services/{id}/slots", permReadAvailability, "slots", s.handleSlots)
	s.handle(mux, "GET /api/v1/services/{id}/check", permReadAvailability, "check", s.handleCheckSlot)
	s.handle(mux, "GET /api/v1/services/{id}/availability", permReadAvailability, "availability", s.handlePeriod)

	s.handle(mux, "GET /api/v1/bookings", permWriteBookings, "bookings", s.handleListBookings)
	s.handle(mux, "POST /api/v1/bookings", permWriteBookings, "bookings", s.handleCreateBooking)
	s.handle(mux, "GET /api/v1/bookings/{id}", permWriteBookings, "booking", s.handleGetBooking)
	s.handle(mux, "POST /api/v1/bookings/{id}/confirm", permWriteBookings, "booking_confirm", s.handleConfirm)
	s.handle(mux, "POST /api/v1/bookings/{id}/cancel", permWriteBookings, "booking_cancel", s.handleCancel)
	s.handle(mux, "POST /api/v1/bookings/{id}/complete", permWriteBookings, "booking_complete", s.handleComplete)
	s.handle(mux, "POST /api/v1/bookings/{id}/no-show", permWriteBookings, "booking_no_show", s.handleNoShow)

	s.handle(mux, "GET /api/v1/exports/bookings", permReadExports, "export_bookings", s.handleExportBookings)
}

// handle registers a route behind auth; endpoint labels the request counter.
func (s *HTTPServer) handle(mux *http.ServeMux, pattern, permission, endpoint string, h http.HandlerFunc) {
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(endpoint)
		h(w, r)
	})
	if permission == "" {
		mux.Handle(pattern, counted)
		return
	}
	mux.Handle(pattern, s.auth.Require(permission, counted))
}

// Handler is the fully wrapped router.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		if err := s.svc.Health.Healthy(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
