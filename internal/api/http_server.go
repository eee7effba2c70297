package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wardrobe/internal/config"
	"wardrobe/internal/domain"
	"wardrobe/internal/logging"
	"wardrobe/internal/models"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const apiPrefix = "/api/v1"

// ReportWriter renders the desk spreadsheet.
type ReportWriter interface {
	Write(ctx context.Context, w io.Writer) error
}

// Pinger reports storage readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services is everything the HTTP API dispatches to. Photos, Reports, State,
// Hub and Ready are optional.
type Services struct {
	Items       domain.ItemService
	Bookings    domain.BookingService
	Returns     domain.ReturnService
	Inspections domain.InspectionService
	Photos      domain.PhotoStore
	Reports     ReportWriter
	State       domain.RequestStateRepository
	Tokens      *TokenManager
	Hub         *Hub
	Ready       Pinger

	// UploadsDir is served under UploadsPrefix when photos are stored locally.
	UploadsDir    string
	UploadsPrefix string
	MaxPhotos     int
	MaxPhotoSize  int64
}

// HTTPServer exposes the rental REST API and the event stream.
type HTTPServer struct {
	cfg            config.APIConfig
	svc            Services
	tokens         *TokenManager
	state          domain.RequestStateRepository
	gate           *clientGate
	limiter        *rateLimiter
	router         *mux.Router
	server         *http.Server
	perPrincipal   int
	window         time.Duration
	idempotencyTTL time.Duration
	maxPhotos      int
	maxPhotoSize   int64
	log            *zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:            *cfg,
		svc:            svc,
		tokens:         svc.Tokens,
		state:          svc.State,
		gate:           newClientGate(cfg.Auth),
		limiter:        newRateLimiter(cfg.RateLimit),
		perPrincipal:   cfg.RateLimit.PerPrincipal,
		window:         time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		idempotencyTTL: time.Duration(cfg.IdempotencyTTLSec) * time.Second,
		maxPhotos:      svc.MaxPhotos,
		maxPhotoSize:   svc.MaxPhotoSize,
		log:            logging.Component(logger, "http"),
	}
	if s.perPrincipal <= 0 {
		s.perPrincipal = models.RateLimitRequests
	}
	if s.window <= 0 {
		s.window = models.RateLimitWindow * time.Second
	}
	if s.idempotencyTTL <= 0 {
		s.idempotencyTTL = models.DefaultIdempotencyTTL * time.Second
	}
	if s.maxPhotos <= 0 {
		s.maxPhotos = models.MaxPhotosPerUpload
	}
	if s.maxPhotoSize <= 0 {
		s.maxPhotoSize = models.MaxPhotoSize
	}

	s.router = s.routes()
	handler := s.loggingMiddleware(s.recoveryMiddleware(corsMiddleware(s.gatewayMiddleware(s.router))))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)

	if s.svc.UploadsDir != "" {
		prefix := strings.TrimRight(s.svc.UploadsPrefix, "/") + "/"
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(s.svc.UploadsDir)))).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix(apiPrefix).Subrouter()
	v1.Use(s.authMiddleware, s.principalLimitMiddleware, s.idempotencyMiddleware)

	v1.HandleFunc("/items", s.handleCreateItem).Methods(http.MethodPost)
	v1.HandleFunc("/items/mine", s.handleListOwnerItems).Methods(http.MethodGet)
	v1.HandleFunc("/items/{id:[0-9]+}", s.handleGetItem).Methods(http.MethodGet)

	v1.HandleFunc("/bookings", s.handleCreateBooking).Methods(http.MethodPost)
	v1.HandleFunc("/bookings/mine", s.handleListRenterBookings).Methods(http.MethodGet)
	v1.HandleFunc("/bookings/owner", s.handleListOwnerBookings).Methods(http.MethodGet)
	v1.HandleFunc("/bookings/{id:[0-9]+}/cancel", s.handleCancelBooking).Methods(http.MethodPost)

	v1.HandleFunc("/returns", s.handleInitiateReturn).Methods(http.MethodPost)
	v1.HandleFunc("/returns/mine", s.handleListRenterReturns).Methods(http.MethodGet)
	v1.HandleFunc("/returns/owner", s.handleListOwnerReturns).Methods(http.MethodGet)
	v1.HandleFunc("/returns/disputed", s.handleListDisputed).Methods(http.MethodGet)
	v1.HandleFunc("/returns/booking/{bookingId:[0-9]+}", s.handleGetReturnByBooking).Methods(http.MethodGet)
	v1.HandleFunc("/returns/{id:[0-9]+}", s.handleGetReturn).Methods(http.MethodGet)
	v1.HandleFunc("/returns/{id:[0-9]+}/photos", s.handleAddPhotos).Methods(http.MethodPost)
	v1.HandleFunc("/returns/{id:[0-9]+}/inspection", s.handleBeginInspection).Methods(http.MethodPost)
	v1.HandleFunc("/returns/{id:[0-9]+}/review", s.handleReviewReturn).Methods(http.MethodPost)
	v1.HandleFunc("/returns/{id:[0-9]+}/resolve", s.handleResolveDispute).Methods(http.MethodPost)

	v1.HandleFunc("/reports/desk.xlsx", s.handleDeskReport).Methods(http.MethodGet)
	v1.HandleFunc("/ws", s.handleWebsocket).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethod, "method not allowed")
	})
	return r
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Ready.PingContext(ctx); err != nil {
			s.log.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "unavailable", "storage not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
