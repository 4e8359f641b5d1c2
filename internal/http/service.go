package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/grocyhq/grocy-pos/internal/apperr"
	"github.com/grocyhq/grocy-pos/internal/config"
	"github.com/grocyhq/grocy-pos/internal/http/apierr"
	"github.com/grocyhq/grocy-pos/internal/http/metric"
	"github.com/grocyhq/grocy-pos/internal/http/middleware"
	"github.com/grocyhq/grocy-pos/internal/http/swagger"
	"github.com/grocyhq/grocy-pos/internal/service"
	"github.com/grocyhq/grocy-pos/pkg/validator"
)

var tracer = otel.Tracer("internal/http")

// Service represents the HTTP service.
type Service struct {
	cfg       config.HTTP
	logger    *slog.Logger
	metrics   *metric.Metrics
	validator validator.Validator

	inventorySvc  service.InventoryService
	saleProcessor service.SaleProcessor
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	log *slog.Logger,
	v validator.Validator,
	inventorySvc service.InventoryService,
	saleProcessor service.SaleProcessor,
) *Service {
	return &Service{
		cfg:           cfg,
		logger:        log.With(slog.String("service", "http")),
		metrics:       metric.New(),
		validator:     v,
		inventorySvc:  inventorySvc,
		saleProcessor: saleProcessor,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		swagger.Register(r)
	}

	s.RegisterHandlers(r)

	return s.RunWithServer(ctx, r)
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	inventory := newInventoryHandler(s, s.inventorySvc)
	sale := newSaleHandler(s, s.inventorySvc, s.saleProcessor)

	r.Get("/inventory", inventory.list)
	r.Post("/inventory", inventory.add)
	r.Put("/inventory/{id}", inventory.update)
	r.Post("/inventory/import", inventory.importCSV)

	// legacy paths the browser client calls
	r.Post("/add-product", inventory.add)
	r.Post("/save-inventory", inventory.saveRaw)

	r.Post("/process-sale", sale.processSale)
	r.Post("/search-product", sale.searchProduct)

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
}

func (s *Service) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding response", slog.Any("error", err))
	}
}

// writeError funnels every handler error through the zerror/validator
// mapping and logs it at a level matching the response class.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}

// decodeJSON parses and validates a request body into req.
func (s *Service) decodeJSON(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return apperr.ValidationErr.WrapParent(fmt.Errorf("decode request body: %w", err))
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	return nil
}
