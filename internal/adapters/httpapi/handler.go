package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
	"github.com/atvirokodosprendimai/libraryapi/internal/core/ports"
	"github.com/atvirokodosprendimai/libraryapi/internal/core/usecase"
)

type ctxKey string

const (
	loggerCtxKey    ctxKey = "logger"
	principalCtxKey ctxKey = "principal"
	maxJSONBodySize        = 1 << 20
)

type Options struct {
	Title   string
	Version string
	Logger  *slog.Logger

	Auth    *usecase.AuthService
	Books   *usecase.RecordService[domain.Book]
	Authors *usecase.RecordService[domain.Author]

	// Readiness is pinged by /readyz. Nil means always ready.
	Readiness ports.Pinger

	CORSOrigins []string
	// RateLimit disables per-client limiting when RequestsPerSecond is zero.
	RateLimit RateLimit
}

type Handler struct {
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Set
	limiter *clientLimiter
}

func NewHandler(opts Options) (*Handler, error) {
	if opts.Auth == nil || opts.Books == nil || opts.Authors == nil {
		return nil, errors.New("httpapi: auth, books and authors services are required")
	}
	if opts.Title == "" {
		opts.Title = "Library API"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	h := &Handler{opts: opts, logger: logger, metrics: metrics.NewSet()}
	if opts.RateLimit.RequestsPerSecond > 0 {
		h.limiter = newClientLimiter(opts.RateLimit)
	}
	return h, nil
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(h.logRequests, h.meterRequests, h.recoverPanics)
	if len(h.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{"Location", requestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Get("/metrics", h.writeMetrics)
	r.Get("/openapi.json", h.openapi)
	r.Get("/docs", h.docs)

	r.Group(func(api chi.Router) {
		if h.limiter != nil {
			api.Use(h.limiter.middleware)
		}
		mountResource(api, h, "/books", h.opts.Books)
		mountResource(api, h, "/authors", h.opts.Authors)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.opts.Readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.opts.Readiness.Ping(ctx); err != nil {
			h.requestLogger(r).Warn("readiness check failed", "err", err)
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	h.metrics.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}

type errorBody struct {
	Message string `json:"message"`
}

type validationErrorBody struct {
	Message string             `json:"message"`
	Errors  domain.FieldErrors `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		slog.Error("encode json response", "err", err)
		http.Error(w, `{"message":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		slog.Debug("write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

// handleDomainError renders err. Anything that is not a known client error
// is logged and reported as an opaque 500.
func (h *Handler) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, validationErrorBody{Message: "Validation failed", Errors: validation.Errors})
	case errors.Is(err, domain.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidIdentifier.Error())
	case errors.Is(err, domain.ErrMalformedBody):
		writeError(w, http.StatusBadRequest, domain.ErrMalformedBody.Error())
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
	case errors.Is(err, domain.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.requestLogger(r).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	if logger, ok := r.Context().Value(loggerCtxKey).(*slog.Logger); ok {
		return logger
	}
	return h.logger
}

func principalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(domain.Principal)
	return p, ok
}
