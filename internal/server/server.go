// Package server exposes the comparison service and the admin API over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/loan-compare/internal/comparison"
	"github.com/iwvelando/loan-compare/internal/metrics"
	"github.com/iwvelando/loan-compare/internal/store"
	"github.com/iwvelando/loan-compare/pkg/constants"
)

// Options configures the HTTP handler. Zero values are usable.
type Options struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	MaxBodySize int64
	// AdminToken, when set, must be sent as a bearer token on admin routes.
	AdminToken string
	Version    string
	Now        func() time.Time
}

// pinger is implemented by stores that can check their backing connection.
type pinger interface {
	Ping(ctx context.Context) error
}

type handler struct {
	service     *comparison.Service
	store       store.Store
	logger      *zap.Logger
	metrics     *metrics.Metrics
	maxBodySize int64
	adminToken  string
	version     string
	now         func() time.Time
}

// NewHandler constructs the HTTP handler that serves the comparison and admin API.
func NewHandler(service *comparison.Service, st store.Store, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxBodySize := opts.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	h := &handler{
		service:     service,
		store:       st,
		logger:      logger,
		metrics:     opts.Metrics,
		maxBodySize: maxBodySize,
		adminToken:  opts.AdminToken,
		version:     trimmedVersion,
		now:         now,
	}

	mux := http.NewServeMux()
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, h.instrument(pattern, fn))
	}

	// Comparison
	route("POST /api/compare", h.handleCompare)
	route("GET /api/calculations", h.handleCalculations)

	// Reference data
	route("GET /api/banks", h.handleBanks)
	route("GET /api/promotions", h.handlePromotions)
	route("GET /api/rules", h.handleRules)

	// Admin
	route("PUT /api/admin/banks/{id}", h.admin(h.handlePutBank))
	route("DELETE /api/admin/banks/{id}", h.admin(h.handleDeleteBank))
	route("PUT /api/admin/banks/{short}/base-rate", h.admin(h.handlePutBaseRate))
	route("PUT /api/admin/promotions/{id}", h.admin(h.handlePutPromotion))
	route("DELETE /api/admin/promotions/{id}", h.admin(h.handleDeletePromotion))
	route("PUT /api/admin/rules/{id}", h.admin(h.handlePutRule))
	route("DELETE /api/admin/rules/{id}", h.admin(h.handleDeleteRule))

	// Operations
	route("GET /api/version", h.handleVersion)
	route("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", h.metrics.Handler())

	return mux
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		h.metrics.ObserveRequest(route, rec.status, time.Since(start))
	})
}

// admin rejects requests without the configured bearer token.
func (h *handler) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken != "" {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
				h.respondErrorWithOp(w, http.StatusUnauthorized, "admin token required", "server.admin")
				return
			}
		}
		next(w, r)
	}
}

func (h *handler) handleVersion(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.respondErrorWithOp(w, http.StatusServiceUnavailable, err.Error(), "server.handleHealth")
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody reads a size-limited JSON body into dst. It writes the error
// response itself and reports whether decoding succeeded.
func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.respondErrorBody(w, status, map[string]interface{}{"error": msg}, op)
}

func (h *handler) respondErrorBody(w http.ResponseWriter, status int, body map[string]interface{}, op string) {
	log := h.logger.Warn
	if status >= http.StatusInternalServerError {
		log = h.logger.Error
	}
	log("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.Any("error", body["error"]),
	)

	h.writeJSON(w, status, body)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}
