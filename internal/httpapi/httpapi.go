// Package httpapi exposes the JSON API: routing, auth middleware, request
// decoding, and the mapping from domain errors to HTTP responses.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/service"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store"
)

const maxBodyBytes = 1 << 20

type Server struct {
	svc           *service.Service
	auth          *AuthManager
	log           zerolog.Logger
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, log zerolog.Logger, allowedOrigin string) *Server {
	return &Server{
		svc:           svc,
		auth:          auth,
		log:           log.With().Str("component", "httpapi").Logger(),
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(s.secure)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/products", s.handleListProducts)
			r.Get("/products/{id}", s.handleGetProduct)
			r.Get("/categories", s.handleListCategories)
			r.Get("/suppliers", s.handleListSuppliers)
			r.Get("/inventory/low-stock", s.handleLowStock)
			r.Get("/inventory/movements", s.handleListMovements)

			r.Get("/cart", s.handleCart)
			r.Post("/cart/items", s.handleAddToCart)
			r.Put("/cart/items/{id}", s.handleUpdateCartItem)
			r.Delete("/cart/items/{id}", s.handleRemoveFromCart)
			r.Delete("/cart", s.handleClearCart)

			r.Post("/checkout", s.handleCheckout)
			r.Get("/sales", s.handleListSales)
			r.Get("/sales/summary/daily", s.handleDailySummary)
			r.Get("/sales/{id}", s.handleGetSale)
			r.Get("/sales/{id}/receipt", s.handleReceipt)
			r.Get("/refunds", s.handleListRefunds)

			r.Group(func(r chi.Router) {
				r.Use(s.adminOnly)

				r.Post("/products", s.handleCreateProduct)
				r.Get("/products/archived", s.handleArchivedProducts)
				r.Put("/products/{id}", s.handleUpdateProduct)
				r.Delete("/products/{id}", s.handleArchiveProduct)
				r.Post("/products/{id}/restore", s.handleRestoreProduct)
				r.Delete("/products/{id}/permanent", s.handlePurgeProduct)
				r.Post("/categories", s.handleCreateCategory)
				r.Post("/suppliers", s.handleCreateSupplier)
				r.Post("/inventory/movements", s.handleRecordMovement)
				r.Get("/inventory/value", s.handleInventoryValue)
				r.Get("/inventory/reconcile/{id}", s.handleReconcileStock)
				r.Post("/refunds", s.handleCreateRefund)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.loginLimiter.Allow(clientKey(r)) {
		s.writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "TooManyRequests", Message: "too many login attempts, try again later"})
		return
	}

	var req domain.LoginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}

	resp, err := s.auth.Login(req)
	if err != nil {
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized", Message: "invalid credentials"})
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// secure sets the baseline response headers, answers CORS preflights, and
// caps request body size.
func (s *Server) secure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if s.allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "InternalError", Message: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized", Message: "missing bearer token"})
			return
		}
		actor, err := s.auth.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized", Message: "invalid or expired token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := service.ActorFromContext(r.Context())
		if !ok || actor.Role != domain.RoleAdmin {
			s.writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden", Message: "admin role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// attemptLimiter keeps a sliding window of attempts per key.
type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

// clientKey strips the ephemeral port from RemoteAddr so repeated attempts
// over fresh connections share one limiter window. RealIP has already
// substituted proxy headers when present.
func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			s.log.Warn().Err(err).Msg("response encode failed")
		}
	}
}

// decodeJSON rejects unknown fields and oversized bodies, writing the 400
// itself so handlers can just return on error.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "InvalidRequest", Message: "invalid request body"})
		return err
	}
	return nil
}

// writeError maps service and store errors onto structured responses.
// Anything unrecognized is logged and reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validation  *domain.ValidationError
		stockErr    *domain.InsufficientStockError
		paymentErr  *domain.InsufficientPaymentError
		quantityErr *domain.InvalidQuantityError
	)

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized", Message: "authentication required"})
	case errors.Is(err, service.ErrAdminRequired):
		s.writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden", Message: "admin role required"})
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "NotFound", Message: "resource not found"})
	case errors.As(err, &stockErr):
		s.writeJSON(w, http.StatusConflict, errorBody{
			Error:   "InsufficientStock",
			Message: stockErr.Error(),
			Details: map[string]any{
				"product_id":   stockErr.ProductID,
				"product_name": stockErr.ProductName,
				"requested":    stockErr.Requested,
				"available":    stockErr.Available,
				"shortfall":    stockErr.Shortfall(),
			},
		})
	case errors.Is(err, domain.ErrEmptyCart):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "EmptyCart", Message: "cart is empty"})
	case errors.Is(err, domain.ErrInvalidPaymentAmount):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "InvalidPaymentAmount", Message: "amount paid must be greater than zero"})
	case errors.As(err, &paymentErr):
		s.writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "InsufficientPayment",
			Message: paymentErr.Error(),
			Details: map[string]any{
				"total":       paymentErr.Total.StringFixed(2),
				"amount_paid": paymentErr.AmountPaid.StringFixed(2),
				"shortage":    paymentErr.Shortage().StringFixed(2),
			},
		})
	case errors.As(err, &quantityErr):
		s.writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "InvalidQuantity",
			Message: quantityErr.Error(),
			Details: map[string]any{
				"requested": quantityErr.Requested,
				"remaining": quantityErr.Remaining,
			},
		})
	case errors.Is(err, store.ErrConflict):
		s.writeJSON(w, http.StatusConflict, errorBody{Error: "ConcurrencyConflict", Message: "the sale could not be completed, please retry"})
	case errors.As(err, &validation):
		s.writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "InvalidRequest",
			Message: validation.Message,
			Details: map[string]any{"field": validation.Field},
		})
	case errors.Is(err, store.ErrInvalidInput):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "InvalidRequest", Message: err.Error()})
	default:
		s.log.Error().Err(err).Msg("request failed")
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "InternalError", Message: "internal server error"})
	}
}
