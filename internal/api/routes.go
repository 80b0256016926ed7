package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"catalog-sync-service/internal/auth"
	"catalog-sync-service/internal/catalog"
	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/logger"
	"catalog-sync-service/internal/notify"
	"catalog-sync-service/internal/store"
	"catalog-sync-service/internal/sync"
)

// SyncService is the sync manager as exposed over HTTP.
type SyncService interface {
	Trigger() error
	GetStatus() string
	LastRun() *notify.Summary
	SyncStates(ctx context.Context) ([]*store.SyncState, error)
	History(ctx context.Context, limit, offset int) ([]*store.SyncHistory, error)
	Conflicts(ctx context.Context, resolved bool, limit, offset int) ([]*store.Conflict, error)
}

type ProductService interface {
	List(ctx context.Context) ([]*catalog.Product, error)
	Get(ctx context.Context, code string) (*catalog.Product, error)
	Insert(ctx context.Context, p *catalog.Product) error
	Update(ctx context.Context, p *catalog.Product) error
	MarkDeleted(ctx context.Context, code string) error
}

type Authenticator interface {
	Register(ctx context.Context, firstName, lastName, password string) (*catalog.User, error)
	Login(ctx context.Context, firstName, password string) (*auth.Session, error)
	Authenticate(token string) (*auth.Claims, error)
}

type Handler struct {
	cfg         config.ServerConfig
	syncManager SyncService
	products    ProductService
	auth        Authenticator
}

func NewHandler(cfg config.ServerConfig, manager SyncService, products ProductService, authenticator Authenticator) *Handler {
	return &Handler{
		cfg:         cfg,
		syncManager: manager,
		products:    products,
		auth:        authenticator,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CorsMiddleware(h.cfg.CorsOrigins))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.cfg.AuthToken, h.auth))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.ListProducts)
				r.Post("/", h.CreateProduct)
				r.Get("/{code}", h.GetProduct)
				r.Put("/{code}", h.UpdateProduct)
				r.Delete("/{code}", h.DeleteProduct)
			})

			r.Post("/sync/trigger", h.TriggerSync)
			r.Get("/sync/status", h.GetSyncStatus)
			r.Get("/sync/history", h.GetSyncHistory)
			r.Get("/sync/conflicts", h.GetConflicts)
		})
	})

	return r
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if err := h.syncManager.Trigger(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

type syncStatusResponse struct {
	Status  string             `json:"status"`
	LastRun *notify.Summary    `json:"last_run,omitempty"`
	Tables  []*store.SyncState `json:"tables"`
}

func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	states, err := h.syncManager.SyncStates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if states == nil {
		states = []*store.SyncState{}
	}

	writeJSON(w, http.StatusOK, syncStatusResponse{
		Status:  h.syncManager.GetStatus(),
		LastRun: h.syncManager.LastRun(),
		Tables:  states,
	})
}

func (h *Handler) GetSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	history, err := h.syncManager.History(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []*store.SyncHistory{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	resolved := r.URL.Query().Get("resolved") == "true"

	conflicts, err := h.syncManager.Conflicts(r.Context(), resolved, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if conflicts == nil {
		conflicts = []*store.Conflict{}
	}
	writeJSON(w, http.StatusOK, conflicts)
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func pagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset, err = strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrUserExists), errors.Is(err, errProductExists), errors.Is(err, sync.ErrAlreadyRunning):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Log.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("requestID", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// CorsMiddleware allows the configured origins; an empty list or "*" allows
// any origin.
func CorsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware accepts either the static service token or a session JWT
// as a bearer token.
func AuthMiddleware(staticToken string, authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
				return
			}

			if staticToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(staticToken)) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			if authenticator != nil {
				if _, err := authenticator.Authenticate(token); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		})
	}
}
