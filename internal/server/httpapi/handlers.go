// Package httpapi exposes the secret lifecycle over HTTP. Handlers stay
// thin: decode, call the service, map sentinel errors to status codes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/0101Programmer/one-time-secrets/internal/common"
	"github.com/0101Programmer/one-time-secrets/internal/logging"
	"github.com/0101Programmer/one-time-secrets/internal/server/models"
	"github.com/0101Programmer/one-time-secrets/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// SecretService is the engine surface the handlers need.
type SecretService interface {
	Create(ctx context.Context, secretText string, passphrase *string, ttlSeconds *int, ipAddress string) (string, error)
	Read(ctx context.Context, secretKey string, passphrase *string, ipAddress string) (string, error)
	Delete(ctx context.Context, secretKey string, ipAddress string) (bool, *int64, error)
	Logs(ctx context.Context, secretKey string) ([]*models.SecretLog, error)
	RunCleanupCycle(ctx context.Context, batchSize int) (*services.CleanupResult, error)
}

type Handler struct {
	svc    SecretService
	logger logging.Logger
}

func NewHandler(svc SecretService, logger logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With("module", "httpapi")}
}

type CreateRequest struct {
	Secret     string  `json:"secret"`
	Passphrase *string `json:"passphrase,omitempty"`
	TTLSeconds *int    `json:"ttl_seconds,omitempty"`
}

type CreateResponse struct {
	SecretKey string `json:"secret_key"`
}

type ReadRequest struct {
	Passphrase *string `json:"passphrase,omitempty"`
}

type ReadResponse struct {
	Secret string `json:"secret"`
}

type DeleteResponse struct {
	Status   string `json:"status"`
	SecretID int64  `json:"secret_id"`
}

type LogEntry struct {
	ID        int64     `json:"id"`
	SecretID  *int64    `json:"secret_id"`
	SecretKey string    `json:"secret_key"`
	Action    string    `json:"action"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Secret == "" {
		h.error(w, http.StatusBadRequest, "secret is required")
		return
	}

	key, err := h.svc.Create(r.Context(), req.Secret, req.Passphrase, req.TTLSeconds, clientIP(r))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.json(w, http.StatusCreated, CreateResponse{SecretKey: key})
}

func (h *Handler) ReadSecret(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	passphrase, ok := h.passphraseFrom(r)
	if !ok {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	secret, err := h.svc.Read(r.Context(), key, passphrase, clientIP(r))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.json(w, http.StatusOK, ReadResponse{Secret: secret})
}

// passphraseFrom accepts the passphrase either as a query parameter or in an
// optional JSON body. The query form wins when both are present.
func (h *Handler) passphraseFrom(r *http.Request) (*string, bool) {
	if r.URL.Query().Has("passphrase") {
		p := r.URL.Query().Get("passphrase")
		return &p, true
	}

	if r.Body == nil || r.ContentLength == 0 {
		return nil, true
	}
	var req ReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, false
	}
	return req.Passphrase, true
}

func (h *Handler) DeleteSecret(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	deleted, id, err := h.svc.Delete(r.Context(), key, clientIP(r))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	switch {
	case deleted:
		h.json(w, http.StatusOK, DeleteResponse{Status: "secret_deleted", SecretID: *id})
	case id != nil:
		h.error(w, http.StatusGone, "secret already deleted")
	default:
		h.error(w, http.StatusNotFound, "secret not found")
	}
}

func (h *Handler) SecretLogs(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	trail, err := h.svc.Logs(r.Context(), key)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	entries := make([]LogEntry, 0, len(trail))
	for _, log := range trail {
		entries = append(entries, LogEntry{
			ID:        log.ID,
			SecretID:  log.SecretID,
			SecretKey: log.SecretKey,
			Action:    log.Action,
			IPAddress: log.IPAddress,
			CreatedAt: log.CreatedAt,
		})
	}
	h.json(w, http.StatusOK, entries)
}

func (h *Handler) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunCleanupCycle(r.Context(), 0)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.json(w, http.StatusOK, result)
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	h.json(w, status, ErrorResponse{Error: message})
}

func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		h.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		h.error(w, http.StatusNotFound, "secret not found")
	case errors.Is(err, common.ErrPassphraseMismatch):
		h.error(w, http.StatusForbidden, "invalid passphrase")
	case errors.Is(err, common.ErrPassphraseNotSet):
		h.error(w, http.StatusForbidden, "secret has no passphrase")
	case errors.Is(err, common.ErrSecretExpired):
		h.error(w, http.StatusGone, "secret expired and has been automatically deleted")
	case errors.Is(err, common.ErrSecretConsumed):
		h.error(w, http.StatusGone, "secret already accessed")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		h.error(w, http.StatusInternalServerError, "internal error")
	}
}

// clientIP returns the caller's address. Behind the RealIP middleware
// RemoteAddr may already be a bare IP with no port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
