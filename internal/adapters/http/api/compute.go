package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	service "github.com/okian/captionboard/internal/app"
	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/pkg/logger"
)

// ComputeHandler serves the scoring trigger and the computed status.
type ComputeHandler struct {
	deps         ComputeDependencies
	secretHeader string
	secret       string
	logger       logger.Logger
}

// NewComputeHandler creates a new compute handler.
func NewComputeHandler(deps ComputeDependencies, secretHeader, secret string, l logger.Logger) *ComputeHandler {
	return &ComputeHandler{deps: deps, secretHeader: secretHeader, secret: secret, logger: l}
}

type computeResponse struct {
	Success bool   `json:"success"`
	Date    string `json:"date"`
	Updated int    `json:"updated"`
}

type statusResponse struct {
	Date       string     `json:"date"`
	Computed   bool       `json:"computed"`
	ComputedAt *time.Time `json:"computedAt,omitempty"`
}

// HandleCompute handles GET /api/captions/compute?date=YYYY-MM-DD. The caller
// must present the shared secret.
func (h *ComputeHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.compute"
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeMethodNotAllowed(w, op, "GET, POST")
		return
	}
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", wrapKind(op, ErrUnauthorized, nil))
		return
	}

	date := r.URL.Query().Get("date")
	if _, err := model.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	updated, err := h.deps.ComputeScores(r.Context(), date)
	if err != nil {
		h.logger.Error(r.Context(), "scoring pass failed",
			logger.String("request_id", RequestID(r.Context())),
			logger.String("date", date),
			logger.Error(err),
		)
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "bad_request", err)
		case errors.Is(err, service.ErrUpstreamCompute):
			writeJSON(w, http.StatusBadGateway, errorResponse{Code: "upstream_error", Message: "Failed to compute scores"})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: "Failed to save scores"})
		}
		return
	}
	writeJSON(w, http.StatusOK, computeResponse{Success: true, Date: date, Updated: updated})
}

// HandleStatus handles GET /api/captions/status?date=YYYY-MM-DD.
func (h *ComputeHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.status"
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, op, "GET")
		return
	}
	date := r.URL.Query().Get("date")
	marker, ok, err := h.deps.Status(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	resp := statusResponse{Date: date, Computed: ok && marker.Computed}
	if ok {
		at := marker.ComputedAt
		resp.ComputedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

// authorized compares the secret header in constant time. With no secret
// configured nobody is authorized.
func (h *ComputeHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	got := r.Header.Get(h.secretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}
