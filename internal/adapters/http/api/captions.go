package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/captionboard/internal/app"
	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/pkg/logger"
)

const maxBodyBytes = 64 << 10

// Messages clients see when storage fails; details stay in the logs.
const (
	msgSaveFailed  = "Failed to save caption"
	msgFetchFailed = "Failed to fetch captions"
)

// CaptionsHandler serves /api/captions.
type CaptionsHandler struct {
	deps     CaptionDependencies
	maxLimit int
	logger   logger.Logger
}

// NewCaptionsHandler creates a new captions handler.
func NewCaptionsHandler(deps CaptionDependencies, maxLimit int, l logger.Logger) *CaptionsHandler {
	return &CaptionsHandler{deps: deps, maxLimit: maxLimit, logger: l}
}

type submitResponse struct {
	Success bool `json:"success"`
}

// HandleCaptions dispatches on method.
func (h *CaptionsHandler) HandleCaptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.HandlePostCaption(w, r)
	case http.MethodGet:
		h.HandleGetCaptions(w, r)
	default:
		writeMethodNotAllowed(w, "api.captions", "GET, POST")
	}
}

// HandlePostCaption handles POST /api/captions.
func (h *CaptionsHandler) HandlePostCaption(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_caption"
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var sub model.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	if _, err := h.deps.AddCaption(r.Context(), sub); err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		h.logger.Error(r.Context(), "caption not saved",
			logger.String("request_id", RequestID(r.Context())),
			logger.String("date", sub.ChallengeDate),
			logger.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: msgSaveFailed})
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Success: true})
}

// HandleGetCaptions handles GET /api/captions?date=YYYY-MM-DD&limit=N.
func (h *CaptionsHandler) HandleGetCaptions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_captions"
	q := r.URL.Query()

	date := q.Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("date is required")))
		return
	}
	if _, err := model.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request",
				wrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer")))
			return
		}
		limit = min(n, h.maxLimit)
	}

	records, err := h.deps.TopCaptions(r.Context(), date, limit)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		h.logger.Error(r.Context(), "leaderboard not served",
			logger.String("request_id", RequestID(r.Context())),
			logger.String("date", date),
			logger.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: msgFetchFailed})
		return
	}
	if records == nil {
		records = []model.CaptionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
