package api

import (
	"net/http"

	"github.com/okian/captionboard/internal/adapters/stories"
	"github.com/okian/captionboard/pkg/logger"
)

// StoriesHandler serves the community stories feed.
type StoriesHandler struct {
	deps   StoriesDependencies
	logger logger.Logger
}

// NewStoriesHandler creates a new stories handler.
func NewStoriesHandler(deps StoriesDependencies, l logger.Logger) *StoriesHandler {
	return &StoriesHandler{deps: deps, logger: l}
}

// HandleCommunity handles GET /api/stories/community.
func (h *StoriesHandler) HandleCommunity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, "api.stories", "GET")
		return
	}
	feed, err := h.deps.CommunityStories(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "stories not served",
			logger.String("request_id", RequestID(r.Context())),
			logger.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{Code: "upstream_error", Message: "Failed to fetch stories"})
		return
	}
	if feed == nil {
		feed = []stories.Story{}
	}
	writeJSON(w, http.StatusOK, feed)
}
