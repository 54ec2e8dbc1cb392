package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloo-solutions/rerankd/internal/api"
	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/service"
)

type SearchLogService interface {
	LogSearch(ctx context.Context, input service.LogSearchInput) (*domain.Search, error)
}

type SearchHandler struct {
	svc SearchLogService
}

func NewSearchHandler(svc SearchLogService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type AddSearchRequest struct {
	ConversationID string `json:"conversation_id"`
	UserSearch     string `json:"user_search"`
	APIHostname    string `json:"api_hostname"`
	Date           string `json:"date"`
}

// searchDateLayouts are accepted for AddSearchRequest.Date. Dates without a
// zone are read as UTC.
var searchDateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseSearchDate(raw string) (time.Time, bool) {
	for _, layout := range searchDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

type SearchResponse struct {
	ID             int64  `json:"id"`
	ConversationID string `json:"conversation_id"`
	UserSearch     string `json:"user_search"`
	Portal         string `json:"portal"`
	Timestamp      string `json:"date"`
}

func searchToResponse(s *domain.Search) *SearchResponse {
	return &SearchResponse{
		ID:             s.ID,
		ConversationID: s.ConversationID,
		UserSearch:     s.QueryText,
		Portal:         s.Portal,
		Timestamp:      s.Timestamp.UTC().Format(time.RFC3339),
	}
}

func (h *SearchHandler) AddSearch(w http.ResponseWriter, r *http.Request) {
	var req AddSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ConversationID == "" {
		api.Error(w, http.StatusBadRequest, "conversation_id is required")
		return
	}
	if req.UserSearch == "" {
		api.Error(w, http.StatusBadRequest, "user_search is required")
		return
	}

	input := service.LogSearchInput{
		ConversationID: req.ConversationID,
		QueryText:      req.UserSearch,
		Portal:         req.APIHostname,
	}
	if req.Date != "" {
		ts, ok := parseSearchDate(req.Date)
		if !ok {
			api.Error(w, http.StatusBadRequest, "date must be formatted as 2006-01-02 15:04:05")
			return
		}
		input.Timestamp = ts
	}

	search, err := h.svc.LogSearch(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, searchToResponse(search))
}
