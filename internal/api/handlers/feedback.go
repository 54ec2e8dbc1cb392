package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/rerankd/internal/api"
	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/service"
)

type FeedbackService interface {
	RecordFeedback(ctx context.Context, input service.RecordFeedbackInput) (*service.RecordFeedbackOutput, error)
}

type ExportService interface {
	ExportFeedbackHistory(ctx context.Context, input service.ExportInput) (*service.ExportOutput, error)
}

type FeedbackHandler struct {
	svc      FeedbackService
	exporter ExportService
}

func NewFeedbackHandler(svc FeedbackService, exporter ExportService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc, exporter: exporter}
}

// FeedbackItem is a result as it was shown plus the user's verdict on it.
type FeedbackItem struct {
	domain.ResultPayload
	Feedback *int `json:"feedback"`
}

type AddFeedbackRequest struct {
	ConversationID string         `json:"conversation_id"`
	UserSearch     string         `json:"user_search"`
	SearchTarget   *string        `json:"search_target"`
	Data           []FeedbackItem `json:"data"`
}

type AddFeedbackResponse struct {
	Attached       bool  `json:"attached"`
	SearchID       int64 `json:"search_id,omitempty"`
	Updated        int   `json:"updated"`
	ResultsCreated int   `json:"results_created"`
}

type ExportResponse struct {
	Items      []service.SearchHistory `json:"items"`
	NextCursor string                  `json:"next_cursor,omitempty"`
	HasMore    bool                    `json:"has_more"`
}

func (h *FeedbackHandler) AddFeedback(w http.ResponseWriter, r *http.Request) {
	var req AddFeedbackRequest
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

	pairs := make([]domain.FeedbackPair, 0, len(req.Data))
	for i, item := range req.Data {
		if item.Feedback == nil {
			api.Error(w, http.StatusBadRequest, fmt.Sprintf("data[%d].feedback is required", i))
			return
		}
		value, err := domain.ParseFeedbackValue(*item.Feedback)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		pairs = append(pairs, domain.FeedbackPair{Result: item.ResultPayload, Feedback: value})
	}

	out, err := h.svc.RecordFeedback(r.Context(), service.RecordFeedbackInput{
		ConversationID: req.ConversationID,
		QueryText:      req.UserSearch,
		SearchTarget:   req.SearchTarget,
		Pairs:          pairs,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AddFeedbackResponse{
		Attached:       out.Attached,
		SearchID:       out.SearchID,
		Updated:        out.Updated,
		ResultsCreated: out.ResultsCreated,
	})
}

func (h *FeedbackHandler) Export(w http.ResponseWriter, r *http.Request) {
	input := service.ExportInput{
		Cursor: r.URL.Query().Get("cursor"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		input.Limit = limit
	}

	out, err := h.exporter.ExportFeedbackHistory(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := out.Items
	if items == nil {
		items = []service.SearchHistory{}
	}
	api.Success(w, http.StatusOK, ExportResponse{
		Items:      items,
		NextCursor: out.Cursor,
		HasMore:    out.HasMore,
	})
}
