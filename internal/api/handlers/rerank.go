package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/rerankd/internal/api"
	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/service"
)

type RerankService interface {
	Rerank(ctx context.Context, input service.RerankInput) ([]domain.ResultPayload, error)
}

type RerankHandler struct {
	svc RerankService
}

func NewRerankHandler(svc RerankService) *RerankHandler {
	return &RerankHandler{svc: svc}
}

// PortalResults is the result list one portal returned. APIHostname may be
// empty, in which case every result must carry its own portal.
type PortalResults struct {
	APIHostname string                 `json:"api_hostname"`
	ResultsList []domain.ResultPayload `json:"results_list"`
}

type RerankRequest struct {
	ConversationID string          `json:"conversation_id"`
	UserSearch     string          `json:"user_search"`
	Data           []PortalResults `json:"data"`
	UseFeedback    *bool           `json:"use_feedback"`
	UseMetadata    *bool           `json:"use_metadata"`
}

func (h *RerankHandler) Rerank(w http.ResponseWriter, r *http.Request) {
	var req RerankRequest
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

	input := service.RerankInput{
		QueryText:      req.UserSearch,
		ConversationID: req.ConversationID,
		UseFeedback:    true,
		UseMetadata:    false,
	}
	if req.UseFeedback != nil {
		input.UseFeedback = *req.UseFeedback
	}
	if req.UseMetadata != nil {
		input.UseMetadata = *req.UseMetadata
	}
	for _, group := range req.Data {
		input.Groups = append(input.Groups, service.ResultGroup{
			Portal:  group.APIHostname,
			Results: group.ResultsList,
		})
	}

	results, err := h.svc.Rerank(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if results == nil {
		results = []domain.ResultPayload{}
	}

	api.Success(w, http.StatusOK, results)
}
