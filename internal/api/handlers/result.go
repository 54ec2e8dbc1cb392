package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/rerankd/internal/api"
	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ResultService interface {
	GetResult(ctx context.Context, id int64) (*domain.Result, error)
}

type ResultHandler struct {
	svc ResultService
}

func NewResultHandler(svc ResultService) *ResultHandler {
	return &ResultHandler{svc: svc}
}

type ResultResponse struct {
	ID          int64  `json:"id"`
	IdentityKey string `json:"identity_key"`
	domain.ResultPayload
}

func (h *ResultHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid result id")
		return
	}

	result, err := h.svc.GetResult(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ResultResponse{
		ID:            result.ID,
		IdentityKey:   result.IdentityKey,
		ResultPayload: result.ResultPayload,
	})
}
