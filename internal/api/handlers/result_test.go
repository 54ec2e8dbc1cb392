package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestResultHandler_Get(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockResultService)
		handler := NewResultHandler(svc)

		svc.On("GetResult", mock.Anything, int64(42)).Return(&domain.Result{
			ID:          42,
			IdentityKey: "abc",
			ResultPayload: domain.ResultPayload{
				Title:  "Usines hydroélectriques",
				Portal: "DataSud",
				Tags:   []string{"eau"},
			},
		}, nil)

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/results/42", nil), "id", "42")
		rec := httptest.NewRecorder()
		handler.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data ResultResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, int64(42), resp.Data.ID)
		assert.Equal(t, "abc", resp.Data.IdentityKey)
		assert.Equal(t, "Usines hydroélectriques", resp.Data.Title)
		assert.Equal(t, []string{"eau"}, resp.Data.Tags)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockResultService)
		handler := NewResultHandler(svc)

		svc.On("GetResult", mock.Anything, int64(9)).Return(nil, domain.ErrResultNotFound)

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/results/9", nil), "id", "9")
		rec := httptest.NewRecorder()
		handler.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockResultService)
		handler := NewResultHandler(svc)

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/results/abc", nil), "id", "abc")
		rec := httptest.NewRecorder()
		handler.Get(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "GetResult")
	})
}
