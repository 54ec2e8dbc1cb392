package handlers

import (
	"context"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockRerankService struct {
	mock.Mock
}

func (m *MockRerankService) Rerank(ctx context.Context, input service.RerankInput) ([]domain.ResultPayload, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ResultPayload), args.Error(1)
}

type MockSearchLogService struct {
	mock.Mock
}

func (m *MockSearchLogService) LogSearch(ctx context.Context, input service.LogSearchInput) (*domain.Search, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Search), args.Error(1)
}

type MockFeedbackService struct {
	mock.Mock
}

func (m *MockFeedbackService) RecordFeedback(ctx context.Context, input service.RecordFeedbackInput) (*service.RecordFeedbackOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RecordFeedbackOutput), args.Error(1)
}

type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) ExportFeedbackHistory(ctx context.Context, input service.ExportInput) (*service.ExportOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportOutput), args.Error(1)
}

type MockResultService struct {
	mock.Mock
}

func (m *MockResultService) GetResult(ctx context.Context, id int64) (*domain.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Result), args.Error(1)
}
