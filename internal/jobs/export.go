package jobs

import (
	"context"

	"github.com/cloo-solutions/rerankd/internal/service"
	"go.uber.org/zap"
)

// Exporter writes the feedback history to a sink.
type Exporter interface {
	ExportToSink(ctx context.Context, sink service.ExportSink) (string, error)
}

// ExportProcessor uploads a fresh feedback history snapshot on every run.
type ExportProcessor struct {
	exporter Exporter
	sink     service.ExportSink
	logger   *zap.Logger
}

// NewExportProcessor creates a new ExportProcessor instance
func NewExportProcessor(exporter Exporter, sink service.ExportSink, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{exporter: exporter, sink: sink, logger: logger}
}

// ProcessJobs runs one export.
func (p *ExportProcessor) ProcessJobs(ctx context.Context) error {
	key, err := p.exporter.ExportToSink(ctx, p.sink)
	if err != nil {
		return err
	}
	p.logger.Info("scheduled export complete", zap.String("key", key))
	return nil
}
