package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/rerankd/internal/jobs"
	"github.com/cloo-solutions/rerankd/internal/service"
	"github.com/spf13/cobra"
)

// ExportCmd returns the export command
func ExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the feedback history",
		Long: "Dump every search with its reranking entries and feedback as JSON. " +
			"By default the dump is uploaded to the configured S3 bucket and a download URL is printed.",
		RunE: runExport,
	}

	cmd.Flags().Bool("stdout", false, "Write the dump to stdout instead of S3")
	cmd.Flags().Bool("list", false, "List previous exports in the bucket, newest first, and exit")
	cmd.Flags().Duration("interval", 0, "Keep running and upload an export at this interval")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if toStdout, _ := cmd.Flags().GetBool("stdout"); toStdout {
		history, err := a.exporter.ExportAll(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	s3Client, err := newS3Client(ctx, cfg)
	if err != nil {
		return err
	}

	if list, _ := cmd.Flags().GetBool("list"); list {
		exports, err := s3Client.ListExports(ctx, service.ExportKeyPrefix)
		if err != nil {
			return err
		}
		for _, e := range exports {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", e.LastModified.UTC().Format(time.RFC3339), e.Size, e.Key)
		}
		return nil
	}

	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		processor := jobs.NewExportProcessor(a.exporter, s3Client, logger.Named("export"))
		worker := jobs.NewWorker(processor, jobs.WorkerConfig{Interval: interval, RunOnStart: true}, logger.Named("worker"))
		go worker.Start(ctx)
		<-ctx.Done()
		worker.Stop()
		return nil
	}

	key, err := a.exporter.ExportToSink(ctx, s3Client)
	if err != nil {
		return err
	}
	url, err := s3Client.GenerateDownloadURL(ctx, key)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n%s\n", key, url)
	return nil
}
