//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/rerankd/internal/api"
	"github.com/cloo-solutions/rerankd/internal/api/handlers"
	"github.com/cloo-solutions/rerankd/internal/metrics"
	"github.com/cloo-solutions/rerankd/internal/repository"
	"github.com/cloo-solutions/rerankd/internal/server"
	"github.com/cloo-solutions/rerankd/internal/service"
	"github.com/cloo-solutions/rerankd/internal/storage"
	"github.com/cloo-solutions/rerankd/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"
)

const primaryPortal = "DataSud"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	S3Client   *storage.S3Client
	Exporter   *service.ExportService
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres and RustFS and serves the full router
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "rerankd-exports",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		t.Fatalf("failed to register metrics: %v", err)
	}

	txRunner := repository.NewTxRunner(pool, repository.DefaultRetryPolicy(), logger, m)
	resolver := service.NewIdentityResolver(txRunner, m)
	ledger := service.NewFeedbackLedger(txRunner, resolver, primaryPortal, logger, m)
	reranker := service.NewReranker(txRunner, ledger, primaryPortal, logger, m)
	searchLog := service.NewSearchLogService(txRunner, primaryPortal)
	exporter := service.NewExportService(txRunner, logger, m)

	router := server.NewRouter(server.RouterConfig{
		Logger:          logger,
		Gatherer:        reg,
		RerankHandler:   handlers.NewRerankHandler(reranker),
		SearchHandler:   handlers.NewSearchHandler(searchLog),
		FeedbackHandler: handlers.NewFeedbackHandler(ledger, exporter),
		ResultHandler:   handlers.NewResultHandler(resolver),
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Server:     httptest.NewServer(router),
		S3Client:   s3Client,
		Exporter:   exporter,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Reset empties every table between scenarios
func (e *E2ETestEnv) Reset() {
	if err := testutil.TruncateAll(e.Ctx, e.Pool); err != nil {
		e.T.Fatalf("failed to truncate: %v", err)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data"`
	Error  *api.ErrorBody  `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{Status: resp.StatusCode}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		if apiResp.Error == nil {
			return &apiResp, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return &apiResp, fmt.Errorf("HTTP %d %s: %s", resp.StatusCode, apiResp.Error.Code, apiResp.Error.Message)
	}
	return &apiResp, nil
}

// DownloadFile downloads a file from the presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

type resultJSON struct {
	Title  string   `json:"title"`
	URL    string   `json:"url"`
	Portal string   `json:"portal,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

func dataset(title string) resultJSON {
	return resultJSON{Title: title, URL: "https://www.datasud.fr/" + title, Tags: []string{"energie"}}
}

func titles(results []resultJSON) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Title
	}
	return out
}
