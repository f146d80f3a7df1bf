package performance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgboard/internal/config"
	apierrors "esgboard/internal/errors"
	"esgboard/internal/loader"
	"esgboard/internal/services"
	handlers "esgboard/internal/transport/http"
	"esgboard/internal/validation"
	"esgboard/pkg/contracts/domain"
)

// Performance test configuration
const (
	LoadTestDuration = 10 * time.Second
	MaxLatency       = 100 * time.Millisecond
)

var ConcurrencyLevels = []int{1, 10, 50, 100}

// PipelineTestSuite wires the metric pipeline the way the server does, minus
// the observability providers, so measurements isolate the derivation and
// export work.
type PipelineTestSuite struct {
	datasets *services.DatasetService
	metrics  *services.MetricsService
	exports  *services.ExportService
	server   *httptest.Server
	logger   *slog.Logger
}

func setupPipelineTest(t *testing.T) *PipelineTestSuite {
	t.Helper()
	return setupPipeline(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// setupBenchmark creates a test suite for benchmarks
func setupBenchmark(b *testing.B) *PipelineTestSuite {
	b.Helper()
	return setupPipeline(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupPipeline(logger *slog.Logger) *PipelineTestSuite {
	cfg := config.Default()

	suite := &PipelineTestSuite{logger: logger}
	suite.datasets = services.NewDatasetService(loader.New(cfg.Loader, logger), nil, nil, logger)
	suite.metrics = services.NewMetricsService(suite.datasets, logger)
	suite.exports = services.NewExportService(suite.metrics, cfg.Export, nil, logger)

	errorHandler := apierrors.NewErrorHandler(logger, false)
	uploads := validation.NewUploadValidator(cfg.Loader.MaxUploadBytes, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Timeout(30 * time.Second))
	router.Mount("/api/dataset", handlers.NewDatasetHandler(suite.datasets, uploads, cfg.Loader.MaxUploadBytes, logger, errorHandler).Routes())
	router.Mount("/api/categories", handlers.NewCategoriesHandler(suite.metrics, suite.exports, logger, errorHandler).Routes())

	suite.server = httptest.NewServer(router)
	return suite
}

func (suite *PipelineTestSuite) teardown() {
	if suite.server != nil {
		suite.server.Close()
	}
}

// BenchmarkKPIDerivation measures the service-level derivation pass that
// every KPI request repeats over the dataset snapshot.
func BenchmarkKPIDerivation(b *testing.B) {
	suite := setupBenchmark(b)
	defer suite.teardown()

	ctx := context.Background()
	req := services.ViewRequest{Category: domain.CategoryEnvironmental}

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := suite.metrics.KPIs(ctx, req); err != nil {
				b.Fatalf("KPI derivation failed: %v", err)
			}
		}
	})
}

// BenchmarkKPIEndpoint measures the same derivation through the HTTP stack.
func BenchmarkKPIEndpoint(b *testing.B) {
	suite := setupBenchmark(b)
	defer suite.teardown()

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			resp, err := http.Get(suite.server.URL + "/api/categories/environmental/kpis")
			if err != nil {
				b.Fatalf("Request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				b.Fatalf("Expected status 200, got %d", resp.StatusCode)
			}
		}
	})
}

// BenchmarkCSVExport measures table serialization.
func BenchmarkCSVExport(b *testing.B) {
	suite := setupBenchmark(b)
	defer suite.teardown()

	ctx := context.Background()
	req := services.ViewRequest{Category: domain.CategorySocial}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := suite.exports.CSV(ctx, req); err != nil {
			b.Fatalf("CSV export failed: %v", err)
		}
	}
}

// BenchmarkChartRender measures the PNG render, by far the most expensive
// artifact.
func BenchmarkChartRender(b *testing.B) {
	suite := setupBenchmark(b)
	defer suite.teardown()

	ctx := context.Background()
	req := services.ChartRequest{
		ViewRequest: services.ViewRequest{Category: domain.CategoryEnvironmental},
		Kind:        domain.ChartLine,
		ShowGoals:   true,
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := suite.exports.ChartPNG(ctx, req); err != nil {
			b.Fatalf("Chart render failed: %v", err)
		}
	}
}

// BenchmarkMemoryAllocations surveys allocation patterns across the read
// operations.
func BenchmarkMemoryAllocations(b *testing.B) {
	suite := setupBenchmark(b)
	defer suite.teardown()

	ctx := context.Background()
	req := services.ViewRequest{Category: domain.CategoryGovernance}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		suite.metrics.Categories(ctx)
		suite.metrics.KPIs(ctx, req)
		suite.metrics.TableRows(ctx, req)
	}
}

// TestLoadKPIEndpoint drives the KPI endpoint at increasing concurrency.
func TestLoadKPIEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping load test in short mode")
	}

	suite := setupPipelineTest(t)
	defer suite.teardown()

	for _, concurrency := range ConcurrencyLevels {
		t.Run(fmt.Sprintf("concurrency_%d", concurrency), func(t *testing.T) {
			results := runLoadTest(t, suite.server.URL+"/api/categories/environmental/kpis", concurrency, LoadTestDuration)

			t.Logf("Concurrency %d - Requests: %d, Success: %d, Errors: %d",
				concurrency, results.TotalRequests, results.SuccessfulRequests, results.ErrorCount)
			t.Logf("Throughput: %.2f req/s, Avg Latency: %v, P95 Latency: %v",
				results.Throughput, results.AverageLatency, results.P95Latency)

			assert.Greater(t, results.SuccessfulRequests, int64(0), "Should have successful requests")
			assert.Less(t, results.ErrorCount, results.TotalRequests/10, "Error rate should be less than 10%")
			assert.Less(t, results.AverageLatency, MaxLatency, "Average latency should be acceptable")
		})
	}
}

// TestLoadExportEndpoint drives the CSV export, which serializes the full
// window per request.
func TestLoadExportEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping load test in short mode")
	}

	suite := setupPipelineTest(t)
	defer suite.teardown()

	for _, concurrency := range []int{1, 10, 25} {
		t.Run(fmt.Sprintf("export_concurrency_%d", concurrency), func(t *testing.T) {
			results := runLoadTest(t, suite.server.URL+"/api/categories/social/export/csv", concurrency, 10*time.Second)

			t.Logf("Export Load Test - Concurrency %d", concurrency)
			t.Logf("Requests: %d, Success: %d, Errors: %d",
				results.TotalRequests, results.SuccessfulRequests, results.ErrorCount)
			t.Logf("Throughput: %.2f req/s, Avg Latency: %v",
				results.Throughput, results.AverageLatency)

			assert.Greater(t, results.TotalRequests, int64(0), "Should have made requests")
			assert.Equal(t, int64(0), results.ErrorCount, "Exports should not fail under load")
		})
	}
}

// TestDatasetSwapUnderReadLoad installs datasets continuously while readers
// hammer the derived views. Readers must never see an error: the swap is a
// whole-pointer replacement and every request derives from one snapshot.
func TestDatasetSwapUnderReadLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping load test in short mode")
	}

	suite := setupPipelineTest(t)
	defer suite.teardown()

	duration := 10 * time.Second
	readers := 50
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var reads, readErrors, swaps int64
	var wg sync.WaitGroup

	paths := []string{
		"/api/categories/environmental/kpis",
		"/api/categories/social/view",
		"/api/categories/governance/table",
		"/api/dataset",
	}

	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					resp, err := client.Get(suite.server.URL + paths[workerID%len(paths)])
					atomic.AddInt64(&reads, 1)
					if err != nil {
						atomic.AddInt64(&readErrors, 1)
						continue
					}
					resp.Body.Close()
					if resp.StatusCode != http.StatusOK {
						atomic.AddInt64(&readErrors, 1)
					}
				}
			}
		}(i)
	}

	// Writer swaps the dataset for the whole run
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if _, _, err := suite.datasets.Load(context.Background(), loader.Request{Kind: domain.SourceSynthetic}); err != nil {
					t.Errorf("dataset swap failed: %v", err)
					return
				}
				atomic.AddInt64(&swaps, 1)
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()

	wg.Wait()

	t.Logf("Swap test - Reads: %d, Read errors: %d, Swaps: %d", reads, readErrors, swaps)

	assert.Greater(t, reads, int64(1000), "Should perform substantial number of reads")
	assert.Greater(t, swaps, int64(10), "Should swap the dataset repeatedly")
	assert.Equal(t, int64(0), readErrors, "Readers must never observe a torn dataset")
}

// TestMemoryUsageUnderLoad watches allocation growth across a sustained run.
func TestMemoryUsageUnderLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping memory test in short mode")
	}

	suite := setupPipelineTest(t)
	defer suite.teardown()

	runtime.GC()
	var initialMem runtime.MemStats
	runtime.ReadMemStats(&initialMem)

	t.Logf("Initial memory - Alloc: %d KB, Sys: %d KB", initialMem.Alloc/1024, initialMem.Sys/1024)

	results := runLoadTest(t, suite.server.URL+"/api/categories/environmental/kpis", 50, 30*time.Second)

	runtime.GC()
	var finalMem runtime.MemStats
	runtime.ReadMemStats(&finalMem)

	t.Logf("Final memory - Alloc: %d KB, Sys: %d KB", finalMem.Alloc/1024, finalMem.Sys/1024)
	t.Logf("Load test results - Requests: %d, Throughput: %.2f req/s",
		results.TotalRequests, results.Throughput)

	memoryGrowthMB := int64(finalMem.Alloc-initialMem.Alloc) / (1024 * 1024)
	assert.Less(t, memoryGrowthMB, int64(100), "Memory growth should be less than 100MB")
	assert.Greater(t, results.Throughput, float64(100), "Should maintain reasonable throughput")
}

// TestResourceCleanup runs repeated setup/teardown cycles looking for leaks.
func TestResourceCleanup(t *testing.T) {
	for i := 0; i < 10; i++ {
		suite := setupPipelineTest(t)

		ctx := context.Background()
		_, err := suite.metrics.KPIs(ctx, services.ViewRequest{Category: domain.CategoryEnvironmental})
		require.NoError(t, err)
		_, err = suite.exports.CSV(ctx, services.ViewRequest{Category: domain.CategorySocial})
		require.NoError(t, err)

		suite.teardown()
	}

	runtime.GC()
	runtime.GC()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	t.Logf("Final memory after cleanup cycles - Alloc: %d KB, NumGC: %d",
		m.Alloc/1024, m.NumGC)

	assert.Less(t, m.Alloc, uint64(50*1024*1024), "Should not have leaked more than 50MB")
}

// LoadTestResults contains results from load testing
type LoadTestResults struct {
	TotalRequests      int64
	SuccessfulRequests int64
	ErrorCount         int64
	Throughput         float64
	AverageLatency     time.Duration
	P95Latency         time.Duration
	MinLatency         time.Duration
	MaxLatency         time.Duration
}

// runLoadTest executes a GET load test and returns performance metrics
func runLoadTest(t *testing.T, url string, concurrency int, duration time.Duration) LoadTestResults {
	t.Helper()

	var wg sync.WaitGroup
	var totalRequests, successfulRequests, errorCount int64

	latencies := make([]time.Duration, 0, 10000)
	var latencyMutex sync.Mutex

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	start := time.Now()

	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()

			client := &http.Client{Timeout: 30 * time.Second}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					requestStart := time.Now()
					resp, err := client.Get(url)
					latency := time.Since(requestStart)

					latencyMutex.Lock()
					if len(latencies) < cap(latencies) {
						latencies = append(latencies, latency)
					}
					latencyMutex.Unlock()

					atomic.AddInt64(&totalRequests, 1)

					if err != nil {
						atomic.AddInt64(&errorCount, 1)
						continue
					}

					resp.Body.Close()
					if resp.StatusCode >= 200 && resp.StatusCode < 400 {
						atomic.AddInt64(&successfulRequests, 1)
					} else {
						atomic.AddInt64(&errorCount, 1)
					}
				}
			}
		}()
	}

	wg.Wait()
	actualDuration := time.Since(start)

	throughput := float64(totalRequests) / actualDuration.Seconds()

	var avgLatency, p95Latency, minLatency, maxLatency time.Duration
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

		var totalLatency time.Duration
		for _, lat := range latencies {
			totalLatency += lat
		}
		avgLatency = totalLatency / time.Duration(len(latencies))

		p95Index := int(float64(len(latencies)) * 0.95)
		if p95Index >= len(latencies) {
			p95Index = len(latencies) - 1
		}
		p95Latency = latencies[p95Index]

		minLatency = latencies[0]
		maxLatency = latencies[len(latencies)-1]
	}

	return LoadTestResults{
		TotalRequests:      totalRequests,
		SuccessfulRequests: successfulRequests,
		ErrorCount:         errorCount,
		Throughput:         throughput,
		AverageLatency:     avgLatency,
		P95Latency:         p95Latency,
		MinLatency:         minLatency,
		MaxLatency:         maxLatency,
	}
}
