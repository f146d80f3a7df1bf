package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "esgboard/internal/errors"
	"esgboard/internal/loader"
	"esgboard/internal/services"
	"esgboard/internal/validation"
	"esgboard/pkg/contracts/domain"
)

// mockDatasetService mocks DatasetServiceInterface
type mockDatasetService struct {
	mock.Mock
}

func (m *mockDatasetService) Load(ctx context.Context, req loader.Request) (*domain.Dataset, []string, error) {
	args := m.Called(ctx, req)
	var ds *domain.Dataset
	if v := args.Get(0); v != nil {
		ds = v.(*domain.Dataset)
	}
	var warnings []string
	if v := args.Get(1); v != nil {
		warnings = v.([]string)
	}
	return ds, warnings, args.Error(2)
}

func (m *mockDatasetService) Summary() services.DatasetSummary {
	args := m.Called()
	return args.Get(0).(services.DatasetSummary)
}

func quietHandlerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDatasetHandler(service DatasetServiceInterface) *DatasetHandler {
	logger := quietHandlerLogger()
	uploads := validation.NewUploadValidator(1<<20, logger)
	return NewDatasetHandler(service, uploads, 1<<20, logger, apierrors.NewErrorHandler(logger, false))
}

func sampleSummary() services.DatasetSummary {
	return services.DatasetSummary{
		Source:   domain.SourceSynthetic,
		Period:   "Q1 2023 - Q1 2025 (Sample Data)",
		Rows:     27,
		LoadedAt: time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC),
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestDatasetHandlerGetSummary(t *testing.T) {
	svc := &mockDatasetService{}
	svc.On("Summary").Return(sampleSummary())
	handler := newTestDatasetHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "synthetic", body["source"])
	assert.Equal(t, float64(27), body["rows"])
	assert.Equal(t, "Q1 2023 - Q1 2025 (Sample Data)", body["period"])

	svc.AssertExpectations(t)
}

func TestDatasetHandlerResetSynthetic(t *testing.T) {
	svc := &mockDatasetService{}
	svc.On("Load", mock.Anything, loader.Request{Kind: domain.SourceSynthetic}).
		Return(&domain.Dataset{}, []string(nil), nil)
	svc.On("Summary").Return(sampleSummary())
	handler := newTestDatasetHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/synthetic", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDatasetHandlerUpload(t *testing.T) {
	svc := &mockDatasetService{}
	svc.On("Load", mock.Anything, mock.MatchedBy(func(req loader.Request) bool {
		return req.Kind == domain.SourceDelimitedUpload &&
			req.Filename == "esg.csv" &&
			len(req.Payload) > 0
	})).Return(&domain.Dataset{}, []string(nil), nil)
	svc.On("Summary").Return(sampleSummary())
	handler := newTestDatasetHandler(svc)

	body, contentType := multipartBody(t, "file", "esg.csv",
		[]byte("Date,CO2 Emissions (tons)\n2023-01-31,4\n"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDatasetHandlerUploadUnsupportedExtension(t *testing.T) {
	svc := &mockDatasetService{}
	handler := newTestDatasetHandler(svc)

	body, contentType := multipartBody(t, "file", "esg.txt", []byte("not a spreadsheet"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
	svc.AssertNotCalled(t, "Load")
}

func TestDatasetHandlerUploadMissingFile(t *testing.T) {
	svc := &mockDatasetService{}
	handler := newTestDatasetHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Load")
}

func TestDatasetHandlerFetch(t *testing.T) {
	svc := &mockDatasetService{}
	svc.On("Load", mock.Anything, loader.Request{
		Kind: domain.SourceRemoteFetch,
		URL:  "https://example.com/esg.xlsx",
	}).Return(&domain.Dataset{}, []string{"Targets sheet missing; defaults substituted."}, nil)
	svc.On("Summary").Return(sampleSummary())
	handler := newTestDatasetHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/fetch",
		strings.NewReader(`{"url":"https://example.com/esg.xlsx"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDatasetHandlerFetchRejectsInvalidURL(t *testing.T) {
	svc := &mockDatasetService{}
	handler := newTestDatasetHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/fetch",
		strings.NewReader(`{"url":"not a url"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
	svc.AssertNotCalled(t, "Load")
}

func TestDatasetHandlerFetchSheet(t *testing.T) {
	svc := &mockDatasetService{}
	svc.On("Load", mock.Anything, loader.Request{
		Kind:          domain.SourceSheetsFetch,
		SpreadsheetID: "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
	}).Return(&domain.Dataset{}, []string(nil), nil)
	svc.On("Summary").Return(sampleSummary())
	handler := newTestDatasetHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/sheet",
		strings.NewReader(`{"spreadsheet_id":"1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDatasetHandlerFetchSheetRejectsShortID(t *testing.T) {
	svc := &mockDatasetService{}
	handler := newTestDatasetHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/sheet",
		strings.NewReader(`{"spreadsheet_id":"abc"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Load")
}

func TestDatasetHandlerInstallAbandoned(t *testing.T) {
	svc := &mockDatasetService{}
	svc.On("Load", mock.Anything, loader.Request{Kind: domain.SourceSynthetic}).
		Return(nil, nil, context.Canceled)
	handler := newTestDatasetHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/synthetic", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
	svc.AssertNotCalled(t, "Summary")
}
