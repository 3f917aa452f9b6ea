package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qdocr/internal/pipeline"
	"github.com/MeKo-Tech/qdocr/internal/recognizer"
	"github.com/MeKo-Tech/qdocr/internal/testutil"
)

type fixture struct {
	server *Server
	page   *testutil.Page
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	page := testutil.NewPage(testutil.DecisionFixture().Lines)
	suite := &pipeline.ModelSuite{Detector: testutil.PageDetector(page, false), Recognizer: &testutil.PageRecognizer{Page: page}}
	p, err := pipeline.NewBuilder().WithModels(suite).Build()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.RecognizerAvailable = true
	if mutate != nil {
		mutate(&cfg)
	}
	return &fixture{server: NewServer(cfg, p, nil), page: page}
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) post(t *testing.T, target string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "image", "decision.png", data)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, pipeline.BackendONNX, resp.Backend)
	assert.True(t, resp.RecognizerAvailable)
	assert.NotEmpty(t, resp.Version)

	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthWithoutPipeline(t *testing.T) {
	s := NewServer(DefaultConfig(), nil, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/extract", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExtract(t *testing.T) {
	f := newFixture(t, nil)
	w := f.post(t, "/extract", f.page.PNG(t))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, pipeline.ValidateRecordJSON(w.Body.Bytes()))
	var rec pipeline.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "decision.png", rec.File)
	assert.Nil(t, rec.Diagnostics)
	require.NotNil(t, rec.Fields.SignerName)
	assert.Equal(t, "Phạm Minh Tuấn", *rec.Fields.SignerName)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestExtractExplainAndFormats(t *testing.T) {
	f := newFixture(t, nil)

	w := f.post(t, "/extract?explain=1", f.page.PNG(t))
	require.Equal(t, http.StatusOK, w.Code)
	var rec pipeline.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	require.NotNil(t, rec.Diagnostics)
	assert.Equal(t, pipeline.SourceRecognizer, rec.Diagnostics.TextSource)

	w = f.post(t, "/extract?format=text", f.page.PNG(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "term: 2024-2029")

	w = f.post(t, "/extract?format=xml", f.page.PNG(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractErrors(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxUploadMB = 1 })

	w := f.post(t, "/extract", []byte("definitely not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, w.Header().Get(RequestIDHeader), resp.RequestID)

	body, ct := multipartBody(t, "file", "x.png", f.page.PNG(t))
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post(t, "/extract", bytes.Repeat([]byte{'x'}, 2*1024*1024))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/extract", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestExtractModelUnavailable(t *testing.T) {
	page := testutil.NewPage(testutil.DecisionFixture().Lines)
	suite := &pipeline.ModelSuite{Detector: testutil.PageDetector(page, false), RecognizerErr: errors.New("weights missing")}
	p, err := pipeline.NewBuilder().WithModels(suite).Build()
	require.NoError(t, err)
	f := &fixture{server: NewServer(DefaultConfig(), p, nil), page: page}

	w := f.post(t, "/extract", page.PNG(t))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExtractTimeoutDuringRecognition(t *testing.T) {
	page := testutil.NewPage(testutil.DecisionFixture().Lines)
	slow := recognizer.Func(func(ctx context.Context, _ image.Image) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	suite := &pipeline.ModelSuite{Detector: testutil.PageDetector(page, false), Recognizer: slow}
	p, err := pipeline.NewBuilder().WithModels(suite).Build()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	f := &fixture{server: NewServer(cfg, p, nil), page: page}

	w := f.post(t, "/extract", page.PNG(t))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.NotContains(t, w.Body.String(), `"fields"`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(pipeline.ErrInput))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errors.Join(pipeline.ErrModelUnavailable, errors.New("x"))))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(&pipeline.ImageError{Path: "a", Err: fmt.Errorf("detection: %w", context.DeadlineExceeded)}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestCORSAndRequestID(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.CORSOrigin = "https://example.org" })

	req := httptest.NewRequest(http.MethodOptions, "/extract", nil)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://example.org", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, http.StatusOK, f.post(t, "/extract", f.page.PNG(t)).Code)
	require.Equal(t, http.StatusBadRequest, f.post(t, "/extract", []byte("junk")).Code)

	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `qdocr_documents_processed_total{outcome="ok",source="http"} 1`)
	assert.Contains(t, body, `qdocr_documents_processed_total{outcome="input_error",source="http"} 1`)
	assert.Contains(t, body, `qdocr_regions_total{status="ok"} 8`)
	assert.Contains(t, body, `qdocr_fields_found_total{field="signer_name"} 1`)
	assert.Contains(t, body, `qdocr_http_requests_total{endpoint="/extract",method="POST",status="200"} 1`)
}

func TestWebSocket(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, f.page.PNG(t)))
	var rec pipeline.Record
	require.NoError(t, conn.ReadJSON(&rec))
	assert.Equal(t, "frame-1", rec.File)
	require.NotNil(t, rec.Fields.DecisionNumber)
	assert.Equal(t, "14.6./QĐ-HĐQT", *rec.Fields.DecisionNumber)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("garbage")))
	var errResp ErrorResponse
	require.NoError(t, conn.ReadJSON(&errResp))
	assert.NotEmpty(t, errResp.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":1}`)))
	errResp = ErrorResponse{}
	require.NoError(t, conn.ReadJSON(&errResp))
	assert.Contains(t, errResp.Error, "binary")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, f.page.PNG(t)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"file":"frame-4"`)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.CORSOrigin = "https://example.org" })
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_, _ = io.Copy(io.Discard, resp.Body)
}
