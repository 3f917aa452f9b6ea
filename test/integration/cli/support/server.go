package support

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/qdocr/internal/pipeline"
	"github.com/MeKo-Tech/qdocr/internal/server"
	"github.com/MeKo-Tech/qdocr/internal/testutil"
)

// HTTPTestServerWrapper runs the extraction server in process over synthetic
// models that read the sample decision page back.
type HTTPTestServerWrapper struct {
	Server *httptest.Server
	Page   *testutil.Page
}

func (testCtx *TestContext) startTestHTTPServer(withModels bool) error {
	testCtx.stopTestHTTPServer()

	page := testutil.NewPage(testutil.DecisionFixture().Lines)
	cfg := server.DefaultConfig()
	var proc server.Processor
	if withModels {
		suite := &pipeline.ModelSuite{
			Backend:    pipeline.BackendONNX,
			Detector:   testutil.PageDetector(page, false),
			Recognizer: &testutil.PageRecognizer{Page: page},
		}
		p, err := pipeline.NewBuilder().WithModels(suite).Build()
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}
		proc = p
		cfg.RecognizerAvailable = true
	}
	srv := server.NewServer(cfg, proc, nil)
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server: httptest.NewServer(srv.Handler()),
		Page:   page,
	}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() {
	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Server.Close()
		testCtx.HTTPTestServer = nil
	}
}

func (testCtx *TestContext) theExtractionServerIsRunning() error {
	return testCtx.startTestHTTPServer(true)
}

func (testCtx *TestContext) theExtractionServerIsRunningWithoutModels() error {
	return testCtx.startTestHTTPServer(false)
}

func (testCtx *TestContext) do(req *http.Request) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) serverURL(endpoint string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", fmt.Errorf("server is not running")
	}
	return testCtx.HTTPTestServer.Server.URL + endpoint, nil
}

func (testCtx *TestContext) iGET(endpoint string) error {
	url, err := testCtx.serverURL(endpoint)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) upload(endpoint string, data []byte) error {
	url, err := testCtx.serverURL(endpoint)
	if err != nil {
		return err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "decision.png")
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iPOSTTheDecisionPageTo(endpoint string) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, testCtx.HTTPTestServer.Page.Image); err != nil {
		return err
	}
	return testCtx.upload(endpoint, buf.Bytes())
}

func (testCtx *TestContext) iPOSTAnInvalidFileTo(endpoint string) error {
	return testCtx.upload(endpoint, []byte("definitely not an image"))
}

func (testCtx *TestContext) theResponseStatusShouldBe(expected int) error {
	if testCtx.LastHTTPStatusCode != expected {
		return fmt.Errorf("status %d, expected %d\nBody: %s",
			testCtx.LastHTTPStatusCode, expected, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(path, expected string) error {
	return jsonFieldShouldBe([]byte(testCtx.LastHTTPResponse), path, expected)
}

func (testCtx *TestContext) theResponseShouldBeAValidRecord() error {
	return pipeline.ValidateRecordJSON([]byte(testCtx.LastHTTPResponse))
}

func (testCtx *TestContext) theResponseShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, expected) {
		return fmt.Errorf("response does not contain %q\nBody: %s", expected, testCtx.LastHTTPResponse)
	}
	return nil
}

// RegisterServerSteps registers the in-process server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the extraction server is running$`, testCtx.theExtractionServerIsRunning)
	sc.Step(`^the extraction server is running without models$`, testCtx.theExtractionServerIsRunningWithoutModels)
	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I POST the decision page to "([^"]*)"$`, testCtx.iPOSTTheDecisionPageTo)
	sc.Step(`^I POST an invalid file to "([^"]*)"$`, testCtx.iPOSTAnInvalidFileTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response should be a valid record$`, testCtx.theResponseShouldBeAValidRecord)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
}
