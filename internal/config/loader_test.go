package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// isolate runs the test in an empty directory with no config search hits.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	l := NewLoader()
	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Empty(t, l.ConfigFileUsed())

	want := DefaultConfig()
	assert.Equal(t, want.Filter, cfg.Filter)
	assert.Equal(t, want.Recognition, cfg.Recognition)
	assert.Equal(t, want.Server, cfg.Server)
	assert.Equal(t, want.Output, cfg.Output)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "custom.yaml", `
log_level: debug
models:
  backend: tesseract
  dir: /srv/models
filter:
  max_keep_boxes: 12
  enable_nms: true
  reading_order: false
recognition:
  workers: 4
  timeout: 3s
  retry_delay: 50ms
seal:
  regions: filtered
server:
  port: 9090
  timeout: 2m
store:
  path: /var/lib/qdocr/records.db
`)

	l := NewLoader()
	cfg, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, l.ConfigFileUsed())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tesseract", cfg.Models.Backend)
	assert.Equal(t, "/srv/models", cfg.Models.Dir)
	assert.Equal(t, 12, cfg.Filter.MaxKeepBoxes)
	assert.True(t, cfg.Filter.EnableNMS)
	assert.False(t, cfg.Filter.ReadingOrder)
	assert.Equal(t, 4, cfg.Recognition.Workers)
	assert.Equal(t, 3*time.Second, cfg.Recognition.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Recognition.RetryDelay)
	assert.Equal(t, "filtered", cfg.Seal.Regions)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Server.Timeout)
	assert.Equal(t, "/var/lib/qdocr/records.db", cfg.Store.Path)

	// Untouched keys keep their defaults.
	assert.InDelta(t, 0.2, cfg.Filter.AreaKeepRatio, 1e-9)
	assert.Equal(t, "regex", cfg.Extraction.CompanyStrategy)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "qdocr.yaml", "output:\n  format: csv\n")

	l := NewLoader()
	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, "qdocr.yaml", filepath.Base(l.ConfigFileUsed()))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := NewLoader().Load("does-not-exist.yaml")
	require.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "bad.yaml", "filter: [unclosed\n")
	_, err := NewLoader().Load(path)
	require.Error(t, err)
}

func TestLoadValidationFailure(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "bad.yaml", "pdf:\n  renderer: ghostscript\n")

	_, err := NewLoader().Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	cfg, err := NewLoader().LoadWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "ghostscript", cfg.PDF.Renderer)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "qdocr.yaml", "server:\n  port: 9090\nrecognition:\n  workers: 2\n")
	t.Setenv("QDOCR_SERVER_PORT", "7070")
	t.Setenv("QDOCR_RECOGNITION_TIMEOUT", "750ms")
	t.Setenv("QDOCR_FILTER_READING_ORDER", "false")

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Recognition.Workers)
	assert.Equal(t, 750*time.Millisecond, cfg.Recognition.Timeout)
	assert.False(t, cfg.Filter.ReadingOrder)
}

func TestDotEnvFile(t *testing.T) {
	dir := isolate(t)
	env := writeFile(t, dir, "test.env", "QDOCR_PDF_DPI=300\nQDOCR_OUTPUT_FORMAT=yaml\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("QDOCR_PDF_DPI")
		_ = os.Unsetenv("QDOCR_OUTPUT_FORMAT")
	})
	// Already-set variables win over the file.
	t.Setenv("QDOCR_OUTPUT_FORMAT", "text")

	cfg, err := NewLoader().WithEnvFiles(env, filepath.Join(dir, "missing.env")).Load("")
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.PDF.DPI)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("QDOCR_SERVER_PORT", "7070")
	t.Setenv("QDOCR_PDF_DPI", "150")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 8080, "")
	fs.Int("dpi", 200, "")
	fs.Bool("verbose", false, "")
	require.NoError(t, fs.Parse([]string{"--port", "9999", "--verbose"}))

	l := NewLoader()
	require.NoError(t, l.BindFlags(fs, map[string]string{
		"server.port": "port",
		"pdf.dpi":     "dpi",
		"verbose":     "verbose",
	}))
	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	// An unchanged flag does not shadow the environment.
	assert.Equal(t, 150, cfg.PDF.DPI)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestBindFlagsUnknownFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	err := NewLoader().BindFlags(fs, map[string]string{"server.port": "port"})
	require.Error(t, err)
}

func TestSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := SearchPaths()
	assert.Equal(t, []string{".", "/xdg/qdocr", "/etc/qdocr"}, paths)
}

func TestWriteDefaultFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "qdocr.yaml")
	require.NoError(t, WriteDefaultFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Contains(t, doc, "filter")
	assert.Contains(t, doc, "server")

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Recognition, cfg.Recognition)
	assert.Equal(t, DefaultConfig().Filter, cfg.Filter)
}
