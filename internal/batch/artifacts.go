package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/qdocr/internal/pipeline"
)

// WriteArtifacts writes the run's aggregate files under cfg.OutputDir and
// returns their paths. The failures file is written only when something
// failed.
func WriteArtifacts(r *Result, cfg Config) ([]string, error) {
	dir := cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	resultsName := cfg.ResultsFile
	if resultsName == "" {
		resultsName = DefaultResultsFile
	}
	failuresName := cfg.FailuresFile
	if failuresName == "" {
		failuresName = DefaultFailuresFile
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	out, err := pipeline.ToJSONRecords(r.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	if err := write(resultsName, []byte(out+"\n")); err != nil {
		return written, err
	}

	if len(r.Failures) > 0 {
		data, err := json.MarshalIndent(r.Failures, "", "  ")
		if err != nil {
			return written, fmt.Errorf("failed to encode failures: %w", err)
		}
		if err := write(failuresName, append(data, '\n')); err != nil {
			return written, err
		}
	}

	if cfg.WriteYAML {
		out, err := pipeline.ToYAML(r.Records)
		if err != nil {
			return written, fmt.Errorf("failed to encode yaml results: %w", err)
		}
		if err := write(strings.TrimSuffix(resultsName, filepath.Ext(resultsName))+".yaml", []byte(out)); err != nil {
			return written, err
		}
	}

	if cfg.XLSXFile != "" {
		data, err := XLSX(r.Records)
		if err != nil {
			return written, err
		}
		if err := write(cfg.XLSXFile, data); err != nil {
			return written, err
		}
	}
	return written, nil
}
