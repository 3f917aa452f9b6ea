package pipeline

import (
	"time"

	"github.com/MeKo-Tech/qdocr/internal/detector"
	"github.com/MeKo-Tech/qdocr/internal/extract"
	"github.com/MeKo-Tech/qdocr/internal/recognizer"
)

// DateLayout is the record timestamp format (day/month/year).
const DateLayout = "02/01/2006"

// Record is the serialized output for one document.
type Record struct {
	File        string         `json:"file" yaml:"file"`
	Datetime    string         `json:"datetime" yaml:"datetime"`
	Fields      extract.Fields `json:"fields" yaml:"fields"`
	Diagnostics *Diagnostics   `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// TextRecord extracts fields from already recognized text. There is no layout,
// so seal_by_layout stays null.
func TextRecord(ex *extract.Extractor, name, text string, now time.Time, explain bool) Record {
	doc := extract.NewDocument(text)
	res := ex.ExtractDocument(doc)
	rec := Record{File: name, Datetime: now.Format(DateLayout), Fields: res.Fields}
	if explain {
		rec.Diagnostics = &Diagnostics{
			TextSource: SourceText,
			Lines:      doc.Lines,
			Kept:       []KeptRegion{},
			Matches:    res.Matches,
		}
	}
	return rec
}

// Diagnostics explains how a record was produced.
type Diagnostics struct {
	TextSource  string             `json:"text_source" yaml:"text_source"`
	Lines       []string           `json:"lines" yaml:"lines"`
	Regions     RegionStats        `json:"regions" yaml:"regions"`
	Recognition recognizer.Summary `json:"recognition" yaml:"recognition"`
	Kept        []KeptRegion       `json:"kept" yaml:"kept"`
	Matches     []extract.Match    `json:"matches" yaml:"matches"`
	DurationMs  int64              `json:"duration_ms" yaml:"duration_ms"`
}

// RegionStats counts regions before and after filtering.
type RegionStats struct {
	Raw  int `json:"raw" yaml:"raw"`
	Kept int `json:"kept" yaml:"kept"`
}

// KeptRegion is one region that passed the filter, with its recognition
// outcome.
type KeptRegion struct {
	Index  int        `json:"index" yaml:"index"`
	Box    [4]float64 `json:"box" yaml:"box"`
	Score  *float64   `json:"score" yaml:"score"`
	Status string     `json:"status,omitempty" yaml:"status,omitempty"`
	Text   string     `json:"text,omitempty" yaml:"text,omitempty"`
	Reason string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func keptRegions(kept []detector.Region, results []recognizer.RegionResult) []KeptRegion {
	out := make([]KeptRegion, len(kept))
	for i, r := range kept {
		out[i] = KeptRegion{
			Index: r.Index,
			Box:   [4]float64{r.Box.MinX, r.Box.MinY, r.Box.MaxX, r.Box.MaxY},
			Score: r.Score,
		}
		if i < len(results) {
			out[i].Status = string(results[i].Status)
			out[i].Text = results[i].Text
			out[i].Reason = results[i].Reason
		}
	}
	return out
}
