package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/qdocr/internal/extract"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
	FormatCSV  = "csv"
)

// SupportedFormats lists the accepted --format values.
var SupportedFormats = []string{FormatJSON, FormatYAML, FormatText, FormatCSV}

// ToJSON serializes a record to pretty JSON.
func ToJSON(rec *Record) (string, error) {
	if rec == nil {
		return "", errors.New("nil record")
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONRecords serializes records as a pretty JSON array.
func ToJSONRecords(recs []Record) (string, error) {
	if recs == nil {
		recs = []Record{}
	}
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToYAML serializes a record, or a slice of records, to YAML.
func ToYAML(v any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToText renders one "key: value" line per field, "-" for absent values.
func ToText(rec *Record) (string, error) {
	if rec == nil {
		return "", errors.New("nil record")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "file: %s\n", rec.File)
	fmt.Fprintf(&b, "datetime: %s\n", rec.Datetime)
	values := rec.Fields.Map()
	for _, k := range extract.Keys {
		fmt.Fprintf(&b, "%s: %s\n", k, cell(values[k], "-"))
	}
	return b.String(), nil
}

// CSVHeader is the column order used by ToCSV.
func CSVHeader() []string {
	return append([]string{"file", "datetime"}, extract.Keys...)
}

// CSVRow flattens a record in CSVHeader order; absent values are empty.
func CSVRow(rec Record) []string {
	values := rec.Fields.Map()
	row := []string{rec.File, rec.Datetime}
	for _, k := range extract.Keys {
		row = append(row, cell(values[k], ""))
	}
	return row
}

// ToCSV renders a header and one row per record.
func ToCSV(recs ...Record) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader()); err != nil {
		return "", err
	}
	for _, r := range recs {
		if err := w.Write(CSVRow(r)); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// Format renders a record in the named format.
func Format(rec *Record, format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return ToJSON(rec)
	case FormatYAML:
		return ToYAML(rec)
	case FormatText:
		return ToText(rec)
	case FormatCSV:
		if rec == nil {
			return "", errors.New("nil record")
		}
		return ToCSV(*rec)
	}
	return "", fmt.Errorf("unsupported format %q (want one of %s)", format, strings.Join(SupportedFormats, ", "))
}

func cell(v any, absent string) string {
	switch t := v.(type) {
	case nil:
		return absent
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}
