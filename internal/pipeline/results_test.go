package pipeline

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qdocr/internal/extract"
)

func sampleRecord() Record {
	num, name := "12/QĐ-HĐQT", "Nguyễn Văn An"
	yes := true
	return Record{
		File:     "a.png",
		Datetime: "16/10/2026",
		Fields:   extract.Fields{DecisionNumber: &num, AppointeeName: &name, SealPresent: &yes},
	}
}

func TestToJSONKeepsNullFields(t *testing.T) {
	rec := sampleRecord()
	out, err := ToJSON(&rec)
	require.NoError(t, err)
	assert.Contains(t, out, `"decision_date": null`)
	assert.Contains(t, out, `"seal_by_layout": null`)
	assert.NotContains(t, out, "diagnostics")
	require.NoError(t, ValidateRecordJSON([]byte(out)))

	_, err = ToJSON(nil)
	require.Error(t, err)
}

func TestToJSONRecordsEmpty(t *testing.T) {
	out, err := ToJSONRecords(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestToYAML(t *testing.T) {
	rec := sampleRecord()
	out, err := ToYAML(&rec)
	require.NoError(t, err)
	assert.Contains(t, out, "decision_number: 12/QĐ-HĐQT")
	assert.Contains(t, out, "decision_date: null")
	assert.Contains(t, out, "seal_present: true")
}

func TestToText(t *testing.T) {
	rec := sampleRecord()
	out, err := ToText(&rec)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2+len(extract.Keys))
	assert.Equal(t, "file: a.png", lines[0])
	assert.Contains(t, lines, "appointee_name: Nguyễn Văn An")
	assert.Contains(t, lines, "position: -")
	assert.Contains(t, lines, "seal_present: true")
}

func TestToCSV(t *testing.T) {
	out, err := ToCSV(sampleRecord(), Record{File: "b.png", Datetime: "16/10/2026"})
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeader(), rows[0])
	assert.Equal(t, "12/QĐ-HĐQT", rows[1][2])
	assert.Equal(t, "", rows[2][2])
}

func TestFormat(t *testing.T) {
	rec := sampleRecord()
	for _, f := range SupportedFormats {
		out, err := Format(&rec, f)
		require.NoError(t, err, f)
		assert.NotEmpty(t, out, f)
	}
	_, err := Format(&rec, "xml")
	require.Error(t, err)
}

func TestValidateRecordRejectsMissingKeys(t *testing.T) {
	err := ValidateRecordJSON([]byte(`{"file":"a","datetime":"16/10/2026","fields":{"decision_number":null}}`))
	require.Error(t, err)

	err = ValidateRecordJSON([]byte(`{"file":"a","datetime":"2026-10-16","fields":{}}`))
	require.Error(t, err)
}

func TestTextRecord(t *testing.T) {
	ex, err := extract.New(extract.DefaultConfig())
	require.NoError(t, err)
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	rec := TextRecord(ex, "note.txt", "Số 123/QĐ-HĐQT\nĐã ký và đóng dấu", now, false)
	assert.Equal(t, "note.txt", rec.File)
	assert.Equal(t, "16/10/2026", rec.Datetime)
	require.NotNil(t, rec.Fields.DecisionNumber)
	assert.Equal(t, "123/QĐ-HĐQT", *rec.Fields.DecisionNumber)
	assert.Nil(t, rec.Fields.SealByLayout)
	assert.Nil(t, rec.Diagnostics)
	require.NoError(t, ValidateRecord(&rec))

	rec = TextRecord(ex, "note.txt", "Số 123/QĐ-HĐQT", now, true)
	require.NotNil(t, rec.Diagnostics)
	assert.Equal(t, SourceText, rec.Diagnostics.TextSource)
	assert.Equal(t, []string{"Số 123/QĐ-HĐQT"}, rec.Diagnostics.Lines)
	assert.NotEmpty(t, rec.Diagnostics.Matches)
}
