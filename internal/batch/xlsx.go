package batch

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/MeKo-Tech/qdocr/internal/pipeline"
)

// SheetName is the worksheet holding the records.
const SheetName = "Records"

// XLSX renders records as a workbook with one row per record, columns in
// pipeline.CSVHeader order.
func XLSX(recs []pipeline.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}
	index, err := f.GetSheetIndex(SheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	writeRow := func(row int, values []string) error {
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeRow(1, pipeline.CSVHeader()); err != nil {
		return nil, err
	}
	for i, rec := range recs {
		if err := writeRow(i+2, pipeline.CSVRow(rec)); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 28) // file
	_ = f.SetColWidth(SheetName, "B", "B", 12) // datetime
	_ = f.SetColWidth(SheetName, "C", "I", 30)
	_ = f.SetColWidth(SheetName, "J", "K", 14) // seal flags
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
