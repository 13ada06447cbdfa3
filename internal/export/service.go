package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf16"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/notafiscal/constants"
	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

const (
	// SheetName is the only sheet of an exported workbook.
	SheetName = "Sheet1"
	// Filename is the attachment name used when the workbook is downloaded.
	Filename = "NotaFiscal.xlsx"
	// ContentType is the MIME type of the workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// built-in number format "@" (text), so digit strings keep leading zeros
	textNumFmt = 49
)

// ErrCellTooLong reports a value longer than a spreadsheet cell can hold.
var ErrCellTooLong = errors.New("cell value too long")

// cellLength counts UTF-16 code units, the unit of the XLSX cell limit.
func cellLength(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// Service serializes invoice tables to XLSX bytes.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportXLSX returns a single-sheet workbook (as bytes) with a header row
// followed by one row per record, in table order. The table is not modified.
// Errors match common.ErrExport.
func (s *Service) ExportXLSX(ctx context.Context, t entity.InvoiceTable) ([]byte, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, s.logger)

	if err := ctx.Err(); err != nil {
		return nil, common.NewExportError("export cancelled", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("export.xlsx.close_failed", "err", err)
		}
	}()

	if index, _ := f.GetSheetIndex(SheetName); index == -1 {
		if _, err := f.NewSheet(SheetName); err != nil {
			return nil, common.NewExportError("create sheet", err)
		}
	}
	activeIndex, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(activeIndex)

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: textNumFmt})
	if err != nil {
		return nil, common.NewExportError("header style", err)
	}
	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: textNumFmt})
	if err != nil {
		return nil, common.NewExportError("text style", err)
	}

	for i, h := range constants.ColumnLabels() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellStr(SheetName, cell, h); err != nil {
			return nil, common.NewExportError("write header", err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(entity.RecordWidth)
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, common.NewExportError("style header", err)
	}

	row := 2
	for _, r := range t {
		for col, v := range r.Row() {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if n := cellLength(v); n > excelize.TotalCellChars {
				return nil, common.NewExportError(
					fmt.Sprintf("cell %s (%s) holds %d characters, limit is %d", cell, constants.Columns[col], n, excelize.TotalCellChars),
					ErrCellTooLong)
			}
			if err := f.SetCellStr(SheetName, cell, v); err != nil {
				return nil, common.NewExportError(fmt.Sprintf("write row %d", row), err)
			}
		}
		row++
	}
	// Styling every data cell also keeps all-empty placeholder rows in the file.
	if len(t) > 0 {
		lastCell, _ := excelize.CoordinatesToCellName(entity.RecordWidth, len(t)+1)
		if err := f.SetCellStyle(SheetName, "A2", lastCell, textStyle); err != nil {
			return nil, common.NewExportError("style rows", err)
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetName, "A", "A", 12) // nota
	_ = f.SetColWidth(SheetName, "B", "C", 40) // emissor, cliente
	_ = f.SetColWidth(SheetName, "D", "D", 36) // rua
	_ = f.SetColWidth(SheetName, "E", "E", 10) // numero
	_ = f.SetColWidth(SheetName, "F", "F", 24) // municipio
	_ = f.SetColWidth(SheetName, "G", "G", 12) // peso bruto

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.NewExportError("xlsx write", err)
	}

	logger.Info("export.xlsx.ok",
		"rows", len(t),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ReadXLSX parses a workbook produced by ExportXLSX back into a table. Header
// labels are matched through constants.CanonicalizeColumn, so column order in
// the file does not matter.
func ReadXLSX(data []byte) (entity.InvoiceTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	rows, err := f.Rows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", SheetName, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("sheet %s: missing header row", SheetName)
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	// positions[i] is the file column holding table column i
	positions := make([]int, entity.RecordWidth)
	for i := range positions {
		positions[i] = -1
	}
	for fileCol, label := range header {
		col, ok := constants.CanonicalizeColumn(label)
		if !ok {
			continue
		}
		if idx := constants.ColumnIndex(col); idx >= 0 && positions[idx] == -1 {
			positions[idx] = fileCol
		}
	}
	for i, p := range positions {
		if p == -1 {
			return nil, fmt.Errorf("sheet %s: missing column %q", SheetName, constants.Columns[i])
		}
	}

	var table entity.InvoiceTable
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(table)+2, err)
		}
		cells := make([]string, entity.RecordWidth)
		for i, p := range positions {
			if p < len(cols) {
				cells[i] = cols[p]
			}
		}
		table = append(table, entity.RecordFromRow(cells))
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return table, nil
}
