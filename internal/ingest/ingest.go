// Package ingest turns an uploaded file into a table, dispatching on the file
// extension.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"churn-predictor/internal/table"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for extensions other than .csv, .xls and .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file format: upload a CSV or Excel file (.csv, .xls, .xlsx)")

// FileError wraps a parse failure of a file with a recognised extension.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("error processing file: %v", e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Format is a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLS  Format = "xls"
	FormatXLSX Format = "xlsx"
)

// DetectFormat maps a file name to its format.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Read parses data according to the extension of name.
func Read(name string, data []byte) (*table.Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	var t *table.Table
	switch format {
	case FormatCSV:
		t, err = ReadCSV(bytes.NewReader(data))
	case FormatXLSX:
		t, err = readXLSX(data)
	case FormatXLS:
		t, err = readXLS(data)
	}
	if err != nil {
		return nil, &FileError{Name: name, Err: err}
	}
	return t, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses comma-separated values with the first record as header.
func ReadCSV(r io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("csv content is not valid UTF-8 text")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("no columns to parse from file")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv records: %w", err)
	}
	return table.FromRecords(header, records)
}

func readXLSX(data []byte) (*table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromSheetRows(rows)
}

func readXLS(data []byte) (t *table.Table, err error) {
	// The legacy BIFF reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("malformed xls workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no readable sheet")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return fromSheetRows(rows)
}

// fromSheetRows drops trailing blank rows and treats the first row as header.
// Spreadsheet rows are trimmed of trailing empty cells, so widths vary.
func fromSheetRows(rows [][]string) (*table.Table, error) {
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no columns to parse from sheet")
	}
	header := rows[0]
	width := len(header)
	for _, r := range rows[1:] {
		if len(r) > width {
			width = len(r)
		}
	}
	for len(header) < width {
		header = append(header, "")
	}
	return table.FromRecords(header, rows[1:])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
