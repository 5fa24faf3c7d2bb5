package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"churn-predictor/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"clients.csv", FormatCSV, false},
		{"CLIENTS.CSV", FormatCSV, false},
		{"book.xlsx", FormatXLSX, false},
		{"legacy.xls", FormatXLS, false},
		{"notes.txt", "", true},
		{"noext", "", true},
		{"archive.csv.gz", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectFormat(tc.name)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRead_CSV(t *testing.T) {
	data := []byte("\xEF\xBB\xBFamount,segment\n10,retail\n,corporate\n3.5,\n")

	tbl, err := Read("upload.csv", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"amount", "segment"}, tbl.Names())
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, table.Numeric, tbl.Columns[0].Kind)
	assert.Equal(t, table.Categorical, tbl.Columns[1].Kind)
	assert.True(t, tbl.Rows[1][0].Missing)
}

func TestRead_UnsupportedIgnoresContent(t *testing.T) {
	for _, payload := range [][]byte{nil, []byte("a,b\n1,2\n"), {0x00, 0xff}} {
		_, err := Read("report.txt", payload)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.NotEmpty(t, err.Error())
	}
}

func TestRead_CorruptCSV(t *testing.T) {
	tests := map[string][]byte{
		"binary garbage": {0xff, 0xfe, 0x00, 0x81, 0x9c, 0xc3, 0x28},
		"empty":          {},
		"wide row":       []byte("a,b\n1,2,3\n"),
		"bare quote":     []byte("a,b\n\"1,2\n"),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read("broken.csv", data)
			require.Error(t, err)

			var fileErr *FileError
			require.True(t, errors.As(err, &fileErr), "expected FileError, got %T", err)
			assert.Equal(t, "broken.csv", fileErr.Name)
			assert.Contains(t, err.Error(), "error processing file")
			assert.False(t, errors.Is(err, ErrUnsupportedFormat))
		})
	}
}

func TestRead_XLSXFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"amount", "segment"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{10, "retail"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{2.5}))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Other", "A1", &[]interface{}{"ignored"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	tbl, err := Read("book.XLSX", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, []string{"amount", "segment"}, tbl.Names())
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, table.Numeric, tbl.Columns[0].Kind)
	assert.Equal(t, 2.5, tbl.Rows[1][0].Num)
	assert.True(t, tbl.Rows[1][1].Missing, "ragged row is padded")
}

func TestRead_XLS(t *testing.T) {
	// BIFF8 workbook with a shared string table, RK, NUMBER and BLANK cells.
	data, err := os.ReadFile(filepath.Join("testdata", "clients.xls"))
	require.NoError(t, err)

	tbl, err := Read("clients.xls", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "tenure", "plan", "Target"}, tbl.Names())
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, table.Numeric, tbl.Columns[0].Kind)
	assert.Equal(t, table.Numeric, tbl.Columns[1].Kind)
	assert.Equal(t, table.Categorical, tbl.Columns[2].Kind)
	assert.Equal(t, table.Numeric, tbl.Columns[3].Kind)

	ids, err := tbl.Float("ID")
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 103}, ids)

	assert.Equal(t, 1.0, tbl.Rows[0][1].Num)
	assert.Equal(t, 2.5, tbl.Rows[1][1].Num)
	assert.True(t, tbl.Rows[2][1].Missing, "blank cell")
	assert.Equal(t, "pro", tbl.Rows[0][2].Raw)
	assert.Equal(t, "basic", tbl.Rows[2][2].Raw)

	target, err := tbl.Float("Target")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, target)
}

func TestRead_CorruptSpreadsheets(t *testing.T) {
	garbage := []byte("definitely not a workbook")

	for _, name := range []string{"book.xlsx", "book.xls"} {
		t.Run(name, func(t *testing.T) {
			_, err := Read(name, garbage)
			require.Error(t, err)
			var fileErr *FileError
			assert.True(t, errors.As(err, &fileErr))
		})
	}
}

func TestFromSheetRows(t *testing.T) {
	tbl, err := fromSheetRows([][]string{
		{"a"},
		{"1", "2"},
		{"", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Unnamed: 1"}, tbl.Names())
	assert.Equal(t, 1, tbl.Len())

	_, err = fromSheetRows([][]string{{" "}})
	assert.Error(t, err)
}
