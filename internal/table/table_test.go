package table

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw     string
		missing bool
		isNum   bool
		num     float64
	}{
		{"", true, false, 0},
		{"NaN", true, false, 0},
		{"N/A", true, false, 0},
		{"  ", true, false, 0},
		{"42", false, true, 42},
		{" 3.5 ", false, true, 3.5},
		{"-1e3", false, true, -1000},
		{"abc", false, false, 0},
		{"inf", true, false, 0},
		{"-Infinity", true, false, 0},
		{"+INF", true, false, 0},
		{"nAn", true, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			v := ParseValue(tc.raw)
			assert.Equal(t, tc.missing, v.Missing)
			assert.Equal(t, tc.isNum, v.IsNum)
			if tc.isNum {
				assert.Equal(t, tc.num, v.Num)
			}
		})
	}
}

func TestFromRecords_InfersKinds(t *testing.T) {
	tbl, err := FromRecords(
		[]string{"age", "city", "empty"},
		[][]string{
			{"31", "Kazan", ""},
			{"", "Perm", "NA"},
			{"27.5", "", ""},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"age", "city", "empty"}, tbl.Names())
	assert.Equal(t, Numeric, tbl.Columns[0].Kind)
	assert.Equal(t, Categorical, tbl.Columns[1].Kind)
	assert.Equal(t, Numeric, tbl.Columns[2].Kind, "all-missing column is numeric")
	assert.True(t, tbl.Rows[1][0].Missing)
}

func TestFromRecords_HeaderHandling(t *testing.T) {
	tbl, err := FromRecords([]string{"a", "a", "", "a"}, [][]string{{"1", "2", "3", "4"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.2"}, tbl.Names())
}

func TestFromRecords_GeneratedNamesDoNotCollide(t *testing.T) {
	tbl, err := FromRecords([]string{"a", "a", "a.1"}, [][]string{{"1", "2", "3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "a.1.1"}, tbl.Names())

	tbl, err = FromRecords([]string{"a.1", "a", "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.1", "a", "a.1.1"}, tbl.Names())
}

func TestFromRecords_NonFiniteCellsAreMissing(t *testing.T) {
	tbl, err := FromRecords([]string{"x"}, [][]string{{"1"}, {"inf"}, {"-Infinity"}, {"2"}})
	require.NoError(t, err)
	assert.Equal(t, Numeric, tbl.Columns[0].Kind)
	assert.True(t, tbl.Rows[1][0].Missing)
	assert.True(t, tbl.Rows[2][0].Missing)
}

func TestFromRecords_ShortAndLongRows(t *testing.T) {
	tbl, err := FromRecords([]string{"a", "b"}, [][]string{{"1"}})
	require.NoError(t, err)
	assert.True(t, tbl.Rows[0][1].Missing)

	_, err = FromRecords([]string{"a", "b"}, [][]string{{"1", "2", "3"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 fields")

	_, err = FromRecords(nil, nil)
	require.Error(t, err)
}

func TestTable_DropAndSelect(t *testing.T) {
	tbl, err := FromRecords(
		[]string{"x", "Target", "y"},
		[][]string{{"1", "0.5", "a"}, {"2", "0.1", "b"}, {"3", "0.9", "c"}},
	)
	require.NoError(t, err)

	dropped := tbl.Drop("Target", "nope")
	assert.Equal(t, []string{"x", "y"}, dropped.Names())
	assert.Equal(t, 3, dropped.Len())
	assert.True(t, tbl.Has("Target"), "drop must not mutate the source")

	sub := tbl.SelectRows([]int{2, 0})
	require.Equal(t, 2, sub.Len())
	assert.Equal(t, "3", sub.Rows[0][0].Raw)
	assert.Equal(t, "1", sub.Rows[1][0].Raw)

	col, ok := tbl.Column("y")
	require.True(t, ok)
	assert.Equal(t, "b", col[1].String())
}

func TestTable_Float(t *testing.T) {
	tbl, err := FromRecords([]string{"n", "s", "m"}, [][]string{{"1", "a", "1"}, {"2", "b", ""}})
	require.NoError(t, err)

	vals, err := tbl.Float("n")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, vals)

	_, err = tbl.Float("s")
	assert.Error(t, err)
	_, err = tbl.Float("m")
	assert.Error(t, err)
	_, err = tbl.Float("missing")
	assert.Error(t, err)
}

func TestKind_JSON(t *testing.T) {
	data, err := json.Marshal(Column{Name: "c", Kind: Categorical})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"c","kind":"categorical"}`, string(data))

	var c Column
	require.NoError(t, json.Unmarshal([]byte(`{"name":"n","kind":"numeric"}`), &c))
	assert.Equal(t, Numeric, c.Kind)
	assert.Error(t, json.Unmarshal([]byte(`{"name":"n","kind":"blob"}`), &c))
}
