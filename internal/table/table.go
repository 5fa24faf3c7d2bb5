// Package table provides the schema-aware tabular structure shared by the
// upload path and the offline trainer. Column kinds are inferred once, when a
// table is built from raw records, so mismatches surface at the boundary
// instead of deep inside the model.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the semantic type of a column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText keeps kinds readable in persisted metadata.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "numeric":
		*k = Numeric
	case "categorical":
		*k = Categorical
	default:
		return fmt.Errorf("unknown column kind %q", string(text))
	}
	return nil
}

// Column is a named, typed column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Value is a single cell.
type Value struct {
	Raw     string
	Num     float64
	IsNum   bool
	Missing bool
}

// Missing returns the missing cell.
func Missing() Value {
	return Value{Missing: true}
}

// Number returns a numeric cell.
func Number(f float64) Value {
	return Value{Raw: strconv.FormatFloat(f, 'g', -1, 64), Num: f, IsNum: true}
}

// Text returns a string cell.
func Text(s string) Value {
	return Value{Raw: s}
}

// String renders the cell the way it would appear in a categorical column.
func (v Value) String() string {
	if v.Missing {
		return ""
	}
	return v.Raw
}

var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "<NA>": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {},
	"-1.#IND": {}, "-1.#QNAN": {}, "1.#IND": {}, "1.#QNAN": {},
}

// ParseValue classifies a raw cell. Non-finite numbers ("inf", "Infinity",
// "nan" in any case) are missing, so numeric columns only ever hold finite values.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if _, ok := missingTokens[s]; ok {
		return Missing()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return Missing()
		}
		return Value{Raw: s, Num: f, IsNum: true}
	}
	return Value{Raw: raw}
}

// Table is an ordered set of typed columns and rows aligned with them.
type Table struct {
	Columns []Column
	Rows    [][]Value
}

// FromRecords builds a table from a header and raw string records. Short
// records are padded with missing cells; a record wider than the header is an
// error.
func FromRecords(header []string, records [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("no columns to parse")
	}
	names := uniqueNames(header)

	rows := make([][]Value, 0, len(records))
	for i, rec := range records {
		if len(rec) > len(names) {
			return nil, fmt.Errorf("expected %d fields in line %d, saw %d", len(names), i+2, len(rec))
		}
		row := make([]Value, len(names))
		for j := range row {
			if j < len(rec) {
				row[j] = ParseValue(rec[j])
			} else {
				row[j] = Missing()
			}
		}
		rows = append(rows, row)
	}

	t := &Table{Columns: make([]Column, len(names)), Rows: rows}
	for j, name := range names {
		t.Columns[j] = Column{Name: name, Kind: inferKind(rows, j)}
	}
	return t, nil
}

// uniqueNames suffixes repeated headers with .1, .2, ... Generated names are
// counted too, so ["a", "a", "a.1"] becomes ["a", "a.1", "a.1.1"].
func uniqueNames(header []string) []string {
	counts := make(map[string]int, len(header))
	names := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		for n := counts[name]; n > 0; n = counts[name] {
			counts[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		}
		counts[name]++
		names[i] = name
	}
	return names
}

func inferKind(rows [][]Value, col int) Kind {
	for _, row := range rows {
		v := row[col]
		if !v.Missing && !v.IsNum {
			return Categorical
		}
	}
	return Numeric
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Drop returns a copy of the table without the named columns. Unknown names
// are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if _, ok := drop[c.Name]; !ok {
			keep = append(keep, i)
		}
	}
	return t.project(keep)
}

// SelectRows returns a table holding the given rows, in the given order.
func (t *Table) SelectRows(idx []int) *Table {
	out := &Table{Columns: append([]Column(nil), t.Columns...), Rows: make([][]Value, len(idx))}
	for i, r := range idx {
		out.Rows[i] = append([]Value(nil), t.Rows[r]...)
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	all := make([]int, len(t.Columns))
	for i := range all {
		all[i] = i
	}
	return t.project(all)
}

func (t *Table) project(cols []int) *Table {
	out := &Table{Columns: make([]Column, len(cols)), Rows: make([][]Value, len(t.Rows))}
	for i, c := range cols {
		out.Columns[i] = t.Columns[c]
	}
	for r, row := range t.Rows {
		nr := make([]Value, len(cols))
		for i, c := range cols {
			nr[i] = row[c]
		}
		out.Rows[r] = nr
	}
	return out
}

// Float returns the numeric target values of a numeric column.
func (t *Table) Float(name string) ([]float64, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	if t.Columns[idx].Kind != Numeric {
		return nil, fmt.Errorf("column %q is %s, expected numeric", name, t.Columns[idx].Kind)
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		v := row[idx]
		if v.Missing {
			return nil, fmt.Errorf("column %q: missing value at row %d", name, i+1)
		}
		out[i] = v.Num
	}
	return out, nil
}
