// Package preprocess is the hook between ingestion and inference. It knows the
// column layout the model was built for and, depending on its mode, either
// reports deviations from it or rejects them.
package preprocess

import (
	"errors"
	"fmt"
	"strings"

	"churn-predictor/internal/common"
	"churn-predictor/internal/table"

	"github.com/rs/zerolog/log"
)

// ErrSchemaMismatch is returned in strict mode when expected columns are absent.
var ErrSchemaMismatch = errors.New("uploaded table does not match the expected schema")

// SchemaReport describes how a table deviates from the expected layout.
type SchemaReport struct {
	Missing    []string `json:"missing,omitempty"`
	Unexpected []string `json:"unexpected,omitempty"`
}

// OK reports whether every expected column is present.
func (r SchemaReport) OK() bool {
	return len(r.Missing) == 0
}

// Preprocessor validates or passes through uploaded tables.
type Preprocessor struct {
	mode     string
	expected []string
	ignored  map[string]struct{}
}

// New creates a preprocessor for the given mode ("passthrough" or "strict").
// Columns listed in ignore never count as unexpected.
func New(mode string, expected []string, ignore ...string) (*Preprocessor, error) {
	switch mode {
	case common.SchemaModePassthrough, common.SchemaModeStrict:
	default:
		return nil, fmt.Errorf("unknown schema mode %q", mode)
	}
	ign := make(map[string]struct{}, len(ignore))
	for _, c := range ignore {
		ign[c] = struct{}{}
	}
	return &Preprocessor{
		mode:     mode,
		expected: append([]string(nil), expected...),
		ignored:  ign,
	}, nil
}

// Default returns a pass-through preprocessor over the client export layout.
func Default() *Preprocessor {
	p, _ := New(common.SchemaModePassthrough, common.ExpectedColumns, common.IDColumn, common.DefaultTargetColumn)
	return p
}

// Mode returns the configured mode.
func (p *Preprocessor) Mode() string {
	return p.mode
}

// Expected returns the declared feature columns.
func (p *Preprocessor) Expected() []string {
	return append([]string(nil), p.expected...)
}

// Report compares the table's columns with the expected layout.
func (p *Preprocessor) Report(t *table.Table) SchemaReport {
	var r SchemaReport
	want := make(map[string]struct{}, len(p.expected))
	for _, c := range p.expected {
		want[c] = struct{}{}
		if !t.Has(c) {
			r.Missing = append(r.Missing, c)
		}
	}
	for _, c := range t.Columns {
		if _, ok := want[c.Name]; ok {
			continue
		}
		if _, ok := p.ignored[c.Name]; ok {
			continue
		}
		r.Unexpected = append(r.Unexpected, c.Name)
	}
	return r
}

// Apply returns the table unchanged unless strict mode rejects it.
func (p *Preprocessor) Apply(t *table.Table) (*table.Table, error) {
	report := p.Report(t)
	if report.OK() {
		return t, nil
	}

	if p.mode == common.SchemaModeStrict {
		return nil, fmt.Errorf("%w: missing columns %s", ErrSchemaMismatch, strings.Join(report.Missing, ", "))
	}

	log.Debug().
		Strs("missing", report.Missing).
		Strs("unexpected", report.Unexpected).
		Msg("schema deviation accepted in passthrough mode")
	return t, nil
}
