package ml

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MissingArtifact(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelNotFound)

	// An existing directory without a database is just as unusable.
	_, err = New(t.TempDir())
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestPredictor_RowOrderAndValues(t *testing.T) {
	metrics := &MockMetrics{}
	p := FromArtifact(testArtifact(), metrics, "")

	tbl := mustTable(t, []string{"plan", "tenure"},
		[]string{"pro", "1"},
		[]string{"basic", "2"},
		[]string{"", ""},
	)

	scores, err := p.Predict(context.Background(), tbl)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.InDelta(t, 0.9, scores[0], 1e-9)
	assert.InDelta(t, 0.5, scores[1], 1e-9)
	assert.InDelta(t, 0.3, scores[2], 1e-9)

	assert.Equal(t, 3.0, metrics.predictions)
	assert.Len(t, metrics.predictionScores, 3)
	assert.Equal(t, 1, metrics.latencyCount)
	assert.Greater(t, metrics.modelAge, 0.0)
}

func TestPredictor_TargetColumnIgnored(t *testing.T) {
	p := FromArtifact(testArtifact(), nil, "Target")

	without := mustTable(t, []string{"tenure", "plan"}, []string{"3", "pro"}, []string{"0", "other"})
	with := mustTable(t, []string{"Target", "tenure", "plan"}, []string{"1", "3", "pro"}, []string{"0", "0", "other"})

	a, err := p.Predict(context.Background(), without)
	require.NoError(t, err)
	b, err := p.Predict(context.Background(), with)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, with.Has("Target"), "caller's table must not be modified")
}

func TestPredictor_Idempotent(t *testing.T) {
	p := FromArtifact(testArtifact(), nil, "")
	tbl := mustTable(t, []string{"tenure", "plan"}, []string{"1.5", "basic"}, []string{"-2", "pro"})

	first, err := p.Predict(context.Background(), tbl)
	require.NoError(t, err)
	second, err := p.Predict(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPredictor_InferenceErrors(t *testing.T) {
	metrics := &MockMetrics{}
	p := FromArtifact(testArtifact(), metrics, "")

	tests := []struct {
		name string
		tbl  [][]string
	}{
		{"missing feature column", [][]string{{"plan"}, {"pro"}}},
		{"non numeric value", [][]string{{"tenure", "plan"}, {"ten", "pro"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Predict(context.Background(), mustTable(t, tc.tbl[0], tc.tbl[1:]...))
			require.Error(t, err)
			var inf *InferenceError
			assert.True(t, errors.As(err, &inf))
		})
	}
	assert.Equal(t, 2, metrics.failures)
}

func TestPredictor_CloseAndCancel(t *testing.T) {
	p := FromArtifact(testArtifact(), nil, "")
	tbl := mustTable(t, []string{"tenure", "plan"}, []string{"1", "pro"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Predict(ctx, tbl)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, p.Close())
	assert.Error(t, p.Close())

	_, err = p.Predict(context.Background(), tbl)
	assert.ErrorIs(t, err, ErrPredictorClosed)
}

func TestPredictor_NilSafety(t *testing.T) {
	var p *Predictor
	_, err := p.Predict(context.Background(), nil)
	assert.Error(t, err)
}

func TestPredictor_Concurrency(t *testing.T) {
	p := FromArtifact(testArtifact(), &MockMetrics{}, "")
	tbl := mustTable(t, []string{"tenure", "plan"}, []string{"1", "pro"}, []string{"2", "basic"})

	want, err := p.Predict(context.Background(), tbl)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Predict(context.Background(), tbl)
			if err != nil {
				errs <- err
				return
			}
			if got[0] != want[0] || got[1] != want[1] {
				errs <- errors.New("concurrent prediction differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestPredictor_LoadFromDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "churn")
	require.NoError(t, testArtifact().Save(dir))

	p, err := NewWithMetrics(dir, &MockMetrics{}, "Target")
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, dir, p.ModelPath())
	assert.Equal(t, "test", p.Metadata().Version)

	scores, err := p.Predict(context.Background(), mustTable(t, []string{"tenure", "plan"}, []string{"1", "pro"}))
	require.NoError(t, err)
	assert.InDelta(t, 0.9, scores[0], 1e-9)
}
