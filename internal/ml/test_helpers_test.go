package ml

import (
	"sync"
	"testing"
	"time"

	"churn-predictor/internal/table"

	"github.com/stretchr/testify/require"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      float64
	failures         int
	latencySum       float64
	latencyCount     int
	modelAge         float64
	predictionScores []float64
}

func (m *MockMetrics) MLPredictionsAdd(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions += v
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
	m.latencyCount++
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

// testArtifact scores 0.5 + 0.1*tenure - 0.2*[plan=basic] + 0.3*[plan=pro].
func testArtifact() *Artifact {
	return &Artifact{
		Metadata: ModelMetadata{
			Version:   "test",
			CreatedAt: time.Now().Add(-time.Hour),
			Target:    "Target",
			Metric:    "r2",
			Features: []table.Column{
				{Name: "tenure", Kind: table.Numeric},
				{Name: "plan", Kind: table.Categorical},
			},
			BestModel: "Linear",
		},
		Encoder: &Encoder{Features: []FeatureSpec{
			{Name: "tenure", Kind: table.Numeric, Fill: 0, Mean: 0, Std: 1},
			{Name: "plan", Kind: table.Categorical, Levels: []string{"basic", "pro"}, FillLevel: "basic"},
		}},
		Estimator: &EstimatorSpec{
			Name:   "Linear",
			Kind:   KindLinear,
			Linear: &LinearModel{Intercept: 0.5, Weights: []float64{0.1, -0.2, 0.3}},
		},
	}
}

func mustTable(t *testing.T, header []string, records ...[]string) *table.Table {
	t.Helper()
	tbl, err := table.FromRecords(header, records)
	require.NoError(t, err)
	return tbl
}
