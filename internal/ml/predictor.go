package ml

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/table"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines metrics methods needed by the predictor
type MetricsInterface interface {
	MLPredictionsAdd(float64)
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLPredictionScoresObserve(float64)
	MLModelAgeSet(float64)
}

// Predictor serves predictions from one artifact loaded at construction. The
// artifact is never mutated afterwards, so Predict needs no locking.
type Predictor struct {
	artifact     *Artifact
	modelPath    string
	targetColumn string
	metrics      MetricsInterface
	closed       atomic.Bool
}

var _ PredictorInterface = (*Predictor)(nil)

// New loads the artifact at path.
func New(path string) (*Predictor, error) {
	return NewWithMetrics(path, nil, common.DefaultTargetColumn)
}

// NewWithMetrics loads the artifact at path, which is either an artifact
// directory or a models directory whose registry names the active version.
// Input columns named targetColumn are removed before inference.
func NewWithMetrics(path string, metrics MetricsInterface, targetColumn string) (*Predictor, error) {
	path, err := ResolveArtifactPath(path)
	if err != nil {
		return nil, err
	}
	artifact, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	p := FromArtifact(artifact, metrics, targetColumn)
	p.modelPath = path

	log.Info().
		Str("model_path", path).
		Str("version", artifact.Metadata.Version).
		Str("best_model", artifact.Metadata.BestModel).
		Int("features", len(artifact.Encoder.Features)).
		Msg("model artifact loaded")

	return p, nil
}

// FromArtifact wraps an in-memory artifact.
func FromArtifact(artifact *Artifact, metrics MetricsInterface, targetColumn string) *Predictor {
	if targetColumn == "" {
		targetColumn = common.DefaultTargetColumn
	}
	p := &Predictor{
		artifact:     artifact,
		targetColumn: targetColumn,
		metrics:      metrics,
	}
	if p.metrics != nil && !artifact.Metadata.CreatedAt.IsZero() {
		p.metrics.MLModelAgeSet(time.Since(artifact.Metadata.CreatedAt).Seconds())
	}
	return p
}

// Predict scores every row of data. A target column, if present, is dropped
// first so the label is never used as a feature.
func (p *Predictor) Predict(ctx context.Context, data *table.Table) ([]float64, error) {
	if p == nil {
		return nil, inferenceErr("predictor is nil")
	}
	if p.closed.Load() {
		return nil, &InferenceError{Err: ErrPredictorClosed}
	}
	if err := ctx.Err(); err != nil {
		return nil, &InferenceError{Err: err}
	}

	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.MLLatencyObserve(time.Since(start).Seconds())
		}
	}()

	if data.Has(p.targetColumn) {
		data = data.Drop(p.targetColumn)
	}

	scores, err := p.artifact.PredictTable(data)
	if err != nil {
		if p.metrics != nil {
			p.metrics.MLFailuresInc()
		}
		log.Error().Err(err).Int("rows", data.Len()).Msg("inference failed")
		return nil, &InferenceError{Err: err}
	}
	if len(scores) != data.Len() {
		return nil, inferenceErr("model returned %d scores for %d rows", len(scores), data.Len())
	}

	if p.metrics != nil {
		p.metrics.MLPredictionsAdd(float64(len(scores)))
		for _, s := range scores {
			p.metrics.MLPredictionScoresObserve(s)
		}
	}

	log.Debug().
		Int("rows", len(scores)).
		Dur("latency", time.Since(start)).
		Msg("prediction successful")

	return scores, nil
}

// Metadata describes the loaded artifact.
func (p *Predictor) Metadata() ModelMetadata {
	return p.artifact.Metadata
}

// ModelPath is the directory the artifact was loaded from.
func (p *Predictor) ModelPath() string {
	return p.modelPath
}

// Close ends the predictor's lifecycle. The artifact database is already
// closed after loading; Close only stops further predictions.
func (p *Predictor) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("predictor already closed")
	}
	log.Info().Str("model_path", p.modelPath).Msg("predictor closed")
	return nil
}
