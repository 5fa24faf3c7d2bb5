package ml

import (
	"errors"
	"fmt"
	"os"
	"time"

	"churn-predictor/internal/storage"
	"churn-predictor/internal/table"
)

const (
	metadataKey  = "metadata"
	encoderKey   = "encoder"
	estimatorKey = "estimator"
)

// LeaderboardEntry is one candidate from the model search.
type LeaderboardEntry struct {
	Model           string  `json:"model"`
	ValidationScore float64 `json:"validation_score"`
	FitSeconds      float64 `json:"fit_seconds"`
}

// ModelMetadata contains information about a trained artifact
type ModelMetadata struct {
	Version         string             `json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	Target          string             `json:"target"`
	Metric          string             `json:"metric"`
	Features        []table.Column     `json:"features"`
	BestModel       string             `json:"best_model"`
	ValidationScore float64            `json:"validation_score"`
	TestScore       *float64           `json:"test_score,omitempty"`
	TrainingRows    int                `json:"training_rows"`
	ValidationRows  int                `json:"validation_rows"`
	TestRows        int                `json:"test_rows"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`

	FeatureImportance []FeatureImportance `json:"feature_importance,omitempty"`
}

// Artifact is a trained model: metadata, encoder and estimator.
type Artifact struct {
	Metadata  ModelMetadata
	Encoder   *Encoder
	Estimator *EstimatorSpec
}

// PredictTable encodes t and scores every row.
func (a *Artifact) PredictTable(t *table.Table) ([]float64, error) {
	x, err := a.Encoder.Encode(t)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = a.Estimator.Predict(row)
	}
	return out, nil
}

// Save writes the artifact into dir, replacing a previous one.
func (a *Artifact) Save(dir string) error {
	if err := a.validate(); err != nil {
		return err
	}
	store, err := storage.New(dir)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}
	defer store.Close()

	// One transaction, so a re-saved directory never pairs old metadata
	// with a new model.
	return store.PutAll(
		storage.Document{Bucket: storage.ModelBucket, Key: encoderKey, Value: a.Encoder},
		storage.Document{Bucket: storage.ModelBucket, Key: estimatorKey, Value: a.Estimator},
		storage.Document{Bucket: storage.MetaBucket, Key: metadataKey, Value: a.Metadata},
	)
}

// LoadArtifact reads an artifact directory written by Save.
func LoadArtifact(dir string) (*Artifact, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrModelNotFound, dir)
		}
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	store, err := storage.OpenReadOnly(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrModelNotFound, dir)
		}
		return nil, err
	}
	defer store.Close()

	a := &Artifact{Encoder: &Encoder{}, Estimator: &EstimatorSpec{}}
	if err := store.GetJSON(storage.MetaBucket, metadataKey, &a.Metadata); err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	if err := store.GetJSON(storage.ModelBucket, encoderKey, a.Encoder); err != nil {
		return nil, fmt.Errorf("load encoder: %w", err)
	}
	if err := store.GetJSON(storage.ModelBucket, estimatorKey, a.Estimator); err != nil {
		return nil, fmt.Errorf("load estimator: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Artifact) validate() error {
	if a.Encoder == nil || a.Estimator == nil {
		return fmt.Errorf("artifact is incomplete")
	}
	for _, f := range a.Encoder.Features {
		if f.Kind == table.Numeric && f.Std == 0 {
			return fmt.Errorf("feature %q has zero scale", f.Name)
		}
	}
	return a.Estimator.Validate(a.Encoder.Width())
}
