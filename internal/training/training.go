// Package training runs the offline pipeline that turns a labeled dataset
// into a model artifact: load, clean, split, search, evaluate, save, register.
package training

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"churn-predictor/internal/automl"
	"churn-predictor/internal/common"
	"churn-predictor/internal/dataprep"
	"churn-predictor/internal/ingest"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/table"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrTargetMissing means the target column is absent after cleaning.
	ErrTargetMissing = errors.New("target column not found in data")
	// ErrTargetNotNumeric means the target column holds non-numeric values.
	ErrTargetNotNumeric = errors.New("target column must be numeric")
)

// Config describes one training run.
type Config struct {
	DataPath         string
	OutputDir        string
	Target           string
	TrainFraction    float64
	MissingThreshold float64
	Seed             uint64
	Search           *automl.Options
	Now              func() time.Time
}

// DefaultConfig returns the settings of a standard run.
func DefaultConfig() Config {
	return Config{
		DataPath:         common.DefaultDatasetPath,
		OutputDir:        common.DefaultModelPath,
		Target:           common.DefaultTargetColumn,
		TrainFraction:    common.DefaultTrainFraction,
		MissingThreshold: common.DefaultMissingThreshold,
		Seed:             common.DefaultSeed,
	}
}

// Result summarises a finished run.
type Result struct {
	Version        string
	OutputDir      string // models directory holding the registry
	ArtifactDir    string // OutputDir/<version>
	Artifact       *ml.Artifact
	DroppedColumns []string
	Rows           int
	TestRows       int
	TestScore      *float64
	Duration       time.Duration
}

// Run executes the pipeline and writes the artifact to cfg.OutputDir/<version>.
// The run is recorded in the version registry of cfg.OutputDir and activated.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Target == "" {
		cfg.Target = common.DefaultTargetColumn
	}
	started := cfg.Now()

	data, err := os.ReadFile(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	tbl, err := ingest.Read(filepath.Base(cfg.DataPath), data)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.DataPath).Int("rows", tbl.Len()).Int("columns", len(tbl.Columns)).Msg("dataset loaded")

	tbl, dropped := dataprep.DropSparseColumns(tbl, cfg.MissingThreshold)
	dataprep.Impute(tbl)

	idx := tbl.Index(cfg.Target)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrTargetMissing, cfg.Target)
	}
	if tbl.Columns[idx].Kind != table.Numeric {
		return nil, fmt.Errorf("%w: %q is %s", ErrTargetNotNumeric, cfg.Target, tbl.Columns[idx].Kind)
	}

	train, test, err := dataprep.TrainTestSplit(tbl, cfg.TrainFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}
	log.Info().Int("train_rows", train.Len()).Int("test_rows", test.Len()).Msg("dataset split")

	opts := automl.DefaultOptions(cfg.Target)
	if cfg.Search != nil {
		opts = *cfg.Search
		opts.Target = cfg.Target
	}
	opts.Seed = cfg.Seed

	artifact, err := automl.Search(ctx, train, opts)
	if err != nil {
		return nil, fmt.Errorf("model search: %w", err)
	}

	testScore, err := evaluate(artifact, test, cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("evaluate test partition: %w", err)
	}
	importance, err := automl.PermutationImportance(ctx, artifact, test, cfg.Target, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("feature importance: %w", err)
	}

	createdAt := cfg.Now().UTC()
	version := createdAt.Format("20060102T150405") + "-" + uuid.NewString()[:8]
	artifact.Metadata.Version = version
	artifact.Metadata.CreatedAt = createdAt
	artifact.Metadata.TestRows = test.Len()
	artifact.Metadata.TestScore = testScore
	artifact.Metadata.FeatureImportance = importance

	artifactDir := filepath.Join(cfg.OutputDir, version)
	if err := artifact.Save(artifactDir); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}
	if err := register(cfg.OutputDir, artifact); err != nil {
		return nil, fmt.Errorf("register artifact: %w", err)
	}

	res := &Result{
		Version:        version,
		OutputDir:      cfg.OutputDir,
		ArtifactDir:    artifactDir,
		Artifact:       artifact,
		DroppedColumns: dropped,
		Rows:           tbl.Len(),
		TestRows:       test.Len(),
		TestScore:      testScore,
		Duration:       cfg.Now().Sub(started),
	}

	ev := log.Info().
		Str("version", version).
		Str("output", artifactDir).
		Str("best_model", artifact.Metadata.BestModel).
		Float64("validation_r2", artifact.Metadata.ValidationScore)
	if testScore != nil {
		ev = ev.Float64("test_r2", *testScore)
	}
	ev.Msg("training finished")

	return res, nil
}

// evaluate scores the artifact on held-out rows. It returns nil when there
// are no test rows.
func evaluate(artifact *ml.Artifact, test *table.Table, target string) (*float64, error) {
	if test.Len() == 0 {
		return nil, nil
	}
	actual, err := test.Float(target)
	if err != nil {
		return nil, err
	}
	pred, err := artifact.PredictTable(test.Drop(target))
	if err != nil {
		return nil, err
	}
	score := automl.R2(pred, actual)
	return &score, nil
}

// register records the artifact under its version directory, relative to
// the models directory so the tree can be moved as a whole.
func register(modelsDir string, artifact *ml.Artifact) error {
	mm, err := ml.NewModelManager(modelsDir)
	if err != nil {
		return err
	}
	md := artifact.Metadata
	metrics := ml.ModelMetrics{
		BestModel:       md.BestModel,
		ValidationR2:    md.ValidationScore,
		TestR2:          md.TestScore,
		TrainingSamples: md.TrainingRows + md.ValidationRows,
		TestSamples:     md.TestRows,
	}
	if err := mm.AddVersion(md.Version, md.Version, md.CreatedAt, metrics); err != nil {
		return err
	}
	return mm.ActivateVersion(md.Version)
}
