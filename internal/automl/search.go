// Package automl searches a small space of regression models for the one
// that best predicts a numeric target, scored by R² on a validation holdout.
package automl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/dataprep"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/table"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MetricR2 names the evaluation metric recorded in artifacts.
const MetricR2 = "r2"

// ErrNoFeatures is returned when nothing but the target and excluded columns remain.
var ErrNoFeatures = errors.New("no feature columns to train on")

// Options controls the model search.
type Options struct {
	Target             string
	Exclude            []string
	ValidationFraction float64
	Seed               uint64
	RidgeLambdas       []float64
	TreeDepths         []int
	MinSamplesLeaf     int
	EnsembleRounds     int
	Parallelism        int
}

// DefaultOptions returns the search used by the trainer.
func DefaultOptions(target string) Options {
	return Options{
		Target:             target,
		Exclude:            []string{common.IDColumn},
		ValidationFraction: common.DefaultValidationFraction,
		Seed:               common.DefaultSeed,
		RidgeLambdas:       []float64{0.01, 0.1, 1, 10, 100},
		TreeDepths:         []int{2, 4, 6, 8},
		MinSamplesLeaf:     5,
		EnsembleRounds:     25,
		Parallelism:        4,
	}
}

type candidate struct {
	spec    *ml.EstimatorSpec
	valPred []float64
	score   float64
	fitTime time.Duration
}

// Search fits every candidate on the training rows, scores them on an
// internal holdout, builds a weighted ensemble and returns an artifact for
// the best model. The caller fills in version and test score.
func Search(ctx context.Context, train *table.Table, opts Options) (*ml.Artifact, error) {
	y, err := train.Float(opts.Target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	if train.Len() < 2 {
		return nil, fmt.Errorf("need at least 2 training rows, got %d", train.Len())
	}

	exclude := append([]string{opts.Target}, opts.Exclude...)

	fitIdx, valIdx := dataprep.SplitIndices(train.Len(), 1-opts.ValidationFraction, opts.Seed)
	if len(valIdx) == 0 || len(fitIdx) == 0 {
		// Too few rows for a holdout; score on the training rows.
		fitIdx, valIdx = allRows(train.Len()), allRows(train.Len())
	}
	fitTable, valTable := train.SelectRows(fitIdx), train.SelectRows(valIdx)
	yFit, yVal := pick(y, fitIdx), pick(y, valIdx)

	enc := ml.FitEncoder(fitTable, exclude...)
	if len(enc.Features) == 0 {
		return nil, ErrNoFeatures
	}
	xFit, err := enc.Encode(fitTable)
	if err != nil {
		return nil, fmt.Errorf("encode training rows: %w", err)
	}
	xVal, err := enc.Encode(valTable)
	if err != nil {
		return nil, fmt.Errorf("encode validation rows: %w", err)
	}

	log.Info().
		Int("fit_rows", len(fitIdx)).
		Int("validation_rows", len(valIdx)).
		Int("features", len(enc.Features)).
		Int("encoded_width", enc.Width()).
		Msg("starting model search")

	cands, err := fitCandidates(ctx, opts, xFit, yFit, xVal)
	if err != nil {
		return nil, err
	}
	cands, err = scoreCandidates(cands, yVal)
	if err != nil {
		return nil, err
	}

	board := make([]ml.LeaderboardEntry, 0, len(cands)+1)
	for _, c := range cands {
		board = append(board, ml.LeaderboardEntry{Model: c.spec.Name, ValidationScore: c.score, FitSeconds: c.fitTime.Seconds()})
	}

	best := bestCandidate(cands)
	bestSpec, bestScore := best.spec, best.score

	start := time.Now()
	if ens, score := buildEnsemble(cands, yVal, opts.EnsembleRounds); ens != nil {
		board = append(board, ml.LeaderboardEntry{Model: ens.Name, ValidationScore: score, FitSeconds: time.Since(start).Seconds()})
		if score > bestScore && len(ens.Ensemble.Members) > 1 {
			bestSpec, bestScore = ens, score
		}
	}

	sort.SliceStable(board, func(i, j int) bool { return board[i].ValidationScore > board[j].ValidationScore })

	features := make([]table.Column, len(enc.Features))
	for i, f := range enc.Features {
		features[i] = table.Column{Name: f.Name, Kind: f.Kind}
	}

	log.Info().Str("best_model", bestSpec.Name).Float64("validation_r2", bestScore).Msg("model search finished")

	return &ml.Artifact{
		Metadata: ml.ModelMetadata{
			Target:          opts.Target,
			Metric:          MetricR2,
			Features:        features,
			BestModel:       bestSpec.Name,
			ValidationScore: bestScore,
			TrainingRows:    len(fitIdx),
			ValidationRows:  len(valIdx),
			Leaderboard:     board,
		},
		Encoder:   enc,
		Estimator: bestSpec,
	}, nil
}

func fitCandidates(ctx context.Context, opts Options, xFit [][]float64, yFit []float64, xVal [][]float64) ([]*candidate, error) {
	type job struct {
		name string
		fit  func() (*ml.EstimatorSpec, error)
	}

	jobs := []job{{
		name: "Mean",
		fit: func() (*ml.EstimatorSpec, error) {
			return &ml.EstimatorSpec{Kind: ml.KindLinear, Linear: fitMean(yFit)}, nil
		},
	}}
	for _, lambda := range opts.RidgeLambdas {
		jobs = append(jobs, job{
			name: "Ridge(alpha=" + strconv.FormatFloat(lambda, 'g', -1, 64) + ")",
			fit: func() (*ml.EstimatorSpec, error) {
				m, err := fitRidge(xFit, yFit, lambda)
				if err != nil {
					return nil, err
				}
				return &ml.EstimatorSpec{Kind: ml.KindLinear, Linear: m}, nil
			},
		})
	}
	for _, depth := range opts.TreeDepths {
		jobs = append(jobs, job{
			name: "Tree(depth=" + strconv.Itoa(depth) + ")",
			fit: func() (*ml.EstimatorSpec, error) {
				t := fitTree(xFit, yFit, treeParams{MaxDepth: depth, MinSamplesLeaf: opts.MinSamplesLeaf})
				return &ml.EstimatorSpec{Kind: ml.KindTree, Tree: t}, nil
			},
		})
	}

	cands := make([]*candidate, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			spec, err := j.fit()
			if err != nil {
				log.Warn().Err(err).Str("model", j.name).Msg("candidate failed, skipping")
				return nil
			}
			spec.Name = j.name
			pred := make([]float64, len(xVal))
			for r, row := range xVal {
				pred[r] = spec.Predict(row)
			}
			cands[i] = &candidate{spec: spec, valPred: pred, fitTime: time.Since(start)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := cands[:0]
	for _, c := range cands {
		if c != nil {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("every candidate model failed to fit")
	}
	return out, nil
}

// scoreCandidates computes validation R² and drops candidates whose score is
// not finite, so neither the leaderboard nor the ensemble sees NaN or Inf.
func scoreCandidates(cands []*candidate, yVal []float64) ([]*candidate, error) {
	out := make([]*candidate, 0, len(cands))
	for _, c := range cands {
		c.score = R2(c.valPred, yVal)
		if math.IsNaN(c.score) || math.IsInf(c.score, 0) {
			log.Warn().Str("model", c.spec.Name).Msg("candidate produced a non-finite score, skipping")
			continue
		}
		log.Info().Str("model", c.spec.Name).Float64("validation_r2", c.score).Dur("fit_time", c.fitTime).Msg("candidate scored")
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no candidate model produced a finite validation score")
	}
	return out, nil
}

// bestCandidate returns the highest score; earlier (simpler) candidates win ties.
func bestCandidate(cands []*candidate) *candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.score > best.score {
			best = c
		}
	}
	return best
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
