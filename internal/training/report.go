package training

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
)

// ReportFile is written next to the artifact database.
const ReportFile = "training_report.json"

const topFeatures = 10

// PrintSummary writes a human-readable summary of the run.
func PrintSummary(w io.Writer, res *Result) {
	md := res.Artifact.Metadata

	fmt.Fprintln(w, "\n=== TRAINING RESULTS ===")
	fmt.Fprintf(w, "Version: %s\n", res.Version)
	fmt.Fprintf(w, "Artifact: %s\n", res.ArtifactDir)
	fmt.Fprintf(w, "Rows: %d (train %d, validation %d, test %d)\n",
		res.Rows, md.TrainingRows, md.ValidationRows, res.TestRows)
	if len(res.DroppedColumns) > 0 {
		fmt.Fprintf(w, "Dropped sparse columns: %v\n", res.DroppedColumns)
	}
	fmt.Fprintf(w, "Best model: %s\n", md.BestModel)
	fmt.Fprintf(w, "Validation R²: %.4f\n", md.ValidationScore)
	if res.TestScore != nil {
		fmt.Fprintf(w, "Test R²: %.4f\n", *res.TestScore)
	} else {
		fmt.Fprintln(w, "Test R²: n/a (no test rows)")
	}

	fmt.Fprintln(w, "\nLeaderboard:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tVALIDATION R²\tFIT SECONDS")
	for _, e := range md.Leaderboard {
		fmt.Fprintf(tw, "%s\t%.4f\t%.3f\n", e.Model, e.ValidationScore, e.FitSeconds)
	}
	tw.Flush()

	if fi := md.FeatureImportance; len(fi) > 0 {
		fmt.Fprintln(w, "\nTop features (test R² drop when shuffled):")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for i, f := range fi {
			if i == topFeatures {
				break
			}
			fmt.Fprintf(tw, "%s\t%.4f\n", f.Name, f.PermutationDrop)
		}
		tw.Flush()
	}
	fmt.Fprintln(w, "========================")
}

// WriteReport stores the run summary as JSON in the artifact directory.
func WriteReport(res *Result) (string, error) {
	report := map[string]interface{}{
		"version":         res.Version,
		"rows":            res.Rows,
		"test_rows":       res.TestRows,
		"test_score":      res.TestScore,
		"dropped_columns": res.DroppedColumns,
		"duration":        res.Duration.String(),
		"metadata":        res.Artifact.Metadata,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(res.ArtifactDir, ReportFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	log.Info().Str("file", path).Msg("training report generated")
	return path, nil
}
