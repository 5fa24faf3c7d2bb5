package training

import (
	"fmt"
	"io"
	"text/tabwriter"

	"churn-predictor/internal/ml"

	"github.com/rs/zerolog/log"
)

// PrintVersions lists the registered runs of modelsDir, newest first. The
// active version is marked with an asterisk.
func PrintVersions(w io.Writer, modelsDir string) error {
	mm, err := ml.NewModelManager(modelsDir)
	if err != nil {
		return err
	}
	versions := mm.ListVersions()
	if len(versions) == 0 {
		fmt.Fprintf(w, "no registered versions in %s\n", modelsDir)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tVERSION\tCREATED\tBEST MODEL\tVALIDATION R²\tTEST R²")
	for _, v := range versions {
		mark := ""
		if v.IsActive {
			mark = "*"
		}
		test := "n/a"
		if v.Metrics.TestR2 != nil {
			test = fmt.Sprintf("%.4f", *v.Metrics.TestR2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%s\n", mark, v.Version,
			v.CreatedAt.Format("2006-01-02 15:04:05"), v.Metrics.BestModel, v.Metrics.ValidationR2, test)
	}
	return tw.Flush()
}

// Activate makes version the one served from modelsDir.
func Activate(modelsDir, version string) (*ml.ModelVersion, error) {
	mm, err := ml.NewModelManager(modelsDir)
	if err != nil {
		return nil, err
	}
	if err := mm.ActivateVersion(version); err != nil {
		return nil, err
	}
	log.Info().Str("version", version).Msg("model version activated")
	return mm.GetCurrentVersion(), nil
}

// Rollback activates the run registered before the active one.
func Rollback(modelsDir string) (*ml.ModelVersion, error) {
	mm, err := ml.NewModelManager(modelsDir)
	if err != nil {
		return nil, err
	}
	if err := mm.Rollback(); err != nil {
		return nil, err
	}
	cur := mm.GetCurrentVersion()
	log.Info().Str("version", cur.Version).Msg("rolled back model version")
	return cur, nil
}
