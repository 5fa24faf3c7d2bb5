package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"churn-predictor/internal/storage"

	"github.com/rs/zerolog/log"
)

// VersionsFile is the registry kept next to artifact directories.
const VersionsFile = "model_versions.json"

// ModelVersion represents a trained artifact
type ModelVersion struct {
	Version   string       `json:"version"`
	Path      string       `json:"path"`
	CreatedAt time.Time    `json:"created_at"`
	Metrics   ModelMetrics `json:"metrics"`
	IsActive  bool         `json:"is_active"`
}

// ModelMetrics contains evaluation results for an artifact
type ModelMetrics struct {
	BestModel       string   `json:"best_model"`
	ValidationR2    float64  `json:"validation_r2"`
	TestR2          *float64 `json:"test_r2,omitempty"`
	TrainingSamples int      `json:"training_samples"`
	TestSamples     int      `json:"test_samples"`
}

// ModelManager records trained artifacts and which one is active
type ModelManager struct {
	modelsDir    string
	versionsFile string
	versions     []ModelVersion
	currentModel *ModelVersion
}

// NewModelManager creates a manager over modelsDir, loading any existing registry
func NewModelManager(modelsDir string) (*ModelManager, error) {
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}

	mm := &ModelManager{
		modelsDir:    modelsDir,
		versionsFile: filepath.Join(modelsDir, VersionsFile),
		versions:     make([]ModelVersion, 0),
	}

	if err := mm.loadVersions(); err != nil {
		log.Warn().Err(err).Msg("Failed to load model versions, starting fresh")
	}

	return mm, nil
}

// AddVersion registers a new artifact, newest first
func (mm *ModelManager) AddVersion(version, modelPath string, createdAt time.Time, metrics ModelMetrics) error {
	for _, v := range mm.versions {
		if v.Version == version {
			return fmt.Errorf("version %s already registered", version)
		}
	}

	mm.versions = append(mm.versions, ModelVersion{
		Version:   version,
		Path:      modelPath,
		CreatedAt: createdAt,
		Metrics:   metrics,
	})

	sort.SliceStable(mm.versions, func(i, j int) bool {
		return mm.versions[i].CreatedAt.After(mm.versions[j].CreatedAt)
	})
	mm.resolveCurrent()

	return mm.saveVersions()
}

// ActivateVersion activates a specific model version
func (mm *ModelManager) ActivateVersion(version string) error {
	found := false
	for i := range mm.versions {
		if mm.versions[i].Version == version {
			mm.versions[i].IsActive = true
			found = true
		} else {
			mm.versions[i].IsActive = false
		}
	}

	if !found {
		return fmt.Errorf("version %s not found", version)
	}
	mm.resolveCurrent()

	return mm.saveVersions()
}

// Rollback activates the version registered before the active one
func (mm *ModelManager) Rollback() error {
	if len(mm.versions) < 2 {
		return fmt.Errorf("no previous version available for rollback")
	}

	currentIdx := -1
	for i, v := range mm.versions {
		if v.IsActive {
			currentIdx = i
			break
		}
	}

	if currentIdx == -1 {
		return fmt.Errorf("no active version found")
	}

	if currentIdx+1 < len(mm.versions) {
		return mm.ActivateVersion(mm.versions[currentIdx+1].Version)
	}

	return fmt.Errorf("no previous version available")
}

// GetCurrentVersion returns the currently active version
func (mm *ModelManager) GetCurrentVersion() *ModelVersion {
	return mm.currentModel
}

// ActivePath returns the artifact directory of the active version. Relative
// registry paths are relative to the models directory.
func (mm *ModelManager) ActivePath() (string, error) {
	if mm.currentModel == nil {
		return "", fmt.Errorf("%w: no active version in %s", ErrModelNotFound, mm.versionsFile)
	}
	return mm.resolve(mm.currentModel.Path), nil
}

func (mm *ModelManager) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(mm.modelsDir, p)
}

// ResolveArtifactPath maps path to an artifact directory. A directory holding
// an artifact database is used as is; a models directory holding a version
// registry resolves to its active version. Anything else is returned
// unchanged and fails in LoadArtifact.
func ResolveArtifactPath(path string) (string, error) {
	if _, err := os.Stat(filepath.Join(path, storage.FileName)); err == nil {
		return path, nil
	}
	if _, err := os.Stat(filepath.Join(path, VersionsFile)); err != nil {
		return path, nil
	}
	mm, err := NewModelManager(path)
	if err != nil {
		return "", err
	}
	active, err := mm.ActivePath()
	if err != nil {
		return "", err
	}
	log.Info().Str("registry", mm.versionsFile).Str("version", mm.currentModel.Version).Msg("resolved active model version")
	return active, nil
}

// ListVersions returns all model versions
func (mm *ModelManager) ListVersions() []ModelVersion {
	return mm.versions
}

func (mm *ModelManager) resolveCurrent() {
	mm.currentModel = nil
	for i := range mm.versions {
		if mm.versions[i].IsActive {
			mm.currentModel = &mm.versions[i]
			return
		}
	}
}

// loadVersions loads model versions from file
func (mm *ModelManager) loadVersions() error {
	data, err := os.ReadFile(mm.versionsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := json.Unmarshal(data, &mm.versions); err != nil {
		return err
	}
	mm.resolveCurrent()

	return nil
}

// saveVersions saves model versions to file
func (mm *ModelManager) saveVersions() error {
	data, err := json.MarshalIndent(mm.versions, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(mm.versionsFile, data, 0o600)
}
