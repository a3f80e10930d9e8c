package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ai-atl/hoopcast/internal/dataset"
	"github.com/ai-atl/hoopcast/internal/modelerrors"
	"github.com/ai-atl/hoopcast/internal/models"
)

// ErrArtifactIncomplete is returned by LoadBaseModel when a persisted
// artifact has no reloadable model weights. Only logistic_regression
// classifiers currently persist their weights in model.pkl; other model
// types must be retrained from their training CSV to serve as a stacking
// base model.
var ErrArtifactIncomplete = errors.New("experiment: artifact has no reloadable model weights")

// BaseModel is a fitted, calibrated binary classifier: the unit
// StackingTrainer combines across several configs.
type BaseModel struct {
	FeatureNames []string

	model classifierModel
	calibrate func(float64) float64
}

// Predict returns the calibrated home-win probability for one feature
// vector, ordered to match FeatureNames.
func (m *BaseModel) Predict(features []float64) float64 {
	return m.calibrate(m.model.rawScore(features))
}

// TrainBaseModel builds cfg's dataset, fits and calibrates its model, and
// returns it without evaluating or persisting: the retraining fallback a
// stacking trainer uses when a base config's artifact is absent or
// incomplete.
func TrainBaseModel(ctx context.Context, cfg *models.ClassifierConfig, builder *dataset.Builder, league string) (*BaseModel, error) {
	spec := cfg.FeatureSet
	spec.League = league
	spec.MinGamesPlayed = cfg.MinGamesPlayed

	built, err := builder.BuildDataset(ctx, spec)
	if err != nil {
		return nil, err
	}
	rows, featureNames, err := readTrainingRows(built.CSVPath, built.Schema)
	if err != nil {
		return nil, err
	}

	begin, calYears, evalYear := cfg.Calibration.Temporal()
	trainRows, calRows, _ := partitionByCalibration(rows, begin, calYears, evalYear)
	if len(trainRows) == 0 || len(calRows) == 0 {
		return nil, modelerrors.DataMissing("experiment: base model %s retrain produced an empty train/calibration split", cfg.ConfigID)
	}

	model, calibrate, _, _, _, err := fitCalibratedModel(cfg, trainRows, calRows)
	if err != nil {
		return nil, err
	}
	return &BaseModel{FeatureNames: featureNames, model: model, calibrate: calibrate}, nil
}

// LoadBaseModel reconstructs a BaseModel from a persisted classifier_models
// artifact directory. Only logistic_regression artifacts currently persist
// enough state to reconstruct; other model types return
// ErrArtifactIncomplete so the caller can fall back to TrainBaseModel.
func LoadBaseModel(dir string) (*BaseModel, error) {
	var featureNames []string
	if err := readArtifactJSON(filepath.Join(dir, "feature_names.json"), &featureNames); err != nil {
		return nil, err
	}
	var blob map[string]any
	if err := readArtifactJSON(filepath.Join(dir, "model.pkl"), &blob); err != nil {
		return nil, err
	}

	rawWeights, ok := blob["weights"]
	if !ok {
		return nil, ErrArtifactIncomplete
	}
	lr := &logisticRegression{
		weights: toFloatSlice(rawWeights),
		mean: toFloatSlice(blob["mean"]),
		std: toFloatSlice(blob["std"]),
		bias: toFloat(blob["bias"]),
	}

	method, _ := blob["calibration_method"].(string)
	var calibrate func(float64) float64
	if method == "isotonic" {
		iso := isotonicCalibration{x: toFloatSlice(blob["calibration_x"]), y: toFloatSlice(blob["calibration_y"])}
		calibrate = iso.apply
	} else {
		platt := plattScale{a: toFloat(blob["calibration_a"]), b: toFloat(blob["calibration_b"])}
		calibrate = platt.apply
	}
	return &BaseModel{FeatureNames: featureNames, model: lr, calibrate: calibrate}, nil
}

func readArtifactJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("experiment: read artifact %s: %w", path, err)
	}
	return json.Unmarshal(b, v)
}

func toFloatSlice(v any) []float64 {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, len(arr))
	for i, e := range arr {
		out[i] = toFloat(e)
	}
	return out
}

func toFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}
