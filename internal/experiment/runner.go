// Package experiment implements ExperimentRunner: trains a classifier
// or points-regression model against a dataset, calibrates and scores it
// against a time-based train/calibration/evaluation split by season, and
// persists the run, its artifacts, and (for points models) a full
// prediction cache.
package experiment

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ai-atl/hoopcast/internal/dataset"
	"github.com/ai-atl/hoopcast/internal/leagueconfig"
	"github.com/ai-atl/hoopcast/internal/modelerrors"
	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/store"
)

type Runner struct {
	cfg *leagueconfig.Config
	datasetBuilder *dataset.Builder
	runStore *store.RunStore
	classifierStore *store.ClassifierConfigStore
	pointsStore *store.PointsConfigStore
	pointPredict *store.PointPredictionCacheStore
	log *logrus.Entry
}

func NewRunner(cfg *leagueconfig.Config, builder *dataset.Builder, runs *store.RunStore,
	classifiers *store.ClassifierConfigStore, points *store.PointsConfigStore,
	pointPredict *store.PointPredictionCacheStore) *Runner {
	return &Runner{
		cfg: cfg, datasetBuilder: builder, runStore: runs,
		classifierStore: classifiers, pointsStore: points, pointPredict: pointPredict,
		log: logrus.WithField("component", "experiment_runner"),
	}
}

// trainingRow is one resolved dataset row carrying enough context (season,
// date) to partition by the calibration protocol.
type trainingRow struct {
	features []float64
	year int
	homeWon float64
	homeMargin float64
	homePoints float64
	awayPoints float64
	gameID string
}

// RunClassifier trains, calibrates, and evaluates a binary home-win
// classifier end to end, transitioning the run created -> running ->
// completed/failed.
func (r *Runner) RunClassifier(ctx context.Context, configID string) (*models.ModelRun, error) {
	cfg, err := r.classifierStore.Get(ctx, configID)
	if err != nil {
		return nil, modelerrors.DataMissing("experiment: classifier config %s not found", configID)
	}

	run := &models.ModelRun{
		RunID: "run_" + uuid.NewString(), ConfigID: configID,
		Task: models.TaskBinaryHomeWin, ModelType: cfg.ModelType,
	}
	if err := r.runStore.Create(ctx, run); err != nil {
		return nil, err
	}
	if err := r.runStore.MarkRunning(ctx, run.RunID); err != nil {
		return nil, err
	}

	metrics, diagnostics, artifactDir, runErr := r.trainClassifier(ctx, run.RunID, cfg)
	if runErr != nil {
		_ = r.runStore.Fail(ctx, run.RunID, runErr)
		return nil, modelerrors.Run(runErr, "experiment: classifier run %s failed", run.RunID)
	}
	if err := r.runStore.Complete(ctx, run.RunID, metrics, diagnostics, artifactDir); err != nil {
		return nil, err
	}
	run.Status = models.RunStatusCompleted
	run.Metrics = metrics
	run.Diagnostics = diagnostics
	run.ArtifactDir = artifactDir
	return run, nil
}

func (r *Runner) trainClassifier(ctx context.Context, runID string, cfg *models.ClassifierConfig) (map[string]float64, map[string]any, string, error) {
	spec := cfg.FeatureSet
	spec.League = r.cfg.League
	spec.MinGamesPlayed = cfg.MinGamesPlayed

	built, err := r.datasetBuilder.BuildDataset(ctx, spec)
	if err != nil {
		return nil, nil, "", err
	}

	rows, featureNames, err := readTrainingRows(built.CSVPath, built.Schema)
	if err != nil {
		return nil, nil, "", err
	}

	begin, calYears, evalYear := cfg.Calibration.Temporal()
	trainRows, calRows, evalRows := partitionByCalibration(rows, begin, calYears, evalYear)
	if len(trainRows) == 0 || len(calRows) == 0 || len(evalRows) == 0 {
		return nil, nil, "", modelerrors.DataMissing("experiment: calibration protocol produced an empty split (train=%d, cal=%d, eval=%d)", len(trainRows), len(calRows), len(evalRows))
	}

	model, calibrate, method, platt, iso, err := fitCalibratedModel(cfg, trainRows, calRows)
	if err != nil {
		return nil, nil, "", err
	}

	evalProbs := make([]float64, len(evalRows))
	evalY := make([]float64, len(evalRows))
	for i, row := range evalRows {
		evalProbs[i] = calibrate(model.rawScore(row.features))
		evalY[i] = row.homeWon
	}
	metrics := classificationMetrics(evalY, evalProbs)

	allX, allY := splitXY(rows, func(tr trainingRow) float64 { return tr.homeWon })
	importances := anovaFScores(allX, allY, featureNames)
	diagnostics := map[string]any{
		"anova_f_scores": importances,
		"feature_count": len(featureNames),
		"train_rows": len(trainRows),
		"calibration_rows": len(calRows),
		"eval_rows": len(evalRows),
		"dataset_id": built.DatasetID,
		"calibration_method": method,
	}
	if lr, ok := model.(*logisticRegression); ok {
		diagnostics["native_importances"] = lr.featureImportances(featureNames)
	}

	artifactDir := filepath.Join(r.cfg.ArtifactRoot, "classifier_models", runID)
	if err := persistClassifierArtifact(artifactDir, featureNames, model, method, platt, iso); err != nil {
		return nil, nil, "", err
	}

	return metrics, diagnostics, artifactDir, nil
}

// fitCalibratedModel fits cfg.ModelType on trainRows and calibrates its raw
// score against calRows, returning both the fitted model and the calibrated
// probability function, shared by RunClassifier and stacking's base-model
// resolution when a base config's artifact must be retrained.
func fitCalibratedModel(cfg *models.ClassifierConfig, trainRows, calRows []trainingRow) (classifierModel, func(float64) float64, string, plattScale, isotonicCalibration, error) {
	model, err := newClassifierModel(cfg.ModelType)
	if err != nil {
		return nil, nil, "", plattScale{}, isotonicCalibration{}, modelerrors.ConfigWrap(err, "experiment: classifier model selection")
	}

	trainX, trainY := splitXY(trainRows, func(tr trainingRow) float64 { return tr.homeWon })
	if err := model.fit(trainX, trainY); err != nil {
		return nil, nil, "", plattScale{}, isotonicCalibration{}, err
	}

	calRaw := make([]float64, len(calRows))
	calY := make([]float64, len(calRows))
	for i, row := range calRows {
		calRaw[i] = model.rawScore(row.features)
		calY[i] = row.homeWon
	}

	method := cfg.Calibration.Method
	if method == "" {
		method = "sigmoid"
	}
	var calibrate func(float64) float64
	var platt plattScale
	var iso isotonicCalibration
	if method == "isotonic" {
		iso = fitIsotonic(calRaw, calY)
		calibrate = iso.apply
	} else {
		platt = fitPlattScale(calRaw, calY)
		calibrate = platt.apply
	}
	return model, calibrate, method, platt, iso, nil
}

// RunPointsRegression trains a points-regression model and always scores
// every game in its dataset into the PointPredictionCache, regardless of
// whether this config is later selected.
func (r *Runner) RunPointsRegression(ctx context.Context, configID string) (*models.ModelRun, error) {
	cfg, err := r.pointsStore.Get(ctx, configID)
	if err != nil {
		return nil, modelerrors.DataMissing("experiment: points config %s not found", configID)
	}

	run := &models.ModelRun{
		RunID: "run_" + uuid.NewString(), ConfigID: configID,
		Task: models.TaskPointsRegression, ModelType: cfg.ModelType,
	}
	if err := r.runStore.Create(ctx, run); err != nil {
		return nil, err
	}
	if err := r.runStore.MarkRunning(ctx, run.RunID); err != nil {
		return nil, err
	}

	metrics, diagnostics, artifactDir, runErr := r.trainPointsRegression(ctx, run.RunID, cfg)
	if runErr != nil {
		_ = r.runStore.Fail(ctx, run.RunID, runErr)
		return nil, modelerrors.Run(runErr, "experiment: points run %s failed", run.RunID)
	}
	if err := r.runStore.Complete(ctx, run.RunID, metrics, diagnostics, artifactDir); err != nil {
		return nil, err
	}
	run.Status = models.RunStatusCompleted
	run.Metrics = metrics
	run.Diagnostics = diagnostics
	run.ArtifactDir = artifactDir
	return run, nil
}

func (r *Runner) trainPointsRegression(ctx context.Context, runID string, cfg *models.PointsConfig) (map[string]float64, map[string]any, string, error) {
	spec := cfg.FeatureSet
	spec.League = r.cfg.League

	built, err := r.datasetBuilder.BuildDataset(ctx, spec)
	if err != nil {
		return nil, nil, "", err
	}

	rows, featureNames, err := readTrainingRows(built.CSVPath, built.Schema)
	if err != nil {
		return nil, nil, "", err
	}

	begin, calYears, evalYear := cfg.Calibration.Temporal()
	trainRows, calRows, evalRows := partitionByCalibration(rows, begin, calYears, evalYear)
	fitRows := append(append([]trainingRow{}, trainRows...), calRows...)
	if len(fitRows) == 0 || len(evalRows) == 0 {
		return nil, nil, "", modelerrors.DataMissing("experiment: points regression protocol produced an empty split")
	}

	// home_away mode fits independent home-points and away-points
	// regressors and derives margin from their difference; margin mode
	// fits a single regressor directly on the point differential.
	homeAway := cfg.TargetMode == "home_away"

	homeModel, err := newRegressorModel(cfg.ModelType, cfg.Hyperparams)
	if err != nil {
		return nil, nil, "", modelerrors.ConfigWrap(err, "experiment: points model selection")
	}
	var awayModel regressorModel
	if homeAway {
		awayModel, err = newRegressorModel(cfg.ModelType, cfg.Hyperparams)
		if err != nil {
			return nil, nil, "", modelerrors.ConfigWrap(err, "experiment: points model selection")
		}
	}

	if homeAway {
		fitX, fitHomeY := splitXY(fitRows, func(tr trainingRow) float64 { return tr.homePoints })
		if err := homeModel.fit(fitX, fitHomeY); err != nil {
			return nil, nil, "", err
		}
		_, fitAwayY := splitXY(fitRows, func(tr trainingRow) float64 { return tr.awayPoints })
		if err := awayModel.fit(fitX, fitAwayY); err != nil {
			return nil, nil, "", err
		}
	} else {
		fitX, fitMarginY := splitXY(fitRows, func(tr trainingRow) float64 { return tr.homeMargin })
		if err := homeModel.fit(fitX, fitMarginY); err != nil {
			return nil, nil, "", err
		}
	}

	predictMargin := func(features []float64) (margin, homePts, awayPts float64) {
		if homeAway {
			homePts = clampPoints(homeModel.predict(features))
			awayPts = clampPoints(awayModel.predict(features))
			return homePts - awayPts, homePts, awayPts
		}
		return homeModel.predict(features), 0, 0
	}

	evalActual := make([]float64, len(evalRows))
	evalPred := make([]float64, len(evalRows))
	for i, row := range evalRows {
		evalActual[i] = row.homeMargin
		evalPred[i], _, _ = predictMargin(row.features)
	}
	metrics := regressionMetrics(evalActual, evalPred)

	pointModelID := "points_model_" + runID
	preds := make([]models.PointPredictionCache, 0, len(rows))
	for _, row := range rows {
		margin, homePts, awayPts := predictMargin(row.features)
		preds = append(preds, models.PointPredictionCache{
				ModelID: pointModelID,
				GameID: row.gameID,
				PredMargin: margin,
				PredHomePoints: homePts,
				PredAwayPoints: awayPts,
			})
	}
	if err := r.pointPredict.UpsertMany(ctx, preds); err != nil {
		return nil, nil, "", err
	}

	diagnostics := map[string]any{
		"dataset_id": built.DatasetID,
		"train_rows": len(trainRows),
		"eval_rows": len(evalRows),
		"point_model_id": pointModelID,
		"scored_games": len(preds),
	}

	artifactDir := filepath.Join(r.cfg.ArtifactRoot, "points_models", runID)
	if err := persistRegressorArtifact(artifactDir, featureNames, pointModelID); err != nil {
		return nil, nil, "", err
	}

	return metrics, diagnostics, artifactDir, nil
}

func partitionByCalibration(rows []trainingRow, beginYear int, calYears []int, evalYear int) (train, calibration, evaluation []trainingRow) {
	inCal := map[int]bool{}
	minCal := evalYear
	for _, y := range calYears {
		inCal[y] = true
		if y < minCal {
			minCal = y
		}
	}
	for _, row := range rows {
		switch {
		case row.year == evalYear:
			evaluation = append(evaluation, row)
		case inCal[row.year]:
			calibration = append(calibration, row)
		case row.year >= beginYear && row.year < minCal:
			train = append(train, row)
		}
	}
	return train, calibration, evaluation
}

func splitXY(rows []trainingRow, target func(trainingRow) float64) ([][]float64, []float64) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		X[i] = row.features
		y[i] = target(row)
	}
	return X, y
}

// readTrainingRows reads a dataset CSV back into feature vectors, inferring
// the feature column set as every header column other than the metadata
// columns and the HomeWon/home_points/away_points targets, so a trailing
// pred_margin column is read as a feature.
func readTrainingRows(csvPath string, schema []string) ([]trainingRow, []string, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, modelerrors.DataMissing("experiment: dataset csv absent: %s", csvPath)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("experiment: read dataset header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[h] = i
	}

	var featureNames []string
	skip := map[string]bool{"Year": true, "Month": true, "Day": true, "Home": true, "Away": true,
		"game_id": true, "HomeWon": true, "home_points": true, "away_points": true}
	for _, h := range header {
		if !skip[h] {
			featureNames = append(featureNames, h)
		}
	}

	var rows []trainingRow
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		row := trainingRow{
			year: atoi(record[idx["Year"]]),
			gameID: record[idx["game_id"]],
			features: make([]float64, len(featureNames)),
		}
		for i, name := range featureNames {
			row.features[i] = atof(record[idx[name]])
		}
		row.homeWon = boolToFloat(record[idx["HomeWon"]] == "true")
		if hp, ok := idx["home_points"]; ok {
			if ap, ok2 := idx["away_points"]; ok2 {
				row.homePoints = atof(record[hp])
				row.awayPoints = atof(record[ap])
				row.homeMargin = row.homePoints - row.awayPoints
			}
		}
		rows = append(rows, row)
	}
	return rows, featureNames, nil
}

// clampPoints bounds a single team's predicted point total to a sane range
// before it is cached, per the points-regression protocol's 0-200 guard
// against a lopsided or undertrained fit.
func clampPoints(p float64) float64 {
	const minPoints, maxPoints = 0.0, 200.0
	if p < minPoints {
		return minPoints
	}
	if p > maxPoints {
		return maxPoints
	}
	return p
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func atoi(s string) int {
	var v int
	fmt.Sscanf(s, "%d", &v)
	return v
}

func atof(s string) float64 {
	var v float64
	fmt.Sscanf(s, "%g", &v)
	return v
}

func persistClassifierArtifact(dir string, featureNames []string, model classifierModel, method string, platt plattScale, iso isotonicCalibration) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "feature_names.json"), featureNames); err != nil {
		return err
	}
	modelBlob := map[string]any{"calibration_method": method}
	if lr, ok := model.(*logisticRegression); ok {
		modelBlob["weights"] = lr.weights
		modelBlob["bias"] = lr.bias
		modelBlob["mean"] = lr.mean
		modelBlob["std"] = lr.std
	}
	if method == "isotonic" {
		modelBlob["calibration_x"] = iso.x
		modelBlob["calibration_y"] = iso.y
	} else {
		modelBlob["calibration_a"] = platt.a
		modelBlob["calibration_b"] = platt.b
	}
	// model.pkl/scaler.pkl keep the artifact layout's established filenames;
	// the serialized content is JSON, not a Python pickle.
	if err := writeJSON(filepath.Join(dir, "model.pkl"), modelBlob); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "scaler.pkl"), map[string]any{"method": method})
}

func persistRegressorArtifact(dir string, featureNames []string, pointModelID string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "feature_names.json"), featureNames); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "model.pkl"), map[string]any{"point_model_id": pointModelID})
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
