package models

import "time"

// RunStatus is the lifecycle state of a ModelRun. A run transitions at most
// once from Running to a terminal state.
type RunStatus string

const (
	RunStatusCreated RunStatus = "created"
	RunStatusRunning RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed RunStatus = "failed"
)

// TaskType selects ExperimentRunner's branch.
type TaskType string

const (
	TaskBinaryHomeWin TaskType = "binary_home_win"
	TaskPointsRegression TaskType = "points_regression"
	TaskEnsemble TaskType = "ensemble"
)

// ModelRun is a single training execution: its resolved config, dataset,
// metrics, diagnostics, artifact paths, status, and timestamps.
type ModelRun struct {
	RunID string `json:"run_id" bson:"run_id"`
	ConfigID string `json:"config_id" bson:"config_id"`
	ParentConfigID string `json:"parent_config_id,omitempty" bson:"parent_config_id,omitempty"`
	SessionID string `json:"session_id,omitempty" bson:"session_id,omitempty"`
	Task TaskType `json:"task" bson:"task"`
	ModelType string `json:"model_type" bson:"model_type"`
	DatasetID string `json:"dataset_id" bson:"dataset_id"`
	Status RunStatus `json:"status" bson:"status"`
	Metrics map[string]float64 `json:"metrics,omitempty" bson:"metrics,omitempty"`
	Diagnostics map[string]any `json:"diagnostics,omitempty" bson:"diagnostics,omitempty"`
	ArtifactDir string `json:"artifact_dir,omitempty" bson:"artifact_dir,omitempty"`
	Error string `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	StartedAt time.Time `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// CalibrationConfig describes the time-based train/calibration/evaluation
// split a run partitions its dataset by: rows before BeginYear are dropped,
// CalibrationYears rows fit the calibration stage, and EvaluationYear rows
// score the final metrics.
type CalibrationConfig struct {
	BeginYear int `json:"begin_year" bson:"begin_year"`
	CalibrationYears []int `json:"calibration_years" bson:"calibration_years"`
	EvaluationYear int `json:"evaluation_year" bson:"evaluation_year"`
	Method string `json:"method,omitempty" bson:"method,omitempty"` // "sigmoid" | "isotonic"
}

// Temporal returns the (begin, calibration years, evaluation) triple used for
// ensemble base-model compatibility checks.
func (c CalibrationConfig) Temporal() (int, []int, int) {
	return c.BeginYear, c.CalibrationYears, c.EvaluationYear
}

// ClassifierConfig is a deduplicated, hashable description of a trainable
// binary classifier. Exactly one per league collection may be Selected at a
// time.
type ClassifierConfig struct {
	ConfigID string `json:"config_id" bson:"config_id"`
	Name string `json:"name" bson:"name"`
	ModelType string `json:"model_type" bson:"model_type"`
	FeatureSet DatasetSpec `json:"feature_set" bson:"feature_set"`
	Calibration CalibrationConfig `json:"calibration" bson:"calibration"`
	MinGamesPlayed int `json:"min_games_played,omitempty" bson:"min_games_played,omitempty"`
	Selected bool `json:"selected" bson:"selected"`
	Ensemble bool `json:"ensemble" bson:"ensemble"`
	BaseConfigIDs []string `json:"base_config_ids,omitempty" bson:"base_config_ids,omitempty"`
	MetaModelType string `json:"meta_model_type,omitempty" bson:"meta_model_type,omitempty"`
	MetaFeatures []string `json:"meta_features,omitempty" bson:"meta_features,omitempty"`
	UseDisagree bool `json:"use_disagree,omitempty" bson:"use_disagree,omitempty"`
	UseConf bool `json:"use_conf,omitempty" bson:"use_conf,omitempty"`
	RunID string `json:"run_id,omitempty" bson:"run_id,omitempty"`
	ServingPath string `json:"serving_path,omitempty" bson:"serving_path,omitempty"`
	Hash string `json:"hash" bson:"hash"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// PointsConfig is the points-regression analogue of ClassifierConfig.
type PointsConfig struct {
	ConfigID string `json:"config_id" bson:"config_id"`
	Name string `json:"name" bson:"name"`
	ModelType string `json:"model_type" bson:"model_type"`
	TargetMode string `json:"target_mode" bson:"target_mode"` // "home_away" | "margin"
	FeatureSet DatasetSpec `json:"feature_set" bson:"feature_set"`
	Calibration CalibrationConfig `json:"calibration" bson:"calibration"`
	Hyperparams map[string]float64 `json:"hyperparams,omitempty" bson:"hyperparams,omitempty"`
	Selected bool `json:"selected" bson:"selected"`
	RunID string `json:"run_id,omitempty" bson:"run_id,omitempty"`
	Hash string `json:"hash" bson:"hash"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// PointPredictionCache is a cached regressor output consumed by DatasetBuilder
// as the pred_margin classifier feature.
type PointPredictionCache struct {
	ModelID string `json:"model_id" bson:"model_id"`
	GameID string `json:"game_id" bson:"game_id"`
	PredHomePoints float64 `json:"pred_home_points" bson:"pred_home_points"`
	PredAwayPoints float64 `json:"pred_away_points" bson:"pred_away_points"`
	PredMargin float64 `json:"pred_margin" bson:"pred_margin"`
}
