package models

// DatasetSpec is the normalized, hashable description of a dataset request
// consumed by DatasetBuilder. Either IndividualFeatures or
// FeatureBlocks (or both) select columns; BeginYear/EndYear/BeginDate/EndDate
// apply temporal filters; MinGamesPlayed requires both teams to have that many
// prior same-season completed games; PointModelID, if set, joins a
// pred_margin column from the PointPredictionCache.
type DatasetSpec struct {
	IndividualFeatures []string `json:"individual_features,omitempty"`
	FeatureBlocks []string `json:"feature_blocks,omitempty"`
	BeginYear int `json:"begin_year,omitempty"`
	EndYear int `json:"end_year,omitempty"`
	BeginDate string `json:"begin_date,omitempty"`
	EndDate string `json:"end_date,omitempty"`
	MinGamesPlayed int `json:"min_games_played,omitempty"`
	PointModelID string `json:"point_model_id,omitempty"`
	League string `json:"league,omitempty"`
}
