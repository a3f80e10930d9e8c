package stacking

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ai-atl/hoopcast/internal/dataset"
	"github.com/ai-atl/hoopcast/internal/experiment"
	"github.com/ai-atl/hoopcast/internal/leagueconfig"
	"github.com/ai-atl/hoopcast/internal/modelerrors"
	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/store"
)

// Ensemble is a loaded, ready-to-score stacking pipeline: its resolved base
// models plus the fitted meta-model, the unit PredictionService runs a
// feature vector through at serving time.
type Ensemble struct {
	ConfigID string
	Bases []resolvedBase
	Meta metaModel
	ColumnOrder []string
	Informed bool
	UseDisagree bool
	UseConf bool
	MetaFeatures []string
}

// BaseFeatureNames returns the union of every base model's feature list, the
// shape PredictionService must assemble from the feature catalog before
// calling Predict.
func (e *Ensemble) BaseFeatureNames() []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range e.Bases {
		for _, f := range b.model.FeatureNames {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// Predict runs the ensemble pipeline over a single game's feature vector,
// keyed by feature name, and returns the calibrated home-win probability.
func (e *Ensemble) Predict(features map[string]float64) float64 {
	probs := make([]float64, len(e.Bases))
	values := map[string]float64{}
	for i, b := range e.Bases {
		vec := make([]float64, len(b.model.FeatureNames))
		for j, name := range b.model.FeatureNames {
			vec[j] = features[name]
		}
		probs[i] = b.model.Predict(vec)
		values[b.column] = probs[i]
	}
	if e.Informed {
		if e.UseDisagree {
			for a := 0; a < len(e.Bases); a++ {
				for b := a + 1; b < len(e.Bases); b++ {
					key := fmt.Sprintf("disagree_%s_%s", e.Bases[a].column, e.Bases[b].column)
					values[key] = math.Abs(probs[a] - probs[b])
				}
			}
		}
		if e.UseConf {
			for i, b := range e.Bases {
				values["conf_"+b.column] = math.Abs(probs[i] - 0.5)
			}
		}
		for _, mf := range e.MetaFeatures {
			values[mf] = features[mf]
		}
	}
	row := make([]float64, len(e.ColumnOrder))
	for i, c := range e.ColumnOrder {
		row[i] = values[c]
	}
	return e.Meta.predictProba(row)
}

// DirectionTable reports each base model's own probability alongside the
// ensemble's blended output, the per-base "directional table" the
// Model-Inspector agent tool surfaces.
func (e *Ensemble) DirectionTable(features map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(e.Bases))
	for _, b := range e.Bases {
		vec := make([]float64, len(b.model.FeatureNames))
		for j, name := range b.model.FeatureNames {
			vec[j] = features[name]
		}
		out[b.column] = b.model.Predict(vec)
	}
	return out
}

// BaseInfo names one resolved base model, for tool responses that must
// identify bases by config id and name rather than just column token.
type BaseInfo struct {
	ConfigID string
	Name string
	Column string
	FeatureNames []string
}

// BaseSummaries describes every resolved base model backing the ensemble.
func (e *Ensemble) BaseSummaries() []BaseInfo {
	out := make([]BaseInfo, len(e.Bases))
	for i, b := range e.Bases {
		out[i] = BaseInfo{ConfigID: b.configID, Name: b.name, Column: b.column, FeatureNames: b.model.FeatureNames}
	}
	return out
}

// MetaModelParams reports the fitted meta-model's parameters in a
// JSON-serializable shape, the same fields persistMetaModel writes to disk.
func (e *Ensemble) MetaModelParams() map[string]any {
	switch t := e.Meta.(type) {
	case *metaLogistic:
		return map[string]any{"type": "logistic_regression", "weights": t.weights, "bias": t.bias, "mean": t.mean, "std": t.std}
	case *metaSVM:
		return map[string]any{"type": "svm", "weights": t.weights, "bias": t.bias, "mean": t.mean, "std": t.std}
	case *metaBoostedStumps:
		trees := make([]map[string]any, len(t.trees))
		for i, s := range t.trees {
			trees[i] = map[string]any{"feature": s.feature, "threshold": s.threshold, "left_val": s.leftVal, "right_val": s.rightVal}
		}
		return map[string]any{"type": "gbt", "learning_rate": t.learningRate, "trees": trees}
	default:
		return map[string]any{"type": "unknown"}
	}
}

// LoadEnsemble resolves an ensemble config's persisted run (base configs,
// meta-model, mode flags) into a ready-to-score Ensemble.
func LoadEnsemble(ctx context.Context, cfg *leagueconfig.Config, builder *dataset.Builder,
	classifierStore *store.ClassifierConfigStore, ensembleCfg *models.ClassifierConfig) (*Ensemble, error) {
	if !ensembleCfg.Ensemble {
		return nil, modelerrors.Config("stacking: config %s is not an ensemble", ensembleCfg.ConfigID)
	}
	if ensembleCfg.RunID == "" {
		return nil, modelerrors.DataMissing("stacking: ensemble config %s has no trained run", ensembleCfg.ConfigID)
	}

	artifactDir := filepath.Join(cfg.ArtifactRoot, "ensemble_models", ensembleCfg.RunID)
	var artifact map[string]any
	if err := readJSONFile(filepath.Join(artifactDir, ensembleCfg.RunID+"_ensemble_config.json"), &artifact); err != nil {
		return nil, err
	}

	baseColumns, _ := artifact["base_columns"].([]any)
	baseConfigIDs, _ := artifact["base_config_ids"].([]any)

	bases := make([]resolvedBase, 0, len(baseConfigIDs))
	for i, rawID := range baseConfigIDs {
		id, _ := rawID.(string)
		bc, err := classifierStore.Get(ctx, id)
		if err != nil {
			return nil, modelerrors.DataMissing("stacking: base config %s not found", id)
		}
		var model *experiment.BaseModel
		if bc.ServingPath != "" {
			if m, err := experiment.LoadBaseModel(bc.ServingPath); err == nil {
				model = m
			}
		}
		if model == nil {
			m, err := experiment.TrainBaseModel(ctx, bc, builder, cfg.League)
			if err != nil {
				return nil, modelerrors.DataMissing("stacking: base %s unavailable for serving: %v", id, err)
			}
			model = m
		}
		column := ""
		if i < len(baseColumns) {
			column, _ = baseColumns[i].(string)
		}
		bases = append(bases, resolvedBase{configID: id, name: bc.Name, column: column, model: model})
	}

	meta, err := loadMetaModel(filepath.Join(artifactDir, ensembleCfg.RunID+"_meta_model.pkl"))
	if err != nil {
		return nil, err
	}

	columnOrder := toStrings(artifact["meta_feature_columns"])
	metaFeatures := toStrings(artifact["meta_features"])
	informed, _ := artifact["informed"].(bool)
	useDisagree, _ := artifact["use_disagree"].(bool)
	useConf, _ := artifact["use_conf"].(bool)

	return &Ensemble{
		ConfigID: ensembleCfg.ConfigID,
		Bases: bases,
		Meta: meta,
		ColumnOrder: columnOrder,
		Informed: informed,
		UseDisagree: useDisagree,
		UseConf: useConf,
		MetaFeatures: metaFeatures,
	}, nil
}

func toStrings(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return modelerrors.DataMissing("stacking: read artifact %s: %v", path, err)
	}
	return json.Unmarshal(b, v)
}
