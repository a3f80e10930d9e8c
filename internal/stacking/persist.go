package stacking

import (
	"encoding/json"
	"fmt"
	"os"
)

// persistMetaModel serializes a fitted meta-model to path. The artifact
// layout's "_meta_model.pkl" filename is kept from the original naming
// convention; the serialized content is JSON.
func persistMetaModel(path, modelType string, m metaModel) error {
	blob := map[string]any{"type": normalizeMetaType(modelType)}
	switch t := m.(type) {
	case *metaLogistic:
		blob["mean"] = t.mean
		blob["std"] = t.std
		blob["weights"] = t.weights
		blob["bias"] = t.bias
	case *metaSVM:
		blob["mean"] = t.mean
		blob["std"] = t.std
		blob["weights"] = t.weights
		blob["bias"] = t.bias
	case *metaBoostedStumps:
		blob["learning_rate"] = t.learningRate
		trees := make([]map[string]any, len(t.trees))
		for i, s := range t.trees {
			trees[i] = map[string]any{
				"feature": s.feature, "threshold": s.threshold,
				"left_val": s.leftVal, "right_val": s.rightVal,
			}
		}
		blob["trees"] = trees
	default:
		return fmt.Errorf("stacking: unknown meta-model implementation %T", m)
	}

	b, err := json.MarshalIndent(blob, "", " ")
	if err != nil {
		return fmt.Errorf("stacking: marshal meta-model: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func normalizeMetaType(modelType string) string {
	if modelType == "" {
		return "logistic_regression"
	}
	return modelType
}

// loadMetaModel reconstructs a fitted meta-model from a persisted artifact,
// the counterpart experiment.LoadBaseModel provides for base classifiers.
func loadMetaModel(path string) (metaModel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stacking: read meta-model artifact %s: %w", path, err)
	}
	var blob map[string]any
	if err := json.Unmarshal(b, &blob); err != nil {
		return nil, fmt.Errorf("stacking: unmarshal meta-model artifact: %w", err)
	}
	modelType, _ := blob["type"].(string)

	switch modelType {
	case "svm":
		return &metaSVM{
			mean: toFloats(blob["mean"]), std: toFloats(blob["std"]),
			weights: toFloats(blob["weights"]), bias: toFloat64(blob["bias"]),
		}, nil
	case "gbt", "gradient_boosted_trees":
		rawTrees, _ := blob["trees"].([]any)
		trees := make([]*metaStump, len(rawTrees))
		for i, rt := range rawTrees {
			tm, _ := rt.(map[string]any)
			trees[i] = &metaStump{
				feature: int(toFloat64(tm["feature"])),
				threshold: toFloat64(tm["threshold"]),
				leftVal: toFloat64(tm["left_val"]),
				rightVal: toFloat64(tm["right_val"]),
			}
		}
		return &metaBoostedStumps{learningRate: toFloat64(blob["learning_rate"]), trees: trees}, nil
	default:
		return &metaLogistic{
			mean: toFloats(blob["mean"]), std: toFloats(blob["std"]),
			weights: toFloats(blob["weights"]), bias: toFloat64(blob["bias"]),
		}, nil
	}
}

func toFloats(v any) []float64 {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, len(arr))
	for i, e := range arr {
		out[i] = toFloat64(e)
	}
	return out
}

func toFloat64(v any) float64 {
	f, _ := v.(float64)
	return f
}
