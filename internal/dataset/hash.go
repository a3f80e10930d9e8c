package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/ai-atl/hoopcast/internal/models"
)

// normalize sorts a spec's slice fields so that equivalent specs (same
// content, different order) hash identically — a prerequisite for
// build_dataset's idempotence property.
func normalize(spec models.DatasetSpec) models.DatasetSpec {
	out := spec
	out.IndividualFeatures = sortedCopy(spec.IndividualFeatures)
	out.FeatureBlocks = sortedCopy(spec.FeatureBlocks)
	return out
}

func sortedCopy(in []string) []string {
	if in == nil {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// hashSpec derives a stable hex digest from a spec's canonical JSON
// encoding, the basis for a deterministic dataset_id.
func hashSpec(spec models.DatasetSpec) (string, error) {
	normalized := normalize(spec)
	canonical, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// DatasetID derives the dataset_id from a spec's hash.
func DatasetID(spec models.DatasetSpec) (string, error) {
	h, err := hashSpec(spec)
	if err != nil {
		return "", err
	}
	return "dataset_" + h[:16], nil
}
