package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationMetricsPerfectSeparation(t *testing.T) {
	labels := []float64{0, 0, 1, 1}
	probs := []float64{0.05, 0.1, 0.9, 0.95}

	m := ClassificationMetrics(labels, probs)
	assert.InDelta(t, 1.0, m["accuracy"], 1e-9)
	assert.InDelta(t, 1.0, m["auc"], 1e-9)
	assert.Less(t, m["brier"], 0.05)
}

func TestClassificationMetricsWorstCaseAUC(t *testing.T) {
	labels := []float64{0, 0, 1, 1}
	probs := []float64{0.95, 0.9, 0.1, 0.05}

	m := ClassificationMetrics(labels, probs)
	assert.InDelta(t, 0.0, m["auc"], 1e-9, "perfectly inverted scores must score AUC 0")
}

func TestRegressionMetricsZeroErrorIsPerfectR2(t *testing.T) {
	actual := []float64{100, 95, 110, 88}
	m := regressionMetrics(actual, actual)
	assert.InDelta(t, 0.0, m["mae"], 1e-9)
	assert.InDelta(t, 0.0, m["rmse"], 1e-9)
	assert.InDelta(t, 1.0, m["r2"], 1e-9)
}

func TestAnovaFScoresRanksDiscriminativeFeatureHigher(t *testing.T) {
	// Column 0 perfectly separates the two label groups; column 1 is
	// identical across both groups and carries no signal.
	features := [][]float64{
		{10, 5}, {11, 5}, {9, 5},
		{-10, 5}, {-11, 5}, {-9, 5},
	}
	labels := []float64{1, 1, 1, 0, 0, 0}
	names := []string{"discriminative", "constant"}

	scores := anovaFScores(features, labels, names)
	require.Contains(t, scores, "discriminative")
	require.Contains(t, scores, "constant")
	assert.Equal(t, 0.0, scores["constant"], "a zero-within-group-variance constant column is reported as zero, not Inf")
	assert.Greater(t, scores["discriminative"], scores["constant"])
}
