package dataset

import (
	"testing"

	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetIDIsDeterministic(t *testing.T) {
	spec := models.DatasetSpec{
		FeatureBlocks:  []string{"outcome_strength", "era_normalization"},
		BeginYear:      2015,
		EndYear:        2019,
		MinGamesPlayed: 10,
	}
	id1, err := DatasetID(spec)
	require.NoError(t, err)
	id2, err := DatasetID(spec)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "build_dataset must be idempotent for an identical spec")
}

func TestDatasetIDIgnoresSliceFieldOrder(t *testing.T) {
	a := models.DatasetSpec{FeatureBlocks: []string{"outcome_strength", "era_normalization"}}
	b := models.DatasetSpec{FeatureBlocks: []string{"era_normalization", "outcome_strength"}}

	idA, err := DatasetID(a)
	require.NoError(t, err)
	idB, err := DatasetID(b)
	require.NoError(t, err)
	assert.Equal(t, idA, idB, "equivalent specs differing only in slice order must hash identically")
}

func TestDatasetIDDiffersOnMeaningfulChange(t *testing.T) {
	a := models.DatasetSpec{BeginYear: 2015, EndYear: 2019}
	b := models.DatasetSpec{BeginYear: 2015, EndYear: 2020}

	idA, err := DatasetID(a)
	require.NoError(t, err)
	idB, err := DatasetID(b)
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)
}
