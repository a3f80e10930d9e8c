package stacking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeConfigNameReplacesNonColumnChars(t *testing.T) {
	assert.Equal(t, "LR__v2_Base", SanitizeConfigName("LR (v2) Base"))
}

func TestSanitizeConfigNameEmptyFallsBackToModel(t *testing.T) {
	assert.Equal(t, "model", SanitizeConfigName("!!!"))
}

func TestNameDeduperSuffixesCollisionsInEncounterOrder(t *testing.T) {
	d := newNameDeduper()
	assert.Equal(t, "lr_base", d.next("lr_base"))
	assert.Equal(t, "lr_base_2", d.next("lr_base"))
	assert.Equal(t, "lr_base_3", d.next("lr_base"))
	assert.Equal(t, "gbt_base", d.next("gbt_base"), "a distinct base name must not be touched by another name's collisions")
}
