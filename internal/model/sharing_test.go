package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharingKindBedCount(t *testing.T) {
	assert.Equal(t, 1, SharingSingle.BedCount())
	assert.Equal(t, 2, SharingDouble.BedCount())
	assert.Equal(t, 3, SharingTriple.BedCount())
	assert.Equal(t, 4, SharingQuad.BedCount())
	assert.Equal(t, 0, SharingKind("penta").BedCount())
}

func TestParseSharingKind(t *testing.T) {
	k, err := ParseSharingKind("double")
	assert.NoError(t, err)
	assert.Equal(t, SharingDouble, k)

	_, err = ParseSharingKind("DOUBLE")
	assert.Error(t, err)
	_, err = ParseSharingKind("")
	assert.Error(t, err)
}
