package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, l := range All() {
		require.NotEmpty(t, l.ID)
		assert.False(t, seen[l.ID], "duplicate id %q", l.ID)
		seen[l.ID] = true
	}
	assert.Equal(t, 20, Len())
}

func TestGroupsUseFixedBoundaries(t *testing.T) {
	groups := Groups()
	require.Len(t, groups, 3)

	all := All()
	assert.Equal(t, GroupBasic, groups[0].ID)
	assert.Equal(t, all[0:12], groups[0].Layers)
	assert.Equal(t, GroupAdvanced, groups[1].ID)
	assert.Equal(t, all[12:16], groups[1].Layers)
	assert.Equal(t, Group3D, groups[2].ID)
	assert.Equal(t, all[16:], groups[2].Layers)

	assert.Equal(t, "temperature-mts", groups[1].Layers[0].ID)
	assert.Equal(t, "3d-buildings", groups[2].Layers[0].ID)
}

func TestLookup(t *testing.T) {
	d, ok := Lookup("wind-vectors")
	require.True(t, ok)
	assert.Equal(t, CategoryWind, d.Category)
	assert.Equal(t, "➡️ Wind vectors", d.Label())

	_, ok = Lookup("tornado")
	assert.False(t, ok)
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].ID = "mutated"
	d, ok := Lookup("temperature")
	require.True(t, ok)
	assert.Equal(t, "temperature", d.ID)
	assert.Equal(t, "temperature", All()[0].ID)
}

func TestCategoriesMatchNaming(t *testing.T) {
	for _, id := range []string{"temperature", "temperature-mts", "temperature-animation"} {
		d, _ := Lookup(id)
		assert.Equal(t, CategoryTemperature, d.Category, id)
	}
	for _, id := range []string{"wind", "wind-vectors", "wind-mts", "wind-animation"} {
		d, _ := Lookup(id)
		assert.Equal(t, CategoryWind, d.Category, id)
	}
	d, _ := Lookup("radar")
	assert.Equal(t, CategoryDefault, d.Category)
}
