package style

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-weather/internal/registry"
)

func TestTemperatureIsHeatmap(t *testing.T) {
	c, err := ForID("temperature")
	require.NoError(t, err)
	assert.Equal(t, KindHeatmap, c.Type)
	assert.Equal(t, "temperature", c.ID)
	assert.Equal(t, "temperature", c.Source)
	assert.Contains(t, c.Paint, "heatmap-weight")
	assert.Equal(t, 30, c.Paint["heatmap-radius"])
	assert.Nil(t, c.Layout)
}

func TestWindVectorsIsRotatedSymbol(t *testing.T) {
	c, err := ForID("wind-vectors")
	require.NoError(t, err)
	assert.Equal(t, KindSymbol, c.Type)
	assert.Equal(t, Expression{"get", PropWindDirection}, c.Layout["icon-rotate"])
	assert.Equal(t, "arrow", c.Layout["icon-image"])
}

func TestRadarIsCircle(t *testing.T) {
	c, err := ForID("radar")
	require.NoError(t, err)
	assert.Equal(t, KindCircle, c.Type)
	assert.Equal(t, "#FF5733", c.Paint["circle-color"])
}

func TestEveryRegisteredLayerHasStyle(t *testing.T) {
	for _, d := range registry.All() {
		c, err := For(d)
		require.NoError(t, err, d.ID)
		assert.Equal(t, d.ID, c.ID)
		assert.NotEmpty(t, c.Type)
	}
}

func TestCategoryDecidesNotName(t *testing.T) {
	// An identifier naming both temperature and wind follows its category.
	c, err := For(registry.LayerDescriptor{ID: "temperature-wind", Category: registry.CategoryWind})
	require.NoError(t, err)
	assert.Equal(t, KindSymbol, c.Type)

	c, err = For(registry.LayerDescriptor{ID: "wind-temperature", Category: registry.CategoryDefault})
	require.NoError(t, err)
	assert.Equal(t, KindCircle, c.Type)
}

func TestUnknown(t *testing.T) {
	_, err := ForID("tornado")
	assert.Error(t, err)

	_, err = For(registry.LayerDescriptor{ID: "x", Category: "lava"})
	assert.Error(t, err)
}

func TestJSONShape(t *testing.T) {
	c, err := ForID("wind")
	require.NoError(t, err)
	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "symbol", m["type"])
	assert.Equal(t, "wind", m["source"])
	layout := m["layout"].(map[string]any)
	assert.Equal(t, []any{"get", "wind_direction"}, layout["icon-rotate"])
}
