package widget

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-weather/internal/events"
	"github.com/joeblew999/plat-weather/internal/style"
)

var testOptions = Options{
	Container: "map",
	Style:     "mapbox://styles/mapbox/streets-v11",
	Center:    orb.Point{19.9, 50.0},
	Zoom:      5,
}

func points(pts ...orb.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range pts {
		fc.Append(geojson.NewFeature(p))
	}
	return fc
}

func loadedMirror(t *testing.T) (*Mirror, chan events.Event) {
	t.Helper()
	bus := events.NewBus()
	ch := bus.Subscribe()
	m, err := NewMirror(bus, testOptions, "pk.test")
	require.NoError(t, err)
	ev := <-ch
	require.Equal(t, events.MapCreate, ev.Kind)
	assert.Equal(t, "pk.test", ev.Payload.(Create).AccessToken)
	m.Load()
	return m, ch
}

func TestNewMirrorRejectsBadOptions(t *testing.T) {
	_, err := NewMirror(nil, Options{Style: "s"}, "")
	assert.Error(t, err)

	bad := testOptions
	bad.Center = orb.Point{200, 0}
	_, err = NewMirror(nil, bad, "")
	assert.Error(t, err)
}

func TestMutationsRequireLoad(t *testing.T) {
	m, err := NewMirror(nil, testOptions, "")
	require.NoError(t, err)
	assert.ErrorIs(t, m.AddSource("radar", GeoJSONSource(points())), ErrNotLoaded)

	m.Load()
	assert.NoError(t, m.AddSource("radar", GeoJSONSource(points())))
}

func TestLoadFiresCallbacksOnce(t *testing.T) {
	m, err := NewMirror(nil, testOptions, "")
	require.NoError(t, err)

	calls := 0
	m.OnLoad(func() { calls++ })
	m.Load()
	m.Load()
	assert.Equal(t, 1, calls)
	assert.True(t, m.State().Loaded)

	m.OnLoad(func() { calls++ })
	assert.Equal(t, 2, calls)
}

func TestSourceAndLayerRules(t *testing.T) {
	m, ch := loadedMirror(t)
	cfg, err := style.ForID("radar")
	require.NoError(t, err)

	assert.ErrorIs(t, m.AddLayer(cfg), ErrMissingSource)

	require.NoError(t, m.AddSource("radar", GeoJSONSource(points(orb.Point{21, 52}))))
	assert.ErrorIs(t, m.AddSource("radar", GeoJSONSource(points())), ErrDuplicateSource)

	require.NoError(t, m.AddLayer(cfg))
	assert.ErrorIs(t, m.AddLayer(cfg), ErrDuplicateLayer)
	assert.True(t, m.GetLayer("radar"))
	assert.True(t, m.GetSource("radar"))
	assert.Equal(t, []string{"radar"}, m.Layers())

	assert.ErrorIs(t, m.RemoveSource("radar"), ErrSourceInUse)
	require.NoError(t, m.RemoveLayer("radar"))
	require.NoError(t, m.RemoveSource("radar"))
	assert.ErrorIs(t, m.RemoveLayer("radar"), ErrNoLayer)
	assert.ErrorIs(t, m.RemoveSource("radar"), ErrNoSource)
	assert.Empty(t, m.Layers())

	var kinds []events.Kind
	for len(ch) > 0 {
		kinds = append(kinds, (<-ch).Kind)
	}
	assert.Equal(t, []events.Kind{events.AddSource, events.AddLayer, events.RemoveLayer, events.RemoveSource}, kinds)
}

func TestBounds(t *testing.T) {
	m, _ := loadedMirror(t)
	require.NoError(t, m.AddSource("temperature", GeoJSONSource(points(
		orb.Point{21.0, 52.2}, orb.Point{21.01, 52.21}, orb.Point{20.99, 52.19},
	))))

	b, ok := m.Bounds("temperature")
	require.True(t, ok)
	assert.InDelta(t, 20.99, b.Min.Lon(), 1e-9)
	assert.InDelta(t, 52.21, b.Max.Lat(), 1e-9)

	_, ok = m.Bounds("wind")
	assert.False(t, ok)
}

func TestStateReflectsCurrentMap(t *testing.T) {
	m, _ := loadedMirror(t)
	for _, id := range []string{"radar", "wind-vectors", "clouds"} {
		cfg, err := style.ForID(id)
		require.NoError(t, err)
		require.NoError(t, m.AddSource(id, GeoJSONSource(points(orb.Point{20, 50}))))
		require.NoError(t, m.AddLayer(cfg))
	}
	require.NoError(t, m.RemoveLayer("wind-vectors"))
	require.NoError(t, m.RemoveSource("wind-vectors"))

	st := m.State()
	assert.True(t, st.Loaded)
	assert.Equal(t, testOptions, st.Create.Options)
	assert.Equal(t, "pk.test", st.Create.AccessToken)
	require.Len(t, st.Layers, 2)
	assert.Equal(t, "radar", st.Layers[0].ID)
	assert.Equal(t, "clouds", st.Layers[1].ID)
	assert.Len(t, st.Sources, 2)
	assert.NotContains(t, st.Sources, "wind-vectors")

	st.Sources["x"] = Source{}
	assert.False(t, m.GetSource("x"))
}
