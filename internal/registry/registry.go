// Package registry holds the static list of weather overlays offered on the map.
package registry

import "fmt"

// Category selects the rendering style of an overlay.
type Category string

const (
	CategoryTemperature Category = "temperature"
	CategoryWind        Category = "wind"
	CategoryDefault     Category = "default"
)

// LayerDescriptor describes one toggleable overlay.
// Huma reads the tags for the OpenAPI schema of /api/v1/layers.
type LayerDescriptor struct {
	ID          string   `json:"id" doc:"Unique layer identifier" example:"temperature"`
	DisplayName string   `json:"displayName" doc:"Label shown on the control" example:"Temperature (MTS)"`
	Icon        string   `json:"icon" doc:"Glyph shown before the label" example:"🌡️"`
	Category    Category `json:"category" enum:"temperature,wind,default" doc:"Rendering category"`
}

// Label is the text rendered on a control node.
func (d LayerDescriptor) Label() string {
	return d.Icon + " " + d.DisplayName
}

// Group boundaries are positional: the first basicEnd entries are basic,
// the next up to advancedEnd are advanced, the rest are 3D.
const (
	basicEnd    = 12
	advancedEnd = 16
)

// GroupID names a display group.
type GroupID string

const (
	GroupBasic    GroupID = "basic"
	GroupAdvanced GroupID = "advanced"
	Group3D       GroupID = "3d"
)

// Group is a headed slice of the registry.
type Group struct {
	ID      GroupID           `json:"id" enum:"basic,advanced,3d" doc:"Group identifier"`
	Heading string            `json:"heading" doc:"Section heading"`
	Layers  []LayerDescriptor `json:"layers" doc:"Layers in display order"`
}

var layers = []LayerDescriptor{
	{ID: "temperature", DisplayName: "Temperature (MTS)", Icon: "🌡️", Category: CategoryTemperature},
	{ID: "wind", DisplayName: "Wind (MTS)", Icon: "💨", Category: CategoryWind},
	{ID: "wind-vectors", DisplayName: "Wind vectors", Icon: "➡️", Category: CategoryWind},
	{ID: "precipitation", DisplayName: "Precipitation", Icon: "🌧️", Category: CategoryDefault},
	{ID: "radar", DisplayName: "Weather radar", Icon: "📡", Category: CategoryDefault},
	{ID: "rain-animation", DisplayName: "Animated rain", Icon: "🌧️", Category: CategoryDefault},
	{ID: "snow-animation", DisplayName: "Animated snow", Icon: "❄️", Category: CategoryDefault},
	{ID: "clouds", DisplayName: "Cloud cover", Icon: "☁️", Category: CategoryDefault},
	{ID: "satellite", DisplayName: "Satellite", Icon: "🛰️", Category: CategoryDefault},
	{ID: "pressure", DisplayName: "Pressure", Icon: "📊", Category: CategoryDefault},
	{ID: "humidity", DisplayName: "Humidity", Icon: "💧", Category: CategoryDefault},
	{ID: "visibility", DisplayName: "Visibility", Icon: "👁️", Category: CategoryDefault},

	{ID: "temperature-mts", DisplayName: "Temperature MTS (raster-array)", Icon: "🌡️", Category: CategoryTemperature},
	{ID: "wind-mts", DisplayName: "Wind MTS (raster-array)", Icon: "💨", Category: CategoryWind},
	{ID: "temperature-animation", DisplayName: "Temperature animation", Icon: "🌡️", Category: CategoryTemperature},
	{ID: "wind-animation", DisplayName: "Wind animation", Icon: "💨", Category: CategoryWind},

	{ID: "3d-buildings", DisplayName: "3D buildings", Icon: "🏢", Category: CategoryDefault},
	{ID: "3d-terrain", DisplayName: "3D terrain", Icon: "🏔️", Category: CategoryDefault},
	{ID: "3d-weather", DisplayName: "3D weather", Icon: "🌤️", Category: CategoryDefault},
	{ID: "3d-animations", DisplayName: "3D animations", Icon: "🎬", Category: CategoryDefault},
}

var index = func() map[string]int {
	m := make(map[string]int, len(layers))
	for i, l := range layers {
		if _, dup := m[l.ID]; dup {
			panic(fmt.Sprintf("registry: duplicate layer id %q", l.ID))
		}
		m[l.ID] = i
	}
	return m
}()

// All returns a copy of the registry in display order.
func All() []LayerDescriptor {
	out := make([]LayerDescriptor, len(layers))
	copy(out, layers)
	return out
}

// Len returns the number of registered layers.
func Len() int {
	return len(layers)
}

// Lookup returns the descriptor for id.
func Lookup(id string) (LayerDescriptor, bool) {
	i, ok := index[id]
	if !ok {
		return LayerDescriptor{}, false
	}
	return layers[i], true
}

// Groups partitions the registry into its three display groups.
func Groups() []Group {
	return []Group{
		{ID: GroupBasic, Heading: "🗺️ Basic layers:", Layers: span(0, basicEnd)},
		{ID: GroupAdvanced, Heading: "🔬 Advanced MTS layers:", Layers: span(basicEnd, advancedEnd)},
		{ID: Group3D, Heading: "🏗️ 3D layers:", Layers: span(advancedEnd, len(layers))},
	}
}

func span(from, to int) []LayerDescriptor {
	from = min(from, len(layers))
	to = min(to, len(layers))
	out := make([]LayerDescriptor, to-from)
	copy(out, layers[from:to])
	return out
}
