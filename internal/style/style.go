// Package style derives mapping-SDK layer configurations for weather overlays.
//
// Each registry category maps to exactly one rendering kind, so an overlay's
// identifier never influences how it is drawn.
package style

import (
	"fmt"

	"github.com/joeblew999/plat-weather/internal/registry"
)

// Kind is the mapping-SDK layer type.
type Kind string

const (
	KindHeatmap Kind = "heatmap"
	KindSymbol  Kind = "symbol"
	KindCircle  Kind = "circle"
)

// Expression is a mapping-SDK style expression such as ["get", "temperature"].
type Expression []any

// LayerConfig is the style layer handed to the widget's addLayer.
// Field names follow the mapping SDK's style specification.
type LayerConfig struct {
	ID     string         `json:"id" doc:"Layer identifier" example:"temperature"`
	Type   Kind           `json:"type" enum:"heatmap,symbol,circle" doc:"Rendering kind"`
	Source string         `json:"source" doc:"Backing source identifier" example:"temperature"`
	Layout map[string]any `json:"layout,omitempty" doc:"Layout properties"`
	Paint  map[string]any `json:"paint,omitempty" doc:"Paint properties"`
}

// Properties read from overlay features.
const (
	PropTemperature   = "temperature"
	PropWindDirection = "wind_direction"
	PropWindSpeed     = "wind_speed"
)

type builder func(base LayerConfig) LayerConfig

var byCategory = map[registry.Category]builder{
	registry.CategoryTemperature: heatmap,
	registry.CategoryWind:        windArrows,
	registry.CategoryDefault:     circle,
}

// For returns the layer configuration for a descriptor.
func For(d registry.LayerDescriptor) (LayerConfig, error) {
	build, ok := byCategory[d.Category]
	if !ok {
		return LayerConfig{}, fmt.Errorf("no style for category %q of layer %q", d.Category, d.ID)
	}
	return build(LayerConfig{ID: d.ID, Source: d.ID}), nil
}

// ForID looks the identifier up in the registry and returns its configuration.
func ForID(id string) (LayerConfig, error) {
	d, ok := registry.Lookup(id)
	if !ok {
		return LayerConfig{}, fmt.Errorf("unknown layer %q", id)
	}
	return For(d)
}

func heatmap(c LayerConfig) LayerConfig {
	c.Type = KindHeatmap
	c.Paint = map[string]any{
		"heatmap-weight": Expression{
			"interpolate", Expression{"linear"}, Expression{"get", PropTemperature},
			0, 0,
			30, 1,
		},
		"heatmap-intensity": 1,
		"heatmap-color": Expression{
			"interpolate", Expression{"linear"}, Expression{"heatmap-density"},
			0, "rgba(0, 0, 255, 0)",
			0.5, "rgba(0, 255, 0, 0.5)",
			1, "rgba(255, 0, 0, 1)",
		},
		"heatmap-radius": 30,
	}
	return c
}

func windArrows(c LayerConfig) LayerConfig {
	c.Type = KindSymbol
	c.Layout = map[string]any{
		"icon-image":  "arrow",
		"icon-size":   0.5,
		"icon-rotate": Expression{"get", PropWindDirection},
	}
	c.Paint = map[string]any{
		"icon-color": Expression{
			"interpolate", Expression{"linear"}, Expression{"get", PropWindSpeed},
			0, "#00ff00",
			50, "#ff0000",
		},
	}
	return c
}

func circle(c LayerConfig) LayerConfig {
	c.Type = KindCircle
	c.Paint = map[string]any{
		"circle-radius":       10,
		"circle-color":        "#FF5733",
		"circle-stroke-width": 1,
		"circle-stroke-color": "#FFFFFF",
	}
	return c
}
