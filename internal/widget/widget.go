// Package widget is the boundary to the browser's mapping SDK.
//
// Map mirrors the SDK calls the session controller needs. Mirror implements
// it server-side: it validates every call the way the SDK would, keeps the
// registered sources and layers, and publishes each accepted call on an
// events.Bus for the browser shim to replay against the real map.
package widget

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-weather/internal/events"
	"github.com/joeblew999/plat-weather/internal/style"
)

var (
	ErrNotLoaded       = errors.New("style is not done loading")
	ErrDuplicateSource = errors.New("there is already a source with this ID")
	ErrDuplicateLayer  = errors.New("a layer with this ID already exists")
	ErrMissingSource   = errors.New("source not found")
	ErrNoLayer         = errors.New("layer does not exist")
	ErrNoSource        = errors.New("source does not exist")
	ErrSourceInUse     = errors.New("source is used by a layer")
)

// Map is the subset of the mapping SDK used by a session.
type Map interface {
	AddSource(id string, src Source) error
	AddLayer(cfg style.LayerConfig) error
	RemoveLayer(id string) error
	RemoveSource(id string) error
	GetLayer(id string) bool
	GetSource(id string) bool
	// OnLoad registers a callback for the load event, which fires once.
	OnLoad(fn func())
}

// Source is a GeoJSON data source.
type Source struct {
	Type string                     `json:"type"`
	Data *geojson.FeatureCollection `json:"data"`
}

// GeoJSONSource wraps a feature collection.
func GeoJSONSource(fc *geojson.FeatureCollection) Source {
	return Source{Type: "geojson", Data: fc}
}

// Options is the SDK constructor configuration.
type Options struct {
	Container string    `json:"container"`
	Style     string    `json:"style"`
	Center    orb.Point `json:"center"`
	Zoom      float64   `json:"zoom"`
}

// Create is the payload of an events.MapCreate event.
type Create struct {
	Options     Options `json:"options"`
	AccessToken string  `json:"accessToken"`
}

// Validate reports whether the SDK would accept the options.
func (o Options) Validate() error {
	if o.Container == "" {
		return errors.New("container is required")
	}
	if o.Style == "" {
		return errors.New("style is required")
	}
	if o.Center.Lon() < -180 || o.Center.Lon() > 180 || o.Center.Lat() < -90 || o.Center.Lat() > 90 {
		return fmt.Errorf("invalid center %v", o.Center)
	}
	if o.Zoom < 0 || o.Zoom > 24 {
		return fmt.Errorf("invalid zoom %v", o.Zoom)
	}
	return nil
}

// State is everything a browser needs to rebuild the map: the construction
// payload, then every source and the layers in the order they were added.
type State struct {
	Create  Create              `json:"create"`
	Loaded  bool                `json:"loaded"`
	Sources map[string]Source   `json:"sources"`
	Layers  []style.LayerConfig `json:"layers"`
}

// Factory constructs a map widget.
type Factory func(opts Options, accessToken string) (Map, error)

// Mirror is the server-side model of one browser map.
type Mirror struct {
	bus *events.Bus

	mu      sync.Mutex
	create  Create
	loaded  bool
	onLoad  []func()
	sources map[string]Source
	layers  map[string]style.LayerConfig
	order   []string
}

var _ Map = (*Mirror)(nil)

// MirrorFactory returns a Factory building mirrors that publish on bus.
func MirrorFactory(bus *events.Bus) Factory {
	return func(opts Options, accessToken string) (Map, error) {
		return NewMirror(bus, opts, accessToken)
	}
}

// NewMirror validates opts and publishes the construction event.
func NewMirror(bus *events.Bus, opts Options, accessToken string) (*Mirror, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("constructing map: %w", err)
	}
	m := &Mirror{
		bus:     bus,
		create:  Create{Options: opts, AccessToken: accessToken},
		sources: make(map[string]Source),
		layers:  make(map[string]style.LayerConfig),
	}
	m.publish(events.Event{Kind: events.MapCreate, Payload: m.create})
	return m, nil
}

// Load fires the load event. Callbacks run once, outside the lock; later
// calls are no-ops.
func (m *Mirror) Load() {
	m.mu.Lock()
	if m.loaded {
		m.mu.Unlock()
		return
	}
	m.loaded = true
	fns := m.onLoad
	m.onLoad = nil
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// State returns a copy of the map as the browser should currently see it.
func (m *Mirror) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := State{
		Create:  m.create,
		Loaded:  m.loaded,
		Sources: make(map[string]Source, len(m.sources)),
		Layers:  make([]style.LayerConfig, 0, len(m.order)),
	}
	for id, src := range m.sources {
		st.Sources[id] = src
	}
	for _, id := range m.order {
		st.Layers = append(st.Layers, m.layers[id])
	}
	return st
}

// OnLoad registers fn for the load event. When the map has already loaded,
// fn runs immediately.
func (m *Mirror) OnLoad(fn func()) {
	m.mu.Lock()
	if !m.loaded {
		m.onLoad = append(m.onLoad, fn)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	fn()
}

func (m *Mirror) AddSource(id string, src Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ErrNotLoaded
	}
	if _, ok := m.sources[id]; ok {
		return fmt.Errorf("add source %q: %w", id, ErrDuplicateSource)
	}
	m.sources[id] = src
	m.publish(events.Event{Kind: events.AddSource, ID: id, Payload: src})
	return nil
}

func (m *Mirror) AddLayer(cfg style.LayerConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ErrNotLoaded
	}
	if _, ok := m.layers[cfg.ID]; ok {
		return fmt.Errorf("add layer %q: %w", cfg.ID, ErrDuplicateLayer)
	}
	if _, ok := m.sources[cfg.Source]; !ok {
		return fmt.Errorf("add layer %q: %w: %q", cfg.ID, ErrMissingSource, cfg.Source)
	}
	m.layers[cfg.ID] = cfg
	m.order = append(m.order, cfg.ID)
	m.publish(events.Event{Kind: events.AddLayer, ID: cfg.ID, Payload: cfg})
	return nil
}

func (m *Mirror) RemoveLayer(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[id]; !ok {
		return fmt.Errorf("remove layer %q: %w", id, ErrNoLayer)
	}
	delete(m.layers, id)
	for i, l := range m.order {
		if l == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.publish(events.Event{Kind: events.RemoveLayer, ID: id})
	return nil
}

func (m *Mirror) RemoveSource(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return fmt.Errorf("remove source %q: %w", id, ErrNoSource)
	}
	for _, l := range m.layers {
		if l.Source == id {
			return fmt.Errorf("remove source %q: %w %q", id, ErrSourceInUse, l.ID)
		}
	}
	delete(m.sources, id)
	m.publish(events.Event{Kind: events.RemoveSource, ID: id})
	return nil
}

func (m *Mirror) GetLayer(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.layers[id]
	return ok
}

func (m *Mirror) GetSource(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sources[id]
	return ok
}

// Layers returns layer IDs in the order they were added.
func (m *Mirror) Layers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Bounds returns the bounding box of all features in a source.
func (m *Mirror) Bounds(id string) (orb.Bound, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok || src.Data == nil {
		return orb.Bound{}, false
	}
	var (
		b     orb.Bound
		found bool
	)
	for _, f := range src.Data.Features {
		if f.Geometry == nil {
			continue
		}
		if !found {
			b, found = f.Geometry.Bound(), true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b, found
}

func (m *Mirror) publish(e events.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}
