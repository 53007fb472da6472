// Package session runs one map session per open page: it owns the map widget
// and its access token, and toggles weather overlays on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/joeblew999/plat-weather/internal/events"
	"github.com/joeblew999/plat-weather/internal/panel"
	"github.com/joeblew999/plat-weather/internal/registry"
	"github.com/joeblew999/plat-weather/internal/style"
	"github.com/joeblew999/plat-weather/internal/widget"
	"github.com/joeblew999/plat-weather/pkg/weatherclient"
)

var (
	ErrUnknownLayer       = errors.New("unknown layer")
	ErrMapNotConstructed  = errors.New("map is not constructed")
	ErrAlreadyInitialized = errors.New("session already initialized")
	ErrDisposed           = errors.New("session disposed")
)

// DefaultMapOptions are the fixed construction options of every session map.
var DefaultMapOptions = widget.Options{
	Container: "map",
	Style:     "mapbox://styles/mapbox/streets-v11",
	Center:    orb.Point{19.9, 50.0},
	Zoom:      5,
}

// State is the lifecycle state of a session.
type State int

const (
	Uninitialized State = iota
	TokenLoading
	MapConstructing
	MapReady
	Failed
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case TokenLoading:
		return "token-loading"
	case MapConstructing:
		return "map-constructing"
	case MapReady:
		return "map-ready"
	case Failed:
		return "failed"
	case Disposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Backend serves the map configuration and overlay data.
type Backend interface {
	Config(ctx context.Context) (weatherclient.MapConfig, error)
	Layer(ctx context.Context, layerID string) (*geojson.FeatureCollection, error)
}

// Action is the outcome kind of a toggle.
type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

// Activity is one toggle outcome.
type Activity struct {
	SessionID string
	LayerID   string
	Action    Action
	Err       string
	At        time.Time
}

// Recorder stores toggle outcomes.
type Recorder interface {
	Record(ctx context.Context, a Activity) error
}

// Config wires a controller.
type Config struct {
	ID       string
	Backend  Backend
	NewMap   widget.Factory
	Bus      *events.Bus
	Builder  *panel.Builder
	Recorder Recorder
	Logger   *zap.Logger
}

// Controller owns one map widget and its set of active layers.
type Controller struct {
	id       string
	backend  Backend
	newMap   widget.Factory
	bus      *events.Bus
	builder  *panel.Builder
	recorder Recorder
	log      *zap.Logger

	mu     sync.Mutex
	state  State
	token  string
	m      widget.Map
	active map[string]struct{}
	doc    *html.Node
}

// NewController creates a controller in the Uninitialized state.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Backend == nil {
		return nil, errors.New("session: backend is required")
	}
	if cfg.Bus == nil {
		cfg.Bus = events.NewBus()
	}
	if cfg.NewMap == nil {
		cfg.NewMap = widget.MirrorFactory(cfg.Bus)
	}
	if cfg.Builder == nil {
		cfg.Builder = panel.NewBuilder("")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	doc, err := panel.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("session: parsing panel: %w", err)
	}
	return &Controller{
		id:       cfg.ID,
		backend:  cfg.Backend,
		newMap:   cfg.NewMap,
		bus:      cfg.Bus,
		builder:  cfg.Builder,
		recorder: cfg.Recorder,
		log:      cfg.Logger.With(zap.String("session", cfg.ID)),
		active:   make(map[string]struct{}),
		doc:      doc,
	}, nil
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// Bus returns the session's event bus.
func (c *Controller) Bus() *events.Bus { return c.bus }

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Token returns the access token the map was constructed with.
func (c *Controller) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Widget returns the map widget, or nil before construction.
func (c *Controller) Widget() widget.Map {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m
}

// Active returns the active layer IDs in registry order.
func (c *Controller) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

// IsActive reports whether id is in the active set.
func (c *Controller) IsActive(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[id]
	return ok
}

func (c *Controller) activeLocked() []string {
	out := make([]string, 0, len(c.active))
	for _, d := range registry.All() {
		if _, ok := c.active[d.ID]; ok {
			out = append(out, d.ID)
		}
	}
	return out
}

// Initialize loads the access token and constructs the map. A token failure
// is logged and the map is constructed without a token. A construction
// failure leaves the session Failed.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Uninitialized {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.state = TokenLoading
	c.mu.Unlock()

	token := ""
	cfg, err := c.backend.Config(ctx)
	if err != nil {
		c.log.Warn("loading map configuration failed, continuing without token", zap.Error(err))
		c.console(events.ConsoleError, "failed to load configuration from /api/config: "+err.Error())
	} else {
		token = cfg.AccessToken
		c.log.Debug("access token loaded")
	}

	if !c.transition(TokenLoading, MapConstructing) {
		return ErrDisposed
	}

	// Held across construction so a load event racing in from the browser
	// sees the widget.
	c.mu.Lock()
	if c.state != MapConstructing {
		c.mu.Unlock()
		return ErrDisposed
	}
	m, err := c.newMap(DefaultMapOptions, token)
	if err != nil {
		c.state = Failed
		c.mu.Unlock()
		c.log.Error("constructing map failed", zap.Error(err))
		c.console(events.ConsoleError, "critical error while creating the map: "+err.Error())
		return fmt.Errorf("constructing map: %w", err)
	}
	c.m = m
	c.token = token
	c.mu.Unlock()

	m.OnLoad(c.ready)
	return nil
}

// NotifyLoaded delivers the browser's load event to the widget.
func (c *Controller) NotifyLoaded() error {
	m := c.Widget()
	if m == nil {
		return ErrMapNotConstructed
	}
	l, ok := m.(interface{ Load() })
	if !ok {
		return fmt.Errorf("widget %T has no load event", m)
	}
	l.Load()
	return nil
}

func (c *Controller) ready() {
	if !c.transition(MapConstructing, MapReady) {
		return
	}
	c.log.Info("map ready")
	c.RebuildControls()
	c.bus.Publish(events.Event{Kind: events.Active, Payload: c.Active()})
}

// RebuildControls regenerates the control panel and publishes it.
func (c *Controller) RebuildControls() {
	c.mu.Lock()
	found := c.builder.Build(c.doc)
	var (
		out string
		err error
	)
	if found {
		out, err = panel.Render(c.doc)
	}
	c.mu.Unlock()

	if !found {
		return
	}
	if err != nil {
		c.log.Error("rendering panel failed", zap.Error(err))
		return
	}
	c.bus.Publish(events.Event{Kind: events.Panel, Payload: out})
}

// PanelHTML renders the current panel document.
func (c *Controller) PanelHTML() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return panel.Render(c.doc)
}

// Toggle removes the layer when the widget has it, otherwise adds it.
// Failures are logged and sent to the browser console; the returned error is
// informational.
func (c *Controller) Toggle(ctx context.Context, layerID string) (Action, error) {
	if _, ok := registry.Lookup(layerID); !ok {
		c.log.Warn("toggle of unknown layer", zap.String("layer", layerID))
		return "", fmt.Errorf("%w: %q", ErrUnknownLayer, layerID)
	}
	m := c.Widget()
	if m == nil {
		c.log.Error("toggle without map", zap.String("layer", layerID))
		c.console(events.ConsoleError, "toggle: map object does not exist")
		return "", ErrMapNotConstructed
	}

	if !m.GetLayer(layerID) {
		return ActionAdded, c.AddLayer(ctx, layerID)
	}

	var errs []error
	if err := m.RemoveLayer(layerID); err != nil {
		errs = append(errs, err)
	}
	if m.GetSource(layerID) {
		if err := m.RemoveSource(layerID); err != nil {
			errs = append(errs, err)
		}
	}

	c.mu.Lock()
	delete(c.active, layerID)
	active := c.activeLocked()
	c.mu.Unlock()

	err := errors.Join(errs...)
	if err != nil {
		c.log.Warn("removing layer", zap.String("layer", layerID), zap.Error(err))
	} else {
		c.log.Info("layer removed", zap.String("layer", layerID))
		c.console(events.ConsoleLog, "removed layer "+layerID)
	}
	c.bus.Publish(events.Event{Kind: events.Active, Payload: active})
	c.record(ctx, layerID, ActionRemoved, err)
	return ActionRemoved, err
}

// AddLayer fetches the overlay data and registers its source and style layer.
// On any failure the widget is left as it was.
func (c *Controller) AddLayer(ctx context.Context, layerID string) (err error) {
	defer func() { c.record(ctx, layerID, ActionAdded, err) }()

	if _, ok := registry.Lookup(layerID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLayer, layerID)
	}
	cfg, err := style.ForID(layerID)
	if err != nil {
		return err
	}
	m := c.Widget()
	if m == nil {
		c.console(events.ConsoleError, "addLayer: map object does not exist")
		return ErrMapNotConstructed
	}

	c.log.Debug("adding layer", zap.String("layer", layerID))
	fc, err := c.backend.Layer(ctx, layerID)
	if err != nil {
		return c.addFailed(layerID, fmt.Errorf("fetching overlay: %w", err))
	}

	if err := m.AddSource(layerID, widget.GeoJSONSource(fc)); err != nil {
		return c.addFailed(layerID, err)
	}
	if err := m.AddLayer(cfg); err != nil {
		if rerr := m.RemoveSource(layerID); rerr != nil {
			c.log.Warn("rolling back source", zap.String("layer", layerID), zap.Error(rerr))
		}
		return c.addFailed(layerID, err)
	}

	c.mu.Lock()
	c.active[layerID] = struct{}{}
	active := c.activeLocked()
	c.mu.Unlock()

	c.log.Info("layer added", zap.String("layer", layerID), zap.Int("features", len(fc.Features)))
	c.console(events.ConsoleLog, "added layer "+layerID)
	c.bus.Publish(events.Event{Kind: events.Active, Payload: active})
	return nil
}

func (c *Controller) addFailed(layerID string, err error) error {
	c.log.Warn("adding layer failed", zap.String("layer", layerID), zap.Error(err))
	c.console(events.ConsoleError, fmt.Sprintf("failed to add layer %s: %v", layerID, err))
	return err
}

// Dispose ends the session and closes its bus.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.state == Disposed {
		c.mu.Unlock()
		return
	}
	c.state = Disposed
	c.mu.Unlock()

	c.bus.Close()
	c.log.Debug("session disposed")
}

// Resync returns the events that bring a browser stream up to date: the
// whole map state, then the panel once the map is ready, then the active set.
func (c *Controller) Resync() []events.Event {
	c.mu.Lock()
	m, state := c.m, c.state
	active := c.activeLocked()
	var (
		out  string
		perr error
	)
	if state == MapReady {
		out, perr = panel.Render(c.doc)
	}
	c.mu.Unlock()

	var evs []events.Event
	if s, ok := m.(interface{ State() widget.State }); ok {
		evs = append(evs, events.Event{Kind: events.Sync, Payload: s.State()})
	}
	if state == MapReady {
		if perr != nil {
			c.log.Error("rendering panel failed", zap.Error(perr))
		} else {
			evs = append(evs, events.Event{Kind: events.Panel, Payload: out})
		}
	}
	return append(evs, events.Event{Kind: events.Active, Payload: active})
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID            string   `json:"id" doc:"Session identifier"`
	State         string   `json:"state" doc:"Lifecycle state" example:"map-ready"`
	HasToken      bool     `json:"hasToken" doc:"Whether an access token was loaded"`
	Active        []string `json:"active" doc:"Active layer IDs in registry order"`
	Streams       int      `json:"streams" doc:"Open browser streams"`
	DroppedEvents int      `json:"droppedEvents" doc:"Events a slow stream missed and recovered by resync"`
}

// Snapshot returns the current view of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	snap := Snapshot{
		ID:       c.id,
		State:    c.state.String(),
		HasToken: c.token != "",
		Active:   c.activeLocked(),
	}
	c.mu.Unlock()
	snap.Streams = c.bus.Subscribers()
	snap.DroppedEvents = c.bus.Dropped()
	return snap
}

func (c *Controller) transition(from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return false
	}
	c.state = to
	return true
}

func (c *Controller) console(kind events.Kind, msg string) {
	c.bus.Publish(events.Event{Kind: kind, Payload: msg})
}

func (c *Controller) record(ctx context.Context, layerID string, action Action, err error) {
	if c.recorder == nil {
		return
	}
	a := Activity{SessionID: c.id, LayerID: layerID, Action: action, At: time.Now().UTC()}
	if err != nil {
		a.Err = err.Error()
	}
	if rerr := c.recorder.Record(context.WithoutCancel(ctx), a); rerr != nil {
		c.log.Warn("recording activity", zap.Error(rerr))
	}
}
