package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-weather/internal/events"
	"github.com/joeblew999/plat-weather/internal/humastar"
	"github.com/joeblew999/plat-weather/internal/registry"
	"github.com/joeblew999/plat-weather/internal/session"
	"github.com/joeblew999/plat-weather/internal/widget"
)

var toggleAction = humastar.ActionDef{
	Rel:     "toggle",
	Pattern: "/api/v1/sessions/%s/layers/%s/toggle",
	Method:  "POST",
}

type SessionInput struct {
	SID string `path:"sid" doc:"Session ID"`
}

type SessionLayerInput struct {
	SessionInput
	ID string `path:"id" doc:"Layer ID" example:"temperature"`
}

// ToggleInput carries the Datastar signals the page posts with a click.
type ToggleInput struct {
	SessionLayerInput
	RawBody []byte `contentType:"application/json"`
}

// SessionBody is a session snapshot plus the extent of each active overlay.
type SessionBody struct {
	session.Snapshot
	// Bounds holds [west, south, east, north] per active layer.
	Bounds map[string][4]float64 `json:"bounds" doc:"Extent of each active overlay's features"`
}

// Actions offers removal of every active layer.
func (b SessionBody) Actions() []humastar.Action {
	out := make([]humastar.Action, 0, len(b.Active))
	for _, id := range b.Active {
		title := id
		if d, ok := registry.Lookup(id); ok {
			title = d.DisplayName
		}
		out = append(out, toggleAction.For("Remove "+title, b.ID, id))
	}
	return out
}

type ToggleBody struct {
	Layer  string         `json:"layer" doc:"Toggled layer" example:"radar"`
	Action session.Action `json:"action" enum:"added,removed" doc:"What the toggle attempted"`
	Active []string       `json:"active" doc:"Active layer IDs after the toggle"`
	Error  string         `json:"error,omitempty" doc:"Failure message; the session is left consistent"`
}

// RegisterSessions registers the per-page session routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	huma.Get(api, "/api/v1/sessions/{sid}", h.GetSession, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{sid}/layers/{id}/toggle", h.ToggleLayer, huma.OperationTags("sessions"),
		func(o *huma.Operation) {
			o.RequestBody = &huma.RequestBody{Description: "Datastar signals of the page; may be empty"}
		})
	huma.Post(api, "/api/v1/sessions/{sid}/ready", h.Ready, huma.OperationTags("browser"))
	huma.Get(api, "/api/v1/sessions/{sid}/stream", h.Stream, huma.OperationTags("browser"))
}

func (h *APIHandler) session(sid string) (*session.Controller, error) {
	if h.svc.Sessions == nil {
		return nil, huma.Error503ServiceUnavailable("sessions not available")
	}
	c, err := h.svc.Sessions.Get(sid)
	if err != nil {
		return nil, huma.Error404NotFound("session not found")
	}
	return c, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionInput) (*struct{ Body SessionBody }, error) {
	c, err := h.session(input.SID)
	if err != nil {
		return nil, err
	}
	body := SessionBody{Snapshot: c.Snapshot(), Bounds: map[string][4]float64{}}
	if m, ok := c.Widget().(*widget.Mirror); ok {
		for _, id := range body.Active {
			if b, ok := m.Bounds(id); ok {
				body.Bounds[id] = [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
			}
		}
	}
	return &struct{ Body SessionBody }{Body: body}, nil
}

// ToggleLayer flips one overlay. Failures are reported in the body, not as
// an HTTP error, since the session stays usable.
func (h *APIHandler) ToggleLayer(ctx context.Context, input *ToggleInput) (*struct{ Body ToggleBody }, error) {
	signals, err := (&humastar.SignalsInput{RawBody: input.RawBody}).MustParse()
	if err != nil {
		return nil, err
	}
	if signals.Has("sid") && signals.String("sid") != input.SID {
		return nil, huma.Error400BadRequest("signal sid does not match the session")
	}
	c, err := h.session(input.SID)
	if err != nil {
		return nil, err
	}
	if _, ok := registry.Lookup(input.ID); !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	action, err := c.Toggle(ctx, input.ID)
	body := ToggleBody{Layer: input.ID, Action: action, Active: c.Active()}
	if err != nil {
		body.Error = err.Error()
	}
	return &struct{ Body ToggleBody }{Body: body}, nil
}

// Ready delivers the browser map's load event.
func (h *APIHandler) Ready(ctx context.Context, input *SessionInput) (*struct{}, error) {
	c, err := h.session(input.SID)
	if err != nil {
		return nil, err
	}
	if err := c.NotifyLoaded(); err != nil {
		h.svc.Logger.Warn("load event without map", zap.String("session", c.ID()), zap.Error(err))
		return nil, huma.Error409Conflict("map is not constructed")
	}
	return &struct{}{}, nil
}

// Stream starts the session and forwards its events until the browser goes
// away. A stream that falls behind, or reattaches after a reconnect, is
// brought up to date from the session state. The session is disposed once
// its last stream has been gone for the grace period.
func (h *APIHandler) Stream(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	if h.svc.Sessions == nil {
		return nil, huma.Error503ServiceUnavailable("sessions not available")
	}
	c, err := h.svc.Sessions.Attach(input.SID)
	if err != nil {
		return nil, huma.Error404NotFound("session not found")
	}
	log := h.svc.Logger.With(zap.String("session", c.ID()))

	return humastar.Stream(func(sse humastar.SSE) {
		bus := c.Bus()
		ch := bus.Subscribe()
		defer h.svc.Sessions.Detach(c.ID(), h.svc.StreamGrace)
		defer bus.Unsubscribe(ch)

		if c.State() != session.Uninitialized {
			log.Debug("stream reattached, resyncing")
			if err := forwardAll(sse, c.Resync()); err != nil {
				log.Debug("stream closed", zap.Error(err))
				return
			}
		}

		go func() {
			err := c.Initialize(ctx)
			if err != nil && !errors.Is(err, session.ErrAlreadyInitialized) {
				log.Error("session initialization failed", zap.Error(err))
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				var err error
				if bus.Missed(ch) {
					// Buffered events predate the gap; the resync supersedes them.
					drain(ch)
					log.Warn("stream fell behind, resyncing", zap.Int("dropped", bus.Dropped()))
					err = forwardAll(sse, c.Resync())
				} else {
					err = Forward(sse, ev)
				}
				if err != nil {
					log.Debug("stream closed", zap.Error(err))
					return
				}
			}
		}
	}), nil
}

func drain(ch chan events.Event) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func forwardAll(sse humastar.SSE, evs []events.Event) error {
	for _, ev := range evs {
		if err := Forward(sse, ev); err != nil {
			return err
		}
	}
	return nil
}

// Forward writes one session event to the browser.
func Forward(sse humastar.SSE, ev events.Event) error {
	switch ev.Kind {
	case events.MapCreate:
		p, ok := ev.Payload.(widget.Create)
		if !ok {
			return fmt.Errorf("%s: unexpected payload %T", ev.Kind, ev.Payload)
		}
		return sse.Call("weather.create", p.Options, p.AccessToken)
	case events.AddSource:
		return sse.Call("weather.addSource", ev.ID, ev.Payload)
	case events.AddLayer:
		return sse.Call("weather.addLayer", ev.Payload)
	case events.RemoveLayer:
		return sse.Call("weather.removeLayer", ev.ID)
	case events.RemoveSource:
		return sse.Call("weather.removeSource", ev.ID)
	case events.Sync:
		return sse.Call("weather.sync", ev.Payload)
	case events.Panel:
		html, _ := ev.Payload.(string)
		return sse.Replace(html, "#weather-panel")
	case events.Active:
		return sse.Signals(map[string]any{"active": ev.Payload})
	case events.ConsoleError:
		return sse.ConsoleError(fmt.Sprint(ev.Payload))
	case events.ConsoleLog:
		return sse.ConsoleLog(fmt.Sprint(ev.Payload))
	}
	return nil
}
