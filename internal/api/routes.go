// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-weather/internal/humastar"
	"github.com/joeblew999/plat-weather/internal/journal"
	"github.com/joeblew999/plat-weather/internal/registry"
	"github.com/joeblew999/plat-weather/internal/session"
	"github.com/joeblew999/plat-weather/internal/style"
)

// Version is reported by /health and /api/v1/info.
const Version = "1.0.0"

// Services holds the dependencies of the API handlers.
type Services struct {
	Sessions *session.Manager
	Journal  *journal.Store // nil when the database is unavailable
	Logger   *zap.Logger
	// StreamGrace is how long a session outlives its last stream.
	StreamGrace time.Duration
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"temperature"`
}

type LayerBody struct {
	registry.LayerDescriptor
	Style style.LayerConfig `json:"style" doc:"Style layer used when the overlay is shown"`
}

type HealthBody struct {
	Status   string `json:"status" doc:"Health status" example:"ok"`
	Version  string `json:"version" doc:"API version" example:"1.0.0"`
	Sessions int    `json:"sessions" doc:"Live map sessions"`
}

// APIHandler holds the REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	if svc.Logger == nil {
		svc.Logger = zap.NewNop()
	}
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers the read-only registry routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *humastar.EmptyInput) (*struct{ Body HealthBody }, error) {
	n := 0
	if h.svc.Sessions != nil {
		n = h.svc.Sessions.Count()
	}
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version, Sessions: n}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *humastar.EmptyInput) (*struct{ Body []registry.Group }, error) {
	return &struct{ Body []registry.Group }{Body: registry.Groups()}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*struct{ Body LayerBody }, error) {
	d, ok := registry.Lookup(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	cfg, err := style.For(d)
	if err != nil {
		return nil, huma.Error500InternalServerError("no style for layer", err)
	}
	return &struct{ Body LayerBody }{Body: LayerBody{LayerDescriptor: d, Style: cfg}}, nil
}
