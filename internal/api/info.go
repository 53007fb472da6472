package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-weather/internal/registry"
)

type InfoHandler struct {
	backendURL string
	dataDir    string
	dbOK       bool
}

func NewInfoHandler(backendURL, dataDir string, dbOK bool) *InfoHandler {
	return &InfoHandler{backendURL: backendURL, dataDir: dataDir, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Backend  string   `json:"backend" doc:"Weather backend base URL"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether the journal database is available"`
	Layers   int      `json:"layers" doc:"Number of registered overlays"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"geojson", "datastar", "sessions"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-weather",
		Version:  Version,
		Backend:  h.backendURL,
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Layers:   registry.Len(),
		Features: features,
	}}, nil
}
