// Package web renders the weather map page and serves its embedded assets.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	g "github.com/maragudk/gomponents"
	. "github.com/maragudk/gomponents/html"

	"github.com/joeblew999/plat-weather/internal/panel"
)

const (
	mapboxVersion = "v3.5.2"
	datastarURL   = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"
)

//go:embed static/*
var staticFiles embed.FS

// Static serves the embedded assets; mount it under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

// StreamURL is the Datastar command stream of a session.
func StreamURL(sessionID string) string {
	return fmt.Sprintf("/api/v1/sessions/%s/stream", sessionID)
}

// ToggleAction is the delegated click expression installed on the panel
// container. Clicks outside a control are ignored.
func ToggleAction(sessionID string) string {
	return fmt.Sprintf(
		"evt.target.closest('[data-layer]') && @post('/api/v1/sessions/%s/layers/' + evt.target.closest('[data-layer]').dataset.layer + '/toggle')",
		sessionID)
}

// Page is the map page of one session.
func Page(sessionID string) g.Node {
	signals, _ := json.Marshal(map[string]any{"sid": sessionID, "active": []string{}})

	return Doctype(
		HTML(Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
				TitleEl(g.Text("Weather map")),
				Link(Rel("stylesheet"), Href("https://api.mapbox.com/mapbox-gl-js/"+mapboxVersion+"/mapbox-gl.css")),
				Link(Rel("stylesheet"), Href("/static/weather.css")),
				Script(Src("https://api.mapbox.com/mapbox-gl-js/"+mapboxVersion+"/mapbox-gl.js")),
				Script(Type("module"), Src(datastarURL)),
			),
			Body(
				g.Attr("data-session", sessionID),
				g.Attr("data-signals", string(signals)),
				g.Attr("data-init", fmt.Sprintf("@get('%s')", StreamURL(sessionID))),
				Div(ID("map")),
				g.Raw(panel.Skeleton),
				Script(Src("/static/weather.js")),
			),
		),
	)
}

// Render writes the page of a session.
func Render(w io.Writer, sessionID string) error {
	return Page(sessionID).Render(w)
}
