package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/joeblew999/plat-weather/internal/panel"
)

func TestPageCarriesSession(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Render(&sb, "abc"))
	out := sb.String()

	assert.True(t, strings.HasPrefix(out, "<!doctype html>"))
	assert.Contains(t, out, `data-session="abc"`)
	assert.Contains(t, out, "/api/v1/sessions/abc/stream")
	assert.Contains(t, out, `<div id="map"></div>`)
	assert.Contains(t, out, panel.Skeleton)
	assert.Contains(t, out, "mapbox-gl.js")
	assert.Contains(t, out, "/static/weather.js")

	doc, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.NotNil(t, panel.Container(doc))
}

func TestToggleActionTargetsSession(t *testing.T) {
	a := ToggleAction("s1")
	assert.Contains(t, a, "/api/v1/sessions/s1/layers/")
	assert.Contains(t, a, "closest('[data-layer]')")
	assert.Contains(t, a, "@post(")
}

func TestStaticServesShim(t *testing.T) {
	srv := httptest.NewServer(http.StripPrefix("/static/", Static()))
	defer srv.Close()

	for _, name := range []string{"weather.js", "weather.css"} {
		resp, err := http.Get(srv.URL + "/static/" + name)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, name)
	}

	resp, err := http.Get(srv.URL + "/static/missing.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShimDefinesStreamCommands(t *testing.T) {
	b, err := staticFiles.ReadFile("static/weather.js")
	require.NoError(t, err)
	for _, fn := range []string{"create(", "addSource(", "addLayer(", "removeLayer(", "removeSource(", "sync("} {
		assert.Contains(t, string(b), "    "+fn, fn)
	}
}
