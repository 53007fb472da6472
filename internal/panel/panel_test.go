package panel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/joeblew999/plat-weather/internal/registry"
)

const click = "@post('/toggle/' + evt.target.dataset.layer)"

func newDoc(t *testing.T) *html.Node {
	t.Helper()
	doc, err := NewDocument()
	require.NoError(t, err)
	return doc
}

func TestBuildEmitsEveryLayer(t *testing.T) {
	doc := newDoc(t)
	require.True(t, NewBuilder(click).Build(doc))

	controls := Controls(doc)
	require.Len(t, controls, registry.Len())
	for i, d := range registry.All() {
		assert.Equal(t, d.ID, Attr(controls[i], AttrLayer))
		assert.Equal(t, d.Label(), controls[i].FirstChild.Data)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	doc := newDoc(t)
	b := NewBuilder(click)
	require.True(t, b.Build(doc))
	first, err := Render(doc)
	require.NoError(t, err)

	require.True(t, b.Build(doc))
	second, err := Render(doc)
	require.NoError(t, err)

	assert.Len(t, Controls(doc), registry.Len())
	assert.Len(t, Headings(doc), 3)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, strings.Count(second, AttrClick+"="))
}

func TestThreeGroupsWithFixedMembership(t *testing.T) {
	doc := newDoc(t)
	require.True(t, NewBuilder(click).Build(doc))

	headings := Headings(doc)
	require.Len(t, headings, 3)

	ids := func(from, to int) []string {
		var out []string
		for _, d := range registry.All()[from:to] {
			out = append(out, d.ID)
		}
		return out
	}
	m := Membership(doc)
	assert.Equal(t, ids(0, 12), m[string(registry.GroupBasic)])
	assert.Equal(t, ids(12, 16), m[string(registry.GroupAdvanced)])
	assert.Equal(t, ids(16, 20), m[string(registry.Group3D)])
}

func TestBuildKeepsForeignChildren(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(
		`<div class="weather-panel"><div class="panel-content"><p id="legend">legend</p></div></div>`))
	require.NoError(t, err)

	b := NewBuilder("")
	require.True(t, b.Build(doc))
	require.True(t, b.Build(doc))

	c := Container(doc)
	require.NotNil(t, c)
	assert.Equal(t, "legend", Attr(c.FirstChild, "id"))
	assert.Empty(t, Attr(c, AttrClick))
}

func TestBuildWithoutContainerIsNoop(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<div class="weather-panel"><h3>no content</h3></div>`))
	require.NoError(t, err)

	assert.False(t, NewBuilder(click).Build(doc))
	assert.Empty(t, Controls(doc))
	assert.Empty(t, Membership(doc))
}

func TestRenderCarriesDelegatedHandler(t *testing.T) {
	doc := newDoc(t)
	require.True(t, NewBuilder(click).Build(doc))
	out, err := Render(doc)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<div id="weather-panel" class="weather-panel">`))
	assert.Contains(t, out, `data-layer="3d-animations"`)
	assert.Contains(t, out, AttrClick)
}

func TestRenderWithoutPanel(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<p>nothing</p>`))
	require.NoError(t, err)
	_, err = Render(doc)
	assert.Error(t, err)
}
