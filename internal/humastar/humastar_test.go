package humastar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/starfederation/datastar-go/datastar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type thing struct {
	ID string `json:"id"`
}

func (t thing) Actions() []Action {
	return []Action{ActionDef{Rel: "poke", Pattern: "/things/%s/poke", Method: "POST"}.For("Poke", t.ID)}
}

func TestLinksTransformer(t *testing.T) {
	links := Links{}
	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, links.Transformer())
	_, api := humatest.New(t, cfg)

	huma.Get(api, "/health", func(ctx context.Context, _ *struct{}) (*struct{ Body string }, error) {
		return &struct{ Body string }{Body: "ok"}, nil
	}, huma.OperationTags("health"))
	huma.Get(api, "/things", func(ctx context.Context, _ *struct{}) (*struct{ Body PageBody[thing] }, error) {
		return &struct{ Body PageBody[thing] }{Body: NewPage([]thing{{"a"}, {"b"}, {"c"}}, 0, 2)}, nil
	}, huma.OperationTags("things"))
	huma.Get(api, "/things/{id}", func(ctx context.Context, in *struct {
		ID string `path:"id"`
	}) (*struct{ Body thing }, error) {
		return &struct{ Body thing }{Body: thing{in.ID}}, nil
	}, huma.OperationTags("things"))
	huma.Get(api, "/things/{id}/stream", func(ctx context.Context, _ *struct {
		ID string `path:"id"`
	}) (*struct{ Body string }, error) {
		return &struct{ Body string }{Body: ""}, nil
	}, huma.OperationTags("browser"))

	links.Derive(api, "browser")

	health := api.Get("/health").Header().Values("Link")
	assert.Contains(t, health, `</things>; rel="things"`)
	assert.Contains(t, health, `</openapi.json>; rel="service-desc"`)

	list := api.Get("/things").Header().Values("Link")
	assert.Contains(t, list, `</things/{id}>; rel="item"`)
	assert.Contains(t, list, `</health>; rel="up"`)
	assert.Contains(t, list, `</things?offset=2&limit=2>; rel="next"`)

	item := api.Get("/things/x").Header().Values("Link")
	assert.Contains(t, item, `</things>; rel="collection"`)
	assert.Contains(t, item, `</things/x>; rel="self"`)
	assert.Contains(t, item, `</things/x/poke>; rel="poke"; method="POST"; title="Poke"`)

	assert.NotContains(t, links, "/things/{id}/stream")
}

func TestNewPage(t *testing.T) {
	p := NewPage([]int{1, 2, 3}, 4, 3)
	assert.False(t, p.More)
	assert.Equal(t, []string{
		`</j?offset=0&limit=3>; rel="first"`,
		`</j?offset=1&limit=3>; rel="prev"`,
	}, p.PaginationLinks("/j"))

	empty := NewPage[int](nil, 0, 10)
	assert.NotNil(t, empty.Data)
}

func TestCallEncodesArguments(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := SSE{datastar.NewSSE(rec, httptest.NewRequest(http.MethodGet, "/", nil))}

	require.NoError(t, sse.Call("weather.addSource", "radar", map[string]any{"type": "geojson"}))
	assert.Contains(t, rec.Body.String(), `weather.addSource("radar",{"type":"geojson"})`)

	assert.Error(t, sse.Call("f", make(chan int)))
}

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"sid":"abc","active":["radar"]}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", s.String("sid"))
	assert.True(t, s.Has("active"))
	assert.Empty(t, s.String("active"))

	s, err = ParseSignals(nil)
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = (&SignalsInput{RawBody: []byte("{")}).MustParse()
	assert.Error(t, err)
}
