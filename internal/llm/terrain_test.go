package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexpath/internal/world"
)

// fakeAnthropic answers every Messages call with text.
func fakeAnthropic(t *testing.T, status int, text string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req request
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			assert.Equal(t, model, req.Model)
			assert.Len(t, req.Messages, 1)
		}

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
			"usage":   map[string]int{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestNewClient_DisabledWithoutKey(t *testing.T) {
	c := NewClient("")
	assert.Nil(t, c)
	assert.False(t, c.Enabled())

	_, err := c.Complete(context.Background(), "", "hi", 10)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = GenerateTerrain(context.Background(), nil, "lake", 4)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestGenerateTerrain(t *testing.T) {
	reply := "Here you go:\n" + `[
		{"q": 1, "r": 0, "terrain": "WATER"},
		{"q": 0, "r": 1, "terrain": "FOREST", "hasRoad": true},
		{"q": "x", "r": 0, "terrain": "SAND"}
	]`
	srv, calls := fakeAnthropic(t, http.StatusOK, reply)
	c := NewClient("test-key", WithEndpoint(srv.URL))

	got, err := GenerateTerrain(context.Background(), c, "a lake", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
	require.Len(t, got, 2)
	assert.Equal(t, world.NewHexCoord(1, 0), got[0].Coord())
	assert.Equal(t, "WATER", *got[0].Terrain)
	require.NotNil(t, got[1].HasRoad)
	assert.True(t, *got[1].HasRoad)
}

func TestGenerateTerrain_Errors(t *testing.T) {
	srv, _ := fakeAnthropic(t, http.StatusInternalServerError, "")
	c := NewClient("test-key", WithEndpoint(srv.URL))
	_, err := GenerateTerrain(context.Background(), c, "desert", 3)
	assert.ErrorContains(t, err, "API error 500")

	srv, _ = fakeAnthropic(t, http.StatusOK, "I cannot draw maps.")
	c = NewClient("test-key", WithEndpoint(srv.URL))
	_, err = GenerateTerrain(context.Background(), c, "desert", 3)
	assert.ErrorIs(t, err, world.ErrNoProposals)
}

func TestComplete_RateLimit(t *testing.T) {
	srv, calls := fakeAnthropic(t, http.StatusOK, "ok")
	c := NewClient("test-key", WithEndpoint(srv.URL), WithRateLimit(2))

	for i := 0; i < 2; i++ {
		text, err := c.Complete(context.Background(), "", "ping", 10)
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	}
	_, err := c.Complete(context.Background(), "", "ping", 10)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, *calls)
}

func TestComplete_ContextCancelled(t *testing.T) {
	srv, _ := fakeAnthropic(t, http.StatusOK, "ok")
	c := NewClient("test-key", WithEndpoint(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, "", "ping", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTerrainPrompt(t *testing.T) {
	p := terrainPrompt("volcanic island", 5)
	assert.Contains(t, p, "radius of 5")
	assert.Contains(t, p, `"volcanic island"`)
	assert.Contains(t, p, "DENSE_FOREST (cost 3)")
	assert.Contains(t, p, "WALL (impassable)")
	assert.Contains(t, p, "(0,0)")
}
