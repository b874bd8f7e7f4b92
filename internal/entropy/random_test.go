package entropy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeeded_Deterministic(t *testing.T) {
	a := NewSeeded(7)
	b := NewSeeded(7)
	for i := 0; i < 50; i++ {
		va, vb := a.Float64(), b.Float64()
		require.Equal(t, va, vb)
		require.GreaterOrEqual(t, va, 0.0)
		require.Less(t, va, 1.0)
	}
}

func TestNewSeeded_ZeroSeedMatchesOne(t *testing.T) {
	assert.Equal(t, NewSeeded(1).Float64(), NewSeeded(0).Float64())
}

func TestFixed_ReplaysThenZero(t *testing.T) {
	f := NewFixed(0.25, 0.5)
	assert.Equal(t, 0.25, f.Float64())
	assert.Equal(t, 0.5, f.Float64())
	assert.Equal(t, 0.0, f.Float64())
	assert.Equal(t, 2, f.Used())
}

func TestRecorder_ReplaysThroughFixed(t *testing.T) {
	rec := &Recorder{Src: NewSeeded(99)}
	var seen []float64
	for i := 0; i < 5; i++ {
		seen = append(seen, rec.Float64())
	}
	replay := NewFixed(rec.Draws...)
	for _, v := range seen {
		assert.Equal(t, v, replay.Float64())
	}
}

func TestCrypto_InRange(t *testing.T) {
	var c Crypto
	for i := 0; i < 100; i++ {
		v := c.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestNewClient_EmptyKeyDisabled(t *testing.T) {
	c := NewClient("")
	assert.Nil(t, c)
	assert.False(t, c.Enabled())
	assert.IsType(t, Crypto{}, FromClient(c))

	// A nil client still hands out numbers.
	v := c.Float64()
	assert.GreaterOrEqual(t, v, 0.0)
	assert.Less(t, v, 1.0)
}

func TestClient_UsesPool(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		data := make([]float64, 20)
		for i := range data {
			data[i] = 0.5
		}
		data[0] = 1 // rounded up by random.org, must be dropped
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"random": map[string]any{"data": data}},
		})
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL
	require.True(t, c.Enabled())
	assert.Same(t, c, FromClient(c))

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0.5, c.Float64())
	}
	assert.Equal(t, 1, calls)
}

func TestClient_FallsBackOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL
	v := c.Float64()
	assert.GreaterOrEqual(t, v, 0.0)
	assert.Less(t, v, 1.0)
}
