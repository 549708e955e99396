package velar_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/germanamz/blasko/pkg/upstream/rest"
	"github.com/germanamz/blasko/pkg/upstream/velar"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *velar.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return velar.New(rest.New(rest.Options{
		Service:    "velar",
		BaseURL:    srv.URL,
		MaxRetries: -1,
		HTTPClient: srv.Client(),
	}), time.Hour, zaptest.NewLogger(t))
}

func symbols(tokens []velar.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Symbol
	}
	return out
}

func TestSupportedTokens_IntersectsAndSorts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/tokens/symbols", r.URL.Path)
		_, _ = w.Write([]byte(`{"statusCode":200,"data":{"WELSH":"WELSH","UNKNOWN":"UNKNOWN","VELAR":"VELAR","aeUSDC":"aeUSDC","STX":"STX"}}`))
	})

	got := c.SupportedTokens(context.Background())
	assert.Equal(t, []string{"STX", "VELAR", "aeUSDC", "WELSH"}, symbols(got))

	_ = c.SupportedTokens(context.Background())
	assert.Equal(t, int32(1), calls.Load())
}

func TestSupportedTokens_FlatResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"sBTC":"sBTC","STX":"STX"}`))
	})

	got := c.SupportedTokens(context.Background())
	assert.Equal(t, []string{"STX", "sBTC"}, symbols(got))
	assert.Equal(t, 8, got[1].Decimals)
}

func TestSupportedTokens_FallbackOnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	got := c.SupportedTokens(context.Background())
	assert.Len(t, got, len(velar.KnownTokens()))
	assert.Equal(t, "STX", got[0].Symbol)
	assert.Equal(t, "VELAR", got[1].Symbol)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"STX":"STX","sBTC":"sBTC"}}`))
	})

	tok, ok := c.Resolve(context.Background(), "sbtc")
	require.True(t, ok)
	assert.Equal(t, "SM3VDXK3WZZSA84XXFKAFAF15NNZX32CTSG82JFQ4.sbtc-token", tok.ContractAddress)

	_, ok = c.Resolve(context.Background(), "WELSH")
	assert.False(t, ok)
}

func TestKnown(t *testing.T) {
	tok, ok := velar.Known("alex")
	require.True(t, ok)
	assert.Equal(t, 8, tok.Decimals)

	_, ok = velar.Known("DOGE")
	assert.False(t, ok)
}
