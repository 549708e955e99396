package bnsv2_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/tools/toolerr"
	"github.com/germanamz/blasko/pkg/upstream/bnsv2"
	"github.com/germanamz/blasko/pkg/upstream/rest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *bnsv2.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return bnsv2.New(rest.New(rest.Options{
		Service:    "bnsv2",
		BaseURL:    srv.URL,
		BaseDelay:  time.Millisecond,
		HTTPClient: srv.Client(),
	}))
}

func TestLookup_Registered(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/names/alice.btc", r.URL.Path)
		_, _ = w.Write([]byte(`{"address":"SP1","expire_block":900,"renewal_height":1000,"status":"active"}`))
	})

	n, err := c.Lookup(context.Background(), "alice.btc")
	require.NoError(t, err)
	assert.Equal(t, "SP1", n.OwnerAddress())
	assert.Equal(t, int64(900), n.ExpireBlock)
	assert.Equal(t, "active", n.Status)
}

func TestLookup_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Lookup(context.Background(), "free.btc")
	assert.True(t, toolerr.IsNotFound(err))
}

func TestName_OwnerAddress(t *testing.T) {
	assert.Equal(t, "SPA", bnsv2.Name{Owner: "SPA", Address: "SPB"}.OwnerAddress())
	assert.Equal(t, "SPB", bnsv2.Name{Address: "SPB"}.OwnerAddress())
}
