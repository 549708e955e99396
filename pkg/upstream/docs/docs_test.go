package docs_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/upstream/docs"
	"github.com/germanamz/blasko/pkg/upstream/rest"
)

func TestDefaultIndex(t *testing.T) {
	ix, err := docs.DefaultIndex()
	require.NoError(t, err)
	assert.Equal(t, 45, ix.Len())
}

func TestSearch_Scoring(t *testing.T) {
	ix := docs.NewIndex([]docs.Page{
		{URL: "https://docs.example/concepts/mining", Title: "Mining"},
		{URL: "https://docs.example/guides/stack-stx", Title: "Stack STX", Description: "Stacking is an essential component of Stacks."},
		{URL: "https://docs.example/concepts/stacking", Title: "Stacking"},
		{URL: "https://docs.example/concepts/clarity", Title: "Clarity"},
	})

	hits := ix.Search("stacking", 5)
	require.Len(t, hits, 2)

	// Title phrase match (100) + title keyword (10) + url keyword (3).
	assert.Equal(t, "Stacking", hits[0].Title)
	assert.Equal(t, 113, hits[0].Score)

	// Description phrase match (50) + description keyword (5).
	assert.Equal(t, "Stack STX", hits[1].Title)
	assert.Equal(t, 55, hits[1].Score)
}

func TestSearch_ShortWordsIgnoredAndLimit(t *testing.T) {
	ix, err := docs.DefaultIndex()
	require.NoError(t, err)

	assert.Empty(t, ix.Search("is of to", 5))

	hits := ix.Search("how does sbtc withdrawal work", 5)
	require.Len(t, hits, 5)
	assert.Equal(t, "How to Use the sBTC Bridge | Stacks Documentation", hits[0].Title)

	var titles []string
	for i, h := range hits {
		titles = append(titles, h.Title)
		if i > 0 {
			assert.LessOrEqual(t, h.Score, hits[i-1].Score)
		}
	}
	assert.Contains(t, titles, "sBTC Operations")
	assert.Contains(t, titles, "Deposit vs Withdrawal Times")
}

func TestExtractText_MainContent(t *testing.T) {
	html := `<html><head><style>p{}</style></head><body>
		<header>Site header</header>
		<nav>Menu</nav>
		<main><h1>Stacking</h1>
			<p>Lock   STX
			to earn BTC.</p>
			<script>var x = 1;</script>
		</main>
		<footer>Footer</footer>
	</body></html>`

	text, err := docs.ExtractText([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, "Stacking Lock STX to earn BTC.", text)
}

func TestExtractText_BodyFallbackTruncated(t *testing.T) {
	html := "<html><body><div>" + strings.Repeat("word ", 1000) + "</div></body></html>"

	text, err := docs.ExtractText([]byte(html))
	require.NoError(t, err)
	assert.Len(t, text, 3000)
}

func newFetcher(t *testing.T, handler http.Handler) (*docs.Fetcher, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rc := rest.New(rest.Options{
		Service:    "docs",
		BaseURL:    srv.URL,
		Headers:    map[string]string{"Accept": "text/html"},
		MaxRetries: -1,
		HTTPClient: srv.Client(),
	})
	return docs.NewFetcher(rc, "BlaskoBot"), srv
}

func TestFetcher_HonoursRobots(t *testing.T) {
	var robotsCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		robotsCalls.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/public", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/html", r.Header.Get("Accept"))
		_, _ = w.Write([]byte("<main>Hello docs</main>"))
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, _ *http.Request) {
		t.Error("disallowed page fetched")
	})

	f, srv := newFetcher(t, mux)

	text, err := f.Fetch(context.Background(), srv.URL+"/public")
	require.NoError(t, err)
	assert.Equal(t, "Hello docs", text)

	_, err = f.Fetch(context.Background(), srv.URL+"/private")
	assert.ErrorIs(t, err, docs.ErrDisallowed)

	assert.Equal(t, int32(1), robotsCalls.Load())
}

func TestFetcher_MissingRobotsAllowsAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<article>Content</article>"))
	})

	f, srv := newFetcher(t, mux)

	text, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "Content", text)
}

func TestFetcher_PageError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	f, srv := newFetcher(t, mux)

	_, err := f.Fetch(context.Background(), srv.URL+"/gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docs: fetch")
}
