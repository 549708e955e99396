package stacks

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/tools/toolerr"
	"github.com/germanamz/blasko/pkg/upstream/docs"
)

func docsHarness(t *testing.T, mux *http.ServeMux) *harness {
	t.Helper()

	h := newHarness(t, mux)
	h.stacks.docs = docs.NewIndex([]docs.Page{
		{URL: h.srv.URL + "/docs/stacking", Title: "Stacking"},
		{URL: h.srv.URL + "/docs/stack-stx", Title: "Stack STX", Description: "How stacking works"},
		{URL: h.srv.URL + "/docs/mining", Title: "Mining"},
	})
	return h
}

func TestGetStacksKnowledge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/stacking", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<main>Stacking locks STX.</main>"))
	})
	mux.HandleFunc("/docs/stack-stx", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := docsHarness(t, mux)

	var out knowledgeOutput
	h.ok(t, "getStacksKnowledge", map[string]any{"question": "stacking"}, &out)

	assert.Equal(t, "stacking", out.Question)
	assert.Equal(t, "Stacking locks STX for reward cycles.", out.Answer)
	assert.Equal(t, "### Stacking\nStacking locks STX.", out.RawContent)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "Stacking", out.Sources[0].Title)

	prompt := h.model.lastPrompt()
	assert.Contains(t, prompt, "USER QUESTION: stacking")
	assert.Contains(t, prompt, "### Stacking\nStacking locks STX.")
	assert.Contains(t, prompt, "YOUR ANSWER:")
}

func TestGetStacksKnowledge_NoMatches(t *testing.T) {
	h := docsHarness(t, http.NewServeMux())

	var out knowledgeOutput
	h.ok(t, "getStacksKnowledge", map[string]any{"question": "weather forecast"}, &out)
	assert.Equal(t, noDocsAnswer, out.Answer)
	assert.Empty(t, out.Sources)
	assert.Empty(t, h.model.lastPrompt())
}

func TestGetStacksKnowledge_NothingFetched(t *testing.T) {
	h := docsHarness(t, http.NewServeMux())

	var out knowledgeOutput
	h.ok(t, "getStacksKnowledge", map[string]any{"question": "stacking"}, &out)
	assert.Equal(t, noContentAnswer, out.Answer)
	require.Len(t, out.Sources, 2)
	assert.Empty(t, out.RawContent)
	assert.Empty(t, h.model.lastPrompt())
}

func TestGetStacksKnowledge_ModelErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/mining", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<main>Miners bid BTC.</main>"))
	})
	h := docsHarness(t, mux)

	h.model.err = errors.New("model overloaded")
	inv := h.fail(t, "getStacksKnowledge", map[string]any{"question": "mining"}, toolerr.KindInternal)
	assert.Contains(t, inv.ErrorText, "model overloaded")

	h.stacks.model = nil
	inv = h.fail(t, "getStacksKnowledge", map[string]any{"question": "mining"}, toolerr.KindInternal)
	assert.Contains(t, inv.ErrorText, "no model configured")

	h.fail(t, "getStacksKnowledge", map[string]any{"question": "  "}, toolerr.KindValidation)
}
