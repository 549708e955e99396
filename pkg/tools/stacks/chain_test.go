package stacks

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/tools/toolerr"
	"github.com/germanamz/blasko/pkg/upstream/hiro"
)

var txID = "0x" + strings.Repeat("ab", 32)

func TestGetTransaction(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/extended/v1/tx/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, txID, r.PathValue("id"))
		writeJSON(w, map[string]any{
			"tx_id":     txID,
			"tx_type":   "token_transfer",
			"tx_status": "success",
			"token_transfer": map[string]any{
				"recipient_address": addrB,
				"amount":            "1000000",
			},
		})
	})
	h := newHarness(t, mux)

	var out hiro.Transaction
	h.ok(t, "getTransaction", map[string]any{"txId": txID}, &out)
	assert.Equal(t, "success", out.TxStatus)
	require.NotNil(t, out.TokenTransfer)
	assert.Equal(t, "1000000", out.TokenTransfer.Amount)

	// The 0x prefix is optional.
	h.ok(t, "getTransaction", map[string]any{"txId": strings.TrimPrefix(txID, "0x")}, &out)
	assert.Equal(t, txID, out.TxID)
}

func TestGetTransaction_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/extended/v1/tx/{id}", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"could not find transaction"}`, http.StatusNotFound)
	})
	h := newHarness(t, mux)

	h.fail(t, "getTransaction", map[string]any{"txId": "0x123"}, toolerr.KindValidation)
	h.fail(t, "getTransaction", map[string]any{}, toolerr.KindValidation)

	inv := h.fail(t, "getTransaction", map[string]any{"txId": txID}, toolerr.KindUpstream)
	assert.Contains(t, inv.ErrorText, "404")
}

func TestGetContract(t *testing.T) {
	id := addrB + ".amm-pool"

	mux := http.NewServeMux()
	mux.HandleFunc("/extended/v1/contract/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, id, r.PathValue("id"))
		writeJSON(w, map[string]any{
			"tx_id":        txID,
			"contract_id":  id,
			"block_height": 42,
			"abi":          map[string]any{"functions": []any{}},
		})
	})
	mux.HandleFunc("/extended/v1/contract/{id}/source", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"source": "(define-public (swap) (ok true))", "publish_height": 42})
	})
	h := newHarness(t, mux)

	var out map[string]any
	h.ok(t, "getContract", map[string]any{"contractAddress": addrB, "contractName": "amm-pool"}, &out)
	assert.Equal(t, id, out["contract_id"])
	assert.Equal(t, "(define-public (swap) (ok true))", out["source_code"])
	assert.Contains(t, out, "abi")
}

func TestGetContract_SourceBestEffort(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/extended/v1/contract/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"contract_id": r.PathValue("id")})
	})
	mux.HandleFunc("/extended/v1/contract/{id}/source", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	h := newHarness(t, mux)

	var out map[string]any
	h.ok(t, "getContract", map[string]any{"contractAddress": addrB, "contractName": "x"}, &out)
	require.Contains(t, out, "source_code")
	assert.Nil(t, out["source_code"])

	h.fail(t, "getContract", map[string]any{"contractAddress": "nope", "contractName": "x"}, toolerr.KindValidation)
}

func TestGetAccount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/extended/v1/address/{addr}/balances", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, addrA, r.PathValue("addr"))
		writeJSON(w, map[string]any{
			"stx":             map[string]any{"balance": "5000000", "locked": "0"},
			"fungible_tokens": map[string]any{addrB + ".token::tok": map[string]any{"balance": "7"}},
		})
	})
	mux.HandleFunc("/extended/v1/address/{addr}/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		writeJSON(w, map[string]any{"limit": 10, "total": 1, "results": []any{
			map[string]any{"tx_id": txID, "tx_status": "success"},
		}})
	})
	h := newHarness(t, mux)

	var out accountOutput
	h.ok(t, "getAccount", map[string]any{"address": addrA}, &out)
	assert.Equal(t, addrA, out.Address)
	require.NotNil(t, out.Balances)
	assert.Equal(t, "5000000", out.Balances.STX.Balance)
	assert.Equal(t, "7", out.Balances.FungibleTokens[addrB+".token::tok"].Balance)
	require.Len(t, out.RecentTransactions, 1)
	assert.Equal(t, txID, out.RecentTransactions[0].TxID)
}

func TestGetAccount_RepeatableReads(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/extended/v1/address/{addr}/balances", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"stx":             map[string]any{"balance": "42000000", "locked": "1000000"},
			"fungible_tokens": map[string]any{addrB + ".token::tok": map[string]any{"balance": "9"}},
		})
	})
	mux.HandleFunc("/extended/v1/address/{addr}/transactions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"limit": 10, "total": 2, "results": []any{
			map[string]any{"tx_id": txID, "tx_status": "success"},
			map[string]any{"tx_id": "0x" + strings.Repeat("cd", 32), "tx_status": "pending"},
		}})
	})
	h := newHarness(t, mux)

	first := h.call(t, "getAccount", map[string]any{"address": addrA})
	second := h.call(t, "getAccount", map[string]any{"address": addrA})

	require.Empty(t, first.ErrorText)
	require.Empty(t, second.ErrorText)
	assert.JSONEq(t, string(first.Output), string(second.Output))
}

func TestGetAccount_TransactionsBestEffort(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/extended/v1/address/{addr}/balances", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"stx": map[string]any{"balance": "1"}})
	})
	mux.HandleFunc("/extended/v1/address/{addr}/transactions", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	h := newHarness(t, mux)

	inv := h.call(t, "getAccount", map[string]any{"address": addrA})
	require.Empty(t, inv.ErrorText)
	assert.Contains(t, string(inv.Output), `"recentTransactions":[]`)
}

func TestGetAccount_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/extended/v1/address/{addr}/balances", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	h := newHarness(t, mux)

	inv := h.fail(t, "getAccount", map[string]any{"address": ""}, toolerr.KindValidation)
	assert.Contains(t, inv.ErrorText, "no wallet address")

	h.fail(t, "getAccount", map[string]any{"address": addrA}, toolerr.KindUpstream)
}
