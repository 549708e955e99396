package stacks

import (
	"bytes"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

var witnessHash = bytes.Repeat([]byte{0x7a}, 20)

func p2wpkh(t *testing.T) string {
	t.Helper()

	data, err := bech32.ConvertBits(witnessHash, 8, 5, true)
	require.NoError(t, err)
	addr, err := bech32.Encode("bc", append([]byte{0}, data...))
	require.NoError(t, err)
	return addr
}

func TestBridgeToken_Deposit(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	var out bridgeTokenOutput
	h.ok(t, "bridgeToken", map[string]any{"amount": "0.5", "recipient": addrA}, &out)

	assert.Equal(t, "deposit", out.Direction)
	assert.Nil(t, out.Withdrawal)
	require.NotNil(t, out.Deposit)
	assert.Equal(t, sbtcDepositAddress, out.Deposit.DepositAddress)
	assert.Equal(t, int64(50_000_000), out.Deposit.AmountSats)
	assert.Equal(t, "https://sbtc.stacks.co?amount=0.5&stxAddress="+addrA, out.Deposit.BridgeURL)

	// Nothing but a direction is still a valid request.
	out = bridgeTokenOutput{}
	h.ok(t, "bridgeToken", map[string]any{}, &out)
	assert.Equal(t, "deposit", out.Direction)
	require.NotNil(t, out.Deposit)
	assert.Zero(t, out.Deposit.AmountSats)
}

func TestBridgeToken_AmountAboveSupply(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	recipient := p2wpkh(t)

	// 2^64 + 20000 sats must not wrap around to 20000.
	inv := h.fail(t, "bridgeToken", map[string]any{
		"direction": "withdraw",
		"amount":    "184467440737.09571616",
		"recipient": recipient,
	}, toolerr.KindValidation)
	assert.Contains(t, inv.ErrorText, "amount")

	h.fail(t, "bridgeToken", map[string]any{"amount": "21000000.00000001"}, toolerr.KindValidation)

	var out bridgeTokenOutput
	h.ok(t, "bridgeToken", map[string]any{"amount": "21000000"}, &out)
	require.NotNil(t, out.Deposit)
	assert.Equal(t, int64(2_100_000_000_000_000), out.Deposit.AmountSats)
}

func TestBridgeToken_Withdraw(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	recipient := p2wpkh(t)

	var out bridgeTokenOutput
	h.ok(t, "bridgeToken", map[string]any{
		"direction": "withdraw",
		"amount":    "0.01",
		"recipient": recipient,
	}, &out)

	assert.Equal(t, "5000", out.MaxFee)
	assert.Nil(t, out.Deposit)
	require.NotNil(t, out.Withdrawal)

	w := out.Withdrawal
	assert.Equal(t, sbtcWithdrawal, w.Contract)
	assert.Equal(t, "initiate-withdrawal-request", w.FunctionName)
	assert.Equal(t, int64(1_000_000), w.AmountSats)
	assert.Equal(t, int64(5000), w.MaxFeeSats)
	assert.Equal(t, int64(995_000), w.ReceiveSats)
	assert.Equal(t, "p2wpkh", w.RecipientType)
	assert.Equal(t, "04", w.Version)
	assert.Equal(t, hex.EncodeToString(witnessHash), w.Hashbytes)
	assert.Empty(t, w.Warnings)
}

func TestBridgeToken_WithdrawLegacyAndWarning(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	recipient := base58.CheckEncode(witnessHash, 0x00)

	var out bridgeTokenOutput
	h.ok(t, "bridgeToken", map[string]any{
		"direction": "withdraw",
		"amount":    "0.0001",
		"recipient": recipient,
		"maxFee":    "6000",
	}, &out)

	require.NotNil(t, out.Withdrawal)
	assert.Equal(t, "p2pkh", out.Withdrawal.RecipientType)
	assert.Equal(t, "00", out.Withdrawal.Version)
	assert.Equal(t, int64(4000), out.Withdrawal.ReceiveSats)
	require.Len(t, out.Withdrawal.Warnings, 1)
	assert.Contains(t, out.Withdrawal.Warnings[0], "more than half")
}

func TestBridgeToken_WithdrawPartialInput(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	var out bridgeTokenOutput
	h.ok(t, "bridgeToken", map[string]any{"direction": "withdraw", "amount": "0.2"}, &out)
	assert.Nil(t, out.Withdrawal)
	assert.Equal(t, "0.2", out.Amount)
	assert.Equal(t, "5000", out.MaxFee)
}

func TestBridgeToken_Errors(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	recipient := p2wpkh(t)

	tests := []struct {
		name string
		args map[string]any
		kind toolerr.Kind
		text string
	}{
		{"bad direction", map[string]any{"direction": "sideways"}, toolerr.KindValidation, "direction"},
		{"bad amount", map[string]any{"amount": "lots"}, toolerr.KindValidation, "amount"},
		{"deposit to btc address", map[string]any{"recipient": recipient}, toolerr.KindValidation, "not a Stacks address"},
		{"withdraw to stacks address", map[string]any{"direction": "withdraw", "recipient": addrA}, toolerr.KindValidation, "not a Bitcoin address"},
		{"bad checksum", map[string]any{"direction": "withdraw", "recipient": recipient[:len(recipient)-1] + "q"}, toolerr.KindValidation, "recipient"},
		{"bad fee", map[string]any{"direction": "withdraw", "maxFee": "-1"}, toolerr.KindValidation, "maxFee"},
		{"dust", map[string]any{"direction": "withdraw", "amount": "0.00005", "recipient": recipient}, toolerr.KindDomain, "dust limit"},
		{"fee above amount", map[string]any{"direction": "withdraw", "amount": "0.0002", "recipient": recipient, "maxFee": "20000"}, toolerr.KindDomain, "greater than the max fee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := h.fail(t, "bridgeToken", tt.args, tt.kind)
			assert.Contains(t, inv.ErrorText, tt.text)
		})
	}
}
