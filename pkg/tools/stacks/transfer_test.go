package stacks

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

const (
	addrA = "SP2MF04VAGYHGAZWGTEDW5VYCPDWWSY08Z1QFNDSN"
	addrB = "SP3K8BC0PPEVCV7NZ6QSRWPQ2JE9E5B6N3PA0KBR9"
)

func TestParseAmount(t *testing.T) {
	r, err := parseAmount("amount", "1.5")
	require.NoError(t, err)
	assert.Equal(t, "1500000", baseUnits(r, 6).String())

	r, err = parseAmount("amount", ".25")
	require.NoError(t, err)
	assert.Equal(t, "0.25", formatDecimal(r, 6))

	// Sub-unit precision rounds down.
	r, err = parseAmount("amount", "0.0000019")
	require.NoError(t, err)
	assert.Equal(t, "1", baseUnits(r, 6).String())

	for _, bad := range []string{"", "abc", "-1", "0", "1/3", "1e5", "1,5"} {
		_, err := parseAmount("amount", bad)
		var ve *toolerr.ValidationError
		assert.ErrorAs(t, err, &ve, bad)
	}
}

func TestFormatMicro(t *testing.T) {
	assert.Equal(t, "125000", formatMicro(125000000000))
	assert.Equal(t, "0.5", formatMicro(500000))
}

func TestSendToken_Defaults(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	var out sendTokenOutput
	h.ok(t, "sendToken", map[string]any{}, &out)
	assert.Equal(t, sendTokenOutput{Token: "STX"}, out)

	h.ok(t, "sendToken", map[string]any{"token": "sbtc", "amount": "0.01", "recipient": addrA, "memo": "hi"}, &out)
	assert.Equal(t, "sBTC", out.Token)
	assert.Equal(t, "SM3VDXK3WZZSA84XXFKAFAF15NNZX32CTSG82JFQ4.sbtc-token", out.ContractAddress)
	assert.Equal(t, "0.01", out.Amount)
	assert.Equal(t, addrA, out.Recipient)
	assert.Equal(t, "hi", out.Memo)
}

func TestSendToken_ExplicitContractKept(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	var out sendTokenOutput
	h.ok(t, "sendToken", map[string]any{"token": "USDA", "contractAddress": addrB + ".custom"}, &out)
	assert.Equal(t, addrB+".custom", out.ContractAddress)
}

func TestSendToken_Invalid(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	inv := h.fail(t, "sendToken", map[string]any{"recipient": "alice.btc"}, toolerr.KindValidation)
	assert.Contains(t, inv.ErrorText, "recipient")

	h.fail(t, "sendToken", map[string]any{"amount": "lots"}, toolerr.KindValidation)
	h.fail(t, "sendToken", map[string]any{"amount": 5}, toolerr.KindValidation)

	inv = h.fail(t, "sendToken", map[string]any{"memo": "this memo is definitely longer than thirty four bytes"}, toolerr.KindValidation)
	assert.Contains(t, inv.ErrorText, "memo")
}

func TestMultiSend(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	var out multiSendOutput
	h.ok(t, "multiSend", map[string]any{"recipients": []map[string]any{
		{"address": addrA, "amount": "1.5", "memo": "rent"},
		{"address": addrB, "amount": "2"},
	}}, &out)

	assert.Equal(t, 2, out.RecipientCount)
	assert.Equal(t, "3.5", out.TotalAmount)
	assert.Equal(t, "3500000", out.TotalAmountMicroSTX)
	assert.Equal(t, "SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE", out.ContractAddress)
	assert.Equal(t, "send-many", out.ContractName)
	assert.Equal(t, "send-many", out.FunctionName)
	assert.Equal(t, []multiSendLine{
		{Address: addrA, Amount: "1.5", AmountMicroSTX: "1500000", Memo: "rent"},
		{Address: addrB, Amount: "2", AmountMicroSTX: "2000000"},
	}, out.Recipients)
}

func TestMultiSend_WholeAmounts(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	addrs := []string{addrA, addrB, "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"}

	var out multiSendOutput
	h.ok(t, "multiSend", map[string]any{"recipients": []map[string]any{
		{"address": addrs[0], "amount": "1"},
		{"address": addrs[1], "amount": "2"},
		{"address": addrs[2], "amount": "3"},
	}}, &out)

	assert.Equal(t, "6", out.TotalAmount)
	assert.Equal(t, "6000000", out.TotalAmountMicroSTX)
	assert.Equal(t, 3, out.RecipientCount)
	require.Len(t, out.Recipients, 3)
	for i, line := range out.Recipients {
		assert.Equal(t, addrs[i], line.Address)
		assert.Equal(t, fmt.Sprint(i+1), line.Amount)
		assert.Equal(t, fmt.Sprint((i+1)*1_000_000), line.AmountMicroSTX)
	}
}

func TestMultiSend_SingleRecipient(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	var out multiSendOutput
	h.ok(t, "multiSend", map[string]any{"recipients": []map[string]any{
		{"address": addrA, "amount": "0.000001"},
	}}, &out)

	assert.Equal(t, 1, out.RecipientCount)
	assert.Equal(t, "1", out.TotalAmountMicroSTX)
	require.Len(t, out.Recipients, 1)
	assert.Equal(t, "1", out.Recipients[0].AmountMicroSTX)
}

func TestMultiSend_RecipientCount(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	inv := h.fail(t, "multiSend", map[string]any{"recipients": []any{}}, toolerr.KindDomain)
	assert.Contains(t, inv.ErrorText, "at least one recipient")

	many := make([]map[string]any, 201)
	for i := range many {
		many[i] = map[string]any{"address": addrA, "amount": fmt.Sprint(i + 1)}
	}
	inv = h.fail(t, "multiSend", map[string]any{"recipients": many}, toolerr.KindDomain)
	assert.Contains(t, inv.ErrorText, "maximum 200 recipients")

	var out multiSendOutput
	h.ok(t, "multiSend", map[string]any{"recipients": many[:200]}, &out)
	assert.Equal(t, 200, out.RecipientCount)
	assert.Equal(t, "20100", out.TotalAmount)
}

func TestMultiSend_InvalidRecipient(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	inv := h.fail(t, "multiSend", map[string]any{"recipients": []map[string]any{
		{"address": addrA, "amount": "1"},
		{"address": "bc1qxyz", "amount": "1"},
	}}, toolerr.KindDomain)
	assert.Contains(t, inv.ErrorText, "invalid Stacks address: bc1qxyz")

	inv = h.fail(t, "multiSend", map[string]any{"recipients": []map[string]any{
		{"address": addrA, "amount": "0"},
	}}, toolerr.KindDomain)
	assert.Contains(t, inv.ErrorText, "invalid amount for "+addrA)

	inv = h.fail(t, "multiSend", map[string]any{"recipients": []map[string]any{
		{"address": addrA, "amount": "1"},
		{"address": addrB},
	}}, toolerr.KindValidation)
	assert.Contains(t, inv.ErrorText, "recipients[1].amount")
}

func velarMux(symbols string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/tokens/symbols", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(symbols))
	})
	return mux
}

func TestSwapToken(t *testing.T) {
	h := newHarness(t, velarMux(`{"data":{"STX":"STX","VELAR":"VELAR","sBTC":"sBTC"}}`))

	var out swapTokenOutput
	h.ok(t, "swapToken", map[string]any{"fromToken": "stx", "toToken": "SBTC", "amount": "10"}, &out)

	require.NotNil(t, out.From)
	require.NotNil(t, out.To)
	assert.Equal(t, "STX", out.From.Symbol)
	assert.Equal(t, "sBTC", out.To.Symbol)
	assert.Equal(t, 8, out.To.Decimals)
	assert.Equal(t, "10000000", out.AmountBaseUnits)
	assert.Equal(t, []string{"STX", "VELAR", "sBTC"}, out.SupportedTokens)
	assert.Equal(t, "stx", out.FromToken)
}

func TestSwapToken_PartialInput(t *testing.T) {
	h := newHarness(t, velarMux(`{"data":{"STX":"STX","VELAR":"VELAR"}}`))

	var out swapTokenOutput
	h.ok(t, "swapToken", map[string]any{"toToken": "VELAR"}, &out)
	assert.Nil(t, out.From)
	require.NotNil(t, out.To)
	assert.Empty(t, out.AmountBaseUnits)
}

func TestSwapToken_Rejections(t *testing.T) {
	h := newHarness(t, velarMux(`{"data":{"STX":"STX","VELAR":"VELAR"}}`))

	inv := h.fail(t, "swapToken", map[string]any{"fromToken": "STX", "toToken": "WELSH"}, toolerr.KindDomain)
	assert.Contains(t, inv.ErrorText, "WELSH is not supported")
	assert.Contains(t, inv.ErrorText, "STX, VELAR")

	h.fail(t, "swapToken", map[string]any{"fromToken": "STX", "toToken": "stx"}, toolerr.KindDomain)
	h.fail(t, "swapToken", map[string]any{"fromToken": "STX", "amount": "-3"}, toolerr.KindValidation)
}
