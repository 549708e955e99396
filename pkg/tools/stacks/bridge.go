package stacks

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/germanamz/blasko/pkg/btcaddr"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

const (
	directionDeposit  = "deposit"
	directionWithdraw = "withdraw"

	satsPerBTC        = 8
	dustLimitSats     = 10000
	maxSupplySats     = 21_000_000 * 100_000_000
	defaultMaxFeeSats = "5000"

	sbtcDepositAddress = "bc1q3f0vu0uzsmxvzdkcf7x6hfw7g5wc2r3ma6t6zv"
	sbtcBridgeURL      = "https://sbtc.stacks.co"
	sbtcWithdrawal     = "SM3VDXK3WZZSA84XXFKAFAF15NNZX32CTSG82JFQ4.sbtc-withdrawal"
	sbtcWithdrawFn     = "initiate-withdrawal-request"
)

var (
	depositRecipientRe  = regexp.MustCompile(`^(SP|ST)[0-9A-Z]{38,40}$`)
	withdrawRecipientRe = regexp.MustCompile(`^(bc1|[13])[a-zA-HJ-NP-Z0-9]{25,62}$`)
)

type bridgeTokenInput struct {
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	MaxFee    string `json:"maxFee"`
}

type bridgeDeposit struct {
	DepositAddress string `json:"depositAddress"`
	BridgeURL      string `json:"bridgeUrl"`
	AmountSats     int64  `json:"amountSats,omitempty"`
}

type bridgeWithdrawal struct {
	Contract      string   `json:"contract"`
	FunctionName  string   `json:"functionName"`
	AmountSats    int64    `json:"amountSats"`
	MaxFeeSats    int64    `json:"maxFeeSats"`
	ReceiveSats   int64    `json:"receiveSats"`
	RecipientType string   `json:"recipientType"`
	Version       string   `json:"version"`
	Hashbytes     string   `json:"hashbytes"`
	Warnings      []string `json:"warnings,omitempty"`
}

type bridgeTokenOutput struct {
	Direction  string            `json:"direction"`
	Amount     string            `json:"amount"`
	Recipient  string            `json:"recipient"`
	MaxFee     string            `json:"maxFee"`
	Deposit    *bridgeDeposit    `json:"deposit,omitempty"`
	Withdrawal *bridgeWithdrawal `json:"withdrawal,omitempty"`
}

func (s *Stacks) bridgeTokenTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "bridgeToken",
		Description: "Bridge Bitcoin (BTC) to Stacks as sBTC or withdraw sBTC back to Bitcoin. Use this when the user wants to bridge, deposit, or withdraw between the Bitcoin and Stacks networks.",
		InputSchema: object(map[string]*jsonschema.Schema{
			"direction": enum(`Bridge direction: "deposit" converts BTC to sBTC, "withdraw" converts sBTC back to BTC. Defaults to deposit.`, directionDeposit, directionWithdraw),
			"amount":    str(`Amount to bridge in BTC (e.g. "0.1")`),
			"recipient": str("For deposits: the Stacks address (SP...) receiving sBTC. For withdrawals: the Bitcoin address receiving BTC."),
			"maxFee":    str("For withdrawals: maximum Bitcoin transaction fee in sats. Defaults to 5000."),
		}),
		Handler: toolbox.Typed(s.bridgeToken),
	}
}

func (s *Stacks) bridgeToken(_ context.Context, in bridgeTokenInput) (any, error) {
	out := bridgeTokenOutput{
		Direction: in.Direction,
		Amount:    in.Amount,
		Recipient: in.Recipient,
		MaxFee:    in.MaxFee,
	}
	if out.Direction == "" {
		out.Direction = directionDeposit
	}

	var sats int64
	if in.Amount != "" {
		amount, err := parseAmount("amount", in.Amount)
		if err != nil {
			return nil, err
		}
		units := baseUnits(amount, satsPerBTC)
		if !units.IsInt64() || units.Int64() > maxSupplySats {
			return nil, toolerr.Validation("amount", "%s BTC exceeds the 21,000,000 BTC supply", in.Amount)
		}
		sats = units.Int64()
	}

	if out.Direction == directionDeposit {
		if in.Recipient != "" && !depositRecipientRe.MatchString(in.Recipient) {
			return nil, toolerr.Validation("recipient", "%q is not a Stacks address", in.Recipient)
		}

		out.Deposit = &bridgeDeposit{
			DepositAddress: sbtcDepositAddress,
			BridgeURL:      depositURL(in.Recipient, in.Amount),
			AmountSats:     sats,
		}
		return out, nil
	}

	if out.MaxFee == "" {
		out.MaxFee = defaultMaxFeeSats
	}
	maxFee, err := strconv.ParseInt(out.MaxFee, 10, 64)
	if err != nil || maxFee <= 0 {
		return nil, toolerr.Validation("maxFee", "%q is not a positive number of sats", out.MaxFee)
	}

	var addr btcaddr.Address
	if in.Recipient != "" {
		if !withdrawRecipientRe.MatchString(in.Recipient) {
			return nil, toolerr.Validation("recipient", "%q is not a Bitcoin address", in.Recipient)
		}
		if addr, err = btcaddr.Decode(in.Recipient); err != nil {
			return nil, toolerr.Validation("recipient", "%v", err)
		}
	}

	if in.Amount == "" || in.Recipient == "" {
		return out, nil
	}

	if sats < dustLimitSats {
		return nil, toolerr.Domain("withdrawal amount (%d sats) is below the Bitcoin dust limit of %d sats (0.0001 BTC)", sats, dustLimitSats)
	}
	if sats <= maxFee {
		return nil, toolerr.Domain("withdrawal amount (%d sats) must be greater than the max fee (%d sats)", sats, maxFee)
	}

	w := &bridgeWithdrawal{
		Contract:      sbtcWithdrawal,
		FunctionName:  sbtcWithdrawFn,
		AmountSats:    sats,
		MaxFeeSats:    maxFee,
		ReceiveSats:   sats - maxFee,
		RecipientType: string(addr.Type),
		Version:       addr.VersionHex(),
		Hashbytes:     addr.HashBytesHex(),
	}
	if maxFee*2 > sats {
		w.Warnings = append(w.Warnings, fmt.Sprintf("the max fee is more than half of the withdrawal amount (%d of %d sats)", maxFee, sats))
	}
	out.Withdrawal = w

	return out, nil
}

func depositURL(recipient, amount string) string {
	q := url.Values{}
	q.Set("stxAddress", recipient)
	q.Set("amount", amount)
	return sbtcBridgeURL + "?" + q.Encode()
}
