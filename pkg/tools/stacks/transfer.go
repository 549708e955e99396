package stacks

import (
	"context"
	"math/big"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
	"github.com/germanamz/blasko/pkg/upstream/velar"
)

const (
	maxRecipients    = 200
	sendManyContract = "SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE"
	sendManyName     = "send-many"
	maxMemoLength    = 34
)

// --- sendToken ---

type sendTokenInput struct {
	Token           string `json:"token"`
	Amount          string `json:"amount"`
	Recipient       string `json:"recipient"`
	Memo            string `json:"memo"`
	ContractAddress string `json:"contractAddress"`
}

type sendTokenOutput struct {
	Token           string `json:"token"`
	Amount          string `json:"amount"`
	Recipient       string `json:"recipient"`
	Memo            string `json:"memo"`
	ContractAddress string `json:"contractAddress"`
}

func (s *Stacks) sendTokenTool() toolbox.Tool {
	memo := str("Optional memo/note for the transfer")
	memo.MaxLength = jsonschema.Ptr(maxMemoLength)

	return toolbox.Tool{
		Name:        "sendToken",
		Description: "Send STX or fungible tokens on the Stacks blockchain to another address. Use this when the user wants to send, transfer, or pay tokens (STX, USDA, sBTC, WELSH, etc.) to someone.",
		InputSchema: object(map[string]*jsonschema.Schema{
			"token":           str(`The token to send: "STX" or a token symbol like "USDA", "sBTC", "WELSH". Defaults to STX.`),
			"amount":          str(`The amount of tokens to send (e.g. "1", "0.5", "100")`),
			"recipient":       str("The recipient Stacks address (starts with SP or ST)"),
			"memo":            memo,
			"contractAddress": str(`Full contract address of the token (e.g. "SP3K8BC0PPEVCV7NZ6QSRWPQ2JE9E5B6N3PA0KBR9.token-name")`),
		}),
		Handler: toolbox.Typed(s.sendToken),
	}
}

func (s *Stacks) sendToken(_ context.Context, in sendTokenInput) (any, error) {
	out := sendTokenOutput{
		Token:           in.Token,
		Amount:          in.Amount,
		Recipient:       in.Recipient,
		Memo:            in.Memo,
		ContractAddress: in.ContractAddress,
	}
	if out.Token == "" {
		out.Token = "STX"
	}

	if in.Amount != "" {
		if _, err := parseAmount("amount", in.Amount); err != nil {
			return nil, err
		}
	}
	if in.Recipient != "" && !isStacksAddress(in.Recipient) {
		return nil, toolerr.Validation("recipient", "%q is not a Stacks address", in.Recipient)
	}

	if out.ContractAddress == "" && !strings.EqualFold(out.Token, "STX") {
		if t, ok := velar.Known(out.Token); ok {
			out.Token = t.Symbol
			out.ContractAddress = t.ContractAddress
		}
	}

	return out, nil
}

// --- multiSend ---

type multiSendRecipient struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Memo    string `json:"memo"`
}

type multiSendInput struct {
	Recipients []multiSendRecipient `json:"recipients"`
}

type multiSendLine struct {
	Address        string `json:"address"`
	Amount         string `json:"amount"`
	AmountMicroSTX string `json:"amountMicroSTX"`
	Memo           string `json:"memo"`
}

type multiSendOutput struct {
	Recipients          []multiSendLine `json:"recipients"`
	TotalAmount         string          `json:"totalAmount"`
	TotalAmountMicroSTX string          `json:"totalAmountMicroSTX"`
	RecipientCount      int             `json:"recipientCount"`
	ContractAddress     string          `json:"contractAddress"`
	ContractName        string          `json:"contractName"`
	FunctionName        string          `json:"functionName"`
}

func (s *Stacks) multiSendTool() toolbox.Tool {
	recipients := &jsonschema.Schema{
		Type:        "array",
		Description: "Recipients, each with address, amount and optional memo. Maximum 200 recipients.",
		Items: object(map[string]*jsonschema.Schema{
			"address": str("The recipient Stacks address (e.g. SP2MF04VAGYHGAZWGTEDW5VYCPDWWSY08Z1QFNDSN)"),
			"amount":  str(`The amount of STX to send to this recipient (e.g. "1.5")`),
			"memo":    str("Optional memo for this recipient"),
		}, "address", "amount"),
	}

	return toolbox.Tool{
		Name:        "multiSend",
		Description: "Send STX tokens to multiple recipients in a single transaction. Use this when the user wants to send tokens to multiple addresses at once, either from a list of addresses and amounts or from an uploaded CSV file. This is cheaper than sending individual transactions.",
		InputSchema: object(map[string]*jsonschema.Schema{"recipients": recipients}, "recipients"),
		Handler:     toolbox.Typed(s.multiSend),
	}
}

func (s *Stacks) multiSend(_ context.Context, in multiSendInput) (any, error) {
	switch n := len(in.Recipients); {
	case n == 0:
		return nil, toolerr.Domain("at least one recipient is required")
	case n > maxRecipients:
		return nil, toolerr.Domain("maximum %d recipients allowed per transaction, got %d", maxRecipients, n)
	}

	out := multiSendOutput{
		Recipients:      make([]multiSendLine, 0, len(in.Recipients)),
		RecipientCount:  len(in.Recipients),
		ContractAddress: sendManyContract,
		ContractName:    sendManyName,
		FunctionName:    sendManyName,
	}

	total := new(big.Rat)
	for _, r := range in.Recipients {
		if !strings.HasPrefix(r.Address, "SP") && !strings.HasPrefix(r.Address, "ST") {
			return nil, toolerr.Domain("invalid Stacks address: %s", r.Address)
		}

		amount, err := parseAmount("amount", r.Amount)
		if err != nil {
			return nil, toolerr.Domain("invalid amount for %s: %s", r.Address, r.Amount)
		}
		total.Add(total, amount)

		out.Recipients = append(out.Recipients, multiSendLine{
			Address:        r.Address,
			Amount:         r.Amount,
			AmountMicroSTX: baseUnits(amount, microPerSTX).String(),
			Memo:           r.Memo,
		})
	}

	out.TotalAmount = formatDecimal(total, microPerSTX)
	out.TotalAmountMicroSTX = baseUnits(total, microPerSTX).String()

	return out, nil
}

// --- swapToken ---

type swapTokenInput struct {
	FromToken string `json:"fromToken"`
	ToToken   string `json:"toToken"`
	Amount    string `json:"amount"`
}

type swapTokenOutput struct {
	FromToken       string       `json:"fromToken"`
	ToToken         string       `json:"toToken"`
	Amount          string       `json:"amount"`
	From            *velar.Token `json:"from,omitempty"`
	To              *velar.Token `json:"to,omitempty"`
	AmountBaseUnits string       `json:"amountBaseUnits,omitempty"`
	SupportedTokens []string     `json:"supportedTokens"`
}

func (s *Stacks) swapTokenTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "swapToken",
		Description: `Swap tokens on a Stacks DEX. Use this when the user wants to swap, exchange, or trade tokens for other tokens (e.g. "swap 10 STX for USDA", "exchange sBTC for WELSH").`,
		InputSchema: object(map[string]*jsonschema.Schema{
			"fromToken": str(`The token to swap from (e.g. "STX", "USDA", "sBTC", "WELSH")`),
			"toToken":   str(`The token to swap to (e.g. "STX", "USDA", "sBTC", "WELSH")`),
			"amount":    str(`The amount to swap (e.g. "1", "0.5", "100")`),
		}),
		Handler: toolbox.Typed(s.swapToken),
	}
}

func (s *Stacks) swapToken(ctx context.Context, in swapTokenInput) (any, error) {
	supported := s.velar.SupportedTokens(ctx)

	out := swapTokenOutput{
		FromToken:       in.FromToken,
		ToToken:         in.ToToken,
		Amount:          in.Amount,
		SupportedTokens: make([]string, len(supported)),
	}
	for i, t := range supported {
		out.SupportedTokens[i] = t.Symbol
	}

	resolve := func(symbol string) (*velar.Token, error) {
		if symbol == "" {
			return nil, nil
		}
		for _, t := range supported {
			if strings.EqualFold(t.Symbol, symbol) {
				return &t, nil
			}
		}
		return nil, toolerr.Domain("token %s is not supported for swaps; supported tokens: %s", symbol, strings.Join(out.SupportedTokens, ", "))
	}

	var err error
	if out.From, err = resolve(in.FromToken); err != nil {
		return nil, err
	}
	if out.To, err = resolve(in.ToToken); err != nil {
		return nil, err
	}
	if out.From != nil && out.To != nil && out.From.Symbol == out.To.Symbol {
		return nil, toolerr.Domain("cannot swap %s for itself", out.From.Symbol)
	}

	if in.Amount != "" {
		amount, err := parseAmount("amount", in.Amount)
		if err != nil {
			return nil, err
		}
		if out.From != nil {
			out.AmountBaseUnits = baseUnits(amount, out.From.Decimals).String()
		}
	}

	return out, nil
}
