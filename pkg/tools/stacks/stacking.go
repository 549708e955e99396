package stacks

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/btcaddr"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
	"github.com/germanamz/blasko/pkg/upstream/hiro"
)

const (
	modeSolo      = "solo"
	modePool      = "pool"
	modeDashboard = "dashboard"

	poxContract           = "SP000000000000000000002Q6VF78.pox-4"
	defaultLockPeriod     = 3
	defaultSoloMinimumSTX = 125000000000
)

type stackStxInput struct {
	Mode        string `json:"mode"`
	Amount      string `json:"amount"`
	LockPeriod  int    `json:"lockPeriod"`
	BtcAddress  string `json:"btcAddress"`
	PoolAddress string `json:"poolAddress"`
}

type poxAddress struct {
	Version   string `json:"version"`
	Hashbytes string `json:"hashbytes"`
}

type stackingCall struct {
	Contract        string      `json:"contract"`
	FunctionName    string      `json:"functionName"`
	AmountMicroSTX  string      `json:"amountMicroSTX"`
	LockPeriod      int         `json:"lockPeriod,omitempty"`
	PoxAddress      *poxAddress `json:"poxAddress,omitempty"`
	DelegateTo      string      `json:"delegateTo,omitempty"`
	MinimumMicroSTX int64       `json:"minimumMicroSTX,omitempty"`
}

type stackStxOutput struct {
	Mode        string        `json:"mode"`
	Amount      string        `json:"amount"`
	LockPeriod  int           `json:"lockPeriod"`
	BtcAddress  string        `json:"btcAddress"`
	PoolAddress string        `json:"poolAddress"`
	PoxInfo     *hiro.PoxInfo `json:"poxInfo"`
	Call        *stackingCall `json:"call,omitempty"`
}

func (s *Stacks) stackStxTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "stackStx",
		Description: "Stack STX tokens to earn Bitcoin rewards through Proof-of-Transfer (PoX). Users can stack solo (requires the current minimum, around 125K STX) or delegate to a pool (any amount). Use this when users want to stake, stack, earn rewards, or participate in PoX.",
		InputSchema: object(map[string]*jsonschema.Schema{
			"mode":        enum(`Stacking mode: "solo" for direct stacking, "pool" for delegated stacking, "dashboard" to view the current position. Defaults to dashboard.`, modeSolo, modePool, modeDashboard),
			"amount":      str(`Amount of STX to stack or delegate (e.g. "150000")`),
			"lockPeriod":  integer("Number of reward cycles to lock STX (1-12 cycles, about 2 weeks each). Defaults to 3.", 1, 12),
			"btcAddress":  str("Bitcoin address receiving PoX rewards (solo stacking)"),
			"poolAddress": str("Pool operator address to delegate to (pool stacking)"),
		}),
		Handler: toolbox.Typed(s.stackStx),
	}
}

func (s *Stacks) stackStx(ctx context.Context, in stackStxInput) (any, error) {
	out := stackStxOutput{
		Mode:        in.Mode,
		Amount:      in.Amount,
		LockPeriod:  in.LockPeriod,
		BtcAddress:  in.BtcAddress,
		PoolAddress: in.PoolAddress,
	}
	if out.Mode == "" {
		out.Mode = modeDashboard
	}
	if out.LockPeriod == 0 {
		out.LockPeriod = defaultLockPeriod
	}

	if pox, err := s.hiro.PoxInfo(ctx); err != nil {
		s.log.Warn("pox info unavailable", zap.Error(err))
	} else {
		out.PoxInfo = pox
	}

	if out.Mode == modeDashboard || in.Amount == "" {
		return out, nil
	}

	amount, err := parseAmount("amount", in.Amount)
	if err != nil {
		return nil, err
	}
	micro := baseUnits(amount, microPerSTX)

	switch out.Mode {
	case modeSolo:
		minimum := int64(defaultSoloMinimumSTX)
		if out.PoxInfo != nil && out.PoxInfo.MinAmountUSTX > 0 {
			minimum = out.PoxInfo.MinAmountUSTX
		}
		if !micro.IsInt64() || micro.Int64() < minimum {
			return nil, toolerr.Domain("solo stacking requires at least %s STX; delegate to a pool to stack a smaller amount",
				formatMicro(minimum))
		}

		call := &stackingCall{
			Contract:        poxContract,
			FunctionName:    "stack-stx",
			AmountMicroSTX:  micro.String(),
			LockPeriod:      out.LockPeriod,
			MinimumMicroSTX: minimum,
		}
		if in.BtcAddress != "" {
			addr, err := btcaddr.Decode(in.BtcAddress)
			if err != nil {
				return nil, toolerr.Validation("btcAddress", "%v", err)
			}
			call.PoxAddress = &poxAddress{Version: addr.VersionHex(), Hashbytes: addr.HashBytesHex()}
		}
		out.Call = call

	case modePool:
		if in.PoolAddress != "" {
			principal, _, _ := strings.Cut(in.PoolAddress, ".")
			if !isStacksAddress(principal) {
				return nil, toolerr.Validation("poolAddress", "%q is not a Stacks principal", in.PoolAddress)
			}
		}

		out.Call = &stackingCall{
			Contract:       poxContract,
			FunctionName:   "delegate-stx",
			AmountMicroSTX: micro.String(),
			DelegateTo:     in.PoolAddress,
		}
	}

	return out, nil
}

func formatMicro(micro int64) string {
	return formatDecimal(newRat(micro, microPerSTX), microPerSTX)
}
