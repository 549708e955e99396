package stacks

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

var (
	stacksAddressRe = regexp.MustCompile(`^(SP|ST)[0-9A-Z]{38,41}$`)
	decimalRe       = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)
)

const microPerSTX = 6

func isStacksAddress(s string) bool {
	return stacksAddressRe.MatchString(s)
}

// parseAmount parses a positive decimal amount such as "1.5".
func parseAmount(field, s string) (*big.Rat, error) {
	s = strings.TrimSpace(s)
	if !decimalRe.MatchString(s) {
		return nil, toolerr.Validation(field, "%q is not a decimal amount", s)
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, toolerr.Validation(field, "%q is not a decimal amount", s)
	}
	if r.Sign() <= 0 {
		return nil, toolerr.Validation(field, "must be greater than zero")
	}
	return r, nil
}

// baseUnits converts r to the token's smallest unit, rounding down.
func baseUnits(r *big.Rat, decimals int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(scale))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom())
}

// formatDecimal renders r with at most decimals fractional digits and no
// trailing zeros.
func formatDecimal(r *big.Rat, decimals int) string {
	s := r.FloatString(decimals)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// newRat returns units / 10^decimals.
func newRat(units int64, decimals int) *big.Rat {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(big.NewInt(units), scale)
}
