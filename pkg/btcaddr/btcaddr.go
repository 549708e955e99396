// Package btcaddr decodes mainnet Bitcoin addresses into the version and
// hash bytes a Stacks contract expects for a BTC recipient.
package btcaddr

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// ErrInvalid is returned for strings that are not a mainnet Bitcoin address.
var ErrInvalid = errors.New("btcaddr: invalid bitcoin address")

// Type is the output script type of an address.
type Type string

const (
	P2PKH  Type = "p2pkh"
	P2SH   Type = "p2sh"
	P2WPKH Type = "p2wpkh"
	P2WSH  Type = "p2wsh"
	P2TR   Type = "p2tr"
)

// Version bytes of the Clarity (buff 1) address version used by PoX and
// sBTC withdrawals.
var versions = map[Type]byte{
	P2PKH:  0x00,
	P2SH:   0x01,
	P2WPKH: 0x04,
	P2WSH:  0x05,
	P2TR:   0x06,
}

const (
	base58P2PKH = 0x00
	base58P2SH  = 0x05
	mainnetHRP  = "bc"
)

// Address is a decoded Bitcoin address.
type Address struct {
	Type      Type
	Version   byte
	HashBytes []byte
}

// VersionHex returns the version byte as hex.
func (a Address) VersionHex() string { return hex.EncodeToString([]byte{a.Version}) }

// HashBytesHex returns the hash or witness program as hex.
func (a Address) HashBytesHex() string { return hex.EncodeToString(a.HashBytes) }

// Decode parses a legacy base58check address (1..., 3...) or a segwit
// bech32/bech32m address (bc1...).
func Decode(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), mainnetHRP+"1") {
		return decodeSegwit(s)
	}
	return decodeBase58(s)
}

func decodeBase58(s string) (Address, error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(payload) != 20 {
		return Address{}, fmt.Errorf("%w: hash length %d", ErrInvalid, len(payload))
	}

	var t Type
	switch version {
	case base58P2PKH:
		t = P2PKH
	case base58P2SH:
		t = P2SH
	default:
		return Address{}, fmt.Errorf("%w: unsupported version 0x%02x", ErrInvalid, version)
	}

	return Address{Type: t, Version: versions[t], HashBytes: payload}, nil
}

func decodeSegwit(s string) (Address, error) {
	hrp, data, enc, err := bech32.DecodeGeneric(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if hrp != mainnetHRP {
		return Address{}, fmt.Errorf("%w: unexpected prefix %q", ErrInvalid, hrp)
	}
	if len(data) < 1 {
		return Address{}, fmt.Errorf("%w: empty witness", ErrInvalid)
	}

	witnessVersion := data[0]
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch {
	case witnessVersion == 0 && enc != bech32.Version0:
		return Address{}, fmt.Errorf("%w: witness v0 must use bech32", ErrInvalid)
	case witnessVersion > 0 && enc != bech32.VersionM:
		return Address{}, fmt.Errorf("%w: witness v%d must use bech32m", ErrInvalid, witnessVersion)
	}

	var t Type
	switch {
	case witnessVersion == 0 && len(program) == 20:
		t = P2WPKH
	case witnessVersion == 0 && len(program) == 32:
		t = P2WSH
	case witnessVersion == 1 && len(program) == 32:
		t = P2TR
	default:
		return Address{}, fmt.Errorf("%w: unsupported witness v%d program of %d bytes", ErrInvalid, witnessVersion, len(program))
	}

	return Address{Type: t, Version: versions[t], HashBytes: program}, nil
}
