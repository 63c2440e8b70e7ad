package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// ParseEther converts a decimal ether amount such as "0.25" to wei.
// Amounts with more than 18 fractional digits, exponent notation or a wei value above 2^256-1 are rejected.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, WrapError(KindInvalidInput, ErrEmptyInput, "amount is empty")
	}
	if strings.ContainsAny(s, "eE") {
		return nil, NewError(KindInvalidInput, "ether amount %q must not use exponent notation", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, NewError(KindInvalidInput, "malformed ether amount %q", s)
	}
	wei := d.Shift(etherDecimals)
	if !wei.IsInteger() {
		return nil, NewError(KindInvalidInput, "ether amount %q has more than %d decimals", s, etherDecimals)
	}
	if wei.IsNegative() {
		return nil, NewError(KindInvalidInput, "ether amount %q is negative", s)
	}
	v := wei.BigInt()
	if err := CheckAmount("ether amount", v); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseWei parses a base-10 wei amount
func ParseWei(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, WrapError(KindInvalidInput, ErrEmptyInput, "amount is empty")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, NewError(KindInvalidInput, "malformed wei amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, NewError(KindInvalidInput, "wei amount %q is negative", s)
	}
	if err := CheckAmount("wei amount", v); err != nil {
		return nil, err
	}
	return v, nil
}

// CheckAmount rejects a wei amount that does not fit in a uint256
func CheckAmount(name string, v *big.Int) error {
	if v != nil && v.Cmp(gmath.MaxBig256) > 0 {
		return NewError(KindInvalidInput, "%s exceeds 2^256-1 wei", name)
	}
	return nil
}

// FormatEther renders a wei amount as decimal ether
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -etherDecimals).String()
}

// ParseAddress validates and parses a hex account address
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, NewError(KindInvalidInput, "malformed address %q", s)
	}
	return common.HexToAddress(s), nil
}

// NormalizeAddress returns the checksummed form of a hex address
func NormalizeAddress(s string) string {
	return common.HexToAddress(s).Hex()
}
