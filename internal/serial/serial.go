// Package serial derives the verification keys used to register and look up
// physical units. A key is keccak256 over the UTF-8 bytes of the trimmed serial,
// which is the digest the escrow contract stores.
package serial

import (
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/harvestline/escrow-ledger/internal/domain"
)

// DeriveKey returns the serial key for a single serial number
func DeriveKey(serial string) (domain.SerialKey, error) {
	trimmed := strings.TrimSpace(serial)
	if trimmed == "" {
		return domain.SerialKey{}, domain.WrapError(domain.KindInvalidInput, domain.ErrEmptyInput, "serial number is empty")
	}
	return domain.SerialKey(crypto.Keccak256Hash([]byte(trimmed))), nil
}

// DeriveKeys derives keys for a list of serials, keeping input order and
// dropping blank entries
func DeriveKeys(serials []string) []domain.SerialKey {
	keys := make([]domain.SerialKey, 0, len(serials))
	for _, s := range serials {
		key, err := DeriveKey(s)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// SplitLines splits one-serial-per-line text into serials.
// Blank lines are dropped and surrounding whitespace is removed.
func SplitLines(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Pair is a serial number with its derived key
type Pair struct {
	Serial string
	Key    domain.SerialKey
}

// DerivePairs derives keys like DeriveKeys but keeps the trimmed serial next to each key
func DerivePairs(serials []string) []Pair {
	pairs := make([]Pair, 0, len(serials))
	for _, s := range serials {
		key, err := DeriveKey(s)
		if err != nil {
			continue
		}
		pairs = append(pairs, Pair{Serial: strings.TrimSpace(s), Key: key})
	}
	return pairs
}
