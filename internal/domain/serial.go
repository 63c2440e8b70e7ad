package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SerialKey is the Keccak-256 digest of a trimmed serial number.
// It is the only form in which serials are stored or compared.
type SerialKey common.Hash

// Hex returns the 0x-prefixed hex form
func (k SerialKey) Hex() string {
	return common.Hash(k).Hex()
}

func (k SerialKey) String() string {
	return k.Hex()
}

// IsZero reports whether the key is all zero bytes
func (k SerialKey) IsZero() bool {
	return k == SerialKey{}
}

// MarshalText encodes the key as 0x-prefixed hex
func (k SerialKey) MarshalText() ([]byte, error) {
	return hexutil.Bytes(k[:]).MarshalText()
}

// UnmarshalText decodes a 0x-prefixed 32 byte hex string
func (k *SerialKey) UnmarshalText(input []byte) error {
	var h common.Hash
	if err := h.UnmarshalText(input); err != nil {
		return err
	}
	*k = SerialKey(h)
	return nil
}

// ParseSerialKey parses a hex encoded serial key
func ParseSerialKey(s string) (SerialKey, error) {
	s = strings.TrimSpace(s)
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return SerialKey{}, NewError(KindInvalidInput, "malformed serial key %q", s)
	}
	return SerialKey(common.BytesToHash(b)), nil
}
