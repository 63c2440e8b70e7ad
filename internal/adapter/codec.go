package adapter

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gowebpki/jcs"
)

// JSON encodes ledger events for the journal and the message bus
//
//go:generate mockgen -source=codec.go -destination=../mocks/codec.go -package=mocks -mock_names=JSON=MockJSON,JCS=MockJCS
type JSON interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type RealJSON struct{}

func NewJSON() JSON {
	return &RealJSON{}
}

func (j *RealJSON) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (j *RealJSON) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// JCS canonicalizes JSON (RFC 8785) so digests do not depend on field order
type JCS interface {
	Transform(data []byte) ([]byte, error)
}

type RealJCS struct{}

func NewJCS() JCS {
	return &RealJCS{}
}

func (j *RealJCS) Transform(data []byte) ([]byte, error) {
	return jcs.Transform(data)
}

// Digest returns the 0x-prefixed keccak256 of the canonical JSON of v
func Digest(j JSON, c JCS, v interface{}) (string, error) {
	raw, err := j.Marshal(v)
	if err != nil {
		return "", err
	}
	canonical, err := c.Transform(raw)
	if err != nil {
		return "", err
	}
	return crypto.Keccak256Hash(canonical).Hex(), nil
}
