// Package security provides optional cryptographic signing of oracle
// responses, so consumers can verify a reading was produced by this
// instance and has not been altered in transit.
package security

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// Signer signs JSON payloads with a process-local secp256k1 key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address string
}

// Envelope wraps a payload with its signature metadata.
type Envelope struct {
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
	Signer    string          `json:"signer"`
	SignedAt  int64           `json:"signedAt"`
}

// NewSigner generates a fresh signing key for this process.
func NewSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}

	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	logrus.Infof("Response signing enabled, signer address %s", address)

	return &Signer{key: key, address: address}, nil
}

// Address returns the signer's Ethereum-style address.
func (s *Signer) Address() string {
	return s.address
}

// Sign wraps the payload in an envelope carrying a Keccak256/secp256k1
// signature over the canonical JSON encoding.
func (s *Signer) Sign(payload interface{}) (*Envelope, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	digest := crypto.Keccak256(encoded)
	signature, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	return &Envelope{
		Payload:   encoded,
		Signature: hexutil.Encode(signature),
		Signer:    s.address,
		SignedAt:  time.Now().Unix(),
	}, nil
}

// Verify checks that an envelope's signature matches its payload and was
// produced by the claimed signer address.
func Verify(env *Envelope) (bool, error) {
	signature, err := hexutil.Decode(env.Signature)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(signature) != crypto.SignatureLength {
		return false, fmt.Errorf("unexpected signature length %d", len(signature))
	}

	digest := crypto.Keccak256(env.Payload)
	pubKey, err := crypto.SigToPub(digest, signature)
	if err != nil {
		return false, fmt.Errorf("failed to recover public key: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pubKey).Hex()
	return recovered == env.Signer, nil
}
