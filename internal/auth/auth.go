// Package auth provides the publisher's ledger signing identity (secp256k1).
package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrAddressMismatch is returned when the key does not match the configured publisher address.
var ErrAddressMismatch = errors.New("private key does not match publisher address")

// Signer signs ledger batches with a single shared key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner wraps an existing private key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// LoadSigner parses a hex private key, with or without 0x prefix.
func LoadSigner(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("private key is required")
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewSigner(key), nil
}

// LoadSignerFromFile reads a hex private key from a file.
func LoadSignerFromFile(path string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return LoadSigner(string(data))
}

// Load picks the inline key if set, otherwise the key file, and checks the
// result against expectedAddress when it is non-empty.
func Load(hexKey, path, expectedAddress string) (*Signer, error) {
	var (
		s   *Signer
		err error
	)
	if hexKey != "" {
		s, err = LoadSigner(hexKey)
	} else {
		s, err = LoadSignerFromFile(path)
	}
	if err != nil {
		return nil, err
	}

	if expectedAddress != "" && common.HexToAddress(expectedAddress) != s.address {
		return nil, fmt.Errorf("%w: key is %s, configured %s", ErrAddressMismatch, s.address.Hex(), expectedAddress)
	}
	return s, nil
}

// Address returns the publisher address derived from the key.
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign returns a 65-byte [R || S || V] signature over digest.
func (s *Signer) Sign(digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}
	return sig, nil
}

// Verify reports whether sig over digest was produced by address.
func Verify(address common.Address, digest common.Hash, sig []byte) bool {
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == address
}
