// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package keystore implements signing identities with Edwards-curve
// Digital Signature Algorithm (EdDSA) keys.
package keystore

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/ava-labs/tokenmeta/chain"
)

const fsModeWrite = 0o600

var (
	ErrInvalidKeySize = errors.New("invalid private key size")
	ErrInvalidKeyFile = errors.New("invalid private key file")
)

var _ chain.KeyStore = &Key{}

// Key is an in-memory signing identity.
type Key struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

// New generates a new key.
func New() (*Key, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return FromPrivateKey(priv)
}

// FromPrivateKey wraps an existing 64-byte private key.
func FromPrivateKey(priv solana.PrivateKey) (*Key, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, len(priv))
	}
	return &Key{priv: priv, pub: priv.PublicKey()}, nil
}

// FromBase58 decodes a base58 encoded private key.
func FromBase58(s string) (*Key, error) {
	b, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	return FromPrivateKey(solana.PrivateKey(b))
}

// Load reads a key file holding either a JSON byte array, as written by
// solana-keygen, or a base58 string.
func Load(path string) (*Key, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, ErrInvalidKeyFile
	}
	if b[0] != '[' {
		return FromBase58(string(b))
	}
	var ints []int
	if err := json.Unmarshal(b, &ints); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	priv := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 0xff {
			return nil, fmt.Errorf("%w: byte %d out of range", ErrInvalidKeyFile, i)
		}
		priv[i] = byte(v)
	}
	return FromPrivateKey(priv)
}

// Save writes the key as a JSON byte array.
func (k *Key) Save(path string) error {
	ints := make([]int, len(k.priv))
	for i, v := range k.priv {
		ints[i] = int(v)
	}
	b, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, fsModeWrite)
}

// Identity implements the chain.KeyStore interface
func (k *Key) Identity() solana.PublicKey { return k.pub }

// Sign implements the chain.KeyStore interface
func (k *Key) Sign(payload []byte) (solana.Signature, error) {
	return k.priv.Sign(payload)
}

// Base58 returns the encoded private key.
func (k *Key) Base58() string { return base58.Encode(k.priv) }

// Verify returns true if [sig] is [pub]'s signature of [payload].
func Verify(pub solana.PublicKey, payload []byte, sig solana.Signature) bool {
	return sig.Verify(pub, payload)
}
