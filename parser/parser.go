// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package parser defines command line argument parsing operations.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/ava-labs/tokenmeta/chain"
)

const (
	MaxKeySize     = 256
	Delimiter      = "/"
	FieldSeparator = "="
)

var (
	ErrInvalidKey     = errors.New("field keys must be 1-256 bytes of printable utf-8")
	ErrInvalidPath    = errors.New("path is not of the form asset/key")
	ErrInvalidAddress = errors.New("invalid base58 address")
	ErrInvalidField   = errors.New("field is not of the form key=value")
)

// CheckKey returns an error if the field key format is invalid.
func CheckKey(key string) error {
	if key == "" || len(key) > MaxKeySize || !utf8.ValidString(key) {
		return ErrInvalidKey
	}
	for _, r := range key {
		if !unicode.IsPrint(r) {
			return ErrInvalidKey
		}
	}
	return nil
}

// ParseAddress decodes a base58 account address.
func ParseAddress(s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return pk, nil
}

// ResolvePath splits "asset/key". Everything after the first delimiter is
// the key.
func ResolvePath(path string) (asset solana.PublicKey, key string, err error) {
	segments := strings.SplitN(path, Delimiter, 2)
	if len(segments) != 2 {
		return solana.PublicKey{}, "", ErrInvalidPath
	}
	asset, err = ParseAddress(segments[0])
	if err != nil {
		return solana.PublicKey{}, "", err
	}
	key = segments[1]
	if err := CheckKey(key); err != nil {
		return solana.PublicKey{}, "", err
	}
	return asset, key, nil
}

// ParseField splits "key=value" into an additional field.
func ParseField(s string) (chain.Field, error) {
	segments := strings.SplitN(s, FieldSeparator, 2)
	if len(segments) != 2 {
		return chain.Field{}, fmt.Errorf("%w: %q", ErrInvalidField, s)
	}
	if err := CheckKey(segments[0]); err != nil {
		return chain.Field{}, err
	}
	if err := chain.VerifyKey(segments[0]); err != nil {
		return chain.Field{}, err
	}
	return chain.Field{Key: segments[0], Value: segments[1]}, nil
}

// ParseAmount reads a positive decimal amount in whole units.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", chain.ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", chain.ErrAmountNotPositive, s)
	}
	return d, nil
}
