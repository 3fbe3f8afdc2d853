// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"encoding/json"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Scheme selects where an asset's record is stored.
type Scheme uint8

const (
	// CoLocated keeps the record in the asset account (or in a shared
	// account the asset points at) as an extension.
	CoLocated Scheme = iota + 1
	// Derived keeps the record in a separate account whose address is
	// derived from the asset address.
	Derived
)

func (s Scheme) String() string {
	switch s {
	case CoLocated:
		return "co-located"
	case Derived:
		return "derived"
	default:
		return "unknown"
	}
}

// Format returns the record encoding used by the scheme.
func (s Scheme) Format() Format {
	if s == Derived {
		return FormatLegacy
	}
	return FormatExtensible
}

// ParseScheme maps a scheme name to its value.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(s) {
	case "co-located", "colocated", "extension":
		return CoLocated, nil
	case "derived", "legacy":
		return Derived, nil
	default:
		return 0, ErrUnknownScheme
	}
}

func (s Scheme) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Scheme) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	p, err := ParseScheme(v)
	if err != nil {
		return err
	}
	*s = p
	return nil
}

// Location is the resolved storage of an asset's record.
type Location struct {
	Scheme Scheme           `json:"scheme"`
	Asset  solana.PublicKey `json:"asset"`
	// Address of the account holding the record.
	Address solana.PublicKey `json:"address"`
	// Program that owns and writes the record account.
	Program solana.PublicKey `json:"program"`
	// Program that owns the asset account.
	TokenProgram solana.PublicKey `json:"tokenProgram"`
}

// InPlace returns true if the record is stored inside the asset account.
func (l Location) InPlace() bool {
	return l.Scheme == CoLocated && l.Address.Equals(l.Asset)
}
