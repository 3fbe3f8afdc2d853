// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/gagliardetto/solana-go"
)

const (
	FieldName   = "name"
	FieldSymbol = "symbol"
	FieldURI    = "uri"
)

// Field is an additional key/value pair of a record.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Record is the metadata bound to an asset.
type Record struct {
	// Nil means nobody can change the record again.
	UpdateAuthority *solana.PublicKey `json:"updateAuthority"`
	Mint            solana.PublicKey  `json:"mint"`
	Name            string            `json:"name"`
	Symbol          string            `json:"symbol"`
	URI             string            `json:"uri"`
	// Insertion order is preserved by the encoding.
	AdditionalFields []Field `json:"additionalFields"`

	// Only set for records in the legacy format.
	Legacy *LegacyAttributes `json:"legacy,omitempty"`
}

// LegacyAttributes are the parts of a legacy record without an extensible
// equivalent. They are carried through updates unchanged.
type LegacyAttributes struct {
	SellerFeeBasisPoints uint16      `json:"sellerFeeBasisPoints"`
	Creators             []Creator   `json:"creators"`
	PrimarySaleHappened  bool        `json:"primarySaleHappened"`
	IsMutable            bool        `json:"isMutable"`
	EditionNonce         *uint8      `json:"editionNonce,omitempty"`
	TokenStandard        *uint8      `json:"tokenStandard,omitempty"`
	Collection           *Collection `json:"collection,omitempty"`
	Uses                 *Uses       `json:"uses,omitempty"`
	// Undecoded bytes following the known fields.
	Tail []byte `json:"-"`
}

type Creator struct {
	Address  solana.PublicKey `json:"address"`
	Verified bool             `json:"verified"`
	Share    uint8            `json:"share"`
}

type Collection struct {
	Verified bool             `json:"verified"`
	Key      solana.PublicKey `json:"key"`
}

type Uses struct {
	Method    uint8  `json:"method"`
	Remaining uint64 `json:"remaining"`
	Total     uint64 `json:"total"`
}

// IsFixedField returns true for the keys every record carries.
func IsFixedField(key string) bool {
	switch key {
	case FieldName, FieldSymbol, FieldURI:
		return true
	}
	return false
}

// Get returns the value of a fixed or additional field.
func (r *Record) Get(key string) (string, bool) {
	switch key {
	case FieldName:
		return r.Name, true
	case FieldSymbol:
		return r.Symbol, true
	case FieldURI:
		return r.URI, true
	}
	for _, f := range r.AdditionalFields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// IsExistingField returns true if [key] is a fixed field or an additional
// field already present in [r].
func IsExistingField(r *Record, key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Copy returns a deep copy of the record.
func (r *Record) Copy() *Record {
	c := *r
	if r.UpdateAuthority != nil {
		ua := *r.UpdateAuthority
		c.UpdateAuthority = &ua
	}
	if r.AdditionalFields != nil {
		c.AdditionalFields = make([]Field, len(r.AdditionalFields))
		copy(c.AdditionalFields, r.AdditionalFields)
	}
	if r.Legacy != nil {
		l := *r.Legacy
		if l.Creators != nil {
			l.Creators = make([]Creator, len(r.Legacy.Creators))
			copy(l.Creators, r.Legacy.Creators)
		}
		if l.Tail != nil {
			l.Tail = append([]byte(nil), r.Legacy.Tail...)
		}
		c.Legacy = &l
	}
	return &c
}

// WithField returns a copy of [r] with [key] set to [value]. New
// additional keys are appended.
func (r *Record) WithField(key, value string) *Record {
	c := r.Copy()
	switch key {
	case FieldName:
		c.Name = value
		return c
	case FieldSymbol:
		c.Symbol = value
		return c
	case FieldURI:
		c.URI = value
		return c
	}
	for i, f := range c.AdditionalFields {
		if f.Key == key {
			c.AdditionalFields[i].Value = value
			return c
		}
	}
	c.AdditionalFields = append(c.AdditionalFields, Field{Key: key, Value: value})
	return c
}

// WithoutField returns a copy of [r] without the additional field [key]
// and whether it was present.
func (r *Record) WithoutField(key string) (*Record, bool) {
	c := r.Copy()
	for i, f := range c.AdditionalFields {
		if f.Key != key {
			continue
		}
		c.AdditionalFields = append(c.AdditionalFields[:i], c.AdditionalFields[i+1:]...)
		if len(c.AdditionalFields) == 0 {
			c.AdditionalFields = nil
		}
		return c, true
	}
	return c, false
}

// Mutable returns false if the record can never be changed again.
func (r *Record) Mutable() bool {
	if r.UpdateAuthority == nil {
		return false
	}
	if r.Legacy != nil && !r.Legacy.IsMutable {
		return false
	}
	return true
}

// Authorize returns nil if [identity] may change the record.
func (r *Record) Authorize(identity solana.PublicKey) error {
	if !r.Mutable() {
		return ErrImmutable
	}
	if !r.UpdateAuthority.Equals(identity) {
		return ErrNotAuthority
	}
	return nil
}
