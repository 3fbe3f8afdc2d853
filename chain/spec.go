// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// AssetSpec describes an asset to create.
type AssetSpec struct {
	Decimals uint8  `json:"decimals"`
	Scheme   Scheme `json:"scheme"`
	// Co-located only: point at an existing record account instead of
	// storing a record in the asset.
	SharedMetadata  *solana.PublicKey `json:"sharedMetadata,omitempty"`
	FreezeAuthority *solana.PublicKey `json:"freezeAuthority,omitempty"`
	// Issued to the creator's holder account in the same submission.
	InitialSupply decimal.Decimal `json:"initialSupply"`
}

// RecordSpec describes the record of an asset to create.
type RecordSpec struct {
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	URI              string  `json:"uri"`
	AdditionalFields []Field `json:"additionalFields,omitempty"`
	// Defaults to the creating identity.
	UpdateAuthority *solana.PublicKey `json:"updateAuthority,omitempty"`
	// Nobody may change the record after creation.
	Immutable bool `json:"immutable"`
	// Derived scheme only.
	SellerFeeBasisPoints uint16 `json:"sellerFeeBasisPoints"`
}

// Verify checks [a] on its own.
func (a *AssetSpec) Verify() error {
	if a.Decimals > MaxDecimals {
		return fmt.Errorf("%w: %d > %d", ErrDecimalsOutOfRange, a.Decimals, MaxDecimals)
	}
	switch a.Scheme {
	case CoLocated:
	case Derived:
		if a.SharedMetadata != nil {
			return fmt.Errorf("%w: shared metadata requires the co-located scheme", ErrInvalidSpec)
		}
	default:
		return ErrUnknownScheme
	}
	if a.InitialSupply.IsNegative() {
		return ErrAmountNotPositive
	}
	return nil
}

// Verify checks [r] for storage under [scheme] when created by [creator].
func (r *RecordSpec) Verify(scheme Scheme, creator solana.PublicKey) error {
	if r.Name == "" {
		return ErrNameEmpty
	}
	if r.URI == "" {
		return ErrURIEmpty
	}
	seen := make(map[string]struct{}, len(r.AdditionalFields))
	for _, f := range r.AdditionalFields {
		if err := VerifyKey(f.Key); err != nil {
			return err
		}
		if _, ok := seen[f.Key]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, f.Key)
		}
		seen[f.Key] = struct{}{}
	}
	switch scheme {
	case CoLocated:
		// Additional fields and freezing are written after initialization
		// and need the update authority's signature.
		if len(r.AdditionalFields) > 0 || r.Immutable {
			if r.UpdateAuthority != nil && !r.UpdateAuthority.Equals(creator) {
				return fmt.Errorf("%w: update authority must be the creator", ErrInvalidSpec)
			}
		}
		if r.SellerFeeBasisPoints != 0 {
			return fmt.Errorf("%w: seller fee requires the derived scheme", ErrInvalidSpec)
		}
	case Derived:
		if len(r.AdditionalFields) > 0 {
			return ErrUnsupportedField
		}
		for _, f := range []struct {
			s   string
			max int
		}{
			{r.Name, LegacyMaxNameLen},
			{r.Symbol, LegacyMaxSymbolLen},
			{r.URI, LegacyMaxURILen},
		} {
			if len(f.s) > f.max {
				return fmt.Errorf("%w: %q longer than %d bytes", ErrFieldTooLong, f.s, f.max)
			}
		}
	default:
		return ErrUnknownScheme
	}
	return nil
}

// Record returns the record [r] describes once stored for [mint].
func (r *RecordSpec) Record(scheme Scheme, mint solana.PublicKey, creator solana.PublicKey) *Record {
	ua := creator
	if r.UpdateAuthority != nil {
		ua = *r.UpdateAuthority
	}
	rec := &Record{
		UpdateAuthority: &ua,
		Mint:            mint,
		Name:            r.Name,
		Symbol:          r.Symbol,
		URI:             r.URI,
	}
	if len(r.AdditionalFields) > 0 {
		rec.AdditionalFields = make([]Field, len(r.AdditionalFields))
		copy(rec.AdditionalFields, r.AdditionalFields)
	}
	switch scheme {
	case CoLocated:
		if r.Immutable {
			rec.UpdateAuthority = nil
		}
	case Derived:
		rec.Legacy = &LegacyAttributes{
			SellerFeeBasisPoints: r.SellerFeeBasisPoints,
			IsMutable:            !r.Immutable,
		}
	}
	return rec
}

// VerifyKey checks a field key for use as an additional field.
func VerifyKey(key string) error {
	switch {
	case key == "":
		return ErrKeyEmpty
	case IsFixedField(key):
		return fmt.Errorf("%w: %q", ErrKeyReserved, key)
	default:
		return nil
	}
}
