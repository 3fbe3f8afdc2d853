// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"
)

// Layout is the sizing of an asset's record under a scheme.
type Layout struct {
	Scheme Scheme `json:"scheme"`
	// Asset account bytes the scheme reserves before any record.
	BaseSize uint64 `json:"baseSize"`
	// Exact serialized record length.
	PayloadSize uint64 `json:"payloadSize"`
	// Bytes the account holding the record must have.
	TotalSize uint64 `json:"totalSize"`
	// Balance that keeps the record account exempt from rent.
	MinimumBalance uint64 `json:"minimumBalance"`
	// Balance that keeps the asset account exempt from rent at creation.
	AssetBalance uint64 `json:"assetBalance"`
}

// Rent reports the minimum balance of an account of a given size.
type Rent interface {
	GetMinimumBalance(ctx context.Context, size uint64) (uint64, error)
}

// CalculateLayout sizes [r] under [scheme]. [inPlace] is false when a
// co-located record lives in a shared account instead of the asset, in
// which case the asset is funded for its base size only. The balances are
// fetched from [rent] on every call.
func CalculateLayout(
	ctx context.Context,
	rent Rent,
	scheme Scheme,
	decimals uint8,
	r *Record,
	inPlace bool,
) (*Layout, error) {
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %d > %d", ErrDecimalsOutOfRange, decimals, MaxDecimals)
	}
	l := &Layout{Scheme: scheme}
	switch scheme {
	case CoLocated:
		// A shared record account is itself an extensible mint holding
		// the record in place, so both cases size the same account shape.
		l.BaseSize = MintLen(MetadataPointerSize)
		l.PayloadSize = PayloadSize(r)
		if l.PayloadSize > MaxExtensionSize {
			return nil, fmt.Errorf("%w: record of %d bytes exceeds %d", ErrFieldTooLong, l.PayloadSize, MaxExtensionSize)
		}
		l.TotalSize = l.BaseSize + TLVHeaderSize + l.PayloadSize
	case Derived:
		if len(r.AdditionalFields) > 0 {
			return nil, ErrUnsupportedField
		}
		b, err := EncodeRecord(FormatLegacy, r)
		if err != nil {
			return nil, err
		}
		l.BaseSize = MintSize
		l.PayloadSize = uint64(len(b))
		l.TotalSize = LegacyAccountSize
		inPlace = false
	default:
		return nil, ErrUnknownScheme
	}

	var err error
	if l.MinimumBalance, err = rent.GetMinimumBalance(ctx, l.TotalSize); err != nil {
		return nil, err
	}
	if inPlace {
		l.AssetBalance = l.MinimumBalance
		return l, nil
	}
	if l.AssetBalance, err = rent.GetMinimumBalance(ctx, l.BaseSize); err != nil {
		return nil, err
	}
	return l, nil
}

// TopUp returns the lamports needed to bring [balance] up to the layout's
// minimum balance.
func (l *Layout) TopUp(balance uint64) uint64 {
	if l.MinimumBalance <= balance {
		return 0
	}
	return l.MinimumBalance - balance
}
