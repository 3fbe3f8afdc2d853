// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Snapshot is the state of an asset read before building operations.
type Snapshot struct {
	Location Location
	Mint     *Mint
	Record   *Record
	// Lamports and allocated bytes of the record account.
	Balance uint64
	Size    uint64
}

// CreatePlan is everything BuildCreate needs.
type CreatePlan struct {
	// Payer funds every account and is the mint authority.
	Payer           solana.PublicKey
	Location        Location
	Decimals        uint8
	FreezeAuthority *solana.PublicKey
	// Nil when the record lives in a shared account.
	Record *Record
	Layout *Layout
	// Base units issued to [Holder] in the same submission.
	InitialSupply uint64
	Holder        solana.PublicKey
}

// SupplyPlan is everything BuildIssueSupply needs.
type SupplyPlan struct {
	Payer        solana.PublicKey
	Authority    solana.PublicKey
	Asset        solana.PublicKey
	TokenProgram solana.PublicKey
	Owner        solana.PublicKey
	Holder       solana.PublicKey
	HolderExists bool
	Amount       uint64
}

// BuildCreate returns the operations that create an asset and its record.
func BuildCreate(p *CreatePlan) ([]Operation, error) {
	loc := p.Location
	asset := loc.Asset
	payer := p.Payer

	var ops []Operation
	switch loc.Scheme {
	case CoLocated:
		// The asset is allocated at its base size and funded for the
		// full record; the token program reallocates as fields are
		// written.
		ops = append(ops,
			&CreateAccount{
				Payer:    payer,
				Account:  asset,
				Space:    p.Layout.BaseSize,
				Lamports: p.Layout.AssetBalance,
				Owner:    loc.TokenProgram,
			},
			&InitializeMetadataPointer{
				Mint:      asset,
				Authority: &payer,
				Metadata:  loc.Address,
			},
			&InitializeMint{
				Program:         loc.TokenProgram,
				Mint:            asset,
				Decimals:        p.Decimals,
				MintAuthority:   payer,
				FreezeAuthority: p.FreezeAuthority,
			},
		)
		if loc.InPlace() {
			if p.Record == nil {
				return nil, fmt.Errorf("%w: missing record", ErrInvalidSpec)
			}
			ops = append(ops, initializeRecord(p)...)
		}
	case Derived:
		if p.Record == nil {
			return nil, fmt.Errorf("%w: missing record", ErrInvalidSpec)
		}
		if len(p.Record.AdditionalFields) > 0 {
			return nil, ErrUnsupportedField
		}
		ua := payer
		if p.Record.UpdateAuthority != nil {
			ua = *p.Record.UpdateAuthority
		}
		mutable := p.Record.Legacy == nil || p.Record.Legacy.IsMutable
		ops = append(ops,
			&CreateAccount{
				Payer:    payer,
				Account:  asset,
				Space:    p.Layout.BaseSize,
				Lamports: p.Layout.AssetBalance,
				Owner:    loc.TokenProgram,
			},
			&InitializeMint{
				Program:         loc.TokenProgram,
				Mint:            asset,
				Decimals:        p.Decimals,
				MintAuthority:   payer,
				FreezeAuthority: p.FreezeAuthority,
			},
			&CreateMetadataV3{
				Metadata:        loc.Address,
				Mint:            asset,
				MintAuthority:   payer,
				Payer:           payer,
				UpdateAuthority: ua,
				Data:            LegacyDataFrom(p.Record),
				IsMutable:       mutable,
			},
		)
	default:
		return nil, ErrUnknownScheme
	}

	if p.InitialSupply > 0 {
		ops = append(ops, BuildIssueSupply(&SupplyPlan{
			Payer:        payer,
			Authority:    payer,
			Asset:        asset,
			TokenProgram: loc.TokenProgram,
			Owner:        payer,
			Holder:       p.Holder,
			Amount:       p.InitialSupply,
		})...)
	}
	return ops, nil
}

func initializeRecord(p *CreatePlan) []Operation {
	loc := p.Location
	r := p.Record
	// Immutable records are frozen by the last operation, so the creator
	// holds the authority until then.
	ua := p.Payer
	if r.UpdateAuthority != nil {
		ua = *r.UpdateAuthority
	}
	ops := []Operation{
		&InitializeMetadata{
			Program:         loc.Program,
			Metadata:        loc.Address,
			UpdateAuthority: ua,
			Mint:            loc.Asset,
			MintAuthority:   p.Payer,
			Name:            r.Name,
			Symbol:          r.Symbol,
			URI:             r.URI,
		},
	}
	for _, f := range r.AdditionalFields {
		ops = append(ops, &UpdateField{
			Program:         loc.Program,
			Metadata:        loc.Address,
			UpdateAuthority: ua,
			Key:             f.Key,
			Value:           f.Value,
		})
	}
	if r.UpdateAuthority == nil {
		ops = append(ops, &UpdateAuthority{
			Program:         loc.Program,
			Metadata:        loc.Address,
			UpdateAuthority: ua,
		})
	}
	return ops
}

// BuildSetField returns the operations that set [key] to [value] on the
// record in [s] and keep its account funded for [target].
func BuildSetField(s *Snapshot, authority solana.PublicKey, key, value string, target *Layout) ([]Operation, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	loc := s.Location
	switch loc.Scheme {
	case CoLocated:
		var ops []Operation
		if topUp := target.TopUp(s.Balance); topUp > 0 {
			ops = append(ops, &Transfer{
				From:     authority,
				To:       loc.Address,
				Lamports: topUp,
			})
		}
		return append(ops, &UpdateField{
			Program:         loc.Program,
			Metadata:        loc.Address,
			UpdateAuthority: authority,
			Key:             key,
			Value:           value,
		}), nil
	case Derived:
		if !IsFixedField(key) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedField, key)
		}
		next := s.Record.WithField(key, value)
		if _, err := EncodeRecord(FormatLegacy, next); err != nil {
			return nil, err
		}
		return []Operation{
			&UpdateMetadataV2{
				Metadata:        loc.Address,
				UpdateAuthority: authority,
				Data:            LegacyDataFrom(next),
			},
		}, nil
	default:
		return nil, ErrUnknownScheme
	}
}

// BuildRemoveField returns the operations that remove [key] from the
// record in [s]. Removing an absent key is not an error.
func BuildRemoveField(s *Snapshot, authority solana.PublicKey, key string) ([]Operation, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	if IsFixedField(key) {
		return nil, fmt.Errorf("%w: %q", ErrFixedField, key)
	}
	loc := s.Location
	switch loc.Scheme {
	case CoLocated:
		return []Operation{
			&RemoveKey{
				Program:         loc.Program,
				Metadata:        loc.Address,
				UpdateAuthority: authority,
				Key:             key,
				Idempotent:      true,
			},
		}, nil
	case Derived:
		// Legacy records have no additional fields to remove.
		return nil, nil
	default:
		return nil, ErrUnknownScheme
	}
}

// BuildIssueSupply returns the operations that issue [p.Amount] to the
// holder account of [p.Owner], creating it first when missing.
func BuildIssueSupply(p *SupplyPlan) []Operation {
	var ops []Operation
	if !p.HolderExists {
		ops = append(ops, &CreateAssociatedAccount{
			Payer:        p.Payer,
			Account:      p.Holder,
			Owner:        p.Owner,
			Mint:         p.Asset,
			TokenProgram: p.TokenProgram,
		})
	}
	return append(ops, &MintTo{
		Program:     p.TokenProgram,
		Mint:        p.Asset,
		Destination: p.Holder,
		Authority:   p.Authority,
		Amount:      p.Amount,
	})
}
