// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ava-labs/tokenmeta/chain"
)

// Metadata is an asset together with its record.
type Metadata struct {
	Location        chain.Location    `json:"location"`
	Record          *chain.Record     `json:"record"`
	Decimals        uint8             `json:"decimals"`
	Supply          uint64            `json:"supply"`
	MintAuthority   *solana.PublicKey `json:"mintAuthority,omitempty"`
	FreezeAuthority *solana.PublicKey `json:"freezeAuthority,omitempty"`
	// Lamports and bytes of the account holding the record.
	Balance uint64 `json:"balance"`
	Size    uint64 `json:"size"`
}

// Read returns the record of [asset]. An absent asset or an asset without
// a record is not an error.
func (m *Manager) Read(ctx context.Context, asset solana.PublicKey) (*Metadata, bool, error) {
	s, ok, err := m.inspect(ctx, asset)
	if err != nil || !ok {
		return nil, false, err
	}
	return &Metadata{
		Location:        s.Location,
		Record:          s.Record,
		Decimals:        s.Mint.Decimals,
		Supply:          s.Mint.Supply,
		MintAuthority:   s.Mint.MintAuthority,
		FreezeAuthority: s.Mint.FreezeAuthority,
		Balance:         s.Balance,
		Size:            s.Size,
	}, true, nil
}

// Layout sizes the current record of [asset] at the current rent rate.
func (m *Manager) Layout(ctx context.Context, asset solana.PublicKey) (*chain.Layout, error) {
	s, err := m.load(ctx, asset)
	if err != nil {
		return nil, err
	}
	return chain.CalculateLayout(ctx, m.ledger, s.Location.Scheme, s.Mint.Decimals, s.Record, s.Location.InPlace())
}

// EstimateLayout sizes the record [r] describes before it is created. The
// record is assumed to live in the asset account.
func (m *Manager) EstimateLayout(ctx context.Context, scheme chain.Scheme, decimals uint8, r *chain.RecordSpec) (*chain.Layout, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: missing record", chain.ErrInvalidSpec)
	}
	var creator solana.PublicKey
	if r.UpdateAuthority != nil {
		creator = *r.UpdateAuthority
	}
	if err := r.Verify(scheme, creator); err != nil {
		return nil, err
	}
	return chain.CalculateLayout(ctx, m.ledger, scheme, decimals, r.Record(scheme, solana.PublicKey{}, creator), true)
}

// load is inspect with a missing record reported as chain.ErrNotFound.
func (m *Manager) load(ctx context.Context, asset solana.PublicKey) (*chain.Snapshot, error) {
	s, ok, err := m.inspect(ctx, asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: record of %s", chain.ErrNotFound, asset)
	}
	return s, nil
}

// inspect resolves the scheme of [asset] from the program owning it and
// reads its record.
func (m *Manager) inspect(ctx context.Context, asset solana.PublicKey) (*chain.Snapshot, bool, error) {
	acct, ok, err := m.ledger.GetAccount(ctx, asset)
	if err != nil || !ok {
		return nil, false, err
	}
	mint, err := chain.UnpackMint(acct.Data)
	if err != nil {
		return nil, false, err
	}

	switch {
	case acct.Owner.Equals(chain.Token2022ProgramID):
		return m.inspectCoLocated(ctx, acct, mint)
	case acct.Owner.Equals(chain.TokenProgramID):
		return m.inspectDerived(ctx, acct, mint)
	default:
		return nil, false, fmt.Errorf("%w: %s owned by %s", chain.ErrUnknownProgram, asset, acct.Owner)
	}
}

func (m *Manager) inspectCoLocated(ctx context.Context, acct *chain.Account, mint *chain.Mint) (*chain.Snapshot, bool, error) {
	p, ok, err := mint.MetadataPointer()
	if err != nil || !ok {
		return nil, false, err
	}
	loc, err := chain.Locate(acct.Address, chain.CoLocated, &p.Address)
	if err != nil {
		return nil, false, err
	}
	holder := acct
	exts := mint.Extensions
	if !loc.InPlace() {
		var ok bool
		holder, ok, err = m.ledger.GetAccount(ctx, loc.Address)
		if err != nil || !ok {
			return nil, false, err
		}
		if !holder.Owner.Equals(chain.Token2022ProgramID) {
			return nil, false, fmt.Errorf("%w: record account %s owned by %s", chain.ErrUnknownProgram, loc.Address, holder.Owner)
		}
		shared, err := chain.UnpackMint(holder.Data)
		if err != nil {
			return nil, false, err
		}
		exts = shared.Extensions
	}
	r, ok, err := chain.FindTokenMetadata(exts)
	if err != nil || !ok {
		return nil, false, err
	}
	return &chain.Snapshot{
		Location: loc,
		Mint:     mint,
		Record:   r,
		Balance:  holder.Lamports,
		Size:     uint64(len(holder.Data)),
	}, true, nil
}

func (m *Manager) inspectDerived(ctx context.Context, acct *chain.Account, mint *chain.Mint) (*chain.Snapshot, bool, error) {
	loc, err := m.locate(acct.Address, chain.Derived, nil)
	if err != nil {
		return nil, false, err
	}
	holder, ok, err := m.ledger.GetAccount(ctx, loc.Address)
	if err != nil || !ok {
		return nil, false, err
	}
	if !holder.Owner.Equals(chain.MetadataProgramID) {
		return nil, false, fmt.Errorf("%w: record account %s owned by %s", chain.ErrUnknownProgram, loc.Address, holder.Owner)
	}
	r, err := chain.DecodeRecord(chain.FormatLegacy, holder.Data)
	if err != nil {
		return nil, false, err
	}
	if !r.Mint.Equals(acct.Address) {
		return nil, false, fmt.Errorf("%w: record names mint %s", chain.ErrMalformedRecord, r.Mint)
	}
	return &chain.Snapshot{
		Location: loc,
		Mint:     mint,
		Record:   r,
		Balance:  holder.Lamports,
		Size:     uint64(len(holder.Data)),
	}, true, nil
}

// locate is chain.Locate checked against the ledger's own derivation.
func (m *Manager) locate(asset solana.PublicKey, scheme chain.Scheme, shared *solana.PublicKey) (chain.Location, error) {
	loc, err := chain.Locate(asset, scheme, shared)
	if err != nil {
		return chain.Location{}, err
	}
	if scheme != chain.Derived {
		return loc, nil
	}
	remote, err := m.ledger.DeriveAddress(chain.MetadataNamespace, chain.MetadataProgramID, asset)
	if err != nil {
		return chain.Location{}, err
	}
	if !remote.Equals(loc.Address) {
		return chain.Location{}, fmt.Errorf("%w: %s != %s", chain.ErrDerivationMismatch, loc.Address, remote)
	}
	return loc, nil
}
