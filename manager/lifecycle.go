// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	log "github.com/inconshreveable/log15"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/keystore"
)

// CreateResult describes a created asset. It is also returned with an
// outcome-unknown error so the caller can read the asset back.
type CreateResult struct {
	Asset        solana.PublicKey    `json:"asset"`
	Location     chain.Location      `json:"location"`
	Layout       *chain.Layout       `json:"layout"`
	Confirmation *chain.Confirmation `json:"confirmation,omitempty"`
}

// Create creates a new asset with a generated address and its record.
// [id] pays for every account and becomes the mint authority.
func (m *Manager) Create(ctx context.Context, id chain.KeyStore, a *chain.AssetSpec, r *chain.RecordSpec) (*CreateResult, error) {
	key, err := keystore.New()
	if err != nil {
		return nil, err
	}
	return m.CreateWithKey(ctx, id, key, a, r)
}

// CreateWithKey is Create at the address of [assetKey]. [r] is ignored
// when [a] points at a shared record account.
func (m *Manager) CreateWithKey(
	ctx context.Context,
	id chain.KeyStore,
	assetKey chain.KeyStore,
	a *chain.AssetSpec,
	r *chain.RecordSpec,
) (*CreateResult, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: missing asset", chain.ErrInvalidSpec)
	}
	if err := a.Verify(); err != nil {
		return nil, err
	}
	creator := id.Identity()
	asset := assetKey.Identity()
	shared := a.SharedMetadata != nil
	if !shared {
		if r == nil {
			return nil, fmt.Errorf("%w: missing record", chain.ErrInvalidSpec)
		}
		if err := r.Verify(a.Scheme, creator); err != nil {
			return nil, err
		}
	}
	var supply uint64
	if a.InitialSupply.IsPositive() {
		var err error
		if supply, err = chain.ToBaseUnits(a.InitialSupply, a.Decimals); err != nil {
			return nil, err
		}
	}
	loc, err := m.locate(asset, a.Scheme, a.SharedMetadata)
	if err != nil {
		return nil, err
	}

	// The asset and the record account are checked concurrently.
	var record *chain.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, exists, err := m.ledger.GetAccount(gctx, asset)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", chain.ErrAssetExists, asset)
		}
		return nil
	})
	if !loc.InPlace() {
		g.Go(func() error {
			var err error
			record, err = m.recordAt(gctx, loc)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !shared {
		record = r.Record(a.Scheme, asset, creator)
	}

	layout, err := chain.CalculateLayout(ctx, m.ledger, a.Scheme, a.Decimals, record, loc.InPlace())
	if err != nil {
		return nil, err
	}
	plan := &chain.CreatePlan{
		Payer:           creator,
		Location:        loc,
		Decimals:        a.Decimals,
		FreezeAuthority: a.FreezeAuthority,
		Layout:          layout,
		InitialSupply:   supply,
	}
	if loc.InPlace() || loc.Scheme == chain.Derived {
		plan.Record = record
	}
	if supply > 0 {
		if plan.Holder, err = m.ledger.DeriveAssociatedAccountAddress(creator, asset, loc.TokenProgram); err != nil {
			return nil, err
		}
	}
	ops, err := chain.BuildCreate(plan)
	if err != nil {
		return nil, err
	}
	log.Debug("building create",
		"asset", asset,
		"scheme", loc.Scheme,
		"record", loc.Address,
		"totalSize", layout.TotalSize,
		"assetBalance", layout.AssetBalance,
	)

	res := &CreateResult{Asset: asset, Location: loc, Layout: layout}
	conf, err := m.submit(ctx, "create", ops, []chain.KeyStore{id, assetKey})
	if err != nil {
		if errors.Is(err, chain.ErrUnknownOutcome) {
			return res, err
		}
		return nil, err
	}
	res.Confirmation = conf
	return res, nil
}

// recordAt reads the record held by a record account other than the
// asset.
func (m *Manager) recordAt(ctx context.Context, loc chain.Location) (*chain.Record, error) {
	acct, ok, err := m.ledger.GetAccount(ctx, loc.Address)
	if err != nil {
		return nil, err
	}
	switch {
	case loc.Scheme == chain.Derived:
		if ok {
			return nil, fmt.Errorf("%w: record account %s", chain.ErrAssetExists, loc.Address)
		}
		return nil, nil
	case !ok:
		return nil, fmt.Errorf("%w: %s does not exist", chain.ErrSharedMetadata, loc.Address)
	case !acct.Owner.Equals(chain.Token2022ProgramID):
		return nil, fmt.Errorf("%w: %s owned by %s", chain.ErrSharedMetadata, loc.Address, acct.Owner)
	}
	mint, err := chain.UnpackMint(acct.Data)
	if err != nil {
		return nil, err
	}
	r, ok, err := chain.FindTokenMetadata(mint.Extensions)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s holds no record", chain.ErrSharedMetadata, loc.Address)
	}
	return r, nil
}

// UpdateField sets [key] to [value] on the record of [asset]. Fixed fields
// and additional fields share the same path; the record account is topped
// up whenever the new layout needs a larger balance.
func (m *Manager) UpdateField(ctx context.Context, id chain.KeyStore, asset solana.PublicKey, key, value string) (*Confirmation, error) {
	switch key {
	case chain.FieldName:
		if value == "" {
			return nil, chain.ErrNameEmpty
		}
	case chain.FieldURI:
		if value == "" {
			return nil, chain.ErrURIEmpty
		}
	case chain.FieldSymbol:
	default:
		if err := chain.VerifyKey(key); err != nil {
			return nil, err
		}
	}
	return m.retry(func() (*Confirmation, error) {
		return m.updateField(ctx, id, asset, key, value)
	})
}

func (m *Manager) updateField(ctx context.Context, id chain.KeyStore, asset solana.PublicKey, key, value string) (*Confirmation, error) {
	s, err := m.load(ctx, asset)
	if err != nil {
		return nil, err
	}
	if err := s.Record.Authorize(id.Identity()); err != nil {
		return nil, err
	}
	next := s.Record.WithField(key, value)
	target, err := chain.CalculateLayout(ctx, m.ledger, s.Location.Scheme, s.Mint.Decimals, next, s.Location.InPlace())
	if err != nil {
		return nil, err
	}
	ops, err := chain.BuildSetField(s, id.Identity(), key, value, target)
	if err != nil {
		return nil, err
	}
	res := &Confirmation{NewField: !chain.IsExistingField(s.Record, key)}
	if s.Location.Scheme == chain.CoLocated {
		res.TopUp = target.TopUp(s.Balance)
	}
	log.Debug("building set-field",
		"asset", asset,
		"key", key,
		"newField", res.NewField,
		"size", s.Size,
		"targetSize", target.TotalSize,
		"topUp", res.TopUp,
	)
	conf, err := m.submit(ctx, "updateField", ops, []chain.KeyStore{id})
	if err != nil {
		return nil, err
	}
	res.Confirmation = *conf
	return res, nil
}

// RemoveField drops the additional field [key] from the record of [asset].
// Removing an absent key succeeds and leaves the record unchanged.
func (m *Manager) RemoveField(ctx context.Context, id chain.KeyStore, asset solana.PublicKey, key string) (*Confirmation, error) {
	if key == "" {
		return nil, chain.ErrKeyEmpty
	}
	if chain.IsFixedField(key) {
		return nil, fmt.Errorf("%w: %q", chain.ErrFixedField, key)
	}
	return m.retry(func() (*Confirmation, error) {
		return m.removeField(ctx, id, asset, key)
	})
}

func (m *Manager) removeField(ctx context.Context, id chain.KeyStore, asset solana.PublicKey, key string) (*Confirmation, error) {
	s, err := m.load(ctx, asset)
	if err != nil {
		return nil, err
	}
	if err := s.Record.Authorize(id.Identity()); err != nil {
		return nil, err
	}
	ops, err := chain.BuildRemoveField(s, id.Identity(), key)
	if err != nil {
		return nil, err
	}
	res := &Confirmation{Removed: chain.IsExistingField(s.Record, key)}
	if len(ops) == 0 {
		log.Debug("nothing to remove", "asset", asset, "key", key)
		return res, nil
	}
	conf, err := m.submit(ctx, "removeField", ops, []chain.KeyStore{id})
	if err != nil {
		return nil, err
	}
	res.Confirmation = *conf
	return res, nil
}

// IssueSupply mints [amount] of [asset] into the holder account of
// [owner], creating that account when it does not exist. [id] must be the
// mint authority.
func (m *Manager) IssueSupply(
	ctx context.Context,
	id chain.KeyStore,
	asset solana.PublicKey,
	owner solana.PublicKey,
	amount decimal.Decimal,
) (*Confirmation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", chain.ErrAmountNotPositive, amount)
	}
	acct, ok, err := m.ledger.GetAccount(ctx, asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: asset %s", chain.ErrNotFound, asset)
	}
	tokenProgram := acct.Owner
	if !tokenProgram.Equals(chain.TokenProgramID) && !tokenProgram.Equals(chain.Token2022ProgramID) {
		return nil, fmt.Errorf("%w: %s owned by %s", chain.ErrUnknownProgram, asset, tokenProgram)
	}
	mint, err := chain.UnpackMint(acct.Data)
	if err != nil {
		return nil, err
	}
	if !mint.IsInitialized {
		return nil, fmt.Errorf("%w: %s is not initialized", chain.ErrInvalidMint, asset)
	}
	switch {
	case mint.MintAuthority == nil:
		return nil, chain.ErrFixedSupply
	case !mint.MintAuthority.Equals(id.Identity()):
		return nil, chain.ErrNotMintAuthority
	}
	units, err := chain.ToBaseUnits(amount, mint.Decimals)
	if err != nil {
		return nil, err
	}
	if _, err := chain.AddSupply(mint.Supply, units); err != nil {
		return nil, err
	}

	holder, err := m.ledger.DeriveAssociatedAccountAddress(owner, asset, tokenProgram)
	if err != nil {
		return nil, err
	}
	hacct, exists, err := m.ledger.GetAccount(ctx, holder)
	if err != nil {
		return nil, err
	}
	if exists {
		ta, err := chain.UnpackTokenAccount(hacct.Data)
		if err != nil {
			return nil, err
		}
		if !hacct.Owner.Equals(tokenProgram) || !ta.Mint.Equals(asset) {
			return nil, fmt.Errorf("%w: holder %s does not hold %s", chain.ErrMalformedRecord, holder, asset)
		}
		if _, err := chain.AddSupply(ta.Amount, units); err != nil {
			return nil, err
		}
	}

	ops := chain.BuildIssueSupply(&chain.SupplyPlan{
		Payer:        id.Identity(),
		Authority:    id.Identity(),
		Asset:        asset,
		TokenProgram: tokenProgram,
		Owner:        owner,
		Holder:       holder,
		HolderExists: exists,
		Amount:       units,
	})
	log.Debug("building issue-supply",
		"asset", asset,
		"holder", holder,
		"units", units,
		"createHolder", !exists,
	)
	conf, err := m.submit(ctx, "issueSupply", ops, []chain.KeyStore{id})
	if err != nil {
		return nil, err
	}
	return &Confirmation{
		Confirmation:  *conf,
		Holder:        &holder,
		HolderCreated: !exists,
	}, nil
}
