// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memledger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/keystore"
)

const testAirdrop = 10_000_000_000

type fixture struct {
	ledger *Ledger
	payer  *keystore.Key
	asset  *keystore.Key
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	payer, err := keystore.New()
	require.NoError(t, err)
	asset, err := keystore.New()
	require.NoError(t, err)
	l := New(opts...)
	require.NoError(t, l.Airdrop(payer.Identity(), testAirdrop))
	return &fixture{ledger: l, payer: payer, asset: asset}
}

func (f *fixture) createOps(t *testing.T, scheme chain.Scheme, r *chain.Record, supply uint64) []chain.Operation {
	t.Helper()
	loc, err := chain.Locate(f.asset.Identity(), scheme, nil)
	require.NoError(t, err)
	r.Mint = loc.Asset
	layout, err := chain.CalculateLayout(context.Background(), f.ledger, scheme, 2, r, loc.InPlace())
	require.NoError(t, err)
	holder, err := chain.DeriveAssociatedAddress(f.payer.Identity(), loc.Asset, loc.TokenProgram)
	require.NoError(t, err)
	ops, err := chain.BuildCreate(&chain.CreatePlan{
		Payer:         f.payer.Identity(),
		Location:      loc,
		Decimals:      2,
		Record:        r,
		Layout:        layout,
		InitialSupply: supply,
		Holder:        holder,
	})
	require.NoError(t, err)
	return ops
}

func (f *fixture) signers() []chain.KeyStore {
	return []chain.KeyStore{f.payer, f.asset}
}

func summer(ua solana.PublicKey) *chain.Record {
	return &chain.Record{
		UpdateAuthority: &ua,
		Name:            "Solana Summer",
		Symbol:          "SUMMER",
		URI:             "https://example.com/summer.json",
		AdditionalFields: []chain.Field{
			{Key: "season", Value: "2024"},
		},
	}
}

func TestSubmitCreateColocated(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := newFixture(t)
	ctx := context.Background()
	r := summer(f.payer.Identity())
	ops := f.createOps(t, chain.CoLocated, r, 1_000)

	conf, err := f.ledger.SubmitAtomic(ctx, ops, f.signers())
	require.NoError(err)
	require.Equal(uint64(1), conf.Slot)
	require.Equal(len(ops), conf.Operations)
	require.NotEmpty(conf.ID)

	slot, kinds, ok, err := f.ledger.Confirmed(conf.ID)
	require.NoError(err)
	require.True(ok)
	require.Equal(conf.Slot, slot)
	require.Equal(chain.Kinds(ops), kinds)

	acct, ok, err := f.ledger.GetAccount(ctx, f.asset.Identity())
	require.NoError(err)
	require.True(ok)
	require.Equal(chain.Token2022ProgramID, acct.Owner)
	m, err := chain.UnpackMint(acct.Data)
	require.NoError(err)
	require.True(m.IsInitialized)
	require.Equal(uint8(2), m.Decimals)
	require.Equal(uint64(1_000), m.Supply)

	got, ok, err := chain.FindTokenMetadata(m.Extensions)
	require.NoError(err)
	require.True(ok)
	require.Equal(r, got)

	// the asset is allocated exactly for the record and stays exempt
	layout, err := chain.CalculateLayout(ctx, f.ledger, chain.CoLocated, 2, r, true)
	require.NoError(err)
	require.Equal(layout.TotalSize, uint64(len(acct.Data)))
	require.Equal(layout.MinimumBalance, acct.Lamports)

	holder, err := chain.DeriveAssociatedAddress(f.payer.Identity(), acct.Address, chain.Token2022ProgramID)
	require.NoError(err)
	hacct, ok, err := f.ledger.GetAccount(ctx, holder)
	require.NoError(err)
	require.True(ok)
	ta, err := chain.UnpackTokenAccount(hacct.Data)
	require.NoError(err)
	require.Equal(uint64(1_000), ta.Amount)
	require.Equal(f.payer.Identity(), ta.Owner)
}

func TestSubmitCreateDerived(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := newFixture(t)
	ctx := context.Background()
	ua := f.payer.Identity()
	r := &chain.Record{
		UpdateAuthority: &ua,
		Name:            "Legacy",
		Symbol:          "LGC",
		URI:             "https://example.com/legacy.json",
		Legacy:          &chain.LegacyAttributes{SellerFeeBasisPoints: 250, IsMutable: true},
	}
	ops := f.createOps(t, chain.Derived, r, 0)
	_, err := f.ledger.SubmitAtomic(ctx, ops, f.signers())
	require.NoError(err)

	addr, err := chain.DeriveAddress(chain.MetadataNamespace, chain.MetadataProgramID, f.asset.Identity())
	require.NoError(err)
	acct, ok, err := f.ledger.GetAccount(ctx, addr)
	require.NoError(err)
	require.True(ok)
	require.Equal(chain.MetadataProgramID, acct.Owner)
	require.Len(acct.Data, chain.LegacyAccountSize)
	got, err := chain.DecodeRecord(chain.FormatLegacy, acct.Data)
	require.NoError(err)
	require.Equal("Legacy", got.Name)
	require.Equal(uint16(250), got.Legacy.SellerFeeBasisPoints)
	require.True(got.Legacy.IsMutable)

	update := &chain.UpdateMetadataV2{
		Metadata:        addr,
		UpdateAuthority: ua,
		Data:            chain.LegacyDataFrom(got.WithField(chain.FieldURI, "https://example.com/v2.json")),
	}
	_, err = f.ledger.SubmitAtomic(ctx, []chain.Operation{update}, []chain.KeyStore{f.payer})
	require.NoError(err)
	acct, _, err = f.ledger.GetAccount(ctx, addr)
	require.NoError(err)
	require.Len(acct.Data, chain.LegacyAccountSize)
	got, err = chain.DecodeRecord(chain.FormatLegacy, acct.Data)
	require.NoError(err)
	require.Equal("https://example.com/v2.json", got.URI)
	require.Equal("Legacy", got.Name)
}

func TestSubmitRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for k := 0; k < 6; k++ {
		f := newFixture(t)
		ops := f.createOps(t, chain.CoLocated, summer(f.payer.Identity()), 5)
		reject := k
		f.ledger.SetFault(func(index int, op chain.Operation) error {
			if index == reject {
				return errors.New("injected")
			}
			return nil
		})
		_, err := f.ledger.SubmitAtomic(ctx, ops, f.signers())
		var serr *chain.SubmissionError
		if !errors.As(err, &serr) {
			t.Fatalf("#%d: error expected %T, got %v", k, serr, err)
		}
		if serr.Index != k {
			t.Fatalf("#%d: index expected %d, got %d", k, k, serr.Index)
		}
		if serr.Op != ops[k].Kind() {
			t.Fatalf("#%d: operation expected %s, got %s", k, ops[k].Kind(), serr.Op)
		}
		if _, ok, _ := f.ledger.GetAccount(ctx, f.asset.Identity()); ok {
			t.Fatalf("#%d: asset account should not exist", k)
		}
		payer, _, err := f.ledger.GetAccount(ctx, f.payer.Identity())
		if err != nil {
			t.Fatal(err)
		}
		if payer.Lamports != testAirdrop {
			t.Fatalf("#%d: payer balance expected %d, got %d", k, testAirdrop, payer.Lamports)
		}
		if f.ledger.Slot() != 0 {
			t.Fatalf("#%d: slot expected 0, got %d", k, f.ledger.Slot())
		}
	}
}

func TestSubmitConflictFault(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithFault(func(index int, op chain.Operation) error {
		return &chain.SubmissionError{Index: -1, Reason: "account in use", Conflict: true}
	}))
	ops := f.createOps(t, chain.CoLocated, summer(f.payer.Identity()), 0)
	_, err := f.ledger.SubmitAtomic(context.Background(), ops, f.signers())
	if !errors.Is(err, chain.ErrConflict) || !chain.IsRetryable(err) {
		t.Fatalf("error expected %v, got %v", chain.ErrConflict, err)
	}
	var serr *chain.SubmissionError
	if !errors.As(err, &serr) || serr.Index != 0 || serr.Op != ops[0].Kind() {
		t.Fatalf("unexpected rejection %+v", serr)
	}
}

func TestSubmitMissingSigner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ops := f.createOps(t, chain.CoLocated, summer(f.payer.Identity()), 0)
	_, err := f.ledger.SubmitAtomic(context.Background(), ops, []chain.KeyStore{f.payer})
	var serr *chain.SubmissionError
	if !errors.As(err, &serr) {
		t.Fatalf("error expected %T, got %v", serr, err)
	}
	if serr.Index != 0 {
		t.Fatalf("index expected 0, got %d", serr.Index)
	}
}

func TestSubmitInvalid(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.ledger.SubmitAtomic(ctx, nil, f.signers()); !errors.Is(err, chain.ErrNoOperations) {
		t.Fatalf("error expected %v, got %v", chain.ErrNoOperations, err)
	}
	ops := f.createOps(t, chain.CoLocated, summer(f.payer.Identity()), 0)
	if _, err := f.ledger.SubmitAtomic(ctx, ops, nil); !errors.Is(err, chain.ErrNoSigners) {
		t.Fatalf("error expected %v, got %v", chain.ErrNoSigners, err)
	}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	// nothing was applied, so the outcome is definite
	_, err := f.ledger.SubmitAtomic(cctx, ops, f.signers())
	if !errors.Is(err, context.Canceled) || errors.Is(err, chain.ErrUnknownOutcome) {
		t.Fatalf("error expected %v, got %v", context.Canceled, err)
	}
	if slot := f.ledger.Slot(); slot != 0 {
		t.Fatalf("slot expected 0, got %d", slot)
	}
}

func TestSubmitNotRentExempt(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	ops := f.createOps(t, chain.CoLocated, summer(f.payer.Identity()), 0)
	create := ops[0].(*chain.CreateAccount)
	create.Lamports--

	_, err := f.ledger.SubmitAtomic(ctx, ops, f.signers())
	var serr *chain.SubmissionError
	if !errors.As(err, &serr) {
		t.Fatalf("error expected %T, got %v", serr, err)
	}
	// the last write to the asset is the final field update
	if serr.Index != len(ops)-1 {
		t.Fatalf("index expected %d, got %d", len(ops)-1, serr.Index)
	}
	if _, ok, _ := f.ledger.GetAccount(ctx, f.asset.Identity()); ok {
		t.Fatal("asset account should not exist")
	}
}

func TestSubmitNotRentExemptReportsFirst(t *testing.T) {
	t.Parallel()

	// map iteration order varies between runs, so repeat
	for k := 0; k < 20; k++ {
		f := newFixture(t)
		second, err := keystore.New()
		require.NoError(t, err)
		ops := []chain.Operation{
			&chain.CreateAccount{
				Payer:    f.payer.Identity(),
				Account:  f.asset.Identity(),
				Space:    100,
				Lamports: 1,
				Owner:    chain.SystemProgramID,
			},
			&chain.CreateAccount{
				Payer:    f.payer.Identity(),
				Account:  second.Identity(),
				Space:    100,
				Lamports: 1,
				Owner:    chain.SystemProgramID,
			},
		}
		_, err = f.ledger.SubmitAtomic(context.Background(), ops, []chain.KeyStore{f.payer, f.asset, second})
		var serr *chain.SubmissionError
		if !errors.As(err, &serr) {
			t.Fatalf("#%d: error expected %T, got %v", k, serr, err)
		}
		if serr.Index != 0 {
			t.Fatalf("#%d: index expected 0, got %d", k, serr.Index)
		}
		if !strings.Contains(serr.Reason, f.asset.Identity().String()) {
			t.Fatalf("#%d: reason expected %s, got %q", k, f.asset.Identity(), serr.Reason)
		}
	}
}

func TestSubmitInsufficientFunds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	poor, err := keystore.New()
	require.NoError(t, err)
	require.NoError(t, f.ledger.Airdrop(poor.Identity(), 1))
	_, err = f.ledger.SubmitAtomic(context.Background(), []chain.Operation{
		&chain.Transfer{From: poor.Identity(), To: f.payer.Identity(), Lamports: 2},
	}, []chain.KeyStore{poor})
	if !errors.Is(err, chain.ErrSubmissionFailed) {
		t.Fatalf("error expected %v, got %v", chain.ErrSubmissionFailed, err)
	}
}

func TestRemoveKeyIdempotent(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.SubmitAtomic(ctx, f.createOps(t, chain.CoLocated, summer(f.payer.Identity()), 0), f.signers())
	require.NoError(err)
	before, _, err := f.ledger.GetAccount(ctx, f.asset.Identity())
	require.NoError(err)

	remove := &chain.RemoveKey{
		Program:         chain.Token2022ProgramID,
		Metadata:        f.asset.Identity(),
		UpdateAuthority: f.payer.Identity(),
		Key:             "missing",
		Idempotent:      true,
	}
	_, err = f.ledger.SubmitAtomic(ctx, []chain.Operation{remove}, []chain.KeyStore{f.payer})
	require.NoError(err)
	after, _, err := f.ledger.GetAccount(ctx, f.asset.Identity())
	require.NoError(err)
	require.True(bytes.Equal(before.Data, after.Data))

	remove.Idempotent = false
	_, err = f.ledger.SubmitAtomic(ctx, []chain.Operation{remove}, []chain.KeyStore{f.payer})
	require.ErrorIs(err, chain.ErrSubmissionFailed)

	remove.Key = "season"
	_, err = f.ledger.SubmitAtomic(ctx, []chain.Operation{remove}, []chain.KeyStore{f.payer})
	require.NoError(err)
	after, _, err = f.ledger.GetAccount(ctx, f.asset.Identity())
	require.NoError(err)
	require.Less(len(after.Data), len(before.Data))
}

func TestUpdateRecordTooLarge(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.SubmitAtomic(ctx, f.createOps(t, chain.CoLocated, summer(f.payer.Identity()), 0), f.signers())
	require.NoError(err)
	before, _, err := f.ledger.GetAccount(ctx, f.asset.Identity())
	require.NoError(err)

	// fits one instruction but not the u16 length of the record entry
	_, err = f.ledger.SubmitAtomic(ctx, []chain.Operation{
		&chain.UpdateField{
			Program:         chain.Token2022ProgramID,
			Metadata:        f.asset.Identity(),
			UpdateAuthority: f.payer.Identity(),
			Key:             "blob",
			Value:           strings.Repeat("x", chain.MaxExtensionSize-100),
		},
	}, []chain.KeyStore{f.payer})
	require.ErrorIs(err, chain.ErrSubmissionFailed)

	after, _, err := f.ledger.GetAccount(ctx, f.asset.Identity())
	require.NoError(err)
	require.True(bytes.Equal(before.Data, after.Data))
	m, err := chain.UnpackMint(after.Data)
	require.NoError(err)
	_, ok, err := chain.FindTokenMetadata(m.Extensions)
	require.NoError(err)
	require.True(ok)
}

func TestUpdateNotAuthority(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.ledger.SubmitAtomic(ctx, f.createOps(t, chain.CoLocated, summer(f.payer.Identity()), 0), f.signers()); err != nil {
		t.Fatal(err)
	}
	other, err := keystore.New()
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.ledger.SubmitAtomic(ctx, []chain.Operation{
		&chain.UpdateField{
			Program:         chain.Token2022ProgramID,
			Metadata:        f.asset.Identity(),
			UpdateAuthority: other.Identity(),
			Key:             "season",
			Value:           "2025",
		},
	}, []chain.KeyStore{other})
	var serr *chain.SubmissionError
	if !errors.As(err, &serr) || serr.Index != 0 {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestConfirmDelay(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithConfirmDelay(time.Minute))
	ops := f.createOps(t, chain.CoLocated, summer(f.payer.Identity()), 0)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := f.ledger.SubmitAtomic(ctx, ops, f.signers())
	var uerr *chain.UnknownOutcomeError
	if !errors.As(err, &uerr) {
		t.Fatalf("error expected %T, got %v", uerr, err)
	}
	if uerr.ID == "" {
		t.Fatal("missing submission id")
	}
	// the submission was applied even though confirmation was not observed
	if _, ok, _ := f.ledger.GetAccount(context.Background(), f.asset.Identity()); !ok {
		t.Fatal("asset account should exist")
	}
}

func TestRentRate(t *testing.T) {
	t.Parallel()

	l := New(WithRentRate(10))
	ctx := context.Background()
	b, err := l.GetMinimumBalance(ctx, 72)
	if err != nil {
		t.Fatal(err)
	}
	if b != 2_000 {
		t.Fatalf("balance expected %d, got %d", 2_000, b)
	}
	l.SetRentRate(20)
	if b, _ = l.GetMinimumBalance(ctx, 72); b != 4_000 {
		t.Fatalf("balance expected %d, got %d", 4_000, b)
	}
}
