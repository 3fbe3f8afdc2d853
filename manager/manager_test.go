// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/chain/mocks"
	"github.com/ava-labs/tokenmeta/keystore"
	"github.com/ava-labs/tokenmeta/memledger"
)

const (
	testAirdrop         = 100_000_000_000
	testLamportsPerByte = memledger.DefaultLamportsPerByte
)

func newTestManager(t *testing.T, lopts []memledger.Option, opts ...Option) (*Manager, *memledger.Ledger, *keystore.Key) {
	t.Helper()
	l := memledger.New(lopts...)
	id, err := keystore.New()
	require.NoError(t, err)
	require.NoError(t, l.Airdrop(id.Identity(), testAirdrop))
	m, err := New(l, opts...)
	require.NoError(t, err)
	return m, l, id
}

func summerSpec() (*chain.AssetSpec, *chain.RecordSpec) {
	return &chain.AssetSpec{Decimals: 0, Scheme: chain.CoLocated},
		&chain.RecordSpec{
			Name:   "Solana Summer",
			Symbol: "",
			URI:    "https://ipfs.io/ipfs/QmSummer",
		}
}

func createSummer(t *testing.T, m *Manager, id chain.KeyStore) solana.PublicKey {
	t.Helper()
	a, r := summerSpec()
	res, err := m.Create(context.Background(), id, a, r)
	require.NoError(t, err)
	return res.Asset
}

// captureOps records the operations of every submission.
func captureOps(calls *[][]chain.Operation) memledger.FaultFunc {
	return func(index int, op chain.Operation) error {
		if index == 0 {
			*calls = append(*calls, nil)
		}
		last := len(*calls) - 1
		(*calls)[last] = append((*calls)[last], op)
		return nil
	}
}

func TestCreateRead(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	m, _, id := newTestManager(t, nil)
	ctx := context.Background()
	a, r := summerSpec()
	res, err := m.Create(ctx, id, a, r)
	require.NoError(err)
	require.NotNil(res.Confirmation)
	require.Equal(chain.CoLocated, res.Location.Scheme)
	require.True(res.Location.InPlace())

	md, ok, err := m.Read(ctx, res.Asset)
	require.NoError(err)
	require.True(ok)
	require.Equal("Solana Summer", md.Record.Name)
	require.Equal("", md.Record.Symbol)
	require.Equal("https://ipfs.io/ipfs/QmSummer", md.Record.URI)
	require.Empty(md.Record.AdditionalFields)
	require.Equal(id.Identity(), *md.Record.UpdateAuthority)
	require.Equal(res.Asset, md.Record.Mint)
	require.Equal(uint8(0), md.Decimals)
	require.Equal(res.Layout.TotalSize, md.Size)
	require.Equal(res.Layout.MinimumBalance, md.Balance)

	layout, err := m.Layout(ctx, res.Asset)
	require.NoError(err)
	require.Equal(res.Layout, layout)

	est, err := m.EstimateLayout(ctx, chain.CoLocated, 0, r)
	require.NoError(err)
	require.Equal(res.Layout.TotalSize, est.TotalSize)
}

func TestReadAbsent(t *testing.T) {
	t.Parallel()

	m, l, _ := newTestManager(t, nil)
	ctx := context.Background()
	other, err := keystore.New()
	require.NoError(t, err)

	md, ok, err := m.Read(ctx, other.Identity())
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, md)

	// a system account is owned by neither token program
	require.NoError(t, l.Airdrop(other.Identity(), 1))
	require.NoError(t, l.PutAccount(&chain.Account{
		Address:  other.Identity(),
		Owner:    chain.SystemProgramID,
		Lamports: 1,
		Data:     make([]byte, chain.MintSize),
	}))
	_, _, err = m.Read(ctx, other.Identity())
	require.ErrorIs(t, err, chain.ErrUnknownProgram)
	require.ErrorIs(t, err, chain.ErrMalformedRecord)

	_, err = m.UpdateField(ctx, other, other.Identity(), "description", "x")
	require.ErrorIs(t, err, chain.ErrMalformedRecord)
}

func TestUpdateFieldTopUp(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	var calls [][]chain.Operation
	m, _, id := newTestManager(t, []memledger.Option{memledger.WithFault(captureOps(&calls))})
	ctx := context.Background()
	asset := createSummer(t, m, id)

	key, value := "description", "Forget winter."
	delta := uint64(len(key) + len(value) + chain.FieldOverhead)
	conf, err := m.UpdateField(ctx, id, asset, key, value)
	require.NoError(err)
	require.True(conf.NewField)
	require.Equal(delta*testLamportsPerByte, conf.TopUp)

	ops := calls[len(calls)-1]
	require.Len(ops, 2)
	transfer, ok := ops[0].(*chain.Transfer)
	require.True(ok)
	require.Equal(delta*testLamportsPerByte, transfer.Lamports)
	require.Equal(asset, transfer.To)
	require.Equal(id.Identity(), transfer.From)
	_, ok = ops[1].(*chain.UpdateField)
	require.True(ok)

	md, _, err := m.Read(ctx, asset)
	require.NoError(err)
	require.Equal([]chain.Field{{Key: key, Value: value}}, md.Record.AdditionalFields)
}

func TestUpdateExistingFieldNoTopUp(t *testing.T) {
	t.Parallel()

	var calls [][]chain.Operation
	m, _, id := newTestManager(t, []memledger.Option{memledger.WithFault(captureOps(&calls))})
	ctx := context.Background()
	asset := createSummer(t, m, id)

	tt := []struct {
		key      string
		value    string
		newField bool
		ops      int
	}{
		{key: "description", value: "Forget winter.", newField: true, ops: 2},
		{key: "description", value: "Forget winter.", ops: 1},
		{key: "description", value: "Forget autumn.", ops: 1},
		{key: chain.FieldName, value: "Solana Winter", ops: 1},
		{key: chain.FieldSymbol, value: "", ops: 1},
	}
	for i, tv := range tt {
		conf, err := m.UpdateField(ctx, id, asset, tv.key, tv.value)
		if err != nil {
			t.Fatalf("#%d: update failed %v", i, err)
		}
		if conf.NewField != tv.newField {
			t.Fatalf("#%d: new field expected %t, got %t", i, tv.newField, conf.NewField)
		}
		if n := len(calls[len(calls)-1]); n != tv.ops {
			t.Fatalf("#%d: operations expected %d, got %d", i, tv.ops, n)
		}
		if !tv.newField && conf.TopUp != 0 {
			t.Fatalf("#%d: no top-up expected, got %d", i, conf.TopUp)
		}
	}
	md, _, err := m.Read(ctx, asset)
	require.NoError(t, err)
	require.Equal(t, "Solana Winter", md.Record.Name)
	require.Equal(t, "Forget autumn.", md.Record.AdditionalFields[0].Value)
}

func TestUpdateExistingFieldLongerValue(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	var calls [][]chain.Operation
	m, _, id := newTestManager(t, []memledger.Option{memledger.WithFault(captureOps(&calls))})
	ctx := context.Background()
	asset := createSummer(t, m, id)

	short, long := "Forget.", "Forget winter, it is summer."
	_, err := m.UpdateField(ctx, id, asset, "description", short)
	require.NoError(err)
	before, _, err := m.Read(ctx, asset)
	require.NoError(err)

	// an existing key that grows still needs the larger balance
	conf, err := m.UpdateField(ctx, id, asset, "description", long)
	require.NoError(err)
	require.False(conf.NewField)
	size := before.Size + uint64(len(long)-len(short))
	expected := (128+size)*testLamportsPerByte - before.Balance
	require.Equal(expected, conf.TopUp)

	ops := calls[len(calls)-1]
	require.Len(ops, 2)
	transfer, ok := ops[0].(*chain.Transfer)
	require.True(ok)
	require.Equal(expected, transfer.Lamports)
	require.Equal(asset, transfer.To)
	_, ok = ops[1].(*chain.UpdateField)
	require.True(ok)

	after, _, err := m.Read(ctx, asset)
	require.NoError(err)
	require.Equal(size, after.Size)
	require.Equal(before.Balance+expected, after.Balance)
	require.Equal(long, after.Record.AdditionalFields[0].Value)
}

func TestRecordSizeLimit(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	m, l, id := newTestManager(t, nil)
	ctx := context.Background()
	asset := createSummer(t, m, id)
	slot := l.Slot()
	blob := strings.Repeat("x", 70_000)

	_, err := m.UpdateField(ctx, id, asset, "blob", blob)
	require.ErrorIs(err, chain.ErrFieldTooLong)
	require.ErrorIs(err, chain.ErrInvalidSpec)
	require.Equal(slot, l.Slot())

	a, r := summerSpec()
	r.AdditionalFields = []chain.Field{{Key: "blob", Value: blob}}
	_, err = m.Create(ctx, id, a, r)
	require.ErrorIs(err, chain.ErrFieldTooLong)
	_, err = m.EstimateLayout(ctx, chain.CoLocated, 0, r)
	require.ErrorIs(err, chain.ErrFieldTooLong)
	require.Equal(slot, l.Slot())

	// the record stays readable and writable
	md, ok, err := m.Read(ctx, asset)
	require.NoError(err)
	require.True(ok)
	require.Empty(md.Record.AdditionalFields)
	_, err = m.UpdateField(ctx, id, asset, "description", "x")
	require.NoError(err)
}

func TestUpdateFieldRentRateChange(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	m, l, id := newTestManager(t, nil)
	ctx := context.Background()
	asset := createSummer(t, m, id)
	before, _, err := m.Read(ctx, asset)
	require.NoError(err)

	// same size, higher rate: the full new minimum balance is re-derived
	l.SetRentRate(2 * testLamportsPerByte)
	conf, err := m.UpdateField(ctx, id, asset, chain.FieldName, "Solana Autumn")
	require.NoError(err)
	expected := (128+before.Size)*2*testLamportsPerByte - before.Balance
	require.Equal(expected, conf.TopUp)

	after, _, err := m.Read(ctx, asset)
	require.NoError(err)
	require.Equal(before.Balance+expected, after.Balance)
}

func TestUpdateFieldAtomicity(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	m, l, id := newTestManager(t, nil)
	ctx := context.Background()
	asset := createSummer(t, m, id)
	before, _, err := l.GetAccount(ctx, asset)
	require.NoError(err)
	payer, _, err := l.GetAccount(ctx, id.Identity())
	require.NoError(err)

	// the top-up lands, then the field write is rejected
	l.SetFault(func(index int, op chain.Operation) error {
		if index == 1 {
			return errors.New("rejected")
		}
		return nil
	})
	_, err = m.UpdateField(ctx, id, asset, "description", "Forget winter.")
	require.ErrorIs(err, chain.ErrSubmissionFailed)
	var serr *chain.SubmissionError
	require.True(errors.As(err, &serr))
	require.Equal(1, serr.Index)
	require.Equal("update-field", serr.Op)

	after, _, err := l.GetAccount(ctx, asset)
	require.NoError(err)
	require.True(bytes.Equal(before.Data, after.Data))
	require.Equal(before.Lamports, after.Lamports)
	payerAfter, _, err := l.GetAccount(ctx, id.Identity())
	require.NoError(err)
	require.Equal(payer.Lamports, payerAfter.Lamports)
}

func recordAccount(t *testing.T, asset solana.PublicKey, ua *solana.PublicKey) *chain.Account {
	t.Helper()
	auth := asset
	m := &chain.Mint{MintAuthority: &auth, IsInitialized: true}
	m.SetExtension(chain.ExtensionMetadataPointer, chain.PackMetadataPointer(&chain.MetadataPointer{Address: asset}))
	b, err := chain.EncodeRecord(chain.FormatExtensible, &chain.Record{
		UpdateAuthority: ua,
		Mint:            asset,
		Name:            "mocked",
		URI:             "https://example.com",
	})
	require.NoError(t, err)
	m.SetExtension(chain.ExtensionTokenMetadata, b)
	data, err := m.Pack()
	require.NoError(t, err)
	return &chain.Account{
		Address:  asset,
		Owner:    chain.Token2022ProgramID,
		Lamports: 1_000_000_000,
		Data:     data,
	}
}

func TestUnauthorizedNeverSubmits(t *testing.T) {
	t.Parallel()

	caller, err := keystore.New()
	require.NoError(t, err)
	owner, err := keystore.New()
	require.NoError(t, err)
	ownerKey := owner.Identity()

	tt := []struct {
		ua  *solana.PublicKey
		err error
	}{
		{ua: &ownerKey, err: chain.ErrNotAuthority},
		{ua: nil, err: chain.ErrImmutable},
	}
	for i, tv := range tt {
		ctrl := gomock.NewController(t)
		ledger := mocks.NewMockLedger(ctrl)
		asset := solana.NewWallet().PublicKey()
		ledger.EXPECT().GetAccount(gomock.Any(), asset).Return(recordAccount(t, asset, tv.ua), true, nil).Times(2)
		ledger.EXPECT().SubmitAtomic(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		m, err := New(ledger)
		require.NoError(t, err)
		ctx := context.Background()
		if _, err := m.UpdateField(ctx, caller, asset, "description", "x"); !errors.Is(err, tv.err) {
			t.Fatalf("#%d: update error expected %v, got %v", i, tv.err, err)
		}
		if _, err := m.RemoveField(ctx, caller, asset, "description"); !errors.Is(err, chain.ErrUnauthorized) {
			t.Fatalf("#%d: remove error expected %v, got %v", i, chain.ErrUnauthorized, err)
		}
		ctrl.Finish()
	}
}

func TestDerivationMismatch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ledger := mocks.NewMockLedger(ctrl)
	ledger.EXPECT().
		DeriveAddress(chain.MetadataNamespace, chain.MetadataProgramID, gomock.Any()).
		Return(solana.NewWallet().PublicKey(), nil)
	ledger.EXPECT().SubmitAtomic(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	id, err := keystore.New()
	require.NoError(t, err)
	m, err := New(ledger)
	require.NoError(t, err)
	_, err = m.Create(context.Background(), id,
		&chain.AssetSpec{Scheme: chain.Derived},
		&chain.RecordSpec{Name: "legacy", URI: "https://example.com"},
	)
	require.ErrorIs(t, err, chain.ErrDerivationMismatch)
	require.ErrorIs(t, err, chain.ErrInvalidSpec)
}

func TestRemoveField(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	m, l, id := newTestManager(t, nil)
	ctx := context.Background()
	asset := createSummer(t, m, id)
	_, err := m.UpdateField(ctx, id, asset, "description", "Forget winter.")
	require.NoError(err)
	before, _, err := l.GetAccount(ctx, asset)
	require.NoError(err)

	conf, err := m.RemoveField(ctx, id, asset, "missing")
	require.NoError(err)
	require.False(conf.Removed)
	after, _, err := l.GetAccount(ctx, asset)
	require.NoError(err)
	require.True(bytes.Equal(before.Data, after.Data))

	conf, err = m.RemoveField(ctx, id, asset, "description")
	require.NoError(err)
	require.True(conf.Removed)
	md, _, err := m.Read(ctx, asset)
	require.NoError(err)
	require.Empty(md.Record.AdditionalFields)

	// removing again is still a success
	conf, err = m.RemoveField(ctx, id, asset, "description")
	require.NoError(err)
	require.False(conf.Removed)

	slot := l.Slot()
	for _, key := range []string{"", chain.FieldName, chain.FieldSymbol, chain.FieldURI} {
		_, err := m.RemoveField(ctx, id, asset, key)
		require.ErrorIs(err, chain.ErrInvalidSpec)
	}
	require.Equal(slot, l.Slot())
}

func TestCreateInvalid(t *testing.T) {
	t.Parallel()

	m, l, id := newTestManager(t, nil)
	other := solana.NewWallet().PublicKey()
	tt := []struct {
		a   *chain.AssetSpec
		r   *chain.RecordSpec
		err error
	}{
		{
			a:   &chain.AssetSpec{Decimals: 10, Scheme: chain.CoLocated},
			r:   &chain.RecordSpec{Name: "n", URI: "u"},
			err: chain.ErrDecimalsOutOfRange,
		},
		{
			a:   &chain.AssetSpec{Scheme: chain.CoLocated},
			r:   &chain.RecordSpec{URI: "u"},
			err: chain.ErrNameEmpty,
		},
		{
			a:   &chain.AssetSpec{Scheme: chain.CoLocated},
			r:   &chain.RecordSpec{Name: "n"},
			err: chain.ErrURIEmpty,
		},
		{
			a: &chain.AssetSpec{Scheme: chain.CoLocated},
			r: &chain.RecordSpec{Name: "n", URI: "u", AdditionalFields: []chain.Field{
				{Key: "k", Value: "1"}, {Key: "k", Value: "2"},
			}},
			err: chain.ErrDuplicateKey,
		},
		{
			a:   &chain.AssetSpec{Scheme: chain.Derived},
			r:   &chain.RecordSpec{Name: "n", URI: "u", AdditionalFields: []chain.Field{{Key: "k", Value: "v"}}},
			err: chain.ErrUnsupportedField,
		},
		{
			a:   &chain.AssetSpec{Scheme: chain.CoLocated, SharedMetadata: &other},
			err: chain.ErrSharedMetadata,
		},
		{
			a:   &chain.AssetSpec{Scheme: chain.CoLocated, InitialSupply: decimal.RequireFromString("1.5")},
			r:   &chain.RecordSpec{Name: "n", URI: "u"},
			err: chain.ErrAmountPrecision,
		},
		{
			a:   &chain.AssetSpec{Scheme: chain.CoLocated},
			err: chain.ErrInvalidSpec,
		},
		{
			a:   &chain.AssetSpec{Scheme: chain.Scheme(9)},
			r:   &chain.RecordSpec{Name: "n", URI: "u"},
			err: chain.ErrUnknownScheme,
		},
	}
	for i, tv := range tt {
		_, err := m.Create(context.Background(), id, tv.a, tv.r)
		if !errors.Is(err, tv.err) {
			t.Fatalf("#%d: error expected %v, got %v", i, tv.err, err)
		}
	}
	if l.Slot() != 0 {
		t.Fatalf("no submission expected, got %d", l.Slot())
	}
}

func TestCreateAssetExists(t *testing.T) {
	t.Parallel()

	m, _, id := newTestManager(t, nil)
	key, err := keystore.New()
	require.NoError(t, err)
	a, r := summerSpec()
	_, err = m.CreateWithKey(context.Background(), id, key, a, r)
	require.NoError(t, err)
	_, err = m.CreateWithKey(context.Background(), id, key, a, r)
	require.ErrorIs(t, err, chain.ErrAssetExists)
}

func TestCreateUnknownOutcome(t *testing.T) {
	t.Parallel()

	m, _, id := newTestManager(t,
		[]memledger.Option{memledger.WithConfirmDelay(time.Minute)},
		WithConfirmTimeout(50*time.Millisecond),
	)
	a, r := summerSpec()
	res, err := m.Create(context.Background(), id, a, r)
	require.ErrorIs(t, err, chain.ErrUnknownOutcome)
	require.NotNil(t, res)
	require.Nil(t, res.Confirmation)

	// the caller re-reads to learn the actual state
	md, ok, err := m.Read(context.Background(), res.Asset)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Solana Summer", md.Record.Name)
}

// cancelOnSubmit cancels the caller's context just before submitting.
type cancelOnSubmit struct {
	*memledger.Ledger
	cancel context.CancelFunc
}

func (c *cancelOnSubmit) SubmitAtomic(ctx context.Context, ops []chain.Operation, signers []chain.KeyStore) (*chain.Confirmation, error) {
	c.cancel()
	return c.Ledger.SubmitAtomic(ctx, ops, signers)
}

func TestSubmitCanceledBeforeSend(t *testing.T) {
	t.Parallel()

	l := memledger.New()
	id, err := keystore.New()
	require.NoError(t, err)
	require.NoError(t, l.Airdrop(id.Identity(), testAirdrop))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, err := New(&cancelOnSubmit{Ledger: l, cancel: cancel})
	require.NoError(t, err)

	a, r := summerSpec()
	res, err := m.Create(ctx, id, a, r)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, errors.Is(err, chain.ErrUnknownOutcome))
	require.Nil(t, res)
	require.Equal(t, uint64(0), l.Slot())
}

func TestCreateWithFields(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	m, _, id := newTestManager(t, nil)
	ctx := context.Background()
	fields := []chain.Field{{Key: "season", Value: "summer"}, {Key: "artist", Value: "anon"}}
	res, err := m.Create(ctx, id,
		&chain.AssetSpec{Decimals: 6, Scheme: chain.CoLocated, InitialSupply: decimal.RequireFromString("12.5")},
		&chain.RecordSpec{Name: "Fields", Symbol: "FLD", URI: "https://example.com", AdditionalFields: fields, Immutable: true},
	)
	require.NoError(err)
	md, ok, err := m.Read(ctx, res.Asset)
	require.NoError(err)
	require.True(ok)
	require.Equal(fields, md.Record.AdditionalFields)
	require.Nil(md.Record.UpdateAuthority)
	require.Equal(uint64(12_500_000), md.Supply)

	_, err = m.UpdateField(ctx, id, res.Asset, "season", "winter")
	require.ErrorIs(err, chain.ErrImmutable)
}

func TestSharedMetadata(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	m, _, id := newTestManager(t, nil)
	ctx := context.Background()
	shared := createSummer(t, m, id)

	res, err := m.Create(ctx, id, &chain.AssetSpec{Decimals: 2, Scheme: chain.CoLocated, SharedMetadata: &shared}, nil)
	require.NoError(err)
	require.False(res.Location.InPlace())
	require.Equal(shared, res.Location.Address)
	require.Equal(chain.MintLen(chain.MetadataPointerSize), res.Layout.BaseSize)

	md, ok, err := m.Read(ctx, res.Asset)
	require.NoError(err)
	require.True(ok)
	require.Equal("Solana Summer", md.Record.Name)
	require.Equal(shared, md.Location.Address)
	require.Equal(uint8(2), md.Decimals)

	// updates through either asset land in the shared account
	_, err = m.UpdateField(ctx, id, res.Asset, "description", "shared")
	require.NoError(err)
	md, _, err = m.Read(ctx, shared)
	require.NoError(err)
	require.Equal([]chain.Field{{Key: "description", Value: "shared"}}, md.Record.AdditionalFields)
}

func TestDerivedLifecycle(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	m, l, id := newTestManager(t, nil)
	ctx := context.Background()
	res, err := m.Create(ctx, id,
		&chain.AssetSpec{Decimals: 9, Scheme: chain.Derived},
		&chain.RecordSpec{Name: "Legacy", Symbol: "LGC", URI: "https://example.com/l.json", SellerFeeBasisPoints: 100},
	)
	require.NoError(err)
	require.Equal(uint64(chain.LegacyAccountSize), res.Layout.TotalSize)

	md, ok, err := m.Read(ctx, res.Asset)
	require.NoError(err)
	require.True(ok)
	require.Equal(chain.Derived, md.Location.Scheme)
	require.Equal("Legacy", md.Record.Name)
	require.Equal(uint16(100), md.Record.Legacy.SellerFeeBasisPoints)

	conf, err := m.UpdateField(ctx, id, res.Asset, chain.FieldSymbol, "NEW")
	require.NoError(err)
	require.Zero(conf.TopUp)
	md, _, err = m.Read(ctx, res.Asset)
	require.NoError(err)
	require.Equal("NEW", md.Record.Symbol)
	require.Equal(uint16(100), md.Record.Legacy.SellerFeeBasisPoints)

	_, err = m.UpdateField(ctx, id, res.Asset, "description", "x")
	require.ErrorIs(err, chain.ErrUnsupportedField)
	_, err = m.UpdateField(ctx, id, res.Asset, chain.FieldName, "this name is far too long for the legacy format")
	require.ErrorIs(err, chain.ErrFieldTooLong)

	slot := l.Slot()
	conf, err = m.RemoveField(ctx, id, res.Asset, "description")
	require.NoError(err)
	require.False(conf.Removed)
	require.Equal(slot, l.Slot())
}

func TestConflictRetries(t *testing.T) {
	t.Parallel()

	conflict := func(conflicts *int) memledger.FaultFunc {
		return func(index int, op chain.Operation) error {
			if _, ok := op.(*chain.UpdateField); ok && *conflicts > 0 {
				*conflicts--
				return &chain.SubmissionError{Index: -1, Reason: "account in use", Conflict: true}
			}
			return nil
		}
	}

	tt := []struct {
		retries   int
		conflicts int
		err       error
	}{
		{retries: 0, conflicts: 1, err: chain.ErrConflict},
		{retries: 1, conflicts: 1},
		{retries: 2, conflicts: 3, err: chain.ErrConflict},
	}
	for i, tv := range tt {
		m, l, id := newTestManager(t, nil, WithConflictRetries(tv.retries))
		asset := createSummer(t, m, id)
		remaining := tv.conflicts
		l.SetFault(conflict(&remaining))
		_, err := m.UpdateField(context.Background(), id, asset, "description", "x")
		if !errors.Is(err, tv.err) {
			t.Fatalf("#%d: error expected %v, got %v", i, tv.err, err)
		}
		if tv.err != nil && !errors.Is(err, chain.ErrSubmissionFailed) {
			t.Fatalf("#%d: conflict should be a submission failure", i)
		}
	}
}

func TestIssueSupply(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	m, l, id := newTestManager(t, nil)
	ctx := context.Background()
	res, err := m.Create(ctx, id,
		&chain.AssetSpec{Decimals: 2, Scheme: chain.CoLocated},
		&chain.RecordSpec{Name: "Supply", URI: "https://example.com"},
	)
	require.NoError(err)
	owner := solana.NewWallet().PublicKey()

	conf, err := m.IssueSupply(ctx, id, res.Asset, owner, decimal.RequireFromString("1.5"))
	require.NoError(err)
	require.True(conf.HolderCreated)
	require.Equal(2, conf.Operations)

	conf, err = m.IssueSupply(ctx, id, res.Asset, owner, decimal.RequireFromString("1.5"))
	require.NoError(err)
	require.False(conf.HolderCreated)
	require.Equal(1, conf.Operations)

	md, _, err := m.Read(ctx, res.Asset)
	require.NoError(err)
	require.Equal(uint64(300), md.Supply)
	hacct, ok, err := l.GetAccount(ctx, *conf.Holder)
	require.NoError(err)
	require.True(ok)
	ta, err := chain.UnpackTokenAccount(hacct.Data)
	require.NoError(err)
	require.Equal(uint64(300), ta.Amount)
	require.Equal(owner, ta.Owner)

	stranger, err := keystore.New()
	require.NoError(err)
	tt := []struct {
		id     chain.KeyStore
		asset  solana.PublicKey
		amount string
		err    error
	}{
		{id: id, asset: res.Asset, amount: "0", err: chain.ErrInvalidAmount},
		{id: id, asset: res.Asset, amount: "-1", err: chain.ErrInvalidAmount},
		{id: id, asset: res.Asset, amount: "0.001", err: chain.ErrAmountPrecision},
		{id: id, asset: res.Asset, amount: "184467440737095516.16", err: chain.ErrDecimalOverflow},
		{id: id, asset: res.Asset, amount: "184467440737095516", err: chain.ErrDecimalOverflow},
		{id: stranger, asset: res.Asset, amount: "1", err: chain.ErrUnauthorized},
		{id: id, asset: owner, amount: "1", err: chain.ErrNotFound},
	}
	slot := l.Slot()
	for i, tv := range tt {
		_, err := m.IssueSupply(ctx, tv.id, tv.asset, owner, decimal.RequireFromString(tv.amount))
		if !errors.Is(err, tv.err) {
			t.Fatalf("#%d: error expected %v, got %v", i, tv.err, err)
		}
	}
	require.Equal(slot, l.Slot())
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, l, id := newTestManager(t, nil, WithRegisterer(reg))
	asset := createSummer(t, m, id)
	l.SetFault(func(int, chain.Operation) error { return errors.New("rejected") })
	_, err := m.UpdateField(context.Background(), id, asset, "description", "x")
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.metrics.submissions.WithLabelValues("create", outcomeConfirmed)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.metrics.submissions.WithLabelValues("updateField", outcomeRejected)))

	// a second manager cannot register the same collectors
	_, err = New(l, WithRegisterer(reg))
	require.Error(t, err)
}
