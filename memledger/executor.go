// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memledger

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ava-labs/avalanchego/database"
	"github.com/gagliardetto/solana-go"

	"github.com/ava-labs/tokenmeta/chain"
)

var (
	ErrAccountInUse        = errors.New("account already in use")
	ErrAccountMissing      = errors.New("account does not exist")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrIncorrectProgram    = errors.New("account owned by another program")
	ErrAlreadyInitialized  = errors.New("already initialized")
	ErrUninitialized       = errors.New("mint is not initialized")
	ErrAccountTooSmall     = errors.New("account data too small")
	ErrPointerMismatch     = errors.New("metadata pointer does not name the record account")
	ErrMissingRecord       = errors.New("record not found")
	ErrKeyNotFound         = errors.New("field key not found")
	ErrMintMismatch        = errors.New("holder account belongs to another mint")
	ErrInvalidSeeds        = errors.New("address does not match seeds")
	ErrUnsupportedLocation = errors.New("record must live in the asset account")
	ErrNotRentExempt       = errors.New("account balance below minimum")
)

// state applies operations to a staged database.
type state struct {
	db   database.Database
	rent func(size uint64) uint64

	index int
	// last operation index that wrote each account
	touched map[solana.PublicKey]int
}

func (s *state) get(addr solana.PublicKey) (*chain.Account, error) {
	acct, exists, err := GetAccount(s.db, addr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountMissing, addr)
	}
	return acct, nil
}

func (s *state) owned(addr, program solana.PublicKey) (*chain.Account, error) {
	acct, err := s.get(addr)
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(program) {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrIncorrectProgram, addr, acct.Owner)
	}
	return acct, nil
}

func (s *state) put(acct *chain.Account) error {
	s.touched[acct.Address] = s.index
	return PutAccount(s.db, acct)
}

func (s *state) debit(acct *chain.Account, lamports uint64) error {
	if acct.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, acct.Address, acct.Lamports, lamports)
	}
	acct.Lamports -= lamports
	return nil
}

// create debits [payer] and stores a new account.
func (s *state) create(payer, addr, owner solana.PublicKey, lamports uint64, data []byte) error {
	_, exists, err := GetAccount(s.db, addr)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAccountInUse, addr)
	}
	from, err := s.get(payer)
	if err != nil {
		return err
	}
	if err := s.debit(from, lamports); err != nil {
		return err
	}
	if err := s.put(from); err != nil {
		return err
	}
	return s.put(&chain.Account{Address: addr, Owner: owner, Lamports: lamports, Data: data})
}

func (s *state) execute(op chain.Operation) error {
	switch o := op.(type) {
	case *chain.CreateAccount:
		return s.create(o.Payer, o.Account, o.Owner, o.Lamports, make([]byte, o.Space))
	case *chain.Transfer:
		return s.transfer(o)
	case *chain.InitializeMetadataPointer:
		return s.initializeMetadataPointer(o)
	case *chain.InitializeMint:
		return s.initializeMint(o)
	case *chain.InitializeMetadata:
		return s.initializeMetadata(o)
	case *chain.UpdateField:
		return s.updateRecord(o.Metadata, o.UpdateAuthority, func(r *chain.Record) (*chain.Record, error) {
			return r.WithField(o.Key, o.Value), nil
		})
	case *chain.RemoveKey:
		return s.updateRecord(o.Metadata, o.UpdateAuthority, func(r *chain.Record) (*chain.Record, error) {
			next, found := r.WithoutField(o.Key)
			if found {
				return next, nil
			}
			if o.Idempotent {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, o.Key)
		})
	case *chain.UpdateAuthority:
		return s.updateRecord(o.Metadata, o.UpdateAuthority, func(r *chain.Record) (*chain.Record, error) {
			next := r.Copy()
			next.UpdateAuthority = o.NewAuthority
			return next, nil
		})
	case *chain.CreateAssociatedAccount:
		return s.createAssociatedAccount(o)
	case *chain.MintTo:
		return s.mintTo(o)
	case *chain.CreateMetadataV3:
		return s.createMetadata(o)
	case *chain.UpdateMetadataV2:
		return s.updateMetadata(o)
	default:
		return fmt.Errorf("unsupported operation %T", op)
	}
}

func (s *state) transfer(o *chain.Transfer) error {
	from, err := s.owned(o.From, chain.SystemProgramID)
	if err != nil {
		return err
	}
	if err := s.debit(from, o.Lamports); err != nil {
		return err
	}
	if err := s.put(from); err != nil {
		return err
	}
	to, exists, err := GetAccount(s.db, o.To)
	if err != nil {
		return err
	}
	if !exists {
		to = &chain.Account{Address: o.To, Owner: chain.SystemProgramID}
	}
	to.Lamports += o.Lamports
	return s.put(to)
}

// mint loads the mint at [addr] owned by [program].
func (s *state) mint(addr, program solana.PublicKey) (*chain.Account, *chain.Mint, error) {
	acct, err := s.owned(addr, program)
	if err != nil {
		return nil, nil, err
	}
	m, err := chain.UnpackMint(acct.Data)
	if err != nil {
		return nil, nil, err
	}
	return acct, m, nil
}

// storeMint repacks [m] into the existing allocation of [acct].
func (s *state) storeMint(acct *chain.Account, m *chain.Mint) error {
	b, err := m.Pack()
	if err != nil {
		return err
	}
	if len(b) > len(acct.Data) {
		return fmt.Errorf("%w: %d > %d", ErrAccountTooSmall, len(b), len(acct.Data))
	}
	data := make([]byte, len(acct.Data))
	copy(data, b)
	acct.Data = data
	return s.put(acct)
}

func (s *state) initializeMetadataPointer(o *chain.InitializeMetadataPointer) error {
	acct, m, err := s.mint(o.Mint, chain.Token2022ProgramID)
	if err != nil {
		return err
	}
	if m.IsInitialized {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, o.Mint)
	}
	if _, ok := m.Extension(chain.ExtensionMetadataPointer); ok {
		return fmt.Errorf("%w: metadata pointer", ErrAlreadyInitialized)
	}
	m.SetExtension(chain.ExtensionMetadataPointer, chain.PackMetadataPointer(&chain.MetadataPointer{
		Authority: o.Authority,
		Address:   o.Metadata,
	}))
	return s.storeMint(acct, m)
}

func (s *state) initializeMint(o *chain.InitializeMint) error {
	acct, m, err := s.mint(o.Mint, o.Program)
	if err != nil {
		return err
	}
	if m.IsInitialized {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, o.Mint)
	}
	if o.Decimals > chain.MaxDecimals {
		return chain.ErrDecimalsOutOfRange
	}
	auth := o.MintAuthority
	m.MintAuthority = &auth
	m.Decimals = o.Decimals
	m.IsInitialized = true
	m.FreezeAuthority = o.FreezeAuthority
	return s.storeMint(acct, m)
}

func (s *state) initializeMetadata(o *chain.InitializeMetadata) error {
	if !o.Metadata.Equals(o.Mint) {
		return ErrUnsupportedLocation
	}
	acct, m, err := s.mint(o.Mint, o.Program)
	if err != nil {
		return err
	}
	if !m.IsInitialized {
		return fmt.Errorf("%w: %s", ErrUninitialized, o.Mint)
	}
	if m.MintAuthority == nil || !m.MintAuthority.Equals(o.MintAuthority) {
		return chain.ErrNotMintAuthority
	}
	p, ok, err := m.MetadataPointer()
	if err != nil {
		return err
	}
	if !ok || !p.Address.Equals(o.Metadata) {
		return ErrPointerMismatch
	}
	if _, ok := m.Extension(chain.ExtensionTokenMetadata); ok {
		return fmt.Errorf("%w: record", ErrAlreadyInitialized)
	}
	r := &chain.Record{
		Mint:   o.Mint,
		Name:   o.Name,
		Symbol: o.Symbol,
		URI:    o.URI,
	}
	if !o.UpdateAuthority.IsZero() {
		ua := o.UpdateAuthority
		r.UpdateAuthority = &ua
	}
	return s.storeRecord(acct, m, r)
}

// storeRecord writes [r] into [m] and reallocates [acct] to fit exactly.
func (s *state) storeRecord(acct *chain.Account, m *chain.Mint, r *chain.Record) error {
	b, err := chain.EncodeRecord(chain.FormatExtensible, r)
	if err != nil {
		return err
	}
	m.SetExtension(chain.ExtensionTokenMetadata, b)
	if acct.Data, err = m.Pack(); err != nil {
		return err
	}
	return s.put(acct)
}

// updateRecord applies [f] to the extensible record held by [addr] after
// checking [authority]. A nil record from [f] leaves the account as is.
func (s *state) updateRecord(addr, authority solana.PublicKey, f func(*chain.Record) (*chain.Record, error)) error {
	acct, m, err := s.mint(addr, chain.Token2022ProgramID)
	if err != nil {
		return err
	}
	r, ok, err := chain.FindTokenMetadata(m.Extensions)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingRecord, addr)
	}
	if err := r.Authorize(authority); err != nil {
		return err
	}
	next, err := f(r)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return s.storeRecord(acct, m, next)
}

func (s *state) createAssociatedAccount(o *chain.CreateAssociatedAccount) error {
	addr, err := chain.DeriveAssociatedAddress(o.Owner, o.Mint, o.TokenProgram)
	if err != nil {
		return err
	}
	if !addr.Equals(o.Account) {
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidSeeds, addr, o.Account)
	}
	if _, _, err := s.mint(o.Mint, o.TokenProgram); err != nil {
		return err
	}
	data := (&chain.TokenAccount{Mint: o.Mint, Owner: o.Owner}).Pack()
	return s.create(o.Payer, o.Account, o.TokenProgram, s.rent(uint64(len(data))), data)
}

func (s *state) mintTo(o *chain.MintTo) error {
	mintAcct, m, err := s.mint(o.Mint, o.Program)
	if err != nil {
		return err
	}
	if !m.IsInitialized {
		return fmt.Errorf("%w: %s", ErrUninitialized, o.Mint)
	}
	if m.MintAuthority == nil {
		return chain.ErrFixedSupply
	}
	if !m.MintAuthority.Equals(o.Authority) {
		return chain.ErrNotMintAuthority
	}
	holderAcct, err := s.owned(o.Destination, o.Program)
	if err != nil {
		return err
	}
	holder, err := chain.UnpackTokenAccount(holderAcct.Data)
	if err != nil {
		return err
	}
	if !holder.Mint.Equals(o.Mint) {
		return fmt.Errorf("%w: %s", ErrMintMismatch, o.Destination)
	}
	if m.Supply, err = chain.AddSupply(m.Supply, o.Amount); err != nil {
		return err
	}
	if holder.Amount, err = chain.AddSupply(holder.Amount, o.Amount); err != nil {
		return err
	}
	if err := s.storeMint(mintAcct, m); err != nil {
		return err
	}
	packed := holder.Pack()
	copy(holderAcct.Data, packed)
	return s.put(holderAcct)
}

func (s *state) createMetadata(o *chain.CreateMetadataV3) error {
	addr, err := chain.DeriveAddress(chain.MetadataNamespace, chain.MetadataProgramID, o.Mint)
	if err != nil {
		return err
	}
	if !addr.Equals(o.Metadata) {
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidSeeds, addr, o.Metadata)
	}
	mintAcct, err := s.get(o.Mint)
	if err != nil {
		return err
	}
	_, m, err := s.mint(o.Mint, mintAcct.Owner)
	if err != nil {
		return err
	}
	if !m.IsInitialized {
		return fmt.Errorf("%w: %s", ErrUninitialized, o.Mint)
	}
	if m.MintAuthority == nil || !m.MintAuthority.Equals(o.MintAuthority) {
		return chain.ErrNotMintAuthority
	}
	ua := o.UpdateAuthority
	r := &chain.Record{
		UpdateAuthority: &ua,
		Mint:            o.Mint,
		Legacy: &chain.LegacyAttributes{
			IsMutable: o.IsMutable,
		},
	}
	applyLegacyData(r, &o.Data)
	data, err := encodeLegacy(r, chain.LegacyAccountSize)
	if err != nil {
		return err
	}
	return s.create(o.Payer, o.Metadata, chain.MetadataProgramID, s.rent(chain.LegacyAccountSize), data)
}

func (s *state) updateMetadata(o *chain.UpdateMetadataV2) error {
	acct, err := s.owned(o.Metadata, chain.MetadataProgramID)
	if err != nil {
		return err
	}
	r, err := chain.DecodeRecord(chain.FormatLegacy, acct.Data)
	if err != nil {
		return err
	}
	if err := r.Authorize(o.UpdateAuthority); err != nil {
		return err
	}
	applyLegacyData(r, &o.Data)
	data, err := encodeLegacy(r, len(acct.Data))
	if err != nil {
		return err
	}
	acct.Data = data
	return s.put(acct)
}

func applyLegacyData(r *chain.Record, d *chain.LegacyData) {
	r.Name = d.Name
	r.Symbol = d.Symbol
	r.URI = d.URI
	r.Legacy.SellerFeeBasisPoints = d.SellerFeeBasisPoints
	r.Legacy.Creators = d.Creators
	r.Legacy.Collection = d.Collection
	r.Legacy.Uses = d.Uses
}

// encodeLegacy encodes [r] zero padded to [size].
func encodeLegacy(r *chain.Record, size int) ([]byte, error) {
	b, err := chain.EncodeRecord(chain.FormatLegacy, r)
	if err != nil {
		return nil, err
	}
	if len(b) > size {
		return nil, fmt.Errorf("%w: %d > %d", ErrAccountTooSmall, len(b), size)
	}
	data := make([]byte, size)
	copy(data, b)
	return data, nil
}

// checkRent rejects the submission if any account it wrote holds data but
// is not exempt from rent. Accounts are checked in the order of their last
// write, so the earliest failing operation is reported.
func (s *state) checkRent(ops []chain.Operation) error {
	addrs := make([]solana.PublicKey, 0, len(s.touched))
	for addr := range s.touched {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		a, b := s.touched[addrs[i]], s.touched[addrs[j]]
		if a != b {
			return a < b
		}
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	for _, addr := range addrs {
		index := s.touched[addr]
		acct, exists, err := GetAccount(s.db, addr)
		if err != nil {
			return err
		}
		if !exists || len(acct.Data) == 0 {
			continue
		}
		if need := s.rent(uint64(len(acct.Data))); acct.Lamports < need {
			return &chain.SubmissionError{
				Index: index,
				Op:    ops[index].Kind(),
				Reason: fmt.Sprintf(
					"%v: %s has %d, needs %d",
					ErrNotRentExempt, addr, acct.Lamports, need,
				),
			}
		}
	}
	return nil
}
