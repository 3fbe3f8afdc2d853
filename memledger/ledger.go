// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memledger implements an in-memory ledger that executes asset and
// record operations atomically.
package memledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/gagliardetto/solana-go"
	log "github.com/inconshreveable/log15"
	"golang.org/x/crypto/sha3"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/keystore"
)

const (
	// DefaultLamportsPerByte matches the rent rate of the public clusters.
	DefaultLamportsPerByte = 6960

	// accountStorageOverhead is charged on top of the data length.
	accountStorageOverhead = 128
)

var (
	ErrMissingSigner    = errors.New("missing required signature")
	ErrInvalidSignature = errors.New("invalid signature")
)

var _ chain.Ledger = &Ledger{}

// FaultFunc is called before the operation at [index] is applied. A non-nil
// error rejects the whole submission.
type FaultFunc func(index int, op chain.Operation) error

// Option configures a Ledger.
type Option func(*Ledger)

// WithRentRate sets the lamports charged per stored byte.
func WithRentRate(lamportsPerByte uint64) Option {
	return func(l *Ledger) { l.rentRate = lamportsPerByte }
}

// WithFault installs [f] as the fault hook.
func WithFault(f FaultFunc) Option {
	return func(l *Ledger) { l.fault = f }
}

// WithConfirmDelay delays confirmation of every applied submission by [d].
func WithConfirmDelay(d time.Duration) Option {
	return func(l *Ledger) { l.confirmDelay = d }
}

// Ledger is a chain.Ledger backed by a memdb database. Every submission is
// staged in a versiondb and committed or aborted as a whole.
type Ledger struct {
	mu sync.RWMutex
	db database.Database

	slot         uint64
	rentRate     uint64
	fault        FaultFunc
	confirmDelay time.Duration
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		db:       memdb.New(),
		rentRate: DefaultLamportsPerByte,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// SetRentRate changes the rent rate for subsequent calls.
func (l *Ledger) SetRentRate(lamportsPerByte uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rentRate = lamportsPerByte
}

// SetFault replaces the fault hook. A nil [f] removes it.
func (l *Ledger) SetFault(f FaultFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fault = f
}

// Slot returns the number of applied submissions.
func (l *Ledger) Slot() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.slot
}

// Airdrop credits [lamports] to [addr], creating a system account if
// needed.
func (l *Ledger) Airdrop(addr solana.PublicKey, lamports uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, exists, err := GetAccount(l.db, addr)
	if err != nil {
		return err
	}
	if !exists {
		acct = &chain.Account{Address: addr, Owner: chain.SystemProgramID}
	}
	if acct.Lamports+lamports < acct.Lamports {
		return chain.ErrSupplyOverflow
	}
	acct.Lamports += lamports
	log.Debug("airdrop", "address", addr, "lamports", lamports, "balance", acct.Lamports)
	return PutAccount(l.db, acct)
}

// PutAccount stores [acct] as is.
func (l *Ledger) PutAccount(acct *chain.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return PutAccount(l.db, acct)
}

// GetAccount implements the chain.Ledger interface
func (l *Ledger) GetAccount(_ context.Context, addr solana.PublicKey) (*chain.Account, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return GetAccount(l.db, addr)
}

// GetMinimumBalance implements the chain.Ledger interface
func (l *Ledger) GetMinimumBalance(_ context.Context, size uint64) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.minimumBalance(size), nil
}

func (l *Ledger) minimumBalance(size uint64) uint64 {
	return (accountStorageOverhead + size) * l.rentRate
}

// DeriveAddress implements the chain.Ledger interface
func (l *Ledger) DeriveAddress(namespace []byte, programID, seed solana.PublicKey) (solana.PublicKey, error) {
	return chain.DeriveAddress(namespace, programID, seed)
}

// DeriveAssociatedAccountAddress implements the chain.Ledger interface
func (l *Ledger) DeriveAssociatedAccountAddress(owner, asset, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	return chain.DeriveAssociatedAddress(owner, asset, tokenProgram)
}

// Confirmed returns the slot and operation kinds of an applied submission.
func (l *Ledger) Confirmed(id string) (uint64, []string, bool, error) {
	cid, err := ids.FromString(id)
	if err != nil {
		return 0, nil, false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return GetConfirmation(l.db, cid[:])
}

// SubmitAtomic implements the chain.Ledger interface
func (l *Ledger) SubmitAtomic(ctx context.Context, ops []chain.Operation, signers []chain.KeyStore) (*chain.Confirmation, error) {
	if len(ops) == 0 {
		return nil, chain.ErrNoOperations
	}
	if len(signers) == 0 {
		return nil, chain.ErrNoSigners
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ixs, err := chain.Instructions(ops)
	if err != nil {
		return nil, err
	}
	payload, err := signingPayload(ixs)
	if err != nil {
		return nil, &chain.SubmissionError{Index: -1, Reason: err.Error()}
	}
	if err := verifySigners(ops, ixs, signers, payload); err != nil {
		return nil, err
	}

	l.mu.Lock()
	id, slot, err := l.apply(ops, payload)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	log.Debug("applied submission", "id", id, "slot", slot, "operations", len(ops))

	if l.confirmDelay > 0 {
		t := time.NewTimer(l.confirmDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, &chain.UnknownOutcomeError{ID: id, Err: ctx.Err()}
		}
	}
	return &chain.Confirmation{ID: id, Slot: slot, Operations: len(ops)}, nil
}

func (l *Ledger) apply(ops []chain.Operation, payload []byte) (string, uint64, error) {
	vdb := versiondb.New(l.db)
	st := &state{
		db:      vdb,
		rent:    l.minimumBalance,
		touched: make(map[solana.PublicKey]int),
	}
	for i, op := range ops {
		st.index = i
		if l.fault != nil {
			if err := l.fault(i, op); err != nil {
				vdb.Abort()
				return "", 0, rejection(i, op, err)
			}
		}
		if err := st.execute(op); err != nil {
			vdb.Abort()
			log.Debug("rejected submission", "index", i, "operation", op.Kind(), "error", err)
			return "", 0, rejection(i, op, err)
		}
	}
	if err := st.checkRent(ops); err != nil {
		vdb.Abort()
		return "", 0, err
	}

	slot := l.slot + 1
	seed := make([]byte, len(payload)+8)
	copy(seed, payload)
	binary.BigEndian.PutUint64(seed[len(payload):], slot)
	id := ids.ID(sha3.Sum256(seed))
	if err := PutConfirmation(vdb, id[:], slot, chain.Kinds(ops)); err != nil {
		vdb.Abort()
		return "", 0, err
	}
	if err := vdb.Commit(); err != nil {
		vdb.Abort()
		return "", 0, err
	}
	l.slot = slot
	return id.String(), slot, nil
}

func rejection(index int, op chain.Operation, err error) error {
	var serr *chain.SubmissionError
	if errors.As(err, &serr) {
		if serr.Index < 0 {
			serr.Index = index
		}
		if serr.Op == "" {
			serr.Op = op.Kind()
		}
		return serr
	}
	return &chain.SubmissionError{Index: index, Op: op.Kind(), Reason: err.Error()}
}

// signingPayload is the digest every signer signs.
func signingPayload(ixs []solana.Instruction) ([]byte, error) {
	h := sha3.New256()
	for _, ix := range ixs {
		pid := ix.ProgramID()
		_, _ = h.Write(pid[:])
		for _, m := range ix.Accounts() {
			_, _ = h.Write(m.PublicKey[:])
		}
		data, err := ix.Data()
		if err != nil {
			return nil, err
		}
		_, _ = h.Write(data)
	}
	return h.Sum(nil), nil
}

func verifySigners(ops []chain.Operation, ixs []solana.Instruction, signers []chain.KeyStore, payload []byte) error {
	signed := make(map[solana.PublicKey]struct{}, len(signers))
	for _, s := range signers {
		sig, err := s.Sign(payload)
		if err != nil {
			return &chain.SubmissionError{Index: -1, Reason: err.Error()}
		}
		if !keystore.Verify(s.Identity(), payload, sig) {
			return &chain.SubmissionError{
				Index:  -1,
				Reason: fmt.Sprintf("%v: %s", ErrInvalidSignature, s.Identity()),
			}
		}
		signed[s.Identity()] = struct{}{}
	}
	for i, ix := range ixs {
		for _, m := range ix.Accounts() {
			if !m.IsSigner {
				continue
			}
			if _, ok := signed[m.PublicKey]; !ok {
				return &chain.SubmissionError{
					Index:  i,
					Op:     ops[i].Kind(),
					Reason: fmt.Sprintf("%v: %s", ErrMissingSigner, m.PublicKey),
				}
			}
		}
	}
	return nil
}
