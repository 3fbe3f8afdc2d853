// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

//go:generate mockgen -source=ledger.go -destination=mocks/ledger.go -package=mocks

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Account is a ledger account as read.
type Account struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// Confirmation describes an applied submission.
type Confirmation struct {
	// Ledger assigned identifier, empty if nothing was submitted.
	ID         string `json:"id"`
	Slot       uint64 `json:"slot"`
	Operations int    `json:"operations"`
}

// Ledger is the remote account store.
type Ledger interface {
	// GetAccount returns false if the account does not exist.
	GetAccount(ctx context.Context, addr solana.PublicKey) (*Account, bool, error)
	GetMinimumBalance(ctx context.Context, size uint64) (uint64, error)
	DeriveAddress(namespace []byte, programID solana.PublicKey, seed solana.PublicKey) (solana.PublicKey, error)
	DeriveAssociatedAccountAddress(owner, asset, tokenProgram solana.PublicKey) (solana.PublicKey, error)
	// SubmitAtomic applies every operation or none. The first signer pays.
	// It returns a *SubmissionError on rejection and an
	// *UnknownOutcomeError when [ctx] ends before confirmation.
	SubmitAtomic(ctx context.Context, ops []Operation, signers []KeyStore) (*Confirmation, error)
}

// KeyStore holds a signing identity.
type KeyStore interface {
	Identity() solana.PublicKey
	Sign(payload []byte) (solana.Signature, error)
}

// Instructions converts operations into ledger instructions.
func Instructions(ops []Operation) ([]solana.Instruction, error) {
	ixs := make([]solana.Instruction, 0, len(ops))
	for i, op := range ops {
		ix, err := op.Instruction()
		if err != nil {
			return nil, &SubmissionError{Index: i, Op: op.Kind(), Reason: err.Error()}
		}
		ixs = append(ixs, ix)
	}
	return ixs, nil
}

// Kinds returns the kind of every operation.
func Kinds(ops []Operation) []string {
	kinds := make([]string, len(ops))
	for i, op := range ops {
		kinds[i] = op.Kind()
	}
	return kinds
}
