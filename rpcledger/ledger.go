// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpcledger implements chain.Ledger over a Solana JSON-RPC endpoint.
package rpcledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	log "github.com/inconshreveable/log15"
	"golang.org/x/time/rate"

	"github.com/ava-labs/tokenmeta/chain"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultRateLimit    = 10
	DefaultBurst        = 20
)

var _ chain.Ledger = &Ledger{}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCommitment sets the commitment reads and confirmations wait for.
func WithCommitment(c rpc.CommitmentType) Option {
	return func(l *Ledger) { l.commitment = c }
}

// WithPollInterval sets how often signature statuses are polled.
func WithPollInterval(d time.Duration) Option {
	return func(l *Ledger) { l.pollInterval = d }
}

// WithRateLimit throttles requests to [perSecond] with [burst].
func WithRateLimit(perSecond float64, burst int) Option {
	return func(l *Ledger) { l.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// Ledger submits transactions to a remote cluster.
type Ledger struct {
	client       *rpc.Client
	limiter      *rate.Limiter
	commitment   rpc.CommitmentType
	pollInterval time.Duration
}

// New returns a ledger talking to [endpoint].
func New(endpoint string, opts ...Option) *Ledger {
	l := &Ledger{
		client:       rpc.New(endpoint),
		limiter:      rate.NewLimiter(DefaultRateLimit, DefaultBurst),
		commitment:   rpc.CommitmentConfirmed,
		pollInterval: DefaultPollInterval,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Ledger) wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// GetAccount implements the chain.Ledger interface
func (l *Ledger) GetAccount(ctx context.Context, addr solana.PublicKey) (*chain.Account, bool, error) {
	if err := l.wait(ctx); err != nil {
		return nil, false, err
	}
	res, err := l.client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Commitment: l.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if res == nil || res.Value == nil {
		return nil, false, nil
	}
	var data []byte
	if res.Value.Data != nil {
		data = res.Value.Data.GetBinary()
	}
	return &chain.Account{
		Address:  addr,
		Owner:    res.Value.Owner,
		Lamports: res.Value.Lamports,
		Data:     data,
	}, true, nil
}

// GetMinimumBalance implements the chain.Ledger interface
func (l *Ledger) GetMinimumBalance(ctx context.Context, size uint64) (uint64, error) {
	if err := l.wait(ctx); err != nil {
		return 0, err
	}
	return l.client.GetMinimumBalanceForRentExemption(ctx, size, l.commitment)
}

// DeriveAddress implements the chain.Ledger interface
func (l *Ledger) DeriveAddress(namespace []byte, programID, seed solana.PublicKey) (solana.PublicKey, error) {
	return chain.DeriveAddress(namespace, programID, seed)
}

// DeriveAssociatedAccountAddress implements the chain.Ledger interface
func (l *Ledger) DeriveAssociatedAccountAddress(owner, asset, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	return chain.DeriveAssociatedAddress(owner, asset, tokenProgram)
}

// SubmitAtomic implements the chain.Ledger interface. The operations go
// out as one transaction, which the cluster applies entirely or not at
// all.
func (l *Ledger) SubmitAtomic(ctx context.Context, ops []chain.Operation, signers []chain.KeyStore) (*chain.Confirmation, error) {
	if len(ops) == 0 {
		return nil, chain.ErrNoOperations
	}
	if len(signers) == 0 {
		return nil, chain.ErrNoSigners
	}
	ixs, err := chain.Instructions(ops)
	if err != nil {
		return nil, err
	}

	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	latest, err := l.client.GetLatestBlockhash(ctx, l.commitment)
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction(ixs, latest.Value.Blockhash, solana.TransactionPayer(signers[0].Identity()))
	if err != nil {
		return nil, &chain.SubmissionError{Index: -1, Reason: err.Error()}
	}
	if err := sign(tx, signers); err != nil {
		return nil, err
	}

	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	sig, err := l.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: l.commitment,
	})
	if err != nil {
		var rerr *jsonrpc.RPCError
		if errors.As(err, &rerr) {
			return nil, rejection(ops, rerr)
		}
		// The request may have reached the cluster.
		if ctx.Err() != nil {
			return nil, &chain.UnknownOutcomeError{ID: tx.Signatures[0].String(), Err: err}
		}
		return nil, err
	}
	log.Info("sent transaction", "signature", sig, "operations", len(ops))
	return l.confirm(ctx, ops, sig, latest.Value.LastValidBlockHeight)
}

// sign adds the signature of every account the message requires.
func sign(tx *solana.Transaction, signers []chain.KeyStore) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return &chain.SubmissionError{Index: -1, Reason: err.Error()}
	}
	byKey := make(map[solana.PublicKey]chain.KeyStore, len(signers))
	for _, s := range signers {
		byKey[s.Identity()] = s
	}
	n := int(tx.Message.Header.NumRequiredSignatures)
	tx.Signatures = make([]solana.Signature, 0, n)
	for _, key := range tx.Message.AccountKeys[:n] {
		s, ok := byKey[key]
		if !ok {
			return &chain.SubmissionError{Index: -1, Reason: fmt.Sprintf("missing signer %s", key)}
		}
		sig, err := s.Sign(msg)
		if err != nil {
			return &chain.SubmissionError{Index: -1, Reason: err.Error()}
		}
		tx.Signatures = append(tx.Signatures, sig)
	}
	return nil
}

// confirm polls the status of [sig] until it is confirmed, fails, or its
// blockhash expires.
func (l *Ledger) confirm(
	ctx context.Context,
	ops []chain.Operation,
	sig solana.Signature,
	lastValidBlockHeight uint64,
) (*chain.Confirmation, error) {
	t := time.NewTicker(l.pollInterval)
	defer t.Stop()
	for {
		conf, done, err := l.poll(ctx, ops, sig, lastValidBlockHeight)
		if done {
			return conf, err
		}
		if err != nil {
			log.Debug("polling signature status failed", "signature", sig, "error", err)
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, &chain.UnknownOutcomeError{ID: sig.String(), Err: ctx.Err()}
		}
	}
}

func (l *Ledger) poll(
	ctx context.Context,
	ops []chain.Operation,
	sig solana.Signature,
	lastValidBlockHeight uint64,
) (*chain.Confirmation, bool, error) {
	if err := l.wait(ctx); err != nil {
		return nil, false, err
	}
	res, err := l.client.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return nil, false, err
	}
	if len(res.Value) > 0 && res.Value[0] != nil {
		st := res.Value[0]
		if st.Err != nil {
			index, reason, conflict := parseTransactionError(st.Err)
			return nil, true, newSubmissionError(ops, index, reason, conflict)
		}
		switch st.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return &chain.Confirmation{ID: sig.String(), Slot: st.Slot, Operations: len(ops)}, true, nil
		}
		return nil, false, nil
	}

	// Not seen yet: once the blockhash expires it can never land.
	if err := l.wait(ctx); err != nil {
		return nil, false, err
	}
	height, err := l.client.GetBlockHeight(ctx, l.commitment)
	if err != nil {
		return nil, false, err
	}
	if height > lastValidBlockHeight {
		return nil, true, &chain.SubmissionError{Index: -1, Reason: "blockhash expired", Conflict: true}
	}
	return nil, false, nil
}
