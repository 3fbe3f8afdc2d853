// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package manager creates assets and keeps their metadata records in
// sync with a ledger. Every public operation reads the current account
// state, builds one ordered operation list and submits it atomically.
package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/tokenmeta/chain"
)

const DefaultConfirmTimeout = 60 * time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithConfirmTimeout bounds every confirmation wait. Zero leaves the
// caller's context as the only bound.
func WithConfirmTimeout(d time.Duration) Option {
	return func(m *Manager) { m.confirmTimeout = d }
}

// WithConflictRetries resubmits field updates and removals up to [n] more
// times when the ledger reports a conflict.
func WithConflictRetries(n int) Option {
	return func(m *Manager) { m.conflictRetries = n }
}

// WithRegisterer registers the submission metrics with [reg].
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Manager) { m.registerer = reg }
}

// Manager drives the record lifecycle against a ledger. It holds no
// per-asset state, so calls for different assets are independent.
type Manager struct {
	ledger chain.Ledger

	confirmTimeout  time.Duration
	conflictRetries int
	registerer      prometheus.Registerer
	metrics         *metrics
}

// New returns a manager submitting to [ledger].
func New(ledger chain.Ledger, opts ...Option) (*Manager, error) {
	m := &Manager{
		ledger:         ledger,
		confirmTimeout: DefaultConfirmTimeout,
	}
	for _, o := range opts {
		o(m)
	}
	if m.conflictRetries < 0 {
		return nil, fmt.Errorf("negative conflict retries %d", m.conflictRetries)
	}
	var err error
	if m.metrics, err = newMetrics(m.registerer); err != nil {
		return nil, err
	}
	return m, nil
}

// Confirmation is the outcome of a field or supply operation.
type Confirmation struct {
	chain.Confirmation
	// The key was not set before the update.
	NewField bool `json:"newField,omitempty"`
	// The key was present before the removal.
	Removed bool `json:"removed,omitempty"`
	// Lamports transferred to keep the record account exempt.
	TopUp uint64 `json:"topUp,omitempty"`
	// Holder account credited by IssueSupply.
	Holder *solana.PublicKey `json:"holder,omitempty"`
	// The holder account was created in the same submission.
	HolderCreated bool `json:"holderCreated,omitempty"`
}

// submit sends [ops] as one atomic unit and classifies the outcome.
func (m *Manager) submit(
	ctx context.Context,
	operation string,
	ops []chain.Operation,
	signers []chain.KeyStore,
) (*chain.Confirmation, error) {
	if m.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.confirmTimeout)
		defer cancel()
	}
	log.Debug("submitting", "operation", operation, "kinds", chain.Kinds(ops))

	start := time.Now()
	// The ledger reports ErrUnknownOutcome itself once the operations may
	// have reached it; a context error before that is definite.
	conf, err := m.ledger.SubmitAtomic(ctx, ops, signers)
	m.metrics.observe(operation, start, err)
	if err != nil {
		log.Info("submission failed", "operation", operation, "error", err)
		return nil, err
	}
	log.Info("submission confirmed",
		"operation", operation,
		"id", conf.ID,
		"slot", conf.Slot,
		"operations", conf.Operations,
	)
	return conf, nil
}

// retry runs [f] again while it fails with a retryable error.
func (m *Manager) retry(f func() (*Confirmation, error)) (*Confirmation, error) {
	for attempt := 0; ; attempt++ {
		conf, err := f()
		if err == nil || !chain.IsRetryable(err) || attempt >= m.conflictRetries {
			return conf, err
		}
		log.Debug("retrying after conflict", "attempt", attempt+1, "error", err)
	}
}
