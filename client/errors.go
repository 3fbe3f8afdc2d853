// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"errors"
	"strings"

	"github.com/ava-labs/tokenmeta/chain"
)

// Most specific first: each specific message embeds its class text.
var known = []error{
	chain.ErrDecimalsOutOfRange,
	chain.ErrNameEmpty,
	chain.ErrURIEmpty,
	chain.ErrFieldTooLong,
	chain.ErrExtensionTooLarge,
	chain.ErrKeyEmpty,
	chain.ErrKeyReserved,
	chain.ErrDuplicateKey,
	chain.ErrUnsupportedField,
	chain.ErrFixedField,
	chain.ErrUnknownScheme,
	chain.ErrSharedMetadata,
	chain.ErrAssetExists,
	chain.ErrDerivationMismatch,
	chain.ErrNoOperations,
	chain.ErrNoSigners,
	chain.ErrImmutable,
	chain.ErrNotAuthority,
	chain.ErrFixedSupply,
	chain.ErrNotMintAuthority,
	chain.ErrShortBuffer,
	chain.ErrFieldCount,
	chain.ErrTrailingBytes,
	chain.ErrFormatMismatch,
	chain.ErrUnknownProgram,
	chain.ErrInvalidMint,
	chain.ErrAmountNotPositive,
	chain.ErrAmountPrecision,
	chain.ErrSupplyOverflow,

	chain.ErrInvalidSpec,
	chain.ErrNotFound,
	chain.ErrUnauthorized,
	chain.ErrMalformedRecord,
	chain.ErrConflict,
	chain.ErrSubmissionFailed,
	chain.ErrUnknownOutcome,
	chain.ErrDecimalOverflow,
	chain.ErrInvalidAmount,
}

// mapError wraps a remote failure with the chain error its message names
// so callers can use errors.Is across the wire.
func mapError(err error) error {
	msg := err.Error()
	for _, e := range known {
		if !strings.Contains(msg, e.Error()) {
			continue
		}
		r := &RemoteError{msg: msg, causes: []error{e}}
		if e == chain.ErrConflict {
			r.causes = append(r.causes, chain.ErrSubmissionFailed)
		}
		return r
	}
	return err
}

// RemoteError is a failure reported by the daemon.
type RemoteError struct {
	msg    string
	causes []error
}

func (e *RemoteError) Error() string { return e.msg }

func (e *RemoteError) Is(target error) bool {
	for _, c := range e.causes {
		if errors.Is(c, target) {
			return true
		}
	}
	return false
}

// IsRemote returns true if [err] was reported by the daemon.
func IsRemote(err error) bool {
	var r *RemoteError
	return errors.As(err, &r)
}
