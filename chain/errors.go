// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"
)

var (
	// Error classes
	ErrInvalidSpec      = errors.New("invalid spec")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrSubmissionFailed = errors.New("submission failed")
	ErrConflict         = errors.New("conflicting submission")
	ErrUnknownOutcome   = errors.New("submission outcome unknown")
	ErrDecimalOverflow  = errors.New("decimal overflow")
	ErrInvalidAmount    = errors.New("invalid amount")

	// Spec correctness
	ErrDecimalsOutOfRange = fmt.Errorf("%w: decimals out of range", ErrInvalidSpec)
	ErrNameEmpty          = fmt.Errorf("%w: name cannot be empty", ErrInvalidSpec)
	ErrURIEmpty           = fmt.Errorf("%w: uri cannot be empty", ErrInvalidSpec)
	ErrFieldTooLong       = fmt.Errorf("%w: field exceeds scheme limit", ErrInvalidSpec)
	ErrExtensionTooLarge  = fmt.Errorf("%w: extension exceeds tlv length limit", ErrInvalidSpec)
	ErrKeyEmpty           = fmt.Errorf("%w: field key cannot be empty", ErrInvalidSpec)
	ErrKeyReserved        = fmt.Errorf("%w: field key is reserved", ErrInvalidSpec)
	ErrDuplicateKey       = fmt.Errorf("%w: duplicate field key", ErrInvalidSpec)
	ErrUnsupportedField   = fmt.Errorf("%w: scheme does not support additional fields", ErrInvalidSpec)
	ErrFixedField         = fmt.Errorf("%w: fixed field cannot be removed", ErrInvalidSpec)
	ErrUnknownScheme      = fmt.Errorf("%w: unknown storage scheme", ErrInvalidSpec)
	ErrSharedMetadata     = fmt.Errorf("%w: shared metadata account required", ErrInvalidSpec)
	ErrAssetExists        = fmt.Errorf("%w: asset address already in use", ErrInvalidSpec)
	ErrDerivationMismatch = fmt.Errorf("%w: derived address mismatch", ErrInvalidSpec)
	ErrNoOperations       = fmt.Errorf("%w: no operations", ErrInvalidSpec)
	ErrNoSigners          = fmt.Errorf("%w: no signers", ErrInvalidSpec)

	// Authorization
	ErrImmutable        = fmt.Errorf("%w: record is immutable", ErrUnauthorized)
	ErrNotAuthority     = fmt.Errorf("%w: identity is not the update authority", ErrUnauthorized)
	ErrFixedSupply      = fmt.Errorf("%w: asset supply is fixed", ErrUnauthorized)
	ErrNotMintAuthority = fmt.Errorf("%w: identity is not the mint authority", ErrUnauthorized)

	// Record correctness
	ErrShortBuffer    = fmt.Errorf("%w: length prefix exceeds buffer", ErrMalformedRecord)
	ErrFieldCount     = fmt.Errorf("%w: field count exceeds buffer", ErrMalformedRecord)
	ErrTrailingBytes  = fmt.Errorf("%w: unexpected trailing bytes", ErrMalformedRecord)
	ErrFormatMismatch = fmt.Errorf("%w: record format mismatch", ErrMalformedRecord)
	ErrUnknownProgram = fmt.Errorf("%w: asset owned by unknown program", ErrMalformedRecord)
	ErrInvalidMint    = fmt.Errorf("%w: invalid mint account", ErrMalformedRecord)

	// Amounts
	ErrAmountNotPositive = fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	ErrAmountPrecision   = fmt.Errorf("%w: amount has more decimal places than the asset", ErrInvalidAmount)
	ErrSupplyOverflow    = fmt.Errorf("%w: supply exceeds representable range", ErrDecimalOverflow)
)

// SubmissionError is returned by a ledger when it rejects an atomic
// submission. Nothing from the submission was applied.
type SubmissionError struct {
	// Index of the rejected operation, -1 if the ledger did not say.
	Index    int
	Op       string
	Reason   string
	Conflict bool
}

func (e *SubmissionError) Error() string {
	msg := ErrSubmissionFailed.Error()
	if e.Conflict {
		msg = ErrConflict.Error()
	}
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return fmt.Sprintf("%s: operation %d (%s): %s", msg, e.Index, e.Op, e.Reason)
}

func (e *SubmissionError) Is(target error) bool {
	switch target {
	case ErrSubmissionFailed:
		return true
	case ErrConflict:
		return e.Conflict
	}
	return false
}

// UnknownOutcomeError is returned when confirmation could not be observed
// before the deadline. The submission may or may not have been applied.
type UnknownOutcomeError struct {
	ID  string
	Err error
}

func (e *UnknownOutcomeError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", ErrUnknownOutcome, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrUnknownOutcome, e.ID, e.Err)
}

func (e *UnknownOutcomeError) Is(target error) bool { return target == ErrUnknownOutcome }

func (e *UnknownOutcomeError) Unwrap() error { return e.Err }

// IsRetryable returns true if resubmitting the same operations may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
