// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// TokenProgramID owns assets stored under the derived-account scheme.
	TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	// Token2022ProgramID owns extensible assets and their co-located records.
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	// AssociatedTokenProgramID derives and creates holder accounts.
	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	// MetadataProgramID owns records stored under the derived-account scheme.
	MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	// SystemProgramID creates accounts and moves lamports.
	SystemProgramID = solana.SystemProgramID
)

// MetadataNamespace is the first seed of every derived record address.
var MetadataNamespace = []byte("metadata")

// DeriveAddress returns the program address for
// [namespace, programID, seed] under programID.
func DeriveAddress(namespace []byte, programID solana.PublicKey, seed solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{namespace, programID[:], seed[:]},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return addr, nil
}

// DeriveAssociatedAddress returns the holder account of [asset] for [owner].
func DeriveAssociatedAddress(owner, asset, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], asset[:]},
		AssociatedTokenProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return addr, nil
}

// Locate returns where the record of [asset] lives under [scheme]. [shared]
// is only consulted for the co-located scheme and selects an external
// record account in place of the asset itself.
func Locate(asset solana.PublicKey, scheme Scheme, shared *solana.PublicKey) (Location, error) {
	switch scheme {
	case CoLocated:
		loc := Location{
			Scheme:       CoLocated,
			Asset:        asset,
			Address:      asset,
			Program:      Token2022ProgramID,
			TokenProgram: Token2022ProgramID,
		}
		if shared != nil && !shared.Equals(asset) {
			loc.Address = *shared
		}
		return loc, nil
	case Derived:
		addr, err := DeriveAddress(MetadataNamespace, MetadataProgramID, asset)
		if err != nil {
			return Location{}, err
		}
		return Location{
			Scheme:       Derived,
			Asset:        asset,
			Address:      addr,
			Program:      MetadataProgramID,
			TokenProgram: TokenProgramID,
		}, nil
	default:
		return Location{}, ErrUnknownScheme
	}
}
