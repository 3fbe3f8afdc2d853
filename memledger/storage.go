// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memledger

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/gagliardetto/solana-go"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/codec"
)

// 0x0/ (accounts)
//   -> [address]
// 0x1/ (confirmations)
//   -> [confirmation id]

const (
	accountPrefix      = 0x0
	confirmationPrefix = 0x1

	delimiter = '/'
)

type accountRecord struct {
	Owner    [32]byte `serialize:"true"`
	Lamports uint64   `serialize:"true"`
	Data     []byte   `serialize:"true"`
}

type confirmationRecord struct {
	Slot       uint64   `serialize:"true"`
	Operations []string `serialize:"true"`
}

func AccountKey(addr solana.PublicKey) []byte {
	return append([]byte{accountPrefix, delimiter}, addr[:]...)
}

func ConfirmationKey(id []byte) []byte {
	return append([]byte{confirmationPrefix, delimiter}, id...)
}

func GetAccount(db database.KeyValueReader, addr solana.PublicKey) (*chain.Account, bool, error) {
	k := AccountKey(addr)
	has, err := db.Has(k)
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	v, err := db.Get(k)
	if err != nil {
		return nil, false, err
	}
	var r accountRecord
	if _, err := codec.Unmarshal(v, &r); err != nil {
		return nil, false, err
	}
	return &chain.Account{
		Address:  addr,
		Owner:    solana.PublicKeyFromBytes(r.Owner[:]),
		Lamports: r.Lamports,
		Data:     r.Data,
	}, true, nil
}

func PutAccount(db database.KeyValueWriter, acct *chain.Account) error {
	r := &accountRecord{
		Owner:    acct.Owner,
		Lamports: acct.Lamports,
		Data:     acct.Data,
	}
	if r.Data == nil {
		r.Data = []byte{}
	}
	b, err := codec.Marshal(r)
	if err != nil {
		return err
	}
	return db.Put(AccountKey(acct.Address), b)
}

func DeleteAccount(db database.KeyValueDeleter, addr solana.PublicKey) error {
	return db.Delete(AccountKey(addr))
}

func PutConfirmation(db database.KeyValueWriter, id []byte, slot uint64, kinds []string) error {
	b, err := codec.Marshal(&confirmationRecord{Slot: slot, Operations: kinds})
	if err != nil {
		return err
	}
	return db.Put(ConfirmationKey(id), b)
}

func GetConfirmation(db database.KeyValueReader, id []byte) (uint64, []string, bool, error) {
	k := ConfirmationKey(id)
	has, err := db.Has(k)
	if err != nil {
		return 0, nil, false, err
	}
	if !has {
		return 0, nil, false, nil
	}
	v, err := db.Get(k)
	if err != nil {
		return 0, nil, false, err
	}
	var r confirmationRecord
	if _, err := codec.Unmarshal(v, &r); err != nil {
		return 0, nil, false, err
	}
	return r.Slot, r.Operations, true, nil
}
