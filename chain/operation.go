// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Operation is a single step of an atomic submission.
type Operation interface {
	// Kind is a short stable label used in logs and metrics.
	Kind() string
	// Instruction returns the ledger instruction performing the step.
	Instruction() (solana.Instruction, error)
}

var (
	_ Operation = &CreateAccount{}
	_ Operation = &Transfer{}
	_ Operation = &InitializeMetadataPointer{}
	_ Operation = &InitializeMint{}
	_ Operation = &InitializeMetadata{}
	_ Operation = &UpdateField{}
	_ Operation = &RemoveKey{}
	_ Operation = &UpdateAuthority{}
	_ Operation = &CreateAssociatedAccount{}
	_ Operation = &MintTo{}
	_ Operation = &CreateMetadataV3{}
	_ Operation = &UpdateMetadataV2{}
)

const (
	tokenInitializeMint     = 0
	tokenMintTo             = 7
	tokenMetadataPointerExt = 39
	metadataPointerInit     = 0

	associatedCreate = 0

	legacyCreateMetadataV3 = 33
	legacyUpdateMetadataV2 = 15

	// Field enum of the metadata interface
	fieldName   = 0
	fieldSymbol = 1
	fieldURI    = 2
	fieldKey    = 3
)

var (
	discInitialize      = discriminator("initialize_account")
	discUpdateField     = discriminator("updating_field")
	discRemoveKey       = discriminator("remove_key_ix")
	discUpdateAuthority = discriminator("update_the_authority")
)

func discriminator(name string) []byte {
	sum := sha256.Sum256([]byte("spl_token_metadata_interface:" + name))
	return sum[:8]
}

// CreateAccount allocates and funds [Account] for [Owner].
type CreateAccount struct {
	Payer    solana.PublicKey
	Account  solana.PublicKey
	Space    uint64
	Lamports uint64
	Owner    solana.PublicKey
}

func (*CreateAccount) Kind() string { return "create-account" }

func (o *CreateAccount) Instruction() (solana.Instruction, error) {
	return system.NewCreateAccountInstruction(o.Lamports, o.Space, o.Owner, o.Payer, o.Account).ValidateAndBuild()
}

// Transfer moves lamports. The builder uses it for balance top-ups.
type Transfer struct {
	From     solana.PublicKey
	To       solana.PublicKey
	Lamports uint64
}

func (*Transfer) Kind() string { return "transfer" }

func (o *Transfer) Instruction() (solana.Instruction, error) {
	return system.NewTransferInstruction(o.Lamports, o.From, o.To).ValidateAndBuild()
}

// InitializeMetadataPointer records where the asset's record lives.
type InitializeMetadataPointer struct {
	Mint      solana.PublicKey
	Authority *solana.PublicKey
	Metadata  solana.PublicKey
}

func (*InitializeMetadataPointer) Kind() string { return "init-metadata-pointer" }

func (o *InitializeMetadataPointer) Instruction() (solana.Instruction, error) {
	data, err := encodeData(func(enc *bin.Encoder) error {
		if err := enc.WriteBytes([]byte{tokenMetadataPointerExt, metadataPointerInit}, false); err != nil {
			return err
		}
		return enc.WriteBytes(PackMetadataPointer(&MetadataPointer{Authority: o.Authority, Address: o.Metadata}), false)
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(Token2022ProgramID, solana.AccountMetaSlice{
		solana.Meta(o.Mint).WRITE(),
	}, data), nil
}

// InitializeMint initializes the asset account.
type InitializeMint struct {
	Program         solana.PublicKey
	Mint            solana.PublicKey
	Decimals        uint8
	MintAuthority   solana.PublicKey
	FreezeAuthority *solana.PublicKey
}

func (*InitializeMint) Kind() string { return "init-mint" }

func (o *InitializeMint) Instruction() (solana.Instruction, error) {
	data, err := encodeData(func(enc *bin.Encoder) error {
		if err := enc.WriteUint8(tokenInitializeMint); err != nil {
			return err
		}
		if err := enc.WriteUint8(o.Decimals); err != nil {
			return err
		}
		if err := enc.WriteBytes(o.MintAuthority[:], false); err != nil {
			return err
		}
		if err := enc.WriteBool(o.FreezeAuthority != nil); err != nil {
			return err
		}
		return writeOptionalKey(enc, o.FreezeAuthority)
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(o.Program, solana.AccountMetaSlice{
		solana.Meta(o.Mint).WRITE(),
		solana.Meta(solana.SysVarRentPubkey),
	}, data), nil
}

// InitializeMetadata writes the fixed fields of a new extensible record.
type InitializeMetadata struct {
	Program         solana.PublicKey
	Metadata        solana.PublicKey
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	MintAuthority   solana.PublicKey
	Name            string
	Symbol          string
	URI             string
}

func (*InitializeMetadata) Kind() string { return "init-metadata" }

func (o *InitializeMetadata) Instruction() (solana.Instruction, error) {
	data, err := encodeData(func(enc *bin.Encoder) error {
		if err := enc.WriteBytes(discInitialize, false); err != nil {
			return err
		}
		for _, s := range []string{o.Name, o.Symbol, o.URI} {
			if err := writeString(enc, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(o.Program, solana.AccountMetaSlice{
		solana.Meta(o.Metadata).WRITE(),
		solana.Meta(o.UpdateAuthority),
		solana.Meta(o.Mint),
		solana.Meta(o.MintAuthority).SIGNER(),
	}, data), nil
}

// UpdateField sets a fixed or additional field of an extensible record.
type UpdateField struct {
	Program         solana.PublicKey
	Metadata        solana.PublicKey
	UpdateAuthority solana.PublicKey
	Key             string
	Value           string
}

func (*UpdateField) Kind() string { return "update-field" }

func (o *UpdateField) Instruction() (solana.Instruction, error) {
	data, err := encodeData(func(enc *bin.Encoder) error {
		if err := enc.WriteBytes(discUpdateField, false); err != nil {
			return err
		}
		switch o.Key {
		case FieldName:
			if err := enc.WriteUint8(fieldName); err != nil {
				return err
			}
		case FieldSymbol:
			if err := enc.WriteUint8(fieldSymbol); err != nil {
				return err
			}
		case FieldURI:
			if err := enc.WriteUint8(fieldURI); err != nil {
				return err
			}
		default:
			if err := enc.WriteUint8(fieldKey); err != nil {
				return err
			}
			if err := writeString(enc, o.Key); err != nil {
				return err
			}
		}
		return writeString(enc, o.Value)
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(o.Program, solana.AccountMetaSlice{
		solana.Meta(o.Metadata).WRITE(),
		solana.Meta(o.UpdateAuthority).SIGNER(),
	}, data), nil
}

// RemoveKey drops an additional field of an extensible record.
type RemoveKey struct {
	Program         solana.PublicKey
	Metadata        solana.PublicKey
	UpdateAuthority solana.PublicKey
	Key             string
	// Succeed when the key is absent.
	Idempotent bool
}

func (*RemoveKey) Kind() string { return "remove-key" }

func (o *RemoveKey) Instruction() (solana.Instruction, error) {
	data, err := encodeData(func(enc *bin.Encoder) error {
		if err := enc.WriteBytes(discRemoveKey, false); err != nil {
			return err
		}
		if err := enc.WriteBool(o.Idempotent); err != nil {
			return err
		}
		return writeString(enc, o.Key)
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(o.Program, solana.AccountMetaSlice{
		solana.Meta(o.Metadata).WRITE(),
		solana.Meta(o.UpdateAuthority).SIGNER(),
	}, data), nil
}

// UpdateAuthority replaces the update authority of an extensible record.
// A nil [NewAuthority] freezes the record.
type UpdateAuthority struct {
	Program         solana.PublicKey
	Metadata        solana.PublicKey
	UpdateAuthority solana.PublicKey
	NewAuthority    *solana.PublicKey
}

func (*UpdateAuthority) Kind() string { return "update-authority" }

func (o *UpdateAuthority) Instruction() (solana.Instruction, error) {
	data, err := encodeData(func(enc *bin.Encoder) error {
		if err := enc.WriteBytes(discUpdateAuthority, false); err != nil {
			return err
		}
		return writeOptionalKey(enc, o.NewAuthority)
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(o.Program, solana.AccountMetaSlice{
		solana.Meta(o.Metadata).WRITE(),
		solana.Meta(o.UpdateAuthority).SIGNER(),
	}, data), nil
}

// CreateAssociatedAccount creates the holder account of [Mint] for [Owner].
type CreateAssociatedAccount struct {
	Payer        solana.PublicKey
	Account      solana.PublicKey
	Owner        solana.PublicKey
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey
}

func (*CreateAssociatedAccount) Kind() string { return "create-associated-account" }

func (o *CreateAssociatedAccount) Instruction() (solana.Instruction, error) {
	return solana.NewInstruction(AssociatedTokenProgramID, solana.AccountMetaSlice{
		solana.Meta(o.Payer).WRITE().SIGNER(),
		solana.Meta(o.Account).WRITE(),
		solana.Meta(o.Owner),
		solana.Meta(o.Mint),
		solana.Meta(SystemProgramID),
		solana.Meta(o.TokenProgram),
	}, []byte{associatedCreate}), nil
}

// MintTo issues [Amount] base units of [Mint] into [Destination].
type MintTo struct {
	Program     solana.PublicKey
	Mint        solana.PublicKey
	Destination solana.PublicKey
	Authority   solana.PublicKey
	Amount      uint64
}

func (*MintTo) Kind() string { return "mint-to" }

func (o *MintTo) Instruction() (solana.Instruction, error) {
	data := make([]byte, 9)
	data[0] = tokenMintTo
	binary.LittleEndian.PutUint64(data[1:], o.Amount)
	return solana.NewInstruction(o.Program, solana.AccountMetaSlice{
		solana.Meta(o.Mint).WRITE(),
		solana.Meta(o.Destination).WRITE(),
		solana.Meta(o.Authority).SIGNER(),
	}, data), nil
}

// LegacyData is the mutable part of a legacy record.
type LegacyData struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	Collection           *Collection
	Uses                 *Uses
}

// LegacyDataFrom copies the mutable part of [r].
func LegacyDataFrom(r *Record) LegacyData {
	d := LegacyData{Name: r.Name, Symbol: r.Symbol, URI: r.URI}
	if r.Legacy != nil {
		d.SellerFeeBasisPoints = r.Legacy.SellerFeeBasisPoints
		d.Creators = r.Legacy.Creators
		d.Collection = r.Legacy.Collection
		d.Uses = r.Legacy.Uses
	}
	return d
}

func (d *LegacyData) encode(enc *bin.Encoder) error {
	for _, s := range []string{d.Name, d.Symbol, d.URI} {
		if err := writeString(enc, s); err != nil {
			return err
		}
	}
	if err := enc.WriteUint16(d.SellerFeeBasisPoints, binary.LittleEndian); err != nil {
		return err
	}
	if err := writeCreators(enc, d.Creators); err != nil {
		return err
	}
	if err := writeCollection(enc, d.Collection); err != nil {
		return err
	}
	return writeUses(enc, d.Uses)
}

// CreateMetadataV3 creates a legacy record in its derived account.
type CreateMetadataV3 struct {
	Metadata        solana.PublicKey
	Mint            solana.PublicKey
	MintAuthority   solana.PublicKey
	Payer           solana.PublicKey
	UpdateAuthority solana.PublicKey
	Data            LegacyData
	IsMutable       bool
}

func (*CreateMetadataV3) Kind() string { return "create-metadata-v3" }

func (o *CreateMetadataV3) Instruction() (solana.Instruction, error) {
	data, err := encodeData(func(enc *bin.Encoder) error {
		if err := enc.WriteUint8(legacyCreateMetadataV3); err != nil {
			return err
		}
		if err := o.Data.encode(enc); err != nil {
			return err
		}
		if err := enc.WriteBool(o.IsMutable); err != nil {
			return err
		}
		// collection details
		return enc.WriteBool(false)
	})
	if err != nil {
		return nil, err
	}
	ua := solana.Meta(o.UpdateAuthority)
	if o.UpdateAuthority.Equals(o.Payer) {
		ua = ua.SIGNER()
	}
	return solana.NewInstruction(MetadataProgramID, solana.AccountMetaSlice{
		solana.Meta(o.Metadata).WRITE(),
		solana.Meta(o.Mint),
		solana.Meta(o.MintAuthority).SIGNER(),
		solana.Meta(o.Payer).WRITE().SIGNER(),
		ua,
		solana.Meta(SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}, data), nil
}

// UpdateMetadataV2 replaces the data of a legacy record. Authority,
// primary sale and mutability are left as they are.
type UpdateMetadataV2 struct {
	Metadata        solana.PublicKey
	UpdateAuthority solana.PublicKey
	Data            LegacyData
}

func (*UpdateMetadataV2) Kind() string { return "update-metadata-v2" }

func (o *UpdateMetadataV2) Instruction() (solana.Instruction, error) {
	data, err := encodeData(func(enc *bin.Encoder) error {
		if err := enc.WriteUint8(legacyUpdateMetadataV2); err != nil {
			return err
		}
		if err := enc.WriteBool(true); err != nil {
			return err
		}
		if err := o.Data.encode(enc); err != nil {
			return err
		}
		// new authority, primary sale, is mutable
		return enc.WriteBytes([]byte{0, 0, 0}, false)
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(MetadataProgramID, solana.AccountMetaSlice{
		solana.Meta(o.Metadata).WRITE(),
		solana.Meta(o.UpdateAuthority).SIGNER(),
	}, data), nil
}

func encodeData(f func(enc *bin.Encoder) error) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := f(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
