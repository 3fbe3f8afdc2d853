// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// 0..82     base mint
// 82..165   zero padding (extensible mints only)
// 165       account type (1 = mint)
// 166..     TLV entries (u16 type, u16 length, value)

const (
	MintSize = 82
	// TokenAccountSize is the base size of a holder account. Extensible
	// mints pad up to it so the two account kinds never share a length.
	TokenAccountSize  = 165
	accountTypeOffset = TokenAccountSize
	extensionsOffset  = accountTypeOffset + 1

	AccountTypeMint    = 1
	AccountTypeAccount = 2

	TLVHeaderSize       = 4
	MetadataPointerSize = 2 * publicKeyLen
	// MaxExtensionSize is the largest value a u16 TLV length can describe.
	MaxExtensionSize = math.MaxUint16

	// MaxDecimals is the largest decimals value an asset may carry.
	MaxDecimals = 9
)

// ExtensionType tags a TLV entry.
type ExtensionType uint16

const (
	ExtensionUninitialized   ExtensionType = 0
	ExtensionMetadataPointer ExtensionType = 18
	ExtensionTokenMetadata   ExtensionType = 19
)

// Extension is a single TLV entry.
type Extension struct {
	Type  ExtensionType
	Value []byte
}

// MetadataPointer names the account holding an asset's record.
type MetadataPointer struct {
	Authority *solana.PublicKey
	Address   solana.PublicKey
}

// Mint is the asset account state.
type Mint struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
	Extensions      []Extension
}

// MintLen returns the size of a mint carrying extensions of the given
// value sizes.
func MintLen(valueSizes ...int) uint64 {
	if len(valueSizes) == 0 {
		return MintSize
	}
	n := uint64(extensionsOffset)
	for _, s := range valueSizes {
		n += TLVHeaderSize + uint64(s)
	}
	return n
}

// Extension returns the value of the first entry of type [t].
func (m *Mint) Extension(t ExtensionType) ([]byte, bool) {
	for _, e := range m.Extensions {
		if e.Type == t {
			return e.Value, true
		}
	}
	return nil, false
}

// SetExtension replaces the entry of type [t] or appends a new one.
func (m *Mint) SetExtension(t ExtensionType, v []byte) {
	for i, e := range m.Extensions {
		if e.Type == t {
			m.Extensions[i].Value = v
			return
		}
	}
	m.Extensions = append(m.Extensions, Extension{Type: t, Value: v})
}

// MetadataPointer returns the pointer extension, if present.
func (m *Mint) MetadataPointer() (*MetadataPointer, bool, error) {
	v, ok := m.Extension(ExtensionMetadataPointer)
	if !ok {
		return nil, false, nil
	}
	p, err := UnpackMetadataPointer(v)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Pack serializes the mint. An extension value longer than
// MaxExtensionSize is an error.
func (m *Mint) Pack() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, MintSize))
	enc := bin.NewBinEncoder(buf)
	// Writes into a bytes.Buffer do not fail.
	_ = writeCOption(enc, m.MintAuthority)
	_ = enc.WriteUint64(m.Supply, binary.LittleEndian)
	_ = enc.WriteUint8(m.Decimals)
	_ = enc.WriteBool(m.IsInitialized)
	_ = writeCOption(enc, m.FreezeAuthority)
	if len(m.Extensions) == 0 {
		return buf.Bytes(), nil
	}
	tlv, err := PackTLV(m.Extensions)
	if err != nil {
		return nil, err
	}
	_ = enc.WriteBytes(make([]byte, accountTypeOffset-MintSize), false)
	_ = enc.WriteUint8(AccountTypeMint)
	_ = enc.WriteBytes(tlv, false)
	return buf.Bytes(), nil
}

// UnpackMint parses a mint account.
func UnpackMint(data []byte) (*Mint, error) {
	if len(data) < MintSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMint, len(data))
	}
	dec := bin.NewBinDecoder(data[:MintSize])
	m := new(Mint)
	var err error
	if m.MintAuthority, err = readCOption(dec); err != nil {
		return nil, err
	}
	if m.Supply, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMint, err)
	}
	if m.Decimals, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMint, err)
	}
	if m.IsInitialized, err = readBool(dec); err != nil {
		return nil, err
	}
	if m.FreezeAuthority, err = readCOption(dec); err != nil {
		return nil, err
	}
	if len(data) == MintSize {
		return m, nil
	}
	if len(data) < extensionsOffset {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMint, len(data))
	}
	// The type is written when the mint is initialized, so extensions of
	// an uninitialized mint follow a zero type byte.
	switch t := data[accountTypeOffset]; {
	case t == AccountTypeMint:
	case t == 0 && !m.IsInitialized:
	default:
		return nil, fmt.Errorf("%w: account type %d", ErrInvalidMint, t)
	}
	if m.Extensions, err = ParseTLV(data[extensionsOffset:]); err != nil {
		return nil, err
	}
	return m, nil
}

// PackTLV serializes extension entries.
func PackTLV(exts []Extension) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	for _, e := range exts {
		if len(e.Value) > MaxExtensionSize {
			return nil, fmt.Errorf("%w: extension %d is %d bytes", ErrExtensionTooLarge, e.Type, len(e.Value))
		}
		_ = enc.WriteUint16(uint16(e.Type), binary.LittleEndian)
		_ = enc.WriteUint16(uint16(len(e.Value)), binary.LittleEndian)
		_ = enc.WriteBytes(e.Value, false)
	}
	return buf.Bytes(), nil
}

// ParseTLV parses extension entries. A zero header or fewer than
// TLVHeaderSize remaining bytes end the list.
func ParseTLV(b []byte) ([]Extension, error) {
	var exts []Extension
	dec := bin.NewBinDecoder(b)
	for dec.Remaining() >= TLVHeaderSize {
		t, err := dec.ReadUint16(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
		}
		n, err := dec.ReadUint16(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
		}
		if ExtensionType(t) == ExtensionUninitialized && n == 0 {
			break
		}
		if int(n) > dec.Remaining() {
			return nil, fmt.Errorf("%w: extension %d length %d > %d", ErrShortBuffer, t, n, dec.Remaining())
		}
		v, err := dec.ReadNBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
		}
		exts = append(exts, Extension{Type: ExtensionType(t), Value: append([]byte(nil), v...)})
	}
	return exts, nil
}

// FindTokenMetadata decodes the record stored in a TLV stream.
func FindTokenMetadata(exts []Extension) (*Record, bool, error) {
	for _, e := range exts {
		if e.Type != ExtensionTokenMetadata {
			continue
		}
		r, err := DecodeRecord(FormatExtensible, e.Value)
		if err != nil {
			return nil, false, err
		}
		return r, true, nil
	}
	return nil, false, nil
}

// PackMetadataPointer serializes the pointer extension value.
func PackMetadataPointer(p *MetadataPointer) []byte {
	b := make([]byte, 0, MetadataPointerSize)
	if p.Authority != nil {
		b = append(b, p.Authority[:]...)
	} else {
		b = append(b, make([]byte, publicKeyLen)...)
	}
	return append(b, p.Address[:]...)
}

// UnpackMetadataPointer parses the pointer extension value.
func UnpackMetadataPointer(b []byte) (*MetadataPointer, error) {
	if len(b) != MetadataPointerSize {
		return nil, fmt.Errorf("%w: metadata pointer of %d bytes", ErrInvalidMint, len(b))
	}
	p := &MetadataPointer{Address: solana.PublicKeyFromBytes(b[publicKeyLen:])}
	if auth := solana.PublicKeyFromBytes(b[:publicKeyLen]); !auth.IsZero() {
		p.Authority = &auth
	}
	return p, nil
}

// TokenAccount is a holder account of an asset.
type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// Pack serializes the holder account. Delegation and close authority are
// always empty.
func (a *TokenAccount) Pack() []byte {
	b := make([]byte, TokenAccountSize)
	copy(b, a.Mint[:])
	copy(b[publicKeyLen:], a.Owner[:])
	binary.LittleEndian.PutUint64(b[2*publicKeyLen:], a.Amount)
	// state: initialized
	b[2*publicKeyLen+8+36] = 1
	return b
}

// UnpackTokenAccount parses a holder account.
func UnpackTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("%w: token account of %d bytes", ErrMalformedRecord, len(data))
	}
	return &TokenAccount{
		Mint:   solana.PublicKeyFromBytes(data[:publicKeyLen]),
		Owner:  solana.PublicKeyFromBytes(data[publicKeyLen : 2*publicKeyLen]),
		Amount: binary.LittleEndian.Uint64(data[2*publicKeyLen:]),
	}, nil
}

func writeCOption(enc *bin.Encoder, pk *solana.PublicKey) error {
	var (
		tag uint32
		b   solana.PublicKey
	)
	if pk != nil {
		tag, b = 1, *pk
	}
	if err := enc.WriteUint32(tag, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes(b[:], false)
}

func readCOption(dec *bin.Decoder) (*solana.PublicKey, error) {
	tag, err := readUint32(dec)
	if err != nil {
		return nil, err
	}
	pk, err := readPublicKey(dec)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		return &pk, nil
	default:
		return nil, fmt.Errorf("%w: option tag %d", ErrInvalidMint, tag)
	}
}
