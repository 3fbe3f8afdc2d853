// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Format identifies a record encoding.
type Format uint8

const (
	// FormatExtensible is the variable-length encoding stored in an
	// extension entry.
	FormatExtensible Format = iota + 1
	// FormatLegacy is the fixed-size encoding stored in a derived account.
	FormatLegacy
)

const (
	publicKeyLen = 32
	// u32 length prefix of every string
	stringPrefixLen = 4
	// u32 key length + u32 value length
	FieldOverhead = 2 * stringPrefixLen

	legacyKeyMetadataV1 = 4
	// Maximum padded sizes of the legacy fixed fields
	LegacyMaxNameLen   = 32
	LegacyMaxSymbolLen = 10
	LegacyMaxURILen    = 200
	// LegacyAccountSize is the allocation of every legacy record account.
	LegacyAccountSize = 679

	creatorLen = publicKeyLen + 2
)

// PayloadSize returns the exact number of bytes EncodeRecord produces for
// [r] in the extensible format.
func PayloadSize(r *Record) uint64 {
	n := uint64(2*publicKeyLen + 3*stringPrefixLen)
	n += uint64(len(r.Name) + len(r.Symbol) + len(r.URI))
	n += stringPrefixLen
	for _, f := range r.AdditionalFields {
		n += FieldOverhead + uint64(len(f.Key)+len(f.Value))
	}
	return n
}

// EncodeRecord serializes [r] in [format].
func EncodeRecord(format Format, r *Record) ([]byte, error) {
	switch format {
	case FormatExtensible:
		return encodeExtensible(r)
	case FormatLegacy:
		return encodeLegacy(r)
	default:
		return nil, fmt.Errorf("%w: unknown format %d", ErrInvalidSpec, format)
	}
}

// DecodeRecord parses a record in [format] from [b].
func DecodeRecord(format Format, b []byte) (*Record, error) {
	switch format {
	case FormatExtensible:
		return decodeExtensible(b)
	case FormatLegacy:
		return decodeLegacy(b)
	default:
		return nil, fmt.Errorf("%w: unknown format %d", ErrInvalidSpec, format)
	}
}

// update_authority (32, zero = none)
// mint (32)
// name, symbol, uri (u32 len + utf8)
// additional_metadata (u32 count, count x (key, value))
func encodeExtensible(r *Record) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, PayloadSize(r)))
	enc := bin.NewBinEncoder(buf)
	if err := writeOptionalKey(enc, r.UpdateAuthority); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(r.Mint[:], false); err != nil {
		return nil, err
	}
	for _, s := range []string{r.Name, r.Symbol, r.URI} {
		if err := writeString(enc, s); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint32(uint32(len(r.AdditionalFields)), binary.LittleEndian); err != nil {
		return nil, err
	}
	for _, f := range r.AdditionalFields {
		if err := writeString(enc, f.Key); err != nil {
			return nil, err
		}
		if err := writeString(enc, f.Value); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeExtensible(b []byte) (*Record, error) {
	dec := bin.NewBinDecoder(b)
	ua, err := readPublicKey(dec)
	if err != nil {
		return nil, err
	}
	mint, err := readPublicKey(dec)
	if err != nil {
		return nil, err
	}
	r := &Record{Mint: mint}
	if !ua.IsZero() {
		r.UpdateAuthority = &ua
	}
	if r.Name, err = readString(dec); err != nil {
		return nil, err
	}
	if r.Symbol, err = readString(dec); err != nil {
		return nil, err
	}
	if r.URI, err = readString(dec); err != nil {
		return nil, err
	}
	count, err := readUint32(dec)
	if err != nil {
		return nil, err
	}
	if uint64(count)*FieldOverhead > uint64(dec.Remaining()) {
		return nil, fmt.Errorf("%w: %d fields in %d bytes", ErrFieldCount, count, dec.Remaining())
	}
	if count > 0 {
		r.AdditionalFields = make([]Field, 0, count)
	}
	for i := uint32(0); i < count; i++ {
		k, err := readString(dec)
		if err != nil {
			return nil, err
		}
		v, err := readString(dec)
		if err != nil {
			return nil, err
		}
		r.AdditionalFields = append(r.AdditionalFields, Field{Key: k, Value: v})
	}
	if dec.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingBytes, dec.Remaining())
	}
	return r, nil
}

// key (u8 = 4)
// update_authority (32), mint (32)
// name, symbol, uri (u32 len + NUL padded bytes)
// seller_fee_basis_points (u16)
// creators (option of u32 count x (address, verified, share))
// primary_sale_happened, is_mutable (bool)
// edition_nonce, token_standard, collection, uses (options)
// tail (preserved)
func encodeLegacy(r *Record) ([]byte, error) {
	attrs := r.Legacy
	if attrs == nil {
		attrs = &LegacyAttributes{IsMutable: r.UpdateAuthority != nil}
	}
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint8(legacyKeyMetadataV1); err != nil {
		return nil, err
	}
	if err := writeOptionalKey(enc, r.UpdateAuthority); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(r.Mint[:], false); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		s   string
		max int
	}{
		{r.Name, LegacyMaxNameLen},
		{r.Symbol, LegacyMaxSymbolLen},
		{r.URI, LegacyMaxURILen},
	} {
		if err := writePaddedString(enc, f.s, f.max); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint16(attrs.SellerFeeBasisPoints, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := writeCreators(enc, attrs.Creators); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(attrs.PrimarySaleHappened); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(attrs.IsMutable); err != nil {
		return nil, err
	}
	if err := writeOptionalUint8(enc, attrs.EditionNonce); err != nil {
		return nil, err
	}
	if err := writeOptionalUint8(enc, attrs.TokenStandard); err != nil {
		return nil, err
	}
	if err := writeCollection(enc, attrs.Collection); err != nil {
		return nil, err
	}
	if err := writeUses(enc, attrs.Uses); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(attrs.Tail, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeLegacy(b []byte) (*Record, error) {
	if len(b) == 0 {
		return nil, ErrShortBuffer
	}
	if b[0] != legacyKeyMetadataV1 {
		return nil, fmt.Errorf("%w: legacy key %d", ErrFormatMismatch, b[0])
	}
	dec := bin.NewBinDecoder(b[1:])
	ua, err := readPublicKey(dec)
	if err != nil {
		return nil, err
	}
	mint, err := readPublicKey(dec)
	if err != nil {
		return nil, err
	}
	r := &Record{UpdateAuthority: &ua, Mint: mint, Legacy: &LegacyAttributes{}}
	if r.Name, err = readPaddedString(dec); err != nil {
		return nil, err
	}
	if r.Symbol, err = readPaddedString(dec); err != nil {
		return nil, err
	}
	if r.URI, err = readPaddedString(dec); err != nil {
		return nil, err
	}
	attrs := r.Legacy
	if dec.Remaining() < 2 {
		return nil, ErrShortBuffer
	}
	if attrs.SellerFeeBasisPoints, err = dec.ReadUint16(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	if attrs.Creators, err = readCreators(dec); err != nil {
		return nil, err
	}
	if attrs.PrimarySaleHappened, err = readBool(dec); err != nil {
		return nil, err
	}
	if attrs.IsMutable, err = readBool(dec); err != nil {
		return nil, err
	}

	// Older records end before the optional fields.
	if attrs.EditionNonce, err = readOptionalUint8(dec); err != nil {
		return nil, err
	}
	if attrs.TokenStandard, err = readOptionalUint8(dec); err != nil {
		return nil, err
	}
	if attrs.Collection, err = readCollection(dec); err != nil {
		return nil, err
	}
	if attrs.Uses, err = readUses(dec); err != nil {
		return nil, err
	}
	if n := dec.Remaining(); n > 0 {
		tail, err := dec.ReadNBytes(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
		}
		attrs.Tail = append([]byte(nil), tail...)
	}
	return r, nil
}

func writeString(enc *bin.Encoder, s string) error {
	if err := enc.WriteUint32(uint32(len(s)), binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes([]byte(s), false)
}

func writePaddedString(enc *bin.Encoder, s string, max int) error {
	if len(s) > max {
		return fmt.Errorf("%w: %q longer than %d bytes", ErrFieldTooLong, s, max)
	}
	if strings.ContainsRune(s, 0) {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidSpec, s)
	}
	b := make([]byte, max)
	copy(b, s)
	if err := enc.WriteUint32(uint32(max), binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes(b, false)
}

func writeOptionalKey(enc *bin.Encoder, pk *solana.PublicKey) error {
	var b solana.PublicKey
	if pk != nil {
		b = *pk
	}
	return enc.WriteBytes(b[:], false)
}

func writeOptionalUint8(enc *bin.Encoder, v *uint8) error {
	if v == nil {
		return enc.WriteBool(false)
	}
	if err := enc.WriteBool(true); err != nil {
		return err
	}
	return enc.WriteUint8(*v)
}

func writeCreators(enc *bin.Encoder, creators []Creator) error {
	if creators == nil {
		return enc.WriteBool(false)
	}
	if err := enc.WriteBool(true); err != nil {
		return err
	}
	if err := enc.WriteUint32(uint32(len(creators)), binary.LittleEndian); err != nil {
		return err
	}
	for _, c := range creators {
		if err := enc.WriteBytes(c.Address[:], false); err != nil {
			return err
		}
		if err := enc.WriteBool(c.Verified); err != nil {
			return err
		}
		if err := enc.WriteUint8(c.Share); err != nil {
			return err
		}
	}
	return nil
}

func writeCollection(enc *bin.Encoder, c *Collection) error {
	if c == nil {
		return enc.WriteBool(false)
	}
	if err := enc.WriteBool(true); err != nil {
		return err
	}
	if err := enc.WriteBool(c.Verified); err != nil {
		return err
	}
	return enc.WriteBytes(c.Key[:], false)
}

func writeUses(enc *bin.Encoder, u *Uses) error {
	if u == nil {
		return enc.WriteBool(false)
	}
	if err := enc.WriteBool(true); err != nil {
		return err
	}
	if err := enc.WriteUint8(u.Method); err != nil {
		return err
	}
	if err := enc.WriteUint64(u.Remaining, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteUint64(u.Total, binary.LittleEndian)
}

func readUint32(dec *bin.Decoder) (uint32, error) {
	if dec.Remaining() < 4 {
		return 0, ErrShortBuffer
	}
	v, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	return v, nil
}

func readBool(dec *bin.Decoder) (bool, error) {
	if dec.Remaining() < 1 {
		return false, ErrShortBuffer
	}
	v, err := dec.ReadUint8()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid bool %d", ErrMalformedRecord, v)
	}
}

func readString(dec *bin.Decoder) (string, error) {
	n, err := readUint32(dec)
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(dec.Remaining()) {
		return "", fmt.Errorf("%w: %d > %d", ErrShortBuffer, n, dec.Remaining())
	}
	b, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	return string(b), nil
}

func readPaddedString(dec *bin.Decoder) (string, error) {
	s, err := readString(dec)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, "\x00"), nil
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	if dec.Remaining() < publicKeyLen {
		return solana.PublicKey{}, ErrShortBuffer
	}
	b, err := dec.ReadNBytes(publicKeyLen)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	return solana.PublicKeyFromBytes(b), nil
}

// readOption returns false when the option is absent or the buffer ended.
func readOption(dec *bin.Decoder) (bool, error) {
	if dec.Remaining() == 0 {
		return false, nil
	}
	return readBool(dec)
}

func readOptionalUint8(dec *bin.Decoder) (*uint8, error) {
	some, err := readOption(dec)
	if err != nil || !some {
		return nil, err
	}
	if dec.Remaining() < 1 {
		return nil, ErrShortBuffer
	}
	v, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	return &v, nil
}

func readCreators(dec *bin.Decoder) ([]Creator, error) {
	some, err := readBool(dec)
	if err != nil || !some {
		return nil, err
	}
	count, err := readUint32(dec)
	if err != nil {
		return nil, err
	}
	if uint64(count)*creatorLen > uint64(dec.Remaining()) {
		return nil, fmt.Errorf("%w: %d creators in %d bytes", ErrFieldCount, count, dec.Remaining())
	}
	creators := make([]Creator, 0, count)
	for i := uint32(0); i < count; i++ {
		addr, err := readPublicKey(dec)
		if err != nil {
			return nil, err
		}
		verified, err := readBool(dec)
		if err != nil {
			return nil, err
		}
		share, err := dec.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
		}
		creators = append(creators, Creator{Address: addr, Verified: verified, Share: share})
	}
	return creators, nil
}

func readCollection(dec *bin.Decoder) (*Collection, error) {
	some, err := readOption(dec)
	if err != nil || !some {
		return nil, err
	}
	verified, err := readBool(dec)
	if err != nil {
		return nil, err
	}
	key, err := readPublicKey(dec)
	if err != nil {
		return nil, err
	}
	return &Collection{Verified: verified, Key: key}, nil
}

func readUses(dec *bin.Decoder) (*Uses, error) {
	some, err := readOption(dec)
	if err != nil || !some {
		return nil, err
	}
	if dec.Remaining() < 17 {
		return nil, ErrShortBuffer
	}
	u := new(Uses)
	if u.Method, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	if u.Remaining, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	if u.Total, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	return u, nil
}
