package seal

import (
	"crypto/sha256"
	"encoding"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"

	bls "github.com/cloudflare/circl/ecc/bls12381"
	"github.com/sealkit/seal/internal/shamir"
	"golang.org/x/crypto/hkdf"
)

const (
	// MasterKeySize is the size of a marshaled master key in bytes.
	MasterKeySize = 32

	// PublicKeySize is the size of a marshaled public key in bytes.
	PublicKeySize = bls.G2SizeCompressed

	// UserSecretKeySize is the size of a marshaled user secret key in bytes.
	UserSecretKeySize = bls.G1SizeCompressed
)

var keyEncoding = base64.RawURLEncoding

// MasterKey is a key server's master secret, a scalar of the BLS12-381 scalar
// field. It never needs to leave the server boundary.
type MasterKey struct {
	s bls.Scalar
}

// PublicKey is the widely distributed counterpart of a master key.
type PublicKey struct {
	p bls.G2
}

// UserSecretKey is the private key a server extracts for one identity.
type UserSecretKey struct {
	p bls.G1
}

// GenerateKeyPair samples a fresh master key and returns it with its public
// key.
func GenerateKeyPair(rand io.Reader) (*MasterKey, *PublicKey, error) {
	s, err := shamir.RandomScalar(rand)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling master key: %w", err)
	}

	mk := &MasterKey{s: *s}

	return mk, mk.PublicKey(), nil
}

// PublicKey returns the public key for the given master key.
func (mk *MasterKey) PublicKey() *PublicKey {
	var pk PublicKey
	pk.p.ScalarMult(&mk.s, bls.G2Generator())

	return &pk
}

func (mk *MasterKey) MarshalBinary() ([]byte, error) {
	return mk.s.MarshalBinary()
}

func (mk *MasterKey) UnmarshalBinary(data []byte) error {
	if err := mk.s.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("invalid master key: %w", err)
	}

	return nil
}

func (mk *MasterKey) MarshalText() ([]byte, error) {
	return marshalKeyText(mk)
}

func (mk *MasterKey) UnmarshalText(text []byte) error {
	return unmarshalKeyText(mk, text)
}

func (pk *PublicKey) Equals(other *PublicKey) bool {
	return pk.p.IsEqual(&other.p)
}

func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	return pk.p.BytesCompressed(), nil
}

func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	if len(data) != PublicKeySize {
		return fmt.Errorf("invalid public key: %d bytes", len(data))
	}

	if err := pk.p.SetBytes(data); err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}

	return nil
}

func (pk *PublicKey) MarshalText() ([]byte, error) {
	return marshalKeyText(pk)
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	return unmarshalKeyText(pk, text)
}

func (pk *PublicKey) String() string {
	text, _ := pk.MarshalText()
	return string(text)
}

func (usk *UserSecretKey) MarshalBinary() ([]byte, error) {
	return usk.p.BytesCompressed(), nil
}

func (usk *UserSecretKey) UnmarshalBinary(data []byte) error {
	if len(data) != UserSecretKeySize {
		return fmt.Errorf("invalid user secret key: %d bytes", len(data))
	}

	if err := usk.p.SetBytes(data); err != nil {
		return fmt.Errorf("invalid user secret key: %w", err)
	}

	return nil
}

func (usk *UserSecretKey) MarshalText() ([]byte, error) {
	return marshalKeyText(usk)
}

func (usk *UserSecretKey) UnmarshalText(text []byte) error {
	return unmarshalKeyText(usk, text)
}

var (
	_ encoding.BinaryMarshaler   = &MasterKey{}
	_ encoding.BinaryUnmarshaler = &MasterKey{}
	_ encoding.TextMarshaler     = &PublicKey{}
	_ encoding.TextUnmarshaler   = &PublicKey{}
	_ fmt.Stringer               = &PublicKey{}
	_ encoding.BinaryMarshaler   = &UserSecretKey{}
	_ encoding.BinaryUnmarshaler = &UserSecretKey{}
)

// SeedSize is the size of a master key derivation seed in bytes.
const SeedSize = 32

// Seed deterministically derives master keys by index, so one stored secret
// can back many key pairs.
type Seed [SeedSize]byte

// NewSeed returns a fresh random seed.
func NewSeed(rand io.Reader) (*Seed, error) {
	var seed Seed
	if _, err := io.ReadFull(rand, seed[:]); err != nil {
		return nil, fmt.Errorf("sampling seed: %w", err)
	}

	return &seed, nil
}

// DeriveMasterKey derives the master key at the given index. The same seed
// and index always yield the same key.
func (seed *Seed) DeriveMasterKey(index uint64) *MasterKey {
	var info [8]byte
	binary.BigEndian.PutUint64(info[:], index)

	h := hkdf.New(sha256.New, seed[:], nil, append([]byte(infoMasterKey), info[:]...))

	wide := make([]byte, wideScalarSize)
	_, _ = io.ReadFull(h, wide)

	return &MasterKey{s: *scalarFromWide(wide)}
}

type keyMarshaler interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

func marshalKeyText(k keyMarshaler) ([]byte, error) {
	b, err := k.MarshalBinary()
	if err != nil {
		return nil, err
	}

	text := make([]byte, keyEncoding.EncodedLen(len(b)))
	keyEncoding.Encode(text, b)

	return text, nil
}

func unmarshalKeyText(k keyMarshaler, text []byte) error {
	b, err := keyEncoding.DecodeString(string(text))
	if err != nil {
		return err
	}

	return k.UnmarshalBinary(b)
}
