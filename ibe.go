package seal

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	bls "github.com/cloudflare/circl/ecc/bls12381"
	"github.com/sealkit/seal/internal/shamir"
	"golang.org/x/crypto/hkdf"
)

// Domain separation strings. Changing any of these changes every derived key.
const (
	dstIdentity   = "SEALKIT-SEAL-IBE-BLS12381G1_XMD:SHA-256_SSWU_RO_H1"
	infoNonce     = "sealkit-seal-v1 encapsulation nonce"
	infoShareMask = "sealkit-seal-v1 share mask"
	infoKEMSecret = "sealkit-seal-v1 kem secret"
	infoDEMKey    = "sealkit-seal-v1 dem key"
	infoSubkeys   = "sealkit-seal-v1 envelope subkeys"
	infoMasterKey = "sealkit-seal-v1 master key"
)

const (
	// KeySize is the size of the derived symmetric key in bytes.
	KeySize = 32

	scalarSize = 32

	// Scalars are derived from 48-byte hash outputs before reduction, keeping
	// the bias from the modular reduction negligible.
	wideScalarSize = 48
)

// Extract derives the user secret key for a full identity from a master key.
// Extraction is deterministic: repeating it always yields the same key.
func Extract(mk *MasterKey, fullID []byte) *UserSecretKey {
	var usk UserSecretKey
	usk.p.ScalarMult(&mk.s, hashToG1(fullID))

	return &usk
}

// VerifyUserSecretKey checks that a server-issued user secret key is
// consistent with the server's public master key, without needing the master
// secret. A key that fails this check must not be trusted.
func VerifyUserSecretKey(usk *UserSecretKey, fullID []byte, pk *PublicKey) error {
	// e(usk, g2) == e(H1(id), pk) iff usk == s·H1(id).
	lhs := bls.Pair(&usk.p, bls.G2Generator())
	rhs := bls.Pair(hashToG1(fullID), &pk.p)

	if !lhs.IsEqual(rhs) {
		return fmt.Errorf("%w: user secret key does not match public key", ErrAuthentication)
	}

	return nil
}

// encapsulate derives a fresh shared secret for the identity under the given
// public key, returning the ephemeral public key which lets holders of the
// extracted user secret key recover the same secret.
func encapsulate(rand io.Reader, pk *PublicKey, fullID []byte) (eph, secret []byte, err error) {
	r, err := shamir.RandomScalar(rand)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling ephemeral scalar: %w", err)
	}

	var e bls.G2
	e.ScalarMult(r, bls.G2Generator())
	eph = e.BytesCompressed()

	// e(H1(id), pk)^r == e(H1(id), g2)^(s·r)
	gt := new(bls.Gt)
	gt.Exp(bls.Pair(hashToG1(fullID), &pk.p), r)

	return eph, sharedSecret(gt, eph), nil
}

// decapsulate recovers the shared secret produced by encapsulate using the
// extracted user secret key.
func decapsulate(usk *UserSecretKey, eph []byte) ([]byte, error) {
	var e bls.G2
	if err := e.SetBytes(eph); err != nil {
		return nil, fmt.Errorf("%w: bad ephemeral key", ErrInvalidParameters)
	}

	// e(s·H1(id), r·g2) == e(H1(id), g2)^(s·r)
	return sharedSecret(bls.Pair(&usk.p, &e), eph), nil
}

func hashToG1(fullID []byte) *bls.G1 {
	var h bls.G1
	h.Hash(fullID, []byte(dstIdentity))

	return &h
}

// nonceScalar derives the encapsulation nonce from the seed scalar and the
// full identity. Decryptors re-derive it from the reconstructed seed, which
// is what lets them detect tampered or mismatched shares.
func nonceScalar(seed *bls.Scalar, fullID []byte) *bls.Scalar {
	b, _ := seed.MarshalBinary()

	return expandScalar(b, fullID, []byte(infoNonce))
}

// shareMask derives the pad that encrypts one server's polynomial share. The
// service index binds each mask to its position in the object.
func shareMask(gt *bls.Gt, eph []byte, index uint8) []byte {
	ikm, _ := gt.MarshalBinary()
	h := hkdf.New(sha256.New, ikm, eph, append([]byte(infoShareMask), index))

	mask := make([]byte, scalarSize)
	_, _ = io.ReadFull(h, mask)

	return mask
}

// sharedSecret derives the symmetric secret of a single-server encapsulation
// from the pairing value and the ephemeral key.
func sharedSecret(gt *bls.Gt, eph []byte) []byte {
	ikm, _ := gt.MarshalBinary()
	h := hkdf.New(sha256.New, ikm, eph, []byte(infoKEMSecret))

	secret := make([]byte, KeySize)
	_, _ = io.ReadFull(h, secret)

	return secret
}

// deriveKey derives the envelope key from the shared seed scalar and the full
// identity.
func deriveKey(seed *bls.Scalar, fullID []byte) []byte {
	b, _ := seed.MarshalBinary()
	h := hkdf.New(sha256.New, b, fullID, []byte(infoDEMKey))

	key := make([]byte, KeySize)
	_, _ = io.ReadFull(h, key)

	return key
}

func expandScalar(ikm, salt, info []byte) *bls.Scalar {
	h := hkdf.New(sha256.New, ikm, salt, info)

	wide := make([]byte, wideScalarSize)
	_, _ = io.ReadFull(h, wide)

	return scalarFromWide(wide)
}

var scalarOrder = new(big.Int).SetBytes(bls.Order())

// scalarFromWide reduces big-endian bytes modulo the group order and returns
// the canonical scalar.
func scalarFromWide(b []byte) *bls.Scalar {
	k := new(big.Int).SetBytes(b)
	k.Mod(k, scalarOrder)

	var buf [scalarSize]byte
	k.FillBytes(buf[:])

	s := new(bls.Scalar)
	_ = s.UnmarshalBinary(buf[:])

	return s
}
