package seal

import (
	"bytes"
	"fmt"

	bls "github.com/cloudflare/circl/ecc/bls12381"
	"github.com/sealkit/seal/internal/shamir"
)

// Decrypt recovers the plaintext from an encrypted object, or the derived key
// for objects sealed in the Plain mode.
//
// keys maps server references to user secret keys extracted for the object's
// identity; at least Threshold of the object's listed servers must be
// present. Extra entries and entries for unlisted servers are ignored, so
// shares collected from concurrent server round-trips can be merged into one
// map.
//
// publicKeys, when non-nil, must list the servers' public keys in the same
// order as the object's services and enables an independent consistency
// check: the encapsulation is re-derived from the reconstructed seed and
// compared against the object, so a corrupted or forged share fails with
// ErrAuthentication instead of yielding garbage key material.
func Decrypt(obj *EncryptedObject, keys map[ServerReference]*UserSecretKey, publicKeys []*PublicKey) ([]byte, error) {
	if err := obj.validate(); err != nil {
		return nil, err
	}

	if publicKeys != nil && len(publicKeys) != len(obj.Services) {
		return nil, fmt.Errorf("%w: %d public keys for %d servers", ErrInvalidParameters, len(publicKeys), len(obj.Services))
	}

	fullID := FullIdentity(obj.Namespace, obj.ID)

	var eph bls.G2
	if err := eph.SetBytes(obj.EphemeralKey); err != nil {
		return nil, fmt.Errorf("%w: bad ephemeral key", ErrMalformedObject)
	}

	// Decapsulate the share of every listed server we hold a user secret key
	// for, in object order.
	shares := make([]shamir.Share, 0, len(obj.Services))

	for i, svc := range obj.Services {
		usk, ok := keys[svc.Ref]
		if !ok || usk == nil {
			continue
		}

		x := uint8(i + 1)
		mask := shareMask(bls.Pair(&usk.p, &eph), obj.EphemeralKey, x)

		b := make([]byte, shareSize)
		for j := range b {
			b[j] = svc.Share[j] ^ mask[j]
		}

		shares = append(shares, shamir.Share{X: x, Y: scalarFromWide(b)})
	}

	if len(shares) < int(obj.Threshold) {
		return nil, fmt.Errorf("%w: %d of %d required shares", ErrInsufficientShares, len(shares), obj.Threshold)
	}

	// Reconstruct from exactly the threshold lowest service indices, so
	// repeated decryption with the same share set is reproducible.
	used := shares[:obj.Threshold]

	seed, err := shamir.Interpolate(0, used)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	if publicKeys != nil {
		if err := verifyShares(obj, fullID, seed, used, publicKeys); err != nil {
			return nil, err
		}
	}

	return openEnvelope(deriveKey(seed, fullID), obj.Envelope)
}

// verifyShares re-runs the deterministic encapsulation from the reconstructed
// seed and requires the result to match the object byte for byte. A wrong
// identity, a tampered object, or a forged share all surface here rather than
// as corrupted output.
func verifyShares(obj *EncryptedObject, fullID []byte, seed *bls.Scalar, used []shamir.Share, pks []*PublicKey) error {
	r := nonceScalar(seed, fullID)

	var eph bls.G2
	eph.ScalarMult(r, bls.G2Generator())

	if !bytes.Equal(eph.BytesCompressed(), obj.EphemeralKey) {
		return ErrAuthentication
	}

	h1 := hashToG1(fullID)

	// The threshold shares fix the whole polynomial, so every listed share
	// can be recomputed and checked, including ones we hold no key for.
	for i, pk := range pks {
		if pk == nil {
			return fmt.Errorf("%w: nil public key for server %s", ErrInvalidParameters, obj.Services[i].Ref)
		}

		x := uint8(i + 1)

		expect, err := shamir.Interpolate(x, used)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}

		b, _ := expect.MarshalBinary()

		gt := new(bls.Gt)
		gt.Exp(bls.Pair(h1, &pk.p), r)

		mask := shareMask(gt, obj.EphemeralKey, x)
		for j := range b {
			b[j] ^= mask[j]
		}

		if !bytes.Equal(b, obj.Services[i].Share) {
			return ErrAuthentication
		}
	}

	return nil
}
