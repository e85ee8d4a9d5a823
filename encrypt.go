package seal

import (
	"fmt"
	"io"

	bls "github.com/cloudflare/circl/ecc/bls12381"
	"github.com/sealkit/seal/internal/shamir"
)

// Encrypt seals the given input against an identity so that any Threshold of
// the listed key servers can later authorize its decryption. The server
// references and public keys are parallel lists; references end up in the
// object, public keys never do.
//
// The derived symmetric key is also returned for callers that need it
// out-of-band, which is the whole point of the Plain input mode.
//
// Encryption is all-or-nothing: any failure returns before an object exists.
func Encrypt(
	rand io.Reader,
	ns Namespace,
	id []byte,
	refs []ServerReference,
	pks []*PublicKey,
	threshold uint8,
	input EncryptionInput,
) (*EncryptedObject, []byte, error) {
	if err := validateServices(refs, pks, threshold); err != nil {
		return nil, nil, err
	}

	if len(id) == 0 {
		return nil, nil, fmt.Errorf("%w: empty identity", ErrInvalidParameters)
	}

	fullID := FullIdentity(ns, id)

	// The seed scalar is the polynomial's free term. Everything else -- the
	// envelope key and the encapsulation nonce -- is derived from it.
	seed, err := shamir.RandomScalar(rand)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling seed: %w", err)
	}

	r := nonceScalar(seed, fullID)

	var eph bls.G2
	eph.ScalarMult(r, bls.G2Generator())
	ephBytes := eph.BytesCompressed()

	poly, err := shamir.NewPolynomial(rand, int(threshold)-1, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling polynomial: %w", err)
	}

	h1 := hashToG1(fullID)

	// Evaluate the polynomial at x = 1..N and encrypt each server's share
	// under its public key.
	services := make([]ServiceShare, len(refs))
	for i, pk := range pks {
		x := uint8(i + 1)

		share, _ := poly.Eval(x).MarshalBinary()

		gt := new(bls.Gt)
		gt.Exp(bls.Pair(h1, &pk.p), r)

		mask := shareMask(gt, ephBytes, x)
		for j := range share {
			share[j] ^= mask[j]
		}

		services[i] = ServiceShare{Ref: refs[i], Share: share}
	}

	key := deriveKey(seed, fullID)

	env, err := sealEnvelope(rand, key, input)
	if err != nil {
		return nil, nil, err
	}

	obj := &EncryptedObject{
		Namespace:    ns,
		ID:           append([]byte(nil), id...),
		Services:     services,
		Threshold:    threshold,
		EphemeralKey: ephBytes,
		Envelope:     env,
	}

	return obj, key, nil
}

func validateServices(refs []ServerReference, pks []*PublicKey, threshold uint8) error {
	n := len(refs)
	if n == 0 || n > MaxServers {
		return fmt.Errorf("%w: %d servers", ErrInvalidParameters, n)
	}

	if len(pks) != n {
		return fmt.Errorf("%w: %d public keys for %d servers", ErrInvalidParameters, len(pks), n)
	}

	if threshold == 0 || int(threshold) > n {
		return fmt.Errorf("%w: threshold %d of %d servers", ErrInvalidParameters, threshold, n)
	}

	seen := make(map[ServerReference]struct{}, n)
	for i, ref := range refs {
		if _, ok := seen[ref]; ok {
			return fmt.Errorf("%w: duplicate server reference %s", ErrInvalidParameters, ref)
		}

		seen[ref] = struct{}{}

		if pks[i] == nil {
			return fmt.Errorf("%w: nil public key for server %s", ErrInvalidParameters, ref)
		}
	}

	return nil
}
