package seal

import (
	"crypto/rand"
	"testing"

	"github.com/codahale/gubbins/assert"
)

func TestGenerateKeyPair(t *testing.T) {
	t.Parallel()

	mk, pk, err := GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	if !pk.Equals(mk.PublicKey()) {
		t.Error("returned public key does not match the master key")
	}

	_, pk2, err := GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	if pk.Equals(pk2) {
		t.Error("two generated key pairs are identical")
	}
}

func TestMasterKeyBinary(t *testing.T) {
	t.Parallel()

	mk, pk, err := GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	b, err := mk.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "master key size", MasterKeySize, len(b))

	var mk2 MasterKey
	if err := mk2.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}

	if !mk2.PublicKey().Equals(pk) {
		t.Error("bad round trip")
	}
}

func TestPublicKeyText(t *testing.T) {
	t.Parallel()

	_, pk, err := GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	var pk2 PublicKey
	if err := pk2.UnmarshalText([]byte(pk.String())); err != nil {
		t.Fatal(err)
	}

	if !pk.Equals(&pk2) {
		t.Error("bad round trip")
	}
}

func TestPublicKeyInvalid(t *testing.T) {
	t.Parallel()

	var pk PublicKey
	if err := pk.UnmarshalBinary(make([]byte, PublicKeySize)); err == nil {
		t.Error("expected an error for an invalid curve point")
	}

	if err := pk.UnmarshalBinary([]byte("short")); err == nil {
		t.Error("expected an error for a truncated key")
	}
}

func TestUserSecretKeyText(t *testing.T) {
	t.Parallel()

	mk, pk, err := GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	ns, err := RandomNamespace(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	fullID := FullIdentity(ns, []byte("alice@example.com"))
	usk := Extract(mk, fullID)

	text, err := usk.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	var usk2 UserSecretKey
	if err := usk2.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}

	if err := VerifyUserSecretKey(&usk2, fullID, pk); err != nil {
		t.Errorf("round-tripped key failed verification: %v", err)
	}
}

func TestSeedDerivation(t *testing.T) {
	t.Parallel()

	seed, err := NewSeed(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	// Same seed and index, same key pair.
	if !seed.DeriveMasterKey(3).PublicKey().Equals(seed.DeriveMasterKey(3).PublicKey()) {
		t.Error("derivation is not deterministic")
	}

	// Different indices, different key pairs.
	if seed.DeriveMasterKey(0).PublicKey().Equals(seed.DeriveMasterKey(1).PublicKey()) {
		t.Error("distinct indices derived the same key pair")
	}

	seed2, err := NewSeed(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	if seed.DeriveMasterKey(0).PublicKey().Equals(seed2.DeriveMasterKey(0).PublicKey()) {
		t.Error("distinct seeds derived the same key pair")
	}
}

func TestDerivedKeyExtraction(t *testing.T) {
	t.Parallel()

	seed, err := NewSeed(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	mk := seed.DeriveMasterKey(7)

	ns, err := RandomNamespace(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	fullID := FullIdentity(ns, []byte("bob@example.com"))

	if err := VerifyUserSecretKey(Extract(mk, fullID), fullID, mk.PublicKey()); err != nil {
		t.Errorf("derived master key failed extraction round trip: %v", err)
	}
}
