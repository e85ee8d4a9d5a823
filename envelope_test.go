package seal

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/codahale/gubbins/assert"
)

func TestEnvelopeAESGCM(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte("k"), KeySize)
	message := []byte("hello world")

	env, err := sealEnvelope(rand.Reader, key, AESGCM{Data: message, AAD: []byte("file:report.pdf")})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "mode", ModeAESGCM, env.Mode)
	assert.Equal(t, "associated data", []byte("file:report.pdf"), env.AAD)

	plaintext, err := openEnvelope(key, env)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "plaintext", message, plaintext)
}

func TestEnvelopeAESGCMTampering(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte("k"), KeySize)

	env, err := sealEnvelope(rand.Reader, key, AESGCM{Data: []byte("hello world"), AAD: []byte("aad")})
	if err != nil {
		t.Fatal(err)
	}

	for _, tamper := range []struct {
		name string
		f    func(e *Envelope)
	}{
		{"ciphertext", func(e *Envelope) { e.Blob[0] ^= 1 }},
		{"nonce", func(e *Envelope) { e.Nonce[0] ^= 1 }},
		{"aad", func(e *Envelope) { e.AAD[0] ^= 1 }},
	} {
		bad := env
		bad.Nonce = append([]byte(nil), env.Nonce...)
		bad.Blob = append([]byte(nil), env.Blob...)
		bad.AAD = append([]byte(nil), env.AAD...)
		tamper.f(&bad)

		if _, err := openEnvelope(key, bad); !errors.Is(err, ErrAuthentication) {
			t.Errorf("tampered %s: expected ErrAuthentication, got %v", tamper.name, err)
		}
	}

	// Wrong key.
	if _, err := openEnvelope(bytes.Repeat([]byte("x"), KeySize), env); !errors.Is(err, ErrAuthentication) {
		t.Errorf("wrong key: expected ErrAuthentication, got %v", err)
	}
}

func TestEnvelopeHMACCTR(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte("k"), KeySize)
	message := []byte("hello world")

	env, err := sealEnvelope(rand.Reader, key, HMACCTR{Data: message, AAD: []byte("aad")})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "mode", ModeHMACCTR, env.Mode)

	plaintext, err := openEnvelope(key, env)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "plaintext", message, plaintext)

	env.Blob[0] ^= 1

	if _, err := openEnvelope(key, env); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
}

func TestEnvelopePlain(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte("k"), KeySize)

	env, err := sealEnvelope(rand.Reader, key, Plain{})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "mode", ModePlain, env.Mode)
	assert.Equal(t, "nonce", 0, len(env.Nonce))
	assert.Equal(t, "payload", 0, len(env.Blob))

	got, err := openEnvelope(key, env)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "derived key", key, got)
}

func TestEnvelopeFreshNonces(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte("k"), KeySize)

	a, err := sealEnvelope(rand.Reader, key, AESGCM{Data: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}

	b, err := sealEnvelope(rand.Reader, key, AESGCM{Data: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(a.Nonce, b.Nonce) {
		t.Error("two envelopes used the same nonce")
	}
}
