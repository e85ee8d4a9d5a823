// Package ctrhmac provides an encrypt-then-MAC AEAD built from AES-256-CTR
// and HMAC-SHA-256 with independent encryption and authentication keys. The
// tag is always verified before any decryption happens.
package ctrhmac

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// ErrInvalidCiphertext is returned when a ciphertext cannot be decrypted,
// either due to an incorrect key or tampering.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

const (
	KeySize  = 32            // The size of each of the two keys.
	IVSize   = aes.BlockSize // The size of an AES-CTR IV.
	Overhead = sha256.Size   // The size of an HMAC-SHA-256 tag.
)

type ctrHMAC struct {
	block  cipher.Block
	macKey []byte
}

// New returns a cipher.AEAD keyed with separate encryption and MAC keys. Both
// keys must be KeySize bytes.
func New(encKey, macKey []byte) cipher.AEAD {
	b, _ := aes.NewCipher(encKey)

	return &ctrHMAC{block: b, macKey: append([]byte(nil), macKey...)}
}

func (c *ctrHMAC) NonceSize() int {
	return IVSize
}

func (c *ctrHMAC) Overhead() int {
	return Overhead
}

func (c *ctrHMAC) Seal(dst, iv, plaintext, additionalData []byte) []byte {
	out := make([]byte, len(plaintext), len(plaintext)+Overhead)

	// Encrypt the plaintext with AES-256-CTR.
	cipher.NewCTR(c.block, iv).XORKeyStream(out, plaintext)

	// Append the HMAC of the IV, the ciphertext, and the additional data.
	out = c.tag(out, out, iv, additionalData)

	return append(dst, out...)
}

func (c *ctrHMAC) Open(dst, iv, ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < Overhead {
		return nil, ErrInvalidCiphertext
	}

	// Separate the tag and the ciphertext.
	n := len(ciphertext) - Overhead
	tag := ciphertext[n:]
	in := ciphertext[:n]

	// Verify the tag before touching the ciphertext.
	if !hmac.Equal(tag, c.tag(nil, in, iv, additionalData)) {
		return nil, ErrInvalidCiphertext
	}

	out := make([]byte, len(in))
	cipher.NewCTR(c.block, iv).XORKeyStream(out, in)

	return append(dst, out...), nil
}

// tag appends HMAC(iv ∥ ciphertext ∥ data ∥ lengths) to dst. The bit lengths
// of the ciphertext and the additional data are included to make the framing
// unambiguous. A fresh HMAC instance keeps Seal and Open safe for concurrent
// use.
func (c *ctrHMAC) tag(dst, ciphertext, iv, data []byte) []byte {
	h := hmac.New(sha256.New, c.macKey)

	_, _ = h.Write(iv)
	_, _ = h.Write(ciphertext)
	_, _ = h.Write(data)

	_ = binary.Write(h, binary.BigEndian, uint64(len(ciphertext))*8)
	_ = binary.Write(h, binary.BigEndian, uint64(len(data))*8)

	return h.Sum(dst)
}

var _ cipher.AEAD = &ctrHMAC{}
