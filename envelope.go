package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/sealkit/seal/internal/ctrhmac"
	"golang.org/x/crypto/hkdf"
)

// Mode identifies the symmetric envelope construction used to seal a payload.
// It is recorded in the encrypted object so decryption dispatches on the tag.
type Mode uint8

const (
	// ModeAESGCM seals the payload with AES-256-GCM.
	ModeAESGCM Mode = iota

	// ModeHMACCTR seals the payload with AES-256-CTR and a separate
	// HMAC-SHA-256 tag, using independently derived subkeys.
	ModeHMACCTR

	// ModePlain carries no payload; decryption yields the derived key itself,
	// for callers encrypting data elsewhere.
	ModePlain
)

const gcmNonceSize = 12

// EncryptionInput selects the envelope mode at encryption time and carries
// its payload.
type EncryptionInput interface {
	mode() Mode
}

// AESGCM requests an AES-256-GCM envelope. AAD, if any, is authenticated but
// not encrypted.
type AESGCM struct {
	Data []byte
	AAD  []byte
}

func (AESGCM) mode() Mode { return ModeAESGCM }

// HMACCTR requests an AES-256-CTR envelope with a separate HMAC-SHA-256 tag.
type HMACCTR struct {
	Data []byte
	AAD  []byte
}

func (HMACCTR) mode() Mode { return ModeHMACCTR }

// Plain requests no payload encryption; only the derived key is produced.
type Plain struct{}

func (Plain) mode() Mode { return ModePlain }

// Envelope is the sealed payload carried inside an EncryptedObject.
type Envelope struct {
	Mode  Mode
	Nonce []byte
	Blob  []byte
	AAD   []byte
}

func sealEnvelope(rand io.Reader, key []byte, input EncryptionInput) (Envelope, error) {
	switch in := input.(type) {
	case AESGCM:
		nonce := make([]byte, gcmNonceSize)
		if _, err := io.ReadFull(rand, nonce); err != nil {
			return Envelope{}, fmt.Errorf("sampling nonce: %w", err)
		}

		return Envelope{
			Mode:  ModeAESGCM,
			Nonce: nonce,
			Blob:  newGCM(key).Seal(nil, nonce, in.Data, in.AAD),
			AAD:   append([]byte(nil), in.AAD...),
		}, nil
	case HMACCTR:
		iv := make([]byte, ctrhmac.IVSize)
		if _, err := io.ReadFull(rand, iv); err != nil {
			return Envelope{}, fmt.Errorf("sampling IV: %w", err)
		}

		enc, mac := envelopeSubkeys(key)

		return Envelope{
			Mode:  ModeHMACCTR,
			Nonce: iv,
			Blob:  ctrhmac.New(enc, mac).Seal(nil, iv, in.Data, in.AAD),
			AAD:   append([]byte(nil), in.AAD...),
		}, nil
	case Plain:
		return Envelope{Mode: ModePlain}, nil
	default:
		return Envelope{}, fmt.Errorf("%w: unsupported encryption input %T", ErrInvalidParameters, input)
	}
}

// openEnvelope verifies and decrypts the envelope with the derived key. For
// ModePlain it returns the key itself.
func openEnvelope(key []byte, env Envelope) ([]byte, error) {
	switch env.Mode {
	case ModeAESGCM:
		plaintext, err := newGCM(key).Open(nil, env.Nonce, env.Blob, env.AAD)
		if err != nil {
			return nil, ErrAuthentication
		}

		return plaintext, nil
	case ModeHMACCTR:
		enc, mac := envelopeSubkeys(key)

		plaintext, err := ctrhmac.New(enc, mac).Open(nil, env.Nonce, env.Blob, env.AAD)
		if err != nil {
			return nil, ErrAuthentication
		}

		return plaintext, nil
	case ModePlain:
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unknown envelope mode %d", ErrMalformedObject, env.Mode)
	}
}

func newGCM(key []byte) cipher.AEAD {
	block, _ := aes.NewCipher(key)
	aead, _ := cipher.NewGCM(block)

	return aead
}

// envelopeSubkeys splits the derived key into independent encryption and MAC
// subkeys for the CTR+HMAC envelope.
func envelopeSubkeys(key []byte) (enc, mac []byte) {
	h := hkdf.New(sha256.New, key, nil, []byte(infoSubkeys))

	out := make([]byte, 2*ctrhmac.KeySize)
	_, _ = io.ReadFull(h, out)

	return out[:ctrhmac.KeySize], out[ctrhmac.KeySize:]
}
