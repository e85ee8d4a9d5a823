package seal

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sealkit/seal/internal/ctrhmac"
)

const (
	objectVersion = 1

	shareSize        = scalarSize
	ephemeralKeySize = PublicKeySize

	// MaxServers is the largest number of key servers one object can name.
	MaxServers = 255
)

// ServiceShare pairs a key server reference with that server's encapsulated
// polynomial share.
type ServiceShare struct {
	Ref   ServerReference
	Share []byte
}

// EncryptedObject is the complete ciphertext artifact exchanged between
// encryptor and decryptor. It is immutable once produced.
type EncryptedObject struct {
	Namespace    Namespace
	ID           []byte
	Services     []ServiceShare
	Threshold    uint8
	EphemeralKey []byte
	Envelope     Envelope
}

// MarshalBinary returns the canonical binary form: a version byte followed by
// fixed-order, length-prefixed fields.
func (o *EncryptedObject) MarshalBinary() ([]byte, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, o.encodedSize()))
	buf.WriteByte(objectVersion)
	buf.Write(o.Namespace[:])
	writeBytes(buf, o.ID)
	buf.WriteByte(uint8(len(o.Services)))

	for _, s := range o.Services {
		buf.Write(s.Ref[:])
		buf.Write(s.Share)
	}

	buf.WriteByte(o.Threshold)
	buf.Write(o.EphemeralKey)
	buf.WriteByte(byte(o.Envelope.Mode))

	if o.Envelope.Mode != ModePlain {
		writeBytes(buf, o.Envelope.Nonce)
		writeBytes(buf, o.Envelope.Blob)
		writeBytes(buf, o.Envelope.AAD)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary parses the canonical binary form. Parsing is strict:
// truncated fields, trailing bytes, and structurally invalid objects are all
// rejected before any cryptographic operation runs.
func (o *EncryptedObject) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: truncated", ErrMalformedObject)
	}

	if version != objectVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformedObject, version)
	}

	if _, err := io.ReadFull(r, o.Namespace[:]); err != nil {
		return fmt.Errorf("%w: truncated namespace", ErrMalformedObject)
	}

	if o.ID, err = readBytes(r); err != nil {
		return fmt.Errorf("%w: bad identity", ErrMalformedObject)
	}

	count, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: truncated service count", ErrMalformedObject)
	}

	o.Services = make([]ServiceShare, count)
	for i := range o.Services {
		if _, err := io.ReadFull(r, o.Services[i].Ref[:]); err != nil {
			return fmt.Errorf("%w: truncated service reference", ErrMalformedObject)
		}

		o.Services[i].Share = make([]byte, shareSize)
		if _, err := io.ReadFull(r, o.Services[i].Share); err != nil {
			return fmt.Errorf("%w: truncated share", ErrMalformedObject)
		}
	}

	if o.Threshold, err = r.ReadByte(); err != nil {
		return fmt.Errorf("%w: truncated threshold", ErrMalformedObject)
	}

	o.EphemeralKey = make([]byte, ephemeralKeySize)
	if _, err := io.ReadFull(r, o.EphemeralKey); err != nil {
		return fmt.Errorf("%w: truncated ephemeral key", ErrMalformedObject)
	}

	mode, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: truncated envelope mode", ErrMalformedObject)
	}

	o.Envelope = Envelope{Mode: Mode(mode)}

	if o.Envelope.Mode != ModePlain {
		if o.Envelope.Nonce, err = readBytes(r); err != nil {
			return fmt.Errorf("%w: bad nonce", ErrMalformedObject)
		}

		if o.Envelope.Blob, err = readBytes(r); err != nil {
			return fmt.Errorf("%w: bad payload", ErrMalformedObject)
		}

		if o.Envelope.AAD, err = readBytes(r); err != nil {
			return fmt.Errorf("%w: bad associated data", ErrMalformedObject)
		}
	}

	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedObject, r.Len())
	}

	if err := o.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedObject, err)
	}

	return nil
}

// validate checks the structural invariants shared by the codec, Encrypt, and
// Decrypt.
func (o *EncryptedObject) validate() error {
	if len(o.ID) == 0 {
		return fmt.Errorf("%w: empty identity", ErrInvalidParameters)
	}

	n := len(o.Services)
	if n == 0 || n > MaxServers {
		return fmt.Errorf("%w: %d servers", ErrInvalidParameters, n)
	}

	if o.Threshold == 0 || int(o.Threshold) > n {
		return fmt.Errorf("%w: threshold %d of %d servers", ErrInvalidParameters, o.Threshold, n)
	}

	seen := make(map[ServerReference]struct{}, n)
	for _, s := range o.Services {
		if _, ok := seen[s.Ref]; ok {
			return fmt.Errorf("%w: duplicate server reference %s", ErrInvalidParameters, s.Ref)
		}

		seen[s.Ref] = struct{}{}

		if len(s.Share) != shareSize {
			return fmt.Errorf("%w: share is %d bytes", ErrInvalidParameters, len(s.Share))
		}
	}

	if len(o.EphemeralKey) != ephemeralKeySize {
		return fmt.Errorf("%w: ephemeral key is %d bytes", ErrInvalidParameters, len(o.EphemeralKey))
	}

	switch o.Envelope.Mode {
	case ModeAESGCM:
		if len(o.Envelope.Nonce) != gcmNonceSize {
			return fmt.Errorf("%w: nonce is %d bytes", ErrInvalidParameters, len(o.Envelope.Nonce))
		}
	case ModeHMACCTR:
		if len(o.Envelope.Nonce) != ctrhmac.IVSize {
			return fmt.Errorf("%w: IV is %d bytes", ErrInvalidParameters, len(o.Envelope.Nonce))
		}
	case ModePlain:
		if len(o.Envelope.Nonce) != 0 || len(o.Envelope.Blob) != 0 || len(o.Envelope.AAD) != 0 {
			return fmt.Errorf("%w: plain envelope carries a payload", ErrInvalidParameters)
		}
	default:
		return fmt.Errorf("%w: unknown envelope mode %d", ErrInvalidParameters, o.Envelope.Mode)
	}

	return nil
}

func (o *EncryptedObject) encodedSize() int {
	n := 1 + NamespaceSize + 4 + len(o.ID) + 1 +
		len(o.Services)*(ReferenceSize+shareSize) + 1 + ephemeralKeySize + 1

	if o.Envelope.Mode != ModePlain {
		n += 4 + len(o.Envelope.Nonce) + 4 + len(o.Envelope.Blob) + 4 + len(o.Envelope.AAD)
	}

	return n
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	_ = binary.Write(buf, binary.BigEndian, uint32(len(b)))
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}

	if int(n) > r.Len() {
		return nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, r.Len())
	}

	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}

	return b, nil
}

var (
	_ encoding.BinaryMarshaler   = &EncryptedObject{}
	_ encoding.BinaryUnmarshaler = &EncryptedObject{}
)
