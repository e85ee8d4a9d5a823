package seal

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
)

// NamespaceSize is the size of a namespace identifier in bytes.
const NamespaceSize = 32

// Namespace scopes identities to a deployment or application. The same
// identity under two namespaces derives unrelated keys.
type Namespace [NamespaceSize]byte

// RandomNamespace returns a fresh random namespace.
func RandomNamespace(rand io.Reader) (Namespace, error) {
	var ns Namespace
	if _, err := io.ReadFull(rand, ns[:]); err != nil {
		return Namespace{}, fmt.Errorf("sampling namespace: %w", err)
	}

	return ns, nil
}

func (ns Namespace) String() string {
	return base58.Encode(ns[:])
}

// ParseNamespace decodes the base58 form produced by String.
func ParseNamespace(s string) (Namespace, error) {
	var ns Namespace

	b, err := base58.Decode(s)
	if err != nil {
		return Namespace{}, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	if len(b) != NamespaceSize {
		return Namespace{}, fmt.Errorf("%w: namespace must be %d bytes", ErrInvalidParameters, NamespaceSize)
	}

	copy(ns[:], b)

	return ns, nil
}

// ReferenceSize is the size of a server reference in bytes.
const ReferenceSize = 32

// ServerReference names a key server inside an encrypted object. It is opaque
// to the library; callers may use registry identifiers or public key
// fingerprints.
type ServerReference [ReferenceSize]byte

func (ref ServerReference) String() string {
	return base58.Encode(ref[:])
}

// ParseServerReference decodes the base58 form produced by String.
func ParseServerReference(s string) (ServerReference, error) {
	var ref ServerReference

	b, err := base58.Decode(s)
	if err != nil {
		return ServerReference{}, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	if len(b) != ReferenceSize {
		return ServerReference{}, fmt.Errorf("%w: server reference must be %d bytes", ErrInvalidParameters, ReferenceSize)
	}

	copy(ref[:], b)

	return ref, nil
}

// ReferenceForPublicKey returns the canonical fingerprint reference for a key
// server's public key.
func ReferenceForPublicKey(pk *PublicKey) ServerReference {
	return ServerReference(sha256.Sum256(pk.p.BytesCompressed()))
}

// FullIdentity returns the namespace-qualified encoding of an identity, the
// effective IBE public key. Both components are length-prefixed, so no two
// distinct (namespace, identity) pairs produce the same encoding.
func FullIdentity(ns Namespace, id []byte) []byte {
	buf := make([]byte, 0, 4+NamespaceSize+4+len(id))
	buf = binary.BigEndian.AppendUint32(buf, NamespaceSize)
	buf = append(buf, ns[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(id)))
	buf = append(buf, id...)

	return buf
}
