package seal

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testObject(t testing.TB) *EncryptedObject {
	t.Helper()

	ns, err := RandomNamespace(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	refs, pks, _ := testServers(t, 3)

	obj, _, err := Encrypt(rand.Reader, ns, []byte("user@example.com"), refs, pks, 2,
		AESGCM{Data: []byte("hello world"), AAD: []byte("file:report.pdf")})
	if err != nil {
		t.Fatal(err)
	}

	return obj
}

func TestObjectRoundTrip(t *testing.T) {
	t.Parallel()

	obj := testObject(t)

	b, err := obj.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var got EncryptedObject
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(obj, &got); diff != "" {
		t.Errorf("bad round trip (-want +got):\n%s", diff)
	}
}

func TestObjectRoundTripPlain(t *testing.T) {
	t.Parallel()

	ns, err := RandomNamespace(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	refs, pks, _ := testServers(t, 2)

	obj, _, err := Encrypt(rand.Reader, ns, []byte("user@example.com"), refs, pks, 1, Plain{})
	if err != nil {
		t.Fatal(err)
	}

	b, err := obj.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var got EncryptedObject
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(obj, &got); diff != "" {
		t.Errorf("bad round trip (-want +got):\n%s", diff)
	}
}

func TestObjectTruncated(t *testing.T) {
	t.Parallel()

	b, err := testObject(t).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	// Every proper prefix must be rejected.
	for i := 0; i < len(b); i++ {
		var got EncryptedObject
		if err := got.UnmarshalBinary(b[:i]); !errors.Is(err, ErrMalformedObject) {
			t.Fatalf("prefix of %d bytes: expected ErrMalformedObject, got %v", i, err)
		}
	}
}

func TestObjectTrailingData(t *testing.T) {
	t.Parallel()

	b, err := testObject(t).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var got EncryptedObject
	if err := got.UnmarshalBinary(append(b, 0)); !errors.Is(err, ErrMalformedObject) {
		t.Errorf("expected ErrMalformedObject, got %v", err)
	}
}

func TestObjectBadVersion(t *testing.T) {
	t.Parallel()

	b, err := testObject(t).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	b[0] = 99

	var got EncryptedObject
	if err := got.UnmarshalBinary(b); !errors.Is(err, ErrMalformedObject) {
		t.Errorf("expected ErrMalformedObject, got %v", err)
	}
}

func TestObjectBadThreshold(t *testing.T) {
	t.Parallel()

	obj := testObject(t)

	for _, threshold := range []uint8{0, uint8(len(obj.Services) + 1)} {
		bad := *obj
		bad.Threshold = threshold

		if _, err := bad.MarshalBinary(); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("threshold %d: expected ErrInvalidParameters, got %v", threshold, err)
		}
	}
}

func TestObjectDuplicateReferences(t *testing.T) {
	t.Parallel()

	obj := testObject(t)

	bad := *obj
	bad.Services = append([]ServiceShare(nil), obj.Services...)
	bad.Services[1].Ref = bad.Services[0].Ref

	if _, err := bad.MarshalBinary(); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters, got %v", err)
	}

	// The same object corrupted on the wire parses as malformed. The first
	// reference starts after the version byte, namespace, length-prefixed ID,
	// and service count.
	b, err := obj.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	off := 1 + NamespaceSize + 4 + len(obj.ID) + 1
	copy(b[off+32+shareSize:off+32+shareSize+32], b[off:off+32])

	var got EncryptedObject
	if err := got.UnmarshalBinary(b); !errors.Is(err, ErrMalformedObject) {
		t.Errorf("expected ErrMalformedObject, got %v", err)
	}
}

func TestObjectEmptyIdentity(t *testing.T) {
	t.Parallel()

	obj := testObject(t)
	obj.ID = nil

	if _, err := obj.MarshalBinary(); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("expected ErrInvalidParameters, got %v", err)
	}
}
