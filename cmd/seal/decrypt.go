package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/sealkit/seal"
)

type decryptCmd struct {
	Ciphertext string   `arg:"" type:"existingfile" help:"The path to the encrypted object."`
	Plaintext  string   `arg:"" type:"path" help:"The path to the plaintext file."`
	Keys       []string `arg:"" repeated:"" help:"Extracted keys as public-key=user-secret-key pairs."`

	ServerKeys []string `help:"The public keys of all listed servers, enabling the share consistency check."`
	Armor      bool     `help:"Decode the encrypted object as base64."`
}

func (cmd *decryptCmd) Run(_ *kong.Context) error {
	src, err := openInput(cmd.Ciphertext, cmd.Armor)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	b, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	var obj seal.EncryptedObject
	if err := obj.UnmarshalBinary(b); err != nil {
		return err
	}

	keys, err := cmd.userSecretKeys()
	if err != nil {
		return err
	}

	pks, err := cmd.serverPublicKeys(&obj)
	if err != nil {
		return err
	}

	plaintext, err := seal.Decrypt(&obj, keys, pks)
	if err != nil {
		return err
	}

	dst, err := openOutput(cmd.Plaintext, false)
	if err != nil {
		return err
	}

	defer func() { _ = dst.Close() }()

	// In plain mode the result is the derived key, not a plaintext.
	if obj.Envelope.Mode == seal.ModePlain {
		_, err = fmt.Fprintf(dst, "%s\n", keyText(plaintext))
		return err
	}

	_, err = dst.Write(plaintext)

	return err
}

// userSecretKeys parses public-key=user-secret-key pairs and indexes the user
// secret keys by the public keys' fingerprint references.
func (cmd *decryptCmd) userSecretKeys() (map[seal.ServerReference]*seal.UserSecretKey, error) {
	keys := make(map[seal.ServerReference]*seal.UserSecretKey, len(cmd.Keys))

	for _, pair := range cmd.Keys {
		pkText, uskText, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed key pair %q", pair)
		}

		pk, err := decodePublicKey(pkText)
		if err != nil {
			return nil, err
		}

		usk := new(seal.UserSecretKey)
		if err := usk.UnmarshalText([]byte(uskText)); err != nil {
			return nil, err
		}

		keys[seal.ReferenceForPublicKey(pk)] = usk
	}

	return keys, nil
}

// serverPublicKeys orders the given public keys to match the object's service
// list, or returns nil when no keys were given and the consistency check is
// skipped.
func (cmd *decryptCmd) serverPublicKeys(obj *seal.EncryptedObject) ([]*seal.PublicKey, error) {
	if len(cmd.ServerKeys) == 0 {
		return nil, nil
	}

	given, err := decodePublicKeys(cmd.ServerKeys)
	if err != nil {
		return nil, err
	}

	byRef := make(map[seal.ServerReference]*seal.PublicKey, len(given))
	for _, pk := range given {
		byRef[seal.ReferenceForPublicKey(pk)] = pk
	}

	pks := make([]*seal.PublicKey, len(obj.Services))
	for i, svc := range obj.Services {
		pk, ok := byRef[svc.Ref]
		if !ok {
			return nil, fmt.Errorf("no public key given for server %s", svc.Ref)
		}

		pks[i] = pk
	}

	return pks, nil
}
