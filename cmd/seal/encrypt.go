package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sealkit/seal"
)

type encryptCmd struct {
	Namespace  string   `arg:"" help:"The namespace of the identity."`
	Identity   string   `arg:"" help:"The identity to encrypt for."`
	Plaintext  string   `arg:"" type:"path" help:"The path to the plaintext file, ignored in plain mode."`
	Ciphertext string   `arg:"" type:"path" help:"The path to the encrypted object."`
	Servers    []string `arg:"" repeated:"" help:"The public keys of the key servers."`

	Threshold uint8  `default:"1" help:"The number of servers required for decryption."`
	Mode      string `default:"gcm" enum:"gcm,ctr,plain" help:"The encryption mode."`
	AAD       string `help:"Associated data to bind to the ciphertext."`
	Armor     bool   `help:"Encode the encrypted object as base64."`
}

func (cmd *encryptCmd) Run(_ *kong.Context) error {
	ns, err := seal.ParseNamespace(cmd.Namespace)
	if err != nil {
		return err
	}

	pks, err := decodePublicKeys(cmd.Servers)
	if err != nil {
		return err
	}

	// Servers are referenced by the fingerprints of their public keys.
	refs := make([]seal.ServerReference, len(pks))
	for i, pk := range pks {
		refs[i] = seal.ReferenceForPublicKey(pk)
	}

	input, err := cmd.input()
	if err != nil {
		return err
	}

	obj, key, err := seal.Encrypt(rand.Reader, ns, []byte(cmd.Identity), refs, pks, cmd.Threshold, input)
	if err != nil {
		return err
	}

	b, err := obj.MarshalBinary()
	if err != nil {
		return err
	}

	dst, err := openOutput(cmd.Ciphertext, cmd.Armor)
	if err != nil {
		return err
	}

	defer func() { _ = dst.Close() }()

	if _, err := dst.Write(b); err != nil {
		return err
	}

	// In plain mode the derived key is the product; hand it to the caller.
	if cmd.Mode == "plain" {
		_, _ = fmt.Fprintf(os.Stderr, "derived key: %s\n", keyText(key))
	}

	return nil
}

func (cmd *encryptCmd) input() (seal.EncryptionInput, error) {
	if cmd.Mode == "plain" {
		return seal.Plain{}, nil
	}

	src, err := openInput(cmd.Plaintext, false)
	if err != nil {
		return nil, err
	}

	defer func() { _ = src.Close() }()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	var aad []byte
	if cmd.AAD != "" {
		aad = []byte(cmd.AAD)
	}

	if cmd.Mode == "ctr" {
		return seal.HMACCTR{Data: data, AAD: aad}, nil
	}

	return seal.AESGCM{Data: data, AAD: aad}, nil
}
