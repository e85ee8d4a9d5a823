package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sealkit/seal"
)

type keypairCmd struct {
	MasterKey string `arg:"" type:"path" help:"The output path for the master key."`
	PublicKey string `arg:"" type:"path" default:"-" help:"The output path for the public key."`

	Seed  string `type:"existingfile" help:"Derive the master key from a seed file instead of sampling one."`
	Index uint64 `help:"The derivation index to use with --seed."`
}

func (cmd *keypairCmd) Run(_ *kong.Context) error {
	mk, pk, err := cmd.keypair()
	if err != nil {
		return err
	}

	text, err := mk.MarshalText()
	if err != nil {
		return err
	}

	if err := os.WriteFile(cmd.MasterKey, text, 0o600); err != nil {
		return err
	}

	dst, err := openOutput(cmd.PublicKey, false)
	if err != nil {
		return err
	}

	defer func() { _ = dst.Close() }()

	// Print the public key and its fingerprint reference.
	_, err = fmt.Fprintf(dst, "%s\t%s\n", pk, seal.ReferenceForPublicKey(pk))

	return err
}

func (cmd *keypairCmd) keypair() (*seal.MasterKey, *seal.PublicKey, error) {
	if cmd.Seed == "" {
		return seal.GenerateKeyPair(rand.Reader)
	}

	f, err := os.Open(cmd.Seed)
	if err != nil {
		return nil, nil, err
	}

	defer func() { _ = f.Close() }()

	var seed seal.Seed
	if _, err := io.ReadFull(f, seed[:]); err != nil {
		return nil, nil, fmt.Errorf("reading seed: %w", err)
	}

	mk := seed.DeriveMasterKey(cmd.Index)

	return mk, mk.PublicKey(), nil
}
