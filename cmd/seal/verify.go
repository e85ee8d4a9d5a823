package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sealkit/seal"
)

type verifyCmd struct {
	PublicKey     string `arg:"" help:"The public key of the extracting server."`
	Namespace     string `arg:"" help:"The namespace of the identity."`
	Identity      string `arg:"" help:"The identity the key was extracted for."`
	UserSecretKey string `arg:"" help:"The user secret key to verify."`
}

func (cmd *verifyCmd) Run(_ *kong.Context) error {
	pk, err := decodePublicKey(cmd.PublicKey)
	if err != nil {
		return err
	}

	ns, err := seal.ParseNamespace(cmd.Namespace)
	if err != nil {
		return err
	}

	var usk seal.UserSecretKey
	if err := usk.UnmarshalText([]byte(cmd.UserSecretKey)); err != nil {
		return err
	}

	if err := seal.VerifyUserSecretKey(&usk, seal.FullIdentity(ns, []byte(cmd.Identity)), pk); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(os.Stderr, "OK")

	return nil
}
