package main

import (
	"io"

	"github.com/alecthomas/kong"
	"github.com/sealkit/seal"
)

type extractCmd struct {
	MasterKey string `arg:"" type:"existingfile" help:"The path to the master key."`
	Namespace string `arg:"" help:"The namespace of the identity."`
	Identity  string `arg:"" help:"The identity to extract a key for."`
	Output    string `arg:"" type:"path" default:"-" help:"The output path for the user secret key."`
}

func (cmd *extractCmd) Run(_ *kong.Context) error {
	mk, err := readMasterKey(cmd.MasterKey)
	if err != nil {
		return err
	}

	ns, err := seal.ParseNamespace(cmd.Namespace)
	if err != nil {
		return err
	}

	usk := seal.Extract(mk, seal.FullIdentity(ns, []byte(cmd.Identity)))

	text, err := usk.MarshalText()
	if err != nil {
		return err
	}

	dst, err := openOutput(cmd.Output, false)
	if err != nil {
		return err
	}

	defer func() { _ = dst.Close() }()

	_, err = io.WriteString(dst, string(text)+"\n")

	return err
}
