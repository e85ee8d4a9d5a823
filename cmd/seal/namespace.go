package main

import (
	"crypto/rand"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/sealkit/seal"
)

type namespaceCmd struct{}

func (cmd *namespaceCmd) Run(_ *kong.Context) error {
	ns, err := seal.RandomNamespace(rand.Reader)
	if err != nil {
		return err
	}

	fmt.Println(ns)

	return nil
}
