package main

import (
	"encoding/base64"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sealkit/seal"
)

type cli struct {
	Namespace namespaceCmd `cmd:"" help:"Generate a new namespace."`
	Keypair   keypairCmd   `cmd:"" help:"Generate a new key server master key."`
	Extract   extractCmd   `cmd:"" help:"Extract a user secret key for an identity."`
	Verify    verifyCmd    `cmd:"" help:"Verify a user secret key against a server's public key."`
	Encrypt   encryptCmd   `cmd:"" help:"Encrypt a message for an identity."`
	Decrypt   decryptCmd   `cmd:"" help:"Decrypt a message with extracted user secret keys."`
}

func main() {
	var cli cli

	ctx := kong.Parse(&cli)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func decodePublicKeys(pathsOrKeys []string) (keys []*seal.PublicKey, err error) {
	keys = make([]*seal.PublicKey, len(pathsOrKeys))

	for i, path := range pathsOrKeys {
		keys[i], err = decodePublicKey(path)
		if err != nil {
			return nil, err
		}
	}

	return
}

func decodePublicKey(pathOrKey string) (*seal.PublicKey, error) {
	// Try decoding the key directly.
	var pk seal.PublicKey
	if err := pk.UnmarshalText([]byte(pathOrKey)); err == nil {
		return &pk, nil
	}

	// Otherwise, try reading the contents of it as a file.
	b, err := os.ReadFile(pathOrKey)
	if err != nil {
		return nil, err
	}

	if err := pk.UnmarshalText(b); err != nil {
		return nil, err
	}

	return &pk, nil
}

func keyText(key []byte) string {
	return base64.RawURLEncoding.EncodeToString(key)
}

func readMasterKey(path string) (*seal.MasterKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var mk seal.MasterKey
	if err := mk.UnmarshalText(b); err != nil {
		return nil, err
	}

	return &mk, nil
}

func openOutput(path string, armor bool) (io.WriteCloser, error) {
	dst := os.Stdout

	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}

		dst = f
	}

	if armor {
		return &base64Encoder{dst: dst, enc: base64.NewEncoder(base64.StdEncoding, dst)}, nil
	}

	return dst, nil
}

func openInput(path string, armor bool) (io.ReadCloser, error) {
	src := os.Stdin

	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		src = f
	}

	if armor {
		return &base64Decoder{src: src, dec: base64.NewDecoder(base64.StdEncoding, src)}, nil
	}

	return src, nil
}

type base64Encoder struct {
	dst io.WriteCloser
	enc io.WriteCloser
}

func (b *base64Encoder) Write(p []byte) (n int, err error) {
	return b.enc.Write(p)
}

func (b *base64Encoder) Close() error {
	if err := b.enc.Close(); err != nil {
		return err
	}

	return b.dst.Close()
}

var _ io.WriteCloser = &base64Encoder{}

type base64Decoder struct {
	src io.ReadCloser
	dec io.Reader
}

func (b *base64Decoder) Read(p []byte) (n int, err error) {
	return b.dec.Read(p)
}

func (b *base64Decoder) Close() error {
	return b.src.Close()
}

var _ io.ReadCloser = &base64Decoder{}
