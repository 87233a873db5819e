package cli

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xpgp/armor"
	"github.com/effective-security/xpgp/packet"
)

var armorTypes = map[string]bool{
	armor.TypeMessage:    true,
	armor.TypePublicKey:  true,
	armor.TypePrivateKey: true,
	armor.TypeSignature:  true,
}

// ArmorCmd armours a binary file
type ArmorCmd struct {
	File   string            `kong:"arg" required:"" help:"binary file, - for stdin"`
	Type   string            `help:"block type: MESSAGE, PUBLIC KEY BLOCK, PRIVATE KEY BLOCK or SIGNATURE" default:"MESSAGE"`
	Header map[string]string `help:"armour headers"`
	Output string            `help:"optional, output file"`
}

// Run the command
func (a *ArmorCmd) Run(ctx *Cli) error {
	if !armorTypes[a.Type] {
		return errors.Errorf("unsupported block type: %q", a.Type)
	}
	data, err := ctx.ReadFile(a.File)
	if err != nil {
		return errors.WithMessage(err, "unable to load file")
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, a.Type, a.Header)
	if err != nil {
		return err
	}
	if _, err = w.Write(data); err != nil {
		return errors.WithStack(err)
	}
	if err = w.Close(); err != nil {
		return errors.WithStack(err)
	}
	return ctx.WriteFile(a.Output, buf.Bytes())
}

// DearmorCmd decodes an armoured file
type DearmorCmd struct {
	File   string `kong:"arg" required:"" help:"armoured file, - for stdin"`
	Output string `help:"optional, output file"`
}

// Run the command
func (a *DearmorCmd) Run(ctx *Cli) error {
	data, err := ctx.ReadFile(a.File)
	if err != nil {
		return errors.WithMessage(err, "unable to load file")
	}

	em := &errEmitter{}
	var buf bytes.Buffer
	if _, err = buf.ReadFrom(armor.NewDearmour(bytes.NewReader(data), em)); err != nil {
		return err
	}
	if em.err != nil {
		return em.err
	}
	return ctx.WriteFile(a.Output, buf.Bytes())
}

// errEmitter keeps the first error of the dearmour
type errEmitter struct {
	err error
}

func (e *errEmitter) Emit(_ packet.Tag, _ packet.Content) packet.Result {
	return packet.Continue
}

func (e *errEmitter) PushError(err error) {
	if e.err == nil {
		e.err = err
	}
}
