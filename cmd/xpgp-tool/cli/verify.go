package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xpgp/gpg"
	"github.com/effective-security/xpgp/keyring"
	"github.com/effective-security/xpgp/x/print"
)

// VerifyCmd verifies a signed message
type VerifyCmd struct {
	File     string   `kong:"arg" required:"" help:"signed message, or detached signature"`
	Output   string   `help:"optional, file to write the signed data to"`
	Armor    *bool    `help:"force the armour on or off, by default it is detected"`
	Keyring  []string `help:"keyring files, override the configured keyrings"`
	Detached string   `help:"signed data of a detached signature, by default the file without .sig or .asc extension"`
}

// Run the command
func (a *VerifyCmd) Run(ctx *Cli) error {
	ring, err := ctx.Keyring(a.Keyring)
	if err != nil {
		return errors.WithMessage(err, "unable to load keyring")
	}

	cfg := ctx.Config()
	opts := &gpg.VerifyOptions{
		Armoured: a.Armor,
		UseMmap:  cfg.UseMmap,
	}
	if opts.Armoured == nil {
		opts.Armoured = cfg.Armor
	}
	if a.Detached != "" {
		opts.Detached, err = ctx.ReadFile(a.Detached)
		if err != nil {
			return errors.WithMessage(err, "unable to load signed data")
		}
	}
	pass, err := cfg.LoadPassphrase()
	if err != nil {
		return err
	}
	if pass != nil {
		opts.Upcalls = &keyring.Upcalls{Ring: ring, Secret: pass}
	}

	res, err := gpg.VerifyFile(ctx.Context(), ring, a.File, opts)
	if res == nil {
		return err
	}
	print.ValidationResult(ctx.ErrWriter(), res)
	if err != nil {
		return err
	}

	if a.Output != "" {
		return ctx.WriteFile(a.Output, res.Data)
	}
	return nil
}
