package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xpgp/x/print"
)

// KeysCmd provides commands for keys
type KeysCmd struct {
	List KeysListCmd `cmd:"" help:"list keys"`
}

// KeysListCmd prints the keys of keyrings
type KeysListCmd struct {
	Keyring []string `help:"keyring files, override the configured keyrings"`
	JSON    bool     `help:"print as JSON"`
}

// Run the command
func (a *KeysListCmd) Run(ctx *Cli) error {
	ring, err := ctx.Keyring(a.Keyring)
	if err != nil {
		return errors.WithMessage(err, "unable to load keyring")
	}

	if a.JSON {
		list := []print.KeyInfo{}
		for _, k := range ring.Primaries() {
			list = append(list, print.NewKeyInfo(k))
		}
		return ctx.WriteJSON(list)
	}
	print.Keys(ctx.Writer(), ring)
	return nil
}
