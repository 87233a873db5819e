package cli

import (
	"github.com/effective-security/xpgp/gpg"
	"github.com/effective-security/xpgp/packet"
	"github.com/effective-security/xpgp/x/print"
)

// PacketsCmd lists the packets of a file
type PacketsCmd struct {
	File          string `kong:"arg" required:"" help:"OpenPGP file"`
	Armor         *bool  `help:"force the armour on or off, by default it is detected"`
	RawSubpackets bool   `help:"print subpackets unparsed"`
	Raw           bool   `help:"print packet headers and ends"`
}

// Run the command
func (a *PacketsCmd) Run(ctx *Cli) error {
	opts := &packet.Options{Accumulate: true}
	if a.RawSubpackets {
		opts.AllSubpackets(packet.SubpacketsRaw)
	} else {
		opts.AllSubpackets(packet.SubpacketsParsed)
	}

	armoured := a.Armor
	if armoured == nil {
		armoured = ctx.Config().Armor
	}

	w := ctx.Writer()
	return gpg.ParseFile(ctx.Context(), a.File, opts, armoured, func(pkt *packet.Packet, next packet.Callback) packet.Result {
		print.Packet(w, pkt, a.Raw)
		return next.Call(pkt)
	})
}
