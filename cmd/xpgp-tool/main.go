package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/effective-security/x/ctl"
	"github.com/effective-security/xpgp/cmd/xpgp-tool/cli"
	"github.com/effective-security/xpgp/internal/version"
	logger "github.com/sirupsen/logrus"
)

type app struct {
	cli.Cli

	Verify  cli.VerifyCmd  `cmd:"" help:"verify signed message"`
	Packets cli.PacketsCmd `cmd:"" help:"list packets"`
	Keys    cli.KeysCmd    `cmd:"" help:"keys commands"`
	Armor   cli.ArmorCmd   `cmd:"" help:"armour binary file"`
	Dearmor cli.DearmorCmd `cmd:"" help:"decode armoured file"`
}

func main() {
	logger.SetReportCaller(true)
	logger.SetFormatter(&logger.TextFormatter{})

	realMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

func realMain(args []string, out io.Writer, errout io.Writer, exit func(int)) {
	cl := app{
		Cli: cli.Cli{},
	}
	cl.Cli.WithErrWriter(errout).
		WithWriter(out)

	parser, err := kong.New(&cl,
		kong.Name("xpgp-tool"),
		kong.Description("OpenPGP tools"),
		//kong.UsageOnError(),
		kong.Writers(out, errout),
		kong.Exit(exit),
		ctl.BoolPtrMapper,
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.Current().String(),
		})
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args[1:])
	parser.FatalIfErrorf(err)

	if ctx != nil {
		err = ctx.Run(&cl.Cli)
		ctx.FatalIfErrorf(err)
	}
}
