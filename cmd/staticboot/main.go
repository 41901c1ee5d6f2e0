package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/staticboot/cmd/staticboot/commands"
	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
	"git.home.luguber.info/inful/staticboot/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("staticboot"),
		kong.Description("Pre-render single-page application routes into static index.html files."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := parser.Run(&commands.Global{Logger: slog.Default()}, cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
		os.Exit(ferrors.ExitGeneral)
	}
}
