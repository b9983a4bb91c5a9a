// Command networth-report prints dashboard sections to the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	env := &environment{}
	for _, c := range commands(env) {
		commander.Register(c, "reports")
	}
	commander.Register(&importsCmd{env: env}, "sync")

	flag.Parse()
	code := commander.Execute(context.Background())
	env.close()
	os.Exit(int(code))
}
