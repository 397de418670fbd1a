package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"

	"github.com/avylen/sqliteengine/cmd/sqlitekit/command"
)

func main() {
	args := os.Args[1:]

	commands := map[string]cli.CommandFactory{
		"inspect": func() (cli.Command, error) {
			return &command.InspectCommand{}, nil
		},
		"create": func() (cli.Command, error) {
			return &command.CreateCommand{}, nil
		},
	}

	kit := &cli.CLI{
		Name:                  "sqlitekit",
		Args:                  args,
		Commands:              commands,
		HelpFunc:              cli.BasicHelpFunc("sqlitekit"),
		Autocomplete:          true,
		AutocompleteInstall:   "install-autocomplete",
		AutocompleteUninstall: "uninstall-autocomplete",
	}

	exitCode, err := kit.Run()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}

	os.Exit(exitCode)
}
