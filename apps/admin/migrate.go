package main

import "github.com/pkg/errors"

var errNoSQLDatabase = errors.New("migrations need the postgres engine")

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQLDatabase
	}
	return gooseRunFunc(args[0], cli.db, args[1:]...)
}
