package main

import (
	"database/sql"
	"fmt"

	"github.com/trezcool/goose"

	appfs "github.com/trezcool/rapor/fs"
)

// mockable
var gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
	return goose.RunFS(command, db, appfs.FS, "migrations", args...)
}

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cli.out, "Usage: migrate COMMAND [ARGS]  (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
		return errHelp
	}
	if err := goose.SetDialect(cli.dialect); err != nil {
		return err
	}
	return gooseRunFunc(args[0], cli.db, args[1:]...)
}
