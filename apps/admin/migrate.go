package main

import "github.com/trezcool/shule/storage/database"

func (cli *commandLine) migrate() error {
	return database.Migrate(cli.db)
}
