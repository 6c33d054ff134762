// Command geodir serves the hierarchical address directory.
package main

import (
	"github.com/nimburion/geodir/pkg/app"
	"github.com/nimburion/geodir/pkg/cli"
)

func main() {
	cli.Execute(cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:              "geodir",
		Description:       "Hierarchical address directory: countries, states, cities, postcodes, streets and addresses",
		EnvPrefix:         "GEODIR",
		RunServer:         app.Serve,
		RunMigrations:     app.Migrate,
		RunSeed:           app.Seed,
		CheckDependencies: app.CheckDependencies,
	}))
}
