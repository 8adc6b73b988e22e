/*
Copyright 2025 Ondo Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/withondo/ondo"
	"github.com/withondo/ondo/config"
	"github.com/withondo/ondo/database"
	"github.com/withondo/ondo/internal/notification"
)

// Ondo represents the CLI application, encapsulating the root Cobra command.
type Ondo struct {
	cmd *cobra.Command
}

// ondoInstance holds the engine instance and its configuration used by all
// subcommands.
type ondoInstance struct {
	ondo *ondo.Ondo
	cnf  *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the engine before any
// command runs.
func preRun(app *ondoInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("ondo.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newOndo, err := setupOndo(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.ondo = newOndo
		app.cnf = cnf

		return nil
	}
}

// setupOndo connects the data source and builds the engine.
func setupOndo(cfg *config.Configuration) (*ondo.Ondo, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newOndo, err := ondo.NewOndo(db)
	if err != nil {
		return nil, fmt.Errorf("error creating ondo: %v", err)
	}
	return newOndo, nil
}

// NewCLI creates the command-line interface for the import server.
func NewCLI() *Ondo {
	var configFile string
	o := &ondoInstance{}

	var rootCmd = &cobra.Command{
		Use:   "ondo",
		Short: "Bulk-import reconciliation engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./ondo.json", "Configuration file for the import server")

	rootCmd.PersistentPreRunE = preRun(o)

	rootCmd.AddCommand(serverCommands(o))
	rootCmd.AddCommand(migrateCommands(o))

	return &Ondo{cmd: rootCmd}
}

// executeCLI runs the root command.
func (o *Ondo) executeCLI() {
	if err := o.cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	cli := NewCLI()
	cli.executeCLI()
}
