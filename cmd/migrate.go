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

	"github.com/spf13/cobra"

	"github.com/withondo/ondo/config"
	"github.com/withondo/ondo/database"
)

// migrateCommands creates the schema bootstrap command. The server performs
// the same bootstrap on connect; this lets operators run it ahead of a deploy.
func migrateCommands(_ *ondoInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "create ondo database tables",
		Run: func(cmd *cobra.Command, args []string) {
			cnf, err := config.Fetch()
			if err != nil {
				log.Printf("Error fetching config: %v", err)
				return
			}

			db, err := database.ConnectDB(cnf.DataSource.Dns)
			if err != nil {
				log.Printf("Error connecting to database: %v", err)
				return
			}
			defer db.Close()

			fmt.Println("Schema is up to date!")
		},
	}

	return cmd
}
