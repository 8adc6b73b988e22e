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
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/withondo/ondo/api"
)

func initializeRouter(o *ondoInstance) *gin.Engine {
	return api.NewAPI(o.ondo).Router()
}

// serveHTTP starts the plain HTTP server for the import API.
func serveHTTP(r *gin.Engine, port string) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Starting server on %s\n", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
	return nil
}

// serverCommands defines the `start` subcommand that runs the API server.
func serverCommands(o *ondoInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start ondo server",
		Run: func(cmd *cobra.Command, args []string) {
			router := initializeRouter(o)
			if err := serveHTTP(router, o.cnf.Server.Port); err != nil {
				log.Fatal(err)
			}
		},
	}
	return cmd
}
