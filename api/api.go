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
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/withondo/ondo"
	"github.com/withondo/ondo/api/middleware"
	"github.com/withondo/ondo/config"
)

type Api struct {
	ondo   *ondo.Ondo
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/imports", a.IngestBatch)
	router.POST("/imports/:job_id/confirm", a.ConfirmDecisions)
	router.GET("/imports/:job_id", a.GetImportJob)
	router.DELETE("/imports/:job_id", a.CancelImportJob)
	return a.router
}

func NewAPI(o *ondo.Ondo) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{ondo: o, router: r}
}
