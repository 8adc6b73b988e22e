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
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/withondo/ondo/api/model"
	"github.com/withondo/ondo/internal/apierror"
)

// IngestBatch handles the upload of a spreadsheet batch and runs the first
// import phase.
func (a Api) IngestBatch(c *gin.Context) {
	var req model2.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateIngestRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := a.ondo.IngestBatch(c.Request.Context(), req.OwnerID, req.ToRawEntries(), req.Override, req.CreateMissingAccounts)
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ConfirmDecisions applies the link/separate verdicts for a job's pending
// pairs and completes the import.
func (a Api) ConfirmDecisions(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id is required. pass id in the route /imports/:job_id/confirm"})
		return
	}

	var req model2.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateConfirmRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decisions, applyAll := req.ToDecisions()
	result, err := a.ondo.ConfirmDecisions(c.Request.Context(), req.OwnerID, jobID, decisions, applyAll)
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetImportJob returns a job's status, summary and pending pairs.
func (a Api) GetImportJob(c *gin.Context) {
	jobID := c.Param("job_id")
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id query parameter is required"})
		return
	}

	job, pending, err := a.ondo.GetJob(c.Request.Context(), ownerID, jobID)
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job, "pending_pairs": pending})
}

// CancelImportJob abandons a job before its commit completes.
func (a Api) CancelImportJob(c *gin.Context) {
	jobID := c.Param("job_id")
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id query parameter is required"})
		return
	}

	job, err := a.ondo.CancelJob(c.Request.Context(), ownerID, jobID)
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, job)
}
