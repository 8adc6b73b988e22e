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
package model

import (
	"fmt"
	"time"
)

// JobStatus is the upload job state machine:
//
//	PARSED -> PAIRED -> AWAITING_DECISIONS -> COMMITTED
//
// with CANCELLED reachable from any pre-commit state. AWAITING_DECISIONS is
// entered only when at least one SUSPECTED or cross-batch pair exists, and
// may advance to COMMITTED only once decision coverage is complete.
type JobStatus string

const (
	JobParsed            JobStatus = "PARSED"
	JobPaired            JobStatus = "PAIRED"
	JobAwaitingDecisions JobStatus = "AWAITING_DECISIONS"
	JobCommitted         JobStatus = "COMMITTED"
	JobCancelled         JobStatus = "CANCELLED"
)

// CanTransition reports whether the state machine permits moving to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch next {
	case JobPaired:
		return s == JobParsed
	case JobAwaitingDecisions:
		return s == JobPaired
	case JobCommitted:
		return s == JobPaired || s == JobAwaitingDecisions
	case JobCancelled:
		return s == JobParsed || s == JobPaired || s == JobAwaitingDecisions
	}
	return false
}

// ImportJob is one bulk-upload job and its outcome.
type ImportJob struct {
	ID          int64          `json:"-"`
	JobID       string         `json:"job_id"`
	OwnerID     string         `json:"owner_id"`
	Status      JobStatus      `json:"status"`
	Override    bool           `json:"override"`
	Summary     CommitSummary  `json:"summary"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// FailedItem identifies one row or pair whose persistence failed; the rest of
// the batch commits regardless.
type FailedItem struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// CommitSummary aggregates the outcome of a commit pass.
type CommitSummary struct {
	Created              int          `json:"created"`
	ExistingDuplicates   int          `json:"existing_duplicates"`
	NaturalDuplicates    int          `json:"natural_duplicates"`
	SettlementDuplicates int          `json:"settlement_duplicates"`
	LinkedCrossBatch     int          `json:"linked_cross_batch"`
	Updated              int          `json:"updated"`
	Failed               []FailedItem `json:"failed,omitempty"`
}

// Merge folds another summary into this one.
func (s *CommitSummary) Merge(other CommitSummary) {
	s.Created += other.Created
	s.ExistingDuplicates += other.ExistingDuplicates
	s.NaturalDuplicates += other.NaturalDuplicates
	s.SettlementDuplicates += other.SettlementDuplicates
	s.LinkedCrossBatch += other.LinkedCrossBatch
	s.Updated += other.Updated
	s.Failed = append(s.Failed, other.Failed...)
}

// IngestResult is the response of the ingest operation.
type IngestResult struct {
	JobID             string                `json:"job_id"`
	Status            JobStatus             `json:"status"`
	Summary           CommitSummary         `json:"summary"`
	Issues            []string              `json:"issues,omitempty"`
	SuspectedPairs    []*MatchCandidatePair `json:"suspected_pairs,omitempty"`
	CrossBatchMatches []*MatchCandidatePair `json:"cross_batch_matches,omitempty"`
}

// ConfirmResult is the response of the confirm operation.
type ConfirmResult struct {
	JobID        string       `json:"job_id"`
	LinkedCount  int          `json:"linked_count"`
	CreatedCount int          `json:"created_count"`
	UpdatedCount int          `json:"updated_count"`
	Failed       []FailedItem `json:"failed,omitempty"`
}

// ErrInvalidTransition is returned when a job is driven outside its state
// machine, e.g. confirming a cancelled job.
type ErrInvalidTransition struct {
	From JobStatus
	To   JobStatus
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid job transition %s -> %s", e.From, e.To)
}
