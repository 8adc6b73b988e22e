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

import "time"

// Classification buckets a confidence score.
type Classification string

const (
	ClassificationCertain   Classification = "CERTAIN"
	ClassificationSuspected Classification = "SUSPECTED"
	ClassificationUnlikely  Classification = "UNLIKELY"
)

// Canonical confidence thresholds. CERTAIN pairs auto-merge with no human
// step; SUSPECTED pairs require a decision; UNLIKELY pairs are treated as two
// independent external movements.
const (
	CertainThreshold   = 80
	SuspectedThreshold = 50
)

// ClassifyScore maps a 0-100 confidence score onto its classification.
func ClassifyScore(score int) Classification {
	switch {
	case score >= CertainThreshold:
		return ClassificationCertain
	case score >= SuspectedThreshold:
		return ClassificationSuspected
	default:
		return ClassificationUnlikely
	}
}

// PairKind distinguishes pairs formed inside one upload from pairs formed
// against an already-persisted transaction.
type PairKind string

const (
	PairIntraBatch PairKind = "intra_batch"
	PairCrossBatch PairKind = "cross_batch"
)

// DecisionAction is the human verdict on a candidate pair.
type DecisionAction string

const (
	DecisionLink     DecisionAction = "link"
	DecisionSeparate DecisionAction = "separate"
)

// ReconciliationDecision records a link/separate verdict for one pair.
type ReconciliationDecision struct {
	PairID    string         `json:"pair_id"`
	Action    DecisionAction `json:"action"`
	DecidedAt time.Time      `json:"decided_at"`
}

// MatchCandidatePair is a scored pairing opportunity. An intra-batch pair
// holds two ledger entries (Out and In legs); a cross-batch pair holds the
// new entry in Out and the persisted counterpart in ExistingTransactionID.
// Pairs are session-scoped and discarded once a decision is applied.
type MatchCandidatePair struct {
	PairID                string                  `json:"pair_id"`
	JobID                 string                  `json:"job_id"`
	Kind                  PairKind                `json:"kind"`
	Out                   *LedgerEntry            `json:"out"`
	In                    *LedgerEntry            `json:"in,omitempty"`
	ExistingTransactionID string                  `json:"existing_transaction_id,omitempty"`
	Score                 int                     `json:"score"`
	Classification        Classification          `json:"classification"`
	Reasons               []string                `json:"reasons"`
	Decision              *ReconciliationDecision `json:"decision,omitempty"`
}

// Decided reports whether a verdict has been recorded for the pair.
func (p *MatchCandidatePair) Decided() bool {
	return p.Decision != nil
}
