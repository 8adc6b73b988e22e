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

package ondo

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/withondo/ondo/model"
)

// findCrossBatchMatches searches persisted history for unlinked counterparts
// of entries that found no partner inside the batch. Every match found is
// surfaced to the user regardless of score; the engine never auto-links
// across batches. Returns the candidate pairs and the entries that matched
// nothing.
func (o *Ondo) findCrossBatchMatches(ctx context.Context, jobID, ownerID string, leftovers []*model.LedgerEntry) ([]*model.MatchCandidatePair, []*model.LedgerEntry) {
	ctx, span := otel.Tracer("ondo.pairing").Start(ctx, "FindCrossBatchMatches")
	defer span.End()

	var pairs []*model.MatchCandidatePair
	var unmatched []*model.LedgerEntry
	for _, entry := range leftovers {
		if model.IsRecurringArtifact(entry.ExternalID) {
			unmatched = append(unmatched, entry)
			continue
		}
		pair, err := o.matchAgainstHistory(ctx, jobID, ownerID, entry)
		if err != nil {
			logrus.Warnf("cross-batch lookup failed for row %d: %v", entry.RowIndex, err)
			unmatched = append(unmatched, entry)
			continue
		}
		if pair == nil {
			unmatched = append(unmatched, entry)
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs, unmatched
}

// matchAgainstHistory finds the best unlinked persisted counterpart for one
// entry, or nil when none qualifies. Candidates arrive oldest first, so on a
// tied score the earliest-recorded transaction wins.
func (o *Ondo) matchAgainstHistory(ctx context.Context, jobID, ownerID string, entry *model.LedgerEntry) (*model.MatchCandidatePair, error) {
	candidates, err := o.datasource.FindUnlinkedCounterparts(ctx, ownerID, entry.BookedAt, entry.Currency, entry.AbsAmount())
	if err != nil {
		return nil, err
	}

	var best *model.Transaction
	bestScore := -1
	var bestReasons []string
	for _, candidate := range candidates {
		// a counterpart must move the opposite way
		if (candidate.Amount < 0) == (entry.Amount < 0) {
			continue
		}
		score, reasons := o.scoreCrossBatch(entry, candidate)
		if score > bestScore {
			best = candidate
			bestScore = score
			bestReasons = reasons
		}
	}
	if best == nil {
		return nil, nil
	}

	return &model.MatchCandidatePair{
		PairID:                model.GenerateUUIDWithSuffix("pair"),
		JobID:                 jobID,
		Kind:                  model.PairCrossBatch,
		Out:                   entry,
		ExistingTransactionID: best.TransactionID,
		Score:                 bestScore,
		Classification:        model.ClassifyScore(bestScore),
		Reasons:               bestReasons,
	}, nil
}
