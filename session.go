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
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/withondo/ondo/internal/apierror"
	"github.com/withondo/ondo/internal/notification"
	"github.com/withondo/ondo/model"
)

// IngestBatch is the first phase of the two-phase import. It parses and
// normalizes the uploaded rows, pairs transfer legs inside the batch and
// scores every pair. When nothing needs a human decision the whole batch
// commits in one pass; otherwise every unambiguous candidate is staged with
// the session and nothing reaches the transaction store until the pending
// pairs are decided. A job cancelled while awaiting decisions therefore
// leaves no persisted effects.
func (o *Ondo) IngestBatch(ctx context.Context, ownerID string, rows []model.RawEntry, override, createMissingAccounts bool) (*model.IngestResult, error) {
	ctx, span := otel.Tracer("ondo.import").Start(ctx, "IngestBatch")
	defer span.End()

	if ownerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "owner id is required", nil)
	}
	if len(rows) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "upload contains no rows", nil)
	}

	job := &model.ImportJob{
		JobID:     model.GenerateUUIDWithSuffix("job"),
		OwnerID:   ownerID,
		Status:    model.JobParsed,
		Override:  override,
		CreatedAt: time.Now(),
	}
	if err := o.datasource.RecordImportJob(ctx, job); err != nil {
		return nil, err
	}
	span.AddEvent("Import job created", trace.WithAttributes(attribute.String("job.id", job.JobID)))

	entries, issues := o.NormalizeEntries(ctx, ownerID, rows, createMissingAccounts)

	pairs, leftovers := o.PairEntries(ctx, entries)
	if err := o.transitionJob(ctx, job, model.JobPaired, nil); err != nil {
		return nil, err
	}

	commitCandidates, suspected, unpaired := o.triagePairs(job, pairs, leftovers)

	crossBatch, standalone := o.findCrossBatchMatches(ctx, job.JobID, ownerID, unpaired)
	for _, entry := range standalone {
		commitCandidates = append(commitCandidates, entryToTransaction(ownerID, entry))
	}

	var summary model.CommitSummary
	pending := append(append([]*model.MatchCandidatePair{}, suspected...), crossBatch...)
	if len(pending) > 0 {
		// commit is blocked until every pair is decided: hold the
		// unambiguous candidates with the session instead of writing them
		if len(commitCandidates) > 0 {
			if err := o.datasource.RecordStagedTransactions(ctx, job.JobID, commitCandidates); err != nil {
				return nil, err
			}
		}
		if err := o.datasource.RecordPendingPairs(ctx, pending); err != nil {
			return nil, err
		}
		if err := o.transitionJob(ctx, job, model.JobAwaitingDecisions, &summary); err != nil {
			return nil, err
		}
		logrus.Infof("🟡 import job %s awaiting decisions: %d candidate(s) staged, %d pending pair(s)", job.JobID, len(commitCandidates), len(pending))
	} else {
		locker, err := o.acquireCommitLock(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		summary = o.commitTransactions(ctx, job, commitCandidates)
		o.releaseCommitLock(ctx, locker)
		if err := o.completeJob(ctx, job, model.JobCommitted, &summary); err != nil {
			return nil, err
		}
		logrus.Infof("🟢 import job %s ingested: %d created", job.JobID, summary.Created)
	}

	return &model.IngestResult{
		JobID:             job.JobID,
		Status:            job.Status,
		Summary:           summary,
		Issues:            issues,
		SuspectedPairs:    suspected,
		CrossBatchMatches: crossBatch,
	}, nil
}

// triagePairs splits scored intra-batch pairs three ways: CERTAIN pairs
// auto-merge into commit candidates, SUSPECTED pairs await a human decision,
// UNLIKELY pairs dissolve back into independent entries.
func (o *Ondo) triagePairs(job *model.ImportJob, pairs []legPair, leftovers []*model.LedgerEntry) ([]*model.Transaction, []*model.MatchCandidatePair, []*model.LedgerEntry) {
	var candidates []*model.Transaction
	var suspected []*model.MatchCandidatePair
	unpaired := append([]*model.LedgerEntry{}, leftovers...)

	for _, p := range pairs {
		score, reasons := o.scoreEntryPair(p.out, p.in)
		switch model.ClassifyScore(score) {
		case model.ClassificationCertain:
			candidates = append(candidates, mergeLegs(job.OwnerID, p.out, p.in))
		case model.ClassificationSuspected:
			suspected = append(suspected, &model.MatchCandidatePair{
				PairID:         model.GenerateUUIDWithSuffix("pair"),
				JobID:          job.JobID,
				Kind:           model.PairIntraBatch,
				Out:            p.out,
				In:             p.in,
				Score:          score,
				Classification: model.ClassificationSuspected,
				Reasons:        reasons,
			})
		default:
			unpaired = append(unpaired, p.out, p.in)
		}
	}
	return candidates, suspected, unpaired
}

// ConfirmDecisions is the second phase of the import: it applies link or
// separate verdicts to every pending pair of a job. Coverage must be total;
// a partial decision set is rejected before anything is applied. applyAll,
// when set, stands in for any pair the explicit decisions miss.
func (o *Ondo) ConfirmDecisions(ctx context.Context, ownerID, jobID string, decisions []model.ReconciliationDecision, applyAll *model.DecisionAction) (*model.ConfirmResult, error) {
	ctx, span := otel.Tracer("ondo.import").Start(ctx, "ConfirmDecisions")
	defer span.End()

	job, err := o.datasource.GetImportJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobAwaitingDecisions {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("job %s is %s, not awaiting decisions", jobID, job.Status), model.ErrInvalidTransition{From: job.Status, To: model.JobCommitted})
	}

	pending, err := o.datasource.GetPendingPairs(ctx, jobID)
	if err != nil {
		return nil, err
	}

	verdicts, err := resolveVerdicts(pending, decisions, applyAll)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, p := range pending {
		if err := o.datasource.RecordDecision(ctx, jobID, p.PairID, verdicts[p.PairID], now); err != nil {
			return nil, err
		}
	}
	undecided, err := o.datasource.CountUndecidedPairs(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if undecided > 0 {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest,
			fmt.Sprintf("%d pair(s) remain undecided; commit is blocked until coverage is complete", undecided), nil)
	}

	locker, err := o.acquireCommitLock(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer o.releaseCommitLock(ctx, locker)

	result := &model.ConfirmResult{JobID: jobID}
	var summary model.CommitSummary

	// candidates staged at ingest commit in the same pass as the decisions
	staged, err := o.datasource.GetStagedTransactions(ctx, jobID)
	if err != nil {
		return nil, err
	}
	for _, txn := range staged {
		o.commitOne(ctx, job, txn, &summary)
	}

	for _, p := range pending {
		o.applyDecision(ctx, job, p, verdicts[p.PairID], result, &summary)
	}
	if len(summary.Failed) > 0 {
		result.Failed = summary.Failed
		notification.NotifyCommitFailures(job.JobID, summary.Failed)
	}

	if err := o.datasource.DeleteStagedTransactions(ctx, jobID); err != nil {
		return nil, err
	}
	if err := o.datasource.DeletePendingPairs(ctx, jobID); err != nil {
		return nil, err
	}
	job.Summary.Merge(summary)
	if err := o.completeJob(ctx, job, model.JobCommitted, &job.Summary); err != nil {
		return nil, err
	}
	result.CreatedCount = summary.Created
	result.UpdatedCount = summary.Updated
	logrus.Infof("🟢 import job %s confirmed: %d linked, %d created", jobID, result.LinkedCount, result.CreatedCount)
	return result, nil
}

// resolveVerdicts maps every pending pair to a decision. Unknown pair ids
// and incomplete coverage are both rejected.
func resolveVerdicts(pending []*model.MatchCandidatePair, decisions []model.ReconciliationDecision, applyAll *model.DecisionAction) (map[string]model.DecisionAction, error) {
	known := make(map[string]bool, len(pending))
	for _, p := range pending {
		known[p.PairID] = true
	}

	verdicts := make(map[string]model.DecisionAction, len(pending))
	for _, d := range decisions {
		if !known[d.PairID] {
			return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("unknown pair id %s", d.PairID), nil)
		}
		if d.Action != model.DecisionLink && d.Action != model.DecisionSeparate {
			return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("invalid action %q for pair %s", d.Action, d.PairID), nil)
		}
		verdicts[d.PairID] = d.Action
	}

	var missing []string
	for _, p := range pending {
		if _, ok := verdicts[p.PairID]; ok {
			continue
		}
		if applyAll != nil {
			verdicts[p.PairID] = *applyAll
			continue
		}
		missing = append(missing, p.PairID)
	}
	if len(missing) > 0 {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "every pending pair needs a decision", map[string][]string{"undecided": missing})
	}
	return verdicts, nil
}

// applyDecision commits the outcome of one decided pair. A link verdict on a
// cross-batch pair can lose the race for its target; that failure is
// recorded per pair and the rest of the batch proceeds.
func (o *Ondo) applyDecision(ctx context.Context, job *model.ImportJob, p *model.MatchCandidatePair, action model.DecisionAction, result *model.ConfirmResult, summary *model.CommitSummary) {
	switch {
	case action == model.DecisionLink && p.Kind == model.PairIntraBatch:
		before := summary.Created + summary.Updated
		o.commitOne(ctx, job, mergeLegs(job.OwnerID, p.Out, p.In), summary)
		if summary.Created+summary.Updated > before {
			result.LinkedCount++
		}
	case action == model.DecisionLink && p.Kind == model.PairCrossBatch:
		if err := o.linkCrossBatch(ctx, job.OwnerID, p); err != nil {
			summary.Failed = append(summary.Failed, model.FailedItem{Ref: p.PairID, Reason: err.Error()})
			return
		}
		summary.LinkedCrossBatch++
		result.LinkedCount++
	case p.Kind == model.PairIntraBatch:
		o.commitOne(ctx, job, entryToTransaction(job.OwnerID, p.Out), summary)
		o.commitOne(ctx, job, entryToTransaction(job.OwnerID, p.In), summary)
	default:
		o.commitOne(ctx, job, entryToTransaction(job.OwnerID, p.Out), summary)
	}
}

// CancelJob abandons a job before its commit pass runs. Staged candidates
// and pending pairs are both discarded, so cancellation leaves no persisted
// transactions and no balance changes.
func (o *Ondo) CancelJob(ctx context.Context, ownerID, jobID string) (*model.ImportJob, error) {
	ctx, span := otel.Tracer("ondo.import").Start(ctx, "CancelJob")
	defer span.End()

	job, err := o.datasource.GetImportJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.CanTransition(model.JobCancelled) {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("job %s is %s and can no longer be cancelled", jobID, job.Status), nil)
	}
	if err := o.datasource.DeleteStagedTransactions(ctx, jobID); err != nil {
		return nil, err
	}
	if err := o.datasource.DeletePendingPairs(ctx, jobID); err != nil {
		return nil, err
	}
	if err := o.completeJob(ctx, job, model.JobCancelled, &job.Summary); err != nil {
		return nil, err
	}
	logrus.Infof("🟡 import job %s cancelled", jobID)
	return job, nil
}

// GetJob returns a job with its still-pending pairs.
func (o *Ondo) GetJob(ctx context.Context, ownerID, jobID string) (*model.ImportJob, []*model.MatchCandidatePair, error) {
	job, err := o.datasource.GetImportJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, nil, err
	}
	var pending []*model.MatchCandidatePair
	if job.Status == model.JobAwaitingDecisions {
		pending, err = o.datasource.GetPendingPairs(ctx, jobID)
		if err != nil {
			return nil, nil, err
		}
	}
	return job, pending, nil
}

func (o *Ondo) transitionJob(ctx context.Context, job *model.ImportJob, next model.JobStatus, summary *model.CommitSummary) error {
	if !job.Status.CanTransition(next) {
		return model.ErrInvalidTransition{From: job.Status, To: next}
	}
	job.Status = next
	if summary != nil {
		job.Summary = *summary
	}
	return o.datasource.UpdateImportJobStatus(ctx, job.JobID, next, job.Summary, nil)
}

func (o *Ondo) completeJob(ctx context.Context, job *model.ImportJob, final model.JobStatus, summary *model.CommitSummary) error {
	if !job.Status.CanTransition(final) {
		return model.ErrInvalidTransition{From: job.Status, To: final}
	}
	now := time.Now()
	job.Status = final
	job.Summary = *summary
	job.CompletedAt = &now
	return o.datasource.UpdateImportJobStatus(ctx, job.JobID, final, job.Summary, &now)
}
