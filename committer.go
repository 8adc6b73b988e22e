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

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/withondo/ondo/database"
	"github.com/withondo/ondo/internal/apierror"
	"github.com/withondo/ondo/internal/lock"
	"github.com/withondo/ondo/internal/notification"
	"github.com/withondo/ondo/model"
)

const (
	commitLockTTL      = 2 * time.Minute
	commitLockAttempts = 8
)

// acquireCommitLock serializes commit-time work per owner. Two jobs for the
// same owner committing concurrently could otherwise double-link the same
// persisted counterpart or double-apply balance deltas.
func (o *Ondo) acquireCommitLock(ctx context.Context, ownerID string) (*lock.Locker, error) {
	locker := lock.NewOwnerCommitLock(o.redis, ownerID)
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), commitLockAttempts), ctx)
	if err := backoff.Retry(func() error {
		return locker.Lock(ctx, commitLockTTL)
	}, policy); err != nil {
		return nil, errors.Wrapf(err, "could not acquire commit lock for owner %s", ownerID)
	}
	return locker, nil
}

func (o *Ondo) releaseCommitLock(ctx context.Context, locker *lock.Locker) {
	if err := locker.Unlock(ctx); err != nil {
		logrus.Errorf("failed to release commit lock: %v", err)
	}
}

// entryToTransaction converts one unmatched ledger entry 1:1 into a
// standalone commit candidate.
func entryToTransaction(ownerID string, e *model.LedgerEntry) *model.Transaction {
	kind := model.KindIncome
	if e.Amount < 0 {
		kind = model.KindExpense
	}
	if e.StatementID != "" {
		kind = model.KindSettlement
	}
	txn := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		OwnerID:       ownerID,
		BookedAt:      e.BookedAt,
		Kind:          kind,
		Amount:        e.Amount,
		Currency:      e.Currency,
		AccountID:     e.AccountID,
		Memo:          e.Memo,
	}
	if category := e.CategoryID(); category != "" {
		txn.CategoryID = &category
	}
	if e.ExternalID != "" {
		external := e.ExternalID
		txn.ExternalID = &external
	}
	if e.StatementID != "" {
		statement := e.StatementID
		txn.StatementID = &statement
	}
	return txn
}

// commitTransactions persists a batch of commit candidates. Each candidate
// commits or fails on its own; one bad row never aborts the batch. Failures
// are reported out of band as well as in the returned summary.
func (o *Ondo) commitTransactions(ctx context.Context, job *model.ImportJob, txns []*model.Transaction) model.CommitSummary {
	ctx, span := otel.Tracer("ondo.commit").Start(ctx, "CommitTransactions")
	defer span.End()

	var summary model.CommitSummary
	for _, txn := range txns {
		o.commitOne(ctx, job, txn, &summary)
	}
	if len(summary.Failed) > 0 {
		notification.NotifyCommitFailures(job.JobID, summary.Failed)
	}
	return summary
}

func (o *Ondo) commitOne(ctx context.Context, job *model.ImportJob, txn *model.Transaction, summary *model.CommitSummary) {
	ref := txnRef(txn)
	dup, err := o.checkDuplicate(ctx, txn)
	if err != nil {
		summary.Failed = append(summary.Failed, model.FailedItem{Ref: ref, Reason: err.Error()})
		return
	}
	switch dup {
	case duplicateSettlement:
		summary.SettlementDuplicates++
		return
	case duplicateNatural:
		summary.NaturalDuplicates++
		return
	case duplicateExternalID:
		if !job.Override {
			summary.ExistingDuplicates++
			return
		}
		if err := o.replaceByExternalID(ctx, txn); err != nil {
			summary.Failed = append(summary.Failed, model.FailedItem{Ref: ref, Reason: err.Error()})
			return
		}
		summary.Updated++
		return
	}
	o.insertTransaction(ctx, txn, summary)
}

func (o *Ondo) insertTransaction(ctx context.Context, txn *model.Transaction, summary *model.CommitSummary) {
	ref := txnRef(txn)
	recorded, err := o.datasource.RecordTransaction(ctx, txn)
	if err != nil {
		// a concurrent commit may win the race on the external-id constraint
		if database.IsDuplicateKeyError(err) {
			summary.ExistingDuplicates++
			return
		}
		summary.Failed = append(summary.Failed, model.FailedItem{Ref: ref, Reason: err.Error()})
		return
	}
	if err := o.applyBalanceEffects(ctx, recorded); err != nil {
		if delErr := o.datasource.DeleteTransaction(ctx, recorded.OwnerID, recorded.TransactionID); delErr != nil {
			logrus.Errorf("could not roll back transaction %s after balance failure: %v", recorded.TransactionID, delErr)
		}
		summary.Failed = append(summary.Failed, model.FailedItem{Ref: ref, Reason: err.Error()})
		return
	}
	summary.Created++
}

// replaceByExternalID is the override path: the existing record carrying the
// external id is unwound and removed together with any transfer-group
// siblings, then the incoming candidate is written in its place.
func (o *Ondo) replaceByExternalID(ctx context.Context, txn *model.Transaction) error {
	existing, err := o.datasource.GetTransactionsByExternalID(ctx, txn.OwnerID, *txn.ExternalID)
	if err != nil {
		return err
	}

	victims := make(map[string]*model.Transaction)
	for _, old := range existing {
		victims[old.TransactionID] = old
		if old.GroupID == nil {
			continue
		}
		siblings, err := o.datasource.GetTransactionsByGroupID(ctx, old.OwnerID, *old.GroupID)
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			victims[sibling.TransactionID] = sibling
		}
	}

	for _, old := range victims {
		if err := o.revertBalanceEffects(ctx, old); err != nil {
			return err
		}
		if err := o.datasource.DeleteTransaction(ctx, old.OwnerID, old.TransactionID); err != nil {
			return err
		}
	}

	recorded, err := o.datasource.RecordTransaction(ctx, txn)
	if err != nil {
		return err
	}
	return o.applyBalanceEffects(ctx, recorded)
}

// applyBalanceEffects moves account balances for one committed record: the
// owning account takes the signed amount, and a transfer's counter-account
// takes the inverse.
func (o *Ondo) applyBalanceEffects(ctx context.Context, txn *model.Transaction) error {
	if err := o.datasource.UpdateAccountBalance(ctx, txn.AccountID, txn.Amount); err != nil {
		return err
	}
	if txn.Kind == model.KindTransfer && txn.CounterAccountID != nil {
		if err := o.datasource.UpdateAccountBalance(ctx, *txn.CounterAccountID, -txn.Amount); err != nil {
			if undoErr := o.datasource.UpdateAccountBalance(ctx, txn.AccountID, -txn.Amount); undoErr != nil {
				logrus.Errorf("balance undo failed for account %s: %v", txn.AccountID, undoErr)
			}
			return err
		}
	}
	return nil
}

func (o *Ondo) revertBalanceEffects(ctx context.Context, txn *model.Transaction) error {
	if txn.Kind == model.KindTransfer && txn.CounterAccountID != nil {
		if err := o.datasource.UpdateAccountBalance(ctx, *txn.CounterAccountID, txn.Amount); err != nil {
			return err
		}
	}
	return o.datasource.UpdateAccountBalance(ctx, txn.AccountID, -txn.Amount)
}

// linkCrossBatch attaches a new entry to an already-persisted counterpart by
// converting the persisted record into a transfer in place. No new row is
// written; the imported leg still moves its own account's balance. The
// target is re-read first: between matching and confirm another job may have
// claimed it, and the guarded UPDATE below closes the remaining race.
func (o *Ondo) linkCrossBatch(ctx context.Context, ownerID string, pair *model.MatchCandidatePair) error {
	existing, err := o.datasource.GetTransaction(ctx, ownerID, pair.ExistingTransactionID)
	if err != nil {
		return err
	}
	if existing.IsLinked() {
		return apierror.NewAlreadyLinkedError(existing.TransactionID)
	}

	entry := pair.Out
	group := model.GenerateUUIDWithSuffix("grp")
	if err := o.datasource.ConvertToTransfer(ctx, ownerID, pair.ExistingTransactionID, entry.AccountID, group); err != nil {
		return err
	}
	if err := o.datasource.UpdateAccountBalance(ctx, entry.AccountID, entry.Amount); err != nil {
		return errors.Wrapf(err, "linked %s but balance update failed for account %s", pair.ExistingTransactionID, entry.AccountID)
	}
	return nil
}

func txnRef(txn *model.Transaction) string {
	if txn.ExternalID != nil && *txn.ExternalID != "" {
		return *txn.ExternalID
	}
	return fmt.Sprintf("%s/%s/%d", txn.AccountID, txn.BookedAt.Format("2006-01-02 15:04"), txn.Amount)
}
