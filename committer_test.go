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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/wacul/ptr"

	"github.com/withondo/ondo/database/mocks"
	"github.com/withondo/ondo/internal/apierror"
	"github.com/withondo/ondo/model"
)

func testJob(override bool) *model.ImportJob {
	return &model.ImportJob{JobID: "job_1", OwnerID: "owner_1", Status: model.JobPaired, Override: override}
}

func TestCommitOneCreatesAndMovesBalance(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	txn := dedupTxn()

	mockDS.On("TransactionExistsByNaturalKey", mock.Anything, txn).Return(false, nil)
	mockDS.On("RecordTransaction", mock.Anything, txn).Return(txn, nil)
	mockDS.On("UpdateAccountBalance", mock.Anything, "acc_1", int64(-1000)).Return(nil)

	var summary model.CommitSummary
	ondo.commitOne(context.Background(), testJob(false), txn, &summary)

	assert.Equal(t, 1, summary.Created)
	assert.Empty(t, summary.Failed)
	mockDS.AssertExpectations(t)
}

func TestCommitOneTransferMovesBothBalances(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	txn := dedupTxn()
	txn.Kind = model.KindTransfer
	txn.CounterAccountID = ptr.String("acc_2")

	mockDS.On("TransactionExistsByNaturalKey", mock.Anything, txn).Return(false, nil)
	mockDS.On("RecordTransaction", mock.Anything, txn).Return(txn, nil)
	mockDS.On("UpdateAccountBalance", mock.Anything, "acc_1", int64(-1000)).Return(nil)
	mockDS.On("UpdateAccountBalance", mock.Anything, "acc_2", int64(1000)).Return(nil)

	var summary model.CommitSummary
	ondo.commitOne(context.Background(), testJob(false), txn, &summary)

	assert.Equal(t, 1, summary.Created)
	mockDS.AssertExpectations(t)
}

func TestCommitOneExternalDuplicateSkipsWithoutOverride(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	txn := dedupTxn()
	txn.ExternalID = ptr.String("ext_1")

	mockDS.On("ExternalIDExists", mock.Anything, "owner_1", "ext_1").Return(true, nil)

	var summary model.CommitSummary
	ondo.commitOne(context.Background(), testJob(false), txn, &summary)

	assert.Equal(t, 1, summary.ExistingDuplicates)
	assert.Equal(t, 0, summary.Created)
	mockDS.AssertNotCalled(t, "RecordTransaction", mock.Anything, mock.Anything)
}

func TestCommitOneOverrideReplacesExisting(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	txn := dedupTxn()
	txn.ExternalID = ptr.String("ext_1")

	old := &model.Transaction{
		TransactionID: "txn_old", OwnerID: "owner_1", Kind: model.KindExpense,
		Amount: -900, AccountID: "acc_1", ExternalID: ptr.String("ext_1"),
	}

	mockDS.On("ExternalIDExists", mock.Anything, "owner_1", "ext_1").Return(true, nil)
	mockDS.On("GetTransactionsByExternalID", mock.Anything, "owner_1", "ext_1").Return([]*model.Transaction{old}, nil)
	mockDS.On("UpdateAccountBalance", mock.Anything, "acc_1", int64(900)).Return(nil)  // undo old
	mockDS.On("DeleteTransaction", mock.Anything, "owner_1", "txn_old").Return(nil)
	mockDS.On("RecordTransaction", mock.Anything, txn).Return(txn, nil)
	mockDS.On("UpdateAccountBalance", mock.Anything, "acc_1", int64(-1000)).Return(nil) // apply new

	var summary model.CommitSummary
	ondo.commitOne(context.Background(), testJob(true), txn, &summary)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Created)
	assert.Empty(t, summary.Failed)
	mockDS.AssertExpectations(t)
}

func TestCommitOneOverrideRemovesTransferGroupSiblings(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	txn := dedupTxn()
	txn.ExternalID = ptr.String("ext_1")

	old := &model.Transaction{
		TransactionID: "txn_old", OwnerID: "owner_1", Kind: model.KindTransfer,
		Amount: -1000, AccountID: "acc_1", CounterAccountID: ptr.String("acc_2"),
		ExternalID: ptr.String("ext_1"), GroupID: ptr.String("grp_1"),
	}

	mockDS.On("ExternalIDExists", mock.Anything, "owner_1", "ext_1").Return(true, nil)
	mockDS.On("GetTransactionsByExternalID", mock.Anything, "owner_1", "ext_1").Return([]*model.Transaction{old}, nil)
	mockDS.On("GetTransactionsByGroupID", mock.Anything, "owner_1", "grp_1").Return([]*model.Transaction{old}, nil)
	mockDS.On("UpdateAccountBalance", mock.Anything, "acc_2", int64(-1000)).Return(nil) // undo counter leg
	mockDS.On("UpdateAccountBalance", mock.Anything, "acc_1", int64(1000)).Return(nil)  // undo own leg
	mockDS.On("DeleteTransaction", mock.Anything, "owner_1", "txn_old").Return(nil)
	mockDS.On("RecordTransaction", mock.Anything, txn).Return(txn, nil)
	mockDS.On("UpdateAccountBalance", mock.Anything, "acc_1", int64(-1000)).Return(nil)

	var summary model.CommitSummary
	ondo.commitOne(context.Background(), testJob(true), txn, &summary)

	assert.Equal(t, 1, summary.Updated)
	mockDS.AssertExpectations(t)
}

func TestCommitOneRollsBackRowOnBalanceFailure(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	txn := dedupTxn()

	mockDS.On("TransactionExistsByNaturalKey", mock.Anything, txn).Return(false, nil)
	mockDS.On("RecordTransaction", mock.Anything, txn).Return(txn, nil)
	mockDS.On("UpdateAccountBalance", mock.Anything, "acc_1", int64(-1000)).Return(errors.New("account is gone"))
	mockDS.On("DeleteTransaction", mock.Anything, "owner_1", "txn_1").Return(nil)

	var summary model.CommitSummary
	ondo.commitOne(context.Background(), testJob(false), txn, &summary)

	assert.Equal(t, 0, summary.Created)
	assert.Len(t, summary.Failed, 1)
	assert.Contains(t, summary.Failed[0].Reason, "account is gone")
	mockDS.AssertExpectations(t)
}

func TestCommitOneNaturalDuplicateCounted(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	txn := dedupTxn()

	mockDS.On("TransactionExistsByNaturalKey", mock.Anything, txn).Return(true, nil)

	var summary model.CommitSummary
	ondo.commitOne(context.Background(), testJob(false), txn, &summary)

	assert.Equal(t, 1, summary.NaturalDuplicates)
	mockDS.AssertNotCalled(t, "RecordTransaction", mock.Anything, mock.Anything)
}

func TestLinkCrossBatch(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)

	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	entry := testEntry(0, at, -30000, "acc_a")
	pair := &model.MatchCandidatePair{
		PairID: "pair_1", Kind: model.PairCrossBatch,
		Out: entry, ExistingTransactionID: "txn_9",
	}

	mockDS.On("GetTransaction", mock.Anything, "owner_1", "txn_9").
		Return(&model.Transaction{TransactionID: "txn_9", OwnerID: "owner_1", AccountID: "acc_b", Kind: model.KindIncome}, nil)
	mockDS.On("ConvertToTransfer", mock.Anything, "owner_1", "txn_9", "acc_a", mock.Anything).Return(nil)
	mockDS.On("UpdateAccountBalance", mock.Anything, "acc_a", int64(-30000)).Return(nil)

	err := ondo.linkCrossBatch(context.Background(), "owner_1", pair)
	assert.NoError(t, err)
	mockDS.AssertExpectations(t)
}

func TestLinkCrossBatchTargetAlreadyLinkedOnReread(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)

	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	entry := testEntry(0, at, -30000, "acc_a")
	pair := &model.MatchCandidatePair{
		PairID: "pair_1", Kind: model.PairCrossBatch,
		Out: entry, ExistingTransactionID: "txn_9",
	}

	// the target was claimed by another link since the match was scored
	mockDS.On("GetTransaction", mock.Anything, "owner_1", "txn_9").
		Return(&model.Transaction{
			TransactionID: "txn_9", OwnerID: "owner_1", AccountID: "acc_b",
			Kind: model.KindTransfer, GroupID: ptr.String("grp_9"),
		}, nil)

	err := ondo.linkCrossBatch(context.Background(), "owner_1", pair)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrAlreadyLinked, apiErr.Code)
	mockDS.AssertNotCalled(t, "ConvertToTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockDS.AssertNotCalled(t, "UpdateAccountBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkCrossBatchAlreadyLinked(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)

	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	entry := testEntry(0, at, -30000, "acc_a")
	pair := &model.MatchCandidatePair{
		PairID: "pair_1", Kind: model.PairCrossBatch,
		Out: entry, ExistingTransactionID: "txn_9",
	}

	mockDS.On("GetTransaction", mock.Anything, "owner_1", "txn_9").
		Return(&model.Transaction{TransactionID: "txn_9", OwnerID: "owner_1", AccountID: "acc_b", Kind: model.KindIncome}, nil)
	// the guarded update is the second line of defence when the claim lands
	// between the re-read and the conversion
	mockDS.On("ConvertToTransfer", mock.Anything, "owner_1", "txn_9", "acc_a", mock.Anything).
		Return(apierror.NewAlreadyLinkedError("txn_9"))

	err := ondo.linkCrossBatch(context.Background(), "owner_1", pair)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrAlreadyLinked, apiErr.Code)
	mockDS.AssertNotCalled(t, "UpdateAccountBalance", mock.Anything, mock.Anything, mock.Anything)
}
