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
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/withondo/ondo/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Account methods

func (m *MockDataSource) CreateAccount(ctx context.Context, acc *model.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockDataSource) GetAccount(ctx context.Context, ownerID, accountID string) (*model.Account, error) {
	args := m.Called(ctx, ownerID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccountByName(ctx context.Context, ownerID, name string) (*model.Account, error) {
	args := m.Called(ctx, ownerID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) UpdateAccountBalance(ctx context.Context, accountID string, delta int64) error {
	args := m.Called(ctx, accountID, delta)
	return args.Error(0)
}

// Transaction methods

func (m *MockDataSource) RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) DeleteTransaction(ctx context.Context, ownerID, transactionID string) error {
	args := m.Called(ctx, ownerID, transactionID)
	return args.Error(0)
}

func (m *MockDataSource) GetTransaction(ctx context.Context, ownerID, transactionID string) (*model.Transaction, error) {
	args := m.Called(ctx, ownerID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetTransactionsByExternalID(ctx context.Context, ownerID, externalID string) ([]*model.Transaction, error) {
	args := m.Called(ctx, ownerID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetTransactionsByGroupID(ctx context.Context, ownerID, groupID string) ([]*model.Transaction, error) {
	args := m.Called(ctx, ownerID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockDataSource) TransactionExistsByNaturalKey(ctx context.Context, txn *model.Transaction) (bool, error) {
	args := m.Called(ctx, txn)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) ExternalIDExists(ctx context.Context, ownerID, externalID string) (bool, error) {
	args := m.Called(ctx, ownerID, externalID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) FindUnlinkedCounterparts(ctx context.Context, ownerID string, bookedAt time.Time, currency string, absAmount int64) ([]*model.Transaction, error) {
	args := m.Called(ctx, ownerID, bookedAt, currency, absAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockDataSource) ConvertToTransfer(ctx context.Context, ownerID, transactionID, counterAccountID, groupID string) error {
	args := m.Called(ctx, ownerID, transactionID, counterAccountID, groupID)
	return args.Error(0)
}

func (m *MockDataSource) HasSettlementForStatement(ctx context.Context, ownerID, statementID string) (bool, error) {
	args := m.Called(ctx, ownerID, statementID)
	return args.Bool(0), args.Error(1)
}

// Statement methods

func (m *MockDataSource) IsStatementPaid(ctx context.Context, ownerID, statementID string) (bool, error) {
	args := m.Called(ctx, ownerID, statementID)
	return args.Bool(0), args.Error(1)
}

// Import job methods

func (m *MockDataSource) RecordImportJob(ctx context.Context, job *model.ImportJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockDataSource) GetImportJob(ctx context.Context, ownerID, jobID string) (*model.ImportJob, error) {
	args := m.Called(ctx, ownerID, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ImportJob), args.Error(1)
}

func (m *MockDataSource) UpdateImportJobStatus(ctx context.Context, jobID string, status model.JobStatus, summary model.CommitSummary, completedAt *time.Time) error {
	args := m.Called(ctx, jobID, status, summary, completedAt)
	return args.Error(0)
}

func (m *MockDataSource) RecordPendingPairs(ctx context.Context, pairs []*model.MatchCandidatePair) error {
	args := m.Called(ctx, pairs)
	return args.Error(0)
}

func (m *MockDataSource) GetPendingPairs(ctx context.Context, jobID string) ([]*model.MatchCandidatePair, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MatchCandidatePair), args.Error(1)
}

func (m *MockDataSource) RecordDecision(ctx context.Context, jobID, pairID string, action model.DecisionAction, decidedAt time.Time) error {
	args := m.Called(ctx, jobID, pairID, action, decidedAt)
	return args.Error(0)
}

func (m *MockDataSource) CountUndecidedPairs(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}

func (m *MockDataSource) DeletePendingPairs(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockDataSource) RecordStagedTransactions(ctx context.Context, jobID string, txns []*model.Transaction) error {
	args := m.Called(ctx, jobID, txns)
	return args.Error(0)
}

func (m *MockDataSource) GetStagedTransactions(ctx context.Context, jobID string) ([]*model.Transaction, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockDataSource) DeleteStagedTransactions(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}
