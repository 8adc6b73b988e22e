package database

import (
	"context"
	"time"

	"github.com/withondo/ondo/model"
)

type IDataSource interface {
	account
	transaction
	statement
	importJob
}

type account interface {
	CreateAccount(ctx context.Context, acc *model.Account) error
	GetAccount(ctx context.Context, ownerID, accountID string) (*model.Account, error)
	GetAccountByName(ctx context.Context, ownerID, name string) (*model.Account, error)
	UpdateAccountBalance(ctx context.Context, accountID string, delta int64) error
}

type transaction interface {
	RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, transactionID string) error
	GetTransaction(ctx context.Context, ownerID, transactionID string) (*model.Transaction, error)
	GetTransactionsByExternalID(ctx context.Context, ownerID, externalID string) ([]*model.Transaction, error)
	GetTransactionsByGroupID(ctx context.Context, ownerID, groupID string) ([]*model.Transaction, error)
	TransactionExistsByNaturalKey(ctx context.Context, txn *model.Transaction) (bool, error)
	ExternalIDExists(ctx context.Context, ownerID, externalID string) (bool, error)
	FindUnlinkedCounterparts(ctx context.Context, ownerID string, bookedAt time.Time, currency string, absAmount int64) ([]*model.Transaction, error)
	ConvertToTransfer(ctx context.Context, ownerID, transactionID, counterAccountID, groupID string) error
	HasSettlementForStatement(ctx context.Context, ownerID, statementID string) (bool, error)
}

type statement interface {
	IsStatementPaid(ctx context.Context, ownerID, statementID string) (bool, error)
}

type importJob interface {
	RecordImportJob(ctx context.Context, job *model.ImportJob) error
	GetImportJob(ctx context.Context, ownerID, jobID string) (*model.ImportJob, error)
	UpdateImportJobStatus(ctx context.Context, jobID string, status model.JobStatus, summary model.CommitSummary, completedAt *time.Time) error
	RecordPendingPairs(ctx context.Context, pairs []*model.MatchCandidatePair) error
	GetPendingPairs(ctx context.Context, jobID string) ([]*model.MatchCandidatePair, error)
	RecordDecision(ctx context.Context, jobID, pairID string, action model.DecisionAction, decidedAt time.Time) error
	CountUndecidedPairs(ctx context.Context, jobID string) (int, error)
	DeletePendingPairs(ctx context.Context, jobID string) error
	RecordStagedTransactions(ctx context.Context, jobID string, txns []*model.Transaction) error
	GetStagedTransactions(ctx context.Context, jobID string) ([]*model.Transaction, error)
	DeleteStagedTransactions(ctx context.Context, jobID string) error
}
