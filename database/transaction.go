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
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/withondo/ondo/internal/apierror"
	"github.com/withondo/ondo/model"
)

const transactionColumns = `
	id, transaction_id, owner_id, booked_at, kind, amount, currency,
	account_id, counter_account_id, category_id, external_id, group_id,
	statement_id, memo, is_auto_transfer_match, exclude_from_reports, created_at`

// IsDuplicateKeyError reports whether err is a postgres unique violation.
// Commit-time external-id collisions created by a concurrent job surface this
// way and are reported as duplicates, not raised as failures.
func IsDuplicateKeyError(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func scanTransaction(row interface{ Scan(dest ...interface{}) error }) (*model.Transaction, error) {
	txn := &model.Transaction{}
	var counterAccount, category, external, group, statement sql.NullString
	err := row.Scan(
		&txn.ID, &txn.TransactionID, &txn.OwnerID, &txn.BookedAt, &txn.Kind,
		&txn.Amount, &txn.Currency, &txn.AccountID, &counterAccount, &category,
		&external, &group, &statement, &txn.Memo, &txn.IsAutoTransferMatch,
		&txn.ExcludeFromReports, &txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if counterAccount.Valid {
		txn.CounterAccountID = &counterAccount.String
	}
	if category.Valid {
		txn.CategoryID = &category.String
	}
	if external.Valid {
		txn.ExternalID = &external.String
	}
	if group.Valid {
		txn.GroupID = &group.String
	}
	if statement.Valid {
		txn.StatementID = &statement.String
	}
	return txn, nil
}

// RecordTransaction inserts a committed transaction. Unique violations are
// returned as-is so the committer can classify them via IsDuplicateKeyError.
func (d Datasource) RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Saving transaction to db")
	defer span.End()

	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	err := d.Conn.QueryRowContext(ctx,
		`INSERT INTO transactions(
			transaction_id, owner_id, booked_at, kind, amount, currency,
			account_id, counter_account_id, category_id, external_id, group_id,
			statement_id, memo, is_auto_transfer_match, exclude_from_reports, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		txn.TransactionID, txn.OwnerID, txn.BookedAt, txn.Kind, txn.Amount,
		txn.Currency, txn.AccountID, txn.CounterAccountID, txn.CategoryID,
		txn.ExternalID, txn.GroupID, txn.StatementID, txn.Memo,
		txn.IsAutoTransferMatch, txn.ExcludeFromReports, txn.CreatedAt,
	).Scan(&txn.ID)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// DeleteTransaction removes a transaction row
func (d Datasource) DeleteTransaction(ctx context.Context, ownerID, transactionID string) error {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Deleting transaction from db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`DELETE FROM transactions WHERE owner_id = $1 AND transaction_id = $2`,
		ownerID, transactionID,
	)
	return err
}

// GetTransaction retrieves a transaction by its id
func (d Datasource) GetTransaction(ctx context.Context, ownerID, transactionID string) (*model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching transaction from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = $1 AND transaction_id = $2`,
		ownerID, transactionID,
	)
	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("transaction %s not found", transactionID), err)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransactionsByExternalID retrieves all transactions with a given
// external id for an owner. Used by the override flow to find records that
// incoming rows replace.
func (d Datasource) GetTransactionsByExternalID(ctx context.Context, ownerID, externalID string) ([]*model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching transactions by external id")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = $1 AND external_id = $2`,
		ownerID, externalID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// GetTransactionsByGroupID retrieves all transactions sharing a group id
func (d Datasource) GetTransactionsByGroupID(ctx context.Context, ownerID, groupID string) ([]*model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching transactions by group id")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = $1 AND group_id = $2`,
		ownerID, groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]*model.Transaction, error) {
	var transactions []*model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// TransactionExistsByNaturalKey checks for an exact match on the natural key
// (booked_at, kind, amount, account, currency, memo) for the owner.
func (d Datasource) TransactionExistsByNaturalKey(ctx context.Context, txn *model.Transaction) (bool, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Checking natural key")
	defer span.End()

	var exists bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE owner_id = $1 AND booked_at = $2 AND kind = $3
				AND amount = $4 AND account_id = $5 AND currency = $6 AND memo = $7
		)
	`, txn.OwnerID, txn.BookedAt, txn.Kind, txn.Amount, txn.AccountID, txn.Currency, txn.Memo).Scan(&exists)
	return exists, err
}

// ExternalIDExists checks whether an external id is already recorded for the owner
func (d Datasource) ExternalIDExists(ctx context.Context, ownerID, externalID string) (bool, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Checking external id")
	defer span.End()

	var exists bool
	err := d.Conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE owner_id = $1 AND external_id = $2)`,
		ownerID, externalID,
	).Scan(&exists)
	return exists, err
}

// FindUnlinkedCounterparts finds persisted transactions with identical
// booked time, currency and amount magnitude that are not yet part of a
// transfer group. Runs in a repeatable-read transaction so the candidate set
// is a consistent snapshot with respect to concurrent committers.
func (d Datasource) FindUnlinkedCounterparts(ctx context.Context, ownerID string, bookedAt time.Time, currency string, absAmount int64) ([]*model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Finding unlinked counterparts")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE owner_id = $1 AND booked_at = $2 AND currency = $3 AND ABS(amount) = $4
			AND kind != $5 AND group_id IS NULL
		 ORDER BY created_at, id`,
		ownerID, bookedAt, currency, absAmount, model.KindTransfer,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}
	return transactions, tx.Commit()
}

// ConvertToTransfer converts a standalone transaction into a transfer leg in
// place: kind becomes TRANSFER, the category is cleared and the counter
// account is set. The WHERE guard makes the claim atomic; if another job
// linked the row first, no rows match and ErrAlreadyLinked is returned.
func (d Datasource) ConvertToTransfer(ctx context.Context, ownerID, transactionID, counterAccountID, groupID string) error {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Converting transaction to transfer")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE transactions
		SET kind = $3, category_id = NULL, counter_account_id = $4, group_id = $5, is_auto_transfer_match = TRUE
		WHERE owner_id = $1 AND transaction_id = $2 AND kind != $3 AND group_id IS NULL
	`, ownerID, transactionID, model.KindTransfer, counterAccountID, groupID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apierror.NewAlreadyLinkedError(transactionID)
	}
	return nil
}

// HasSettlementForStatement reports whether a settlement transaction already
// clears the given billing cycle.
func (d Datasource) HasSettlementForStatement(ctx context.Context, ownerID, statementID string) (bool, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Checking settlement linkage")
	defer span.End()

	var exists bool
	err := d.Conn.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE owner_id = $1 AND statement_id = $2 AND kind = $3
		)`,
		ownerID, statementID, model.KindSettlement,
	).Scan(&exists)
	return exists, err
}
