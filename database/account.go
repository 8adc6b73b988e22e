package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/withondo/ondo/internal/apierror"
	"github.com/withondo/ondo/model"
)

// CreateAccount inserts a new account record
func (d Datasource) CreateAccount(ctx context.Context, acc *model.Account) error {
	ctx, span := otel.Tracer("Account").Start(ctx, "Saving account to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO accounts(account_id, owner_id, name, currency, balance, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		acc.AccountID, acc.OwnerID, acc.Name, acc.Currency, acc.Balance, acc.CreatedAt,
	)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to create account", err)
	}
	return nil
}

// GetAccount retrieves an account by its id
func (d Datasource) GetAccount(ctx context.Context, ownerID, accountID string) (*model.Account, error) {
	ctx, span := otel.Tracer("Account").Start(ctx, "Fetching account from db")
	defer span.End()

	acc := &model.Account{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, account_id, owner_id, name, currency, balance, created_at
		FROM accounts
		WHERE owner_id = $1 AND account_id = $2
	`, ownerID, accountID).Scan(
		&acc.ID, &acc.AccountID, &acc.OwnerID, &acc.Name, &acc.Currency, &acc.Balance, &acc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account %s not found", accountID), err)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to fetch account", err)
	}
	return acc, nil
}

// GetAccountByName resolves a free-text account name for an owner
func (d Datasource) GetAccountByName(ctx context.Context, ownerID, name string) (*model.Account, error) {
	ctx, span := otel.Tracer("Account").Start(ctx, "Resolving account by name")
	defer span.End()

	acc := &model.Account{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, account_id, owner_id, name, currency, balance, created_at
		FROM accounts
		WHERE owner_id = $1 AND name = $2
	`, ownerID, name).Scan(
		&acc.ID, &acc.AccountID, &acc.OwnerID, &acc.Name, &acc.Currency, &acc.Balance, &acc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account %q not found", name), err)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to resolve account", err)
	}
	return acc, nil
}

// UpdateAccountBalance applies a signed delta to an account balance
func (d Datasource) UpdateAccountBalance(ctx context.Context, accountID string, delta int64) error {
	ctx, span := otel.Tracer("Account").Start(ctx, "Updating account balance")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $2 WHERE account_id = $1`,
		accountID, delta,
	)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to update balance", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to update balance", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account %s not found", accountID), nil)
	}
	return nil
}
