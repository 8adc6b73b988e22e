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

	"github.com/withondo/ondo/model"
)

// duplicateKind classifies why a commit candidate is a duplicate of
// something already persisted.
type duplicateKind int

const (
	duplicateNone duplicateKind = iota
	// duplicateSettlement: the row settles a statement that is already paid
	// or already has a settlement recorded. Never bypassed, not even by an
	// override import.
	duplicateSettlement
	// duplicateExternalID: a transaction with the same owner-scoped external
	// id exists. An override import replaces it instead of skipping.
	duplicateExternalID
	// duplicateNatural: a transaction with the same natural key (owner,
	// booked time, kind, amount, account, currency, memo) exists.
	duplicateNatural
)

// checkDuplicate runs the dedup checks for one commit candidate in their
// fixed order: settlement, external id, natural key. The first hit wins.
func (o *Ondo) checkDuplicate(ctx context.Context, txn *model.Transaction) (duplicateKind, error) {
	if txn.StatementID != nil && *txn.StatementID != "" {
		settled, err := o.isStatementSettled(ctx, txn.OwnerID, *txn.StatementID)
		if err != nil {
			return duplicateNone, err
		}
		if settled {
			return duplicateSettlement, nil
		}
	}

	if txn.ExternalID != nil && *txn.ExternalID != "" {
		exists, err := o.datasource.ExternalIDExists(ctx, txn.OwnerID, *txn.ExternalID)
		if err != nil {
			return duplicateNone, err
		}
		if exists {
			return duplicateExternalID, nil
		}
	}

	exists, err := o.datasource.TransactionExistsByNaturalKey(ctx, txn)
	if err != nil {
		return duplicateNone, err
	}
	if exists {
		return duplicateNatural, nil
	}
	return duplicateNone, nil
}

// isStatementSettled reports whether a statement is already cleared, either
// by its own paid status or by a settlement transaction referencing it.
func (o *Ondo) isStatementSettled(ctx context.Context, ownerID, statementID string) (bool, error) {
	paid, err := o.datasource.IsStatementPaid(ctx, ownerID, statementID)
	if err != nil {
		return false, err
	}
	if paid {
		return true, nil
	}
	return o.datasource.HasSettlementForStatement(ctx, ownerID, statementID)
}
