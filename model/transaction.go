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

import (
	"encoding/json"
	"time"
)

// TransactionKind is the persisted record type.
type TransactionKind string

const (
	KindIncome     TransactionKind = "INCOME"
	KindExpense    TransactionKind = "EXPENSE"
	KindTransfer   TransactionKind = "TRANSFER"
	KindSettlement TransactionKind = "SETTLEMENT"
)

// Transaction is a committed ledger record. Amounts are signed minor units;
// an outgoing movement is negative from the source account's perspective.
type Transaction struct {
	ID                  int64           `json:"-"`
	TransactionID       string          `json:"transaction_id"`
	OwnerID             string          `json:"owner_id"`
	BookedAt            time.Time       `json:"booked_at"`
	Kind                TransactionKind `json:"kind"`
	Amount              int64           `json:"amount"`
	Currency            string          `json:"currency"`
	AccountID           string          `json:"account_id"`
	CounterAccountID    *string         `json:"counter_account_id,omitempty"`
	CategoryID          *string         `json:"category_id,omitempty"`
	ExternalID          *string         `json:"external_id,omitempty"`
	GroupID             *string         `json:"group_id,omitempty"`
	StatementID         *string         `json:"statement_id,omitempty"`
	Memo                string          `json:"memo,omitempty"`
	IsAutoTransferMatch bool            `json:"is_auto_transfer_match"`
	ExcludeFromReports  bool            `json:"exclude_from_reports"`
	CreatedAt           time.Time       `json:"created_at"`
}

// AbsAmount returns the magnitude of the transaction's amount.
func (t *Transaction) AbsAmount() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// IsLinked reports whether the transaction is already one leg of a transfer
// group and therefore no longer a cross-batch match target.
func (t *Transaction) IsLinked() bool {
	return t.Kind == KindTransfer || t.GroupID != nil
}

func (t *Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}
