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
	"fmt"
	"time"
)

// TransferDirection is the imported row's transfer-direction hint.
type TransferDirection string

const (
	DirectionOut     TransferDirection = "OUT"
	DirectionIn      TransferDirection = "IN"
	DirectionUnknown TransferDirection = ""
)

// RawEntry is one row exactly as it arrives from an imported spreadsheet,
// before any validation. All fields are strings; the normalizer parses them.
type RawEntry struct {
	Date           string `json:"date"`
	Time           string `json:"time"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Account        string `json:"account"`
	CounterAccount string `json:"counter_account,omitempty"`
	Category       string `json:"category,omitempty"`
	Memo           string `json:"memo,omitempty"`
	ExternalID     string `json:"external_id,omitempty"`
	StatementID    string `json:"statement_id,omitempty"`
	Direction      string `json:"direction,omitempty"`
}

// EntryDetail is the kind-specific part of a ledger entry. A transfer leg
// carries a counter-account reference; everything else carries a category
// hint. The two are mutually exclusive, so they are modeled as a closed
// variant rather than a bag of optional fields.
type EntryDetail interface {
	entryDetail()
}

// TransferDetail is the detail of a row that names the other leg's account.
type TransferDetail struct {
	CounterAccount   string `json:"counter_account"`
	CounterAccountID string `json:"counter_account_id,omitempty"`
}

func (TransferDetail) entryDetail() {}

// CategorizedDetail is the detail of an ordinary income/expense row.
type CategorizedDetail struct {
	Category   string `json:"category"`
	CategoryID string `json:"category_id,omitempty"`
}

func (CategorizedDetail) entryDetail() {}

// LedgerEntry is a validated, canonicalized import row. It is ephemeral: it
// is either merged into a Transaction or converted 1:1 into a standalone
// Transaction at commit time; it never persists on its own.
type LedgerEntry struct {
	RowIndex    int               `json:"row_index"`
	BookedAt    time.Time         `json:"booked_at"` // minute precision
	Amount      int64             `json:"amount"`    // signed minor units, OUT negative
	Currency    string            `json:"currency"`
	AccountName string            `json:"account_name"`
	AccountID   string            `json:"account_id"`
	Memo        string            `json:"memo,omitempty"`
	ExternalID  string            `json:"external_id,omitempty"`
	StatementID string            `json:"statement_id,omitempty"`
	Direction   TransferDirection `json:"direction,omitempty"`
	Detail      EntryDetail       `json:"-"`
}

// AbsAmount returns the magnitude of the entry's amount.
func (e *LedgerEntry) AbsAmount() int64 {
	if e.Amount < 0 {
		return -e.Amount
	}
	return e.Amount
}

// CounterAccountID returns the resolved counter-account id when the entry is
// a transfer leg, or "" otherwise.
func (e *LedgerEntry) CounterAccountID() string {
	if d, ok := e.Detail.(TransferDetail); ok {
		return d.CounterAccountID
	}
	return ""
}

// CounterAccountRef returns the raw counter-account reference (name or id)
// when the entry is a transfer leg, or "" otherwise.
func (e *LedgerEntry) CounterAccountRef() string {
	if d, ok := e.Detail.(TransferDetail); ok {
		return d.CounterAccount
	}
	return ""
}

// CategoryText returns the category hint text when the entry carries one.
func (e *LedgerEntry) CategoryText() string {
	if d, ok := e.Detail.(CategorizedDetail); ok {
		return d.Category
	}
	return ""
}

// CategoryID returns the resolved category id when the entry carries one.
func (e *LedgerEntry) CategoryID() string {
	if d, ok := e.Detail.(CategorizedDetail); ok {
		return d.CategoryID
	}
	return ""
}

// entryEnvelope is the wire form of a LedgerEntry. The detail variant is
// flattened into a tag plus payload so pending pairs survive a round trip
// through the session store.
type entryEnvelope struct {
	RowIndex    int               `json:"row_index"`
	BookedAt    time.Time         `json:"booked_at"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	AccountName string            `json:"account_name"`
	AccountID   string            `json:"account_id"`
	Memo        string            `json:"memo,omitempty"`
	ExternalID  string            `json:"external_id,omitempty"`
	StatementID string            `json:"statement_id,omitempty"`
	Direction   TransferDirection `json:"direction,omitempty"`
	DetailKind  string            `json:"detail_kind,omitempty"`
	Transfer    *TransferDetail   `json:"transfer,omitempty"`
	Categorized *CategorizedDetail `json:"categorized,omitempty"`
}

// MarshalJSON flattens the detail variant into a tagged envelope.
func (e LedgerEntry) MarshalJSON() ([]byte, error) {
	env := entryEnvelope{
		RowIndex:    e.RowIndex,
		BookedAt:    e.BookedAt,
		Amount:      e.Amount,
		Currency:    e.Currency,
		AccountName: e.AccountName,
		AccountID:   e.AccountID,
		Memo:        e.Memo,
		ExternalID:  e.ExternalID,
		StatementID: e.StatementID,
		Direction:   e.Direction,
	}
	switch d := e.Detail.(type) {
	case TransferDetail:
		env.DetailKind = "transfer"
		env.Transfer = &d
	case CategorizedDetail:
		env.DetailKind = "categorized"
		env.Categorized = &d
	}
	return json.Marshal(env)
}

// UnmarshalJSON restores the detail variant from its tagged envelope.
func (e *LedgerEntry) UnmarshalJSON(data []byte) error {
	var env entryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	e.RowIndex = env.RowIndex
	e.BookedAt = env.BookedAt
	e.Amount = env.Amount
	e.Currency = env.Currency
	e.AccountName = env.AccountName
	e.AccountID = env.AccountID
	e.Memo = env.Memo
	e.ExternalID = env.ExternalID
	e.StatementID = env.StatementID
	e.Direction = env.Direction
	switch env.DetailKind {
	case "transfer":
		if env.Transfer == nil {
			return fmt.Errorf("entry envelope: transfer detail missing")
		}
		e.Detail = *env.Transfer
	case "categorized":
		if env.Categorized == nil {
			return fmt.Errorf("entry envelope: categorized detail missing")
		}
		e.Detail = *env.Categorized
	case "":
		e.Detail = nil
	default:
		return fmt.Errorf("entry envelope: unknown detail kind %q", env.DetailKind)
	}
	return nil
}
