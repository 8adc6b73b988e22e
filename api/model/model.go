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
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/withondo/ondo/model"
)

// RawRow is one uploaded spreadsheet row as it arrives on the wire.
type RawRow struct {
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

// IngestRequest starts an import job for one owner.
type IngestRequest struct {
	OwnerID               string   `json:"owner_id"`
	Override              bool     `json:"override"`
	CreateMissingAccounts bool     `json:"create_missing_accounts"`
	Entries               []RawRow `json:"entries"`
}

func (r *IngestRequest) ValidateIngestRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OwnerID, validation.Required),
		validation.Field(&r.Entries, validation.Required, validation.Each(validation.By(func(value interface{}) error {
			row, ok := value.(RawRow)
			if !ok {
				return errors.New("invalid entry")
			}
			return validation.ValidateStruct(&row,
				validation.Field(&row.Date, validation.Required),
				validation.Field(&row.Amount, validation.Required),
				validation.Field(&row.Currency, validation.Required),
				validation.Field(&row.Account, validation.Required),
			)
		}))),
	)
}

// ToRawEntries converts the wire rows to the engine's raw-entry form.
func (r *IngestRequest) ToRawEntries() []model.RawEntry {
	entries := make([]model.RawEntry, 0, len(r.Entries))
	for _, row := range r.Entries {
		entries = append(entries, model.RawEntry{
			Date:           row.Date,
			Time:           row.Time,
			Amount:         row.Amount,
			Currency:       row.Currency,
			Account:        row.Account,
			CounterAccount: row.CounterAccount,
			Category:       row.Category,
			Memo:           row.Memo,
			ExternalID:     row.ExternalID,
			StatementID:    row.StatementID,
			Direction:      row.Direction,
		})
	}
	return entries
}

// PairDecision is one link/separate verdict in a confirm request.
type PairDecision struct {
	PairID string `json:"pair_id"`
	Action string `json:"action"`
}

// ConfirmRequest applies decisions to a job's pending pairs. ApplyAll, when
// set, covers every pair the explicit decisions list misses.
type ConfirmRequest struct {
	OwnerID   string         `json:"owner_id"`
	Decisions []PairDecision `json:"decisions,omitempty"`
	ApplyAll  string         `json:"apply_all,omitempty"`
}

func validAction(value interface{}) error {
	action, _ := value.(string)
	switch model.DecisionAction(action) {
	case model.DecisionLink, model.DecisionSeparate:
		return nil
	}
	return errors.New("action must be link or separate")
}

func (r *ConfirmRequest) ValidateConfirmRequest() error {
	if len(r.Decisions) == 0 && r.ApplyAll == "" {
		return errors.New("either decisions or apply_all is required")
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.OwnerID, validation.Required),
		validation.Field(&r.ApplyAll, validation.By(func(value interface{}) error {
			if value.(string) == "" {
				return nil
			}
			return validAction(value)
		})),
		validation.Field(&r.Decisions, validation.Each(validation.By(func(value interface{}) error {
			d, ok := value.(PairDecision)
			if !ok {
				return errors.New("invalid decision")
			}
			return validation.ValidateStruct(&d,
				validation.Field(&d.PairID, validation.Required),
				validation.Field(&d.Action, validation.Required, validation.By(validAction)),
			)
		}))),
	)
}

// ToDecisions converts the wire form into the engine's decision records.
func (r *ConfirmRequest) ToDecisions() ([]model.ReconciliationDecision, *model.DecisionAction) {
	now := time.Now()
	decisions := make([]model.ReconciliationDecision, 0, len(r.Decisions))
	for _, d := range r.Decisions {
		decisions = append(decisions, model.ReconciliationDecision{
			PairID:    d.PairID,
			Action:    model.DecisionAction(d.Action),
			DecidedAt: now,
		})
	}
	var applyAll *model.DecisionAction
	if r.ApplyAll != "" {
		action := model.DecisionAction(r.ApplyAll)
		applyAll = &action
	}
	return decisions, applyAll
}
