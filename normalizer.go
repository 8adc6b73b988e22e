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
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/withondo/ondo/internal/apierror"
	"github.com/withondo/ondo/model"
)

const (
	dateLayout = "2006-01-02"
)

var timeLayouts = []string{"15:04", "15:04:05"}

// currencyExponents maps ISO currencies without the default two minor-unit
// digits. Anything absent uses exponent 2.
var currencyExponents = map[string]int32{
	"KRW": 0,
	"JPY": 0,
	"VND": 0,
	"KWD": 3,
	"BHD": 3,
}

func currencyExponent(currency string) int32 {
	if exp, ok := currencyExponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// parseAmount parses a raw amount string into signed minor units for the
// given currency. Thousands separators are tolerated; precision beyond the
// currency's minor unit is rejected rather than silently rounded.
func parseAmount(raw, currency string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	dec, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	minor := dec.Shift(currencyExponent(currency))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q has more precision than %s allows", raw, currency)
	}
	return minor.IntPart(), nil
}

// parseBookedAt combines the date and time columns into a minute-precision
// timestamp. A missing time defaults to midnight.
func parseBookedAt(dateStr, timeStr string) (time.Time, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", dateStr)
	}
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return day, nil
	}
	for _, layout := range timeLayouts {
		if clock, err := time.Parse(layout, timeStr); err == nil {
			return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", timeStr)
}

func parseDirection(raw string) (model.TransferDirection, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return model.DirectionUnknown, nil
	case "OUT":
		return model.DirectionOut, nil
	case "IN":
		return model.DirectionIn, nil
	}
	return model.DirectionUnknown, fmt.Errorf("invalid direction %q", raw)
}

// resolveAccount maps a free-text account reference to an account id,
// creating the account on demand when the create-if-missing policy allows.
func (o *Ondo) resolveAccount(ctx context.Context, ownerID, name string, createMissing bool) (string, error) {
	acc, err := o.datasource.GetAccountByName(ctx, ownerID, name)
	if err == nil {
		return acc.AccountID, nil
	}
	apiErr, ok := err.(apierror.APIError)
	if !ok || apiErr.Code != apierror.ErrNotFound {
		return "", err
	}
	if !createMissing {
		return "", fmt.Errorf("unknown account %q", name)
	}
	acc = &model.Account{
		AccountID: model.GenerateUUIDWithSuffix("acc"),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err := o.datasource.CreateAccount(ctx, acc); err != nil {
		return "", err
	}
	return acc.AccountID, nil
}

// NormalizeEntries validates and canonicalizes raw rows into typed ledger
// entries. Row-level failures are collected as issue strings and never abort
// the batch; the returned entries are the valid remainder, in input order.
func (o *Ondo) NormalizeEntries(ctx context.Context, ownerID string, rows []model.RawEntry, createMissingAccounts bool) ([]*model.LedgerEntry, []string) {
	ctx, span := otel.Tracer("ondo.import").Start(ctx, "NormalizeEntries")
	defer span.End()

	var entries []*model.LedgerEntry
	var issues []string

	for i, row := range rows {
		entry, err := o.normalizeRow(ctx, ownerID, i, row, createMissingAccounts)
		if err != nil {
			issues = append(issues, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, issues
}

func (o *Ondo) normalizeRow(ctx context.Context, ownerID string, index int, row model.RawEntry, createMissing bool) (*model.LedgerEntry, error) {
	bookedAt, err := parseBookedAt(row.Date, row.Time)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(row.Currency) == "" {
		return nil, fmt.Errorf("currency is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(row.Currency))

	amount, err := parseAmount(row.Amount, currency)
	if err != nil {
		return nil, err
	}
	direction, err := parseDirection(row.Direction)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(row.Account) == "" {
		return nil, fmt.Errorf("account is required")
	}
	accountID, err := o.resolveAccount(ctx, ownerID, strings.TrimSpace(row.Account), createMissing)
	if err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		RowIndex:    index,
		BookedAt:    bookedAt,
		Amount:      amount,
		Currency:    currency,
		AccountName: strings.TrimSpace(row.Account),
		AccountID:   accountID,
		Memo:        strings.TrimSpace(row.Memo),
		ExternalID:  strings.TrimSpace(row.ExternalID),
		StatementID: strings.TrimSpace(row.StatementID),
		Direction:   direction,
	}

	// A row naming a counter-account is a transfer leg; anything else is a
	// categorized movement. The two are exclusive by construction.
	if counter := strings.TrimSpace(row.CounterAccount); counter != "" {
		detail := model.TransferDetail{CounterAccount: counter}
		// Counter accounts resolve best-effort; the other leg may not be a
		// known account when only one side's statement was exported.
		if counterID, err := o.resolveAccount(ctx, ownerID, counter, false); err == nil {
			detail.CounterAccountID = counterID
		}
		entry.Detail = detail
	} else {
		entry.Detail = model.CategorizedDetail{
			Category:   strings.TrimSpace(row.Category),
			CategoryID: strings.TrimSpace(row.Category),
		}
	}
	return entry, nil
}
