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
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/withondo/ondo/database/mocks"
	"github.com/withondo/ondo/internal/apierror"
	"github.com/withondo/ondo/model"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw      string
		currency string
		want     int64
		wantErr  bool
	}{
		{"1,234.56", "USD", 123456, false},
		{"-1,234.56", "USD", -123456, false},
		{"50000", "KRW", 50000, false},
		{"12.345", "KWD", 12345, false},
		{"0.5", "KRW", 0, true},  // KRW has no minor units
		{"1.005", "USD", 0, true}, // sub-cent precision
		{"", "USD", 0, true},
		{"abc", "USD", 0, true},
	}
	for _, tc := range cases {
		got, err := parseAmount(tc.raw, tc.currency)
		if tc.wantErr {
			assert.Error(t, err, "amount %q / %s", tc.raw, tc.currency)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tc.want, got, "amount %q / %s", tc.raw, tc.currency)
	}
}

func TestParseBookedAt(t *testing.T) {
	at, err := parseBookedAt("2025-05-01", "09:30")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC), at)

	midnight, err := parseBookedAt("2025-05-01", "")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), midnight)

	withSeconds, err := parseBookedAt("2025-05-01", "09:30:59")
	assert.NoError(t, err)
	assert.Equal(t, at, withSeconds, "seconds are truncated to minute precision")

	_, err = parseBookedAt("05/01/2025", "09:30")
	assert.Error(t, err)

	_, err = parseBookedAt("2025-05-01", "9h30")
	assert.Error(t, err)
}

func TestNormalizeEntriesCollectsRowIssues(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	ownerID := gofakeit.UUID()

	mockDS.On("GetAccountByName", mock.Anything, ownerID, "Checking").
		Return(&model.Account{AccountID: "acc_1", Name: "Checking"}, nil)
	mockDS.On("GetAccountByName", mock.Anything, ownerID, "Ghost").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "account Ghost not found", nil))

	rows := []model.RawEntry{
		{Date: "2025-05-01", Time: "09:30", Amount: "-50000", Currency: "KRW", Account: "Checking"},
		{Date: "2025-05-01", Time: "09:30", Amount: "bogus", Currency: "KRW", Account: "Checking"},
		{Date: "2025-05-01", Time: "09:30", Amount: "1000", Currency: "KRW", Account: "Ghost"},
	}

	entries, issues := ondo.NormalizeEntries(context.Background(), ownerID, rows, false)

	assert.Len(t, entries, 1, "only the valid row survives")
	assert.Equal(t, int64(-50000), entries[0].Amount)
	assert.Equal(t, "acc_1", entries[0].AccountID)
	assert.Len(t, issues, 2)
	assert.Contains(t, issues[0], "row 2:")
	assert.Contains(t, issues[1], "row 3:")
}

func TestNormalizeEntriesCreatesMissingAccounts(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	ownerID := gofakeit.UUID()

	mockDS.On("GetAccountByName", mock.Anything, ownerID, "Brand New").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "account Brand New not found", nil))
	mockDS.On("CreateAccount", mock.Anything, mock.MatchedBy(func(acc *model.Account) bool {
		return acc.OwnerID == ownerID && acc.Name == "Brand New" && acc.AccountID != ""
	})).Return(nil)

	rows := []model.RawEntry{
		{Date: "2025-05-01", Amount: "1000", Currency: "KRW", Account: "Brand New"},
	}

	entries, issues := ondo.NormalizeEntries(context.Background(), ownerID, rows, true)

	assert.Len(t, entries, 1)
	assert.Empty(t, issues)
	assert.NotEmpty(t, entries[0].AccountID)
	mockDS.AssertExpectations(t)
}

func TestNormalizeRowCounterAccountBecomesTransferDetail(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	ownerID := gofakeit.UUID()

	mockDS.On("GetAccountByName", mock.Anything, ownerID, "Checking").
		Return(&model.Account{AccountID: "acc_1"}, nil)
	mockDS.On("GetAccountByName", mock.Anything, ownerID, "Savings").
		Return(&model.Account{AccountID: "acc_2"}, nil)

	rows := []model.RawEntry{
		{Date: "2025-05-01", Amount: "-1000", Currency: "KRW", Account: "Checking", CounterAccount: "Savings", Category: "ignored?"},
	}
	entries, issues := ondo.NormalizeEntries(context.Background(), ownerID, rows, false)

	assert.Empty(t, issues)
	detail, ok := entries[0].Detail.(model.TransferDetail)
	assert.True(t, ok, "a counter-account makes the row a transfer leg")
	assert.Equal(t, "Savings", detail.CounterAccount)
	assert.Equal(t, "acc_2", detail.CounterAccountID)
}

func TestNormalizeRowUnknownCounterAccountIsBestEffort(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	ondo := newTestOndo(mockDS)
	ownerID := gofakeit.UUID()

	mockDS.On("GetAccountByName", mock.Anything, ownerID, "Checking").
		Return(&model.Account{AccountID: "acc_1"}, nil)
	mockDS.On("GetAccountByName", mock.Anything, ownerID, "Somewhere Else").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "not found", nil))

	rows := []model.RawEntry{
		{Date: "2025-05-01", Amount: "-1000", Currency: "KRW", Account: "Checking", CounterAccount: "Somewhere Else"},
	}
	entries, issues := ondo.NormalizeEntries(context.Background(), ownerID, rows, false)

	assert.Empty(t, issues, "an unresolvable counter-account is not a row failure")
	detail := entries[0].Detail.(model.TransferDetail)
	assert.Equal(t, "Somewhere Else", detail.CounterAccount)
	assert.Empty(t, detail.CounterAccountID)
}
