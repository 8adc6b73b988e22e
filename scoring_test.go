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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/withondo/ondo/model"
)

func side(bookedAt time.Time, amount int64, accountID, memo string) matchSide {
	return matchSide{
		BookedAt:  bookedAt,
		Amount:    amount,
		Currency:  "KRW",
		AccountID: accountID,
		Memo:      memo,
	}
}

func TestScorePairRequiresExactBase(t *testing.T) {
	ondo := newTestOndo(nil)
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		a, b matchSide
	}{
		{"different minute", side(at, -1000, "a", ""), side(at.Add(time.Minute), 1000, "b", "")},
		{"different currency", side(at, -1000, "a", ""), func() matchSide {
			s := side(at, 1000, "b", "")
			s.Currency = "USD"
			return s
		}()},
		{"different magnitude", side(at, -1000, "a", ""), side(at, 1001, "b", "")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, reasons := ondo.scorePair(tc.a, tc.b)
			assert.Equal(t, 0, score)
			assert.Equal(t, model.ClassificationUnlikely, model.ClassifyScore(score))
			assert.NotEmpty(t, reasons)
		})
	}
}

func TestScorePairCertainOnOppositeAmounts(t *testing.T) {
	ondo := newTestOndo(nil)
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	// exactly cancelling amounts carry the transfer signature on their own
	score, reasons := ondo.scorePair(side(at, -50000, "acc_a", ""), side(at, 50000, "acc_b", ""))

	assert.Equal(t, 90, score)
	assert.Equal(t, model.ClassificationCertain, model.ClassifyScore(score))
	assert.Contains(t, reasons, "transfer signature present")
}

func TestScorePairKeywordSignature(t *testing.T) {
	ondo := newTestOndo(nil)
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	// same-sign legs: no cancelling amounts, the keyword must carry it
	score, _ := ondo.scorePair(side(at, -1000, "acc_a", "내계좌 이동"), side(at, -1000, "acc_b", "내계좌 이동"))

	assert.Equal(t, 100, score, "base + signature + distinct accounts + matching memos")
}

func TestScorePairKeywordOnOneSideOnlyIsNotASignature(t *testing.T) {
	ondo := newTestOndo(nil)
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	// same-sign legs where only one memo mentions a transfer: base 50,
	// distinct accounts +10, divergent memos -10. The pair stays below the
	// auto-merge line and goes to the decision queue.
	score, reasons := ondo.scorePair(
		side(at, -1000, "acc_a", "이체"),
		side(at, -1000, "acc_b", "grocery run downtown"),
	)

	assert.Equal(t, 50, score)
	assert.Equal(t, model.ClassificationSuspected, model.ClassifyScore(score))
	assert.NotContains(t, reasons, "transfer signature present")
}

func TestScorePairKeywordInCategoryCountsForItsSide(t *testing.T) {
	ondo := newTestOndo(nil)
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	a := side(at, -1000, "acc_a", "")
	a.Category = "transfer-out"
	b := side(at, -1000, "acc_b", "")
	b.Category = "transfer-in"

	score, reasons := ondo.scorePair(a, b)
	assert.Equal(t, 90, score, "base + signature + distinct accounts")
	assert.Contains(t, reasons, "transfer signature present")
}

func TestScorePairSameAccountPenalty(t *testing.T) {
	ondo := newTestOndo(nil)
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	score, reasons := ondo.scorePair(side(at, -1000, "acc_a", ""), side(at, 1000, "acc_a", ""))

	assert.Equal(t, 60, score, "self-transfers drop to SUSPECTED")
	assert.Equal(t, model.ClassificationSuspected, model.ClassifyScore(score))
	assert.Contains(t, reasons, "warning: both legs move within the same account")
}

func TestScorePairMemoBands(t *testing.T) {
	ondo := newTestOndo(nil)
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	similar, _ := ondo.scorePair(
		side(at, -1000, "acc_a", "monthly savings sweep"),
		side(at, 1000, "acc_b", "monthly savings sweeps"),
	)
	assert.Equal(t, 100, similar)

	dissimilar, _ := ondo.scorePair(
		side(at, -1000, "acc_a", "coffee"),
		side(at, 1000, "acc_b", "quarterly tax prepayment"),
	)
	assert.Equal(t, 80, dissimilar)

	// one empty memo is neutral
	neutral, _ := ondo.scorePair(side(at, -1000, "acc_a", "coffee"), side(at, 1000, "acc_b", ""))
	assert.Equal(t, 90, neutral)
}

func TestMemoSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, memoSimilarity("Transfer", "transfer"), "comparison is case-insensitive")
	assert.Equal(t, 1.0, memoSimilarity("", ""))
	assert.Less(t, memoSimilarity("coffee", "quarterly tax prepayment"), 0.3)
	assert.Greater(t, memoSimilarity("이체 저축", "이체 저축!"), 0.7)
}

func TestClassifyScoreThresholds(t *testing.T) {
	assert.Equal(t, model.ClassificationCertain, model.ClassifyScore(80))
	assert.Equal(t, model.ClassificationSuspected, model.ClassifyScore(79))
	assert.Equal(t, model.ClassificationSuspected, model.ClassifyScore(50))
	assert.Equal(t, model.ClassificationUnlikely, model.ClassifyScore(49))
}

func TestScoreCrossBatchUsesTransactionFields(t *testing.T) {
	ondo := newTestOndo(nil)
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	entry := &model.LedgerEntry{
		BookedAt: at, Amount: -30000, Currency: "KRW", AccountID: "acc_a", Memo: "이체",
		Detail: model.CategorizedDetail{},
	}
	existing := &model.Transaction{
		BookedAt: at, Amount: 30000, Currency: "KRW", AccountID: "acc_b", Kind: model.KindIncome,
	}

	score, _ := ondo.scoreCrossBatch(entry, existing)
	assert.Equal(t, 90, score)
	assert.Equal(t, model.ClassificationCertain, model.ClassifyScore(score))
}
