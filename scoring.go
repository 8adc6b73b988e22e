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
	"strings"
	"time"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/withondo/ondo/model"
)

// Score components. The base is all-or-nothing: without an exact match on
// booked time, currency and amount magnitude the pair scores zero and is
// classified UNLIKELY outright.
const (
	scoreBase              = 50
	scoreTransferSignature = 30
	scoreDistinctAccounts  = 10
	scoreSameAccount       = -20
	scoreMemoSimilar       = 10
	scoreMemoDissimilar    = -10
)

// matchSide is one leg of a scored pair, abstracted so that a ledger entry
// and a persisted transaction score through the same rules.
type matchSide struct {
	BookedAt  time.Time
	Amount    int64 // signed minor units
	Currency  string
	AccountID string
	Memo      string
	Category  string
}

func entrySide(e *model.LedgerEntry) matchSide {
	return matchSide{
		BookedAt:  e.BookedAt,
		Amount:    e.Amount,
		Currency:  e.Currency,
		AccountID: e.AccountID,
		Memo:      e.Memo,
		Category:  e.CategoryText(),
	}
}

func transactionSide(t *model.Transaction) matchSide {
	side := matchSide{
		BookedAt:  t.BookedAt,
		Amount:    t.Amount,
		Currency:  t.Currency,
		AccountID: t.AccountID,
		Memo:      t.Memo,
	}
	if t.CategoryID != nil {
		side.Category = *t.CategoryID
	}
	return side
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// scorePair computes the 0-100 confidence score for two legs and the
// human-readable reasons behind it.
func (o *Ondo) scorePair(a, b matchSide) (int, []string) {
	if !a.BookedAt.Equal(b.BookedAt) || a.Currency != b.Currency || absInt64(a.Amount) != absInt64(b.Amount) {
		return 0, []string{"booked time, currency or amount magnitude differ"}
	}

	score := scoreBase
	reasons := []string{"same booked time, currency and amount magnitude"}

	if o.hasTransferSignature(a, b) {
		score += scoreTransferSignature
		reasons = append(reasons, "transfer signature present")
	}

	if a.AccountID != "" && a.AccountID == b.AccountID {
		score += scoreSameAccount
		reasons = append(reasons, "warning: both legs move within the same account")
	} else {
		score += scoreDistinctAccounts
		reasons = append(reasons, "legs touch distinct accounts")
	}

	if a.Memo != "" && b.Memo != "" {
		switch sim := memoSimilarity(a.Memo, b.Memo); {
		case sim > o.matching.MemoSimilarityHigh:
			score += scoreMemoSimilar
			reasons = append(reasons, "memos closely match")
		case sim < o.matching.MemoSimilarityLow:
			score += scoreMemoDissimilar
			reasons = append(reasons, "memos diverge")
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, reasons
}

// hasTransferSignature reports whether the pair carries a transfer marker:
// a configured keyword in both legs' memo or category text, or signed
// amounts that cancel exactly. One leg mentioning a transfer is not enough;
// a lone keyword would silently promote same-sign lookalikes past the
// decision gate.
func (o *Ondo) hasTransferSignature(a, b matchSide) bool {
	if a.Amount+b.Amount == 0 && a.Amount != 0 {
		return true
	}
	return o.sideHasTransferKeyword(a) && o.sideHasTransferKeyword(b)
}

func (o *Ondo) sideHasTransferKeyword(s matchSide) bool {
	for _, text := range []string{s.Memo, s.Category} {
		if text == "" {
			continue
		}
		lowered := strings.ToLower(text)
		for _, kw := range o.matching.TransferKeywords {
			if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

// memoSimilarity returns a 0-1 similarity ratio between two memos,
// case-insensitive, based on Levenshtein distance over runes.
func memoSimilarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return 1 - float64(distance)/float64(longest)
}

// scoreEntryPair scores an intra-batch pair of ledger entries.
func (o *Ondo) scoreEntryPair(out, in *model.LedgerEntry) (int, []string) {
	return o.scorePair(entrySide(out), entrySide(in))
}

// scoreCrossBatch scores a new entry against an already-persisted
// transaction.
func (o *Ondo) scoreCrossBatch(entry *model.LedgerEntry, existing *model.Transaction) (int, []string) {
	return o.scorePair(entrySide(entry), transactionSide(existing))
}
