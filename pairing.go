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

	"go.opentelemetry.io/otel"

	"github.com/withondo/ondo/model"
)

// matchState tracks which entries a pairing pass has consumed. It is an
// explicit value scoped to one pairing call, never shared between jobs, so
// concurrent uploads cannot observe each other's partial matches.
type matchState struct {
	used map[int]bool // keyed by entry row index
}

func newMatchState() *matchState {
	return &matchState{used: make(map[int]bool)}
}

func (st *matchState) isUsed(e *model.LedgerEntry) bool {
	return st.used[e.RowIndex]
}

func (st *matchState) consume(entries ...*model.LedgerEntry) {
	for _, e := range entries {
		st.used[e.RowIndex] = true
	}
}

// legPair is two entries matched as the OUT and IN legs of one transfer.
type legPair struct {
	out *model.LedgerEntry
	in  *model.LedgerEntry
}

// PairEntries runs the transfer-pairing passes over normalized entries: an
// exact pass within each (date, time, currency, |amount|) bucket and a
// tolerant pass across near-equal amounts. It returns the matched pairs and
// the leftovers, both in deterministic order.
func (o *Ondo) PairEntries(ctx context.Context, entries []*model.LedgerEntry) ([]legPair, []*model.LedgerEntry) {
	_, span := otel.Tracer("ondo.pairing").Start(ctx, "PairEntries")
	defer span.End()

	var eligible, leftovers []*model.LedgerEntry
	for _, e := range entries {
		// Recurring-rule artifacts are never transfer candidates.
		if model.IsRecurringArtifact(e.ExternalID) {
			leftovers = append(leftovers, e)
			continue
		}
		eligible = append(eligible, e)
	}

	groups := buildGroups(eligible)
	st := newMatchState()

	var pairs []legPair
	for _, g := range groups {
		pairs = append(pairs, o.pairGroup(g, st)...)
	}
	pairs = append(pairs, o.pairTolerant(groups, st)...)

	for _, e := range eligible {
		if !st.isUsed(e) {
			leftovers = append(leftovers, e)
		}
	}
	return pairs, leftovers
}

// pointsOpposite reports whether the entry and any member of the given side
// reference each other by account/counter-account hints, which places the
// entry on the opposite side.
func pointsOpposite(e *model.LedgerEntry, side []*model.LedgerEntry) bool {
	for _, other := range side {
		if counterRefersTo(e, other) || counterRefersTo(other, e) {
			return true
		}
	}
	return false
}

// counterRefersTo reports whether a's counter-account hint names b's account.
func counterRefersTo(a, b *model.LedgerEntry) bool {
	if id := a.CounterAccountID(); id != "" && id == b.AccountID {
		return true
	}
	if ref := a.CounterAccountRef(); ref != "" && ref == b.AccountName {
		return true
	}
	return false
}

// splitRoles classifies a bucket's entries into OUT and IN legs. Direction
// hints win; unknowns whose counter-account hints point into a known side go
// opposite it; the remainder follows the sign convention (OUT is negative),
// and anything still undecided is distributed to balance the two counts.
func splitRoles(entries []*model.LedgerEntry) (outs, ins []*model.LedgerEntry) {
	var unknown []*model.LedgerEntry
	for _, e := range entries {
		switch e.Direction {
		case model.DirectionOut:
			outs = append(outs, e)
		case model.DirectionIn:
			ins = append(ins, e)
		default:
			unknown = append(unknown, e)
		}
	}

	var rest []*model.LedgerEntry
	for _, e := range unknown {
		switch {
		case pointsOpposite(e, ins):
			outs = append(outs, e)
		case pointsOpposite(e, outs):
			ins = append(ins, e)
		default:
			rest = append(rest, e)
		}
	}

	for _, e := range rest {
		switch {
		case e.Amount < 0:
			outs = append(outs, e)
		case e.Amount > 0:
			ins = append(ins, e)
		case len(outs) <= len(ins):
			outs = append(outs, e)
		default:
			ins = append(ins, e)
		}
	}
	return outs, ins
}

// pairGroup matches OUT legs to IN legs inside one bucket. Each OUT selects
// its counterpart by priority: explicit counter-account match, reciprocal
// counter-account reference, then the first remaining IN. Unselected entries
// stay unused and surface as leftovers.
func (o *Ondo) pairGroup(g *entryGroup, st *matchState) []legPair {
	var avail []*model.LedgerEntry
	for _, e := range g.entries {
		if !st.isUsed(e) {
			avail = append(avail, e)
		}
	}
	if len(avail) < 2 {
		return nil
	}

	outs, ins := splitRoles(avail)

	var pairs []legPair
	for _, out := range outs {
		if st.isUsed(out) {
			continue
		}
		in := selectCounterpart(out, ins, st)
		if in == nil {
			continue
		}
		st.consume(out, in)
		pairs = append(pairs, legPair{out: out, in: in})
	}
	return pairs
}

func selectCounterpart(out *model.LedgerEntry, ins []*model.LedgerEntry, st *matchState) *model.LedgerEntry {
	// explicit counter-account match
	for _, in := range ins {
		if !st.isUsed(in) && counterRefersTo(out, in) {
			return in
		}
	}
	// reciprocal reference from the IN side
	for _, in := range ins {
		if !st.isUsed(in) && counterRefersTo(in, out) {
			return in
		}
	}
	// first remaining IN
	for _, in := range ins {
		if !st.isUsed(in) {
			return in
		}
	}
	return nil
}

// pairTolerant matches leftover entries across buckets whose amount
// magnitudes differ by at most the configured tolerance. Candidates are
// scored +1 for an opposite sign and +1 for an opposite direction hint; the
// highest-scoring unused candidate wins, ties broken by the smallest amount
// difference. A candidate with no opposing signal at all never pairs.
func (o *Ondo) pairTolerant(groups []*entryGroup, st *matchState) []legPair {
	tolerance := o.matching.AmountTolerance
	var pairs []legPair
	for _, g := range groups {
		for _, e := range g.entries {
			if st.isUsed(e) {
				continue
			}
			best := o.bestTolerantCandidate(e, g, groups, st, tolerance)
			if best == nil {
				continue
			}
			st.consume(e, best)
			out, in := orientLegs(e, best)
			pairs = append(pairs, legPair{out: out, in: in})
		}
	}
	return pairs
}

func (o *Ondo) bestTolerantCandidate(e *model.LedgerEntry, g *entryGroup, groups []*entryGroup, st *matchState, tolerance int64) *model.LedgerEntry {
	var best *model.LedgerEntry
	bestScore := 0
	var bestDiff int64
	for _, c := range toleranceNeighbors(groups, g.key, tolerance) {
		if st.isUsed(c) {
			continue
		}
		score := 0
		if (e.Amount < 0) != (c.Amount < 0) {
			score++
		}
		if e.Direction != model.DirectionUnknown && c.Direction != model.DirectionUnknown && e.Direction != c.Direction {
			score++
		}
		if score == 0 {
			continue
		}
		diff := e.AbsAmount() - c.AbsAmount()
		if diff < 0 {
			diff = -diff
		}
		if best == nil || score > bestScore || (score == bestScore && diff < bestDiff) {
			best = c
			bestScore = score
			bestDiff = diff
		}
	}
	return best
}

// orientLegs decides which of two matched entries is the OUT leg.
func orientLegs(a, b *model.LedgerEntry) (out, in *model.LedgerEntry) {
	switch {
	case a.Direction == model.DirectionOut || b.Direction == model.DirectionIn:
		return a, b
	case b.Direction == model.DirectionOut || a.Direction == model.DirectionIn:
		return b, a
	case a.Amount < 0:
		return a, b
	case b.Amount < 0:
		return b, a
	}
	return a, b
}

// mergeLegs folds a matched pair into the single transfer record: the OUT
// side provides account, booked time, currency and signed amount; the IN
// side provides the counter-account. Exactly one Transaction results per
// matched pair.
func mergeLegs(ownerID string, out, in *model.LedgerEntry) *model.Transaction {
	memo := out.Memo
	if memo == "" {
		memo = in.Memo
	}
	txn := &model.Transaction{
		TransactionID:       model.GenerateUUIDWithSuffix("txn"),
		OwnerID:             ownerID,
		BookedAt:            out.BookedAt,
		Kind:                model.KindTransfer,
		Amount:              out.Amount,
		Currency:            out.Currency,
		AccountID:           out.AccountID,
		Memo:                memo,
		IsAutoTransferMatch: true,
	}
	counter := in.AccountID
	txn.CounterAccountID = &counter

	if category := firstNonEmpty(out.CategoryID(), in.CategoryID()); category != "" {
		txn.CategoryID = &category
	}
	if external := firstNonEmpty(out.ExternalID, in.ExternalID); external != "" {
		txn.ExternalID = &external
	}
	group := model.GenerateUUIDWithSuffix("grp")
	txn.GroupID = &group
	return txn
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
