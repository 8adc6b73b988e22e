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
	"time"

	"github.com/withondo/ondo/model"
)

// groupKey buckets entries that can possibly be two legs of one transfer:
// same booked minute, same currency, same amount magnitude.
type groupKey struct {
	bookedAt  time.Time
	currency  string
	absAmount int64
}

func keyFor(e *model.LedgerEntry) groupKey {
	return groupKey{
		bookedAt:  e.BookedAt,
		currency:  e.Currency,
		absAmount: e.AbsAmount(),
	}
}

// entryGroup is one bucket of the grouping index. Entries keep input order.
type entryGroup struct {
	key     groupKey
	entries []*model.LedgerEntry
}

// buildGroups buckets entries by (date, time, currency, |amount|). Group
// order follows first appearance and entries within a group keep their row
// order, so repeated runs over identical input are deterministic.
func buildGroups(entries []*model.LedgerEntry) []*entryGroup {
	index := make(map[groupKey]*entryGroup)
	var groups []*entryGroup
	for _, e := range entries {
		k := keyFor(e)
		g, ok := index[k]
		if !ok {
			g = &entryGroup{key: k}
			index[k] = g
			groups = append(groups, g)
		}
		g.entries = append(g.entries, e)
	}
	return groups
}

// toleranceNeighbors returns entries from other groups that share the
// bucket's booked minute and currency and whose amount magnitude is within
// tolerance of it. This is the secondary scan backing tolerant pairing; exact
// bucket members are excluded. Result order follows group order, so the scan
// inherits the index's determinism.
func toleranceNeighbors(groups []*entryGroup, key groupKey, tolerance int64) []*model.LedgerEntry {
	var neighbors []*model.LedgerEntry
	for _, g := range groups {
		if g.key == key {
			continue
		}
		if !g.key.bookedAt.Equal(key.bookedAt) || g.key.currency != key.currency {
			continue
		}
		diff := g.key.absAmount - key.absAmount
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			continue
		}
		neighbors = append(neighbors, g.entries...)
	}
	return neighbors
}
