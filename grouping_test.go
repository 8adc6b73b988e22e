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

func TestBuildGroupsKeepsFirstAppearanceOrder(t *testing.T) {
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	later := at.Add(time.Minute)

	entries := []*model.LedgerEntry{
		testEntry(0, at, -50000, "acc_1"),
		testEntry(1, later, 20000, "acc_2"),
		testEntry(2, at, 50000, "acc_2"),
		testEntry(3, at, -3000, "acc_1"),
	}

	groups := buildGroups(entries)
	assert.Len(t, groups, 3)

	// groups follow first appearance, entries keep row order
	assert.Equal(t, int64(50000), groups[0].key.absAmount)
	assert.Len(t, groups[0].entries, 2)
	assert.Equal(t, 0, groups[0].entries[0].RowIndex)
	assert.Equal(t, 2, groups[0].entries[1].RowIndex)

	assert.Equal(t, later, groups[1].key.bookedAt)
	assert.Equal(t, int64(3000), groups[2].key.absAmount)
}

func TestToleranceNeighbors(t *testing.T) {
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	near := testEntry(1, at, 50005, "acc_2")
	far := testEntry(2, at, 50100, "acc_2")
	otherMinute := testEntry(3, at.Add(time.Minute), 50005, "acc_2")
	otherCurrency := testEntry(4, at, 50005, "acc_2")
	otherCurrency.Currency = "USD"

	entries := []*model.LedgerEntry{
		testEntry(0, at, -50000, "acc_1"),
		near, far, otherMinute, otherCurrency,
	}
	groups := buildGroups(entries)

	neighbors := toleranceNeighbors(groups, keyFor(entries[0]), 10)
	assert.Len(t, neighbors, 1)
	assert.Equal(t, 1, neighbors[0].RowIndex)
}

func TestToleranceNeighborsExcludesOwnBucket(t *testing.T) {
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	entries := []*model.LedgerEntry{
		testEntry(0, at, -50000, "acc_1"),
		testEntry(1, at, 50000, "acc_2"),
	}
	groups := buildGroups(entries)

	neighbors := toleranceNeighbors(groups, keyFor(entries[0]), 10)
	assert.Empty(t, neighbors)
}
