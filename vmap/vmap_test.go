// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmap

import (
	"fmt"
	"testing"

	"github.com/mentalfaculty/llvs/zone"
	"github.com/stretchr/testify/require"
)

func newTestMap(t *testing.T) *Map {
	t.Helper()
	z, err := zone.Open(t.TempDir())
	require.NoError(t, err)
	return New(z)
}

func ref(id, version string) ValueRef { return ValueRef{ID: id, Version: version} }

func TestLinearHistoryPrevailingShape(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.AddVersion("v0", nil, nil))

	v0 := "v0"
	require.NoError(t, m.AddVersion("v1", &v0, []MapDelta{{Key: "K", Added: []ValueRef{ref("K", "v1")}}}))
	v1 := "v1"
	require.NoError(t, m.AddVersion("v2", &v1, nil))
	v2 := "v2"
	require.NoError(t, m.AddVersion("v3", &v2, []MapDelta{{Key: "K", Added: []ValueRef{ref("K", "v3")}}}))

	got, ok, err := m.ValueReference("K", "v0")
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, got)

	got, ok, err = m.ValueReference("K", "v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ref("K", "v1"), got)

	got, ok, err = m.ValueReference("K", "v2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ref("K", "v1"), got)

	got, ok, err = m.ValueReference("K", "v3")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ref("K", "v3"), got)
}

func TestDisjointBranchDiff(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.AddVersion("v0", nil, nil))
	v0 := "v0"

	require.NoError(t, m.AddVersion("a", &v0, []MapDelta{
		{Key: "AB1111", Added: []ValueRef{ref("AB1111", "a")}},
		{Key: "AB1155", Added: []ValueRef{ref("AB1155", "a")}},
		{Key: "CD1111", Added: []ValueRef{ref("CD1111", "a")}},
	}))
	require.NoError(t, m.AddVersion("b", &v0, []MapDelta{
		{Key: "AB2222", Added: []ValueRef{ref("AB2222", "b")}},
		{Key: "AB1166", Added: []ValueRef{ref("AB1166", "b")}},
		{Key: "CD2222", Added: []ValueRef{ref("CD2222", "b")}},
	}))

	forks, err := m.Differences("a", "b", &v0)
	require.NoError(t, err)
	require.Len(t, forks, 6)

	var firstIns, secondIns int
	for _, f := range forks {
		require.Equal(t, Inserted, f.Kind)
		if f.Branch == First {
			firstIns++
		} else {
			secondIns++
		}
	}
	require.Equal(t, 3, firstIns)
	require.Equal(t, 3, secondIns)
}

func TestConflictingUpdates(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.AddVersion("v0", nil, []MapDelta{
		{Key: "AB1111", Added: []ValueRef{ref("AB1111", "v0")}},
		{Key: "MM1111", Added: []ValueRef{ref("MM1111", "v0")}},
	}))
	v0 := "v0"

	require.NoError(t, m.AddVersion("a", &v0, []MapDelta{
		{Key: "AB1111", Added: []ValueRef{ref("AB1111", "a")}},
	}))
	require.NoError(t, m.AddVersion("b", &v0, []MapDelta{
		{Key: "AB1111", Added: []ValueRef{ref("AB1111", "b")}},
		{Key: "MM1111", Added: []ValueRef{ref("MM1111", "b")}},
		{Key: "ZZ2222", Added: []ValueRef{ref("ZZ2222", "b")}},
	}))

	forks, err := m.Differences("a", "b", &v0)
	require.NoError(t, err)

	byKey := make(map[string]Fork)
	for _, f := range forks {
		byKey[f.Key] = f
	}
	require.Equal(t, TwiceUpdated, byKey["AB1111"].Kind)
	require.Equal(t, Updated, byKey["MM1111"].Kind)
	require.Equal(t, Second, byKey["MM1111"].Branch)
	require.Equal(t, Inserted, byKey["ZZ2222"].Kind)
	require.Equal(t, Second, byKey["ZZ2222"].Branch)
}

func TestRemoveUpdateConflict(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.AddVersion("v0", nil, []MapDelta{
		{Key: "AB1111", Added: []ValueRef{ref("AB1111", "v0")}},
	}))
	v0 := "v0"

	require.NoError(t, m.AddVersion("a", &v0, []MapDelta{{Key: "AB1111", Removed: true}}))
	require.NoError(t, m.AddVersion("b", &v0, []MapDelta{{Key: "AB1111", Added: []ValueRef{ref("AB1111", "b")}}}))

	forks, err := m.Differences("a", "b", &v0)
	require.NoError(t, err)
	require.Len(t, forks, 1)
	require.Equal(t, RemovedAndUpdated, forks[0].Kind)
	require.Equal(t, First, forks[0].RemovedOn)
}

func TestDiffSymmetry(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.AddVersion("v0", nil, []MapDelta{
		{Key: "AB1111", Added: []ValueRef{ref("AB1111", "v0")}},
	}))
	v0 := "v0"
	require.NoError(t, m.AddVersion("a", &v0, []MapDelta{{Key: "AB1111", Removed: true}}))
	require.NoError(t, m.AddVersion("b", &v0, []MapDelta{{Key: "AB1111", Added: []ValueRef{ref("AB1111", "b")}}}))

	forward, err := m.Differences("a", "b", &v0)
	require.NoError(t, err)
	backward, err := m.Differences("b", "a", &v0)
	require.NoError(t, err)

	require.Equal(t, forward[0].Kind, backward[0].Kind)
	require.Equal(t, forward[0].RemovedOn, backward[0].RemovedOn.other())
}

func TestSplitsLargeLeaf(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.AddVersion("v0", nil, nil))
	v0 := "v0"

	var deltas []MapDelta
	for i := 0; i < maxLeafEntries*3; i++ {
		key := randomishKey(i)
		deltas = append(deltas, MapDelta{Key: key, Added: []ValueRef{ref(key, "v1")}})
	}
	require.NoError(t, m.AddVersion("v1", &v0, deltas))

	refs, err := m.ValueReferences("v1")
	require.NoError(t, err)
	require.Len(t, refs, len(deltas))
}

func randomishKey(i int) string {
	return fmt.Sprintf("K%05d", i)
}
