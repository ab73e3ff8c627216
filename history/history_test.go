// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func addLinear(t *testing.T, h *History, id string, pred Predecessors, ts time.Time) {
	t.Helper()
	require.NoError(t, h.Update(func(w *Writer) error {
		return w.Add(id, pred, ts, nil)
	}))
}

func TestHeadsAndAncestry(t *testing.T) {
	h := New()
	base := time.Now()
	addLinear(t, h, "v0", NoPredecessors(), base)
	addLinear(t, h, "v1", OnePredecessor("v0"), base.Add(time.Second))
	addLinear(t, h, "v2", OnePredecessor("v1"), base.Add(2*time.Second))

	var heads []string
	h.View(func(r *Reader) { heads = r.Heads() })
	require.Equal(t, []string{"v2"}, heads)
}

func TestAddDuplicateAndMissingPredecessor(t *testing.T) {
	h := New()
	addLinear(t, h, "v0", NoPredecessors(), time.Now())

	err := h.Update(func(w *Writer) error { return w.Add("v0", NoPredecessors(), time.Now(), nil) })
	require.Error(t, err)

	err = h.Update(func(w *Writer) error { return w.Add("v9", OnePredecessor("missing"), time.Now(), nil) })
	require.Error(t, err)
}

func TestTopologicalIterIsHeadsFirst(t *testing.T) {
	h := New()
	base := time.Now()
	addLinear(t, h, "v0", NoPredecessors(), base)
	addLinear(t, h, "v1", OnePredecessor("v0"), base.Add(time.Second))
	addLinear(t, h, "v2", OnePredecessor("v1"), base.Add(2*time.Second))

	var order []string
	h.View(func(r *Reader) { order = r.TopologicalIter() })
	require.Equal(t, []string{"v2", "v1", "v0"}, order)
}

func TestPrevailing(t *testing.T) {
	h := New()
	base := time.Now()
	addLinear(t, h, "v0", NoPredecessors(), base)
	addLinear(t, h, "v1", OnePredecessor("v0"), base.Add(time.Second))
	addLinear(t, h, "v2", OnePredecessor("v1"), base.Add(2*time.Second))
	addLinear(t, h, "v3", OnePredecessor("v2"), base.Add(3*time.Second))

	candidates := map[string]struct{}{"v1": {}, "v3": {}}
	var got string
	var ok bool
	h.View(func(r *Reader) { got, ok = r.Prevailing(candidates, "v3") })
	require.True(t, ok)
	require.Equal(t, "v3", got)

	candidates2 := map[string]struct{}{"v1": {}}
	h.View(func(r *Reader) { got, ok = r.Prevailing(candidates2, "v2") })
	require.True(t, ok)
	require.Equal(t, "v1", got)
}

func TestGreatestCommonAncestor(t *testing.T) {
	h := New()
	base := time.Now()
	addLinear(t, h, "v0", NoPredecessors(), base)
	addLinear(t, h, "v1", OnePredecessor("v0"), base.Add(time.Second))
	addLinear(t, h, "a1", OnePredecessor("v1"), base.Add(2*time.Second))
	addLinear(t, h, "a2", OnePredecessor("a1"), base.Add(3*time.Second))
	addLinear(t, h, "b1", OnePredecessor("v1"), base.Add(2*time.Second))

	var gca string
	var ok bool
	h.View(func(r *Reader) { gca, ok = r.GreatestCommonAncestor("a2", "b1") })
	require.True(t, ok)
	require.Equal(t, "v1", gca)
}

func TestLoadAllOutOfOrder(t *testing.T) {
	h := New()
	base := time.Now()
	err := h.Update(func(w *Writer) error {
		return w.LoadAll([]LoadEntry{
			{ID: "v2", Predecessors: OnePredecessor("v1"), Timestamp: base.Add(2 * time.Second)},
			{ID: "v0", Predecessors: NoPredecessors(), Timestamp: base},
			{ID: "v1", Predecessors: OnePredecessor("v0"), Timestamp: base.Add(time.Second)},
		})
	})
	require.NoError(t, err)

	var heads []string
	h.View(func(r *Reader) { heads = r.Heads() })
	require.Equal(t, []string{"v2"}, heads)
}
