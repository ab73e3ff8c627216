// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package history

import "sort"

// topoOrder performs the reference-counted descent described in §4.3:
// the frontier is seeded with seeds, a node is emitted once its
// already-visited-successor count equals its successor count (counted
// only over successors that are themselves in scope), and its
// predecessors are then pushed onto the frontier. When scope is nil
// the whole History participates and seeds must be the head set,
// producing the full topological_iter order. When scope is a restricted
// ancestor set, seeds is a single version and the result is that
// version's ancestors (inclusive) in head-first order -- this is the
// same algorithm Prevailing uses to walk ancestors of at_version.
//
// Ties among simultaneously-ready nodes are broken by latest timestamp
// first, then by the larger VersionID, the same order MostRecentHead
// uses to pick among heads.
func (r *Reader) topoOrder(seeds []VersionID, scope map[VersionID]struct{}) []VersionID {
	inScope := func(id VersionID) bool {
		if scope == nil {
			return true
		}
		_, ok := scope[id]
		return ok
	}
	remaining := make(map[VersionID]int)
	for id, n := range r.h.nodes {
		if !inScope(id) {
			continue
		}
		count := 0
		for s := range n.successors {
			if inScope(s) {
				count++
			}
		}
		remaining[id] = count
	}

	ready := append([]VersionID(nil), seeds...)
	var order []VersionID
	visited := make(map[VersionID]struct{})

	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			a, b := r.h.nodes[ready[i]], r.h.nodes[ready[j]]
			if !a.timestamp.Equal(b.timestamp) {
				return a.timestamp.After(b.timestamp)
			}
			return ready[i] > ready[j]
		})
		id := ready[0]
		ready = ready[1:]
		if _, done := visited[id]; done {
			continue
		}
		visited[id] = struct{}{}
		order = append(order, id)

		n := r.h.nodes[id]
		for _, p := range n.predecessors.Slice() {
			if !inScope(p) {
				continue
			}
			if _, done := visited[p]; done {
				continue
			}
			remaining[p]--
			if remaining[p] == 0 {
				ready = append(ready, p)
			}
		}
	}
	return order
}

// TopologicalIter returns every version, heads first, such that a
// version is returned only after all of its successors have been.
func (r *Reader) TopologicalIter() []VersionID {
	return r.topoOrder(r.Heads(), nil)
}

// ancestorsOf computes the set of ancestors of id, including id itself.
func (r *Reader) ancestorsOf(id VersionID) map[VersionID]struct{} {
	set := make(map[VersionID]struct{})
	stack := []VersionID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := set[cur]; ok {
			continue
		}
		set[cur] = struct{}{}
		if n, ok := r.h.nodes[cur]; ok {
			stack = append(stack, n.predecessors.Slice()...)
		}
	}
	return set
}

// Prevailing walks ancestors of atVersion (including atVersion) in
// topological (head-first) order and returns the first ancestor that
// is a member of candidates.
func (r *Reader) Prevailing(candidates map[VersionID]struct{}, atVersion VersionID) (VersionID, bool) {
	if _, ok := r.h.nodes[atVersion]; !ok {
		return "", false
	}
	scope := r.ancestorsOf(atVersion)
	for _, id := range r.topoOrder([]VersionID{atVersion}, scope) {
		if _, ok := candidates[id]; ok {
			return id, true
		}
	}
	return "", false
}

// IsAncestor reports whether a is an ancestor of (or equal to) b.
func (r *Reader) IsAncestor(a, b VersionID) bool {
	if _, ok := r.h.nodes[b]; !ok {
		return false
	}
	_, ok := r.ancestorsOf(b)[a]
	return ok
}

// GreatestCommonAncestor finds the most recent version reachable from
// both a and b via predecessor edges. It labels every ancestor of a
// with its minimum generation distance via BFS, then BFS's from b and
// stops at the first ancestor also labelled from a, picking the one
// with smallest a-generation, breaking ties by smallest b-generation
// then by VersionID.
func (r *Reader) GreatestCommonAncestor(a, b VersionID) (VersionID, bool) {
	if _, ok := r.h.nodes[a]; !ok {
		return "", false
	}
	if _, ok := r.h.nodes[b]; !ok {
		return "", false
	}

	genFromA := r.bfsGenerations(a)

	type candidate struct {
		id      VersionID
		genA    int
		genB    int
	}
	var best *candidate

	visited := make(map[VersionID]int)
	queue := []VersionID{b}
	visited[b] = 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		genB := visited[cur]
		if genA, ok := genFromA[cur]; ok {
			c := candidate{id: cur, genA: genA, genB: genB}
			if best == nil || c.genA < best.genA ||
				(c.genA == best.genA && c.genB < best.genB) ||
				(c.genA == best.genA && c.genB == best.genB && c.id < best.id) {
				best = &c
			}
			// Do not expand past a common ancestor: its own ancestors
			// cannot be a *greatest* common ancestor.
			continue
		}
		n := r.h.nodes[cur]
		for _, p := range n.predecessors.Slice() {
			if _, seen := visited[p]; seen {
				continue
			}
			visited[p] = genB + 1
			queue = append(queue, p)
		}
	}
	if best == nil {
		return "", false
	}
	return best.id, true
}

// bfsGenerations labels every ancestor of start (inclusive, start at 0)
// with its minimum predecessor-edge distance from start.
func (r *Reader) bfsGenerations(start VersionID) map[VersionID]int {
	gens := map[VersionID]int{start: 0}
	queue := []VersionID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n := r.h.nodes[cur]
		for _, p := range n.predecessors.Slice() {
			if _, seen := gens[p]; seen {
				continue
			}
			gens[p] = gens[cur] + 1
			queue = append(queue, p)
		}
	}
	return gens
}
