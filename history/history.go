// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package history holds the in-memory DAG of versions: head tracking,
// topological iteration, prevailing-version resolution and
// greatest-common-ancestor search.
//
// Cyclic DAG pointers are deliberately not represented as
// mutually-referencing records. Instead, as the teacher's dag.go does
// for its nodes table, History is an arena of versions keyed by
// VersionID with two adjacency maps (predecessors baked into the
// node itself, successors derived and grown as children are added) so
// that out-of-order loading (§4.4's two-phase load protocol) works
// without requiring predecessors to already be resident.
package history

import (
	"sort"
	"sync"
	"time"

	"github.com/mentalfaculty/llvs/errs"
	"github.com/mentalfaculty/llvs/internal/logging"
)

var log = logging.For("history")

// VersionID is an opaque, globally-unique version identifier.
type VersionID = string

// PredKind tags the arity of a Version's Predecessors.
type PredKind int

const (
	PredNone PredKind = iota
	PredOne
	PredTwo
)

// Predecessors is the tagged union None | One(VersionID) | Two(VersionID, VersionID).
type Predecessors struct {
	Kind   PredKind
	First  VersionID
	Second VersionID
}

// NoPredecessors returns the Predecessors value for a root version.
func NoPredecessors() Predecessors { return Predecessors{Kind: PredNone} }

// OnePredecessor returns the Predecessors value for a regular, non-merge version.
func OnePredecessor(id VersionID) Predecessors { return Predecessors{Kind: PredOne, First: id} }

// TwoPredecessors returns the Predecessors value for a merge version.
func TwoPredecessors(a, b VersionID) Predecessors {
	return Predecessors{Kind: PredTwo, First: a, Second: b}
}

// Slice enumerates the predecessor ids, in order, with no padding.
func (p Predecessors) Slice() []VersionID {
	switch p.Kind {
	case PredOne:
		return []VersionID{p.First}
	case PredTwo:
		return []VersionID{p.First, p.Second}
	default:
		return nil
	}
}

// Version is an immutable commit: a node in the DAG. Successors is a
// point-in-time copy; the live set backing it only ever grows.
type Version struct {
	ID           VersionID
	Predecessors Predecessors
	Successors   []VersionID
	Timestamp    time.Time
	Metadata     map[string]string
}

// node is the mutable arena entry backing a Version.
type node struct {
	predecessors Predecessors
	successors   map[VersionID]struct{}
	timestamp    time.Time
	metadata     map[string]string
}

// History is process-shared mutable state. All access goes through
// View (read-borrow) or Update (exclusive write-borrow); the borrow is
// released on every exit path, matching the "closure-passing history
// access" design note instead of exposing the lock or the map directly.
type History struct {
	mu    sync.RWMutex
	nodes map[VersionID]*node
	heads map[VersionID]struct{}
}

// New returns an empty History.
func New() *History {
	return &History{
		nodes: make(map[VersionID]*node),
		heads: make(map[VersionID]struct{}),
	}
}

// Reader is the read-only surface handed to View's callback.
type Reader struct{ h *History }

// Writer is the read-write surface handed to Update's callback.
type Writer struct{ Reader }

// View acquires a read-borrow for the duration of fn.
func (h *History) View(fn func(r *Reader)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn(&Reader{h: h})
}

// Update acquires an exclusive write-borrow for the duration of fn.
func (h *History) Update(fn func(w *Writer) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(&Writer{Reader{h: h}})
}

func snapshot(id VersionID, n *node) Version {
	succ := make([]VersionID, 0, len(n.successors))
	for s := range n.successors {
		succ = append(succ, s)
	}
	sort.Strings(succ)
	return Version{
		ID:           id,
		Predecessors: n.predecessors,
		Successors:   succ,
		Timestamp:    n.timestamp,
		Metadata:     n.metadata,
	}
}

// Version returns the version with the given id, if known.
func (r *Reader) Version(id VersionID) (Version, bool) {
	n, ok := r.h.nodes[id]
	if !ok {
		return Version{}, false
	}
	return snapshot(id, n), true
}

// AllIDs returns every version id known to this History.
func (r *Reader) AllIDs() []VersionID {
	ids := make([]VersionID, 0, len(r.h.nodes))
	for id := range r.h.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Heads returns the set of versions with no successors.
func (r *Reader) Heads() []VersionID {
	ids := make([]VersionID, 0, len(r.h.heads))
	for id := range r.h.heads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MostRecentHead returns the head with the largest timestamp, breaking
// ties deterministically by VersionID ordering.
func (r *Reader) MostRecentHead() (VersionID, bool) {
	var best VersionID
	var bestTime time.Time
	found := false
	for id := range r.h.heads {
		n := r.h.nodes[id]
		if !found || n.timestamp.After(bestTime) || (n.timestamp.Equal(bestTime) && id > best) {
			best, bestTime, found = id, n.timestamp, true
		}
	}
	return best, found
}

// Add registers a version. It fails with ErrDuplicate if the id
// already exists, or with ErrMissingPredecessor if a named predecessor
// is not yet known -- see LoadAll for the relaxed two-phase variant
// used when reading a store back from disk.
func (w *Writer) Add(id VersionID, predecessors Predecessors, timestamp time.Time, metadata map[string]string) error {
	if _, exists := w.h.nodes[id]; exists {
		return errs.ErrDuplicate
	}
	for _, p := range predecessors.Slice() {
		if _, ok := w.h.nodes[p]; !ok {
			return errs.ErrMissingPredecessor
		}
	}
	w.link(id, predecessors, timestamp, metadata)
	return nil
}

// link is the unchecked insertion shared by Add and LoadAll.
func (w *Writer) link(id VersionID, predecessors Predecessors, timestamp time.Time, metadata map[string]string) {
	w.h.nodes[id] = &node{
		predecessors: predecessors,
		successors:   make(map[VersionID]struct{}),
		timestamp:    timestamp,
		metadata:     metadata,
	}
	for _, p := range predecessors.Slice() {
		delete(w.h.heads, p)
		if pn, ok := w.h.nodes[p]; ok {
			pn.successors[id] = struct{}{}
		}
	}
	w.h.heads[id] = struct{}{}
	log.WithField("version", id).Debug("history: added version")
}

// LoadEntry is one record to register during a relaxed, two-phase load.
type LoadEntry struct {
	ID           VersionID
	Predecessors Predecessors
	Timestamp    time.Time
	Metadata     map[string]string
}

// LoadAll registers every entry without requiring predecessor-order,
// per the Store's load protocol (§4.4): first every node is inserted,
// then successors/heads are linked in a second pass. Unlike Add, it
// does not fail on not-yet-seen predecessors within the batch.
func (w *Writer) LoadAll(entries []LoadEntry) error {
	for _, e := range entries {
		if _, exists := w.h.nodes[e.ID]; exists {
			return errs.Wrapf(errs.ErrDuplicate, "version %s", e.ID)
		}
		w.h.nodes[e.ID] = &node{
			predecessors: e.Predecessors,
			successors:   make(map[VersionID]struct{}),
			timestamp:    e.Timestamp,
			metadata:     e.Metadata,
		}
	}
	for _, e := range entries {
		for _, p := range e.Predecessors.Slice() {
			if _, ok := w.h.nodes[p]; !ok {
				return errs.Wrapf(errs.ErrMissingPredecessor, "version %s predecessor %s", e.ID, p)
			}
		}
	}
	for _, e := range entries {
		for _, p := range e.Predecessors.Slice() {
			w.h.nodes[p].successors[e.ID] = struct{}{}
		}
	}
	w.h.heads = make(map[VersionID]struct{})
	for id, n := range w.h.nodes {
		if len(n.successors) == 0 {
			w.h.heads[id] = struct{}{}
		}
	}
	return nil
}
