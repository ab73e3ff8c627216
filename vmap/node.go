// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vmap implements the Map component: a per-store hierarchical
// trie over key prefixes that indexes which value-references exist at
// each version and computes per-key diffs between two versions,
// without scanning every value.
package vmap

import "github.com/mentalfaculty/llvs/history"

// ValueID identifies a value, independent of which version wrote it.
type ValueID = string

// VersionID is re-exported for convenience so callers of this package
// don't need to also import history for the common case.
type VersionID = history.VersionID

// ValueRef locates a stored value: the value id plus the version that
// wrote the bytes currently in effect for it.
type ValueRef struct {
	ID      ValueID
	Version VersionID
}

// MapDelta is the per-version, per-key summary of what a commit did to
// the Map: keys it added value-references for (insert/update/preserve)
// and value ids it removed outright.
type MapDelta struct {
	Key     ValueID
	Added   []ValueRef
	Removed bool
}

// childKind tags MapNode's Children union: a leaf node lists ValueRefs
// directly, an interior node lists further NodeRefs keyed by the next
// slice of the prefix.
type childKind int

const (
	childValues childKind = iota
	childNodes
)

// NodeRef addresses a persisted MapNode the way a ValueRef addresses a
// persisted Value: by the version whose commit produced it. Map nodes
// are content blobs stored in the Zone under a key derived from the
// prefix they cover.
type NodeRef struct {
	Prefix  string
	Version VersionID
}

// MapNode is immutable once written. It either lists the ValueRefs
// that share its covering prefix, or splits that prefix across child
// nodes keyed by the next path segment.
type MapNode struct {
	Prefix   string
	kind     childKind
	values   map[ValueID]ValueRef
	children map[byte]NodeRef
}

func newLeaf(prefix string) *MapNode {
	return &MapNode{Prefix: prefix, kind: childValues, values: make(map[ValueID]ValueRef)}
}

func newInterior(prefix string) *MapNode {
	return &MapNode{Prefix: prefix, kind: childNodes, children: make(map[byte]NodeRef)}
}

func (n *MapNode) isLeaf() bool { return n.kind == childValues }

// clone returns a shallow, independently-mutable copy of n. Nodes are
// shared between map roots until one of them needs to change; clone is
// the copy-on-write boundary (mirroring the teacher's CoW approach to
// versioned tries seen in the pack's cowbtree example).
func (n *MapNode) clone() *MapNode {
	cp := &MapNode{Prefix: n.Prefix, kind: n.kind}
	if n.isLeaf() {
		cp.values = make(map[ValueID]ValueRef, len(n.values))
		for k, v := range n.values {
			cp.values[k] = v
		}
	} else {
		cp.children = make(map[byte]NodeRef, len(n.children))
		for k, v := range n.children {
			cp.children[k] = v
		}
	}
	return cp
}
