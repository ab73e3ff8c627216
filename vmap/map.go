// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmap

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"

	"github.com/mentalfaculty/llvs/errs"
	"github.com/mentalfaculty/llvs/internal/logging"
)

var log = logging.For("vmap")

// maxLeafEntries bounds how many ValueRefs a leaf node may hold before
// it is split into an interior node fanning out on the next key byte.
// This keeps the entry count of any single persisted node blob bounded,
// the same goal the reference Zone layout pursues for directories.
const maxLeafEntries = 64

// NodeStore persists Map trie nodes. FSZone (and any other Zone
// backend) satisfies this directly.
type NodeStore interface {
	PutNode(prefix string, version VersionID, data []byte) error
	GetNode(prefix string, version VersionID) (data []byte, ok bool, err error)
}

// Map is the hierarchical trie index over key prefixes. A Map instance
// is shared by a single Store; callers never construct one directly
// except through store.Store's wiring.
type Map struct {
	mu    sync.RWMutex
	store NodeStore
	roots map[VersionID]NodeRef
	cache map[NodeRef]*MapNode
}

// New returns a Map persisting its nodes through store.
func New(store NodeStore) *Map {
	return &Map{
		store: store,
		roots: make(map[VersionID]NodeRef),
		cache: make(map[NodeRef]*MapNode),
	}
}

// wireNode is the JSON-on-disk shape for a MapNode.
type wireNode struct {
	Prefix    string              `json:"prefix"`
	Leaf      bool                `json:"leaf"`
	Values    []wireValueRef      `json:"values,omitempty"`
	ChildRefs map[string]wireRef  `json:"children,omitempty"`
}

type wireValueRef struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

type wireRef struct {
	Version string `json:"version"`
}

func encodeNode(n *MapNode) ([]byte, error) {
	w := wireNode{Prefix: n.Prefix, Leaf: n.isLeaf()}
	if n.isLeaf() {
		ids := make([]string, 0, len(n.values))
		for id := range n.values {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			ref := n.values[id]
			w.Values = append(w.Values, wireValueRef{ID: ref.ID, Version: ref.Version})
		}
	} else {
		w.ChildRefs = make(map[string]wireRef, len(n.children))
		for b, ref := range n.children {
			w.ChildRefs[hex.EncodeToString([]byte{b})] = wireRef{Version: ref.Version}
		}
	}
	return json.Marshal(w)
}

func decodeNode(data []byte) (*MapNode, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errs.Wrap(err, "vmap: decode node")
	}
	if w.Leaf {
		n := newLeaf(w.Prefix)
		for _, v := range w.Values {
			n.values[v.ID] = ValueRef{ID: v.ID, Version: v.Version}
		}
		return n, nil
	}
	n := newInterior(w.Prefix)
	for k, ref := range w.ChildRefs {
		raw, err := hex.DecodeString(k)
		if err != nil || len(raw) != 1 {
			return nil, errs.Wrapf(errs.ErrSerializationInvalid, "vmap: bad child key %q", k)
		}
		n.children[raw[0]] = NodeRef{Prefix: w.Prefix + string(raw[0]), Version: ref.Version}
	}
	return n, nil
}

func (m *Map) load(ref NodeRef) (*MapNode, error) {
	if n, ok := m.cache[ref]; ok {
		return n, nil
	}
	data, ok, err := m.store.GetNode(ref.Prefix, ref.Version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.Wrapf(errs.ErrSerializationInvalid, "vmap: missing node (%q, %s)", ref.Prefix, ref.Version)
	}
	n, err := decodeNode(data)
	if err != nil {
		return nil, err
	}
	m.cache[ref] = n
	return n, nil
}

func (m *Map) persist(n *MapNode, version VersionID) (NodeRef, error) {
	ref := NodeRef{Prefix: n.Prefix, Version: version}
	data, err := encodeNode(n)
	if err != nil {
		return NodeRef{}, err
	}
	if err := m.store.PutNode(n.Prefix, version, data); err != nil {
		return NodeRef{}, err
	}
	m.cache[ref] = n
	return ref, nil
}

// AddVersion produces a new map rooted at newVersion whose
// value-references are those of basedOn (nil for the very first
// version) updated by deltas. Unchanged subtrees are shared with the
// parent root -- written once, referenced twice.
func (m *Map) AddVersion(newVersion VersionID, basedOn *VersionID, deltas []MapDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var root *MapNode
	var rootRef NodeRef
	haveBase := false
	if basedOn != nil {
		ref, ok := m.roots[*basedOn]
		if !ok {
			return errs.Wrapf(errs.ErrMissingVersion, "vmap: unknown base version %s", *basedOn)
		}
		var err error
		root, err = m.load(ref)
		if err != nil {
			return err
		}
		rootRef, haveBase = ref, true
	} else {
		root = newLeaf("")
	}

	if len(deltas) == 0 {
		// Nothing changed: share the parent root entirely rather than
		// writing an identical copy under newVersion.
		if haveBase {
			m.roots[newVersion] = rootRef
		} else {
			ref, err := m.persist(root, newVersion)
			if err != nil {
				return err
			}
			m.roots[newVersion] = ref
		}
		return nil
	}

	for _, d := range deltas {
		var err error
		if d.Removed {
			root, rootRef, err = m.remove(root, rootRef, d.Key, newVersion)
		} else if len(d.Added) > 0 {
			root, rootRef, err = m.upsert(root, d.Key, d.Added[len(d.Added)-1], newVersion)
		}
		if err != nil {
			return err
		}
	}

	m.roots[newVersion] = rootRef
	log.WithField("version", newVersion).WithField("deltas", len(deltas)).Debug("vmap: added version")
	return nil
}

// upsert descends the prefix path for key, cloning only the nodes on
// that path, and sets key's ValueRef at the leaf. It always reports a
// change: an insert/update always produces a fresh node for its path.
func (m *Map) upsert(n *MapNode, key ValueID, ref ValueRef, version VersionID) (*MapNode, NodeRef, error) {
	if n.isLeaf() {
		cp := n.clone()
		cp.values[key] = ref
		if len(cp.values) > maxLeafEntries && len(n.Prefix) < len(key) {
			node, nref, err := m.split(cp, version)
			return node, nref, err
		}
		nref, err := m.persist(cp, version)
		if err != nil {
			return nil, NodeRef{}, err
		}
		return cp, nref, nil
	}
	idx := len(n.Prefix)
	var b byte
	if idx < len(key) {
		b = key[idx]
	}
	childRef, has := n.children[b]
	var child *MapNode
	var err error
	if has {
		child, err = m.load(childRef)
		if err != nil {
			return nil, NodeRef{}, err
		}
	} else {
		child = newLeaf(n.Prefix + string(b))
	}
	_, newChildRef, err := m.upsert(child, key, ref, version)
	if err != nil {
		return nil, NodeRef{}, err
	}
	cp := n.clone()
	cp.children[b] = newChildRef
	nref, err := m.persist(cp, version)
	if err != nil {
		return nil, NodeRef{}, err
	}
	return cp, nref, nil
}

// split converts an over-full leaf into an interior node, redistributing
// its entries across children keyed by the next key byte.
func (m *Map) split(n *MapNode, version VersionID) (*MapNode, NodeRef, error) {
	interior := newInterior(n.Prefix)
	byChild := make(map[byte][]ValueRef)
	for id, ref := range n.values {
		idx := len(n.Prefix)
		var b byte
		if idx < len(id) {
			b = id[idx]
		}
		byChild[b] = append(byChild[b], ref)
	}
	for b, refs := range byChild {
		leaf := newLeaf(n.Prefix + string(b))
		for _, ref := range refs {
			leaf.values[ref.ID] = ref
		}
		ref, err := m.persist(leaf, version)
		if err != nil {
			return nil, NodeRef{}, err
		}
		interior.children[b] = ref
	}
	nref, err := m.persist(interior, version)
	if err != nil {
		return nil, NodeRef{}, err
	}
	return interior, nref, nil
}

// remove descends the prefix path for key, cloning nodes on that path,
// and deletes key from the leaf entirely. When key is absent along the
// path, the subtree is returned unchanged and its existing NodeRef is
// reused rather than rewritten under the new version.
func (m *Map) remove(n *MapNode, nref NodeRef, key ValueID, version VersionID) (*MapNode, NodeRef, error) {
	if n.isLeaf() {
		if _, ok := n.values[key]; !ok {
			return n, nref, nil
		}
		cp := n.clone()
		delete(cp.values, key)
		newRef, err := m.persist(cp, version)
		if err != nil {
			return nil, NodeRef{}, err
		}
		return cp, newRef, nil
	}
	idx := len(n.Prefix)
	var b byte
	if idx < len(key) {
		b = key[idx]
	}
	childRef, has := n.children[b]
	if !has {
		return n, nref, nil
	}
	child, err := m.load(childRef)
	if err != nil {
		return nil, NodeRef{}, err
	}
	newChild, newChildRef, err := m.remove(child, childRef, key, version)
	if err != nil {
		return nil, NodeRef{}, err
	}
	if newChild == child {
		// Unchanged: keep sharing this whole subtree with the parent root.
		return n, nref, nil
	}
	cp := n.clone()
	cp.children[b] = newChildRef
	newRef, err := m.persist(cp, version)
	if err != nil {
		return nil, NodeRef{}, err
	}
	return cp, newRef, nil
}

// ValueReferences enumerates every value reference live at version at,
// via full traversal of its root.
func (m *Map) ValueReferences(at VersionID) ([]ValueRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.valueReferencesLocked(at)
}

func (m *Map) valueReferencesLocked(at VersionID) ([]ValueRef, error) {
	root, ok := m.roots[at]
	if !ok {
		return nil, errs.Wrapf(errs.ErrMissingVersion, "vmap: unknown version %s", at)
	}
	var out []ValueRef
	var walk func(ref NodeRef) error
	walk = func(ref NodeRef) error {
		n, err := m.load(ref)
		if err != nil {
			return err
		}
		if n.isLeaf() {
			for _, v := range n.values {
				out = append(out, v)
			}
			return nil
		}
		for _, child := range n.children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ValueReference descends the prefix path for key at version at.
func (m *Map) ValueReference(key ValueID, at VersionID) (ValueRef, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	root, ok := m.roots[at]
	if !ok {
		return ValueRef{}, false, errs.Wrapf(errs.ErrMissingVersion, "vmap: unknown version %s", at)
	}
	ref := root
	for {
		n, err := m.load(ref)
		if err != nil {
			return ValueRef{}, false, err
		}
		if n.isLeaf() {
			v, ok := n.values[key]
			return v, ok, nil
		}
		idx := len(n.Prefix)
		var b byte
		if idx < len(key) {
			b = key[idx]
		}
		child, ok := n.children[b]
		if !ok {
			return ValueRef{}, false, nil
		}
		ref = child
	}
}

// HasRoot reports whether AddVersion has produced a root for version.
func (m *Map) HasRoot(version VersionID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.roots[version]
	return ok
}
