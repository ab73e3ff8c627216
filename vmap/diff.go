// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmap

// Branch identifies which side of a two-way diff a Fork's data came
// from. The label is assigned by caller argument order to Differences
// and is stable: swapping the arguments swaps every Branch in the
// result.
type Branch int

const (
	First Branch = iota
	Second
)

func (b Branch) other() Branch {
	if b == First {
		return Second
	}
	return First
}

// ForkKind tags how a single key diverged between two branches since
// their common ancestor.
type ForkKind int

const (
	// Inserted: the key was added on exactly one branch.
	Inserted ForkKind = iota
	// TwiceInserted: both branches added the key independently (absent
	// in the common ancestor).
	TwiceInserted
	// Updated: the key's value was changed on exactly one branch.
	Updated
	// TwiceUpdated: both branches changed the key's value independently.
	TwiceUpdated
	// Removed: the key was removed on exactly one branch.
	Removed
	// TwiceRemoved: both branches removed the key.
	TwiceRemoved
	// RemovedAndUpdated: one branch removed the key while the other
	// inserted or updated it.
	RemovedAndUpdated
)

// String implements fmt.Stringer for diagnostic output (cobra command
// output, log lines); it is not part of the wire format.
func (k ForkKind) String() string {
	switch k {
	case Inserted:
		return "Inserted"
	case TwiceInserted:
		return "TwiceInserted"
	case Updated:
		return "Updated"
	case TwiceUpdated:
		return "TwiceUpdated"
	case Removed:
		return "Removed"
	case TwiceRemoved:
		return "TwiceRemoved"
	case RemovedAndUpdated:
		return "RemovedAndUpdated"
	default:
		return "Unknown"
	}
}

// Fork is the per-key classification of how two branches diverged. Only
// the fields relevant to Kind are meaningful; see the comment on each
// ForkKind constant and on each field below for which apply.
// This mirrors the spec's explicit tagged-union treatment of Fork
// without resorting to a type hierarchy.
type Fork struct {
	Key ValueID
	Kind ForkKind

	// Branch is set for the single-branch kinds (Inserted, Updated,
	// Removed): which branch changed.
	Branch Branch

	// FirstRef/SecondRef hold the winning ValueRef on First/Second when
	// that branch inserted or updated the key. Zero value when that
	// branch did not write a ref for this fork.
	FirstRef  ValueRef
	SecondRef ValueRef

	// RemovedOn is set for RemovedAndUpdated: which branch removed the key.
	RemovedOn Branch
}

// keyState is a branch's per-key state relative to the common ancestor.
type keyState struct {
	removed bool
	ref     ValueRef // meaningful when !removed
}

// branchStates computes, for every key that changed between baseline
// and current, its keyState.
func branchStates(baseline, current map[ValueID]ValueRef) map[ValueID]keyState {
	states := make(map[ValueID]keyState)
	for key, curRef := range current {
		baseRef, hadBase := baseline[key]
		if !hadBase || baseRef != curRef {
			states[key] = keyState{removed: false, ref: curRef}
		}
	}
	for key := range baseline {
		if _, stillThere := current[key]; !stillThere {
			states[key] = keyState{removed: true}
		}
	}
	return states
}

func toRefMap(refs []ValueRef) map[ValueID]ValueRef {
	m := make(map[ValueID]ValueRef, len(refs))
	for _, r := range refs {
		m[r.ID] = r
	}
	return m
}

// Differences computes the per-key Forks between a and b, relative to
// their common ancestor gca (nil if none is known, treated as an empty
// baseline). Differences(a, b, gca) and Differences(b, a, gca) produce
// the same Forks with First/Second swapped.
func (m *Map) Differences(a, b VersionID, gca *VersionID) ([]Fork, error) {
	aRefs, err := m.ValueReferences(a)
	if err != nil {
		return nil, err
	}
	bRefs, err := m.ValueReferences(b)
	if err != nil {
		return nil, err
	}
	var baseline map[ValueID]ValueRef
	if gca != nil {
		refs, err := m.ValueReferences(*gca)
		if err != nil {
			return nil, err
		}
		baseline = toRefMap(refs)
	} else {
		baseline = map[ValueID]ValueRef{}
	}

	aMap, bMap := toRefMap(aRefs), toRefMap(bRefs)
	aStates := branchStates(baseline, aMap)
	bStates := branchStates(baseline, bMap)

	keys := make(map[ValueID]struct{}, len(aStates)+len(bStates))
	for k := range aStates {
		keys[k] = struct{}{}
	}
	for k := range bStates {
		keys[k] = struct{}{}
	}

	forks := make([]Fork, 0, len(keys))
	for key := range keys {
		as, aChanged := aStates[key]
		bs, bChanged := bStates[key]
		_, inGCA := baseline[key]

		switch {
		case aChanged && !bChanged:
			forks = append(forks, singleBranchFork(key, First, as, inGCA))
		case bChanged && !aChanged:
			forks = append(forks, singleBranchFork(key, Second, bs, inGCA))
		case as.removed && bs.removed:
			forks = append(forks, Fork{Key: key, Kind: TwiceRemoved})
		case as.removed && !bs.removed:
			forks = append(forks, Fork{Key: key, Kind: RemovedAndUpdated, RemovedOn: First, SecondRef: bs.ref})
		case !as.removed && bs.removed:
			forks = append(forks, Fork{Key: key, Kind: RemovedAndUpdated, RemovedOn: Second, FirstRef: as.ref})
		default: // both inserted/updated
			kind := TwiceUpdated
			if !inGCA {
				kind = TwiceInserted
			}
			forks = append(forks, Fork{Key: key, Kind: kind, FirstRef: as.ref, SecondRef: bs.ref})
		}
	}
	return forks, nil
}

func singleBranchFork(key ValueID, branch Branch, s keyState, inGCA bool) Fork {
	if s.removed {
		return Fork{Key: key, Kind: Removed, Branch: branch}
	}
	kind := Inserted
	if inGCA {
		kind = Updated
	}
	f := Fork{Key: key, Kind: kind, Branch: branch}
	if branch == First {
		f.FirstRef = s.ref
	} else {
		f.SecondRef = s.ref
	}
	return f
}
