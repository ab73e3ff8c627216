// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package merge implements the Merge engine: fast-forward detection,
// greatest-common-ancestor search, per-key Fork computation, and
// dispatch to a pluggable MergeArbiter that resolves conflicting
// Forks into a two-predecessor version.
package merge

import (
	"github.com/mentalfaculty/llvs/errs"
	"github.com/mentalfaculty/llvs/history"
	"github.com/mentalfaculty/llvs/internal/logging"
	"github.com/mentalfaculty/llvs/store"
	"github.com/mentalfaculty/llvs/vmap"
)

var log = logging.For("merge")

// VersionID and Fork are re-exported for convenience.
type VersionID = history.VersionID
type Fork = vmap.Fork

// Merge is the input handed to a MergeArbiter: the two versions being
// merged, their greatest common ancestor (nil if none), and the
// conflicting Forks computed between them. The non-conflicting Forks
// are resolved by the engine and are not included.
type Merge struct {
	A, B           VersionID
	CommonAncestor *VersionID
	Forks          []Fork
}

// ForksByKey indexes m.Forks by ValueID for arbiters that want direct
// lookup rather than a scan.
func (m *Merge) ForksByKey() map[string]Fork {
	byKey := make(map[string]Fork, len(m.Forks))
	for _, f := range m.Forks {
		byKey[f.Key] = f
	}
	return byKey
}

// MergeArbiter resolves every conflicting Fork in a Merge into exactly
// one ValueChange. Non-conflicting Forks (single-branch Inserted,
// Updated, Removed) are never passed to Changes; the engine
// synthesizes their trivial Preserve/PreserveRemoval itself.
type MergeArbiter interface {
	// Changes returns one resolving ValueChange per conflicting Fork in
	// m (TwiceInserted, TwiceUpdated, RemovedAndUpdated).
	Changes(m *Merge, s *store.Store) ([]store.ValueChange, error)
}

// Merger runs the merge pipeline against a Store using a fixed arbiter.
type Merger struct {
	Store   *store.Store
	Arbiter MergeArbiter
}

// New returns a Merger for s, resolving conflicts with arbiter.
func New(s *store.Store, arbiter MergeArbiter) *Merger {
	return &Merger{Store: s, Arbiter: arbiter}
}

// Run merges a and b per §4.5, returning the id of the resulting
// version. If a and b are equal, or one is an ancestor of the other,
// no new version is written and the descendant's id is returned
// (fast-forward).
func (mg *Merger) Run(a, b VersionID, metadata map[string]string) (VersionID, error) {
	if a == b {
		return a, nil
	}

	var aAncestorOfB, bAncestorOfA bool
	mg.Store.History().View(func(r *history.Reader) {
		aAncestorOfB = r.IsAncestor(a, b)
		bAncestorOfA = r.IsAncestor(b, a)
	})
	if aAncestorOfB {
		return b, nil
	}
	if bAncestorOfA {
		return a, nil
	}

	var gca VersionID
	var haveGCA bool
	mg.Store.History().View(func(r *history.Reader) {
		gca, haveGCA = r.GreatestCommonAncestor(a, b)
	})
	var gcaPtr *VersionID
	if haveGCA {
		gcaPtr = &gca
	}

	forks, err := mg.Store.Map().Differences(a, b, gcaPtr)
	if err != nil {
		return "", errs.Wrap(err, "merge: compute forks")
	}

	m := &Merge{A: a, B: b, CommonAncestor: gcaPtr, Forks: forks}

	conflicting, nonConflicting := splitForks(forks)
	m.Forks = conflicting
	arbiterChanges, err := mg.Arbiter.Changes(m, mg.Store)
	if err != nil {
		return "", errs.Wrap(err, "merge: arbiter")
	}
	if len(arbiterChanges) != len(conflicting) {
		return "", errs.Wrapf(errs.ErrSerializationInvalid, "merge: arbiter returned %d changes for %d conflicting forks", len(arbiterChanges), len(conflicting))
	}

	changes := make([]store.ValueChange, 0, len(forks))
	changes = append(changes, arbiterChanges...)
	changes = append(changes, trivialChanges(nonConflicting)...)

	merged, err := mg.Store.MakeMergeVersion(a, b, changes, metadata)
	if err != nil {
		return "", errs.Wrap(err, "merge: commit")
	}
	log.WithField("a", a).WithField("b", b).WithField("merged", merged).
		WithField("conflicts", len(conflicting)).Info("merge: committed merge version")
	return merged, nil
}

// splitForks separates Forks requiring arbiter input (TwiceInserted,
// TwiceUpdated, RemovedAndUpdated) from those the engine can resolve
// trivially on its own.
func splitForks(forks []Fork) (conflicting, nonConflicting []Fork) {
	for _, f := range forks {
		switch f.Kind {
		case vmap.TwiceInserted, vmap.TwiceUpdated, vmap.RemovedAndUpdated:
			conflicting = append(conflicting, f)
		default:
			nonConflicting = append(nonConflicting, f)
		}
	}
	return conflicting, nonConflicting
}

// trivialChanges synthesizes the Preserve/PreserveRemoval for every
// non-conflicting Fork, carrying forward whichever branch changed.
func trivialChanges(forks []Fork) []store.ValueChange {
	changes := make([]store.ValueChange, 0, len(forks))
	for _, f := range forks {
		switch f.Kind {
		case vmap.Inserted, vmap.Updated:
			ref := f.FirstRef
			if f.Branch == vmap.Second {
				ref = f.SecondRef
			}
			changes = append(changes, store.NewPreserve(ref))
		case vmap.Removed, vmap.TwiceRemoved:
			changes = append(changes, store.NewPreserveRemoval(f.Key))
		}
	}
	return changes
}
