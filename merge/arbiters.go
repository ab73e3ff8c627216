// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package merge

import (
	"github.com/mentalfaculty/llvs/errs"
	"github.com/mentalfaculty/llvs/history"
	"github.com/mentalfaculty/llvs/store"
	"github.com/mentalfaculty/llvs/vmap"
)

// MostRecentBranchFavoring resolves every conflict by always preferring
// the branch whose head has the larger timestamp, decided once per
// Merge rather than per key.
type MostRecentBranchFavoring struct{}

var _ MergeArbiter = MostRecentBranchFavoring{}

// Changes implements MergeArbiter.
func (MostRecentBranchFavoring) Changes(m *Merge, s *store.Store) ([]store.ValueChange, error) {
	favorSecond, err := laterBranch(m, s)
	if err != nil {
		return nil, err
	}
	changes := make([]store.ValueChange, 0, len(m.Forks))
	for _, f := range m.Forks {
		c, err := resolveFork(f, favorSecond)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// laterBranch reports whether m.B's version has a strictly later
// timestamp than m.A's, breaking the tie toward First on equality.
func laterBranch(m *Merge, s *store.Store) (bool, error) {
	var aTime, bTime history.Version
	var aOK, bOK bool
	s.History().View(func(r *history.Reader) {
		aTime, aOK = r.Version(m.A)
		bTime, bOK = r.Version(m.B)
	})
	if !aOK || !bOK {
		return false, errs.Wrap(errs.ErrMissingVersion, "merge: arbiter could not look up branch heads")
	}
	return bTime.Timestamp.After(aTime.Timestamp), nil
}

func resolveFork(f Fork, favorSecond bool) (store.ValueChange, error) {
	switch f.Kind {
	case vmap.TwiceInserted, vmap.TwiceUpdated:
		ref := f.FirstRef
		if favorSecond {
			ref = f.SecondRef
		}
		return store.NewPreserve(ref), nil
	case vmap.RemovedAndUpdated:
		removedOnFavored := (f.RemovedOn == vmap.First && !favorSecond) || (f.RemovedOn == vmap.Second && favorSecond)
		if removedOnFavored {
			return store.NewPreserveRemoval(f.Key), nil
		}
		ref := f.FirstRef
		if f.RemovedOn == vmap.First {
			ref = f.SecondRef
		}
		return store.NewPreserve(ref), nil
	default:
		return store.ValueChange{}, errs.Wrapf(errs.ErrSerializationInvalid, "merge: fork %q is not conflicting", f.Key)
	}
}

// MostRecentChangeFavoring resolves each conflicting key independently,
// preferring whichever branch's write to that specific key is more
// recent, rather than committing to one branch for the whole merge.
type MostRecentChangeFavoring struct{}

var _ MergeArbiter = MostRecentChangeFavoring{}

// Changes implements MergeArbiter.
func (MostRecentChangeFavoring) Changes(m *Merge, s *store.Store) ([]store.ValueChange, error) {
	changes := make([]store.ValueChange, 0, len(m.Forks))
	for _, f := range m.Forks {
		favorSecond, err := laterWriter(f, m, s)
		if err != nil {
			return nil, err
		}
		c, err := resolveFork(f, favorSecond)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// laterWriter reports whether the write backing f.SecondRef is more
// recent than the one backing f.FirstRef, using each ref's own Version
// (not the branch head) so independent unrelated commits on the same
// branch don't skew the comparison.
func laterWriter(f Fork, m *Merge, s *store.Store) (bool, error) {
	firstVersion, secondVersion := f.FirstRef.Version, f.SecondRef.Version
	if f.Kind == vmap.RemovedAndUpdated {
		// The removed side has no ValueRef to time-stamp; use the branch
		// head's own commit time for that side instead.
		if f.RemovedOn == vmap.First {
			firstVersion = m.A
		} else {
			secondVersion = m.B
		}
	}
	var firstTime, secondTime history.Version
	var firstOK, secondOK bool
	s.History().View(func(r *history.Reader) {
		firstTime, firstOK = r.Version(firstVersion)
		secondTime, secondOK = r.Version(secondVersion)
	})
	if !firstOK || !secondOK {
		return false, errs.Wrap(errs.ErrMissingVersion, "merge: arbiter could not look up writing versions")
	}
	return secondTime.Timestamp.After(firstTime.Timestamp), nil
}
