// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store implements the Store component: it ties Zone, Map and
// History together and owns the write protocol, the serialization of
// Versions and per-version ValueChange records, and the public
// read/write API.
package store

import (
	"sync"
	"time"

	"github.com/mentalfaculty/llvs/errs"
	"github.com/mentalfaculty/llvs/history"
	"github.com/mentalfaculty/llvs/internal/ids"
	"github.com/mentalfaculty/llvs/internal/logging"
	"github.com/mentalfaculty/llvs/vmap"
	"github.com/mentalfaculty/llvs/zone"
)

var log = logging.For("store")

// VersionID and ValueID are re-exported so callers of this package
// rarely need to import history/vmap directly.
type VersionID = history.VersionID
type ValueID = vmap.ValueID

// ValueRef locates a stored value: see vmap.ValueRef.
type ValueRef = vmap.ValueRef

// Value is an opaque payload written under ID by the version that
// produced it. Version is empty for caller-constructed Values passed
// to Insert/Update; the commit stores the bytes under the version it
// creates but does not fill in this field.
type Value struct {
	ID      ValueID
	Version VersionID
	Bytes   []byte
}

// ChangeKind tags ValueChange's variant.
type ChangeKind int

const (
	Insert ChangeKind = iota
	Update
	Remove
	Preserve
	PreserveRemoval
)

// ValueChange is the tagged union Insert(Value) | Update(Value) |
// Remove(ValueID) | Preserve(ValueRef) | PreserveRemoval(ValueID).
// Only the field whose comment below names a given Kind is meaningful
// for that Kind.
type ValueChange struct {
	Kind ChangeKind

	// Value is set for Insert and Update.
	Value Value

	// ValueID is set for Remove and PreserveRemoval.
	ValueID ValueID

	// Ref is set for Preserve.
	Ref ValueRef
}

// NewInsert builds an Insert change.
func NewInsert(id ValueID, bytes []byte) ValueChange {
	return ValueChange{Kind: Insert, Value: Value{ID: id, Bytes: bytes}}
}

// NewUpdate builds an Update change.
func NewUpdate(id ValueID, bytes []byte) ValueChange {
	return ValueChange{Kind: Update, Value: Value{ID: id, Bytes: bytes}}
}

// NewRemove builds a Remove change.
func NewRemove(id ValueID) ValueChange { return ValueChange{Kind: Remove, ValueID: id} }

// NewPreserve builds a Preserve change, carrying forward ref unchanged.
func NewPreserve(ref ValueRef) ValueChange { return ValueChange{Kind: Preserve, Ref: ref} }

// NewPreserveRemoval builds a PreserveRemoval change.
func NewPreserveRemoval(id ValueID) ValueChange {
	return ValueChange{Kind: PreserveRemoval, ValueID: id}
}

// Store owns the Zone, Map and History for one repository root.
type Store struct {
	root string
	zone zone.Zone
	vm   *vmap.Map
	hist *history.History

	commitMu sync.Mutex // serializes the multi-step write protocol
}

// Open opens (creating if necessary) the filesystem-backed Store
// rooted at dir, replaying any existing version history.
func Open(dir string) (*Store, error) {
	z, err := zone.Open(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{
		root: dir,
		zone: z,
		vm:   vmap.New(z),
		hist: history.New(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Zone exposes the underlying Zone, e.g. for exchange to fetch/store
// raw blobs during transfer.
func (s *Store) Zone() zone.Zone { return s.zone }

// History exposes the underlying History for callers (merge, exchange)
// that need head tracking or GCA search directly.
func (s *Store) History() *history.History { return s.hist }

// mapBase returns the predecessor a commit's Map delta is based on:
// the sole predecessor for a regular commit, or the first ("First"
// branch) predecessor for a merge commit -- see DESIGN.md's note on
// why this keeps replay on Load deterministic.
func mapBase(preds history.Predecessors) *VersionID {
	switch preds.Kind {
	case history.PredOne, history.PredTwo:
		id := preds.First
		return &id
	default:
		return nil
	}
}

// MakeVersion implements the write protocol of §4.4 for a regular,
// single-predecessor (or root, if predecessor is nil) commit.
func (s *Store) MakeVersion(predecessor *VersionID, changes []ValueChange, metadata map[string]string) (VersionID, error) {
	var preds history.Predecessors
	if predecessor != nil {
		preds = history.OnePredecessor(*predecessor)
	} else {
		preds = history.NoPredecessors()
	}
	return s.commit(ids.NewVersionID(), preds, time.Now().UTC(), changes, metadata)
}

// MakeMergeVersion implements the two-predecessor form of the write
// protocol, used by the merge engine.
func (s *Store) MakeMergeVersion(a, b VersionID, changes []ValueChange, metadata map[string]string) (VersionID, error) {
	return s.commit(ids.NewVersionID(), history.TwoPredecessors(a, b), time.Now().UTC(), changes, metadata)
}

// InstallVersion ingests a version originated by a remote peer: it runs
// the same write protocol as MakeVersion/MakeMergeVersion, except the
// version's id, predecessors and timestamp are the remote's own rather
// than freshly minted here. Per §4.6's Receive step, the caller SHALL
// only call this once every predecessor named by preds is already
// present in History.
func (s *Store) InstallVersion(id VersionID, preds history.Predecessors, timestamp time.Time, changes []ValueChange, metadata map[string]string) error {
	_, err := s.commit(id, preds, timestamp, changes, metadata)
	return err
}

func (s *Store) commit(next VersionID, preds history.Predecessors, ts time.Time, changes []ValueChange, metadata map[string]string) (VersionID, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	for _, c := range changes {
		switch c.Kind {
		case Insert, Update:
			if err := s.zone.Put(zone.Ref{Key: c.Value.ID, Version: next}, c.Value.Bytes); err != nil {
				return "", errs.Wrapf(err, "store: write value %s", c.Value.ID)
			}
		}
	}

	deltas, err := deltasFromChanges(changes, next)
	if err != nil {
		return "", err
	}

	if err := s.vm.AddVersion(next, mapBase(preds), deltas); err != nil {
		return "", errs.Wrap(err, "store: update map")
	}

	if err := s.writeChangesRecord(next, changes); err != nil {
		return "", err
	}
	// The version record is made discoverable last: until this rename
	// succeeds, next is not referenced by anything and any partial
	// state above is an orphan, harmless because it is never found.
	if err := s.writeVersionRecord(next, preds, ts, metadata); err != nil {
		return "", err
	}

	if err := s.hist.Update(func(w *history.Writer) error {
		return w.Add(next, preds, ts, metadata)
	}); err != nil {
		return "", errs.Wrap(err, "store: register version")
	}

	log.WithField("version", next).WithField("changes", len(changes)).Info("store: committed version")
	return next, nil
}

// deltasFromChanges derives the Map deltas for a commit: additions for
// Insert/Update (pointing at next) and Preserve (pointing at the
// preserved ValueRef's own version), removals for Remove/PreserveRemoval.
func deltasFromChanges(changes []ValueChange, next VersionID) ([]vmap.MapDelta, error) {
	deltas := make([]vmap.MapDelta, 0, len(changes))
	for _, c := range changes {
		switch c.Kind {
		case Insert, Update:
			deltas = append(deltas, vmap.MapDelta{
				Key:   c.Value.ID,
				Added: []ValueRef{{ID: c.Value.ID, Version: next}},
			})
		case Preserve:
			if c.Ref.Version == "" {
				return nil, errs.ErrAttemptToLocateUnversionedValue
			}
			deltas = append(deltas, vmap.MapDelta{Key: c.Ref.ID, Added: []ValueRef{c.Ref}})
		case Remove, PreserveRemoval:
			deltas = append(deltas, vmap.MapDelta{Key: c.ValueID, Removed: true})
		}
	}
	return deltas, nil
}

// Value implements the read protocol: resolve key's reference as of
// atVersion via the Map, then fetch its bytes from the Zone.
func (s *Store) Value(key ValueID, atVersion VersionID) ([]byte, bool, error) {
	ref, ok, err := s.vm.ValueReference(key, atVersion)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	data, ok, err := s.zone.Get(zone.Ref{Key: key, Version: ref.Version})
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, errs.Wrapf(errs.ErrSerializationInvalid, "store: missing value bytes for (%s, %s)", key, ref.Version)
	}
	return data, true, nil
}

// Heads returns the current set of head versions.
func (s *Store) Heads() []VersionID {
	var heads []VersionID
	s.hist.View(func(r *history.Reader) { heads = r.Heads() })
	return heads
}

// Map exposes the underlying Map, e.g. for the merge engine's diff step.
func (s *Store) Map() *vmap.Map { return s.vm }

// AllVersions returns every version id known to this Store.
func (s *Store) AllVersions() []VersionID {
	var out []VersionID
	s.hist.View(func(r *history.Reader) { out = r.AllIDs() })
	return out
}

// VersionRecord returns the committed Predecessors/Timestamp/Metadata
// for id, e.g. for the exchange layer to transmit to a peer.
func (s *Store) VersionRecord(id VersionID) (history.Version, bool) {
	var v history.Version
	var ok bool
	s.hist.View(func(r *history.Reader) { v, ok = r.Version(id) })
	return v, ok
}

// Changes returns the changes record written for id by a prior commit.
func (s *Store) Changes(id VersionID) ([]ValueChange, error) {
	return readChangesRecord(s.changesPath(id))
}
