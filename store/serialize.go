// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/mentalfaculty/llvs/errs"
	"github.com/mentalfaculty/llvs/history"
)

// On disk, per §6, a Store root additionally holds:
//
//	<root>/versions/<ver[..1]>/<ver[1..]>.json   -- one Version record
//	<root>/changes/<ver[..1]>/<ver[1..]>.json    -- that version's changes
//
// splitting the version id the same way FSZone splits version ids
// (first character, then the remainder), so no one
// directory's entry count grows unbounded.

func splitVersion(v VersionID) (string, string) {
	if len(v) <= 1 {
		return v, "_"
	}
	return v[:1], v[1:]
}

func (s *Store) versionPath(v VersionID) string {
	vp, vr := splitVersion(v)
	return filepath.Join(s.root, "versions", vp, vr+".json")
}

func (s *Store) changesPath(v VersionID) string {
	vp, vr := splitVersion(v)
	return filepath.Join(s.root, "changes", vp, vr+".json")
}

type wireVersion struct {
	ID           VersionID         `json:"id"`
	Predecessors []VersionID       `json:"predecessors,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func predecessorsFromSlice(ids []VersionID) history.Predecessors {
	switch len(ids) {
	case 1:
		return history.OnePredecessor(ids[0])
	case 2:
		return history.TwoPredecessors(ids[0], ids[1])
	default:
		return history.NoPredecessors()
	}
}

func (s *Store) writeVersionRecord(id VersionID, preds history.Predecessors, ts time.Time, metadata map[string]string) error {
	w := wireVersion{ID: id, Predecessors: preds.Slice(), Timestamp: ts, Metadata: metadata}
	data, err := json.Marshal(w)
	if err != nil {
		return errs.Wrap(err, "store: encode version record")
	}
	return writeAtomic(s.versionPath(id), data)
}

func readVersionRecord(path string) (wireVersion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return wireVersion{}, errs.Wrap(err, "store: read version record")
	}
	var w wireVersion
	if err := json.Unmarshal(data, &w); err != nil {
		return wireVersion{}, errs.Wrapf(errs.ErrSerializationInvalid, "store: decode version record %s", path)
	}
	return w, nil
}

// wireChange is the on-disk shape of one ValueChange.
type wireChange struct {
	Kind    string          `json:"kind"`
	ID      ValueID         `json:"id,omitempty"`
	Bytes   []byte          `json:"bytes,omitempty"`
	RefID   ValueID         `json:"refId,omitempty"`
	RefVer  VersionID       `json:"refVersion,omitempty"`
}

const (
	kindInsert          = "insert"
	kindUpdate          = "update"
	kindRemove          = "remove"
	kindPreserve        = "preserve"
	kindPreserveRemoval = "preserveRemoval"
)

func encodeChange(c ValueChange) (wireChange, error) {
	switch c.Kind {
	case Insert:
		return wireChange{Kind: kindInsert, ID: c.Value.ID, Bytes: c.Value.Bytes}, nil
	case Update:
		return wireChange{Kind: kindUpdate, ID: c.Value.ID, Bytes: c.Value.Bytes}, nil
	case Remove:
		return wireChange{Kind: kindRemove, ID: c.ValueID}, nil
	case Preserve:
		return wireChange{Kind: kindPreserve, RefID: c.Ref.ID, RefVer: c.Ref.Version}, nil
	case PreserveRemoval:
		return wireChange{Kind: kindPreserveRemoval, ID: c.ValueID}, nil
	default:
		return wireChange{}, errs.Wrapf(errs.ErrSerializationInvalid, "store: unknown change kind %d", c.Kind)
	}
}

func decodeChange(w wireChange) (ValueChange, error) {
	switch w.Kind {
	case kindInsert:
		return NewInsert(w.ID, w.Bytes), nil
	case kindUpdate:
		return NewUpdate(w.ID, w.Bytes), nil
	case kindRemove:
		return NewRemove(w.ID), nil
	case kindPreserve:
		return NewPreserve(ValueRef{ID: w.RefID, Version: w.RefVer}), nil
	case kindPreserveRemoval:
		return NewPreserveRemoval(w.ID), nil
	default:
		return ValueChange{}, errs.Wrapf(errs.ErrSerializationInvalid, "store: unknown change kind %q", w.Kind)
	}
}

func (s *Store) writeChangesRecord(id VersionID, changes []ValueChange) error {
	wire := make([]wireChange, 0, len(changes))
	for _, c := range changes {
		w, err := encodeChange(c)
		if err != nil {
			return err
		}
		wire = append(wire, w)
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return errs.Wrap(err, "store: encode changes record")
	}
	return writeAtomic(s.changesPath(id), data)
}

func readChangesRecord(path string) ([]ValueChange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "store: read changes record")
	}
	var wire []wireChange
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errs.Wrapf(errs.ErrSerializationInvalid, "store: decode changes record %s", path)
	}
	changes := make([]ValueChange, 0, len(wire))
	for _, w := range wire {
		c, err := decodeChange(w)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// writeAtomic mirrors zone's create-temp-then-rename pattern: version and
// changes records need the same crash-safety the Zone's value blobs do,
// but live in a directory tree the Zone interface does not expose.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Wrap(err, "store: mkdir")
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errs.Wrap(err, "store: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.Wrap(err, "store: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.Wrap(err, "store: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(err, "store: close temp file")
	}
	return os.Rename(tmpName, path)
}
