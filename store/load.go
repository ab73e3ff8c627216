// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mentalfaculty/llvs/errs"
	"github.com/mentalfaculty/llvs/history"
)

// load implements the two-phase load protocol of §4.4: every Version
// record on disk is registered with History first (order-independent,
// via LoadAll), then the Map is rebuilt by replaying each version's
// changes record, oldest predecessor first, so every commit's map base
// is already resident by the time it is replayed.
func (s *Store) load() error {
	entries, err := s.readAllVersionRecords()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	loadEntries := make([]history.LoadEntry, 0, len(entries))
	for _, w := range entries {
		loadEntries = append(loadEntries, history.LoadEntry{
			ID:           w.ID,
			Predecessors: predecessorsFromSlice(w.Predecessors),
			Timestamp:    w.Timestamp,
			Metadata:     w.Metadata,
		})
	}
	if err := s.hist.Update(func(w *history.Writer) error {
		return w.LoadAll(loadEntries)
	}); err != nil {
		return errs.Wrap(err, "store: load version history")
	}

	var order []VersionID
	s.hist.View(func(r *history.Reader) { order = r.TopologicalIter() })
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	for _, id := range order {
		var preds history.Predecessors
		s.hist.View(func(r *history.Reader) {
			v, _ := r.Version(id)
			preds = v.Predecessors
		})
		changes, err := readChangesRecord(s.changesPath(id))
		if err != nil {
			return errs.Wrapf(err, "store: replay changes for %s", id)
		}
		deltas, err := deltasFromChanges(changes, id)
		if err != nil {
			return err
		}
		if err := s.vm.AddVersion(id, mapBase(preds), deltas); err != nil {
			return errs.Wrapf(err, "store: replay map for %s", id)
		}
	}
	log.WithField("versions", len(order)).Info("store: loaded existing history")
	return nil
}

// readAllVersionRecords walks <root>/versions/<vp>/<vr>.json.
func (s *Store) readAllVersionRecords() ([]wireVersion, error) {
	base := filepath.Join(s.root, "versions")
	top, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "store: list versions dir")
	}
	var out []wireVersion
	for _, vp := range top {
		if !vp.IsDir() {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(base, vp.Name()))
		if err != nil {
			return nil, errs.Wrap(err, "store: list version subdir")
		}
		for _, vr := range sub {
			if vr.IsDir() || !strings.HasSuffix(vr.Name(), ".json") {
				continue
			}
			w, err := readVersionRecord(filepath.Join(base, vp.Name(), vr.Name()))
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
	}
	return out, nil
}
