// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exchange

import (
	"context"

	"github.com/mentalfaculty/llvs/errs"
	"github.com/mentalfaculty/llvs/history"
	"github.com/mentalfaculty/llvs/internal/logging"
	"github.com/mentalfaculty/llvs/store"
)

var log = logging.For("exchange")

// Exchange runs the Receive/Send orchestration of §4.6 against a local
// Store, tracking per-peer PeerState for resumption.
type Exchange struct {
	Store *store.Store
	State *PeerState
}

// New returns an Exchange over s with fresh PeerState.
func New(s *store.Store) *Exchange {
	return &Exchange{Store: s, State: NewPeerState()}
}

func idSet(ids []VersionID) map[VersionID]struct{} {
	set := make(map[VersionID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Receive pulls every version peerID has that this Store is missing,
// and installs them in predecessor-first order.
func (e *Exchange) Receive(ctx context.Context, peerID string, peer RemotePeer) error {
	if err := peer.PrepareToRetrieve(ctx); err != nil {
		return errs.Wrap(err, "exchange: prepare to retrieve")
	}
	remoteIDs, err := peer.ListVersions(ctx)
	if err != nil {
		return errs.Wrap(err, "exchange: list remote versions")
	}

	local := idSet(e.Store.AllVersions())
	already := e.State.synced(peerID)
	var missing []VersionID
	for _, id := range remoteIDs {
		if _, have := local[id]; have {
			continue
		}
		if _, done := already[id]; done {
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return nil
	}

	records, err := peer.FetchVersions(ctx, missing)
	if err != nil {
		return errs.Wrap(err, "exchange: fetch versions")
	}
	changesByID, err := peer.FetchChanges(ctx, missing)
	if err != nil {
		return errs.Wrap(err, "exchange: fetch changes")
	}

	pending := make(map[VersionID]VersionRecord, len(records))
	for _, r := range records {
		pending[r.ID] = r
	}

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		progressed := false
		for id, rec := range pending {
			if !predecessorsSatisfied(rec.Predecessors, local) {
				continue
			}
			if err := e.Store.InstallVersion(id, rec.Predecessors, rec.Timestamp, changesByID[id], rec.Metadata); err != nil {
				return errs.Wrapf(err, "exchange: install %s", id)
			}
			local[id] = struct{}{}
			e.State.markSynced(peerID, id)
			delete(pending, id)
			progressed = true
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if !progressed {
			return errs.ErrRemoteVersionsWithUnknownPredecessors
		}
	}
	log.WithField("peer", peerID).WithField("installed", len(records)).Info("exchange: receive complete")
	return nil
}

func predecessorsSatisfied(preds history.Predecessors, known map[VersionID]struct{}) bool {
	for _, p := range preds.Slice() {
		if _, ok := known[p]; !ok {
			return false
		}
	}
	return true
}

// Send pushes every version this Store has that peerID is missing, in
// predecessor-first order.
func (e *Exchange) Send(ctx context.Context, peerID string, peer RemotePeer) error {
	if err := peer.PrepareToSend(ctx); err != nil {
		return errs.Wrap(err, "exchange: prepare to send")
	}
	remoteIDs, err := peer.ListVersions(ctx)
	if err != nil {
		return errs.Wrap(err, "exchange: list remote versions")
	}
	remote := idSet(remoteIDs)
	already := e.State.synced(peerID)

	var order []VersionID
	e.Store.History().View(func(r *history.Reader) { order = r.TopologicalIter() })
	// TopologicalIter is heads-first; predecessor-first transmission
	// needs the reverse.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	var batch []VersionAndChanges
	for _, id := range order {
		if _, have := remote[id]; have {
			continue
		}
		if _, done := already[id]; done {
			continue
		}
		v, ok := e.Store.VersionRecord(id)
		if !ok {
			continue
		}
		changes, err := e.Store.Changes(id)
		if err != nil {
			return errs.Wrapf(err, "exchange: load changes for %s", id)
		}
		batch = append(batch, VersionAndChanges{
			Record: VersionRecord{
				ID:           v.ID,
				Predecessors: v.Predecessors,
				Timestamp:    v.Timestamp,
				Metadata:     v.Metadata,
			},
			Changes: changes,
		})
	}
	if len(batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := peer.SendVersions(ctx, batch); err != nil {
		return errs.Wrap(err, "exchange: send versions")
	}
	for _, vc := range batch {
		e.State.markSynced(peerID, vc.Record.ID)
	}
	log.WithField("peer", peerID).WithField("sent", len(batch)).Info("exchange: send complete")
	return nil
}
