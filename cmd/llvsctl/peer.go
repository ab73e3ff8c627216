// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"

	"github.com/mentalfaculty/llvs/exchange"
	"github.com/mentalfaculty/llvs/store"
)

// dirPeer adapts another on-disk Store to exchange.RemotePeer. It is
// the one concrete RemotePeer this module ships: a "transport" that is
// really just a second local root, useful for testing push/pull and
// for syncing against removable/shared media without a network stack.
type dirPeer struct {
	s *store.Store
}

var _ exchange.RemotePeer = (*dirPeer)(nil)

func (p *dirPeer) PrepareToRetrieve(ctx context.Context) error { return nil }
func (p *dirPeer) PrepareToSend(ctx context.Context) error     { return nil }

func (p *dirPeer) ListVersions(ctx context.Context) ([]exchange.VersionID, error) {
	return p.s.AllVersions(), nil
}

func (p *dirPeer) FetchVersions(ctx context.Context, ids []exchange.VersionID) ([]exchange.VersionRecord, error) {
	out := make([]exchange.VersionRecord, 0, len(ids))
	for _, id := range ids {
		v, ok := p.s.VersionRecord(id)
		if !ok {
			continue
		}
		out = append(out, exchange.VersionRecord{ID: v.ID, Predecessors: v.Predecessors, Timestamp: v.Timestamp, Metadata: v.Metadata})
	}
	return out, nil
}

func (p *dirPeer) FetchChanges(ctx context.Context, ids []exchange.VersionID) (map[exchange.VersionID][]exchange.ValueChange, error) {
	out := make(map[exchange.VersionID][]exchange.ValueChange, len(ids))
	for _, id := range ids {
		c, err := p.s.Changes(id)
		if err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, nil
}

func (p *dirPeer) SendVersions(ctx context.Context, batch []exchange.VersionAndChanges) error {
	for _, vc := range batch {
		if err := p.s.InstallVersion(vc.Record.ID, vc.Record.Predecessors, vc.Record.Timestamp, vc.Changes, vc.Record.Metadata); err != nil {
			return err
		}
	}
	return nil
}
