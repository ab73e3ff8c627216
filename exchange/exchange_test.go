// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exchange

import (
	"context"
	"testing"

	"github.com/mentalfaculty/llvs/errs"
	"github.com/mentalfaculty/llvs/store"
	"github.com/stretchr/testify/require"
)

// storePeer adapts a local *store.Store to RemotePeer, as if it were a
// remote reached over some transport -- standing in for the transports
// this module deliberately leaves unimplemented.
type storePeer struct {
	s *store.Store
}

func (p *storePeer) PrepareToRetrieve(ctx context.Context) error { return nil }
func (p *storePeer) PrepareToSend(ctx context.Context) error     { return nil }

func (p *storePeer) ListVersions(ctx context.Context) ([]VersionID, error) {
	return p.s.AllVersions(), nil
}

func (p *storePeer) FetchVersions(ctx context.Context, ids []VersionID) ([]VersionRecord, error) {
	out := make([]VersionRecord, 0, len(ids))
	for _, id := range ids {
		v, ok := p.s.VersionRecord(id)
		if !ok {
			continue
		}
		out = append(out, VersionRecord{ID: v.ID, Predecessors: v.Predecessors, Timestamp: v.Timestamp, Metadata: v.Metadata})
	}
	return out, nil
}

func (p *storePeer) FetchChanges(ctx context.Context, ids []VersionID) (map[VersionID][]ValueChange, error) {
	out := make(map[VersionID][]ValueChange, len(ids))
	for _, id := range ids {
		c, err := p.s.Changes(id)
		if err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, nil
}

func (p *storePeer) SendVersions(ctx context.Context, batch []VersionAndChanges) error {
	for _, vc := range batch {
		if err := p.s.InstallVersion(vc.Record.ID, vc.Record.Predecessors, vc.Record.Timestamp, vc.Changes, vc.Record.Metadata); err != nil {
			return err
		}
	}
	return nil
}

var _ RemotePeer = (*storePeer)(nil)

func TestReceivePullsMissingVersionsInPredecessorOrder(t *testing.T) {
	remote, err := store.Open(t.TempDir())
	require.NoError(t, err)
	v0, err := remote.MakeVersion(nil, []store.ValueChange{store.NewInsert("K1", []byte("v0"))}, nil)
	require.NoError(t, err)
	v1, err := remote.MakeVersion(&v0, []store.ValueChange{store.NewUpdate("K1", []byte("v1"))}, nil)
	require.NoError(t, err)

	local, err := store.Open(t.TempDir())
	require.NoError(t, err)

	ex := New(local)
	require.NoError(t, ex.Receive(context.Background(), "remote", &storePeer{s: remote}))

	require.ElementsMatch(t, []VersionID{v0, v1}, local.AllVersions())
	data, ok, err := local.Value("K1", v1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), data)
}

func TestSendPushesMissingVersions(t *testing.T) {
	local, err := store.Open(t.TempDir())
	require.NoError(t, err)
	v0, err := local.MakeVersion(nil, []store.ValueChange{store.NewInsert("K1", []byte("v0"))}, nil)
	require.NoError(t, err)
	v1, err := local.MakeVersion(&v0, []store.ValueChange{store.NewUpdate("K1", []byte("v1"))}, nil)
	require.NoError(t, err)

	remote, err := store.Open(t.TempDir())
	require.NoError(t, err)

	ex := New(local)
	require.NoError(t, ex.Send(context.Background(), "remote", &storePeer{s: remote}))

	require.ElementsMatch(t, []VersionID{v0, v1}, remote.AllVersions())
	data, ok, err := remote.Value("K1", v1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), data)
}

func TestReceiveFailsOnUnknownPredecessors(t *testing.T) {
	remote, err := store.Open(t.TempDir())
	require.NoError(t, err)
	v0, err := remote.MakeVersion(nil, nil, nil)
	require.NoError(t, err)
	v1, err := remote.MakeVersion(&v0, []store.ValueChange{store.NewInsert("K1", []byte("x"))}, nil)
	require.NoError(t, err)

	local, err := store.Open(t.TempDir())
	require.NoError(t, err)

	// danglingPeer reports only v1, withholding its predecessor v0, so
	// the install loop can never satisfy v1's Predecessors and must
	// fail rather than spin forever.
	ex := New(local)
	err = ex.Receive(context.Background(), "bad", &danglingPeer{storePeer: storePeer{s: remote}, only: v1})
	require.ErrorIs(t, err, errs.ErrRemoteVersionsWithUnknownPredecessors)
}

// danglingPeer reports only a subset of a remote's versions, letting a
// test force the "predecessor never arrives" failure path.
type danglingPeer struct {
	storePeer
	only VersionID
}

func (p *danglingPeer) ListVersions(ctx context.Context) ([]VersionID, error) {
	return []VersionID{p.only}, nil
}
