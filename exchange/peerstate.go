// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exchange

import "sync"

// PeerState tracks, per remote peer, the last-synced version set this
// process has observed -- the supplemented equivalent of the teacher's
// sync_state.go bookkeeping. Its purpose is partial-batch resumption:
// a Send/Receive interrupted mid-transfer does not re-offer versions
// already known to have been installed or transmitted. Since History
// itself is append-only and authoritative, PeerState is an optimization
// (it narrows what gets listed/diffed again), never a correctness
// requirement -- Receive/Send would still be correct, just slower,
// if PeerState were reset to empty before every call.
type PeerState struct {
	mu      sync.Mutex
	peers   map[string]map[VersionID]struct{}
}

// NewPeerState returns an empty PeerState.
func NewPeerState() *PeerState {
	return &PeerState{peers: make(map[string]map[VersionID]struct{})}
}

func (p *PeerState) synced(peerID string) map[VersionID]struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.peers[peerID]
	cp := make(map[VersionID]struct{}, len(set))
	for id := range set {
		cp[id] = struct{}{}
	}
	return cp
}

func (p *PeerState) markSynced(peerID string, id VersionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.peers[peerID]
	if !ok {
		set = make(map[VersionID]struct{})
		p.peers[peerID] = set
	}
	set[id] = struct{}{}
}
