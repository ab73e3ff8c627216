// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package exchange implements the transport-agnostic orchestration
// that converges two stores: discovering the versions each side is
// missing and transferring them in predecessor-first order. A
// RemotePeer is the only thing a concrete transport need implement.
package exchange

import (
	"context"
	"time"

	"github.com/mentalfaculty/llvs/history"
	"github.com/mentalfaculty/llvs/store"
)

// VersionID and ValueChange are re-exported for callers that only
// import exchange.
type VersionID = history.VersionID
type ValueChange = store.ValueChange

// VersionRecord is the wire shape of one Version: everything a remote
// needs to register it with its own History, without the locally
// -derived Successors field history.Version carries.
type VersionRecord struct {
	ID           VersionID
	Predecessors history.Predecessors
	Timestamp    time.Time
	Metadata     map[string]string
}

// VersionAndChanges pairs a VersionRecord with the ValueChange list
// that produced it, the unit SendVersions transmits. FetchVersions and
// FetchChanges return the two halves separately.
type VersionAndChanges struct {
	Record  VersionRecord
	Changes []ValueChange
}

// RemotePeer is the abstraction the exchange core is built against;
// every method is asynchronous (accepts a context, returns an error)
// so a concrete transport can suspend on network I/O per §5. No
// concrete transport ships in this module -- see SPEC_FULL.md for why
// the pack's transport libraries (websocket, oauth2, grpc, gatt, mdns)
// stay unwired.
type RemotePeer interface {
	// PrepareToRetrieve performs peer-specific warmup before a Receive
	// (e.g. token refresh) and can be a no-op.
	PrepareToRetrieve(ctx context.Context) error

	// ListVersions returns every version id the peer currently has.
	ListVersions(ctx context.Context) ([]VersionID, error)

	// FetchVersions returns the VersionRecord for each requested id.
	FetchVersions(ctx context.Context, ids []VersionID) ([]VersionRecord, error)

	// FetchChanges returns the ValueChange list for each requested id.
	FetchChanges(ctx context.Context, ids []VersionID) (map[VersionID][]ValueChange, error)

	// PrepareToSend performs peer-specific warmup before a Send.
	PrepareToSend(ctx context.Context) error

	// SendVersions pushes a predecessor-first batch to the peer.
	SendVersions(ctx context.Context, batch []VersionAndChanges) error
}
