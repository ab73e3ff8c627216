// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zone implements the Zone component: a content-addressed byte
// blob repository keyed by (key, version). It also persists the Map's
// trie nodes, which are content blobs in their own right, keyed by the
// prefix they cover instead of by an application key.
package zone

import "github.com/mentalfaculty/llvs/history"

// VersionID is re-exported for callers that only need the Zone.
type VersionID = history.VersionID

// Ref addresses one stored value blob.
type Ref struct {
	Key     string
	Version VersionID
}

// Zone is the contract every backend (the filesystem reference
// implementation, or any other) must satisfy.
type Zone interface {
	// Put stores bytes for ref. It is idempotent: writing identical
	// bytes for an existing ref is a no-op; writing different bytes
	// for an existing ref fails with errs.ErrConflictingWrite.
	Put(ref Ref, data []byte) error

	// Get returns the stored bytes for ref, or ok=false if absent.
	Get(ref Ref) (data []byte, ok bool, err error)

	// VersionsFor enumerates every version that wrote the given key.
	VersionsFor(key string) ([]VersionID, error)

	// PutNode stores a Map trie node blob, content-addressed by the
	// prefix it covers and the version that wrote it. Kept distinct
	// from Put/Get so a node blob can never collide with an
	// application value that happens to share its prefix string.
	PutNode(prefix string, version VersionID, data []byte) error

	// GetNode returns a previously-stored node blob.
	GetNode(prefix string, version VersionID) (data []byte, ok bool, err error)
}
