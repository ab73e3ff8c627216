// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/mentalfaculty/llvs/store"
)

func openStore() (*store.Store, error) {
	return store.Open(rootDir)
}

// soleHead resolves the version flag value "at" to an explicit version
// id: if it is non-empty it is returned as-is, otherwise the store must
// have exactly one head (ambiguity with multiple heads is a user error
// requiring an explicit --at/--predecessor).
func soleHead(s *store.Store, at string) (string, error) {
	if at != "" {
		return at, nil
	}
	heads := s.Heads()
	switch len(heads) {
	case 0:
		return "", fmt.Errorf("llvsctl: store has no versions yet")
	case 1:
		return heads[0], nil
	default:
		return "", fmt.Errorf("llvsctl: store has %d heads, pass an explicit version id", len(heads))
	}
}

// soleHeadOrRoot is soleHead's counterpart for writes: an empty store
// is not an error, it just means the next commit has no predecessor.
func soleHeadOrRoot(s *store.Store, at string) (string, error) {
	if at != "" {
		return at, nil
	}
	heads := s.Heads()
	switch len(heads) {
	case 0:
		return "", nil
	case 1:
		return heads[0], nil
	default:
		return "", fmt.Errorf("llvsctl: store has %d heads, pass an explicit --predecessor", len(heads))
	}
}
