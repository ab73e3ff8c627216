// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errs defines the error kinds shared by every llvs component.
// Callers compare against these with errors.Is; Wrap attaches context
// and a stack trace while preserving that identity, the way the
// teacher's store.WrapError preserves a verror's IDAction pair across
// re-wrapping.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel error kinds, one per §7 of the specification.
var (
	// ErrIo indicates an underlying storage or network failure.
	// Retryable at the operation level.
	ErrIo = errors.New("llvs: io error")

	// ErrDuplicate indicates a version id already exists in History.
	ErrDuplicate = errors.New("llvs: duplicate version")

	// ErrMissingVersion indicates a requested version id is unknown locally.
	ErrMissingVersion = errors.New("llvs: missing version")

	// ErrMissingPredecessor indicates History.add was asked to link a
	// version whose predecessor is not yet known.
	ErrMissingPredecessor = errors.New("llvs: missing predecessor")

	// ErrRemoteVersionsWithUnknownPredecessors indicates the exchange
	// install phase could not make progress on a pending batch.
	ErrRemoteVersionsWithUnknownPredecessors = errors.New("llvs: remote versions with unknown predecessors")

	// ErrAttemptToLocateUnversionedValue indicates a Value with no
	// version field was passed where a ValueRef is required.
	ErrAttemptToLocateUnversionedValue = errors.New("llvs: attempt to locate unversioned value")

	// ErrSerializationInvalid indicates a malformed version or change
	// record on disk or wire.
	ErrSerializationInvalid = errors.New("llvs: invalid serialization")

	// ErrConflictingWrite indicates a Zone.Put call supplied different
	// bytes for an existing (key, version) reference.
	ErrConflictingWrite = errors.New("llvs: conflicting write")
)

// Wrap annotates err with msg while keeping errors.Is(result, err) true
// for any sentinel err wraps (directly or transitively). A nil err
// returns nil, matching store.WrapError's no-op-on-nil behavior.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with Printf-style formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, fmt.Sprintf(format, args...))
}
