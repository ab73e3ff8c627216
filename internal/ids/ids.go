// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ids generates the opaque identifiers used throughout llvs:
// VersionIds are random (version 4) UUIDs, matching the "typically
// UUID-shaped" guidance in the data model.
package ids

import (
	"github.com/pborman/uuid"
)

// NewVersionID returns a fresh, globally-unique version identifier.
func NewVersionID() string {
	return uuid.NewRandom().String()
}
