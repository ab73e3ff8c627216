// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	z, err := Open(t.TempDir())
	require.NoError(t, err)

	ref := Ref{Key: "AB1111", Version: "v1"}
	require.NoError(t, z.Put(ref, []byte("hello")))

	data, ok, err := z.Get(ref)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), data)
}

func TestGetAbsent(t *testing.T) {
	z, err := Open(t.TempDir())
	require.NoError(t, err)

	_, ok, err := z.Get(Ref{Key: "nope", Version: "v1"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPutIdempotent(t *testing.T) {
	z, err := Open(t.TempDir())
	require.NoError(t, err)

	ref := Ref{Key: "AB1111", Version: "v1"}
	require.NoError(t, z.Put(ref, []byte("hello")))
	require.NoError(t, z.Put(ref, []byte("hello")))
}

func TestPutConflict(t *testing.T) {
	z, err := Open(t.TempDir())
	require.NoError(t, err)

	ref := Ref{Key: "AB1111", Version: "v1"}
	require.NoError(t, z.Put(ref, []byte("hello")))
	err = z.Put(ref, []byte("goodbye"))
	require.Error(t, err)
}

func TestVersionsFor(t *testing.T) {
	z, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, z.Put(Ref{Key: "AB1111", Version: "v1"}, []byte("a")))
	require.NoError(t, z.Put(Ref{Key: "AB1111", Version: "v2"}, []byte("b")))
	require.NoError(t, z.Put(Ref{Key: "CD2222", Version: "v1"}, []byte("c")))

	versions, err := z.VersionsFor("AB1111")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"v1", "v2"}, versions)
}

func TestNodeRoundTrip(t *testing.T) {
	z, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, z.PutNode("", "v1", []byte(`{"a":1}`)))
	data, ok, err := z.GetNode("", "v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte(`{"a":1}`), data)

	_, ok, err = z.GetNode("AB", "v1")
	require.NoError(t, err)
	require.False(t, ok)
}
