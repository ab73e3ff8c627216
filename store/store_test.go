// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeVersionAndValueRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	v0, err := s.MakeVersion(nil, nil, nil)
	require.NoError(t, err)

	v1, err := s.MakeVersion(&v0, []ValueChange{NewInsert("K1", []byte("hello"))}, nil)
	require.NoError(t, err)

	data, ok, err := s.Value("K1", v1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), data)

	_, ok, err = s.Value("K1", v0)
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, []VersionID{v1}, s.Heads())
}

func TestMakeVersionUpdateAndRemove(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	v0, err := s.MakeVersion(nil, []ValueChange{NewInsert("K1", []byte("a"))}, nil)
	require.NoError(t, err)
	v1, err := s.MakeVersion(&v0, []ValueChange{NewUpdate("K1", []byte("b"))}, nil)
	require.NoError(t, err)
	v2, err := s.MakeVersion(&v1, []ValueChange{NewRemove("K1")}, nil)
	require.NoError(t, err)

	data, ok, err := s.Value("K1", v1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("b"), data)

	_, ok, err = s.Value("K1", v2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMakeMergeVersionWithPreserve(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	v0, err := s.MakeVersion(nil, []ValueChange{NewInsert("K1", []byte("base"))}, nil)
	require.NoError(t, err)
	a, err := s.MakeVersion(&v0, []ValueChange{NewUpdate("K1", []byte("from-a"))}, nil)
	require.NoError(t, err)
	b, err := s.MakeVersion(&v0, nil, nil)
	require.NoError(t, err)

	aRef, ok, err := s.vm.ValueReference("K1", a)
	require.NoError(t, err)
	require.True(t, ok)

	merged, err := s.MakeMergeVersion(a, b, []ValueChange{NewPreserve(aRef)}, nil)
	require.NoError(t, err)

	data, ok, err := s.Value("K1", merged)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("from-a"), data)
}

func TestReopenReplaysHistoryAndMap(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	v0, err := s.MakeVersion(nil, []ValueChange{NewInsert("K1", []byte("v0"))}, nil)
	require.NoError(t, err)
	v1, err := s.MakeVersion(&v0, []ValueChange{NewUpdate("K1", []byte("v1"))}, nil)
	require.NoError(t, err)

	reopened, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, []VersionID{v1}, reopened.Heads())

	data, ok, err := reopened.Value("K1", v1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), data)

	data, ok, err = reopened.Value("K1", v0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v0"), data)
}
