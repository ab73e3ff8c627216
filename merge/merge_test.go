// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package merge

import (
	"testing"
	"time"

	"github.com/mentalfaculty/llvs/store"
	"github.com/stretchr/testify/require"
)

func TestFastForwardWhenAncestor(t *testing.T) {
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)

	v0, err := s.MakeVersion(nil, []store.ValueChange{store.NewInsert("K1", []byte("a"))}, nil)
	require.NoError(t, err)
	v1, err := s.MakeVersion(&v0, []store.ValueChange{store.NewUpdate("K1", []byte("b"))}, nil)
	require.NoError(t, err)

	mg := New(s, MostRecentBranchFavoring{})
	got, err := mg.Run(v0, v1, nil)
	require.NoError(t, err)
	require.Equal(t, v1, got)
}

func TestMergeResolvesConflictingUpdateBranchFavoring(t *testing.T) {
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)

	v0, err := s.MakeVersion(nil, []store.ValueChange{store.NewInsert("K1", []byte("base"))}, nil)
	require.NoError(t, err)
	a, err := s.MakeVersion(&v0, []store.ValueChange{store.NewUpdate("K1", []byte("from-a"))}, nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	b, err := s.MakeVersion(&v0, []store.ValueChange{store.NewUpdate("K1", []byte("from-b"))}, nil)
	require.NoError(t, err)

	mg := New(s, MostRecentBranchFavoring{})
	merged, err := mg.Run(a, b, nil)
	require.NoError(t, err)
	require.NotEqual(t, a, merged)
	require.NotEqual(t, b, merged)

	data, ok, err := s.Value("K1", merged)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("from-b"), data)
}

func TestMergeCarriesForwardNonConflictingInsert(t *testing.T) {
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)

	v0, err := s.MakeVersion(nil, nil, nil)
	require.NoError(t, err)
	a, err := s.MakeVersion(&v0, []store.ValueChange{store.NewInsert("AB1111", []byte("a"))}, nil)
	require.NoError(t, err)
	b, err := s.MakeVersion(&v0, []store.ValueChange{store.NewInsert("CD2222", []byte("b"))}, nil)
	require.NoError(t, err)

	mg := New(s, MostRecentChangeFavoring{})
	merged, err := mg.Run(a, b, nil)
	require.NoError(t, err)

	data, ok, err := s.Value("AB1111", merged)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("a"), data)

	data, ok, err = s.Value("CD2222", merged)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("b"), data)
}

func TestMergeRemovedAndUpdatedConflict(t *testing.T) {
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)

	v0, err := s.MakeVersion(nil, []store.ValueChange{store.NewInsert("AB1111", []byte("base"))}, nil)
	require.NoError(t, err)
	a, err := s.MakeVersion(&v0, []store.ValueChange{store.NewRemove("AB1111")}, nil)
	require.NoError(t, err)
	b, err := s.MakeVersion(&v0, []store.ValueChange{store.NewUpdate("AB1111", []byte("kept"))}, nil)
	require.NoError(t, err)

	mg := New(s, MostRecentChangeFavoring{})
	merged, err := mg.Run(a, b, nil)
	require.NoError(t, err)

	data, ok, err := s.Value("AB1111", merged)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("kept"), data)
}
