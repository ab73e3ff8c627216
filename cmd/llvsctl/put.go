// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/mentalfaculty/llvs/store"
	"github.com/spf13/cobra"
)

var (
	putKey         string
	putValue       string
	putPredecessor string
)

var putCmd = &cobra.Command{
	Use:   "put",
	Short: "Insert or update a keyed value, writing a new version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if putKey == "" {
			return fmt.Errorf("llvsctl: --key is required")
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		pred, err := soleHeadOrRoot(s, putPredecessor)
		if err != nil {
			return err
		}

		var change store.ValueChange
		if pred != "" {
			if _, ok, err := s.Value(putKey, pred); err != nil {
				return err
			} else if ok {
				change = store.NewUpdate(putKey, []byte(putValue))
			} else {
				change = store.NewInsert(putKey, []byte(putValue))
			}
		} else {
			change = store.NewInsert(putKey, []byte(putValue))
		}

		var predPtr *string
		if pred != "" {
			predPtr = &pred
		}
		v, err := s.MakeVersion(predPtr, []store.ValueChange{change}, nil)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

func init() {
	putCmd.Flags().StringVar(&putKey, "key", "", "value id to write")
	putCmd.Flags().StringVar(&putValue, "value", "", "bytes to store (as a string)")
	putCmd.Flags().StringVar(&putPredecessor, "predecessor", "", "version to commit on top of (default: the store's sole head)")
}
