// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/mentalfaculty/llvs/history"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List versions, heads first, in topological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		var order []string
		s.History().View(func(r *history.Reader) { order = r.TopologicalIter() })
		for _, id := range order {
			v, _ := s.VersionRecord(id)
			fmt.Printf("%s\tpredecessors=%v\ttimestamp=%s\n", id, v.Predecessors.Slice(), v.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		}
		return nil
	},
}
