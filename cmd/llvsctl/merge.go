// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/mentalfaculty/llvs/merge"
	"github.com/spf13/cobra"
)

var (
	mergeA       string
	mergeB       string
	mergeArbiter string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge two heads, resolving conflicts with the chosen arbiter",
	RunE: func(cmd *cobra.Command, args []string) error {
		if mergeA == "" || mergeB == "" {
			return fmt.Errorf("llvsctl: --a and --b are required")
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		var arbiter merge.MergeArbiter
		switch mergeArbiter {
		case "branch", "":
			arbiter = merge.MostRecentBranchFavoring{}
		case "change":
			arbiter = merge.MostRecentChangeFavoring{}
		default:
			return fmt.Errorf("llvsctl: unknown --arbiter %q (want branch or change)", mergeArbiter)
		}
		v, err := merge.New(s, arbiter).Run(mergeA, mergeB, nil)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeA, "a", "", "first head")
	mergeCmd.Flags().StringVar(&mergeB, "b", "", "second head")
	mergeCmd.Flags().StringVar(&mergeArbiter, "arbiter", "branch", "conflict arbiter: branch or change")
}
