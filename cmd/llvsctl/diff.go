// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/mentalfaculty/llvs/history"
	"github.com/spf13/cobra"
)

var (
	diffA   string
	diffB   string
	diffGCA string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show per-key Forks between two versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if diffA == "" || diffB == "" {
			return fmt.Errorf("llvsctl: --a and --b are required")
		}
		s, err := openStore()
		if err != nil {
			return err
		}

		gca := diffGCA
		if gca == "" {
			s.History().View(func(r *history.Reader) {
				if id, ok := r.GreatestCommonAncestor(diffA, diffB); ok {
					gca = id
				}
			})
		}
		var gcaPtr *string
		if gca != "" {
			gcaPtr = &gca
		}

		forks, err := s.Map().Differences(diffA, diffB, gcaPtr)
		if err != nil {
			return err
		}
		for _, f := range forks {
			fmt.Printf("%s\t%v\n", f.Key, f.Kind)
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().StringVar(&diffA, "a", "", "first version")
	diffCmd.Flags().StringVar(&diffB, "b", "", "second version")
	diffCmd.Flags().StringVar(&diffGCA, "gca", "", "common ancestor (default: computed)")
}
