// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty store root",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		if len(s.Heads()) > 0 {
			fmt.Println("store already initialized")
			return nil
		}
		v, err := s.MakeVersion(nil, nil, nil)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}
