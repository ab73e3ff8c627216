// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	getKey string
	getAt  string
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Read a keyed value as of a version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if getKey == "" {
			return fmt.Errorf("llvsctl: --key is required")
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		at, err := soleHead(s, getAt)
		if err != nil {
			return err
		}
		data, ok, err := s.Value(getKey, at)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: not found at %s\n", getKey, at)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		fmt.Println()
		return nil
	},
}

func init() {
	getCmd.Flags().StringVar(&getKey, "key", "", "value id to read")
	getCmd.Flags().StringVar(&getAt, "at", "", "version to read as of (default: the store's sole head)")
}
