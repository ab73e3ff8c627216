// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/mentalfaculty/llvs/exchange"
	"github.com/mentalfaculty/llvs/store"
	"github.com/spf13/cobra"
)

var pushPeerRoot string

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Send versions this store has that another root is missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pushPeerRoot == "" {
			return fmt.Errorf("llvsctl: --peer-root is required")
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		peerStore, err := store.Open(pushPeerRoot)
		if err != nil {
			return err
		}
		ex := exchange.New(s)
		return ex.Send(context.Background(), pushPeerRoot, &dirPeer{s: peerStore})
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushPeerRoot, "peer-root", "", "path to the other store's root directory")
}
