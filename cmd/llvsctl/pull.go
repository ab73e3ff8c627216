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

var pullPeerRoot string

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch versions another root has that this store is missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pullPeerRoot == "" {
			return fmt.Errorf("llvsctl: --peer-root is required")
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		peerStore, err := store.Open(pullPeerRoot)
		if err != nil {
			return err
		}
		ex := exchange.New(s)
		return ex.Receive(context.Background(), pullPeerRoot, &dirPeer{s: peerStore})
	},
}

func init() {
	pullCmd.Flags().StringVar(&pullPeerRoot, "peer-root", "", "path to the other store's root directory")
}
