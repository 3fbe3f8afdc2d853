// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ava-labs/tokenmeta/client"
	"github.com/ava-labs/tokenmeta/parser"
)

var removeCmd = &cobra.Command{
	Use:   "remove [options] <asset>/<field>",
	Short: "Removes an additional field of an asset's metadata record",
	RunE:  removeFunc,
}

func removeFunc(cmd *cobra.Command, args []string) error {
	exactArgs(args, 1)
	asset, key, err := parser.ResolvePath(args[0])
	if err != nil {
		return err
	}
	conf, err := newClient().RemoveField(asset, key)
	if err != nil {
		return err
	}
	if !conf.Removed {
		color.Yellow("%s was not set", key)
	}
	client.PrintConfirmation(conf)
	return nil
}
