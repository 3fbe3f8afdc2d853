// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ava-labs/tokenmeta/client"
	"github.com/ava-labs/tokenmeta/parser"
)

var mintCmd = &cobra.Command{
	Use:   "mint [options] <asset> <owner> <amount>",
	Short: "Issues supply of an asset to an owner",
	Long: `
Issues supply in whole units to the holder account of the owner,
creating the holder account when it does not exist.

$ tokenmeta-cli mint 7xKX... 9WzD... 12.5

`,
	RunE: mintFunc,
}

func mintFunc(cmd *cobra.Command, args []string) error {
	exactArgs(args, 3)
	asset, err := parser.ParseAddress(args[0])
	if err != nil {
		return err
	}
	owner, err := parser.ParseAddress(args[1])
	if err != nil {
		return err
	}
	amount, err := parser.ParseAmount(args[2])
	if err != nil {
		return err
	}
	conf, err := newClient().IssueSupply(asset, &owner, amount)
	if err != nil {
		return err
	}
	client.PrintConfirmation(conf)
	return nil
}
