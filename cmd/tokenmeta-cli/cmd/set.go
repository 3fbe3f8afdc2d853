// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ava-labs/tokenmeta/client"
	"github.com/ava-labs/tokenmeta/parser"
)

var setCmd = &cobra.Command{
	Use:   "set [options] <asset>/<field> <value>",
	Short: "Writes a field of an asset's metadata record",
	Long: `
Sets a fixed field (name, symbol, uri) or an additional field.
The record account is topped up when the new record needs a larger balance.

$ tokenmeta-cli set 7xKX.../description "Only Possible On Solana"

`,
	RunE: setFunc,
}

func setFunc(cmd *cobra.Command, args []string) error {
	exactArgs(args, 2)
	asset, key, err := parser.ResolvePath(args[0])
	if err != nil {
		return err
	}
	conf, err := newClient().UpdateField(asset, key, args[1])
	if err != nil {
		return err
	}
	client.PrintConfirmation(conf)
	return nil
}
