// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"encoding/json"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ava-labs/tokenmeta/client"
	"github.com/ava-labs/tokenmeta/parser"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get [options] <asset>",
	Short: "Reads the metadata record of an asset",
	RunE:  getFunc,
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "print the record as JSON")
}

func getFunc(cmd *cobra.Command, args []string) error {
	exactArgs(args, 1)
	asset, err := parser.ParseAddress(args[0])
	if err != nil {
		return err
	}
	md, ok, err := newClient().Read(asset)
	if err != nil {
		return err
	}
	if !ok {
		color.Yellow("%s has no metadata record", asset)
		return nil
	}
	if getJSON {
		b, err := json.MarshalIndent(md, "", "  ")
		if err != nil {
			return err
		}
		color.Yellow("%s", b)
		return nil
	}
	client.PrintMetadata(md)
	return nil
}
