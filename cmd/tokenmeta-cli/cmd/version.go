// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ava-labs/tokenmeta/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints out the CLI and daemon versions",
	RunE:  versionFunc,
}

func versionFunc(cmd *cobra.Command, args []string) error {
	fmt.Printf("%s-cli@%s\n", version.Name, version.Version)
	v, err := newClient().Version()
	if err != nil {
		color.Red("cannot reach daemon at %s: %v", uri, err)
		return nil
	}
	fmt.Printf("%s@%s (identity %s)\n", version.Name, v.Version, v.Identity)
	if !version.Compatible(v.Version) {
		color.Yellow("daemon version is not compatible with this CLI")
	}
	return nil
}
