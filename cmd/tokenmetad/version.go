// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ava-labs/tokenmeta/version"
)

var errIncompatible = errors.New("incompatible version")

func newVersionCommand() *cobra.Command {
	var against string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Prints out the version",
		Long:  "Prints out the version. With --check, also fails unless a client or daemon at the given version can talk to this build.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version.String())
			if against == "" {
				return nil
			}
			if !version.Compatible(against) {
				return fmt.Errorf("%w: %s", errIncompatible, against)
			}
			fmt.Printf("compatible with %s\n", against)
			return nil
		},
	}
	cmd.Flags().StringVar(&against, "check", "", "version to check compatibility against (vX.Y.Z)")
	return cmd
}
