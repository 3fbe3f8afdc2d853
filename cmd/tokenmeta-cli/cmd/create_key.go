// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ava-labs/tokenmeta/keystore"
)

var createKeyCmd = &cobra.Command{
	Use:   "create-key [options]",
	Short: "Creates a new key in the default location",
	Long: `
Creates a new key in the default location.
It will error if the key file already exists.
Start the daemon with the same --private-key-file to sign with it.

$ tokenmeta-cli create-key

`,
	RunE: createKeyFunc,
}

func createKeyFunc(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(privateKeyFile); err == nil {
		// Already found, remind the user they have it
		k, err := keystore.Load(privateKeyFile)
		if err != nil {
			return err
		}
		color.Green("ABORTING!!! key for %s already exists at %s", k.Identity(), privateKeyFile)
		return os.ErrExist
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	k, err := keystore.New()
	if err != nil {
		return err
	}
	if err := k.Save(privateKeyFile); err != nil {
		return err
	}
	color.Green("created address %s and saved to %s", k.Identity(), privateKeyFile)
	return nil
}
