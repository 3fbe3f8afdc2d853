// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// "tokenmeta-cli" implements tokenmeta client operation interface.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ava-labs/tokenmeta/client"
	"github.com/ava-labs/tokenmeta/version"
)

var (
	privateKeyFile string
	uri            string
	requestTimeout time.Duration
	verbose        bool

	rootCmd = &cobra.Command{
		Use:        "tokenmeta-cli",
		Short:      "Token metadata CLI",
		SuggestFor: []string{"tokenmeta-cli", "tokenmetacli", "tokenmetactl"},
	}
)

func init() {
	cobra.EnablePrefixMatching = true
	rootCmd.AddCommand(
		createKeyCmd,
		createCmd,
		getCmd,
		setCmd,
		removeCmd,
		mintCmd,
		layoutCmd,
		estimateCmd,
		versionCmd,
	)

	rootCmd.PersistentFlags().StringVar(
		&privateKeyFile,
		"private-key-file",
		".tokenmeta-pk",
		"private key file path",
	)
	rootCmd.PersistentFlags().StringVar(
		&uri,
		"endpoint",
		"http://127.0.0.1:9660",
		"RPC endpoint for the daemon",
	)
	rootCmd.PersistentFlags().DurationVar(
		&requestTimeout,
		"request-timeout",
		90*time.Second,
		"timeout for submission and confirmation",
	)
	rootCmd.PersistentFlags().BoolVar(
		&verbose,
		"verbose",
		false,
		"Print verbose information about operations",
	)
}

func Execute() error {
	return rootCmd.Execute()
}

// newClient returns a client for the daemon, warning when its version
// does not match this build.
func newClient() client.Client {
	cli := client.New(uri, requestTimeout)
	if verbose {
		v, err := cli.Version()
		if err != nil {
			color.Red("cannot get daemon version %v", err)
			return cli
		}
		color.Blue("daemon %s signing as %s", v.Version, v.Identity)
		if !version.Compatible(v.Version) {
			color.Yellow("daemon %s may not be compatible with %s", v.Version, version.Version)
		}
	}
	return cli
}

func exactArgs(args []string, n int) {
	if len(args) != n {
		fmt.Fprintf(os.Stderr, "expected %d arguments, got %d\n", n, len(args))
		os.Exit(128)
	}
}
