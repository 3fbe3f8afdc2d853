// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/client"
	"github.com/ava-labs/tokenmeta/parser"
)

var layoutCmd = &cobra.Command{
	Use:   "layout [options] <asset>",
	Short: "Sizes the current metadata record of an asset",
	RunE:  layoutFunc,
}

var estimateCmd = &cobra.Command{
	Use:   "estimate [options]",
	Short: "Sizes a metadata record before it is created",
	Long: `
Takes the same record flags as create.

$ tokenmeta-cli estimate --name "Solana Summer" --uri https://example.com/summer.json

`,
	RunE: estimateFunc,
}

func init() {
	estimateCmd.Flags().AddFlagSet(createCmd.Flags())
}

func layoutFunc(cmd *cobra.Command, args []string) error {
	exactArgs(args, 1)
	asset, err := parser.ParseAddress(args[0])
	if err != nil {
		return err
	}
	l, err := newClient().Layout(asset)
	if err != nil {
		return err
	}
	client.PrintLayout(l)
	return nil
}

func estimateFunc(cmd *cobra.Command, args []string) error {
	exactArgs(args, 0)
	s, err := chain.ParseScheme(scheme)
	if err != nil {
		return err
	}
	r := &chain.RecordSpec{
		Name:                 name,
		Symbol:               symbol,
		URI:                  metadataURI,
		Immutable:            immutable,
		SellerFeeBasisPoints: sellerFee,
	}
	if r.UpdateAuthority, err = optionalAddress(updateAuthority); err != nil {
		return err
	}
	for _, f := range fields {
		kv, err := parser.ParseField(f)
		if err != nil {
			return err
		}
		r.AdditionalFields = append(r.AdditionalFields, kv)
	}
	l, err := newClient().Estimate(s, decimals, r)
	if err != nil {
		return err
	}
	client.PrintLayout(l)
	return nil
}
