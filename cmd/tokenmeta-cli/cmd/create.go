// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/client"
	"github.com/ava-labs/tokenmeta/parser"
)

var (
	scheme          string
	decimals        uint8
	name            string
	symbol          string
	metadataURI     string
	fields          []string
	updateAuthority string
	immutable       bool
	sellerFee       uint16
	sharedMetadata  string
	freezeAuthority string
	initialSupply   string
)

var createCmd = &cobra.Command{
	Use:   "create [options]",
	Short: "Creates an asset with its metadata record",
	Long: `
Creates a new asset and its metadata record in one submission.
The daemon identity pays for every account and becomes the mint authority.

# Stores the record inside the asset account.
$ tokenmeta-cli create --name "Solana Summer" --symbol SUMR \
  --uri https://example.com/summer.json --field season=summer

# Stores the record in an account derived from the asset address.
$ tokenmeta-cli create --scheme derived --decimals 6 --name "Solana Summer" \
  --uri https://example.com/summer.json --initial-supply 1000

`,
	RunE: createFunc,
}

func init() {
	createCmd.Flags().StringVar(&scheme, "scheme", chain.CoLocated.String(), `storage scheme: "co-located" or "derived"`)
	createCmd.Flags().Uint8Var(&decimals, "decimals", 0, "decimal places of the asset")
	createCmd.Flags().StringVar(&name, "name", "", "asset name")
	createCmd.Flags().StringVar(&symbol, "symbol", "", "asset symbol")
	createCmd.Flags().StringVar(&metadataURI, "uri", "", "off-chain metadata URI")
	createCmd.Flags().StringArrayVar(&fields, "field", nil, "additional field as key=value (repeatable)")
	createCmd.Flags().StringVar(&updateAuthority, "update-authority", "", "update authority (defaults to the daemon identity)")
	createCmd.Flags().BoolVar(&immutable, "immutable", false, "freeze the record after creation")
	createCmd.Flags().Uint16Var(&sellerFee, "seller-fee", 0, "seller fee in basis points (derived scheme)")
	createCmd.Flags().StringVar(&sharedMetadata, "shared-metadata", "", "point at an existing record account instead of creating one")
	createCmd.Flags().StringVar(&freezeAuthority, "freeze-authority", "", "freeze authority of the asset")
	createCmd.Flags().StringVar(&initialSupply, "initial-supply", "", "supply issued to the daemon identity")
}

func optionalAddress(s string) (*solana.PublicKey, error) {
	if s == "" {
		return nil, nil
	}
	pk, err := parser.ParseAddress(s)
	if err != nil {
		return nil, err
	}
	return &pk, nil
}

func createFunc(cmd *cobra.Command, args []string) error {
	exactArgs(args, 0)
	s, err := chain.ParseScheme(scheme)
	if err != nil {
		return err
	}
	a := &chain.AssetSpec{Decimals: decimals, Scheme: s}
	if a.SharedMetadata, err = optionalAddress(sharedMetadata); err != nil {
		return err
	}
	if a.FreezeAuthority, err = optionalAddress(freezeAuthority); err != nil {
		return err
	}
	if initialSupply != "" {
		if a.InitialSupply, err = parser.ParseAmount(initialSupply); err != nil {
			return err
		}
	} else {
		a.InitialSupply = decimal.Zero
	}

	var r *chain.RecordSpec
	if a.SharedMetadata == nil {
		r = &chain.RecordSpec{
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
	}

	cli := newClient()
	res, err := cli.Create(a, r)
	if err != nil {
		if errors.Is(err, chain.ErrUnknownOutcome) {
			color.Yellow("outcome unknown: read the asset back before retrying")
		}
		return err
	}
	client.PrintCreate(res)
	return nil
}
