// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"github.com/fatih/color"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/manager"
)

func PrintCreate(res *manager.CreateResult) {
	color.Green("created asset %s (scheme=%s)", res.Asset, res.Location.Scheme)
	color.Blue("record account %s owned by %s", res.Location.Address, res.Location.Program)
	PrintLayout(res.Layout)
	if res.Confirmation != nil {
		printSubmission(res.Confirmation)
	}
}

func PrintMetadata(md *manager.Metadata) {
	r := md.Record
	color.Green("asset %s (scheme=%s)", md.Location.Asset, md.Location.Scheme)
	color.Blue("name=%q symbol=%q uri=%q", r.Name, r.Symbol, r.URI)
	for _, f := range r.AdditionalFields {
		color.Blue("  %s=%q", f.Key, f.Value)
	}
	if r.UpdateAuthority == nil {
		color.Yellow("immutable record")
	} else {
		color.Blue("update authority %s", r.UpdateAuthority)
	}
	if r.Legacy != nil {
		color.Blue("seller fee=%dbp mutable=%t", r.Legacy.SellerFeeBasisPoints, r.Legacy.IsMutable)
	}
	color.Blue("decimals=%d supply=%d", md.Decimals, md.Supply)
	if md.MintAuthority == nil {
		color.Yellow("fixed supply")
	} else {
		color.Blue("mint authority %s", md.MintAuthority)
	}
	color.Blue("record account %s: %d bytes, %d lamports", md.Location.Address, md.Size, md.Balance)
}

func PrintLayout(l *chain.Layout) {
	if l == nil {
		return
	}
	color.Blue(
		"layout (scheme=%s): base=%d payload=%d total=%d minimum balance=%d asset balance=%d",
		l.Scheme, l.BaseSize, l.PayloadSize, l.TotalSize, l.MinimumBalance, l.AssetBalance,
	)
}

func PrintConfirmation(c *manager.Confirmation) {
	switch {
	case c.NewField:
		color.Green("added new field")
	case c.Removed:
		color.Green("removed field")
	}
	if c.TopUp > 0 {
		color.Yellow("topped up record account with %d lamports", c.TopUp)
	}
	if c.Holder != nil {
		if c.HolderCreated {
			color.Yellow("created holder account %s", c.Holder)
		}
		color.Green("issued supply to %s", c.Holder)
	}
	if c.ID == "" {
		color.Yellow("nothing to submit")
		return
	}
	printSubmission(&c.Confirmation)
}

func printSubmission(c *chain.Confirmation) {
	color.Green("confirmed %s (slot=%d, operations=%d)", c.ID, c.Slot, c.Operations)
}
