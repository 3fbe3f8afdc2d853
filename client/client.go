// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package client implements "tokenmeta" client SDK.
package client

import (
	"context"
	"time"

	"github.com/ava-labs/avalanchego/utils/rpc"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/manager"
	"github.com/ava-labs/tokenmeta/service"
)

// Client defines tokenmeta client operations.
type Client interface {
	// Pings the daemon.
	Ping() (bool, error)
	// Returns the daemon version and the identity it signs with.
	Version() (*service.VersionReply, error)
	// Polls ping until the daemon answers.
	WaitForReady(ctx context.Context) error

	// Creates an asset and its record.
	Create(a *chain.AssetSpec, r *chain.RecordSpec) (*manager.CreateResult, error)
	// Returns the record of an asset, false if it has none.
	Read(asset solana.PublicKey) (*manager.Metadata, bool, error)
	// Sizes the current record of an asset.
	Layout(asset solana.PublicKey) (*chain.Layout, error)
	// Sizes a record before it is created.
	Estimate(scheme chain.Scheme, decimals uint8, r *chain.RecordSpec) (*chain.Layout, error)

	// Sets a fixed or additional field.
	UpdateField(asset solana.PublicKey, key, value string) (*manager.Confirmation, error)
	// Removes an additional field.
	RemoveField(asset solana.PublicKey, key string) (*manager.Confirmation, error)
	// Mints supply to the holder account of owner (the daemon if nil).
	IssueSupply(asset solana.PublicKey, owner *solana.PublicKey, amount decimal.Decimal) (*manager.Confirmation, error)
}

// New creates a new client object.
func New(uri string, reqTimeout time.Duration) Client {
	req := rpc.NewEndpointRequester(
		uri,
		service.Endpoint,
		service.Name,
		reqTimeout,
	)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

// send issues [method] and maps a failure back onto the chain errors.
func (cli *client) send(method string, args interface{}, reply interface{}) error {
	if err := cli.req.SendRequest(method, args, reply); err != nil {
		return mapError(err)
	}
	return nil
}

func (cli *client) Ping() (bool, error) {
	resp := new(service.PingReply)
	if err := cli.send("ping", nil, resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (cli *client) Version() (*service.VersionReply, error) {
	resp := new(service.VersionReply)
	if err := cli.send("version", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *client) WaitForReady(ctx context.Context) error {
	for {
		ok, err := cli.Ping()
		if err == nil && ok {
			return nil
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			color.Red("daemon not ready %v", err)
			return ctx.Err()
		}
	}
}

func (cli *client) Create(a *chain.AssetSpec, r *chain.RecordSpec) (*manager.CreateResult, error) {
	resp := new(service.CreateReply)
	if err := cli.send(
		"create",
		&service.CreateArgs{Asset: a, Record: r},
		resp,
	); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (cli *client) Read(asset solana.PublicKey) (*manager.Metadata, bool, error) {
	resp := new(service.ReadReply)
	if err := cli.send(
		"read",
		&service.AssetArgs{Asset: asset},
		resp,
	); err != nil {
		return nil, false, err
	}
	return resp.Metadata, resp.Exists, nil
}

func (cli *client) Layout(asset solana.PublicKey) (*chain.Layout, error) {
	resp := new(service.LayoutReply)
	if err := cli.send(
		"layout",
		&service.AssetArgs{Asset: asset},
		resp,
	); err != nil {
		return nil, err
	}
	return resp.Layout, nil
}

func (cli *client) Estimate(scheme chain.Scheme, decimals uint8, r *chain.RecordSpec) (*chain.Layout, error) {
	resp := new(service.LayoutReply)
	if err := cli.send(
		"estimate",
		&service.EstimateArgs{Scheme: scheme, Decimals: decimals, Record: r},
		resp,
	); err != nil {
		return nil, err
	}
	return resp.Layout, nil
}

func (cli *client) UpdateField(asset solana.PublicKey, key, value string) (*manager.Confirmation, error) {
	resp := new(service.ConfirmationReply)
	if err := cli.send(
		"updateField",
		&service.UpdateFieldArgs{Asset: asset, Key: key, Value: value},
		resp,
	); err != nil {
		return nil, err
	}
	return resp.Confirmation, nil
}

func (cli *client) RemoveField(asset solana.PublicKey, key string) (*manager.Confirmation, error) {
	resp := new(service.ConfirmationReply)
	if err := cli.send(
		"removeField",
		&service.RemoveFieldArgs{Asset: asset, Key: key},
		resp,
	); err != nil {
		return nil, err
	}
	return resp.Confirmation, nil
}

func (cli *client) IssueSupply(asset solana.PublicKey, owner *solana.PublicKey, amount decimal.Decimal) (*manager.Confirmation, error) {
	resp := new(service.ConfirmationReply)
	if err := cli.send(
		"issueSupply",
		&service.IssueSupplyArgs{Asset: asset, Owner: owner, Amount: amount},
		resp,
	); err != nil {
		return nil, err
	}
	return resp.Confirmation, nil
}
