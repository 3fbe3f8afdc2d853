// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package service exposes the lifecycle manager over JSON-RPC.
package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/rpc/v2"
	log "github.com/inconshreveable/log15"
	"github.com/shopspring/decimal"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/manager"
	"github.com/ava-labs/tokenmeta/version"
)

const (
	Name     = "tokenmeta"
	Endpoint = "/rpc"
)

var ErrMissingAsset = errors.New("missing asset address")

// PublicService signs every request with the daemon's identity.
type PublicService struct {
	manager *manager.Manager
	id      chain.KeyStore
}

// New returns a service acting as [id].
func New(m *manager.Manager, id chain.KeyStore) *PublicService {
	return &PublicService{manager: m, id: id}
}

// NewHandler returns a JSON-RPC server with [svc] registered as Name.
func NewHandler(svc *PublicService) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json.NewCodec(), "application/json")
	server.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(svc, Name); err != nil {
		return nil, err
	}
	return server, nil
}

type PingReply struct {
	Success bool `json:"success"`
}

func (svc *PublicService) Ping(_ *http.Request, _ *struct{}, reply *PingReply) (err error) {
	log.Info("ping")
	reply.Success = true
	return nil
}

type VersionReply struct {
	Version  string           `json:"version"`
	Identity solana.PublicKey `json:"identity"`
}

func (svc *PublicService) Version(_ *http.Request, _ *struct{}, reply *VersionReply) error {
	reply.Version = version.Version.String()
	reply.Identity = svc.id.Identity()
	return nil
}

type CreateArgs struct {
	Asset  *chain.AssetSpec  `json:"asset"`
	Record *chain.RecordSpec `json:"record,omitempty"`
}

type CreateReply struct {
	Result *manager.CreateResult `json:"result"`
}

func (svc *PublicService) Create(r *http.Request, args *CreateArgs, reply *CreateReply) error {
	res, err := svc.manager.Create(r.Context(), svc.id, args.Asset, args.Record)
	if err != nil {
		if res != nil {
			// Only the error reaches the caller; keep the address in it.
			return fmt.Errorf("%w (asset %s)", err, res.Asset)
		}
		return err
	}
	reply.Result = res
	return nil
}

type AssetArgs struct {
	Asset solana.PublicKey `json:"asset"`
}

func (a *AssetArgs) verify() error {
	if a.Asset.IsZero() {
		return ErrMissingAsset
	}
	return nil
}

type ReadReply struct {
	Exists   bool              `json:"exists"`
	Metadata *manager.Metadata `json:"metadata,omitempty"`
}

func (svc *PublicService) Read(r *http.Request, args *AssetArgs, reply *ReadReply) error {
	if err := args.verify(); err != nil {
		return err
	}
	md, ok, err := svc.manager.Read(r.Context(), args.Asset)
	if err != nil {
		return err
	}
	reply.Exists = ok
	reply.Metadata = md
	return nil
}

type LayoutReply struct {
	Layout *chain.Layout `json:"layout"`
}

func (svc *PublicService) Layout(r *http.Request, args *AssetArgs, reply *LayoutReply) error {
	if err := args.verify(); err != nil {
		return err
	}
	l, err := svc.manager.Layout(r.Context(), args.Asset)
	if err != nil {
		return err
	}
	reply.Layout = l
	return nil
}

type EstimateArgs struct {
	Scheme   chain.Scheme      `json:"scheme"`
	Decimals uint8             `json:"decimals"`
	Record   *chain.RecordSpec `json:"record"`
}

func (svc *PublicService) Estimate(r *http.Request, args *EstimateArgs, reply *LayoutReply) error {
	l, err := svc.manager.EstimateLayout(r.Context(), args.Scheme, args.Decimals, args.Record)
	if err != nil {
		return err
	}
	reply.Layout = l
	return nil
}

type UpdateFieldArgs struct {
	Asset solana.PublicKey `json:"asset"`
	Key   string           `json:"key"`
	Value string           `json:"value"`
}

type ConfirmationReply struct {
	Confirmation *manager.Confirmation `json:"confirmation"`
}

func (svc *PublicService) UpdateField(r *http.Request, args *UpdateFieldArgs, reply *ConfirmationReply) error {
	if args.Asset.IsZero() {
		return ErrMissingAsset
	}
	conf, err := svc.manager.UpdateField(r.Context(), svc.id, args.Asset, args.Key, args.Value)
	if err != nil {
		return err
	}
	reply.Confirmation = conf
	return nil
}

type RemoveFieldArgs struct {
	Asset solana.PublicKey `json:"asset"`
	Key   string           `json:"key"`
}

func (svc *PublicService) RemoveField(r *http.Request, args *RemoveFieldArgs, reply *ConfirmationReply) error {
	if args.Asset.IsZero() {
		return ErrMissingAsset
	}
	conf, err := svc.manager.RemoveField(r.Context(), svc.id, args.Asset, args.Key)
	if err != nil {
		return err
	}
	reply.Confirmation = conf
	return nil
}

type IssueSupplyArgs struct {
	Asset solana.PublicKey `json:"asset"`
	// Defaults to the daemon's identity.
	Owner  *solana.PublicKey `json:"owner,omitempty"`
	Amount decimal.Decimal   `json:"amount"`
}

func (svc *PublicService) IssueSupply(r *http.Request, args *IssueSupplyArgs, reply *ConfirmationReply) error {
	if args.Asset.IsZero() {
		return ErrMissingAsset
	}
	owner := svc.id.Identity()
	if args.Owner != nil {
		owner = *args.Owner
	}
	conf, err := svc.manager.IssueSupply(r.Context(), svc.id, args.Asset, owner, args.Amount)
	if err != nil {
		return err
	}
	reply.Confirmation = conf
	return nil
}
