// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// "tokenmetad" serves the token metadata lifecycle manager over JSON-RPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/config"
	"github.com/ava-labs/tokenmeta/keystore"
	"github.com/ava-labs/tokenmeta/manager"
	"github.com/ava-labs/tokenmeta/memledger"
	"github.com/ava-labs/tokenmeta/rpcledger"
	"github.com/ava-labs/tokenmeta/service"
)

const shutdownTimeout = 10 * time.Second

func init() {
	log.Root().SetHandler(log.LvlFilterHandler(log.LvlInfo, log.StreamHandler(os.Stderr, log.LogfmtFormat())))
}

var rootCmd = &cobra.Command{
	Use:        "tokenmetad",
	Short:      "Token metadata daemon",
	SuggestFor: []string{"tokenmetad", "tokenmeta-daemon"},
	RunE:       runFunc,
}

func init() {
	cobra.EnablePrefixMatching = true
}

func init() {
	config.AddFlags(rootCmd.Flags())
	rootCmd.AddCommand(
		newVersionCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tokenmetad failed %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func runFunc(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(c)
	if err != nil {
		return err
	}
	defer closeLog()

	id, err := loadOrCreateKey(c.PrivateKeyFile)
	if err != nil {
		return err
	}
	ledger, err := newLedger(c, id)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	m, err := manager.New(ledger,
		manager.WithConfirmTimeout(c.ConfirmTimeout),
		manager.WithConflictRetries(c.ConflictRetries),
		manager.WithRegisterer(reg),
	)
	if err != nil {
		return err
	}
	h, err := service.NewHandler(service.New(m, id))
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              c.Addr(),
		Handler:           service.NewRouter(h, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() {
		log.Info("serving",
			"addr", c.Addr(),
			"ledger", c.Ledger,
			"identity", id.Identity(),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func setupLogging(c *config.Config) (func(), error) {
	lvl, err := log.LvlFromString(c.LogLevel)
	if err != nil {
		return nil, err
	}
	var w io.Writer = os.Stderr
	closer := func() {}
	if c.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		w = lj
		closer = func() { _ = lj.Close() }
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(w, log.LogfmtFormat())))
	return closer, nil
}

func loadOrCreateKey(path string) (*keystore.Key, error) {
	k, err := keystore.Load(path)
	if err == nil {
		return k, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if k, err = keystore.New(); err != nil {
		return nil, err
	}
	if err := k.Save(path); err != nil {
		return nil, err
	}
	log.Info("created new identity", "path", path, "identity", k.Identity())
	return k, nil
}

func newLedger(c *config.Config, id chain.KeyStore) (chain.Ledger, error) {
	switch c.Ledger {
	case config.LedgerMemory:
		l := memledger.New()
		if err := l.Airdrop(id.Identity(), c.MemoryAirdrop); err != nil {
			return nil, err
		}
		return l, nil
	case config.LedgerRPC:
		return rpcledger.New(c.RPCEndpoint,
			rpcledger.WithPollInterval(c.PollInterval),
			rpcledger.WithRateLimit(c.RPCRateLimit, c.RPCBurst),
		), nil
	default:
		return nil, fmt.Errorf("%w %q", config.ErrUnknownLedger, c.Ledger)
	}
}
