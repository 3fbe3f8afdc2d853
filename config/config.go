// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the daemon configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "TOKENMETA"

	LedgerRPC    = "rpc"
	LedgerMemory = "memory"

	ConfigFileKey      = "config-file"
	HTTPHostKey        = "http-host"
	HTTPPortKey        = "http-port"
	LedgerKey          = "ledger"
	RPCEndpointKey     = "rpc-endpoint"
	RPCRateLimitKey    = "rpc-rate-limit"
	RPCBurstKey        = "rpc-burst"
	PollIntervalKey    = "poll-interval"
	ConfirmTimeoutKey  = "confirm-timeout"
	ConflictRetriesKey = "conflict-retries"
	PrivateKeyFileKey  = "private-key-file"
	LogLevelKey        = "log-level"
	LogFileKey         = "log-file"
	MemoryAirdropKey   = "memory-airdrop"
)

var (
	ErrUnknownLedger   = errors.New("unknown ledger")
	ErrMissingEndpoint = errors.New("rpc ledger requires an endpoint")
	ErrInvalidConfig   = errors.New("invalid config")
)

type Config struct {
	HTTPHost string `json:"httpHost"`
	HTTPPort uint16 `json:"httpPort"`

	// "rpc" submits to a cluster, "memory" keeps an in-process ledger.
	Ledger         string        `json:"ledger"`
	RPCEndpoint    string        `json:"rpcEndpoint"`
	RPCRateLimit   float64       `json:"rpcRateLimit"`
	RPCBurst       int           `json:"rpcBurst"`
	PollInterval   time.Duration `json:"pollInterval"`
	ConfirmTimeout time.Duration `json:"confirmTimeout"`

	ConflictRetries int `json:"conflictRetries"`

	// Created on first start when missing.
	PrivateKeyFile string `json:"privateKeyFile"`

	LogLevel string `json:"logLevel"`
	// Empty logs to stderr.
	LogFile string `json:"logFile"`

	// Lamports credited to the daemon identity by the memory ledger.
	MemoryAirdrop uint64 `json:"memoryAirdrop"`
}

func (c *Config) SetDefaults() {
	c.HTTPHost = "127.0.0.1"
	c.HTTPPort = 9660

	c.Ledger = LedgerRPC
	c.RPCEndpoint = "http://127.0.0.1:8899"
	c.RPCRateLimit = 10
	c.RPCBurst = 20
	c.PollInterval = 500 * time.Millisecond
	c.ConfirmTimeout = 60 * time.Second

	c.ConflictRetries = 2

	c.PrivateKeyFile = ".tokenmeta-pk"

	c.LogLevel = "info"

	c.MemoryAirdrop = 100_000_000_000
}

func (c *Config) Validate() error {
	switch c.Ledger {
	case LedgerRPC:
		if c.RPCEndpoint == "" {
			return ErrMissingEndpoint
		}
		if c.RPCRateLimit <= 0 || c.RPCBurst <= 0 {
			return fmt.Errorf("%w: rate limit %v burst %d", ErrInvalidConfig, c.RPCRateLimit, c.RPCBurst)
		}
		if c.PollInterval <= 0 {
			return fmt.Errorf("%w: poll interval %v", ErrInvalidConfig, c.PollInterval)
		}
	case LedgerMemory:
	default:
		return fmt.Errorf("%w %q", ErrUnknownLedger, c.Ledger)
	}
	if c.ConfirmTimeout < 0 {
		return fmt.Errorf("%w: confirm timeout %v", ErrInvalidConfig, c.ConfirmTimeout)
	}
	if c.ConflictRetries < 0 {
		return fmt.Errorf("%w: conflict retries %d", ErrInvalidConfig, c.ConflictRetries)
	}
	if c.PrivateKeyFile == "" {
		return fmt.Errorf("%w: missing private key file", ErrInvalidConfig)
	}
	if _, err := log.LvlFromString(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Addr is the address the daemon listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

// AddFlags defines every config key on [fs] with its default.
func AddFlags(fs *pflag.FlagSet) {
	var d Config
	d.SetDefaults()
	fs.String(ConfigFileKey, "", "config file (any format viper reads)")
	fs.String(HTTPHostKey, d.HTTPHost, "HTTP listen host")
	fs.Uint16(HTTPPortKey, d.HTTPPort, "HTTP listen port")
	fs.String(LedgerKey, d.Ledger, `ledger backend: "rpc" or "memory"`)
	fs.String(RPCEndpointKey, d.RPCEndpoint, "cluster JSON-RPC endpoint")
	fs.Float64(RPCRateLimitKey, d.RPCRateLimit, "cluster requests per second")
	fs.Int(RPCBurstKey, d.RPCBurst, "cluster request burst")
	fs.Duration(PollIntervalKey, d.PollInterval, "confirmation poll interval")
	fs.Duration(ConfirmTimeoutKey, d.ConfirmTimeout, "timeout for submission and confirmation")
	fs.Int(ConflictRetriesKey, d.ConflictRetries, "resubmissions of field updates after a conflict")
	fs.String(PrivateKeyFileKey, d.PrivateKeyFile, "private key file path")
	fs.String(LogLevelKey, d.LogLevel, "log level")
	fs.String(LogFileKey, d.LogFile, "log file, rotated; empty for stderr")
	fs.Uint64(MemoryAirdropKey, d.MemoryAirdrop, "lamports the memory ledger credits to the daemon")
}

// NewViper returns a viper reading [fs] and TOKENMETA_* variables.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

// Load reads the config from [v], including the config file it names.
func Load(v *viper.Viper) (*Config, error) {
	if f := v.GetString(ConfigFileKey); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	c := &Config{}
	c.SetDefaults()
	set := func(key string, f func()) {
		if v.IsSet(key) {
			f()
		}
	}
	set(HTTPHostKey, func() { c.HTTPHost = v.GetString(HTTPHostKey) })
	set(HTTPPortKey, func() { c.HTTPPort = uint16(v.GetUint(HTTPPortKey)) })
	set(LedgerKey, func() { c.Ledger = v.GetString(LedgerKey) })
	set(RPCEndpointKey, func() { c.RPCEndpoint = v.GetString(RPCEndpointKey) })
	set(RPCRateLimitKey, func() { c.RPCRateLimit = v.GetFloat64(RPCRateLimitKey) })
	set(RPCBurstKey, func() { c.RPCBurst = v.GetInt(RPCBurstKey) })
	set(PollIntervalKey, func() { c.PollInterval = v.GetDuration(PollIntervalKey) })
	set(ConfirmTimeoutKey, func() { c.ConfirmTimeout = v.GetDuration(ConfirmTimeoutKey) })
	set(ConflictRetriesKey, func() { c.ConflictRetries = v.GetInt(ConflictRetriesKey) })
	set(PrivateKeyFileKey, func() { c.PrivateKeyFile = v.GetString(PrivateKeyFileKey) })
	set(LogLevelKey, func() { c.LogLevel = v.GetString(LogLevelKey) })
	set(LogFileKey, func() { c.LogFile = v.GetString(LogFileKey) })
	set(MemoryAirdropKey, func() { c.MemoryAirdrop = v.GetUint64(MemoryAirdropKey) })
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
