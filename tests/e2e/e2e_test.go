// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// e2e implements the e2e tests against running daemons.
package e2e_test

import (
	"context"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	ginkgo "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/ava-labs/tokenmeta/chain"
	"github.com/ava-labs/tokenmeta/client"
)

func TestE2e(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "tokenmeta e2e test suites")
}

var (
	requestTimeout time.Duration
	endpoints      string
	scheme         string
)

func init() {
	flag.DurationVar(
		&requestTimeout,
		"request-timeout",
		120*time.Second,
		"timeout for submission and confirmation",
	)
	flag.StringVar(
		&endpoints,
		"endpoints",
		"",
		"comma separated daemon URIs; the suite is skipped when empty",
	)
	flag.StringVar(
		&scheme,
		"scheme",
		chain.CoLocated.String(),
		"storage scheme of the created asset",
	)
}

type instance struct {
	uri string
	cli client.Client
}

var instances []instance

var _ = ginkgo.BeforeSuite(func() {
	if endpoints == "" {
		ginkgo.Skip("no --endpoints given")
	}
	for _, uri := range strings.Split(endpoints, ",") {
		cli := client.New(uri, requestTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		err := cli.WaitForReady(ctx)
		cancel()
		gomega.Ω(err).Should(gomega.BeNil())
		instances = append(instances, instance{uri: uri, cli: cli})
	}
	color.Blue("connected to %d daemons", len(instances))
})

var _ = ginkgo.Describe("[Lifecycle]", ginkgo.Ordered, func() {
	var asset solana.PublicKey

	ginkgo.It("creates an asset on the first daemon", func() {
		s, err := chain.ParseScheme(scheme)
		gomega.Ω(err).Should(gomega.BeNil())
		res, err := instances[0].cli.Create(
			&chain.AssetSpec{Decimals: 2, Scheme: s, InitialSupply: decimal.NewFromInt(10)},
			&chain.RecordSpec{Name: "Solana Summer", Symbol: "SUMR", URI: "https://ipfs.io/ipfs/QmSummer"},
		)
		gomega.Ω(err).Should(gomega.BeNil())
		asset = res.Asset
		color.Green("created %s on %s", asset, instances[0].uri)
	})

	ginkgo.It("reads it from every daemon", func() {
		for _, inst := range instances {
			md, ok, err := inst.cli.Read(asset)
			gomega.Ω(err).Should(gomega.BeNil())
			gomega.Ω(ok).Should(gomega.BeTrue())
			gomega.Ω(md.Record.Name).Should(gomega.Equal("Solana Summer"))
			gomega.Ω(md.Supply).Should(gomega.Equal(uint64(1000)))
		}
	})

	ginkgo.It("updates the uri", func() {
		_, err := instances[0].cli.UpdateField(asset, chain.FieldURI, "https://ipfs.io/ipfs/QmWinter")
		gomega.Ω(err).Should(gomega.BeNil())

		md, _, err := instances[0].cli.Read(asset)
		gomega.Ω(err).Should(gomega.BeNil())
		gomega.Ω(md.Record.URI).Should(gomega.Equal("https://ipfs.io/ipfs/QmWinter"))
	})
})
