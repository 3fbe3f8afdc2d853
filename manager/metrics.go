// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/tokenmeta/chain"
)

const (
	outcomeConfirmed = "confirmed"
	outcomeRejected  = "rejected"
	outcomeConflict  = "conflict"
	outcomeUnknown   = "unknown"
	outcomeError     = "error"
)

type metrics struct {
	submissions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenmeta_submissions_total",
			Help: "Atomic submissions by public operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tokenmeta_submission_duration_seconds",
			Help:    "Time from submission to confirmation or rejection.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"operation"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.submissions, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observe(operation string, start time.Time, err error) {
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	m.submissions.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeConfirmed
	case errors.Is(err, chain.ErrConflict):
		return outcomeConflict
	case errors.Is(err, chain.ErrSubmissionFailed):
		return outcomeRejected
	case errors.Is(err, chain.ErrUnknownOutcome):
		return outcomeUnknown
	default:
		return outcomeError
	}
}
