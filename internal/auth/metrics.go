// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StatusSuccess labels a successful operation. Failures are labelled with
// their ErrorKind.
const StatusSuccess = "success"

// OperationsTotal counts service operations by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var OperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authlib_operations_total",
		Help: "Total number of auth service operations by operation and status",
	},
	[]string{"operation", "status"},
)

// OperationDuration observes service operation latency.
// Use RegisterMetrics to register this with a Prometheus registry.
var OperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "authlib_operation_duration_seconds",
		Help:    "Auth service operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// TokenCleanupFailures counts reset tokens that could not be cleared after a
// successful password reset.
var TokenCleanupFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "authlib_token_cleanup_failures_total",
		Help: "Total number of failed best-effort reset token clears",
	},
)

// RegisterMetrics registers auth metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(OperationsTotal)
	reg.MustRegister(OperationDuration)
	reg.MustRegister(TokenCleanupFailures)
}

// RecordOperation records the outcome and latency of one operation.
func RecordOperation(operation string, result Result, duration time.Duration) {
	status := StatusSuccess
	if !result.Succeeded {
		status = string(result.Kind)
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
