// Package metrics provides Prometheus instrumentation for gifcut.
//
// All metrics are prefixed with "gifcut_" and registered on the default
// registry at init time.
//
// # Metric Categories
//
// HTTP:
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// Conversions:
//   - ConversionsTotal by source and outcome category
//   - ConversionDuration by source
//   - ConversionsInProgress
//   - TierRendersTotal by tier, TierFallbacksTotal
//   - ArtifactBytes
//
// Remote cache:
//   - RemoteCacheHits, RemoteFetchesTotal by status
//
// Retention:
//   - SweepRunsTotal, SweepDeletedTotal and SweepErrorsTotal by directory
package metrics
