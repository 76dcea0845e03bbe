// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements comprehensive application instrumentation using the Prometheus
client library, exposing metrics for monitoring performance, errors, and system health.

# Overview

The package provides metrics for:
  - API request latency and throughput
  - Database query performance (named duckdb_*)
  - Sync operation statistics
  - Circuit breaker state transitions
  - Tile, geolocation and general cache hit/miss rates
  - WebSocket connection and message counts
  - Dead letter queue, NATS processing and Wrapped report statistics
  - Application info and uptime

All metrics are registered with the default Prometheus registry through
promauto when the package is loaded; there is no separate initialization step.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:3857/metrics

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
    Buckets: .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
  - api_active_requests: Active requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)
    Labels: endpoint

Database Metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)
    Labels: operation, table, error_type (the error text, cut to 50 characters)
  - duckdb_connection_pool_size: Connections in use (gauge)
  - duckdb_spatial_operations_total: Spatial operations (counter)
    Labels: operation_type

Sync Metrics:
  - sync_duration_seconds: Sync operation duration (histogram)
    Buckets: 1, 5, 10, 30, 60, 120, 300, 600
  - sync_records_processed_total: Records processed (counter)
  - sync_errors_total: Failed syncs (counter)
    Labels: error_type (tautulli_api, database, geolocation, other, unknown)
  - sync_last_success_timestamp: Unix timestamp of last successful sync (gauge)
  - sync_batch_size: Records per sync batch (histogram)

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests through the breaker (counter)
    Labels: name, result (success, failure, rejected)
  - circuit_breaker_consecutive_failures: Current consecutive failures (gauge)
    Labels: name
  - circuit_breaker_state_transitions_total: State transitions (counter)
    Labels: name, from_state, to_state

Cache Metrics:
  - cache_hits_total: Cache hits (counter)
    Labels: cache_type
  - cache_misses_total: Cache misses (counter)
    Labels: cache_type
  - cache_evictions_total: Cache evictions (counter)
    Labels: cache_type
  - cache_entries: Current number of cached entries (gauge)
    Labels: cache_type
  - tile_cache_hits_total, tile_cache_misses_total (counters)
  - tile_cache_entries, tile_cache_data_version (gauges)
  - geolocation_cache_hits_total, geolocation_cache_misses_total (counters)

WebSocket Metrics:
  - websocket_connections: Active connections (gauge)
  - websocket_messages_sent_total: Messages sent (counter)
  - websocket_messages_received_total: Messages received (counter)
  - websocket_errors_total: Errors (counter)
    Labels: error_type

Dead letter queue (dlq_*), NATS (nats_*), Wrapped report and application
(app_info, app_uptime_seconds) metrics are also defined; see metrics.go for
the full list.

# Usage Example

Basic setup in main.go:

	import (
	    "github.com/novatune/backend/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    // Metrics are registered when the package is imported.
	    http.Handle("/metrics", promhttp.Handler())

	    // Record metrics
	    metrics.RecordAPIRequest("GET", "/api/v1/stats", "200", 23*time.Millisecond)
	    metrics.RecordDBQuery("select", "tracks", 5*time.Millisecond, nil)
	    metrics.RecordSyncOperation(32*time.Second, 1500, nil)
	}

Recording HTTP metrics with middleware: middleware.PrometheusMetrics wraps a
handler, calls TrackActiveRequest around it and RecordAPIRequest after it.

Recording database query metrics:

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, sql, args...)
	metrics.RecordDBQuery("select", "tracks", time.Since(start), err)

# Prometheus Configuration

Example prometheus.yml configuration:

	scrape_configs:
	  - job_name: 'cartographus'
	    static_configs:
	      - targets: ['localhost:3857']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

# Grafana Dashboards

The metrics support Grafana dashboards with panels for:

  - Request rate (queries per second)
  - Request latency (p50, p95, p99 percentiles)
  - Error rate (errors per second by endpoint)
  - Database query performance (duration distribution)
  - Sync operation statistics (records/sec, duration trends)
  - Circuit breaker state visualization
  - Cache hit rate and efficiency

Example PromQL queries:

	# API request rate
	rate(api_requests_total[5m])

	# API p95 latency
	histogram_quantile(0.95, rate(api_request_duration_seconds_bucket[5m]))

	# Database query rate
	rate(duckdb_query_duration_seconds_count[5m])

	# Cache hit rate
	sum(rate(cache_hits_total[5m])) / (sum(rate(cache_hits_total[5m])) + sum(rate(cache_misses_total[5m])))

	# Sync records per minute
	rate(sync_records_processed_total[1m]) * 60

# Performance Impact

Metrics collection overhead:
  - Counter increment: ~100ns per operation
  - Histogram observation: ~500ns per operation
  - Memory overhead: ~5KB per metric time series
  - Total overhead: <1% CPU, <10MB RAM for typical workloads

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

To prevent high cardinality issues:

  - Endpoint labels are normalized (no query parameters)
  - Status codes are recorded as the full code (200, 404, ...), not grouped
  - Sync error types are limited to predefined constants; database error
    types are the error text cut to 50 characters
  - User-specific labels are avoided

Cardinality per metric grows with:
  - api_requests_total: methods × endpoints × status codes
  - duckdb_query_duration_seconds: operations × tables
  - circuit_breaker_state: one series per breaker name

# Alerting Rules

Example Prometheus alerting rules:

	groups:
	  - name: cartographus
	    rules:
	      - alert: HighErrorRate
	        expr: |
	          sum(rate(api_requests_total{status_code=~"5.."}[5m]))
	          /
	          sum(rate(api_requests_total[5m]))
	          > 0.05
	        for: 5m
	        annotations:
	          summary: "High error rate: {{ $value }}%"

	      - alert: SlowDatabaseQueries
	        expr: |
	          histogram_quantile(0.95,
	            rate(duckdb_query_duration_seconds_bucket[5m]))
	          > 1
	        for: 5m
	        annotations:
	          summary: "p95 query latency: {{ $value }}s"

	      - alert: CircuitBreakerOpen
	        expr: circuit_breaker_state == 2
	        for: 2m
	        annotations:
	          summary: "Circuit breaker open for {{ $labels.name }}"

# Debugging

Enable metrics debugging with LOG_LEVEL=debug:

	# View all registered metrics
	curl http://localhost:3857/metrics | grep "# HELP"

	# Check specific metric
	curl http://localhost:3857/metrics | grep api_requests_total

	# Validate Prometheus format
	promtool check metrics http://localhost:3857/metrics

# Best Practices

When adding new metrics:

 1. Use appropriate metric types:
    - Counter: Monotonically increasing values (requests, errors)
    - Gauge: Point-in-time values (connections, queue size)
    - Histogram: Distribution of values (latency, size)

 2. Choose descriptive names:
    - Use underscore separation: http_request_duration_seconds
    - Include units: _seconds, _bytes, _total
    - Follow Prometheus naming conventions

 3. Add helpful documentation:
    - Include HELP text describing the metric
    - Document all label dimensions
    - Specify units in metric name

 4. Minimize cardinality:
    - Avoid high-cardinality labels (user IDs, timestamps)
    - Normalize endpoint paths
    - Use fixed error type constants

 5. Test performance impact:
    - Benchmark metric recording overhead
    - Monitor memory usage with many time series
    - Validate scrape duration <1s

# See Also

  - internal/middleware: HTTP middleware with metrics integration
  - https://prometheus.io/docs/practices/naming/: Metric naming conventions
  - https://prometheus.io/docs/practices/instrumentation/: Instrumentation guide
*/
package metrics
