// Package metrics exposes the dashboard's Prometheus collectors: store call
// counts and latency, HTTP requests per route, live-stream clients, degraded
// history reads and fired alerts. Everything lives on a private registry
// served by Handler.
package metrics
