// Package ws implements the live reading stream for the dashboard.
//
// Hub manages a set of connected clients and pushes the wearable's current
// reading to all of them on a configurable interval (stream.interval, default
// 5s). The dashboard uses it alongside its polling of the current-data API.
//
// New(source, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker; it blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// reading immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event":   "reading",
//	  "data":    { /* same schema as GET /api/current-data */ },
//	  "sent_at": "2026-01-02T09:00:00Z"
//	}
//
// The upgrader accepts all origins. The endpoint is mounted at /ws/stream.
package ws
