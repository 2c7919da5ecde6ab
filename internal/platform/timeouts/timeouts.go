// Package timeouts defines shared timeout constants used across the server.
// Centralizing these values prevents drift between components and makes the
// durations discoverable.
package timeouts

import "time"

// StorageWrite caps the time a game session waits for a durable write
// before the operation is treated as failed and retryable by the caller.
const StorageWrite = 5 * time.Second

// PublishRetryBase is the initial backoff between event publish retries.
const PublishRetryBase = 200 * time.Millisecond

// PublishRetryCap bounds the backoff between event publish retries.
const PublishRetryCap = 5 * time.Second

// SessionGrace is how long an ended game session stays resident before the
// registry evicts it.
const SessionGrace = 30 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second
