// Package server implements the HTTP and WebSocket transport for the
// ChatWave realtime backend.
//
// The implementation is organized into specialized files for connection
// management, handshake and REST handlers, routing, origin control, and
// per-connection rate limiting. The presence and fan-out logic itself lives
// in the registry package; this package only moves bytes between clients and
// the registry.
package server
