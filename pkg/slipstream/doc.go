// Package slipstream is the application layer: configuration parsing, the
// wired App, the HTTP API and the WebSocket collaboration hub.
package slipstream
