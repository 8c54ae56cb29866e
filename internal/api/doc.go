// Package api implements the HTTP REST API and WebSocket event stream.
//
// This package provides:
//   - REST endpoints to list radios, connect them and read or change component configuration
//   - Raw command passthrough for administrators
//   - Command journal queries
//   - A WebSocket hub relaying fleet events
//
// # Security
//
// With api.auth_required set, every route under /api/v1 except /health needs
// an HS256 bearer token minted with the configured secret. The token's role
// decides which routes answer (see auth.HasPermission). WebSocket clients
// pass the token in the token query parameter.
//
// # Errors
//
// Failures are JSON objects of the form {"status":502,"code":"radio_error","message":"..."}.
// Radio-side failures answer 502, a disconnected radio 409.
package api
