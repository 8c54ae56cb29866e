// Package auth issues and validates the bearer tokens of the sdrlink API.
//
// Tokens are HS256 JWTs carrying one of three roles. Viewers read state,
// operators change configuration, admins may also send raw commands. There
// is no user store: tokens are minted offline with `sdrlink -token`.
package auth
