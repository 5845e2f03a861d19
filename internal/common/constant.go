// Package common contains shared constants, helpers and the error taxonomy
// used across SecureBank client and server components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// session token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RequestIDHeaderName carries a per-call correlation id.
const RequestIDHeaderName = "x-request-id"
