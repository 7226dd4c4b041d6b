// Package client contains the client side of authkeeper.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface):
//     Signup, Login, Reissue, Logout and Ping.
//  2. A concrete gRPC implementation (see GRPCClient) that manages a
//     connection, keeps the token pair returned by Login, injects the access
//     token via an interceptor, transparently reissues expired access tokens,
//     and maps gRPC status codes to sentinel errors.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrAlreadyExists,
// ErrInvalidArgument, ErrNotLoggedIn.
//
// Concurrency & Contexts
//
// GRPCClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation/timeouts.
package client
