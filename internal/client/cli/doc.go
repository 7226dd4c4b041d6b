// Package cli provides the interactive authkeeper command-line client.
//
// It wires configuration, the gRPC client and an interactive REPL. A
// background watcher pings the server and shows whether it is reachable.
//
// Commands:
//   - signup / login / logout
//   - reissue: trade the refresh token for a new pair
//   - ping
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
