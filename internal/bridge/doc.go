// Package bridge connects the gateway to tool server subprocesses.
//
// A Pool keeps a fixed number of MCP client sessions. Each call leases one
// session for exactly one tools/call, so a session never carries two
// requests at once. Sessions are dialed lazily (or up front with Warm),
// discarded when their transport fails or a call times out, and redialed on
// the next lease. Run pings idle sessions periodically and drops the ones
// that no longer answer.
//
// Errors returned by CallTool are one of:
//
//   - *ToolError: the tool ran and reported failure, or the server rejected
//     the request (unknown tool, bad parameters)
//   - ErrTimeout: the handshake or the call exceeded its deadline
//   - ErrTransport: the subprocess could not be started or stopped answering
//   - ErrClosed: the pool was closed
package bridge
