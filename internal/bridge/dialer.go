// ABOUTME: Dialers that produce MCP transports for pooled sessions
// ABOUTME: CommandDialer spawns the tool server binary with stdio pipes

package bridge

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Dialer creates the transport for a new session.
type Dialer interface {
	Dial(ctx context.Context) (mcp.Transport, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (mcp.Transport, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context) (mcp.Transport, error) {
	return f(ctx)
}

// CommandDialer starts a tool server subprocess per session.
type CommandDialer struct {
	Path string
	Args []string
	// Env is appended to the gateway's own environment.
	Env []string
	// Stderr receives the child's logs. Defaults to os.Stderr.
	Stderr io.Writer
}

// Dial implements Dialer. The process is started by the transport when the
// session connects and lives until the session is closed, independent of ctx.
func (d *CommandDialer) Dial(ctx context.Context) (mcp.Transport, error) {
	path, err := exec.LookPath(d.Path)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(path, d.Args...)
	cmd.Env = append(os.Environ(), d.Env...)
	cmd.Stderr = d.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return &mcp.CommandTransport{Command: cmd}, nil
}
