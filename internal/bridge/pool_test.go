// ABOUTME: Tests for the session pool using in-memory MCP transports
// ABOUTME: Covers success, tool errors, timeouts, respawn and exclusive leasing

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/agent-roster/internal/roster"
	"github.com/2389/agent-roster/internal/store"
	"github.com/2389/agent-roster/internal/tools"
)

// memDialer serves a fresh MCP server per dial over in-memory transports.
type memDialer struct {
	catalogue *tools.Catalogue
	dials     atomic.Int32

	mu       sync.Mutex
	sessions []*mcp.ServerSession
}

func (d *memDialer) Dial(ctx context.Context) (mcp.Transport, error) {
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := tools.NewServer(d.catalogue, "test").Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, err
	}
	d.dials.Add(1)
	d.mu.Lock()
	d.sessions = append(d.sessions, ss)
	d.mu.Unlock()
	return clientTransport, nil
}

// killAll closes every server session, simulating crashed subprocesses.
func (d *memDialer) killAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ss := range d.sessions {
		_ = ss.Close()
	}
	d.sessions = nil
}

func newRosterDialer(t *testing.T) *memDialer {
	t.Helper()
	c, err := tools.NewRosterCatalogue(store.NewMockStore(), roster.BuiltinDefaults(), nil)
	require.NoError(t, err)
	return &memDialer{catalogue: c}
}

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	p, err := NewPool(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNewPool_RequiresDialer(t *testing.T) {
	_, err := NewPool(Config{})
	assert.Error(t, err)
}

func TestNewPool_Defaults(t *testing.T) {
	p := newTestPool(t, Config{Dialer: newRosterDialer(t)})
	assert.Equal(t, DefaultSize, p.Size())
	assert.Equal(t, DefaultCallTimeout, p.cfg.CallTimeout)
	assert.Equal(t, DefaultHandshakeTimeout, p.cfg.HandshakeTimeout)
}

func TestPool_CallTool(t *testing.T) {
	d := newRosterDialer(t)
	p := newTestPool(t, Config{Dialer: d, Size: 2})
	ctx := context.Background()

	msg, err := p.CallTool(ctx, "save_agent", map[string]any{"doc": map[string]any{"name": "scout-1"}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg, "Saved agent: "), msg)

	out, err := p.CallTool(ctx, "list_agents", nil)
	require.NoError(t, err)
	var list []roster.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "scout-1", list[0].Name)

	assert.LessOrEqual(t, d.dials.Load(), int32(2), "sessions are reused")
}

func TestPool_ToolError(t *testing.T) {
	p := newTestPool(t, Config{Dialer: newRosterDialer(t), Size: 1})

	_, err := p.CallTool(context.Background(), "delete_agent", map[string]any{"id": "nonexistent-id"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "delete_agent", toolErr.Tool)
	assert.Contains(t, toolErr.Message, "not found")
}

func TestPool_UnknownToolKeepsSession(t *testing.T) {
	d := newRosterDialer(t)
	p := newTestPool(t, Config{Dialer: d, Size: 1})
	ctx := context.Background()

	_, err := p.CallTool(ctx, "no_such_tool", nil)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)

	_, err = p.CallTool(ctx, "list_agents", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), d.dials.Load())
}

func slowCatalogue(t *testing.T, active, peak *atomic.Int32) *tools.Catalogue {
	t.Helper()
	c := tools.NewCatalogue(nil)
	require.NoError(t, c.RegisterPack(&tools.Pack{ID: "slow", Tools: []*tools.Tool{{
		Name:            "sleep",
		InputSchemaJSON: `{"type":"object","properties":{"ms":{"type":"integer"}}}`,
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				MS int `json:"ms"`
			}
			_ = json.Unmarshal(args, &in)
			if active != nil {
				n := active.Add(1)
				defer active.Add(-1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(in.MS) * time.Millisecond):
				return "done", nil
			}
		},
	}}}))
	return c
}

func TestPool_CallTimeout(t *testing.T) {
	d := &memDialer{catalogue: slowCatalogue(t, nil, nil)}
	p := newTestPool(t, Config{Dialer: d, Size: 1, CallTimeout: 100 * time.Millisecond})

	_, err := p.CallTool(context.Background(), "sleep", map[string]any{"ms": 2000})
	assert.ErrorIs(t, err, ErrTimeout)

	// The timed out session is replaced on the next call.
	out, err := p.CallTool(context.Background(), "sleep", map[string]any{"ms": 1})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(2), d.dials.Load())
}

func TestPool_HandshakeTimeout(t *testing.T) {
	// A dialer that hangs until its deadline, like a child that never starts.
	silent := DialerFunc(func(ctx context.Context) (mcp.Transport, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	p := newTestPool(t, Config{Dialer: silent, Size: 1, HandshakeTimeout: 100 * time.Millisecond})

	_, err := p.CallTool(context.Background(), "list_agents", nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPool_DialFailure(t *testing.T) {
	failing := DialerFunc(func(ctx context.Context) (mcp.Transport, error) {
		return nil, errors.New("exec: no such file")
	})
	p := newTestPool(t, Config{Dialer: failing, Size: 1})

	_, err := p.CallTool(context.Background(), "list_agents", nil)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, p.Ping(context.Background()), ErrTransport)
}

func TestPool_RespawnAfterCrash(t *testing.T) {
	d := newRosterDialer(t)
	p := newTestPool(t, Config{Dialer: d, Size: 1})
	ctx := context.Background()

	_, err := p.CallTool(ctx, "list_agents", nil)
	require.NoError(t, err)

	d.killAll()

	_, err = p.CallTool(ctx, "list_agents", nil)
	assert.ErrorIs(t, err, ErrTransport)

	_, err = p.CallTool(ctx, "list_agents", nil)
	require.NoError(t, err, "next lease redials")
	assert.Equal(t, int32(2), d.dials.Load())
}

func TestPool_OneCallPerSession(t *testing.T) {
	var active, peak atomic.Int32
	d := &memDialer{catalogue: slowCatalogue(t, &active, &peak)}
	p := newTestPool(t, Config{Dialer: d, Size: 2})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.CallTool(context.Background(), "sleep", map[string]any{"ms": 20})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2), "never more calls in flight than sessions")
	assert.LessOrEqual(t, d.dials.Load(), int32(2))
}

func TestPool_WarmAndPing(t *testing.T) {
	d := newRosterDialer(t)
	p := newTestPool(t, Config{Dialer: d, Size: 3})

	require.NoError(t, p.Warm(context.Background()))
	assert.Equal(t, int32(3), d.dials.Load())
	require.NoError(t, p.Ping(context.Background()))
	assert.Equal(t, int32(3), d.dials.Load())
}

func TestPool_HealthCheckDropsDeadSessions(t *testing.T) {
	d := newRosterDialer(t)
	p := newTestPool(t, Config{Dialer: d, Size: 2, HandshakeTimeout: time.Second})
	ctx := context.Background()
	require.NoError(t, p.Warm(ctx))

	d.killAll()
	p.healthCheck(ctx)

	for _, s := range p.all {
		assert.Nil(t, s.current(), "slot %d should be cleared", s.id)
	}
	_, err := p.CallTool(ctx, "list_agents", nil)
	require.NoError(t, err)
}

func TestPool_RunStopsWithContext(t *testing.T) {
	p := newTestPool(t, Config{Dialer: newRosterDialer(t), HealthInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPool_Closed(t *testing.T) {
	p, err := NewPool(Config{Dialer: newRosterDialer(t), Size: 1})
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.CallTool(context.Background(), "list_agents", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPool_CloseDuringCall(t *testing.T) {
	d := &memDialer{catalogue: slowCatalogue(t, nil, nil)}
	p, err := NewPool(Config{Dialer: d, Size: 1})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.CallTool(context.Background(), "sleep", map[string]any{"ms": 300})
		done <- err
	}()

	// Wait until the call holds the only session.
	require.Eventually(t, func() bool { return d.dials.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, p.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight call did not return after Close")
	}
	for _, s := range p.all {
		assert.Nil(t, s.current(), "slot %d should be cleared", s.id)
	}
}

func TestPool_CloseDuringHandshake(t *testing.T) {
	inner := newRosterDialer(t)
	dialing := make(chan struct{})
	proceed := make(chan struct{})
	gated := DialerFunc(func(ctx context.Context) (mcp.Transport, error) {
		close(dialing)
		<-proceed
		return inner.Dial(ctx)
	})
	p, err := NewPool(Config{Dialer: gated, Size: 1})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.CallTool(context.Background(), "list_agents", nil)
		done <- err
	}()

	<-dialing
	require.NoError(t, p.Close())
	close(proceed)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("call did not return")
	}
	assert.Nil(t, p.all[0].current(), "a session finished after Close is not kept")

	inner.mu.Lock()
	defer inner.mu.Unlock()
	require.Len(t, inner.sessions, 1)
	// The server side sees its client go away.
	waitErr := make(chan error, 1)
	go func() { waitErr <- inner.sessions[0].Wait() }()
	select {
	case <-waitErr:
	case <-time.After(2 * time.Second):
		t.Fatal("session dialed after Close was left open")
	}
}
