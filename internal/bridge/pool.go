// ABOUTME: Fixed-size pool of MCP client sessions with lease-per-call semantics
// ABOUTME: Handles lazy dialing, failure classification, respawn and health checks

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Defaults applied by NewPool to zero Config fields.
const (
	DefaultSize             = 4
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultCallTimeout      = 30 * time.Second
	DefaultHealthInterval   = 30 * time.Second
)

// Config configures a Pool.
type Config struct {
	Dialer           Dialer
	Size             int
	HandshakeTimeout time.Duration
	CallTimeout      time.Duration
	HealthInterval   time.Duration
	ClientName       string
	ClientVersion    string
	Logger           *slog.Logger
}

// slot is one pooled session. The leaseholder dials and uses the session;
// mu guards the field because Close clears slots that are leased.
type slot struct {
	id int

	mu      sync.Mutex
	session *mcp.ClientSession
}

func (s *slot) current() *mcp.ClientSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Pool leases MCP sessions to callers, one call per session at a time.
type Pool struct {
	cfg    Config
	client *mcp.Client
	logger *slog.Logger

	slots     chan *slot
	all       []*slot
	closed    chan struct{}
	closeOnce sync.Once
	closing   sync.WaitGroup
}

// NewPool creates a pool. No session is dialed until first use or Warm.
func NewPool(cfg Config) (*Pool, error) {
	if cfg.Dialer == nil {
		return nil, errors.New("bridge: dialer is required")
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = DefaultHealthInterval
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "agent-roster-gateway"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		cfg:    cfg,
		client: mcp.NewClient(&mcp.Implementation{Name: cfg.ClientName, Version: cfg.ClientVersion}, nil),
		logger: logger.With("component", "bridge"),
		slots:  make(chan *slot, cfg.Size),
		closed: make(chan struct{}),
	}
	for i := range cfg.Size {
		s := &slot{id: i}
		p.all = append(p.all, s)
		p.slots <- s
	}
	return p, nil
}

// Size returns the number of sessions the pool holds.
func (p *Pool) Size() int {
	return p.cfg.Size
}

// CallTool runs one tool call on a leased session and returns its text.
// The whole operation, including any redial, is bounded by the call timeout.
func (p *Pool) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	s, err := p.lease(ctx)
	if err != nil {
		return "", err
	}
	defer p.release(s)

	session, err := p.ensure(ctx, s)
	if err != nil {
		return "", err
	}

	if args == nil {
		args = map[string]any{}
	}
	start := time.Now()
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", p.classify(ctx, s, session, name, err)
	}

	text := resultText(res)
	if res.IsError {
		p.logger.Debug("tool reported error", "tool", name, "slot", s.id, "error", text)
		return "", &ToolError{Tool: name, Message: text}
	}
	p.logger.Debug("tool call", "tool", name, "slot", s.id, "duration", time.Since(start))
	return text, nil
}

// classify turns a failed CallTool into ErrTimeout, ErrTransport or a
// ToolError. A session that times out or stops answering pings is dropped.
func (p *Pool) classify(ctx context.Context, s *slot, session *mcp.ClientSession, name string, err error) error {
	if p.isClosed() {
		return fmt.Errorf("%w: %s interrupted", ErrClosed, name)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		p.logger.Warn("tool call timed out", "tool", name, "slot", s.id, "timeout", p.cfg.CallTimeout)
		p.discard(s)
		return fmt.Errorf("%w: %s after %s", ErrTimeout, name, p.cfg.CallTimeout)
	}

	pctx, cancel := context.WithTimeout(context.Background(), p.cfg.HandshakeTimeout)
	defer cancel()
	if perr := session.Ping(pctx, nil); perr != nil {
		p.logger.Error("tool session lost", "tool", name, "slot", s.id, "error", err)
		p.discard(s)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return &ToolError{Tool: name, Message: err.Error()}
}

// Ping checks that one session can be leased, dialed and pinged.
func (p *Pool) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.HandshakeTimeout)
	defer cancel()

	s, err := p.lease(ctx)
	if err != nil {
		return err
	}
	defer p.release(s)

	session, err := p.ensure(ctx, s)
	if err != nil {
		return err
	}
	if err := session.Ping(ctx, nil); err != nil {
		p.discard(s)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Warm dials every idle session. It returns the first dial error but keeps
// going so that as many sessions as possible are ready.
func (p *Pool) Warm(ctx context.Context) error {
	var first error
	for range p.cfg.Size {
		s, err := p.lease(ctx)
		if err != nil {
			return err
		}
		if _, err := p.ensure(ctx, s); err != nil && first == nil {
			first = err
		}
		// Put s at the back so the next lease picks a different slot.
		p.release(s)
	}
	return first
}

// Run pings idle sessions every health interval until ctx is done or the
// pool is closed.
func (p *Pool) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.closed:
			return nil
		case <-ticker.C:
			p.healthCheck(ctx)
		}
	}
}

func (p *Pool) healthCheck(ctx context.Context) {
	for range p.cfg.Size {
		var s *slot
		select {
		case s = <-p.slots:
		default:
			return
		}
		if session := s.current(); session != nil {
			pctx, cancel := context.WithTimeout(ctx, p.cfg.HandshakeTimeout)
			if err := session.Ping(pctx, nil); err != nil {
				p.logger.Warn("dropping unhealthy tool session", "slot", s.id, "error", err)
				p.discard(s)
			}
			cancel()
		}
		p.release(s)
	}
}

// Close shuts down every session, including ones with a call in flight,
// and waits for the subprocesses to exit. Interrupted calls fail with
// ErrClosed.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
		for _, s := range p.all {
			p.discard(s)
		}
	})
	p.closing.Wait()
	return nil
}

func (p *Pool) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *Pool) lease(ctx context.Context) (*slot, error) {
	select {
	case <-p.closed:
		return nil, ErrClosed
	default:
	}
	select {
	case s := <-p.slots:
		return s, nil
	case <-p.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: waiting for a free tool session", ErrTimeout)
		}
		return nil, ctx.Err()
	}
}

func (p *Pool) release(s *slot) {
	p.slots <- s
}

// ensure returns the slot's session, dialing one if it has none. A session
// that finishes its handshake after Close is closed instead of kept.
func (p *Pool) ensure(ctx context.Context, s *slot) (*mcp.ClientSession, error) {
	if session := s.current(); session != nil {
		return session, nil
	}
	if p.isClosed() {
		return nil, ErrClosed
	}

	hctx, cancel := context.WithTimeout(ctx, p.cfg.HandshakeTimeout)
	defer cancel()

	transport, err := p.cfg.Dialer.Dial(hctx)
	if err == nil {
		var session *mcp.ClientSession
		session, err = p.client.Connect(hctx, transport, nil)
		if err == nil {
			s.mu.Lock()
			if p.isClosed() {
				s.mu.Unlock()
				_ = session.Close()
				return nil, ErrClosed
			}
			s.session = session
			s.mu.Unlock()
			p.logger.Info("tool session started", "slot", s.id)
			return session, nil
		}
	}
	if errors.Is(hctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: handshake after %s", ErrTimeout, p.cfg.HandshakeTimeout)
	}
	p.logger.Error("starting tool session", "slot", s.id, "error", err)
	return nil, fmt.Errorf("%w: %v", ErrTransport, err)
}

// discard clears the slot and closes its session in the background.
// closing.Add runs under the slot lock; Close visits every slot before Wait.
func (p *Pool) discard(s *slot) {
	s.mu.Lock()
	session := s.session
	s.session = nil
	if session != nil {
		p.closing.Add(1)
	}
	s.mu.Unlock()
	if session == nil {
		return
	}
	go func() {
		defer p.closing.Done()
		if err := session.Close(); err != nil {
			p.logger.Debug("closing tool session", "slot", s.id, "error", err)
		}
	}()
}

func resultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) == 0 && res.IsError {
		return "tool execution failed"
	}
	return strings.Join(parts, "\n")
}
