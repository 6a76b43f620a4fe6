package slackwire

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vovakirdan/slackwire-go/slackwire/api"
	"github.com/vovakirdan/slackwire-go/slackwire/internal"

	"github.com/coder/websocket"
)

// Client holds the real-time connection and the Web API client for one account.
type Client struct {
	cfg        Config
	logger     Logger
	api        *api.Client
	conn       *internal.Conn
	writeCh    chan map[string]any
	dispatcher Dispatcher
	nextID     atomic.Int64

	mu        sync.Mutex
	connected bool
	cancel    context.CancelFunc
	state     ConnectionState
	onState   func(StateEvent)
	self      string
	router    *Router
}

// NewClient constructs a client with provided config.
// Use DefaultConfig() or LoadConfig() as a starting point.
func NewClient(cfg Config) *Client {
	ac := api.NewClient(cfg.APIURL)
	ac.SetToken(cfg.Token)
	ac.SetRateLimit(cfg.APIRate, cfg.APIBurst)
	return &Client{
		cfg:     cfg,
		logger:  noopLogger{},
		api:     ac,
		writeCh: make(chan map[string]any, 16),
		self:    cfg.Self,
	}
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// API returns the Web API client.
func (c *Client) API() *api.Client { return c.api }

// Self returns the account's user id, known after Connect when not configured.
func (c *Client) Self() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnMessage registers callback for message events.
func (c *Client) OnMessage(fn func(WireMessage)) { c.dispatcher.SetOnMessage(fn) }

// OnTyping registers callback for user_typing events.
func (c *Client) OnTyping(fn func(TypingEvent)) { c.dispatcher.SetOnTyping(fn) }

// OnError registers callback for errors.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// OnStateChange registers callback for connection state changes.
func (c *Client) OnStateChange(fn func(StateEvent)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// Route sends message and typing events to r and lets r use this client
// for API calls and typing notifications. Call it before Connect.
func (c *Client) Route(r *Router) {
	c.mu.Lock()
	c.router = r
	self := c.self
	c.mu.Unlock()

	r.SetAPI(c.api)
	r.SetRTM(c)
	if self != "" {
		r.SetSelf(self)
	}
	c.OnMessage(func(msg WireMessage) { _ = r.HandleMessage(msg) })
	c.OnTyping(func(ev TypingEvent) { r.HandleTyping(ev.User, ev.Channel) })
}

// Connect resolves the RTM url when none is configured, dials it and starts
// internal loops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return NewError(ErrorConnection, "already connected")
	}
	c.mu.Unlock()
	c.setState(StateConnecting, nil)

	wsURL := c.cfg.URL
	if wsURL == "" {
		resp, err := c.api.ConnectRTM(ctx)
		if err != nil {
			se := fromCallError(err)
			c.setState(StateError, se)
			return se
		}
		wsURL = resp.URL
		c.learnSelf(resp.Self.ID)
		c.logger.Info("rtm url resolved", map[string]any{"team": resp.Team.Domain, "self": resp.Self.Name})
	}
	u, err := url.Parse(wsURL)
	if err != nil || u.Host == "" {
		se := WrapError(ErrorInvalidConfig, "bad rtm url", err)
		c.setState(StateError, se)
		return se
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		se := WrapError(ErrorConnection, "dial rtm", err)
		c.setState(StateError, se)
		return se
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout)
	c.cancel = cancel
	c.connected = true
	c.mu.Unlock()
	c.dispatcher.SetOnHello(func() { c.logger.Info("rtm hello", nil) })

	// Connected must be reported before the loops can report a drop.
	c.setState(StateConnected, nil)
	go c.readLoop(runCtx)
	go c.writeLoop(runCtx)
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(runCtx)
	}
	return nil
}

func (c *Client) learnSelf(id string) {
	c.mu.Lock()
	if c.self == "" {
		c.self = id
	}
	self, r := c.self, c.router
	c.mu.Unlock()
	if r != nil {
		r.SetSelf(self)
	}
}

// Send queues an RTM frame of the given type. It implements RTMSender.
func (c *Client) Send(ctx context.Context, typ string, fields map[string]any) error {
	frame := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		frame[k] = v
	}
	frame["id"] = c.nextID.Add(1)
	frame["type"] = typ
	return c.send(ctx, frame)
}

// Close shuts down client and closes WebSocket.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.connected = false
	conn := c.conn
	c.mu.Unlock()
	c.setState(StateClosed, nil)
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

func (c *Client) send(ctx context.Context, frame map[string]any) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return NewError(ErrorNotConnected, "not connected")
	}

	select {
	case c.writeCh <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) setState(s ConnectionState, err error) {
	c.mu.Lock()
	old := c.state
	c.state = s
	fn := c.onState
	c.mu.Unlock()
	if fn != nil && old != s {
		fn(StateEvent{OldState: old, NewState: s, Error: err})
	}
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		frame, err := c.conn.ReadFrame(ctx)
		if err != nil {
			if isExpectedDisconnect(ctx, err) {
				return
			}
			c.logger.Warn("read loop exit", map[string]any{"error": err.Error()})
			c.disconnect(WrapError(ErrorDisconnected, "read error", err))
			return
		}
		c.dispatcher.Dispatch(frame)
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case frame := <-c.writeCh:
			if err := c.conn.Write(ctx, frame); err != nil {
				if isExpectedDisconnect(ctx, err) {
					return
				}
				c.logger.Warn("write loop exit", map[string]any{"error": err.Error()})
				c.disconnect(WrapError(ErrorConnection, "write error", err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// disconnect tears down a connection the peer dropped. Only the first
// caller reports it; Close wins over both loops.
func (c *Client) disconnect(se *SlackError) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.mu.Unlock()

	_ = conn.CloseNow()
	c.dispatcher.fireError(se)
	c.setState(StateDisconnected, se)
}

// pingLoop keeps reads inside ReadTimeout on quiet connections; the server
// answers every ping with a pong frame.
func (c *Client) pingLoop(ctx context.Context) {
	t := time.NewTicker(c.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := c.Send(ctx, outboundPing, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// isExpectedDisconnect reports errors caused by our own Close. A peer
// closing the socket, even with a normal status, is a disconnect.
func isExpectedDisconnect(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}
