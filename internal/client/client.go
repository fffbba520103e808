// Package client implements the RADIUS client core: building requests,
// sending them over UDP with retries and a per-attempt timeout, and
// verifying the Response Authenticator of whatever comes back.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/radiusgo/radiusd/internal/radius"
)

// defaultPorts maps each service to its RFC-assigned default port.
var defaultPorts = map[radius.MsgType]uint16{
	radius.MsgAuth: 1812,
	radius.MsgAcct: 1813,
	radius.MsgCoA:  3799,
}

// Option configures optional Client parameters.
type Option func(*Client)

// WithPort overrides the default destination port for one service.
func WithPort(svc radius.MsgType, port uint16) Option {
	return func(c *Client) {
		c.ports[svc] = port
	}
}

// WithRetries overrides the default retry count (3).
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithTimeout overrides the default per-attempt timeout (2s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// Client sends RADIUS requests to a single server and validates its
// replies. A Client is safe for concurrent use; each Send call opens its
// own UDP socket.
type Client struct {
	dict    *radius.Dictionary
	secret  []byte
	server  string
	ports   map[radius.MsgType]uint16
	retries int
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a Client targeting server (host, no port) using secret
// and dict, with the RFC default ports unless overridden by options.
func New(dict *radius.Dictionary, server string, secret []byte, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		dict:    dict,
		secret:  secret,
		server:  server,
		ports:   map[radius.MsgType]uint16{radius.MsgAuth: defaultPorts[radius.MsgAuth], radius.MsgAcct: defaultPorts[radius.MsgAcct], radius.MsgCoA: defaultPorts[radius.MsgCoA]},
		retries: 3,
		timeout: 2 * time.Second,
		logger:  logger.With(slog.String("component", "client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dictionary exposes the client's dictionary for callers building
// attributes via radius.CreateAttributeByName.
func (c *Client) Dictionary() *radius.Dictionary {
	return c.dict
}

// Send transmits pkt to the given service's port, retrying up to
// c.retries times when an attempt times out or fails to send or receive,
// and returns the verified reply packet. A reply whose Response
// Authenticator does not verify is returned as an error at once, without
// a retry. Identifier mismatches are discarded without consuming a retry,
// up to the remaining deadline.
func (c *Client) Send(ctx context.Context, svc radius.MsgType, pkt *radius.Packet) (*radius.Packet, error) {
	raw, err := pkt.ToBytes(c.secret)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	addr := net.JoinHostPort(c.server, fmt.Sprintf("%d", c.ports[svc]))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reply, err := c.attempt(conn, raw, pkt)
		if err == nil {
			return reply, nil
		}
		if errors.Is(err, radius.ErrValidation) {
			return nil, err
		}
		lastErr = err
		c.logger.Debug("attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", c.retries+1, lastErr)
}

// SendAndForget transmits pkt without waiting for a reply, used for
// Accounting-Off / Disconnect-style fire-and-forget flows.
func (c *Client) SendAndForget(svc radius.MsgType, pkt *radius.Packet) error {
	raw, err := pkt.ToBytes(c.secret)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	addr := net.JoinHostPort(c.server, fmt.Sprintf("%d", c.ports[svc]))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	_, err = conn.Write(raw)
	return err
}

// attempt sends raw once and waits up to c.timeout for a matching,
// validated reply, discarding mismatched identifiers within the window.
func (c *Client) attempt(conn net.Conn, raw []byte, req *radius.Packet) (*radius.Packet, error) {
	if _, err := conn.Write(raw); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	deadline := time.Now().Add(c.timeout)
	buf := make([]byte, radius.MaxPacketSize)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}
		n, err := conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}

		reply, err := radius.ParsePacket(buf[:n])
		if err != nil {
			c.logger.Debug("dropping malformed reply", slog.Any("error", err))
			continue
		}
		if reply.Identifier != req.Identifier {
			c.logger.Debug("dropping reply with mismatched identifier",
				slog.Int("want", int(req.Identifier)), slog.Int("got", int(reply.Identifier)))
			continue
		}
		if err := radius.VerifyResponseAuthenticator(buf[:n], req.Authenticator, c.secret); err != nil {
			return nil, fmt.Errorf("verify reply: %w", err)
		}
		return reply, nil
	}
}
