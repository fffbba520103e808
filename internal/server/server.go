// Package server implements the RADIUS server core: a builder that
// binds three UDP sockets (authentication, accounting,
// change-of-authorization), admission-controls datagrams by source
// address, and dispatches each to a per-service handler. Two event-loop
// drivers are provided over the same Server value: Sync (an OS-level
// readiness loop, see sync.go) and Async (one goroutine per socket, see
// async.go).
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/radiusgo/radiusd/internal/metrics"
	"github.com/radiusgo/radiusd/internal/radius"
)

// Handler processes one decoded request and returns the raw bytes of the
// reply datagram to send back, or an error. A handler error causes the
// request to be dropped silently: no reply is sent and the loop
// continues.
type Handler func(ctx context.Context, req *Request) ([]byte, error)

// Request is the read-only capability a Handler receives: the raw
// datagram, its source address, and a view onto the server's dictionary
// and reply-building helpers. Handlers never see the full *Server, only
// this narrower surface, which avoids a handler/server reference cycle.
type Request struct {
	Raw    []byte
	Source *net.UDPAddr
	Dict   *radius.Dictionary

	secret []byte
}

// Reply builds the raw bytes of a reply packet to this request's
// datagram, computing the Response Authenticator from the original
// Request Authenticator.
func (r *Request) Reply(code radius.Code, identifier uint8, attrs []*radius.Attribute) ([]byte, error) {
	pkt, err := radius.NewReplyPacket(code, identifier, attrs, r.Raw)
	if err != nil {
		return nil, err
	}
	return pkt.ToBytes(r.secret)
}

// HostSecrets maps a source IP (no port) to its shared secret, allowing
// distinct secrets per NAS the way real deployments configure them. A
// single-secret deployment supplies one entry per allowed host, all
// mapping to the same secret.
type HostSecrets map[string][]byte

// Builder assembles a Server. Fields are set with With* methods and the
// server is created with Build.
type Builder struct {
	dict     *radius.Dictionary
	bindAddr string
	hosts    HostSecrets
	ports    map[radius.MsgType]uint16
	handlers map[radius.MsgType]Handler
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		ports:    make(map[radius.MsgType]uint16),
		handlers: make(map[radius.MsgType]Handler),
	}
}

// WithDictionary sets the attribute dictionary every handler sees.
func (b *Builder) WithDictionary(d *radius.Dictionary) *Builder {
	b.dict = d
	return b
}

// WithBindAddr sets the local address the three sockets bind to (e.g.
// "0.0.0.0" or "::").
func (b *Builder) WithBindAddr(addr string) *Builder {
	b.bindAddr = addr
	return b
}

// WithSecret configures a single shared secret for every allowed host.
func (b *Builder) WithSecret(hosts []string, secret []byte) *Builder {
	b.hosts = make(HostSecrets, len(hosts))
	for _, h := range hosts {
		b.hosts[h] = secret
	}
	return b
}

// WithHostSecrets configures a distinct shared secret per source host.
func (b *Builder) WithHostSecrets(hosts HostSecrets) *Builder {
	b.hosts = hosts
	return b
}

// WithLogger sets the logger handlers and the event loop log through.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetrics attaches a Collector the server increments as datagrams
// are received, dropped, rejected, and replied to. Optional: a nil
// Collector (the default) disables instrumentation.
func (b *Builder) WithMetrics(c *metrics.Collector) *Builder {
	b.metrics = c
	return b
}

// AddProtocolPort assigns the UDP port a service listens on.
func (b *Builder) AddProtocolPort(svc radius.MsgType, port uint16) *Builder {
	b.ports[svc] = port
	return b
}

// AddProtocolHandler assigns the handler invoked for a service's
// datagrams.
func (b *Builder) AddProtocolHandler(svc radius.MsgType, h Handler) *Builder {
	b.handlers[svc] = h
	return b
}

// Build binds one UDP socket for each service given a port with
// AddProtocolPort and returns a ready Server. Binding failure for any
// socket is returned immediately; no partial Server is produced.
func (b *Builder) Build() (*Server, error) {
	if b.dict == nil {
		return nil, fmt.Errorf("server: no dictionary configured")
	}
	if len(b.hosts) == 0 {
		return nil, fmt.Errorf("server: no allowed hosts configured")
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "server"))

	s := &Server{
		dict:     b.dict,
		hosts:    b.hosts,
		handlers: b.handlers,
		logger:   logger,
		metrics:  b.metrics,
		conns:    make(map[radius.MsgType]*net.UDPConn, 3),
	}

	for svc, port := range b.ports {
		conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(orAny(b.bindAddr)), Port: int(port)})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("bind %s port %d: %w", svc, port, err)
		}
		s.conns[svc] = conn
	}
	return s, nil
}

func orAny(addr string) string {
	if addr == "" {
		return "0.0.0.0"
	}
	return addr
}

// Server owns the three bound UDP sockets, the dictionary, the
// per-service handlers, and the host allow-list. It never mutates the
// dictionary or allow-list after construction, so it is safe to share
// read-only across the event-loop goroutines that drive it.
type Server struct {
	dict     *radius.Dictionary
	hosts    HostSecrets
	handlers map[radius.MsgType]Handler
	logger   *slog.Logger
	metrics  *metrics.Collector
	conns    map[radius.MsgType]*net.UDPConn
}

// Dictionary returns the server's attribute dictionary.
func (s *Server) Dictionary() *radius.Dictionary {
	return s.dict
}

// HostAllowed reports whether source (an IP string, no port) is in the
// allow-list.
func (s *Server) HostAllowed(source string) bool {
	_, ok := s.hosts[source]
	return ok
}

// secretFor returns the shared secret configured for source, or nil if
// the host is not allowed.
func (s *Server) secretFor(source string) []byte {
	return s.hosts[source]
}

// LocalAddr returns the bound local address of svc's socket, or nil if
// that service was never configured with AddProtocolPort. Useful for
// discovering the actual port after binding to port 0.
func (s *Server) LocalAddr(svc radius.MsgType) net.Addr {
	conn, ok := s.conns[svc]
	if !ok {
		return nil
	}
	return conn.LocalAddr()
}

// Close releases all bound sockets. Safe to call more than once.
func (s *Server) Close() error {
	var firstErr error
	for _, conn := range s.conns {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// dispatch implements the common per-datagram logic shared by the sync
// and async drivers: admission control, parse, handle, and return the
// reply bytes the handler produced. Any per-datagram failure is logged
// and the datagram is dropped; nil is returned in that case so the
// caller's loop simply continues.
func (s *Server) dispatch(ctx context.Context, svc radius.MsgType, buf []byte, src *net.UDPAddr) []byte {
	log := s.logger.With(slog.String("service", svc.String()), slog.String("source", src.String()))
	svcName := svc.String()

	host := src.IP.String()
	secret := s.secretFor(host)
	if secret == nil {
		log.Warn("rejecting datagram from disallowed host")
		if s.metrics != nil {
			s.metrics.IncHostRejected(host)
		}
		return nil
	}

	if s.metrics != nil {
		s.metrics.IncReceived(svcName)
	}

	if _, err := radius.ParsePacket(buf); err != nil {
		log.Warn("dropping malformed packet", slog.Any("error", err))
		if s.metrics != nil {
			s.metrics.IncDropped(svcName)
		}
		return nil
	}

	handler, ok := s.handlers[svc]
	if !ok {
		log.Warn("no handler registered for service")
		if s.metrics != nil {
			s.metrics.IncDropped(svcName)
		}
		return nil
	}

	req := &Request{Raw: buf, Source: src, Dict: s.dict, secret: secret}
	reply, err := handler(ctx, req)
	if err != nil {
		log.Warn("handler error, dropping request", slog.Any("error", err))
		if s.metrics != nil {
			s.metrics.IncDropped(svcName)
		}
		return nil
	}
	if s.metrics != nil && reply != nil {
		s.metrics.IncSent(svcName)
	}
	return reply
}
