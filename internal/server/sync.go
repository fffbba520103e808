//go:build linux

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/radiusgo/radiusd/internal/radius"
)

// Fixed epoll tokens for the three sockets: AUTH_SOCKET=0, ACCT_SOCKET=1,
// COA_SOCKET=2.
const (
	authToken = 0
	acctToken = 1
	coaToken  = 2
)

// RunSync drives the server with a single OS-level readiness poller
// (epoll) registered on all three sockets, fixed-token dispatch, and an
// inner per-socket loop that drains datagrams until EAGAIN. Any socket
// error other than EAGAIN/EWOULDBLOCK is fatal and returned to the
// caller; per-datagram errors are handled by Server.dispatch and never
// escape the loop. RunSync returns when ctx is canceled.
func (s *Server) RunSync(ctx context.Context) error {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	type regEntry struct {
		svc radius.MsgType
		fd  int
	}
	fds := make(map[int]regEntry)
	for svc, token := range map[radius.MsgType]int{radius.MsgAuth: authToken, radius.MsgAcct: acctToken, radius.MsgCoA: coaToken} {
		conn, ok := s.conns[svc]
		if !ok {
			continue
		}
		fd, err := socketFD(conn)
		if err != nil {
			return fmt.Errorf("get fd for %s: %w", svc, err)
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(token)}); err != nil {
			return fmt.Errorf("epoll_ctl add %s: %w", svc, err)
		}
		fds[token] = regEntry{svc: svc, fd: fd}
	}

	events := make([]unix.EpollEvent, len(fds))
	buf := make([]byte, 65536)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(epfd, events, 500)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			entry, ok := fds[int(events[i].Fd)]
			if !ok {
				continue
			}
			if err := s.drainSocket(ctx, entry.svc, entry.fd, buf); err != nil {
				return err
			}
		}
	}
}

// drainSocket reads datagrams from fd until it would block, dispatching
// each one; any error besides EAGAIN/EWOULDBLOCK is fatal.
func (s *Server) drainSocket(ctx context.Context, svc radius.MsgType, fd int, buf []byte) error {
	for {
		n, from, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
				return nil
			}
			return fmt.Errorf("recvfrom %s: %w", svc, err)
		}

		src := sockaddrToUDPAddr(from)
		reply := s.dispatch(ctx, svc, append([]byte(nil), buf[:n]...), src)
		if reply == nil {
			continue
		}
		if err := unix.Sendto(fd, reply, 0, from); err != nil {
			s.logger.Warn("sendto failed", slog.String("service", svc.String()), slog.Any("error", err))
		}
	}
}

func socketFD(conn *net.UDPConn) (int, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	ctrlErr := raw.Control(func(f uintptr) { fd = int(f) })
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	// Sockets created by net.ListenUDP are non-blocking in Go's runtime
	// netpoller; dup'ing the fd here would hand epoll a descriptor whose
	// blocking mode must be set explicitly, since net's own netpoller
	// does not cooperate with an external epoll instance.
	if err := unix.SetNonblock(fd, true); err != nil {
		return 0, err
	}
	return fd, nil
}

func sockaddrToUDPAddr(sa unix.Sockaddr) *net.UDPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return &net.UDPAddr{}
	}
}
