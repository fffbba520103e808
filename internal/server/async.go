package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/radiusgo/radiusd/internal/radius"
)

// RunAsync drives the server with one goroutine per socket, each running
// a blocking ReadFromUDP loop and dispatching synchronously to its
// handler before reading again, so each socket handles one datagram at a
// time. Unlike RunSync's shared epoll instance, each socket's read loop
// is independent: handlers for different sockets can run at the same
// time.
//
// RunAsync returns when ctx is canceled or any socket hits a fatal error;
// a canceled context makes all three read loops exit via their socket's
// deadline, never leaving one running alone.
func (s *Server) RunAsync(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for svc, conn := range s.conns {
		svc, conn := svc, conn
		g.Go(func() error {
			return s.serveSocket(ctx, svc, conn)
		})
	}

	return g.Wait()
}

func (s *Server) serveSocket(ctx context.Context, svc radius.MsgType, conn *net.UDPConn) error {
	buf := make([]byte, radius.MaxPacketSize)
	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Unix(0, 0))
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			return err
		}

		reply := s.dispatch(ctx, svc, append([]byte(nil), buf[:n]...), src)
		if reply == nil {
			continue
		}
		if _, err := conn.WriteToUDP(reply, src); err != nil {
			s.logger.Warn("write reply failed", slog.String("service", svc.String()), slog.Any("error", err))
		}
	}
}
