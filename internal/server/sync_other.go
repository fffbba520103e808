//go:build !linux

package server

import (
	"context"
	"errors"
)

// errSyncUnsupported is returned by RunSync on platforms without an
// epoll-based readiness poller; only RunAsync is available there.
var errSyncUnsupported = errors.New("server: sync driver requires linux (epoll)")

// RunSync is unavailable outside linux; see sync.go for the real
// epoll-backed implementation.
func (s *Server) RunSync(ctx context.Context) error {
	return errSyncUnsupported
}
