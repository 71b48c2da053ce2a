//go:build linux || darwin

package serverutils

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

// WatchDisconnect returns a context that is cancelled when the peer closes conn
// while the handler is still working. The socket is only peeked, so pipelined
// request bytes stay in place for the server. stop must be called before the
// handler returns; it clears the read deadline it used to end the watch.
func WatchDisconnect(parent context.Context, conn net.Conn) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sc, ok := conn.(syscall.Conn)
	if !ok {
		return ctx, cancel
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return ctx, cancel
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 1)
		_ = raw.Read(func(fd uintptr) bool {
			n, _, err := syscall.Recvfrom(int(fd), buf, syscall.MSG_PEEK|syscall.MSG_DONTWAIT)
			switch {
			case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EINTR):
				return false
			case err != nil, n == 0:
				cancel()
			}
			return true
		})
	}()

	return ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
		<-done
		_ = conn.SetReadDeadline(time.Time{})
		cancel()
	}
}
