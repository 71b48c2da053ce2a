//go:build !linux && !darwin

package serverutils

import (
	"context"
	"net"
)

// WatchDisconnect only propagates parent cancellation on this platform.
func WatchDisconnect(parent context.Context, conn net.Conn) (context.Context, func()) {
	return context.WithCancel(parent)
}
