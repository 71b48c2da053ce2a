//go:build linux || darwin

package serverutils

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpPair(t *testing.T) (server, client net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()
	client, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server = <-accepted
	require.NotNil(t, server)
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return server, client
}

func TestWatchDisconnect_CancelsWhenPeerCloses(t *testing.T) {
	server, client := tcpPair(t)

	ctx, stop := WatchDisconnect(context.Background(), server)
	defer stop()

	require.NoError(t, client.Close())
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after peer closed")
	}
}

func TestWatchDisconnect_StopLeavesPendingBytes(t *testing.T) {
	server, client := tcpPair(t)

	ctx, stop := WatchDisconnect(context.Background(), server)
	_, err := client.Write([]byte("x"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, ctx.Err())

	stop()

	buf := make([]byte, 1)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(time.Second)))
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "x", string(buf[:n]))
}

func TestWatchDisconnect_NonSocketConn(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	ctx, stop := WatchDisconnect(context.Background(), a)
	assert.NoError(t, ctx.Err())
	stop()
	assert.Error(t, ctx.Err())
}
