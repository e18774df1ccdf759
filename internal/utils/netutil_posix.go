//go:build !windows

package utils

import (
	"context"
	"fmt"
	"net"
	"syscall"
)

// CheckPortListenable checks if a loopback port is listenable (POSIX implementation)
func CheckPortListenable(port int) bool {
	addr := net.JoinHostPort(LoopbackHost, fmt.Sprintf("%d", port))

	// Disable SO_REUSEADDR so a port in TIME_WAIT counts as taken
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 0)
			})
		},
	}

	l, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return false
	}
	defer l.Close()
	return true
}
