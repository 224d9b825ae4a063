//go:build unix

package osc

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// socketControl returns a net.ListenConfig control hook that sizes the
// receive buffer before the socket is bound.
func socketControl(readBuffer int) func(network, address string, c syscall.RawConn) error {
	if readBuffer <= 0 {
		return nil
	}
	return func(_, _ string, c syscall.RawConn) error {
		var serr error
		err := c.Control(func(fd uintptr) {
			serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, readBuffer)
		})
		if err != nil {
			return err
		}
		return serr
	}
}
