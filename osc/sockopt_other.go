//go:build !unix

package osc

import "syscall"

// socketControl is a no-op where golang.org/x/sys/unix is unavailable; the OS default buffer is kept.
func socketControl(int) func(network, address string, c syscall.RawConn) error {
	return nil
}
