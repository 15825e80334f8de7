//go:build windows

package udp

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// SO_REUSEADDR lets another process steal the port on Windows, so only broadcast is set
func control(network, address string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}
