//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package udp

import (
	"syscall"
)

func control(network, address string, c syscall.RawConn) error {
	return nil
}
