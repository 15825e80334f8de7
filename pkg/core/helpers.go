package core

import (
	cryptorand "crypto/rand"
	"time"
)

const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
const maxSize = byte(len(digits))

func RandString(size byte) string {
	b := make([]byte, size)
	if _, err := cryptorand.Read(b); err != nil {
		panic(err)
	}
	for i := byte(0); i < size; i++ {
		b[i] = digits[b[i]%maxSize]
	}
	return string(b)
}

var start = time.Now()

// Now90000 - monotonic time in 90 kHz units, wraps like an RTP timestamp
func Now90000() uint32 {
	return uint32(time.Since(start) * ClockRate / time.Second)
}

// Interval converts a rate in Hz to a tick period, zero for non positive rates
func Interval(hz int) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Second / time.Duration(hz)
}
