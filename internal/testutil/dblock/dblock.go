// Package dblock serializes test packages that share the same database.
// Holding a localhost TCP port is a cross-process mutex that needs no
// external coordination.
package dblock

import (
	"net"
	"time"
)

const lockAddr = "127.0.0.1:45433"

func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
