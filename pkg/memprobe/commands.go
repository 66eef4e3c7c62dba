// Package memprobe implements the debug probe's memory capability as a
// byte-oriented request/response exchange over a connection.Connection
// (serial or TCP).
//
// The wire protocol/framing here is a concrete implementation this bridge
// needs to be runnable end to end. It is grounded in the reference
// DebugPort.transfer wire format, generalized from a 24-bit address field
// to the 32-bit ARM address space.
package memprobe

import "time"

// Probe command bytes.
const (
	CMDRead32      = 0x00 // Read a 32-bit word
	CMDWrite32     = 0x01 // Write a 32-bit word
	CMDReadBlock8  = 0x02 // Read a block of bytes
	CMDWriteBlock8 = 0x03 // Write a block of bytes
)

// Sync bytes framing each packet.
const (
	RequestSyncByte  = 0x55
	ResponseSyncByte = 0xAA
)

// DefaultReadTimeout is a nominal response timeout. Prober.transfer does not
// apply it: how long a transfer waits for the response sync byte is set by
// the underlying connection's own read timeout.
const DefaultReadTimeout = 5 * time.Second
