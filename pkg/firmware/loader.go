// Package firmware parses firmware images (Intel HEX, Motorola SREC) and
// drives their address/data records into target RAM through a Memory
// capability, for the CLI's image-load command.
//
// The Loader/BaseLoader shape and the hex-string-to-bytes helper are kept
// in the spirit of a retro-computer firmware loader package, while the
// machine-specific loaders (PGX/PGZ/WDC, 6502/680x0 vector tables) are
// dropped — ARM firmware images only ever arrive as Intel HEX or SREC, and
// this bridge's Memory capability is a flat 32-bit address space rather
// than a segmented retro-computer memory map.
package firmware

import (
	"fmt"
	"os"
)

// WriteHandler receives one parsed address/data block as a loader scans a
// firmware image; LoadFile connects this to a target Memory's block write.
type WriteHandler func(address uint32, data []byte) error

// Loader is the common shape of a firmware image format reader.
type Loader interface {
	Open(filename string) error
	Close() error
	SetHandler(handler WriteHandler)
	Process() error
}

// BaseLoader provides the file handle and handler storage shared by every
// format-specific loader.
type BaseLoader struct {
	file    *os.File
	handler WriteHandler
}

// SetHandler sets the callback invoked for each parsed block.
func (b *BaseLoader) SetHandler(handler WriteHandler) {
	b.handler = handler
}

// Close closes the underlying file, if open.
func (b *BaseLoader) Close() error {
	if b.file != nil {
		return b.file.Close()
	}
	return nil
}

func hexStringToBytes(hexStr string) ([]byte, error) {
	if len(hexStr)%2 != 0 {
		return nil, fmt.Errorf("hex string length must be even")
	}

	out := make([]byte, len(hexStr)/2)
	for i := 0; i < len(hexStr); i += 2 {
		var b byte
		if _, err := fmt.Sscanf(hexStr[i:i+2], "%02x", &b); err != nil {
			return nil, fmt.Errorf("invalid hex at position %d: %w", i, err)
		}
		out[i/2] = b
	}
	return out, nil
}
