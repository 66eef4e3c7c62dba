package firmware

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/daschewie/cm4gdbridge/pkg/memprobe"
)

// ForPath selects a Loader by the firmware image's file extension.
func ForPath(path string) (Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex":
		return NewIntelHexLoader(), nil
	case ".srec", ".s19", ".s28", ".s37", ".mot":
		return NewSRecLoader(), nil
	default:
		return nil, fmt.Errorf("unrecognized firmware image extension %q", filepath.Ext(path))
	}
}

// LoadFile parses the firmware image at path and writes each record into
// target memory, word-aligning writes via WriteBlock8Aligned. It returns
// the CRC32 (ZIP polynomial) of all bytes written, for the caller to report
// or compare against a release manifest.
func LoadFile(path string, target memprobe.Memory) (uint32, error) {
	loader, err := ForPath(path)
	if err != nil {
		return 0, err
	}

	if err := loader.Open(path); err != nil {
		return 0, err
	}
	defer loader.Close()

	crc := uint32(0)
	loader.SetHandler(func(address uint32, data []byte) error {
		crc = accumulateCRC32(crc, data)
		return memprobe.WriteBlock8Aligned(target, address, data)
	})

	if err := loader.Process(); err != nil {
		return 0, fmt.Errorf("loading %s: %w", path, err)
	}

	return crc, nil
}

// accumulateCRC32 extends a running CRC32 (ZIP/IEEE polynomial) across
// successive blocks, since firmware images are processed one record at a
// time rather than as a single buffer.
func accumulateCRC32(crc uint32, data []byte) uint32 {
	const poly = 0xEDB88320
	crc = ^crc
	for _, b := range data {
		crc ^= uint32(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
	}
	return ^crc
}
