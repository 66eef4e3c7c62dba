package memprobe

import "fmt"

// WriteBlock8Aligned writes data to a target that only guarantees correct
// behavior for word-aligned bus transfers. If address or len(data) is not
// 4-byte aligned, it performs a read-modify-write:
//  1. Align address down to a 4-byte boundary.
//  2. Read the aligned block from target memory.
//  3. Patch the requested bytes into the aligned buffer.
//  4. Write the whole aligned block back.
//
// Adapted from a 68040/68060 WriteBlock32 alignment technique, retargeted
// from a CPU-specific alignment requirement to the general case of a
// target whose Memory capability only promises aligned transfers.
func WriteBlock8Aligned(m Memory, address uint32, data []byte) error {
	size := uint32(len(data))
	if size == 0 {
		return nil
	}

	addressAlign := address % 4
	if addressAlign == 0 && size%4 == 0 {
		return m.WriteBlock8(address, data)
	}

	adjustedAddress := address - addressAlign
	adjustedSize := size + addressAlign
	if rem := adjustedSize % 4; rem > 0 {
		adjustedSize += 4 - rem
	}

	block := make([]byte, adjustedSize)
	if err := m.ReadBlock8(adjustedAddress, block); err != nil {
		return fmt.Errorf("failed to read block for alignment: %w", err)
	}

	copy(block[addressAlign:], data)

	if err := m.WriteBlock8(adjustedAddress, block); err != nil {
		return fmt.Errorf("failed to write aligned block: %w", err)
	}

	return nil
}
