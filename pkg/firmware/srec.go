package firmware

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// SRecLoader loads Motorola SREC format firmware images.
type SRecLoader struct {
	BaseLoader
}

// NewSRecLoader creates an SREC loader.
func NewSRecLoader() *SRecLoader {
	return &SRecLoader{}
}

// Open opens an SREC file.
func (l *SRecLoader) Open(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	l.file = file
	return nil
}

var srecRecord = regexp.MustCompile(`^S([0-9a-fA-F])([0-9a-fA-F]+)`)

// Process reads and parses the SREC file.
// Format: S<type><count><address><data><checksum>. Types: S0=header,
// S1=16-bit addr, S2=24-bit addr, S3=32-bit addr, S7/S8/S9=start address.
func (l *SRecLoader) Process() error {
	if l.file == nil {
		return fmt.Errorf("file not open")
	}
	if l.handler == nil {
		return fmt.Errorf("handler not set")
	}

	scanner := bufio.NewScanner(l.file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}

		matches := srecRecord.FindStringSubmatch(line)
		if matches == nil {
			return fmt.Errorf("invalid SREC format at line %d: %s", lineNum, line)
		}

		recordType, _ := strconv.ParseUint(matches[1], 16, 8)
		hexDigits := matches[2]

		switch recordType {
		case 0, 4, 5, 6, 7, 8, 9:
			continue // header, reserved, count, or start-address records
		case 1:
			if err := l.parseDataRecord(hexDigits, 2, lineNum); err != nil {
				return err
			}
		case 2:
			if err := l.parseDataRecord(hexDigits, 3, lineNum); err != nil {
				return err
			}
		case 3:
			if err := l.parseDataRecord(hexDigits, 4, lineNum); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported SREC type S%d at line %d", recordType, lineNum)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	return nil
}

// parseDataRecord parses an SREC data record whose address field is
// addressBytes long (2 for S1, 3 for S2, 4 for S3).
func (l *SRecLoader) parseDataRecord(hexDigits string, addressBytes int, lineNum int) error {
	if len(hexDigits) < 2+addressBytes*2+2 {
		return fmt.Errorf("SREC record too short at line %d", lineNum)
	}

	addressHex := hexDigits[2 : 2+addressBytes*2]
	address, _ := strconv.ParseUint(addressHex, 16, 32)

	dataStart := 2 + addressBytes*2
	dataEnd := len(hexDigits) - 2
	dataHex := hexDigits[dataStart:dataEnd]

	data, err := hexStringToBytes(dataHex)
	if err != nil {
		return fmt.Errorf("invalid data at line %d: %w", lineNum, err)
	}

	if err := l.handler(uint32(address), data); err != nil {
		return fmt.Errorf("handler failed at line %d: %w", lineNum, err)
	}

	return nil
}
