package memprobe

import (
	"encoding/binary"
	"fmt"

	"github.com/daschewie/cm4gdbridge/pkg/connection"
)

// Memory is the capability the Cortex-M4 debug engine is built on: 32-bit
// and block byte read/write against the target address space.
type Memory interface {
	Read32(addr uint32) (uint32, error)
	Write32(addr uint32, value uint32) error
	ReadBlock8(addr uint32, buf []byte) error
	WriteBlock8(addr uint32, data []byte) error
}

// Prober implements Memory over a connection.Connection using a
// sync-byte-framed, LRC-checksummed request/response protocol.
//
// Request packet format (8-byte header + data + 1-byte LRC):
//
//	[0x55][CMD][ADDR_3]...[ADDR_0][LEN_HI][LEN_LO][...DATA...][LRC]
//
// Response packet format:
//
//	[0xAA][STATUS0][STATUS1][...DATA...][LRC]
type Prober struct {
	conn    connection.Connection
	status0 byte
	status1 byte
}

// NewProber creates a Prober bound to an already-open connection.
func NewProber(conn connection.Connection) *Prober {
	return &Prober{conn: conn}
}

// Status returns the two status bytes from the last transfer.
func (p *Prober) Status() (byte, byte) {
	return p.status0, p.status1
}

func (p *Prober) transfer(command byte, address uint32, data []byte, readLength int) ([]byte, error) {
	p.status0 = 0
	p.status1 = 0

	length := readLength
	if len(data) > 0 {
		length = len(data)
	}
	if length > 0xFFFF {
		return nil, fmt.Errorf("transfer length %d exceeds 16-bit length field", length)
	}

	header := make([]byte, 8)
	header[0] = RequestSyncByte
	header[1] = command
	binary.BigEndian.PutUint32(header[2:6], address)
	binary.BigEndian.PutUint16(header[6:8], uint16(length))

	lrc := byte(0)
	for i := 0; i < 8; i++ {
		lrc ^= header[i]
	}
	for _, b := range data {
		lrc ^= b
	}

	packet := make([]byte, 0, len(header)+len(data)+1)
	packet = append(packet, header...)
	packet = append(packet, data...)
	packet = append(packet, lrc)

	written, err := p.conn.Write(packet)
	if err != nil {
		return nil, fmt.Errorf("failed to write packet: %w", err)
	}
	if written != len(packet) {
		return nil, fmt.Errorf("incomplete write: wrote %d bytes, expected %d", written, len(packet))
	}

	syncByte := byte(0)
	for syncByte != ResponseSyncByte {
		buf, err := p.conn.Read(1)
		if err != nil {
			return nil, fmt.Errorf("failed to read sync byte: %w", err)
		}
		syncByte = buf[0]
	}

	statusBytes, err := p.conn.Read(2)
	if err != nil {
		return nil, fmt.Errorf("failed to read status bytes: %w", err)
	}
	p.status0 = statusBytes[0]
	p.status1 = statusBytes[1]

	var readBytes []byte
	if readLength > 0 {
		readBytes, err = p.conn.Read(readLength)
		if err != nil {
			return nil, fmt.Errorf("failed to read data: %w", err)
		}
	}

	if _, err := p.conn.Read(1); err != nil {
		return nil, fmt.Errorf("failed to read LRC: %w", err)
	}

	return readBytes, nil
}

// Read32 reads a 32-bit little-endian word at addr.
func (p *Prober) Read32(addr uint32) (uint32, error) {
	data, err := p.transfer(CMDRead32, addr, nil, 4)
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("read32 at 0x%08X: expected 4 bytes, got %d", addr, len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

// Write32 writes a 32-bit little-endian word to addr.
func (p *Prober) Write32(addr uint32, value uint32) error {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, value)
	_, err := p.transfer(CMDWrite32, addr, data, 0)
	return err
}

// ReadBlock8 reads len(buf) bytes starting at addr into buf.
func (p *Prober) ReadBlock8(addr uint32, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	data, err := p.transfer(CMDReadBlock8, addr, nil, len(buf))
	if err != nil {
		return err
	}
	if len(data) != len(buf) {
		return fmt.Errorf("read_block8 at 0x%08X: expected %d bytes, got %d", addr, len(buf), len(data))
	}
	copy(buf, data)
	return nil
}

// WriteBlock8 writes data to target memory starting at addr.
func (p *Prober) WriteBlock8(addr uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, err := p.transfer(CMDWriteBlock8, addr, data, 0)
	return err
}
