package memprobe

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory connection.Connection backed by a flat byte
// array, enough to exercise the wire protocol without real hardware.
type fakeConn struct {
	mem  []byte
	in   []byte // bytes to be consumed by Read
	last []byte // last packet written
}

func newFakeConn(size int) *fakeConn {
	return &fakeConn{mem: make([]byte, size)}
}

func (f *fakeConn) Open(string) error { return nil }
func (f *fakeConn) Close() error      { return nil }
func (f *fakeConn) IsOpen() bool      { return true }

func (f *fakeConn) Read(n int) ([]byte, error) {
	buf := f.in[:n]
	f.in = f.in[n:]
	return buf, nil
}

func (f *fakeConn) Write(data []byte) (int, error) {
	f.last = append([]byte(nil), data...)
	cmd := data[1]
	addr := binary.BigEndian.Uint32(data[2:6])
	length := binary.BigEndian.Uint16(data[6:8])

	resp := []byte{ResponseSyncByte, 0, 0}
	switch cmd {
	case CMDRead32:
		resp = append(resp, f.mem[addr:addr+4]...)
	case CMDWrite32:
		copy(f.mem[addr:], data[8:8+4])
	case CMDReadBlock8:
		resp = append(resp, f.mem[addr:addr+uint32(length)]...)
	case CMDWriteBlock8:
		copy(f.mem[addr:], data[8:8+int(length)])
	}
	resp = append(resp, 0) // LRC, unverified by the client

	f.in = resp
	return len(data), nil
}

func TestProberReadWrite32RoundTrip(t *testing.T) {
	conn := newFakeConn(64)
	p := NewProber(conn)

	require.NoError(t, p.Write32(0x10, 0xDEADBEEF))
	v, err := p.Read32(0x10)
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v)
}

func TestProberReadWriteBlock8(t *testing.T) {
	conn := newFakeConn(64)
	p := NewProber(conn)

	payload := []byte{1, 2, 3, 4, 5}
	require.NoError(t, p.WriteBlock8(0x20, payload))

	buf := make([]byte, len(payload))
	require.NoError(t, p.ReadBlock8(0x20, buf))
	require.Equal(t, payload, buf)
}

func TestWriteBlock8AlignedUnalignedWrite(t *testing.T) {
	conn := newFakeConn(64)
	p := NewProber(conn)

	// Pre-fill target memory so the read-modify-write preserves neighbors.
	require.NoError(t, p.WriteBlock8(0x00, []byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}))

	require.NoError(t, WriteBlock8Aligned(p, 0x01, []byte{0x11, 0x22, 0x33}))

	buf := make([]byte, 8)
	require.NoError(t, p.ReadBlock8(0x00, buf))
	require.Equal(t, []byte{0xAA, 0x11, 0x22, 0x33, 0xAA, 0xAA, 0xAA, 0xAA}, buf)
}
