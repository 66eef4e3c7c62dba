package gdbpacket

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	framed := Encode("qSupported")
	require.Equal(t, "$qSupported#", string(framed[:len(framed)-2]))

	r := bufio.NewReader(bytes.NewReader(framed))
	pkt, err := Read(r)
	require.NoError(t, err)
	require.True(t, pkt.Valid)
	require.Equal(t, "qSupported", string(pkt.Payload))
}

func TestReadRejectsBadChecksum(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte("$qSupported#00")))
	pkt, err := Read(r)
	require.NoError(t, err)
	require.False(t, pkt.Valid)
}

func TestReadDetectsCtrlC(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte{0x03}))
	pkt, err := Read(r)
	require.NoError(t, err)
	require.True(t, pkt.Valid)
	require.Equal(t, []byte{0x03}, pkt.Payload)
}

func TestReadSkipsAcknowledgementBytes(t *testing.T) {
	framed := Encode("OK")
	buf := append([]byte{'+'}, framed...)

	r := bufio.NewReader(bytes.NewReader(buf))
	pkt, err := Read(r)
	require.NoError(t, err)
	require.True(t, pkt.Valid)
	require.Equal(t, "OK", string(pkt.Payload))
}

func TestUnescapeBinaryPayload(t *testing.T) {
	payload := []byte{0x41, escapeByte, 0x03 ^ escapeXor, 0x42} // 'A', escaped 0x03, 'B'
	cs := checksum(payload)
	raw := append([]byte{'$'}, payload...)
	raw = append(raw, '#')
	raw = append(raw, []byte(hexByte(cs))...)

	r := bufio.NewReader(bytes.NewReader(raw))
	pkt, err := Read(r)
	require.NoError(t, err)
	require.True(t, pkt.Valid)
	require.Equal(t, []byte{0x41, 0x03, 0x42}, pkt.Payload)
}

func hexByte(b byte) string {
	const hexDigits = "0123456789abcdef"
	return string([]byte{hexDigits[b>>4], hexDigits[b&0xf]})
}
