package armdebug

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBreakpointConfiguration(t *testing.T) {
	reg := BreakpointConfiguration(0x08000_9A4)
	require.Equal(t, uint32(0x4800_09A5), uint32(reg))
}

func TestDhcsrRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 0xFFFFFFFF, 0x00020003, 0xA05F0006} {
		d := Dhcsr(v)
		require.Equal(t, v, uint32(d), "round-trip must preserve the raw word")
	}
}

func TestDhcsrEnableWrite(t *testing.T) {
	var d Dhcsr
	d.SetCHalt(true)
	d.SetCDebugen(true)
	d.EnableWrite()

	require.Equal(t, uint32(0xA05F), uint32(d)>>16)
	require.True(t, d.CHalt())
	require.True(t, d.CDebugen())
}

func TestDhcsrEnableWriteFromFreshRegister(t *testing.T) {
	var d Dhcsr
	d.EnableWrite()

	require.Equal(t, uint32(0xA05F0000), uint32(d))
}

func TestAircrVectkeyAsymmetry(t *testing.T) {
	var a Aircr
	a.SetVectkey()

	// The write value (0x05FA) is architecturally distinct from the
	// read-back value VectkeyStat checks for (0xFA05): the register models
	// what software writes, not the target's internal mirror, so a freshly
	// written Aircr does not report VectkeyStat() true.
	require.Equal(t, uint32(0x05FA0000), uint32(a))
	require.False(t, a.VectkeyStat())

	var mirrored Aircr
	mirrored = Aircr(0xFA050000)
	require.True(t, mirrored.VectkeyStat())
}

func TestFpCtrlNumCode(t *testing.T) {
	// rev=0 (bits 31:28), num_code_1=0b001 (bits 14:12), num_code_0=0b0110 (bits 7:4)
	// NumCode = (1<<4)|6 = 22
	raw := uint32(0b0000<<28) | uint32(0b001<<12) | uint32(0b0110<<4)
	f := FpCtrl(raw)
	require.Equal(t, uint32(0), f.Rev())
	require.Equal(t, uint32(22), f.NumCode())
}
