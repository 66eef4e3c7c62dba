package rsp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daschewie/cm4gdbridge/pkg/armdebug"
)

// fakeTarget is a Cortex-M4 stand-in that halts immediately on any halt
// request and whose general memory starts zero-filled, matching the
// end-to-end scenarios this package is tested against.
type fakeTarget struct {
	coreRegs map[uint32]uint32
	mem      map[uint32]byte

	debugen bool
	halted  bool
	dcrdr   uint32
	demcr   uint32
	aircr   uint32
	fpctrl  uint32
	fpcomp  map[uint32]uint32
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		coreRegs: make(map[uint32]uint32),
		mem:      make(map[uint32]byte),
		fpcomp:   make(map[uint32]uint32),
	}
}

func (f *fakeTarget) Read32(addr uint32) (uint32, error) {
	switch addr {
	case armdebug.AddrDHCSR:
		var raw uint32
		if f.debugen {
			raw |= 1 << 0
		}
		raw |= 1 << 16 // S_REGRDY: this stub completes transfers synchronously
		if f.halted {
			raw |= 1 << 17
		}
		return raw, nil
	case armdebug.AddrDCRDR:
		return f.dcrdr, nil
	case armdebug.AddrDEMCR:
		return f.demcr, nil
	case armdebug.AddrFPCTRL:
		return f.fpctrl, nil
	case armdebug.AddrAIRCR:
		return f.aircr, nil
	default:
		if v, ok := f.fpcomp[addr]; ok {
			return v, nil
		}
		return 0, nil
	}
}

func (f *fakeTarget) Write32(addr uint32, value uint32) error {
	switch addr {
	case armdebug.AddrDHCSR:
		d := armdebug.Dhcsr(value)
		f.debugen = d.CDebugen()
		f.halted = d.CHalt() || d.CStep()
	case armdebug.AddrDCRSR:
		sel := value & 0x7F
		if value&(1<<16) != 0 {
			f.coreRegs[sel] = f.dcrdr
		} else {
			f.dcrdr = f.coreRegs[sel]
		}
	case armdebug.AddrDCRDR:
		f.dcrdr = value
	case armdebug.AddrDEMCR:
		f.demcr = value
	case armdebug.AddrAIRCR:
		f.aircr = value
		if armdebug.Aircr(value).Sysresetreq() {
			f.halted = armdebug.Demcr(f.demcr).VcCorereset()
		}
	case armdebug.AddrFPCTRL:
		f.fpctrl = value
	default:
		f.fpcomp[addr] = value
	}
	return nil
}

func (f *fakeTarget) ReadBlock8(addr uint32, buf []byte) error {
	for i := range buf {
		buf[i] = f.mem[addr+uint32(i)]
	}
	return nil
}

func (f *fakeTarget) WriteBlock8(addr uint32, data []byte) error {
	for i, b := range data {
		f.mem[addr+uint32(i)] = b
	}
	return nil
}

func TestDispatchQSupported(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	r, terminate, _ := Dispatch([]byte("qSupported:multiprocess+"), engine, false)
	require.NotNil(t, r)
	require.Equal(t, supportedFeatures, *r)
	require.False(t, terminate)
}

func TestDispatchQueryThenGeneralRegisters(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	r1, _, _ := Dispatch([]byte("?"), engine, false)
	require.Equal(t, "S05", *r1)

	r2, _, _ := Dispatch([]byte("g"), engine, false)
	require.Equal(t, "xxxxxxxx", *r2)
}

func TestDispatchReadMemory(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	r, _, _ := Dispatch([]byte("m20000000,4"), engine, false)
	require.Equal(t, "00000000", *r)
}

func TestDispatchReadRegister(t *testing.T) {
	target := newFakeTarget()
	target.coreRegs[armdebug.RegXPSR] = 0
	target.coreRegs[armdebug.RegPC] = 0x01020304
	engine := armdebug.NewEngine(target)

	r, _, _ := Dispatch([]byte("p0f"), engine, false)
	require.Equal(t, "04030201", *r)
}

func TestDispatchContinueThenCtrlC(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	r1, terminate1, awaits1 := Dispatch([]byte("c"), engine, false)
	require.Nil(t, r1)
	require.False(t, terminate1)
	require.True(t, awaits1)

	r2, terminate2, awaits2 := Dispatch([]byte("\x03"), engine, awaits1)
	require.Equal(t, "T05hwbreak:;", *r2)
	require.False(t, terminate2)
	require.False(t, awaits2)
}

func TestDispatchDetach(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	r, terminate, _ := Dispatch([]byte("D"), engine, false)
	require.Equal(t, "OK", *r)
	require.True(t, terminate)
}

func TestDispatchUnknownCommandRepliesOK(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	r, terminate, _ := Dispatch([]byte("vUnknown"), engine, false)
	require.Equal(t, "OK", *r)
	require.False(t, terminate)
}

func TestDispatchEmptyRepliesTable(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	for _, cmd := range []string{"vMustReplyEmpty", "qTStatus", "qTfV", "qTsP", "qfThreadInfo", "qL", "qC", "qOffsets", "Z0,1000,2"} {
		r, terminate, _ := Dispatch([]byte(cmd), engine, false)
		require.Equal(t, "", *r, "command %q", cmd)
		require.False(t, terminate)
	}
}

func TestDispatchVContQuery(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	r, _, _ := Dispatch([]byte("vCont?"), engine, false)
	require.Equal(t, "vCont;c;t;s", *r)
}

func TestDispatchStep(t *testing.T) {
	target := newFakeTarget()
	target.coreRegs[armdebug.RegPC] = 0x100
	engine := armdebug.NewEngine(target)

	r, _, awaits := Dispatch([]byte("s"), engine, true)
	require.Equal(t, "S05", *r)
	require.False(t, awaits)
}

func TestDispatchWriteMemory(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	r, _, _ := Dispatch([]byte("X20000000,3:abc"), engine, false)
	require.Equal(t, "OK", *r)

	buf := make([]byte, 3)
	require.NoError(t, target.ReadBlock8(0x20000000, buf))
	require.Equal(t, []byte("abc"), buf)
}

func TestDispatchMemoryMapWindowing(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	r, _, _ := Dispatch([]byte("qXfer:memory-map:read::0,3fff"), engine, false)
	require.True(t, len(*r) > 0)
	require.Equal(t, byte('l'), (*r)[0])

	r2, _, _ := Dispatch([]byte("qXfer:memory-map:read::100000,10"), engine, false)
	require.Equal(t, "l", *r2)
}

func TestDispatchHardwareBreakpointSetAndClear(t *testing.T) {
	target := newFakeTarget()
	target.fpctrl = uint32(1) << 4 // NUM_CODE = 1
	engine := armdebug.NewEngine(target)

	r, _, _ := Dispatch([]byte("Z1,08000100,2"), engine, false)
	require.Equal(t, "OK", *r)

	r2, _, _ := Dispatch([]byte("z1,08000100,2"), engine, false)
	require.Equal(t, "OK", *r2)
}

func TestDispatchCaseInsensitiveHex(t *testing.T) {
	target := newFakeTarget()
	engine := armdebug.NewEngine(target)

	r, _, _ := Dispatch([]byte("m2000000A,4"), engine, false)
	require.NotNil(t, r)
	require.Equal(t, "00000000", *r)
}
