package armdebug

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// stubTarget is a fake Cortex-M4 core implementing memprobe.Memory, enough
// to drive the DHCSR/DCRSR/DCRDR handshake and FPB bookkeeping without real
// hardware.
type stubTarget struct {
	regs map[uint32]uint32

	debugen  bool
	halted   bool
	dcrdr    uint32
	demcr    uint32
	aircr    uint32
	fpctrl   uint32
	fpcomp   map[uint32]uint32
	resets   int

	// pollsUntilHalt, when > 0, is decremented on every DHCSR status read
	// before SHalt is reported even if a halt was requested; it simulates a
	// target that takes a few iterations to actually stop. never, when
	// true, means the target reports S_HALT=false forever (timeout path).
	pollsUntilHalt int
	never          bool
}

func newStubTarget() *stubTarget {
	return &stubTarget{
		regs:   make(map[uint32]uint32),
		fpcomp: make(map[uint32]uint32),
	}
}

func (s *stubTarget) Read32(addr uint32) (uint32, error) {
	switch addr {
	case AddrDHCSR:
		var raw uint32
		if s.debugen {
			raw |= 1 << 0
		}
		// S_REGRDY: this stub always completes a register transfer
		// synchronously on the DCRSR write, so it is always ready by the
		// time the engine polls it.
		raw |= 1 << 16
		if !s.never {
			if s.pollsUntilHalt > 0 {
				s.pollsUntilHalt--
			} else if s.halted {
				raw |= 1 << 17
			}
		}
		return raw, nil
	case AddrDCRDR:
		return s.dcrdr, nil
	case AddrDEMCR:
		return s.demcr, nil
	case AddrFPCTRL:
		return s.fpctrl, nil
	case AddrAIRCR:
		return s.aircr, nil
	default:
		if v, ok := s.fpcomp[addr]; ok {
			return v, nil
		}
		return 0, nil
	}
}

func (s *stubTarget) Write32(addr uint32, value uint32) error {
	switch addr {
	case AddrDHCSR:
		d := Dhcsr(value)
		s.debugen = d.CDebugen()
		if d.CHalt() || d.CStep() {
			s.halted = true
		} else {
			s.halted = false
		}
	case AddrDCRSR:
		sel := getField(value, 6, 0)
		if getBit(value, 16) {
			s.regs[sel] = s.dcrdr
		} else {
			s.dcrdr = s.regs[sel]
		}
	case AddrDCRDR:
		s.dcrdr = value
	case AddrDEMCR:
		s.demcr = value
	case AddrAIRCR:
		s.aircr = value
		a := Aircr(value)
		if a.Sysresetreq() {
			s.resets++
			if Demcr(s.demcr).VcCorereset() {
				s.halted = true
			} else {
				s.halted = false
			}
		}
	case AddrFPCTRL:
		s.fpctrl = value
	default:
		s.fpcomp[addr] = value
	}
	return nil
}

func (s *stubTarget) ReadBlock8(addr uint32, buf []byte) error { return nil }
func (s *stubTarget) WriteBlock8(addr uint32, data []byte) error { return nil }

func TestEngineHaltReturnsPC(t *testing.T) {
	target := newStubTarget()
	target.regs[RegPC] = 0x0800_1234
	e := NewEngine(target)

	info, err := e.Halt()
	require.NoError(t, err)
	require.Equal(t, uint32(0x0800_1234), info.PC)
	require.True(t, target.halted)
}

func TestEngineRunClearsHalt(t *testing.T) {
	target := newStubTarget()
	e := NewEngine(target)

	_, err := e.Halt()
	require.NoError(t, err)
	require.True(t, target.halted)

	require.NoError(t, e.Run())
	require.False(t, target.halted)
}

func TestEngineStepReturnsNewPC(t *testing.T) {
	target := newStubTarget()
	target.regs[RegPC] = 0x2000_0000
	e := NewEngine(target)

	info, err := e.Step()
	require.NoError(t, err)
	require.Equal(t, uint32(0x2000_0000), info.PC)
	require.True(t, target.halted)
}

func TestEngineWaitForCoreHaltedEventuallySucceeds(t *testing.T) {
	target := newStubTarget()
	target.pollsUntilHalt = 5
	e := NewEngine(target)

	_, err := e.Halt()
	require.NoError(t, err)
}

func TestEngineWaitForCoreHaltedTimesOut(t *testing.T) {
	target := newStubTarget()
	target.never = true
	e := NewEngine(target)

	_, err := e.Halt()
	require.ErrorIs(t, err, ErrTimeout)
}

func TestEngineResetAndHaltPreservesThumbBit(t *testing.T) {
	target := newStubTarget()
	target.regs[RegXPSR] = 0x6000_0000 // thumb bit clear after reset
	target.regs[RegPC] = 0x0800_0000
	e := NewEngine(target)

	info, err := e.ResetAndHalt()
	require.NoError(t, err)
	require.Equal(t, uint32(0x0800_0000), info.PC)
	require.Equal(t, uint32(1), target.regs[RegXPSR]&XPSRThumb>>24)
	require.Equal(t, 1, target.resets)
	// DEMCR is restored to its pre-call value (VC_CORERESET not left set).
	require.False(t, Demcr(target.demcr).VcCorereset())
}

func TestEngineResetAndHaltLeavesSetThumbBitAlone(t *testing.T) {
	target := newStubTarget()
	target.regs[RegXPSR] = 0x0100_0000 // thumb bit already set
	e := NewEngine(target)

	_, err := e.ResetAndHalt()
	require.NoError(t, err)
	require.Equal(t, uint32(0x0100_0000), target.regs[RegXPSR])
}

func TestEngineGetAvailableBreakpointUnitsUnsupportedRevision(t *testing.T) {
	target := newStubTarget()
	target.fpctrl = uint32(1) << 28 // REV=1
	e := NewEngine(target)

	_, err := e.GetAvailableBreakpointUnits()
	require.ErrorIs(t, err, ErrUnsupportedRevision)
}

func TestEngineSetHWBreakpointAllocatesFirstFreeSlot(t *testing.T) {
	target := newStubTarget()
	target.fpctrl = uint32(2) << 4 // NUM_CODE = 2 (num_code_0 field)
	e := NewEngine(target)

	require.NoError(t, e.SetHWBreakpoint(0x0800_0100))
	require.NoError(t, e.SetHWBreakpoint(0x0800_0200))

	err := e.SetHWBreakpoint(0x0800_0300)
	require.Error(t, err)

	require.NoError(t, e.ClearHWBreakpoint(0x0800_0100))
	require.NoError(t, e.SetHWBreakpoint(0x0800_0300))

	raw, ok := target.fpcomp[FPCompAddress(0)]
	require.True(t, ok)
	require.Equal(t, uint32(BreakpointConfiguration(0x0800_0300)), raw)
}

func TestEngineClearHWBreakpointUnknownAddressIsNoop(t *testing.T) {
	target := newStubTarget()
	e := NewEngine(target)
	require.NoError(t, e.ClearHWBreakpoint(0xDEAD_BEEF))
}

func TestEngineEnableBreakpointsSetsKeyBit(t *testing.T) {
	target := newStubTarget()
	e := NewEngine(target)

	require.NoError(t, e.EnableBreakpoints(true))
	require.True(t, getBit(target.fpctrl, 1), "FP_CTRL.KEY must be set")
	require.True(t, FpCtrl(target.fpctrl).Enable())
	require.True(t, e.HwBreakpointsEnabled())
}
