package armdebug

import (
	"errors"
	"fmt"

	"github.com/daschewie/cm4gdbridge/pkg/memprobe"
)

// maxPolls bounds every polling loop in this package: waiting for the core
// to halt, waiting for a core-register transfer to complete, and the
// post-reset wait in ResetAndHalt all give up after this many iterations
// rather than blocking forever on an unresponsive target.
const maxPolls = 100

// ErrTimeout is returned when a bounded poll exhausts maxPolls iterations
// without observing the expected status bit.
var ErrTimeout = errors.New("armdebug: timed out waiting for target")

// ErrUnsupportedRevision is returned by GetAvailableBreakpointUnits when the
// FPB revision field is non-zero; only revision 0 is in scope.
var ErrUnsupportedRevision = errors.New("armdebug: unsupported FPB revision")

// CoreInformation is the reply shape returned by halt/step/reset-and-halt.
type CoreInformation struct {
	PC uint32
}

// breakpointSlot records one active hardware breakpoint and the FPB
// comparator slot it occupies.
type breakpointSlot struct {
	address uint32
	slot    int
}

// Engine is the Cortex-M4 Debug Engine: one instance per
// attached target core. It owns no transport of its own; all MMIO traffic
// goes through the Memory capability it was constructed with.
type Engine struct {
	memory memprobe.Memory

	hwBreakpointsEnabled bool
	activeBreakpoints    []breakpointSlot
	availableUnits       int
}

// NewEngine creates a debug engine over the given Memory capability. The
// engine does not itself open or attach to anything; callers issue Halt (or
// ResetAndHalt) once the underlying probe session is ready.
func NewEngine(memory memprobe.Memory) *Engine {
	return &Engine{memory: memory}
}

// Memory returns the target memory capability the engine was built on, for
// callers (the RSP dispatcher's m/X commands) that need raw block access
// rather than core-register or control-register semantics.
func (e *Engine) Memory() memprobe.Memory {
	return e.memory
}

func (e *Engine) readDhcsr() (Dhcsr, error) {
	v, err := e.memory.Read32(AddrDHCSR)
	return Dhcsr(v), err
}

// waitForCoreRegisterTransfer polls DHCSR.S_REGRDY, per the core register
// transfer protocol in C1.6 of the Cortex-M architecture reference.
func (e *Engine) waitForCoreRegisterTransfer() error {
	for i := 0; i < maxPolls; i++ {
		dhcsr, err := e.readDhcsr()
		if err != nil {
			return err
		}
		if dhcsr.SRegRdy() {
			return nil
		}
	}
	return ErrTimeout
}

// WaitForCoreHalted polls DHCSR.S_HALT up to maxPolls times.
func (e *Engine) WaitForCoreHalted() error {
	for i := 0; i < maxPolls; i++ {
		dhcsr, err := e.readDhcsr()
		if err != nil {
			return err
		}
		if dhcsr.SHalt() {
			return nil
		}
	}
	return ErrTimeout
}

// CoreHalted performs a single DHCSR read and reports S_HALT.
func (e *Engine) CoreHalted() (bool, error) {
	dhcsr, err := e.readDhcsr()
	if err != nil {
		return false, err
	}
	return dhcsr.SHalt(), nil
}

// ReadCoreReg reads a core register via the DCRSR/DCRDR handshake.
func (e *Engine) ReadCoreReg(regSel uint32) (uint32, error) {
	var dcrsr Dcrsr
	dcrsr.SetRegWnr(false)
	dcrsr.SetRegSel(regSel)

	if err := e.memory.Write32(AddrDCRSR, uint32(dcrsr)); err != nil {
		return 0, err
	}

	if err := e.waitForCoreRegisterTransfer(); err != nil {
		return 0, err
	}

	return e.memory.Read32(AddrDCRDR)
}

// WriteCoreReg writes value to a core register via the DCRDR/DCRSR handshake.
func (e *Engine) WriteCoreReg(regSel uint32, value uint32) error {
	if err := e.memory.Write32(AddrDCRDR, value); err != nil {
		return err
	}

	var dcrsr Dcrsr
	dcrsr.SetRegWnr(true)
	dcrsr.SetRegSel(regSel)

	if err := e.memory.Write32(AddrDCRSR, uint32(dcrsr)); err != nil {
		return err
	}

	return e.waitForCoreRegisterTransfer()
}

func (e *Engine) writeDhcsrWithKey(d Dhcsr) error {
	d.EnableWrite()
	return e.memory.Write32(AddrDHCSR, uint32(d))
}

// Halt halts the core and returns its program counter.
func (e *Engine) Halt() (CoreInformation, error) {
	var d Dhcsr
	d.SetCHalt(true)
	d.SetCDebugen(true)
	if err := e.writeDhcsrWithKey(d); err != nil {
		return CoreInformation{}, err
	}

	if err := e.WaitForCoreHalted(); err != nil {
		return CoreInformation{}, err
	}

	pc, err := e.ReadCoreReg(RegPC)
	if err != nil {
		return CoreInformation{}, err
	}
	return CoreInformation{PC: pc}, nil
}

// Run resumes the core. It does not wait for any status change; resuming
// is fire-and-forget.
func (e *Engine) Run() error {
	var d Dhcsr
	d.SetCHalt(false)
	d.SetCDebugen(true)
	return e.writeDhcsrWithKey(d)
}

// Step executes a single instruction with interrupts masked and returns the
// resulting program counter.
func (e *Engine) Step() (CoreInformation, error) {
	var d Dhcsr
	d.SetCStep(true)
	d.SetCHalt(false)
	d.SetCDebugen(true)
	d.SetCMaskints(true)
	if err := e.writeDhcsrWithKey(d); err != nil {
		return CoreInformation{}, err
	}

	if err := e.WaitForCoreHalted(); err != nil {
		return CoreInformation{}, err
	}

	pc, err := e.ReadCoreReg(RegPC)
	if err != nil {
		return CoreInformation{}, err
	}
	return CoreInformation{PC: pc}, nil
}

// Reset issues a system reset request. It does not wait; the core recovers
// on its own.
func (e *Engine) Reset() error {
	var a Aircr
	a.SetVectkey()
	a.SetSysresetreq(true)
	return e.memory.Write32(AddrAIRCR, uint32(a))
}

// ResetAndHalt performs the ordered reset-and-halt sequence: ensure debug
// mode is enabled, arm VC_CORERESET, reset, wait for halt, restore the
// Thumb bit if the reset vector left it clear, restore DEMCR, and return
// the resulting PC.
func (e *Engine) ResetAndHalt() (CoreInformation, error) {
	dhcsrVal, err := e.readDhcsr()
	if err != nil {
		return CoreInformation{}, err
	}
	if !dhcsrVal.CDebugen() {
		var d Dhcsr
		d.SetCDebugen(true)
		if err := e.writeDhcsrWithKey(d); err != nil {
			return CoreInformation{}, err
		}
	}

	demcrRaw, err := e.memory.Read32(AddrDEMCR)
	if err != nil {
		return CoreInformation{}, err
	}
	demcrVal := Demcr(demcrRaw)
	if !demcrVal.VcCorereset() {
		enabled := demcrVal
		enabled.SetVcCorereset(true)
		if err := e.memory.Write32(AddrDEMCR, uint32(enabled)); err != nil {
			return CoreInformation{}, err
		}
	}

	if err := e.Reset(); err != nil {
		return CoreInformation{}, err
	}

	if err := e.WaitForCoreHalted(); err != nil {
		return CoreInformation{}, err
	}

	xpsrValue, err := e.ReadCoreReg(RegXPSR)
	if err != nil {
		return CoreInformation{}, err
	}
	if xpsrValue&XPSRThumb == 0 {
		if err := e.WriteCoreReg(RegXPSR, xpsrValue|XPSRThumb); err != nil {
			return CoreInformation{}, err
		}
	}

	// Restore DEMCR to its pre-call value regardless of whether this call
	// was the one that set VC_CORERESET.
	if err := e.memory.Write32(AddrDEMCR, uint32(demcrVal)); err != nil {
		return CoreInformation{}, err
	}

	pc, err := e.ReadCoreReg(RegPC)
	if err != nil {
		return CoreInformation{}, err
	}
	return CoreInformation{PC: pc}, nil
}

// GetAvailableBreakpointUnits reads FP_CTRL and returns NUM_CODE, the number
// of FPB comparator slots, caching it for slot-allocation bookkeeping. Only
// FPB revision 0 is supported.
func (e *Engine) GetAvailableBreakpointUnits() (uint32, error) {
	raw, err := e.memory.Read32(AddrFPCTRL)
	if err != nil {
		return 0, err
	}
	fpCtrl := FpCtrl(raw)

	if fpCtrl.Rev() != 0 {
		return 0, fmt.Errorf("%w: FPB revision %d", ErrUnsupportedRevision, fpCtrl.Rev())
	}

	n := fpCtrl.NumCode()
	e.availableUnits = int(n)
	return n, nil
}

// EnableBreakpoints writes FP_CTRL.ENABLE=state with the KEY bit set.
//
// hwBreakpointsEnabled is set true unconditionally, regardless of state: the
// source this engine is modeled on does the same, and whether passing false
// should instead clear it is left open rather than guessed at here.
func (e *Engine) EnableBreakpoints(state bool) error {
	var f FpCtrl
	f.SetKey(true)
	f.SetEnable(state)

	if err := e.memory.Write32(AddrFPCTRL, uint32(f)); err != nil {
		return err
	}

	e.hwBreakpointsEnabled = true
	return nil
}

// HwBreakpointsEnabled reports whether EnableBreakpoints has been called. It
// stays true after EnableBreakpoints(false) (see EnableBreakpoints).
func (e *Engine) HwBreakpointsEnabled() bool {
	return e.hwBreakpointsEnabled
}

// SetBreakpointRaw writes the FP_COMP_n configuration for address directly
// to the given slot index, bypassing slot bookkeeping.
func (e *Engine) SetBreakpointRaw(slotIndex int, address uint32) error {
	val := BreakpointConfiguration(address)
	return e.memory.Write32(FPCompAddress(slotIndex), uint32(val))
}

// ClearBreakpointRaw writes a disabled FP_COMP_n to the given slot index.
func (e *Engine) ClearBreakpointRaw(slotIndex int) error {
	var val FpCompX
	val.SetEnable(false)
	return e.memory.Write32(FPCompAddress(slotIndex), uint32(val))
}

// SetHWBreakpoint allocates the first free FPB slot for address and programs
// it. Slot indices are dense and 0-based.
func (e *Engine) SetHWBreakpoint(address uint32) error {
	for _, bp := range e.activeBreakpoints {
		if bp.address == address {
			return nil // already set
		}
	}

	if e.availableUnits == 0 {
		if _, err := e.GetAvailableBreakpointUnits(); err != nil {
			return err
		}
	}

	used := make(map[int]bool, len(e.activeBreakpoints))
	for _, bp := range e.activeBreakpoints {
		used[bp.slot] = true
	}

	slot := -1
	for i := 0; i < e.availableUnits; i++ {
		if !used[i] {
			slot = i
			break
		}
	}
	if slot == -1 {
		return fmt.Errorf("armdebug: no free hardware breakpoint unit (have %d, all in use)", e.availableUnits)
	}

	if err := e.SetBreakpointRaw(slot, address); err != nil {
		return err
	}

	e.activeBreakpoints = append(e.activeBreakpoints, breakpointSlot{address: address, slot: slot})
	return nil
}

// ClearHWBreakpoint disables and frees the FPB slot assigned to address, if
// any.
func (e *Engine) ClearHWBreakpoint(address uint32) error {
	for i, bp := range e.activeBreakpoints {
		if bp.address == address {
			if err := e.ClearBreakpointRaw(bp.slot); err != nil {
				return err
			}
			e.activeBreakpoints = append(e.activeBreakpoints[:i], e.activeBreakpoints[i+1:]...)
			return nil
		}
	}
	return nil // clearing an address with no breakpoint is a no-op
}
