// Package armdebug implements the ARM Cortex-M4 debug register model and
// the debug engine built on it: halt/run/step/reset lifecycle, core-register
// transfer via DCRSR/DCRDR, and the FPB hardware-breakpoint unit.
//
// Each register is modeled as a plain 32-bit value with typed accessor
// methods; the bit layout is the contract, not the Go representation,
// matching the ARMv7-M Debug register layout (DHCSR/DCRSR/DCRDR, AIRCR,
// DEMCR, FP_CTRL/FP_COMP_n) field for field.
package armdebug

// MMIO addresses of the ARM core debug registers.
const (
	AddrDHCSR    uint32 = 0xE000EDF0
	AddrDCRSR    uint32 = 0xE000EDF4
	AddrDCRDR    uint32 = 0xE000EDF8
	AddrAIRCR    uint32 = 0xE000ED0C
	AddrDEMCR    uint32 = 0xE000EDFC
	AddrFPCTRL   uint32 = 0xE0002000
	AddrFPCOMP0  uint32 = 0xE0002008
	fpCompStride        = 4
)

// FPCompAddress returns the MMIO address of FP_COMP_n.
func FPCompAddress(slot int) uint32 {
	return AddrFPCOMP0 + uint32(slot)*fpCompStride
}

// Core register selectors for DCRSR.REGSEL.
const (
	RegR0   uint32 = 0x00
	RegR1   uint32 = 0x01
	RegR2   uint32 = 0x02
	RegR3   uint32 = 0x03
	RegR4   uint32 = 0x04
	RegR5   uint32 = 0x05
	RegR6   uint32 = 0x06
	RegR7   uint32 = 0x07
	RegR8   uint32 = 0x08
	RegR9   uint32 = 0x09
	RegMSP  uint32 = 0x09
	RegPSP  uint32 = 0x0A
	RegSP   uint32 = 0x0D
	RegLR   uint32 = 0x0E
	RegPC   uint32 = 0x0F
	RegXPSR uint32 = 0x10
)

// XPSRThumb is the Thumb-state bit (bit 24) of XPSR.
const XPSRThumb uint32 = 1 << 24

func setBit(v *uint32, bit uint, on bool) {
	if on {
		*v |= 1 << bit
	} else {
		*v &^= 1 << bit
	}
}

func getBit(v uint32, bit uint) bool {
	return v&(1<<bit) != 0
}

func getField(v uint32, hi, lo uint) uint32 {
	mask := uint32(1)<<(hi-lo+1) - 1
	return (v >> lo) & mask
}

func setField(v *uint32, hi, lo uint, field uint32) {
	mask := uint32(1)<<(hi-lo+1) - 1
	*v = (*v &^ (mask << lo)) | ((field & mask) << lo)
}

// Dhcsr is the Debug Halting Control and Status Register (DHCSR).
//
// Debug key: software must write 0xA05F to bits 31:16 to enable writes to
// bits 15:0; the processor silently ignores the write otherwise. Reads
// return status bits in the same 31:16 range, so reply values must always
// be constructed independently of the last read via EnableWrite, never by
// read-modify-write on a value obtained from Read32.
type Dhcsr uint32

const dhcsrDebugKey uint32 = 0xA05F

func (d Dhcsr) SResetSt() bool  { return getBit(uint32(d), 25) }
func (d Dhcsr) SRetireSt() bool { return getBit(uint32(d), 24) }
func (d Dhcsr) SLockup() bool   { return getBit(uint32(d), 19) }
func (d Dhcsr) SSleep() bool    { return getBit(uint32(d), 18) }
func (d Dhcsr) SHalt() bool     { return getBit(uint32(d), 17) }
func (d Dhcsr) SRegRdy() bool   { return getBit(uint32(d), 16) }
func (d Dhcsr) CSnapstall() bool { return getBit(uint32(d), 5) }
func (d Dhcsr) CMaskints() bool { return getBit(uint32(d), 3) }
func (d Dhcsr) CStep() bool     { return getBit(uint32(d), 2) }
func (d Dhcsr) CHalt() bool     { return getBit(uint32(d), 1) }
func (d Dhcsr) CDebugen() bool  { return getBit(uint32(d), 0) }

func (d *Dhcsr) SetCSnapstall(v bool) { setBit((*uint32)(d), 5, v) }
func (d *Dhcsr) SetCMaskints(v bool)  { setBit((*uint32)(d), 3, v) }
func (d *Dhcsr) SetCStep(v bool)      { setBit((*uint32)(d), 2, v) }
func (d *Dhcsr) SetCHalt(v bool)      { setBit((*uint32)(d), 1, v) }
func (d *Dhcsr) SetCDebugen(v bool)   { setBit((*uint32)(d), 0, v) }

// EnableWrite clears bits 31:16 and sets them to the debug key 0xA05F,
// making the pending bits 15:0 take effect at the target.
func (d *Dhcsr) EnableWrite() {
	*(*uint32)(d) = (uint32(*d) &^ 0xFFFF0000) | (dhcsrDebugKey << 16)
}

// Dcrsr is the Debug Core Register Selector Register (DCRSR).
type Dcrsr uint32

func (d *Dcrsr) SetRegWnr(write bool) { setBit((*uint32)(d), 16, write) }
func (d *Dcrsr) SetRegSel(sel uint32) { setField((*uint32)(d), 6, 0, sel) }

// Dcrdr is the Debug Core Register Data Register (DCRDR); a plain 32-bit
// data-transfer register with no fields of its own.
type Dcrdr uint32

// Aircr is the Application Interrupt and Reset Control Register (AIRCR).
//
// The write key (VECTKEY, written as 0x05FA into bits 31:16) and the
// read-back key (VECTKEYSTAT, read as 0xFA05 from the same bits) are
// architecturally distinct values — never reuse a read Aircr to build a
// write.
type Aircr uint32

func (a Aircr) vectkeyField() uint32 { return getField(uint32(a), 31, 16) }

// SetVectkey writes 0x05FA into bits 31:16, the value required to unlock
// writes to the control bits below it.
func (a *Aircr) SetVectkey() { setField((*uint32)(a), 31, 16, 0x05FA) }

// VectkeyStat reports whether the mirrored key read back as 0xFA05.
func (a Aircr) VectkeyStat() bool { return a.vectkeyField() == 0xFA05 }

func (a Aircr) Endianness() bool   { return getBit(uint32(a), 15) }
func (a Aircr) Prigroup() uint32   { return getField(uint32(a), 10, 8) }
func (a Aircr) Sysresetreq() bool  { return getBit(uint32(a), 2) }
func (a Aircr) Vectclractive() bool { return getBit(uint32(a), 1) }
func (a Aircr) Vectreset() bool    { return getBit(uint32(a), 0) }

func (a *Aircr) SetSysresetreq(v bool) { setBit((*uint32)(a), 2, v) }

// Demcr is the Debug Exception and Monitor Control Register (DEMCR).
type Demcr uint32

func (d Demcr) Trcena() bool    { return getBit(uint32(d), 24) }
func (d Demcr) MonReq() bool    { return getBit(uint32(d), 19) }
func (d Demcr) MonStep() bool   { return getBit(uint32(d), 18) }
func (d Demcr) MonPend() bool   { return getBit(uint32(d), 17) }
func (d Demcr) MonEn() bool     { return getBit(uint32(d), 16) }
func (d Demcr) VcHarderr() bool { return getBit(uint32(d), 10) }
func (d Demcr) VcInterr() bool  { return getBit(uint32(d), 9) }
func (d Demcr) VcBuserr() bool  { return getBit(uint32(d), 8) }
func (d Demcr) VcStaterr() bool { return getBit(uint32(d), 7) }
func (d Demcr) VcChkerr() bool  { return getBit(uint32(d), 6) }
func (d Demcr) VcNocperr() bool { return getBit(uint32(d), 5) }
func (d Demcr) VcMmerr() bool   { return getBit(uint32(d), 4) }
func (d Demcr) VcCorereset() bool { return getBit(uint32(d), 0) }

func (d *Demcr) SetTrcena(v bool)    { setBit((*uint32)(d), 24, v) }
func (d *Demcr) SetVcCorereset(v bool) { setBit((*uint32)(d), 0, v) }

// FpCtrl is the Flash Patch and Breakpoint control register (FP_CTRL).
type FpCtrl uint32

func (f FpCtrl) Rev() uint32     { return getField(uint32(f), 31, 28) }
func (f FpCtrl) numCode1() uint32 { return getField(uint32(f), 14, 12) }
func (f FpCtrl) NumLit() uint32  { return getField(uint32(f), 11, 8) }
func (f FpCtrl) numCode0() uint32 { return getField(uint32(f), 7, 4) }
func (f FpCtrl) Enable() bool    { return getBit(uint32(f), 0) }

// NumCode returns the total number of code-address comparators (FP_COMP_n
// slots) the FPB implements.
func (f FpCtrl) NumCode() uint32 {
	return (f.numCode1() << 4) | f.numCode0()
}

func (f *FpCtrl) SetKey(v bool)    { setBit((*uint32)(f), 1, v) }
func (f *FpCtrl) SetEnable(v bool) { setBit((*uint32)(f), 0, v) }

// FpCompX is a Flash Patch comparator register (FP_COMP_n).
type FpCompX uint32

func (f FpCompX) Replace() uint32 { return getField(uint32(f), 31, 30) }
func (f FpCompX) Comp() uint32    { return getField(uint32(f), 28, 2) }
func (f FpCompX) Enable() bool    { return getBit(uint32(f), 0) }

func (f *FpCompX) SetReplace(v uint32) { setField((*uint32)(f), 31, 30, v) }
func (f *FpCompX) SetComp(v uint32)    { setField((*uint32)(f), 28, 2, v) }
func (f *FpCompX) SetEnable(v bool)    { setBit((*uint32)(f), 0, v) }

// BreakpointConfiguration returns the FP_COMP_n value that enables a hardware
// breakpoint at address.
func BreakpointConfiguration(address uint32) FpCompX {
	var reg FpCompX

	compVal := (address & 0x1FFFFFFC) >> 2
	var replaceVal uint32
	if address&0x3 == 0 {
		replaceVal = 0b01 // lower half-word match
	} else {
		replaceVal = 0b10 // upper half-word match
	}

	reg.SetReplace(replaceVal)
	reg.SetComp(compVal)
	reg.SetEnable(true)

	return reg
}
