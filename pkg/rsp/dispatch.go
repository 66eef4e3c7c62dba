// Package rsp implements the RSP command dispatcher: a pure translation
// from an already-framed, already-unescaped packet payload into a reply
// string and a side-effect against the Cortex-M4 debug engine.
//
// Grounded on the command table of the aykevl-emculator reference's
// gdbHandle (qSupported/qXfer/g/m/p/c/s/Z/z handling, packet prefix
// dispatch), adapted from a single-core emulator target to the armdebug
// engine and widened to the fuller command set and fixed-width memory map
// this bridge exposes.
package rsp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/daschewie/cm4gdbridge/pkg/armdebug"
)

const memoryMapXML = `<?xml version="1.0"?>
<!DOCTYPE memory-map PUBLIC "+//IDN gnu.org//DTD GDB Memory Map V1.0//EN" "http://sourceware.org/gdb/gdb-memory-map.dtd">
<memory-map>
<memory type="ram" start="0x20000000" length="0x4000"/>
<memory type="rom" start="0x00000000" length="0x40000"/>
</memory-map>
`

const supportedFeatures = "PacketSize=2048;swbreak-;hwbreak+;vContSupported+;qXfer:memory-map:read+"

func reply(s string) *string { return &s }

// Dispatch is the pure function at the center of this package: given one
// packet payload, the engine it drives, and whether the worker is currently
// expecting an asynchronous halt notification, it returns an optional reply
// string, whether the session should terminate, and the updated
// awaits-halt flag.
func Dispatch(payload []byte, engine *armdebug.Engine, awaitsHalt bool) (*string, bool, bool) {
	p := string(payload)

	switch {
	case strings.HasPrefix(p, "qSupported"):
		return reply(supportedFeatures), false, awaitsHalt

	case p == "vMustReplyEmpty", strings.HasPrefix(p, "qTStatus"),
		strings.HasPrefix(p, "qTfV"), strings.HasPrefix(p, "qTsP"),
		p == "qfThreadInfo", strings.HasPrefix(p, "qL"),
		strings.HasPrefix(p, "qC"), strings.HasPrefix(p, "qOffsets"),
		strings.HasPrefix(p, "Z0"):
		return reply(""), false, awaitsHalt

	case strings.HasPrefix(p, "qAttached"):
		return reply("1"), false, awaitsHalt

	case p == "?":
		return reply("S05"), false, awaitsHalt

	case p == "g":
		// General register dump is not implemented; the placeholder keeps
		// GDB's register-read path from stalling on a malformed reply.
		return reply("xxxxxxxx"), false, awaitsHalt

	case strings.HasPrefix(p, "p"):
		return dispatchReadReg(p, engine, awaitsHalt)

	case strings.HasPrefix(p, "m"):
		return dispatchReadMem(p, engine, awaitsHalt)

	case p == "vCont?":
		return reply("vCont;c;t;s"), false, awaitsHalt

	case p == "c", p == "vCont;c":
		if err := engine.Run(); err != nil {
			return nil, true, awaitsHalt
		}
		return nil, false, true

	case p == "vCont;t":
		if _, err := engine.Halt(); err != nil {
			return nil, true, awaitsHalt
		}
		return reply("OK"), false, false

	case p == "s", p == "vCont;s":
		if _, err := engine.Step(); err != nil {
			return nil, true, awaitsHalt
		}
		return reply("S05"), false, false

	case strings.HasPrefix(p, "Z1,"):
		return dispatchSetBreakpoint(p, engine, awaitsHalt)

	case strings.HasPrefix(p, "z1,"):
		return dispatchClearBreakpoint(p, engine, awaitsHalt)

	case strings.HasPrefix(p, "X"):
		return dispatchWriteMem(p, engine, awaitsHalt)

	// The windowed memory-map reply is served only for the correctly
	// spelled "qXfer:memory-map:read:" prefix advertised in qSupported; a
	// misspelled "qXfer:memory-mapb:read" packet is not matched here and
	// falls through to the default "OK" reply.
	case strings.HasPrefix(p, "qXfer:memory-map:read:"):
		return dispatchMemoryMap(p, awaitsHalt)

	case p == "\x03":
		if _, err := engine.Halt(); err != nil {
			return nil, true, awaitsHalt
		}
		return reply("T05hwbreak:;"), false, false

	case p == "D":
		return reply("OK"), true, awaitsHalt

	case strings.HasPrefix(p, "qRcmd,"):
		return dispatchMonitorCommand(engine, awaitsHalt)

	default:
		return reply("OK"), false, awaitsHalt
	}
}

func parseHex32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func dispatchReadReg(p string, engine *armdebug.Engine, awaitsHalt bool) (*string, bool, bool) {
	regSel, err := parseHex32(p[1:])
	if err != nil {
		return reply(""), false, awaitsHalt
	}

	if _, err := engine.Halt(); err != nil {
		return nil, true, awaitsHalt
	}

	value, err := engine.ReadCoreReg(regSel)
	if err != nil {
		return nil, true, awaitsHalt
	}

	return reply(fmt.Sprintf("%02x%02x%02x%02x",
		value&0xff, (value>>8)&0xff, (value>>16)&0xff, (value>>24)&0xff)), false, awaitsHalt
}

func dispatchReadMem(p string, engine *armdebug.Engine, awaitsHalt bool) (*string, bool, bool) {
	addr, length, err := parseAddrLen(p[1:])
	if err != nil {
		return reply(""), false, awaitsHalt
	}

	buf := make([]byte, length)
	if err := engine.Memory().ReadBlock8(addr, buf); err != nil {
		return nil, true, awaitsHalt
	}

	return reply(fmt.Sprintf("%x", buf)), false, awaitsHalt
}

func parseAddrLen(s string) (uint32, uint32, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed addr,len field %q", s)
	}
	addr, err := parseHex32(parts[0])
	if err != nil {
		return 0, 0, err
	}
	length, err := parseHex32(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return addr, length, nil
}

func dispatchSetBreakpoint(p string, engine *armdebug.Engine, awaitsHalt bool) (*string, bool, bool) {
	addr, _, err := parseAddrLen(p[len("Z1,"):])
	if err != nil {
		return reply(""), false, awaitsHalt
	}

	if _, err := engine.ResetAndHalt(); err != nil {
		return nil, true, awaitsHalt
	}
	if err := engine.SetHWBreakpoint(addr); err != nil {
		return nil, true, awaitsHalt
	}
	if err := engine.Run(); err != nil {
		return nil, true, awaitsHalt
	}

	return reply("OK"), false, awaitsHalt
}

func dispatchClearBreakpoint(p string, engine *armdebug.Engine, awaitsHalt bool) (*string, bool, bool) {
	addr, _, err := parseAddrLen(p[len("z1,"):])
	if err != nil {
		return reply(""), false, awaitsHalt
	}

	if _, err := engine.ResetAndHalt(); err != nil {
		return nil, true, awaitsHalt
	}
	if err := engine.ClearHWBreakpoint(addr); err != nil {
		return nil, true, awaitsHalt
	}
	if err := engine.Run(); err != nil {
		return nil, true, awaitsHalt
	}

	return reply("OK"), false, awaitsHalt
}

// dispatchWriteMem handles "X<addr>,<len>:<raw>". The payload reaching here
// has already been RSP-unescaped by the packet codec, so the tail after the
// colon is exactly len(raw) == the declared length; no end-relative slicing
// is needed (the source computed the tail as payload[len()-length..], which
// breaks whenever escaped bytes shrink the encoded length below the raw
// byte count).
func dispatchWriteMem(p string, engine *armdebug.Engine, awaitsHalt bool) (*string, bool, bool) {
	colon := strings.IndexByte(p, ':')
	if colon < 0 {
		return reply(""), false, awaitsHalt
	}

	addr, length, err := parseAddrLen(p[1:colon])
	if err != nil {
		return reply(""), false, awaitsHalt
	}

	data := []byte(p[colon+1:])
	if uint32(len(data)) > length {
		data = data[:length]
	}

	if err := engine.Memory().WriteBlock8(addr, data); err != nil {
		return nil, true, awaitsHalt
	}

	return reply("OK"), false, awaitsHalt
}

func dispatchMemoryMap(p string, awaitsHalt bool) (*string, bool, bool) {
	rest := p[len("qXfer:memory-map:read:"):]
	parts := strings.SplitN(rest, ":", 2)
	offsetLen := parts[0]
	if len(parts) == 2 {
		offsetLen = parts[1]
	}

	fields := strings.SplitN(offsetLen, ",", 2)
	if len(fields) != 2 {
		return reply(""), false, awaitsHalt
	}
	offset, err := parseHex32(fields[0])
	if err != nil {
		return reply(""), false, awaitsHalt
	}
	length, err := parseHex32(fields[1])
	if err != nil {
		return reply(""), false, awaitsHalt
	}

	return reply(windowXfer(memoryMapXML, int(offset), int(length))), false, awaitsHalt
}

// windowXfer implements the qXfer windowing rule: slice [offset, offset+n),
// clamped to the data length, prefixed with "m" if the full requested
// length was returned or "l" if this was the final (possibly short) chunk.
func windowXfer(data string, offset, length int) string {
	if offset > len(data) {
		return "l"
	}
	end := offset + length
	if end > len(data) {
		end = len(data)
	}
	slice := data[offset:end]
	if len(slice) >= length {
		return "m" + slice
	}
	return "l" + slice
}

func dispatchMonitorCommand(engine *armdebug.Engine, awaitsHalt bool) (*string, bool, bool) {
	if err := engine.Reset(); err != nil {
		return nil, true, awaitsHalt
	}
	if _, err := engine.Halt(); err != nil {
		return nil, true, awaitsHalt
	}
	return reply("OK"), false, awaitsHalt
}
