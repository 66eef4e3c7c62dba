// Package symbols resolves named addresses from a linker map-style symbol
// file and dereferences pointers stored at them in target memory.
//
// Adapted from a 64TASS assembler label file reader ("LABEL = $ADDRESS",
// string-valued 6502 16-bit addresses). This version generalizes the
// format to plain "NAME = ADDRESS" lines (hex with an optional 0x prefix,
// the common shape emitted by a GNU linker map or a hand-written symbol
// list) and resolves to uint32 addresses so it can feed the lookup/deref
// CLI commands directly, and Deref reads a 32-bit little-endian pointer
// the way ARM's memory bus stores one, in place of a 24-bit little-endian
// 6502/65816 pointer convention.
package symbols

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/daschewie/cm4gdbridge/pkg/memprobe"
)

// Table holds the name -> address mapping parsed from a symbol file.
type Table struct {
	addresses map[string]uint32
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{addresses: make(map[string]uint32)}
}

var symbolLine = regexp.MustCompile(`^(\S+)\s*=\s*(0[xX])?([0-9a-fA-F]+)`)

// Load parses a symbol file of "NAME = ADDRESS" lines, one per non-empty,
// non-comment line. ';' and '#' start a line comment.
func (t *Table) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open symbol file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		matches := symbolLine.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		name := matches[1]
		addr, err := strconv.ParseUint(matches[3], 16, 32)
		if err != nil {
			return fmt.Errorf("invalid address at line %d: %w", lineNum, err)
		}
		t.addresses[name] = uint32(addr)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading symbol file: %w", err)
	}
	if len(t.addresses) == 0 {
		return fmt.Errorf("no symbols found in file")
	}

	return nil
}

// Lookup returns the address bound to name.
func (t *Table) Lookup(name string) (uint32, error) {
	addr, ok := t.addresses[name]
	if !ok {
		return 0, fmt.Errorf("symbol %q not found", name)
	}
	return addr, nil
}

// Count returns the number of symbols loaded.
func (t *Table) Count() int {
	return len(t.addresses)
}

// Deref resolves name to an address, then reads the 32-bit little-endian
// pointer value stored at that address in target memory.
func (t *Table) Deref(name string, mem memprobe.Memory) (uint32, error) {
	addr, err := t.Lookup(name)
	if err != nil {
		return 0, err
	}
	return mem.Read32(addr)
}
