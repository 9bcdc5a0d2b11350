// Package arm64 implements the AArch64 Instruction Stream and encoder
// spec.md §4.10 describes: Instruction records whose encoding is fully
// formed for non-relocated instructions and left pending (relocation-
// tagged) for anything the Linker (package link) must patch in its
// second pass.
package arm64

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// regIndex returns the 5-bit encoding of a register name: X0-X30,
// W0-W30, XZR/WZR (31), SP (31, context-dependent), D0-D31, V0-V31.
func regIndex(name string) (uint32, error) {
	n := strings.ToUpper(name)
	switch n {
	case "XZR", "WZR", "SP":
		return 31, nil
	}
	if len(n) < 2 {
		return 0, errors.Errorf("arm64: malformed register name %q", name)
	}
	idx, err := strconv.Atoi(n[1:])
	if err != nil || idx < 0 || idx > 31 {
		return 0, errors.Errorf("arm64: malformed register name %q", name)
	}
	return uint32(idx), nil
}

// isFPReg reports whether name names a D (double) or V (vector)
// register, as opposed to a GP X/W register.
func isFPReg(name string) bool {
	if name == "" {
		return false
	}
	switch name[0] {
	case 'd', 'D', 'v', 'V':
		return true
	default:
		return false
	}
}
