// Package asmwriter renders an arm64.Stream as Mach-O-compatible
// textual assembly (spec.md §6's `--asm` output). It makes no
// decisions the encoder, linker, or code generator have not already
// made: every relocation's target is still a symbolic name (never a
// resolved address), so this package runs independently of — and
// never after — `link.Link`, whose patched `Encoding` bits it never
// reads.
package asmwriter

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/runtimeabi"
)

// real pairs one non-label instruction with the label names bound to
// it — the same stream-order grouping link.layOut and peephole.realize
// use, duplicated locally rather than exported from either (a one-shot
// reader of the Stream has no reason to depend on either package).
type real struct {
	inst   arm64.Instruction
	labels []string
}

func realize(raw []arm64.Instruction) []real {
	var out []real
	var pending []string
	for _, inst := range raw {
		if inst.IsLabel {
			pending = append(pending, inst.LabelName)
			continue
		}
		out = append(out, real{inst: inst, labels: pending})
		pending = nil
	}
	return out
}

// Write renders s as a complete Mach-O assembly source file. entry is
// the function whose label becomes the process entry point
// (`_start`/`_START`); rt resolves which BL targets are external
// runtime functions (declared `.globl _<name>`) rather than ordinary
// Stream labels.
func Write(s *arm64.Stream, rt *runtimeabi.Registry, entry string) (string, error) {
	reals := realize(s.Instructions)

	var code, rodata, data []real
	for _, r := range reals {
		switch r.inst.Segment {
		case arm64.SegCode:
			code = append(code, r)
		case arm64.SegRodata:
			rodata = append(rodata, r)
		case arm64.SegData:
			data = append(data, r)
		default:
			return "", errors.Errorf("asmwriter: instruction %q has no valid segment", r.inst.Mnemonic)
		}
	}

	var buf bytes.Buffer
	writeGlobals(&buf, code, rt)

	buf.WriteString(".section __TEXT,__text,regular,pure_instructions\n")
	for _, r := range code {
		writeLabels(&buf, r.labels, entry)
		line, err := formatCodeLine(r.inst, rt, entry)
		if err != nil {
			return "", err
		}
		if line != "" {
			fmt.Fprintf(&buf, "\t%s\n", line)
		}
	}

	buf.WriteString("\n.section __TEXT,__const\n")
	if err := writeDataSection(&buf, rodata, entry); err != nil {
		return "", err
	}

	buf.WriteString("\n.section __DATA,__data\n")
	if err := writeDataSection(&buf, data, entry); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// writeGlobals emits `.globl _start`/`.globl _START` plus one
// `.globl _<name>` for every runtime function code actually calls
// directly (spec.md §6), in sorted order for deterministic output.
func writeGlobals(buf *bytes.Buffer, code []real, rt *runtimeabi.Registry) {
	buf.WriteString(".globl _start\n")
	buf.WriteString(".globl _START\n")

	seen := make(map[string]bool)
	var names []string
	for _, r := range code {
		if r.inst.Mnemonic != "bl" || r.inst.Reloc != arm64.RelocBranch26 {
			continue
		}
		if rt == nil {
			continue
		}
		if _, ok := rt.Lookup(r.inst.Target); !ok {
			continue
		}
		if !seen[r.inst.Target] {
			seen[r.inst.Target] = true
			names = append(names, r.inst.Target)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(buf, ".globl _%s\n", name)
	}
}

// localLabel renames a Stream label by prefixing it with `L_` (spec.md
// §6: "labels are renamed so that local labels gain an L_ prefix").
// Labels the data package already mints (`L_float_0`, `L_str_0`,
// `L__data_segment_base`) already carry the prefix and pass through
// unchanged.
func localLabel(name string) string {
	if strings.HasPrefix(name, "L_") {
		return name
	}
	return "L_" + name
}

// writeLabels renders every label bound to one instruction, special-
// casing the designated entry point as the two symbols Mach-O expects
// (`_start`/`_START`) rather than an `L_`-prefixed local label.
func writeLabels(buf *bytes.Buffer, labels []string, entry string) {
	for _, name := range labels {
		if name == entry {
			buf.WriteString("_start:\n_START:\n")
			continue
		}
		fmt.Fprintf(buf, "%s:\n", localLabel(name))
	}
}

// branchTarget resolves a branch's Target to its assembly-level
// symbol: the entry alias, an external runtime symbol (`_<name>`,
// matching the `.globl` declared above), or an ordinary local label.
func branchTarget(target string, rt *runtimeabi.Registry, entry string) string {
	if target == entry {
		return "_start"
	}
	if rt != nil {
		if _, ok := rt.Lookup(target); ok {
			return "_" + target
		}
	}
	return localLabel(target)
}

var (
	adrpOperandRe       = regexp.MustCompile(`^adrp (\S+), `)
	addRelocOperandRe   = regexp.MustCompile(`^add (\S+), (\S+), `)
	ldrLiteralOperandRe = regexp.MustCompile(`^ldr (\S+), `)
)

// formatCodeLine renders one code instruction's assembly text,
// substituting a renamed/resolved symbol wherever the original
// Operands carried a relocation's raw target name. Every other
// mnemonic's Operands already is complete, literal text (register
// names and immediates never need renaming).
func formatCodeLine(inst arm64.Instruction, rt *runtimeabi.Registry, entry string) (string, error) {
	switch inst.Reloc {
	case arm64.RelocBranch26, arm64.RelocCondBranch19:
		if inst.Mnemonic == "ldr" {
			m := ldrLiteralOperandRe.FindStringSubmatch(inst.Operands)
			if m == nil {
				return "", errors.Errorf("asmwriter: malformed literal-load operands %q", inst.Operands)
			}
			return fmt.Sprintf("ldr %s, %s", m[1], localLabel(inst.Target)), nil
		}
		return fmt.Sprintf("%s %s", inst.Mnemonic, branchTarget(inst.Target, rt, entry)), nil

	case arm64.RelocPage21:
		m := adrpOperandRe.FindStringSubmatch(inst.Operands)
		if m == nil {
			return "", errors.Errorf("asmwriter: malformed adrp operands %q", inst.Operands)
		}
		return fmt.Sprintf("adrp %s, %s@PAGE", m[1], localLabel(inst.Target)), nil

	case arm64.RelocAdd12:
		m := addRelocOperandRe.FindStringSubmatch(inst.Operands)
		if m == nil {
			return "", errors.Errorf("asmwriter: malformed add operands %q", inst.Operands)
		}
		return fmt.Sprintf("add %s, %s, %s@PAGEOFF", m[1], m[2], localLabel(inst.Target)), nil

	case arm64.RelocMovWide, arm64.RelocAbsHi32, arm64.RelocAbsLo32:
		if inst.IsJIT {
			// The JIT-assigned base/address load has no static-assembly
			// form; code built for `--asm` output never reaches this
			// branch (codegen only emits MOVZReloc/MOVKReloc when
			// Config.JITMode is set), so an empty line here would only
			// ever surface a driver-level mode mismatch, not silently
			// miscompile static output.
			return "", errors.Errorf("asmwriter: JIT-tagged instruction %q %q has no static assembly form", inst.Mnemonic, inst.Operands)
		}
		return inst.Operands, nil

	default:
		return inst.Operands, nil
	}
}

// writeDataSection renders one rodata/data segment's records: a
// `quad.hi`/`quad.lo` pair from DataRaw64 becomes one `.quad`, a
// `long` from DataWord32 becomes one `.long`. A `dword.hi`/`dword.lo`
// pair (DataWord64, the runtime table/JIT-global-address form) is
// skipped — spec.md §6: "the runtime function-pointer table and the
// data-segment base label are elided from the assembly (they are
// JIT-only)".
func writeDataSection(buf *bytes.Buffer, reals []real, entry string) error {
	for i := 0; i < len(reals); {
		r := reals[i]
		if r.inst.Mnemonic != "dword.hi" {
			writeLabels(buf, r.labels, entry)
		}

		switch r.inst.Mnemonic {
		case "quad.hi":
			if i+1 >= len(reals) || reals[i+1].inst.Mnemonic != "quad.lo" {
				return errors.Errorf("asmwriter: quad.hi at index %d has no matching quad.lo", i)
			}
			value := uint64(r.inst.Encoding)<<32 | uint64(reals[i+1].inst.Encoding)
			fmt.Fprintf(buf, "\t.quad %d\n", value)
			i += 2

		case "long":
			fmt.Fprintf(buf, "\t.long %d\n", r.inst.Encoding)
			i++

		case "dword.hi":
			if i+1 >= len(reals) || reals[i+1].inst.Mnemonic != "dword.lo" {
				return errors.Errorf("asmwriter: dword.hi at index %d has no matching dword.lo", i)
			}
			i += 2

		default:
			return errors.Errorf("asmwriter: unexpected data-segment record %q", r.inst.Mnemonic)
		}
	}
	return nil
}
