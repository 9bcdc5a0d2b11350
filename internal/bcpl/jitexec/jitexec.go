// Package jitexec implements the JIT execution backend spec.md §6
// describes: two mmap'd regions (a code buffer flipped RW->RX before
// execution, and a data buffer holding globals, a gap, and the
// runtime function-pointer table at a fixed offset) and a synchronous
// "compiler calls mprotect, jumps to it" execution model (spec.md §5).
// Signal handling for a JIT fault (SIGILL/SIGSEGV) is explicitly out of
// scope (spec.md §1) and remains the C runtime's job; the only
// recoverable failure this package reports is a Go-level panic, which
// only ever comes from this package's own bounds checks, never from
// the executed machine code itself.
package jitexec

import (
	"encoding/binary"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// runtimeTableOffset mirrors runtimeabi's tableBase: the runtime
// function-pointer table starts this many bytes into the data buffer
// (spec.md §6: "starting at offset 524288"), duplicated here rather
// than imported since runtimeabi's constant is unexported and this is
// the only other package that needs the raw byte offset (the code
// generator only ever needs it relative to X28, via
// runtimeabi.Registry.TableOffset).
const runtimeTableOffset = 524288

// maxRuntimeSlots and runtimeSlotSize mirror runtimeabi's own bounds
// (spec.md §6: "up to 256 entries" of "a single absolute address").
const (
	maxRuntimeSlots = 256
	runtimeSlotSize = 8
)

// dataRegionSize is the data buffer's total size: the fixed table
// offset plus the full table, regardless of how much of the leading
// region the compiled globals actually use (spec.md §6's "512 KiB
// gap" is exactly the unused space between the end of .data and the
// table, not extra space beyond the table).
const dataRegionSize = runtimeTableOffset + maxRuntimeSlots*runtimeSlotSize

// Buffer holds one compilation's JIT code and data regions. Not
// concurrency-safe: one Buffer is built, populated, protected, and
// executed by a single driver goroutine per spec.md §5's
// single-threaded pipeline model.
type Buffer struct {
	Code []byte
	Data []byte

	protected bool
}

// NewBuffer mmaps a codeSize-byte code region and a fixed-size data
// region sized to hold dataSize bytes of globals before the
// runtime-table offset. codeSize/dataSize come from the Linker's
// Layout (CodeSize/DataSize).
func NewBuffer(codeSize, dataSize int) (*Buffer, error) {
	if dataSize > runtimeTableOffset {
		return nil, errors.Errorf("jitexec: data segment (%d bytes) overflows the %d-byte region reserved before the runtime function-pointer table", dataSize, runtimeTableOffset)
	}
	if codeSize <= 0 {
		codeSize = 1
	}

	code, err := unix.Mmap(-1, 0, codeSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "jitexec: mmap code buffer")
	}

	data, err := unix.Mmap(-1, 0, dataRegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		_ = unix.Munmap(code)
		return nil, errors.Wrap(err, "jitexec: mmap data buffer")
	}

	return &Buffer{Code: code, Data: data}, nil
}

// WriteCode copies the linked code+rodata bytes into the code buffer.
// Must be called before Protect.
func (b *Buffer) WriteCode(code []byte) error {
	if b.protected {
		return errors.New("jitexec: WriteCode called after Protect")
	}
	if len(code) > len(b.Code) {
		return errors.Errorf("jitexec: %d bytes of code exceeds the %d-byte code buffer", len(code), len(b.Code))
	}
	copy(b.Code, code)
	return nil
}

// WriteData copies the linked data segment's initial bytes into the
// leading region of the data buffer.
func (b *Buffer) WriteData(data []byte) error {
	if len(data) > runtimeTableOffset {
		return errors.Errorf("jitexec: %d bytes of data exceeds the %d-byte region reserved before the runtime table", len(data), runtimeTableOffset)
	}
	copy(b.Data, data)
	return nil
}

// WriteRuntimeSlot writes addr, a registered runtime function's
// resolved absolute address, into its fixed 8-byte slot
// (runtimeabi.Entry.SlotOffset) before JIT execution begins (spec.md
// §6: "the driver, before invoking the JIT, writes each function's
// absolute address into its slot").
func (b *Buffer) WriteRuntimeSlot(slotOffset int, addr uint64) error {
	if slotOffset < 0 || slotOffset+runtimeSlotSize > maxRuntimeSlots*runtimeSlotSize {
		return errors.Errorf("jitexec: runtime slot offset %d out of range", slotOffset)
	}
	binary.LittleEndian.PutUint64(b.Data[runtimeTableOffset+slotOffset:], addr)
	return nil
}

// DataBase returns the data buffer's base address as the code
// generator's X28 needs it (spec.md §4.9.2).
func (b *Buffer) DataBase() uint64 {
	return uint64(uintptr(unsafe.Pointer(&b.Data[0])))
}

// CodeBase returns the code buffer's base address, the Linker's
// codeBase parameter in JIT mode.
func (b *Buffer) CodeBase() uint64 {
	return uint64(uintptr(unsafe.Pointer(&b.Code[0])))
}

// Protect flips the code buffer from RW to RX (spec.md §5: "the
// compiler calls mprotect to flip the JIT buffer executable"). No
// further WriteCode call is permitted afterward.
func (b *Buffer) Protect() error {
	if err := unix.Mprotect(b.Code, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return errors.Wrap(err, "jitexec: mprotect code buffer executable")
	}
	b.protected = true
	return nil
}

// Close unmaps both regions. Safe to call once, after Execute.
func (b *Buffer) Close() error {
	if err := unix.Munmap(b.Code); err != nil {
		return errors.Wrap(err, "jitexec: munmap code buffer")
	}
	if err := unix.Munmap(b.Data); err != nil {
		return errors.Wrap(err, "jitexec: munmap data buffer")
	}
	return nil
}

// entryFunc is the signature every compiled entry point is assumed to
// honor: no arguments, the AArch64 function's final RET returning
// through X30 with W0 read back as a Go int32 (spec.md §6's "Exit
// codes" paragraph — a diagnosed program either calls the FINISH
// runtime intrinsic, which terminates the process directly, or falls
// off its own RET and this value is what Execute reports).
type entryFunc func() int32

// Execute jumps into the code buffer at jitOffset (the resolved
// address of entrySymbol, minus CodeBase, computed by the driver from
// the Linker's label map) and reports the entry function's return
// value as an exit code. entrySymbol is carried only for error
// messages.
//
// The function-pointer construction below (`*(*entryFunc)(unsafe.Pointer(&p))`)
// is the standard, unsupported-by-the-Go-runtime trick every from-scratch
// Go JIT relies on to invoke a raw code address as a Go call: there is
// no cgo boundary and no platform trampoline here, so arguments beyond
// zero are not representable this way (spec.md's ABI never needs the
// Go side to pass JIT entry arguments). A hardware trap inside the
// executed machine code (a bad branch target, an illegal instruction)
// is not a Go panic and will not be caught by the deferred recover
// below — the process terminates via signal exactly as spec.md's
// "signal-terminated on JIT faults" describes. The recover only
// catches failures in Execute's own Go-level bookkeeping, such as an
// out-of-range jitOffset indexing a too-small Code slice, which is how
// this package's tests exercise the failure path without ever running
// real machine code.
func (b *Buffer) Execute(entrySymbol string, jitOffset int) (exitCode int, err error) {
	if !b.protected {
		return 0, errors.Errorf("jitexec: Execute(%q) called before Protect", entrySymbol)
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("jitexec: entry %q at offset %d failed: %v", entrySymbol, jitOffset, r)
		}
	}()

	p := unsafe.Pointer(&b.Code[jitOffset])
	fn := *(*entryFunc)(unsafe.Pointer(&p))
	return int(fn()), nil
}
