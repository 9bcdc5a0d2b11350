// Package data populates the rodata and data segments: float and
// string literal interning (deduplicated by value, spec.md §3 "Data
// literals"), and initial-value words for GLOBAL/STATIC declarations
// (spec.md §6). The code generator calls into a Builder whenever it
// lowers a FloatLiteral or StringLiteral expression, and the top-level
// compile pipeline calls it once per GlobalDeclaration before function
// code generation begins.
package data

import (
	"fmt"
	"math"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
)

// stringPadWords is the trailing NUL padding spec.md §6 specifies for
// every string literal's rodata record (".long 0,0,0,0").
const stringPadWords = 4

// Builder interns literal values into s's rodata segment and returns
// the label the code generator's ADRP/ADD + LDR (or LDR-literal)
// sequence should target. Not concurrency-safe: owned by the single
// goroutine running code generation for one compilation unit.
type Builder struct {
	stream *arm64.Stream

	floatLabels  map[uint64]string
	stringLabels map[string]string

	nextFloat  int
	nextString int
	nextTable  int
}

// NewBuilder returns a Builder appending to s.
func NewBuilder(s *arm64.Stream) *Builder {
	return &Builder{
		stream:       s,
		floatLabels:  make(map[uint64]string),
		stringLabels: make(map[string]string),
	}
}

// Float interns v, emitting a fresh rodata record only the first time
// v's bit pattern is seen, and returns its label.
func (b *Builder) Float(v float64) string {
	bits := math.Float64bits(v)
	if lbl, ok := b.floatLabels[bits]; ok {
		return lbl
	}
	lbl := fmt.Sprintf("L_float_%d", b.nextFloat)
	b.nextFloat++
	b.floatLabels[bits] = lbl
	b.stream.Label(lbl)
	b.stream.DataRaw64(bits, arm64.SegRodata)
	return lbl
}

// String interns runes as a UTF-32 rodata record: a 64-bit length
// prefix, one 32-bit word per code point, then stringPadWords zero
// words, and returns its label.
func (b *Builder) String(runes []rune) string {
	key := string(runes)
	if lbl, ok := b.stringLabels[key]; ok {
		return lbl
	}
	lbl := fmt.Sprintf("L_str_%d", b.nextString)
	b.nextString++
	b.stringLabels[key] = lbl

	b.stream.Label(lbl)
	b.stream.DataRaw64(uint64(len(runes)), arm64.SegRodata)
	for _, r := range runes {
		b.stream.DataWord32(uint32(r), arm64.SegRodata)
	}
	for i := 0; i < stringPadWords; i++ {
		b.stream.DataWord32(0, arm64.SegRodata)
	}
	return lbl
}

// Table interns a TABLE(...) literal's compile-time constant words
// into rodata, one .quad per word in order, and returns its label
// (spec.md §4.9: "distinct from a VEC allocation in that its contents
// are compiled constants"). Unlike Float/String this is never
// deduplicated: a TABLE site's identity, not just its bit pattern,
// matters to anything that takes its address.
func (b *Builder) Table(words []uint64) string {
	lbl := fmt.Sprintf("L_table_%d", b.nextTable)
	b.nextTable++
	b.stream.Label(lbl)
	for _, w := range words {
		b.stream.DataRaw64(w, arm64.SegRodata)
	}
	return lbl
}

// Global emits label's single initial-value word into the data
// segment (spec.md §6: "each global variable appears as a single
// .quad of its initial value").
func (b *Builder) Global(label string, initial int64) {
	b.stream.Label(label)
	b.stream.DataRaw64(uint64(initial), arm64.SegData)
}

// Canary emits the process-wide stack-canary word at the well-known
// label frame.Frame's prologue/epilogue reference (spec.md §4.7);
// value is expected to be a reasonably unpredictable 64-bit pattern
// chosen by the driver at compile time.
func (b *Builder) Canary(label string, value uint64) {
	b.stream.Label(label)
	b.stream.DataRaw64(value, arm64.SegRodata)
}
