package space

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"sa-mdl-tools/internal/errors"
)

// Writer is an append-only output buffer. The cursor normally sits at the
// end; SeekAbsolute moves it back over already written bytes so placeholder
// fields can be patched, after which SeekEnd must be called.
type Writer struct {
	buf []byte
	pos int
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 4096)}
}

// Tell returns the current cursor address.
func (w *Writer) Tell() uint32 { return uint32(w.pos) }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the written buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// SeekAbsolute moves the cursor to addr, which must lie within written data.
func (w *Writer) SeekAbsolute(addr uint32) error {
	if int(addr) > len(w.buf) {
		return errors.New(errors.PhaseWrite, errors.KindOutOfRange).
			At(addr).
			Detail("seek past end of written data (%d bytes)", len(w.buf)).
			Build()
	}
	w.pos = int(addr)
	return nil
}

// SeekEnd moves the cursor back to the end of the stream.
func (w *Writer) SeekEnd() { w.pos = len(w.buf) }

func (w *Writer) put(b []byte) {
	end := w.pos + len(b)
	if end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	copy(w.buf[w.pos:end], b)
	w.pos = end
}

func (w *Writer) WriteU8(v uint8) { w.put([]byte{v}) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

func (w *Writer) WriteVec3(v mgl32.Vec3) {
	w.WriteF32(v[0])
	w.WriteF32(v[1])
	w.WriteF32(v[2])
}

func (w *Writer) WriteBytes(b []byte) { w.put(b) }

// WriteCString writes s followed by a zero byte.
func (w *Writer) WriteCString(s string) {
	w.put([]byte(s))
	w.WriteU8(0)
}

// Align pads with zeros until the cursor is a multiple of n.
func (w *Writer) Align(n int) {
	for w.pos%n != 0 {
		w.WriteU8(0)
	}
}

// PatchU32 overwrites a previously written field and returns to the end.
func (w *Writer) PatchU32(addr, v uint32) error {
	if int(addr)+4 > len(w.buf) {
		return errors.New(errors.PhaseWrite, errors.KindOutOfRange).
			At(addr).
			Detail("patch outside written data (%d bytes)", len(w.buf)).
			Build()
	}
	if err := w.SeekAbsolute(addr); err != nil {
		return err
	}
	w.WriteU32(v)
	w.SeekEnd()
	return nil
}
