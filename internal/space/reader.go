package space

import (
	"bytes"
	"encoding/binary"
	"math"

	"sa-mdl-tools/internal/errors"
)

// Reader is a read-only view over one model file. Addresses are absolute
// byte offsets into the same buffer and are validated on every access.
type Reader struct {
	data  []byte
	phase errors.Phase
}

// NewReader wraps data. The slice must not be modified while the reader is in use.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, phase: errors.PhaseRead}
}

// WithPhase returns a reader over the same buffer that tags failures with phase.
func (r *Reader) WithPhase(phase errors.Phase) *Reader {
	return &Reader{data: r.data, phase: phase}
}

// Len returns the buffer length.
func (r *Reader) Len() int {
	return len(r.data)
}

func (r *Reader) span(addr uint32, n int) ([]byte, error) {
	end := uint64(addr) + uint64(n)
	if end > uint64(len(r.data)) {
		return nil, errors.New(r.phase, errors.KindOutOfRange).
			At(addr).
			Detail("read of %d bytes exceeds buffer length %d", n, len(r.data)).
			Build()
	}
	return r.data[addr:end], nil
}

func (r *Reader) U8(addr uint32) (uint8, error) {
	b, err := r.span(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) U16(addr uint32) (uint16, error) {
	b, err := r.span(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) I16(addr uint32) (int16, error) {
	v, err := r.U16(addr)
	return int16(v), err
}

func (r *Reader) U32(addr uint32) (uint32, error) {
	b, err := r.span(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) I32(addr uint32) (int32, error) {
	v, err := r.U32(addr)
	return int32(v), err
}

func (r *Reader) U64(addr uint32) (uint64, error) {
	b, err := r.span(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) I64(addr uint32) (int64, error) {
	v, err := r.U64(addr)
	return int64(v), err
}

func (r *Reader) F32(addr uint32) (float32, error) {
	v, err := r.U32(addr)
	return math.Float32frombits(v), err
}

// Bytes returns n bytes at addr. The result aliases the buffer.
func (r *Reader) Bytes(addr uint32, n int) ([]byte, error) {
	return r.span(addr, n)
}

// CString reads a zero-terminated string. A string that runs to the end of
// the buffer without a terminator is out of range.
func (r *Reader) CString(addr uint32) (string, error) {
	if uint64(addr) >= uint64(len(r.data)) {
		return "", errors.New(r.phase, errors.KindOutOfRange).
			At(addr).
			Detail("string start beyond buffer length %d", len(r.data)).
			Build()
	}
	rest := r.data[addr:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return "", errors.New(r.phase, errors.KindOutOfRange).
			At(addr).
			Detail("unterminated string").
			Build()
	}
	return string(rest[:i]), nil
}
