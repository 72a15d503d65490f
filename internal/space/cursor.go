package space

import "github.com/go-gl/mathgl/mgl32"

// Cursor reads consecutive fields starting at an address. The first failure
// is kept and every later read returns zero, so a record can be decoded
// field by field and checked once with Err.
type Cursor struct {
	r   *Reader
	off uint32
	err error
}

// At returns a cursor positioned at addr.
func (r *Reader) At(addr uint32) *Cursor {
	return &Cursor{r: r, off: addr}
}

// Offset returns the address of the next field.
func (c *Cursor) Offset() uint32 { return c.off }

// Err returns the first read failure.
func (c *Cursor) Err() error { return c.err }

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) { c.off += uint32(n) }

func (c *Cursor) U8() uint8 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.U8(c.off)
	c.err = err
	c.off++
	return v
}

func (c *Cursor) U16() uint16 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.U16(c.off)
	c.err = err
	c.off += 2
	return v
}

func (c *Cursor) I16() int16 {
	return int16(c.U16())
}

func (c *Cursor) U32() uint32 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.U32(c.off)
	c.err = err
	c.off += 4
	return v
}

func (c *Cursor) I32() int32 {
	return int32(c.U32())
}

func (c *Cursor) F32() float32 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.F32(c.off)
	c.err = err
	c.off += 4
	return v
}

// Vec3 reads three consecutive float32 values.
func (c *Cursor) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{c.F32(), c.F32(), c.F32()}
}
