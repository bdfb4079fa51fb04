package gpu

import (
	"errors"
	"fmt"
	"math"

	"github.com/jezek/xgb"
)

// ErrBadCommand is returned by ParseCommands for malformed input.
var ErrBadCommand = errors.New("malformed render command")

// CommandBuffer accumulates GL render commands in GLX wire format. Each
// command is a 4 byte header (total length, opcode) followed by its
// arguments, in client byte order.
type CommandBuffer struct {
	buf []byte
}

// Bytes returns the encoded commands. The slice is reused after Reset.
func (b *CommandBuffer) Bytes() []byte { return b.buf }

// Len returns the encoded size in bytes.
func (b *CommandBuffer) Len() int { return len(b.buf) }

// Reset empties the buffer, keeping its storage.
func (b *CommandBuffer) Reset() { b.buf = b.buf[:0] }

func (b *CommandBuffer) put(op uint16, args ...uint32) {
	n := 4 + 4*len(args)
	off := len(b.buf)
	b.buf = append(b.buf, make([]byte, n)...)
	xgb.Put16(b.buf[off:], uint16(n))
	xgb.Put16(b.buf[off+2:], op)
	for i, a := range args {
		xgb.Put32(b.buf[off+4+4*i:], a)
	}
}

func f32(v float32) uint32 { return math.Float32bits(v) }

func (b *CommandBuffer) Viewport(x, y, width, height int32) {
	b.put(OpViewport, uint32(x), uint32(y), uint32(width), uint32(height))
}

func (b *CommandBuffer) ClearColor(r, g, bl, a float32) {
	b.put(OpClearColor, f32(r), f32(g), f32(bl), f32(a))
}

func (b *CommandBuffer) Clear(mask uint32) { b.put(OpClear, mask) }

func (b *CommandBuffer) Enable(capability uint32) { b.put(OpEnable, capability) }

func (b *CommandBuffer) BindTexture(target, texture uint32) {
	b.put(OpBindTexture, target, texture)
}

func (b *CommandBuffer) TexParameteri(target, pname uint32, param int32) {
	b.put(OpTexParameteri, target, pname, uint32(param))
}

func (b *CommandBuffer) Begin(mode uint32) { b.put(OpBegin, mode) }

func (b *CommandBuffer) End() { b.put(OpEnd) }

func (b *CommandBuffer) TexCoord2f(s, t float32) { b.put(OpTexCoord2fv, f32(s), f32(t)) }

func (b *CommandBuffer) Vertex3f(x, y, z float32) { b.put(OpVertex3fv, f32(x), f32(y), f32(z)) }

// Command is one decoded render command.
type Command struct {
	Opcode uint16
	Args   []uint32
}

// Int returns argument i as a signed integer.
func (c Command) Int(i int) int32 { return int32(c.Args[i]) }

// Float returns argument i as a float.
func (c Command) Float(i int) float32 { return math.Float32frombits(c.Args[i]) }

// argCount lists the argument words of every opcode CommandBuffer emits.
var argCount = map[uint16]int{
	OpViewport:      4,
	OpClearColor:    4,
	OpClear:         1,
	OpEnable:        1,
	OpBindTexture:   2,
	OpTexParameteri: 3,
	OpBegin:         1,
	OpEnd:           0,
	OpTexCoord2fv:   2,
	OpVertex3fv:     3,
}

// ParseCommands decodes a buffer produced by CommandBuffer.
func ParseCommands(data []byte) ([]Command, error) {
	var cmds []Command
	for off := 0; off < len(data); {
		if len(data)-off < 4 {
			return nil, fmt.Errorf("%w: truncated header at %d", ErrBadCommand, off)
		}
		n := int(xgb.Get16(data[off:]))
		op := xgb.Get16(data[off+2:])
		if n < 4 || n%4 != 0 || off+n > len(data) {
			return nil, fmt.Errorf("%w: bad length %d at %d", ErrBadCommand, n, off)
		}
		if want, ok := argCount[op]; ok && want != (n-4)/4 {
			return nil, fmt.Errorf("%w: opcode %d has %d args, want %d", ErrBadCommand, op, (n-4)/4, want)
		}

		cmd := Command{Opcode: op, Args: make([]uint32, 0, (n-4)/4)}
		for p := off + 4; p < off+n; p += 4 {
			cmd.Args = append(cmd.Args, xgb.Get32(data[p:]))
		}
		cmds = append(cmds, cmd)
		off += n
	}
	return cmds, nil
}
