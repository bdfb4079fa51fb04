package mirror

import (
	"errors"
	"fmt"

	"github.com/jezek/xgb/glx"
	"github.com/jezek/xgb/xproto"
)

// ErrNotReady is returned when an operation needs a mapped capture source
// or an established binding that does not exist yet.
var ErrNotReady = errors.New("not ready")

// Bridge keeps the capture source's off-screen pixmap wrapped as a texture
// source. The pixmap and its wrapper are always held together: both set or
// both zero.
type Bridge struct {
	ws     WindowSystem
	gl     GL
	window xproto.Window

	pixmap xproto.Pixmap
	source glx.Pixmap
}

func NewBridge(ws WindowSystem, gl GL, window xproto.Window) *Bridge {
	return &Bridge{ws: ws, gl: gl, window: window}
}

// Bound reports whether a pixmap pair exists.
func (b *Bridge) Bound() bool { return b.source != 0 }

// Source is the texture-source handle, or 0 when unbound.
func (b *Bridge) Source() glx.Pixmap { return b.source }

// Create names the window's current buffer and wraps it. The window must be
// viewable; otherwise ErrNotReady is returned and nothing is allocated.
// Create on a bound bridge is a no-op.
func (b *Bridge) Create() error {
	if b.Bound() {
		return nil
	}

	viewable, err := b.ws.Viewable(b.window)
	if err != nil {
		return err
	}
	if !viewable {
		return fmt.Errorf("capture source 0x%x is not viewable: %w", uint32(b.window), ErrNotReady)
	}

	pixmap, err := b.ws.NameWindowPixmap(b.window)
	if err != nil {
		return err
	}
	source, err := b.gl.CreatePixmap(pixmap)
	if err != nil {
		return errors.Join(err, b.ws.FreePixmap(pixmap))
	}

	b.pixmap, b.source = pixmap, source
	return nil
}

// Rebuild replaces the pair with one naming the window's current buffer.
// It is a no-op while unbound.
func (b *Bridge) Rebuild() error {
	if !b.Bound() {
		return nil
	}
	if err := b.Release(); err != nil {
		return err
	}
	return b.Create()
}

// Release destroys the pair. The bridge is unbound afterwards even when the
// server reports errors.
func (b *Bridge) Release() error {
	if !b.Bound() {
		return nil
	}
	err := errors.Join(
		b.gl.DestroyPixmap(b.source),
		b.ws.FreePixmap(b.pixmap),
	)
	b.pixmap, b.source = 0, 0
	return err
}
