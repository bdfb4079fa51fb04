package mirror

import (
	"image"
	"image/color"

	"github.com/jezek/xgb/glx"
	"github.com/jezek/xgb/xproto"

	"github.com/suutaku/pixmirror/internal/gpu"
	"github.com/suutaku/pixmirror/internal/x11"
)

// WindowSystem is the part of the display connection the mirror drives.
// *x11.Display implements it.
type WindowSystem interface {
	CreateWindow(spec x11.WindowSpec) (xproto.Window, error)
	MapWindow(w xproto.Window) error
	ResizeWindow(w xproto.Window, width, height int) error
	DestroyWindow(w xproto.Window) error
	Geometry(w xproto.Window) (width, height int, err error)
	Viewable(w xproto.Window) (bool, error)

	Redirect(w xproto.Window) error
	TrackDamage(w xproto.Window) error
	NameWindowPixmap(w xproto.Window) (xproto.Pixmap, error)
	FreePixmap(p xproto.Pixmap) error

	FillRect(w xproto.Window, r image.Rectangle, c color.RGBA) error
}

// GL is the rendering context. *gpu.Context implements it.
type GL interface {
	Visual() xproto.Visualid

	CreateWindow(w xproto.Window) (glx.Window, error)
	DestroyWindow(w glx.Window) error
	CreatePixmap(p xproto.Pixmap) (glx.Pixmap, error)
	DestroyPixmap(p glx.Pixmap) error

	MakeCurrent(d glx.Drawable) error
	GenTexture() (uint32, error)
	DeleteTexture(texture uint32) error
	BindTexImage(p glx.Pixmap) error
	ReleaseTexImage(p glx.Pixmap) error
	Render(cmds *gpu.CommandBuffer) error
	Present(d glx.Drawable) error

	Destroy() error
}

var (
	_ WindowSystem = (*x11.Display)(nil)
	_ GL           = (*gpu.Context)(nil)
)
