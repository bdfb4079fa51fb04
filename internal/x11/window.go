package x11

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/bits"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/composite"
	"github.com/jezek/xgb/damage"
	"github.com/jezek/xgb/xproto"
)

// WindowSpec describes a top-level window. A zero Visual selects the root
// visual.
type WindowSpec struct {
	Title  string
	Width  int
	Height int
	Visual xproto.Visualid
}

type window struct {
	id       xproto.Window
	gc       xproto.Gcontext
	visual   xproto.VisualInfo
	depth    byte
	colormap xproto.Colormap
	damage   damage.Damage
}

const windowEvents = xproto.EventMaskExposure | xproto.EventMaskStructureNotify

func (d *Display) visualInfo(id xproto.Visualid) (xproto.VisualInfo, byte, bool) {
	for _, depth := range d.screen.AllowedDepths {
		for _, v := range depth.Visuals {
			if v.VisualId == id {
				return v, depth.Depth, true
			}
		}
	}
	return xproto.VisualInfo{}, 0, false
}

// CreateWindow creates an unmapped top-level window that asks the window
// manager for WM_DELETE_WINDOW instead of being killed on close.
func (d *Display) CreateWindow(spec WindowSpec) (xproto.Window, error) {
	visual := spec.Visual
	if visual == 0 {
		visual = d.screen.RootVisual
	}
	vi, depth, ok := d.visualInfo(visual)
	if !ok {
		return 0, fmt.Errorf("visual 0x%x not found on screen %d", uint32(visual), d.number)
	}

	id, err := xproto.NewWindowId(d.c)
	if err != nil {
		return 0, err
	}
	w := &window{id: id, visual: vi, depth: depth}

	mask := uint32(xproto.CwBackPixel | xproto.CwBorderPixel | xproto.CwEventMask)
	values := []uint32{w.pixel(color.RGBA{0xff, 0xff, 0xff, 0xff}), 0, windowEvents}
	if visual != d.screen.RootVisual {
		if w.colormap, err = xproto.NewColormapId(d.c); err != nil {
			return 0, err
		}
		err = xproto.CreateColormapChecked(d.c, xproto.ColormapAllocNone, w.colormap, d.screen.Root, visual).Check()
		if err != nil {
			return 0, fmt.Errorf("create colormap: %w", err)
		}
		mask |= xproto.CwColormap
		values = append(values, uint32(w.colormap))
	}

	err = xproto.CreateWindowChecked(d.c, depth, id, d.screen.Root,
		0, 0, clamp16(spec.Width), clamp16(spec.Height), 0,
		xproto.WindowClassInputOutput, visual, mask, values).Check()
	if err != nil {
		d.freeColormap(w)
		return 0, fmt.Errorf("create window: %w", err)
	}

	if spec.Title != "" {
		xproto.ChangeProperty(d.c, xproto.PropModeReplace, id, xproto.AtomWmName,
			xproto.AtomString, 8, uint32(len(spec.Title)), []byte(spec.Title))
	}
	protocols := make([]byte, 4)
	xgb.Put32(protocols, uint32(d.wmDeleteWindow))
	xproto.ChangeProperty(d.c, xproto.PropModeReplace, id, d.wmProtocols,
		xproto.AtomAtom, 32, 1, protocols)

	if w.gc, err = xproto.NewGcontextId(d.c); err != nil {
		return 0, err
	}
	err = xproto.CreateGCChecked(d.c, w.gc, xproto.Drawable(id),
		xproto.GcForeground|xproto.GcGraphicsExposures, []uint32{0, 0}).Check()
	if err != nil {
		return 0, fmt.Errorf("create gc: %w", err)
	}

	d.windows[id] = w
	return id, nil
}

func (d *Display) lookup(id xproto.Window) (*window, error) {
	w, ok := d.windows[id]
	if !ok {
		return nil, fmt.Errorf("unknown window 0x%x", uint32(id))
	}
	return w, nil
}

func (d *Display) MapWindow(id xproto.Window) error {
	return xproto.MapWindowChecked(d.c, id).Check()
}

func (d *Display) ResizeWindow(id xproto.Window, width, height int) error {
	return xproto.ConfigureWindowChecked(d.c, id,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(clamp16(width)), uint32(clamp16(height))}).Check()
}

// DestroyWindow releases the window and everything created for it.
func (d *Display) DestroyWindow(id xproto.Window) error {
	w, err := d.lookup(id)
	if err != nil {
		return err
	}
	delete(d.windows, id)

	var errs []error
	if w.damage != 0 {
		errs = append(errs, damage.DestroyChecked(d.c, w.damage).Check())
	}
	errs = append(errs,
		xproto.FreeGCChecked(d.c, w.gc).Check(),
		xproto.DestroyWindowChecked(d.c, id).Check(),
		d.freeColormap(w),
	)
	return errors.Join(errs...)
}

func (d *Display) freeColormap(w *window) error {
	if w.colormap == 0 {
		return nil
	}
	return xproto.FreeColormapChecked(d.c, w.colormap).Check()
}

// Geometry returns the current size of the window as the server sees it.
func (d *Display) Geometry(id xproto.Window) (width, height int, err error) {
	reply, err := xproto.GetGeometry(d.c, xproto.Drawable(id)).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("get geometry: %w", err)
	}
	return int(reply.Width), int(reply.Height), nil
}

// Viewable reports whether the window and all its ancestors are mapped.
func (d *Display) Viewable(id xproto.Window) (bool, error) {
	reply, err := xproto.GetWindowAttributes(d.c, id).Reply()
	if err != nil {
		return false, fmt.Errorf("get window attributes: %w", err)
	}
	return reply.MapState == xproto.MapStateViewable, nil
}

// Redirect asks the server to keep the window's contents in an off-screen
// buffer while still showing it on screen.
func (d *Display) Redirect(id xproto.Window) error {
	return composite.RedirectWindowChecked(d.c, id, composite.RedirectAutomatic).Check()
}

// NameWindowPixmap returns a pixmap naming the window's current off-screen
// buffer. The name stays bound to that buffer across resizes, so callers
// must fetch a new one after the window changes size.
func (d *Display) NameWindowPixmap(id xproto.Window) (xproto.Pixmap, error) {
	pixmap, err := xproto.NewPixmapId(d.c)
	if err != nil {
		return 0, err
	}
	if err := composite.NameWindowPixmapChecked(d.c, id, pixmap).Check(); err != nil {
		return 0, fmt.Errorf("name window pixmap: %w", err)
	}
	return pixmap, nil
}

func (d *Display) FreePixmap(pixmap xproto.Pixmap) error {
	return xproto.FreePixmapChecked(d.c, pixmap).Check()
}

// TrackDamage makes the server report Damaged events for the window. It is
// a no-op when the damage extension is unavailable.
func (d *Display) TrackDamage(id xproto.Window) error {
	if !d.useDamage {
		return nil
	}
	w, err := d.lookup(id)
	if err != nil {
		return err
	}
	if w.damage != 0 {
		return nil
	}
	dmg, err := damage.NewDamageId(d.c)
	if err != nil {
		return err
	}
	err = damage.CreateChecked(d.c, dmg, xproto.Drawable(id), damage.ReportLevelNonEmpty).Check()
	if err != nil {
		return fmt.Errorf("create damage: %w", err)
	}
	w.damage = dmg
	return nil
}

// FillRect paints r in c using the window's own visual.
func (d *Display) FillRect(id xproto.Window, r image.Rectangle, c color.RGBA) error {
	w, err := d.lookup(id)
	if err != nil {
		return err
	}
	r = r.Canon()
	xproto.ChangeGC(d.c, w.gc, xproto.GcForeground, []uint32{w.pixel(c)})
	return xproto.PolyFillRectangleChecked(d.c, xproto.Drawable(id), w.gc, []xproto.Rectangle{{
		X:      clampPos16(r.Min.X),
		Y:      clampPos16(r.Min.Y),
		Width:  clamp16(r.Dx()),
		Height: clamp16(r.Dy()),
	}}).Check()
}

func (w *window) pixel(c color.RGBA) uint32 {
	return pixelValue(w.visual, w.depth, c)
}

// pixelValue encodes c for a TrueColor visual. Depth bits not covered by
// the colour masks carry alpha.
func pixelValue(v xproto.VisualInfo, depth byte, c color.RGBA) uint32 {
	all := uint32(uint64(1)<<depth - 1)
	alpha := all &^ (v.RedMask | v.GreenMask | v.BlueMask)
	return scaleChannel(c.R, v.RedMask) |
		scaleChannel(c.G, v.GreenMask) |
		scaleChannel(c.B, v.BlueMask) |
		scaleChannel(c.A, alpha)
}

func scaleChannel(v uint8, mask uint32) uint32 {
	if mask == 0 {
		return 0
	}
	shift := bits.TrailingZeros32(mask)
	top := mask >> shift
	return (uint32(v) * top / 0xff) << shift
}

func clamp16(v int) uint16 {
	switch {
	case v < 1:
		return 1
	case v > 0xffff:
		return 0xffff
	}
	return uint16(v)
}

func clampPos16(v int) int16 {
	switch {
	case v < -0x8000:
		return -0x8000
	case v > 0x7fff:
		return 0x7fff
	}
	return int16(v)
}
