package mirror

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/jezek/xgb/glx"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/require"

	"github.com/suutaku/pixmirror/internal/gpu"
	"github.com/suutaku/pixmirror/internal/x11"
)

// journal records calls across both fakes so tests can check ordering.
type journal struct {
	calls []string
}

func (j *journal) add(format string, args ...interface{}) {
	j.calls = append(j.calls, fmt.Sprintf(format, args...))
}

func (j *journal) count(call string) int {
	n := 0
	for _, c := range j.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (j *journal) index(call string) int {
	for i, c := range j.calls {
		if c == call {
			return i
		}
	}
	return -1
}

func (j *journal) reset() { j.calls = nil }

type fill struct {
	window xproto.Window
	rect   image.Rectangle
	color  color.RGBA
}

type fakeWS struct {
	j    *journal
	next uint32

	viewable map[xproto.Window]bool
	sizes    map[xproto.Window]image.Point
	live     map[xproto.Pixmap]bool
	fills    []fill

	failNamePixmap error
}

func newFakeWS(j *journal) *fakeWS {
	return &fakeWS{
		j:        j,
		next:     0x100,
		viewable: make(map[xproto.Window]bool),
		sizes:    make(map[xproto.Window]image.Point),
		live:     make(map[xproto.Pixmap]bool),
	}
}

func (f *fakeWS) id() uint32 {
	f.next++
	return f.next
}

func (f *fakeWS) CreateWindow(spec x11.WindowSpec) (xproto.Window, error) {
	w := xproto.Window(f.id())
	f.sizes[w] = image.Pt(spec.Width, spec.Height)
	f.j.add("create-window %s", spec.Title)
	return w, nil
}

func (f *fakeWS) MapWindow(w xproto.Window) error {
	f.j.add("map 0x%x", uint32(w))
	return nil
}

func (f *fakeWS) ResizeWindow(w xproto.Window, width, height int) error {
	f.sizes[w] = image.Pt(width, height)
	f.j.add("resize 0x%x %dx%d", uint32(w), width, height)
	return nil
}

func (f *fakeWS) DestroyWindow(w xproto.Window) error {
	f.j.add("destroy-window 0x%x", uint32(w))
	return nil
}

func (f *fakeWS) Geometry(w xproto.Window) (int, int, error) {
	s := f.sizes[w]
	return s.X, s.Y, nil
}

func (f *fakeWS) Viewable(w xproto.Window) (bool, error) {
	return f.viewable[w], nil
}

func (f *fakeWS) Redirect(w xproto.Window) error {
	f.j.add("redirect 0x%x", uint32(w))
	return nil
}

func (f *fakeWS) TrackDamage(w xproto.Window) error {
	f.j.add("damage 0x%x", uint32(w))
	return nil
}

func (f *fakeWS) NameWindowPixmap(w xproto.Window) (xproto.Pixmap, error) {
	if f.failNamePixmap != nil {
		return 0, f.failNamePixmap
	}
	p := xproto.Pixmap(f.id())
	f.live[p] = true
	f.j.add("name-pixmap")
	return p, nil
}

func (f *fakeWS) FreePixmap(p xproto.Pixmap) error {
	if !f.live[p] {
		return fmt.Errorf("double free of pixmap 0x%x", uint32(p))
	}
	delete(f.live, p)
	f.j.add("free-pixmap")
	return nil
}

func (f *fakeWS) FillRect(w xproto.Window, r image.Rectangle, c color.RGBA) error {
	f.fills = append(f.fills, fill{w, r, c})
	f.j.add("fill 0x%x", uint32(w))
	return nil
}

type fakeGL struct {
	j    *journal
	next uint32

	visual   xproto.Visualid
	current  glx.Drawable
	live     map[glx.Pixmap]bool
	textures []uint32
	bound    glx.Pixmap
	renders  [][]gpu.Command

	destroyed int

	failCreatePixmap error
}

func newFakeGL(j *journal) *fakeGL {
	return &fakeGL{j: j, next: 0x9000, visual: 0x21, live: make(map[glx.Pixmap]bool)}
}

func (f *fakeGL) id() uint32 {
	f.next++
	return f.next
}

func (f *fakeGL) Visual() xproto.Visualid { return f.visual }

func (f *fakeGL) CreateWindow(w xproto.Window) (glx.Window, error) {
	f.j.add("glx-window 0x%x", uint32(w))
	return glx.Window(f.id()), nil
}

func (f *fakeGL) DestroyWindow(w glx.Window) error {
	f.j.add("glx-destroy-window")
	return nil
}

func (f *fakeGL) CreatePixmap(p xproto.Pixmap) (glx.Pixmap, error) {
	if f.failCreatePixmap != nil {
		return 0, f.failCreatePixmap
	}
	gp := glx.Pixmap(f.id())
	f.live[gp] = true
	f.j.add("glx-pixmap")
	return gp, nil
}

func (f *fakeGL) DestroyPixmap(p glx.Pixmap) error {
	if !f.live[p] {
		return fmt.Errorf("double destroy of glx pixmap 0x%x", uint32(p))
	}
	delete(f.live, p)
	f.j.add("glx-destroy-pixmap")
	return nil
}

func (f *fakeGL) MakeCurrent(d glx.Drawable) error {
	f.current = d
	f.j.add("make-current")
	return nil
}

func (f *fakeGL) GenTexture() (uint32, error) {
	t := f.id()
	f.textures = append(f.textures, t)
	f.j.add("gen-texture")
	return t, nil
}

func (f *fakeGL) DeleteTexture(texture uint32) error {
	f.j.add("delete-texture")
	return nil
}

func (f *fakeGL) BindTexImage(p glx.Pixmap) error {
	if !f.live[p] {
		return fmt.Errorf("bind of dead glx pixmap 0x%x", uint32(p))
	}
	f.bound = p
	f.j.add("bind-tex-image")
	return nil
}

func (f *fakeGL) ReleaseTexImage(p glx.Pixmap) error {
	f.bound = 0
	f.j.add("release-tex-image")
	return nil
}

func (f *fakeGL) Render(cmds *gpu.CommandBuffer) error {
	parsed, err := gpu.ParseCommands(cmds.Bytes())
	if err != nil {
		return err
	}
	f.renders = append(f.renders, parsed)
	f.j.add("render")
	return nil
}

func (f *fakeGL) Present(d glx.Drawable) error {
	f.j.add("present")
	return nil
}

func (f *fakeGL) Destroy() error {
	f.destroyed++
	f.j.add("destroy-context")
	return nil
}

// viewports returns the viewport sizes of every rendered frame.
func (f *fakeGL) viewports() []image.Point {
	var out []image.Point
	for _, batch := range f.renders {
		for _, c := range batch {
			if c.Opcode == gpu.OpViewport {
				out = append(out, image.Pt(int(c.Int(2)), int(c.Int(3))))
			}
		}
	}
	return out
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.DebugLevel})
}

type harness struct {
	j  *journal
	ws *fakeWS
	gl *fakeGL
	d  *Driver
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	j := &journal{}
	ws := newFakeWS(j)
	gl := newFakeGL(j)
	if opts.Width == 0 {
		opts.Width, opts.Height = 400, 300
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	d, err := NewDriver(ws, gl, opts, testLogger())
	require.NoError(t, err)
	return &harness{j: j, ws: ws, gl: gl, d: d}
}

// show brings the driver to the running state without starting the loop.
func (h *harness) show(t *testing.T) {
	t.Helper()
	require.NoError(t, h.d.Show())
	h.d.state = StateRunning
}

// mapSource simulates the server mapping the capture source.
func (h *harness) mapSource() {
	h.ws.viewable[h.d.Source()] = true
	h.d.Handle(x11.Event{Kind: x11.Mapped, Window: h.d.Source()})
}
