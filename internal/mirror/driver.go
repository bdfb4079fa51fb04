package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jezek/xgb/xproto"

	"github.com/suutaku/pixmirror/internal/x11"
)

// State is the lifecycle position of a Driver.
type State int

const (
	StateUninitialized State = iota
	StateContextReady
	StateWindowsShown
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateContextReady:
		return "context-ready"
	case StateWindowsShown:
		return "windows-shown"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configure a Driver.
type Options struct {
	Width, Height int
	// Tick is the capture source repaint period. Zero means one second.
	Tick time.Duration
	Seed int64
	// MaxTicks stops the loop after that many ticks when positive.
	MaxTicks int
	// OnTerminate runs before teardown while the output window still
	// exists.
	OnTerminate func(output xproto.Window)
}

// Driver owns every handle of the mirror: both windows, the bridge, the
// renderer and the rendering context. All methods must be called from the
// goroutine running the loop.
type Driver struct {
	opts Options
	log  *log.Logger
	ws   WindowSystem
	gl   GL

	state    State
	tornDown bool

	source, output xproto.Window
	width, height  int
	mapped         bool

	bridge   *Bridge
	renderer *Renderer
	painter  *Painter

	repaintSource bool
	repaintOutput bool
	ticks         int
}

// NewDriver takes ownership of an established rendering context.
func NewDriver(ws WindowSystem, gl GL, opts Options, logger *log.Logger) (*Driver, error) {
	if ws == nil || gl == nil {
		return nil, fmt.Errorf("window system and rendering context required: %w", ErrNotReady)
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	return &Driver{
		opts:    opts,
		log:     logger,
		ws:      ws,
		gl:      gl,
		state:   StateContextReady,
		width:   opts.Width,
		height:  opts.Height,
		painter: NewPainter(opts.Seed),
	}, nil
}

func (d *Driver) State() State { return d.state }

// Source is the capture source window, 0 before Show.
func (d *Driver) Source() xproto.Window { return d.source }

// Output is the output window, 0 before Show.
func (d *Driver) Output() xproto.Window { return d.output }

// Show creates and maps both windows and wraps the output window as a GL
// drawable.
func (d *Driver) Show() error {
	if d.state != StateContextReady {
		return fmt.Errorf("show in state %s: %w", d.state, ErrNotReady)
	}

	src, err := d.ws.CreateWindow(x11.WindowSpec{Title: "pixmirror source", Width: d.width, Height: d.height})
	if err != nil {
		return fmt.Errorf("capture source: %w", err)
	}
	d.source = src

	// A running compositing manager may already redirect top-level
	// windows; the buffer can still be named in that case.
	if err := d.ws.Redirect(src); err != nil {
		d.log.Warn("redirect capture source", "err", err)
	}
	if err := d.ws.TrackDamage(src); err != nil {
		d.log.Warn("track capture source damage", "err", err)
	}
	if err := d.ws.MapWindow(src); err != nil {
		return fmt.Errorf("map capture source: %w", err)
	}

	out, err := d.ws.CreateWindow(x11.WindowSpec{
		Title:  "pixmirror",
		Width:  d.width,
		Height: d.height,
		Visual: d.gl.Visual(),
	})
	if err != nil {
		return fmt.Errorf("output window: %w", err)
	}
	d.output = out
	if err := d.ws.MapWindow(out); err != nil {
		return fmt.Errorf("map output window: %w", err)
	}

	drawable, err := d.gl.CreateWindow(out)
	if err != nil {
		return fmt.Errorf("output drawable: %w", err)
	}

	d.bridge = NewBridge(d.ws, d.gl, src)
	d.renderer = NewRenderer(d.ws, d.gl, out, drawable)
	d.state = StateWindowsShown
	d.log.Debug("windows shown", "source", src, "output", out)
	return nil
}

// Run arms the tick and handles events until a window is closed, the
// event stream ends, ctx is done or the tick limit is reached. Everything
// is torn down before Run returns.
func (d *Driver) Run(ctx context.Context, events <-chan x11.Event) error {
	if d.state != StateWindowsShown {
		return fmt.Errorf("run in state %s: %w", d.state, ErrNotReady)
	}

	ticker := time.NewTicker(d.opts.Tick)
	defer ticker.Stop()

	d.state = StateRunning
	for d.state == StateRunning {
		select {
		case <-ctx.Done():
			d.log.Debug("context done", "err", ctx.Err())
			d.Stop()
		case ev, ok := <-events:
			if !ok {
				d.log.Warn("event stream closed")
				d.Stop()
				continue
			}
			d.Handle(ev)
		case <-ticker.C:
			d.Tick()
		}

		if d.state == StateRunning {
			d.flush()
			if d.opts.MaxTicks > 0 && d.ticks >= d.opts.MaxTicks {
				d.log.Debug("tick limit reached", "ticks", d.ticks)
				d.Stop()
			}
		}
	}
	return d.teardown()
}

// Handle reacts to one window event. Repaints are only queued here and
// happen on the next flush.
func (d *Driver) Handle(ev x11.Event) {
	if d.state != StateWindowsShown && d.state != StateRunning {
		return
	}
	d.log.Debug("event", "kind", ev.Kind, "window", ev.Window)

	switch ev.Window {
	case d.source:
		d.handleSource(ev)
	case d.output:
		d.handleOutput(ev)
	}
}

func (d *Driver) handleSource(ev x11.Event) {
	switch ev.Kind {
	case x11.Mapped:
		d.mapped = true
		d.ensureBridge()
		d.repaintOutput = true
	case x11.Configured:
		d.resize(ev.Width, ev.Height)
	case x11.Exposed:
		d.repaintSource = true
	case x11.Damaged:
		d.repaintOutput = true
	case x11.Destroyed:
		d.source = 0
		d.Stop()
	case x11.CloseRequested:
		d.Stop()
	}
}

func (d *Driver) handleOutput(ev x11.Event) {
	switch ev.Kind {
	case x11.Mapped, x11.Configured, x11.Exposed:
		d.repaintOutput = true
	case x11.Destroyed:
		d.output = 0
		d.Stop()
	case x11.CloseRequested:
		d.Stop()
	}
}

// resize propagates a new capture source size to the output window and
// rebuilds the bridge. Configure notifications that only move the window
// are ignored.
func (d *Driver) resize(width, height int) {
	if width == d.width && height == d.height {
		return
	}
	d.width, d.height = width, height

	if err := d.ws.ResizeWindow(d.output, width, height); err != nil {
		d.log.Warn("resize output window", "err", err)
	}
	if d.mapped && d.bridge.Bound() {
		if err := d.bridge.Rebuild(); err != nil {
			d.log.Warn("rebuild bridge", "err", err)
		}
	} else {
		d.ensureBridge()
	}
	d.repaintOutput = true
}

// ensureBridge creates the bridge once the capture source has been mapped.
// A failed attempt leaves it unbound and is retried on the next resize or
// output repaint.
func (d *Driver) ensureBridge() {
	if !d.mapped || d.bridge.Bound() {
		return
	}
	err := d.bridge.Create()
	switch {
	case errors.Is(err, ErrNotReady):
		d.log.Debug("bridge deferred", "err", err)
	case err != nil:
		d.log.Warn("create bridge", "err", err)
	}
}

// Tick requests a capture source repaint. Requests coalesce until the next
// flush.
func (d *Driver) Tick() {
	if d.state != StateRunning {
		return
	}
	d.ticks++
	d.repaintSource = true
}

func (d *Driver) flush() {
	if d.repaintSource {
		d.repaintSource = false
		d.paintSource()
	}
	if d.repaintOutput {
		d.repaintOutput = false
		d.drawOutput()
	}
}

func (d *Driver) paintSource() {
	r, c := d.painter.Next(d.width, d.height)
	if r.Empty() {
		return
	}
	if err := d.ws.FillRect(d.source, r, c); err != nil {
		d.log.Warn("paint capture source", "err", err)
		return
	}
	d.repaintOutput = true
}

func (d *Driver) drawOutput() {
	d.ensureBridge()
	drew, err := d.renderer.Draw(d.bridge.Source())
	if err != nil {
		d.log.Warn("draw output", "err", err)
		return
	}
	if !drew {
		d.log.Debug("nothing to draw yet")
	}
}

// Stop ends the loop after the current event. It is safe to call more
// than once.
func (d *Driver) Stop() {
	if d.state == StateTerminated {
		return
	}
	d.log.Debug("terminating", "from", d.state)
	d.state = StateTerminated
}

// Close tears everything down if Run has not already done so.
func (d *Driver) Close() error {
	d.state = StateTerminated
	return d.teardown()
}

func (d *Driver) teardown() error {
	if d.tornDown {
		return nil
	}
	d.tornDown = true

	if d.opts.OnTerminate != nil && d.output != 0 {
		d.opts.OnTerminate(d.output)
	}

	var errs []error
	if d.bridge != nil {
		errs = append(errs, d.bridge.Release())
	}
	if d.renderer != nil {
		errs = append(errs, d.renderer.Close())
	}
	errs = append(errs, d.gl.Destroy())
	if d.output != 0 {
		errs = append(errs, d.ws.DestroyWindow(d.output))
	}
	if d.source != 0 {
		errs = append(errs, d.ws.DestroyWindow(d.source))
	}
	return errors.Join(errs...)
}
