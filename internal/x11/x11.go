package x11

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/composite"
	"github.com/jezek/xgb/damage"
	mshm "github.com/jezek/xgb/shm"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
)

// ErrNoComposite is returned by Open when the server lacks a usable
// Composite extension.
var ErrNoComposite = errors.New("composite extension 0.2 or newer required")

// Display is a connection to an X server with the extensions the mirror
// uses already negotiated.
type Display struct {
	c      *xgb.Conn
	log    *log.Logger
	screen *xproto.ScreenInfo
	number int

	useShm    bool
	useDamage bool

	wmProtocols    xproto.Atom
	wmDeleteWindow xproto.Atom

	windows map[xproto.Window]*window
}

// Open connects to the named display. An empty name uses $DISPLAY.
func Open(name string, logger *log.Logger) (*Display, error) {
	c, err := xgb.NewConnDisplay(name)
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	d := &Display{
		c:       c,
		log:     logger,
		number:  c.DefaultScreen,
		screen:  xproto.Setup(c).DefaultScreen(c),
		windows: make(map[xproto.Window]*window),
	}
	if err := d.init(); err != nil {
		c.Close()
		return nil, err
	}
	return d, nil
}

func (d *Display) init() error {
	if err := composite.Init(d.c); err != nil {
		return fmt.Errorf("%w: %v", ErrNoComposite, err)
	}
	ver, err := composite.QueryVersion(d.c, 0, 4).Reply()
	if err != nil {
		return fmt.Errorf("composite query version: %w", err)
	}
	if ver.MajorVersion == 0 && ver.MinorVersion < 2 {
		return fmt.Errorf("%w: server has %d.%d", ErrNoComposite, ver.MajorVersion, ver.MinorVersion)
	}

	d.useDamage = d.initDamage() == nil
	if !d.useDamage {
		d.log.Debug("damage extension unavailable, relying on repaint requests")
	}

	d.useShm = mshm.Init(d.c) == nil

	if d.wmProtocols, err = d.atom("WM_PROTOCOLS"); err != nil {
		return err
	}
	if d.wmDeleteWindow, err = d.atom("WM_DELETE_WINDOW"); err != nil {
		return err
	}
	return nil
}

func (d *Display) initDamage() error {
	if err := xfixes.Init(d.c); err != nil {
		return err
	}
	if _, err := xfixes.QueryVersion(d.c, 2, 0).Reply(); err != nil {
		return err
	}
	if err := damage.Init(d.c); err != nil {
		return err
	}
	_, err := damage.QueryVersion(d.c, 1, 1).Reply()
	return err
}

func (d *Display) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(d.c, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern %s: %w", name, err)
	}
	return reply.Atom, nil
}

// Conn exposes the underlying connection for other protocol users.
func (d *Display) Conn() *xgb.Conn { return d.c }

// ScreenNumber is the index of the default screen.
func (d *Display) ScreenNumber() int { return d.number }

func (d *Display) Close() {
	if d.c != nil {
		d.log.Debug("close conn")
		d.c.Close()
		d.c = nil
	}
}
