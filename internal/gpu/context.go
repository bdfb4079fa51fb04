package gpu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/glx"
	"github.com/jezek/xgb/xproto"
)

var (
	// ErrVersion is returned when the server's GLX is older than 1.3,
	// the first version with framebuffer configurations.
	ErrVersion = errors.New("GLX 1.3 or newer required")

	// ErrMissingExtension is returned when a GLX extension the mirror
	// depends on is not advertised by the server.
	ErrMissingExtension = errors.New("GLX extension not available")
)

// Options configure Setup.
type Options struct {
	DoubleBuffered bool
}

// Context is a GLX rendering context bound to one framebuffer
// configuration. It is not safe for concurrent use.
type Context struct {
	conn   *xgb.Conn
	screen uint32
	log    *log.Logger

	fbconfig       FBConfig
	id             glx.Context
	tag            glx.ContextTag
	direct         bool
	doubleBuffered bool
}

// Setup negotiates GLX on conn, verifies the texture-from-pixmap extension,
// selects a framebuffer configuration and creates a context for it.
func Setup(conn *xgb.Conn, screen int, opts Options, logger *log.Logger) (*Context, error) {
	if err := glx.Init(conn); err != nil {
		return nil, fmt.Errorf("glx init: %w", err)
	}

	ver, err := glx.QueryVersion(conn, 1, 4).Reply()
	if err != nil {
		return nil, fmt.Errorf("glx query version: %w", err)
	}
	if !versionOK(ver.MajorVersion, ver.MinorVersion) {
		return nil, fmt.Errorf("%w: server has %d.%d", ErrVersion, ver.MajorVersion, ver.MinorVersion)
	}
	logger.Debug("glx version", "major", ver.MajorVersion, "minor", ver.MinorVersion)

	exts, err := glx.QueryServerString(conn, uint32(screen), glxExtensions).Reply()
	if err != nil {
		return nil, fmt.Errorf("glx query extensions: %w", err)
	}
	if !hasExtension(exts.String, TextureFromPixmap) {
		return nil, fmt.Errorf("%w: %s", ErrMissingExtension, TextureFromPixmap)
	}

	reply, err := glx.GetFBConfigs(conn, uint32(screen)).Reply()
	if err != nil {
		return nil, fmt.Errorf("glx get fbconfigs: %w", err)
	}
	configs := ParseFBConfigs(reply.NumFbConfigs, reply.NumProperties, reply.PropertyList)
	logger.Debug("fbconfigs", "count", len(configs))

	fb, err := Choose(configs, Requirements{DoubleBuffered: opts.DoubleBuffered})
	if err != nil {
		return nil, err
	}
	logger.Debug("selected", "fbconfig", fb)

	id, err := glx.NewContextId(conn)
	if err != nil {
		return nil, fmt.Errorf("glx context id: %w", err)
	}
	err = glx.CreateNewContextChecked(conn, id, fb.ID, uint32(screen), rgbaType, 0, false).Check()
	if err != nil {
		return nil, fmt.Errorf("glx create context: %w", err)
	}

	c := &Context{
		conn:           conn,
		screen:         uint32(screen),
		log:            logger,
		fbconfig:       fb,
		id:             id,
		doubleBuffered: opts.DoubleBuffered,
	}

	if d, err := glx.IsDirect(conn, id).Reply(); err == nil {
		c.direct = d.IsDirect
	}
	if c.direct {
		logger.Debug("direct GLX rendering context obtained")
	} else {
		logger.Debug("indirect GLX rendering context obtained")
	}
	return c, nil
}

func versionOK(major, minor uint32) bool {
	return major > 1 || (major == 1 && minor >= 3)
}

func hasExtension(list, name string) bool {
	for _, ext := range strings.Fields(strings.TrimRight(list, "\x00")) {
		if ext == name {
			return true
		}
	}
	return false
}

// FBConfig returns the configuration the context was created for.
func (c *Context) FBConfig() FBConfig { return c.fbconfig }

// Visual is the X visual windows must use to be GLX drawables of this
// context.
func (c *Context) Visual() xproto.Visualid { return c.fbconfig.Visual }

// Direct reports whether the server handed out a direct context.
func (c *Context) Direct() bool { return c.direct }

// CreateWindow wraps an X window as a GLX drawable.
func (c *Context) CreateWindow(win xproto.Window) (glx.Window, error) {
	id, err := glx.NewWindowId(c.conn)
	if err != nil {
		return 0, err
	}
	err = glx.CreateWindowChecked(c.conn, c.screen, c.fbconfig.ID, win, id, 0, nil).Check()
	if err != nil {
		return 0, fmt.Errorf("glx create window: %w", err)
	}
	return id, nil
}

func (c *Context) DestroyWindow(win glx.Window) error {
	return glx.DeleteWindowChecked(c.conn, win).Check()
}

// CreatePixmap wraps an X pixmap as a texture source for a 2D RGBA
// texture.
func (c *Context) CreatePixmap(pixmap xproto.Pixmap) (glx.Pixmap, error) {
	id, err := glx.NewPixmapId(c.conn)
	if err != nil {
		return 0, err
	}
	attribs := []uint32{
		AttrTextureTarget, texture2DExt,
		AttrTextureFormat, textureFormatRGBA,
	}
	err = glx.CreatePixmapChecked(c.conn, c.screen, c.fbconfig.ID, pixmap, id, uint32(len(attribs)/2), attribs).Check()
	if err != nil {
		return 0, fmt.Errorf("glx create pixmap: %w", err)
	}
	return id, nil
}

func (c *Context) DestroyPixmap(pixmap glx.Pixmap) error {
	return glx.DestroyPixmapChecked(c.conn, pixmap).Check()
}

// MakeCurrent binds the context to d for both drawing and reading.
func (c *Context) MakeCurrent(d glx.Drawable) error {
	reply, err := glx.MakeContextCurrent(c.conn, c.tag, d, d, c.id).Reply()
	if err != nil {
		return fmt.Errorf("glx make current: %w", err)
	}
	c.tag = reply.ContextTag
	return nil
}

// GenTexture allocates one texture name. The context must be current.
func (c *Context) GenTexture() (uint32, error) {
	reply, err := glx.GenTextures(c.conn, c.tag, 1).Reply()
	if err != nil {
		return 0, fmt.Errorf("glx gen textures: %w", err)
	}
	if len(reply.Data) == 0 {
		return 0, errors.New("glx gen textures: empty reply")
	}
	return reply.Data[0], nil
}

func (c *Context) DeleteTexture(texture uint32) error {
	return glx.DeleteTexturesChecked(c.conn, c.tag, 1, []uint32{texture}).Check()
}

// BindTexImage attaches the front buffer of pixmap to the texture bound to
// GL_TEXTURE_2D.
func (c *Context) BindTexImage(pixmap glx.Pixmap) error {
	data := make([]byte, 12)
	xgb.Put32(data, uint32(pixmap))
	xgb.Put32(data[4:], frontLeftExt)
	xgb.Put32(data[8:], 0)
	return glx.VendorPrivateChecked(c.conn, vopBindTexImage, c.tag, data).Check()
}

func (c *Context) ReleaseTexImage(pixmap glx.Pixmap) error {
	data := make([]byte, 8)
	xgb.Put32(data, uint32(pixmap))
	xgb.Put32(data[4:], frontLeftExt)
	return glx.VendorPrivateChecked(c.conn, vopReleaseTexImage, c.tag, data).Check()
}

// Render sends the buffered commands to the current context.
func (c *Context) Render(cmds *CommandBuffer) error {
	if cmds.Len() == 0 {
		return nil
	}
	return glx.RenderChecked(c.conn, c.tag, cmds.Bytes()).Check()
}

// Present swaps d when the context is double buffered and flushes
// otherwise.
func (c *Context) Present(d glx.Drawable) error {
	if c.doubleBuffered {
		return glx.SwapBuffersChecked(c.conn, c.tag, d).Check()
	}
	return glx.FlushChecked(c.conn, c.tag).Check()
}

func (c *Context) Destroy() error {
	return glx.DestroyContextChecked(c.conn, c.id).Check()
}
