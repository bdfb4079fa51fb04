package mirror

import (
	"errors"

	"github.com/jezek/xgb/glx"
	"github.com/jezek/xgb/xproto"

	"github.com/suutaku/pixmirror/internal/gpu"
)

// Renderer draws the bridged texture as a full-viewport quad into the
// output window.
type Renderer struct {
	ws       WindowSystem
	gl       GL
	window   xproto.Window
	drawable glx.Window

	texture uint32
	cmds    gpu.CommandBuffer
}

func NewRenderer(ws WindowSystem, gl GL, window xproto.Window, drawable glx.Window) *Renderer {
	return &Renderer{ws: ws, gl: gl, window: window, drawable: drawable}
}

// quad maps texture corners onto the viewport corners, top row first.
var quad = [4]struct{ s, t, x, y float32 }{
	{0, 0, -1, 1},
	{1, 0, 1, 1},
	{1, 1, 1, -1},
	{0, 1, -1, -1},
}

// Draw renders one frame from source. It reports false without touching
// the GL when there is nothing to draw yet.
func (r *Renderer) Draw(source glx.Pixmap) (bool, error) {
	if r.gl == nil || r.drawable == 0 || source == 0 {
		return false, nil
	}

	d := glx.Drawable(r.drawable)
	if err := r.gl.MakeCurrent(d); err != nil {
		return false, err
	}

	// Queried every frame: the window may have been resized since the
	// last configure notification was handled.
	width, height, err := r.ws.Geometry(r.window)
	if err != nil {
		return false, err
	}

	if r.texture == 0 {
		if r.texture, err = r.gl.GenTexture(); err != nil {
			return false, err
		}
	}

	r.cmds.Reset()
	r.cmds.Viewport(0, 0, int32(width), int32(height))
	r.cmds.ClearColor(1, 1, 1, 1)
	r.cmds.Clear(gpu.ColorBufferBit)
	r.cmds.Enable(gpu.Texture2D)
	r.cmds.BindTexture(gpu.Texture2D, r.texture)
	if err := r.gl.Render(&r.cmds); err != nil {
		return false, err
	}

	if err := r.gl.BindTexImage(source); err != nil {
		return false, err
	}

	r.cmds.Reset()
	r.cmds.TexParameteri(gpu.Texture2D, gpu.TextureMinFilter, gpu.Linear)
	r.cmds.TexParameteri(gpu.Texture2D, gpu.TextureMagFilter, gpu.Linear)
	r.cmds.Begin(gpu.Quads)
	for _, v := range quad {
		r.cmds.TexCoord2f(v.s, v.t)
		r.cmds.Vertex3f(v.x, v.y, 0)
	}
	r.cmds.End()

	err = errors.Join(
		r.gl.Render(&r.cmds),
		r.gl.ReleaseTexImage(source),
	)
	if err != nil {
		return false, err
	}
	return true, r.gl.Present(d)
}

// Close deletes the texture and the GLX drawable.
func (r *Renderer) Close() error {
	var errs []error
	if r.texture != 0 {
		errs = append(errs, r.gl.DeleteTexture(r.texture))
		r.texture = 0
	}
	if r.drawable != 0 {
		errs = append(errs, r.gl.DestroyWindow(r.drawable))
		r.drawable = 0
	}
	return errors.Join(errs...)
}
