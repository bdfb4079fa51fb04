//go:build linux || freebsd || openbsd || netbsd

package screenshot

import (
	"github.com/jezek/xgb/xproto"

	"github.com/suutaku/pixmirror/internal/x11"
)

func NewScreenshot(d *x11.Display, window xproto.Window) *Screenshot {
	return &Screenshot{
		Capturer: d,
		window:   window,
	}
}
