// Package screenshot saves the contents of an X11 window as an image.
package screenshot

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/jezek/xgb/xproto"
)

// Capturer reads a window's contents back from the server.
type Capturer interface {
	Capture(id xproto.Window) (*image.RGBA, error)
}

type Screenshot struct {
	Capturer
	window xproto.Window
}

func (s *Screenshot) Window() xproto.Window { return s.window }

func (s *Screenshot) Capture() (*image.RGBA, error) {
	img, err := s.Capturer.Capture(s.window)
	if err != nil {
		return nil, fmt.Errorf("capture window 0x%x: %w", uint32(s.window), err)
	}
	return img, nil
}

// SavePNG captures the window and writes it to path.
func (s *Screenshot) SavePNG(path string) (err error) {
	img, err := s.Capture()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return writePNG(f, img)
}

func writePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
