package x11

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gen2brain/shm"
	mshm "github.com/jezek/xgb/shm"
	"github.com/jezek/xgb/xproto"

	"github.com/suutaku/pixmirror/internal/utils"
)

// Capture reads the window's current contents back as an RGBA image,
// through MIT-SHM when the server supports it.
func (d *Display) Capture(id xproto.Window) (*image.RGBA, error) {
	w, h, err := d.Geometry(id)
	if err != nil {
		return nil, err
	}

	img, err := utils.CreateImage(image.Rect(0, 0, w, h))
	if err != nil {
		return nil, err
	}

	var data []byte
	if d.useShm {
		shmSize := w * h * 4
		shmId, err := shm.Get(shm.IPC_PRIVATE, shmSize, shm.IPC_CREAT|0600)
		if err != nil {
			return nil, fmt.Errorf("shmget: %w", err)
		}
		defer shm.Rm(shmId)

		seg, err := mshm.NewSegId(d.c)
		if err != nil {
			return nil, err
		}

		data, err = shm.At(shmId, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("shmat: %w", err)
		}
		defer shm.Dt(data)

		if err := mshm.AttachChecked(d.c, seg, uint32(shmId), false).Check(); err != nil {
			return nil, fmt.Errorf("shm attach: %w", err)
		}
		defer mshm.Detach(d.c, seg)

		_, err = mshm.GetImage(d.c, xproto.Drawable(id), 0, 0, uint16(w), uint16(h),
			0xffffffff, byte(xproto.ImageFormatZPixmap), seg, 0).Reply()
		if err != nil {
			return nil, fmt.Errorf("shm get image: %w", err)
		}
	} else {
		xImg, err := xproto.GetImage(d.c, xproto.ImageFormatZPixmap, xproto.Drawable(id),
			0, 0, uint16(w), uint16(h), 0xffffffff).Reply()
		if err != nil {
			return nil, fmt.Errorf("get image: %w", err)
		}
		data = xImg.Data
	}

	copyBGRA(img, data)
	return img, nil
}

// copyBGRA fills img from 32 bpp ZPixmap data, forcing opaque alpha.
func copyBGRA(img *image.RGBA, data []byte) {
	b := img.Bounds()
	offset := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if offset+4 > len(data) {
				return
			}
			img.SetRGBA(x, y, color.RGBA{data[offset+2], data[offset+1], data[offset], 255})
			offset += 4
		}
	}
}
