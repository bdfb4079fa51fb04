package utils

import (
	"errors"
	"image"
)

// CreateImage allocates an RGBA image for rect. image.NewRGBA panics on
// rectangles whose pixel buffer would overflow; that panic is turned into an
// error here.
func CreateImage(rect image.Rectangle) (img *image.RGBA, e error) {
	img = nil
	e = errors.New("cannot create image.RGBA")

	defer func() {
		err := recover()
		if err == nil {
			e = nil
		}
	}()

	img = image.NewRGBA(rect)
	return img, e
}
