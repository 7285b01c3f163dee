package camera

import (
	"fmt"
	"image"
	_ "image/jpeg" // register jpeg
	_ "image/png"  // register png
	"io"

	"github.com/cjeanneret/BallChaser/internal/logic/vision"
	_ "github.com/lmittmann/ppm" // register ppm
	_ "golang.org/x/image/bmp"   // register bmp
	"golang.org/x/image/draw"
)

// Encoding names the only raw pixel layout frames arrive in.
const Encoding = "rgb8"

// DecodeRaw wraps a raw rgb8 buffer as a frame.
func DecodeRaw(width, height int, data []byte) (vision.Frame, error) {
	f := vision.Frame{Width: width, Height: height, Pixels: data}
	if err := f.Validate(); err != nil {
		return vision.Frame{}, err
	}
	return f, nil
}

// Decode reads a PPM, PNG, JPEG or BMP image and returns it as a frame.
// width and height > 0 rescale the image first.
func Decode(r io.Reader, width, height int) (vision.Frame, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return vision.Frame{}, "", fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img, width, height), format, nil
}

// FromImage converts an image to an rgb8 frame, dropping alpha.
// Scaling uses nearest neighbor so that pure white stays pure white.
func FromImage(img image.Image, width, height int) vision.Frame {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if width > 0 && height > 0 && (width != b.Dx() || height != b.Dy()) {
		dst = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	} else {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}

	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	pixels := make([]byte, 0, vision.BytesPerPixel*w*h)
	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+4*w]
		for x := 0; x < w; x++ {
			pixels = append(pixels, row[4*x], row[4*x+1], row[4*x+2])
		}
	}
	return vision.Frame{Width: w, Height: h, Pixels: pixels}
}
