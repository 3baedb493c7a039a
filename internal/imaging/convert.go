package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/ironsheep/blob-tools-mcp/internal/blob"
)

// ITU-R BT.601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// ToFloat converts img to a luminance plane in [0, 1].
//
// Channels are read at 16-bit precision, so 16-bit grayscale frames keep
// their full dynamic range. The plane's (0, 0) is img.Bounds().Min.
func ToFloat(img image.Image) *blob.Image {
	b := img.Bounds()
	out := blob.NewImage(b.Dx(), b.Dy())

	if g, ok := img.(*image.Gray16); ok {
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				out.Set(x, y, float64(g.Gray16At(b.Min.X+x, b.Min.Y+y).Y)/0xffff)
			}
		}
		return out
	}

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			out.Set(x, y, luminance(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return out
}

func luminance(c color.Color) float64 {
	r, g, bl, _ := c.RGBA()
	return (lumaR*float64(r) + lumaG*float64(g) + lumaB*float64(bl)) / 0xffff
}

// ToGray16 renders img as a 16-bit grayscale image, stretching its
// [min, max] range over [0, 65535]. A constant image renders black.
func ToGray16(img *blob.Image) *image.Gray16 {
	out := image.NewGray16(image.Rect(0, 0, img.Width, img.Height))
	lo, hi := img.MinMax()
	span := hi - lo
	if span == 0 {
		return out
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := math.Round((img.At(x, y) - lo) / span * 0xffff)
			out.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}
	return out
}

// SavePNG writes img to path as a 16-bit grayscale PNG via ToGray16.
func SavePNG(path string, img *blob.Image) error {
	if err := imgio.Save(path, ToGray16(img), imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// MaskFromImage builds a detector mask from a mask image: pixels brighter
// than mid-gray are excluded.
func MaskFromImage(img image.Image) *blob.Mask {
	plane := ToFloat(img)
	mask := blob.NewMask(plane.Width, plane.Height)
	for i, v := range plane.Pix {
		mask.Bits[i] = v > 0.5
	}
	return mask
}
