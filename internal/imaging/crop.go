package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/blob-tools-mcp/internal/blob"
)

// minCropHalfSize is the smallest automatic crop half-size in pixels.
const minCropHalfSize = 8

// maxCropScale bounds the zoom factor of a crop.
const maxCropScale = 16

// CropResult contains the cropped image data.
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// Region is the source rectangle, [X0, X1) x [Y0, Y1), before scaling.
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Crop extracts the rectangle r of img, clipped to its bounds, and zooms it
// by scale with a Lanczos filter. A scale of 1 (or <= 0) keeps the size.
func Crop(img image.Image, r image.Rectangle, scale float64) (*CropResult, error) {
	if scale > maxCropScale {
		return nil, fmt.Errorf("scale %v exceeds maximum %d", scale, maxCropScale)
	}
	clipped := r.Intersect(img.Bounds())
	if clipped.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, img.Bounds())
	}

	cropped := imaging.Crop(img, clipped)
	if scale != 1.0 && scale > 0 {
		newWidth := int(math.Round(float64(cropped.Bounds().Dx()) * scale))
		newHeight := int(math.Round(float64(cropped.Bounds().Dy()) * scale))
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %v collapses %v to nothing", scale, clipped)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		X0:          clipped.Min.X - img.Bounds().Min.X,
		Y0:          clipped.Min.Y - img.Bounds().Min.Y,
		X1:          clipped.Max.X - img.Bounds().Min.X,
		Y1:          clipped.Max.Y - img.Bounds().Min.Y,
	}, nil
}

// CropKeypoint crops a square window centered on kp.
//
// Parameters:
//   - img: Image the keypoint was detected in.
//   - kp: Keypoint in the pixel frame of img.
//   - halfSize: Half the window edge in pixels. 0 picks three blob radii
//     (3*sigma*sqrt(2)), at least 8.
//   - scale: Zoom factor applied after cropping.
//
// Windows that extend past the image are clipped, so crops near the edge
// are smaller and off-center.
func CropKeypoint(img image.Image, kp blob.Keypoint, halfSize int, scale float64) (*CropResult, error) {
	if halfSize < 0 {
		return nil, fmt.Errorf("half size must be non-negative, got %d", halfSize)
	}
	if halfSize == 0 {
		halfSize = int(math.Ceil(3 * kp.Sigma * math.Sqrt2))
		if halfSize < minCropHalfSize {
			halfSize = minCropHalfSize
		}
	}

	b := img.Bounds()
	cx := b.Min.X + int(math.Round(kp.X))
	cy := b.Min.Y + int(math.Round(kp.Y))
	if !image.Pt(cx, cy).In(b) {
		return nil, fmt.Errorf("keypoint (%.1f, %.1f) outside image %dx%d", kp.X, kp.Y, b.Dx(), b.Dy())
	}
	r := image.Rect(cx-halfSize, cy-halfSize, cx+halfSize+1, cy+halfSize+1)
	return Crop(img, r, scale)
}
