package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/blob-tools-mcp/internal/blob"
)

// Overlay color modes.
const (
	ColorBySigma  = "sigma"
	ColorByOctave = "octave"
	ColorFixed    = "fixed"
)

// defaultOverlayColor is used for ColorFixed when no valid color is given.
const defaultOverlayColor = "#ff0000"

// OverlayOptions controls how keypoints are drawn.
type OverlayOptions struct {
	// ColorBy is ColorBySigma (default), ColorByOctave or ColorFixed.
	ColorBy string

	// Color is the "#rrggbb" circle color for ColorFixed.
	Color string

	// Labels draws the keypoint index next to each circle.
	Labels bool
}

// OverlayResult is the annotated image.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Keypoints   int    `json:"keypoints"`
}

// Overlay draws a circle of radius sigma*sqrt(2), the radius at which the
// DoG response of a blob changes sign, around every keypoint of kps.
//
// With ColorBySigma the hue runs from blue (smallest sigma) to red
// (largest) on a log scale; with ColorByOctave each octave gets its own hue.
// Keypoints are in the pixel frame of img.
func Overlay(img image.Image, kps []blob.Keypoint, opts OverlayOptions) (*OverlayResult, error) {
	canvas := imaging.Clone(img)
	b := canvas.Bounds()

	palette, err := keypointColors(kps, opts)
	if err != nil {
		return nil, err
	}

	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}
	for i, kp := range kps {
		// Keypoints without a usable sigma are marked by their center only.
		r := kp.Sigma * math.Sqrt2
		if r > 0 && !math.IsInf(r, 0) {
			drawCircle(canvas, kp.X, kp.Y, r, palette[i])
		} else {
			r = 0
		}
		canvas.Set(b.Min.X+int(math.Round(kp.X)), b.Min.Y+int(math.Round(kp.Y)), palette[i])
		if opts.Labels {
			drawLabel(canvas, b.Min.X+int(kp.X+r)+2, b.Min.Y+int(kp.Y-r), strconv.Itoa(i), labelColor, bgColor)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &OverlayResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Keypoints:   len(kps),
	}, nil
}

// keypointColors assigns one color per keypoint according to opts.
func keypointColors(kps []blob.Keypoint, opts OverlayOptions) ([]color.Color, error) {
	out := make([]color.Color, len(kps))
	switch opts.ColorBy {
	case "", ColorBySigma:
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, kp := range kps {
			if kp.Sigma > 0 {
				lo = math.Min(lo, kp.Sigma)
				hi = math.Max(hi, kp.Sigma)
			}
		}
		for i, kp := range kps {
			t := 0.0
			if hi > lo && kp.Sigma > 0 {
				t = math.Log(kp.Sigma/lo) / math.Log(hi/lo)
			}
			out[i] = colorful.Hsv(240*(1-t), 1, 1)
		}
	case ColorByOctave:
		for i, kp := range kps {
			out[i] = colorful.Hsv(math.Mod(120+75*float64(kp.Octave), 360), 1, 1)
		}
	case ColorFixed:
		hex := opts.Color
		if hex == "" {
			hex = defaultOverlayColor
		}
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("invalid color %q: %w", opts.Color, err)
		}
		for i := range out {
			out[i] = c
		}
	default:
		return nil, fmt.Errorf("unknown color mode: %s", opts.ColorBy)
	}
	return out, nil
}

// drawCircle plots a one-pixel circle outline centered at (cx, cy) in the
// frame of img's bounds. Points outside the image are skipped.
func drawCircle(img *image.NRGBA, cx, cy, radius float64, c color.Color) {
	b := img.Bounds()
	steps := int(math.Ceil(4*math.Pi*radius)) + 8
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		px := b.Min.X + int(math.Round(cx+radius*math.Cos(a)))
		py := b.Min.Y + int(math.Round(cy+radius*math.Sin(a)))
		if image.Pt(px, py).In(b) {
			img.Set(px, py, c)
		}
	}
}

// drawLabel draws digits with a 3x5 pixel font on a filled background.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.Color) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	const charWidth, labelHeight = 4, 7
	labelWidth := len(text) * charWidth

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if p := image.Pt(x+dx, y+dy); p.In(bounds) {
				img.Set(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		for row, line := range glyphs[ch] {
			for col, pixel := range line {
				if p := image.Pt(cx+col, y+row); pixel == '1' && p.In(bounds) {
					img.Set(p.X, p.Y, fg)
				}
			}
		}
		cx += charWidth
	}
}
