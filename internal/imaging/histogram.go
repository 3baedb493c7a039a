package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Histogram image size.
const (
	histogramWidth  = 8 * vg.Inch
	histogramHeight = 4 * vg.Inch
)

// HistogramResult is a rendered sigma histogram.
type HistogramResult struct {
	ImageBase64 string  `json:"image_base64"`
	MimeType    string  `json:"mime_type"`
	Bins        int     `json:"bins"`
	Samples     int     `json:"samples"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// SigmaHistogram plots the distribution of keypoint sigmas as a PNG.
//
// A positive threshold (typically the Otsu split) is drawn as a vertical
// red line. At least one sample is required.
func SigmaHistogram(sigmas []float64, bins int, threshold float64) (*HistogramResult, error) {
	if len(sigmas) == 0 {
		return nil, fmt.Errorf("histogram needs at least one sigma")
	}
	if bins < 1 {
		return nil, fmt.Errorf("bins must be positive, got %d", bins)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Keypoint sigma (%d keypoints)", len(sigmas))
	p.X.Label.Text = "Sigma (px)"
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(plotter.Values(sigmas), bins)
	if err != nil {
		return nil, fmt.Errorf("failed to bin sigmas: %w", err)
	}
	h.FillColor = color.RGBA{R: 70, G: 110, B: 180, A: 255}
	h.LineStyle.Width = vg.Points(0.5)
	p.Add(h)

	if threshold > 0 {
		top := 0.0
		for _, b := range h.Bins {
			top = math.Max(top, b.Weight)
		}
		line, err := plotter.NewLine(plotter.XYs{{X: threshold, Y: 0}, {X: threshold, Y: top}})
		if err != nil {
			return nil, fmt.Errorf("failed to draw threshold: %w", err)
		}
		line.Color = color.RGBA{R: 220, A: 255}
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("threshold %.3g", threshold), line)
		p.Legend.Top = true
	}

	w, err := p.WriterTo(histogramWidth, histogramHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render histogram: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode histogram: %w", err)
	}

	return &HistogramResult{
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Bins:        bins,
		Samples:     len(sigmas),
		Threshold:   threshold,
	}, nil
}
