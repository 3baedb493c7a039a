package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"github.com/ironsheep/blob-tools-mcp/internal/blob"
	"github.com/ironsheep/blob-tools-mcp/internal/config"
	"github.com/ironsheep/blob-tools-mcp/internal/imaging"
)

// Limits on tool arguments.
const (
	maxSyntheticSize     = 8192
	defaultSyntheticSize = 512
	defaultPlotBins      = 40
)

// errRunNotFound is returned when a run ID is unknown or was evicted.
var errRunNotFound = errors.New("detection run not found")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "blob_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if s.debug {
			log.Printf("tool %s failed: %v", params.Name, err)
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches a tool call to its handler. Each handler decodes
// its arguments, fills in defaults from the server configuration and
// returns a JSON-serializable result.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Detection
	case "blob_detect":
		return s.handleBlobDetect(ctx, args)
	case "blob_synthetic":
		return s.handleBlobSynthetic(args)

	// Inspection of a detection run
	case "blob_overlay":
		return s.handleBlobOverlay(ctx, args)
	case "blob_crop":
		return s.handleBlobCrop(args)
	case "blob_sigma_threshold":
		return s.handleBlobSigmaThreshold(args)
	case "blob_sigma_histogram":
		return s.handleBlobSigmaHistogram(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Detection Handlers ===

type blobDetectArgs struct {
	Path             string   `json:"path"`
	MaskPath         string   `json:"mask_path"`
	Octaves          *int     `json:"octaves"`
	CurrentSigma     *float64 `json:"current_sigma"`
	InitialSigma     *float64 `json:"initial_sigma"`
	DestinationSigma *float64 `json:"destination_sigma"`
	ScalesPerOctave  *int     `json:"scales_per_octave"`
	WideNeighborTest *bool    `json:"wide_neighbor_test"`
	BorderSize       *int     `json:"border_size"`
	MaxKeypoints     *int     `json:"max_keypoints"`
}

// indexedKeypoint is a keypoint together with its position in the run, the
// index blob_crop expects.
type indexedKeypoint struct {
	Index int `json:"index"`
	blob.Keypoint
}

type blobDetectResult struct {
	RunID     string               `json:"run_id"`
	Width     int                  `json:"width"`
	Height    int                  `json:"height"`
	Total     int                  `json:"total"`
	Truncated bool                 `json:"truncated"`
	Keypoints []indexedKeypoint    `json:"keypoints"`
	Summary   blob.Summary         `json:"summary"`
	Stats     blob.RefineStats     `json:"stats"`
	Octaves   []blob.OctaveSummary `json:"octaves"`
	Params    blob.Params          `json:"params"`
}

func (s *Server) handleBlobDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a blobDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	override := config.DetectorConfig{
		CurrentSigma:     a.CurrentSigma,
		InitialSigma:     a.InitialSigma,
		DestinationSigma: a.DestinationSigma,
		ScalesPerOctave:  a.ScalesPerOctave,
		WideNeighborTest: a.WideNeighborTest,
		BorderSize:       a.BorderSize,
	}
	params := s.config.Params()
	override.ApplyTo(&params)

	octaves := s.config.GetOctaves()
	if a.Octaves != nil {
		octaves = *a.Octaves
	}
	maxKeypoints := s.config.GetMaxKeypoints()
	if a.MaxKeypoints != nil {
		maxKeypoints = *a.MaxKeypoints
	}

	run, err := s.detect(ctx, a.Path, a.MaskPath, params, octaves)
	if err != nil {
		return nil, err
	}

	kps := run.Result.Keypoints
	selected := selectKeypoints(kps, maxKeypoints)
	return &blobDetectResult{
		RunID:     run.ID,
		Width:     run.Width,
		Height:    run.Height,
		Total:     len(kps),
		Truncated: len(selected) < len(kps),
		Keypoints: selected,
		Summary:   blob.Summarize(kps),
		Stats:     run.Result.Stats,
		Octaves:   run.Result.Octaves,
		Params:    run.Params,
	}, nil
}

// detect runs the detector over the image at path and caches the run.
func (s *Server) detect(ctx context.Context, path, maskPath string, params blob.Params, octaves int) (*DetectionRun, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	plane, err := s.cache.LoadFloat(path)
	if err != nil {
		return nil, err
	}
	if maskPath != "" {
		maskImg, err := s.cache.Load(maskPath)
		if err != nil {
			return nil, fmt.Errorf("mask: %w", err)
		}
		params.Mask = imaging.MaskFromImage(maskImg)
	}

	detector, err := blob.NewDetector(params)
	if err != nil {
		return nil, err
	}
	if s.debug {
		detector.SetLogger(log.Default())
	}

	result, err := detector.Detect(ctx, plane, octaves)
	if err != nil {
		return nil, err
	}

	run := &DetectionRun{
		Path:    path,
		Width:   plane.Width,
		Height:  plane.Height,
		Params:  params,
		Octaves: octaves,
		Result:  result,
	}
	s.runs.Put(run)
	if s.debug {
		log.Printf("run %s: %d keypoints in %s", run.ID, len(result.Keypoints), path)
	}
	return run, nil
}

// selectKeypoints returns every keypoint when limit <= 0 or there are at
// most limit of them. Otherwise it keeps the limit strongest by Peak, in
// their original order.
func selectKeypoints(kps []blob.Keypoint, limit int) []indexedKeypoint {
	idx := make([]int, len(kps))
	for i := range idx {
		idx[i] = i
	}
	if limit > 0 && len(kps) > limit {
		sort.SliceStable(idx, func(a, b int) bool { return kps[idx[a]].Peak > kps[idx[b]].Peak })
		idx = idx[:limit]
		sort.Ints(idx)
	}

	out := make([]indexedKeypoint, len(idx))
	for i, k := range idx {
		out[i] = indexedKeypoint{Index: k, Keypoint: kps[k]}
	}
	return out
}

type blobSyntheticArgs struct {
	OutputPath string      `json:"output_path"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Spots      []blob.Spot `json:"spots"`
}

type blobSyntheticResult struct {
	Path   string      `json:"path"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Spots  []blob.Spot `json:"spots"`
}

func (s *Server) handleBlobSynthetic(args json.RawMessage) (interface{}, error) {
	var a blobSyntheticArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if filepath.Ext(a.OutputPath) != ".png" {
		return nil, fmt.Errorf("output_path must end in .png, got %q", a.OutputPath)
	}
	if a.Width == 0 {
		a.Width = defaultSyntheticSize
	}
	if a.Height == 0 {
		a.Height = defaultSyntheticSize
	}
	if a.Width < 0 || a.Height < 0 || a.Width > maxSyntheticSize || a.Height > maxSyntheticSize {
		return nil, fmt.Errorf("size %dx%d outside 1..%d", a.Width, a.Height, maxSyntheticSize)
	}
	if len(a.Spots) == 0 {
		a.Spots = blob.TestPatternSpots()
	}
	for i := range a.Spots {
		if a.Spots[i].Amplitude == 0 {
			a.Spots[i].Amplitude = 1
		}
	}

	img, err := blob.Synthetic(a.Width, a.Height, a.Spots)
	if err != nil {
		return nil, err
	}
	if err := imaging.SavePNG(a.OutputPath, img); err != nil {
		return nil, err
	}
	s.cache.Evict(a.OutputPath)

	return &blobSyntheticResult{Path: a.OutputPath, Width: a.Width, Height: a.Height, Spots: a.Spots}, nil
}

// === Run Inspection Handlers ===

// lookupRun returns the cached run with the given ID.
func (s *Server) lookupRun(id string) (*DetectionRun, error) {
	if id == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	run, ok := s.runs.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errRunNotFound, id)
	}
	return run, nil
}

type blobOverlayArgs struct {
	RunID   string `json:"run_id"`
	Path    string `json:"path"`
	ColorBy string `json:"color_by"`
	Color   string `json:"color"`
	Labels  bool   `json:"labels"`
}

type blobOverlayResult struct {
	RunID string `json:"run_id"`
	*imaging.OverlayResult
}

func (s *Server) handleBlobOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a blobOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var run *DetectionRun
	var err error
	switch {
	case a.RunID != "":
		run, err = s.lookupRun(a.RunID)
	case a.Path != "":
		run, err = s.detect(ctx, a.Path, "", s.config.Params(), s.config.GetOctaves())
	default:
		err = fmt.Errorf("run_id or path is required")
	}
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(run.Path)
	if err != nil {
		return nil, err
	}
	overlay, err := imaging.Overlay(img, run.Result.Keypoints, imaging.OverlayOptions{
		ColorBy: a.ColorBy,
		Color:   a.Color,
		Labels:  a.Labels,
	})
	if err != nil {
		return nil, err
	}
	return &blobOverlayResult{RunID: run.ID, OverlayResult: overlay}, nil
}

type blobCropArgs struct {
	RunID    string  `json:"run_id"`
	Index    int     `json:"index"`
	HalfSize int     `json:"half_size"`
	Scale    float64 `json:"scale"`
}

type blobCropResult struct {
	RunID    string        `json:"run_id"`
	Index    int           `json:"index"`
	Keypoint blob.Keypoint `json:"keypoint"`
	*imaging.CropResult
}

func (s *Server) handleBlobCrop(args json.RawMessage) (interface{}, error) {
	var a blobCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	run, err := s.lookupRun(a.RunID)
	if err != nil {
		return nil, err
	}
	kps := run.Result.Keypoints
	if a.Index < 0 || a.Index >= len(kps) {
		return nil, fmt.Errorf("index %d out of range: run has %d keypoints", a.Index, len(kps))
	}

	img, err := s.cache.Load(run.Path)
	if err != nil {
		return nil, err
	}
	crop, err := imaging.CropKeypoint(img, kps[a.Index], a.HalfSize, a.Scale)
	if err != nil {
		return nil, err
	}
	return &blobCropResult{RunID: run.ID, Index: a.Index, Keypoint: kps[a.Index], CropResult: crop}, nil
}

type blobSigmaArgs struct {
	RunID     string   `json:"run_id"`
	Bins      int      `json:"bins"`
	Threshold *float64 `json:"threshold"`
}

type blobSigmaThresholdResult struct {
	RunID     string  `json:"run_id"`
	Threshold float64 `json:"threshold"`
	Bins      int     `json:"bins"`
	Below     int     `json:"below"`
	Above     int     `json:"above"`
}

func (s *Server) handleBlobSigmaThreshold(args json.RawMessage) (interface{}, error) {
	var a blobSigmaArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Bins == 0 {
		a.Bins = s.config.GetHistogramBins()
	}
	run, err := s.lookupRun(a.RunID)
	if err != nil {
		return nil, err
	}

	sigmas := blob.Sigmas(run.Result.Keypoints)
	th, err := blob.OtsuThreshold(sigmas, a.Bins)
	if err != nil {
		return nil, err
	}

	res := &blobSigmaThresholdResult{RunID: run.ID, Threshold: th, Bins: a.Bins}
	for _, sg := range sigmas {
		if sg < th {
			res.Below++
		} else {
			res.Above++
		}
	}
	return res, nil
}

type blobSigmaHistogramResult struct {
	RunID string `json:"run_id"`
	*imaging.HistogramResult
}

func (s *Server) handleBlobSigmaHistogram(args json.RawMessage) (interface{}, error) {
	var a blobSigmaArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Bins == 0 {
		a.Bins = defaultPlotBins
	}
	run, err := s.lookupRun(a.RunID)
	if err != nil {
		return nil, err
	}

	sigmas := blob.Sigmas(run.Result.Keypoints)
	var th float64
	if a.Threshold != nil {
		th = *a.Threshold
	} else {
		th, err = blob.OtsuThreshold(sigmas, s.config.GetHistogramBins())
		if errors.Is(err, blob.ErrTooFewValues) {
			th = 0
		} else if err != nil {
			return nil, err
		}
	}

	hist, err := imaging.SigmaHistogram(sigmas, a.Bins, th)
	if err != nil {
		return nil, err
	}
	return &blobSigmaHistogramResult{RunID: run.ID, HistogramResult: hist}, nil
}
