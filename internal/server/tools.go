package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, bit depth and luminance range.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Detection
		{
			Name: "blob_detect",
			Description: "Detect bright blob-like features (spots, stars, beads) with a Difference-of-Gaussians " +
				"scale-space search. Returns sub-pixel keypoints with their scale (sigma) and a run_id for the " +
				"blob_overlay, blob_crop and blob_sigma_* tools. Omitted parameters use the server's tuning defaults.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file. Color images are converted to luminance.",
					},
					"mask_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional mask image of the same size; pixels brighter than mid-gray are ignored",
					},
					"octaves": map[string]interface{}{
						"type":        "integer",
						"description": "Number of octaves to search. Each octave halves the image and doubles the reachable sigma. Default 1",
						"minimum":     1,
						"default":     1,
					},
					"current_sigma": map[string]interface{}{
						"type":        "number",
						"description": "Blur already present in the image. Default 0.25 (pixels independent)",
						"default":     0.25,
					},
					"initial_sigma": map[string]interface{}{
						"type":        "number",
						"description": "Smallest scale searched. Default 0.5",
						"default":     0.5,
					},
					"destination_sigma": map[string]interface{}{
						"type":        "number",
						"description": "Scale at which an octave ends. Default 8.0",
						"default":     8.0,
					},
					"scales_per_octave": map[string]interface{}{
						"type":        "integer",
						"description": "Number of scales searched per octave. Default 8",
						"minimum":     1,
						"default":     8,
					},
					"wide_neighbor_test": map[string]interface{}{
						"type":        "boolean",
						"description": "Compare against the 24-pixel neighborhood instead of the 8-pixel one. Default true",
						"default":     true,
					},
					"border_size": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels at each edge that are not searched. Default 5",
						"minimum":     0,
						"default":     5,
					},
					"max_keypoints": map[string]interface{}{
						"type":        "integer",
						"description": "Return at most this many keypoints, strongest first selected (0 = all). Default 500",
						"minimum":     0,
						"default":     500,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "blob_synthetic",
			Description: "Write a 16-bit grayscale PNG of Gaussian spots with known position and sigma, for checking detection. Without spots, writes a 4x4 grid of spots with sigma 0.5 to 8.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the PNG file to write",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Image width. Default 512",
						"default":     512,
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Image height. Default 512",
						"default":     512,
					},
					"spots": map[string]interface{}{
						"type":        "array",
						"description": "Spots to render",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":         map[string]interface{}{"type": "number"},
								"y":         map[string]interface{}{"type": "number"},
								"sigma":     map[string]interface{}{"type": "number"},
								"amplitude": map[string]interface{}{"type": "number", "default": 1.0},
							},
							"required": []string{"x", "y", "sigma"},
						},
					},
				},
				"required": []string{"output_path"},
			},
		},

		// Run inspection
		{
			Name:        "blob_overlay",
			Description: "Draw the keypoints of a detection run as circles of radius sigma*sqrt(2) over the source image and return it as base64-encoded PNG. Given a path instead of a run_id, detects with the default parameters first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "Run ID returned by blob_detect",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to an image to detect and annotate when no run_id is given",
					},
					"color_by": map[string]interface{}{
						"type":        "string",
						"description": "Circle coloring: sigma (blue to red), octave, or fixed. Default sigma",
						"enum":        []string{"sigma", "octave", "fixed"},
						"default":     "sigma",
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color for color_by=fixed (e.g., '#00FF00'). Default '#FF0000'",
						"default":     "#FF0000",
					},
					"labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Label each circle with its keypoint index. Default false",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "blob_crop",
			Description: "Crop a square window around one keypoint of a detection run and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "Run ID returned by blob_detect",
					},
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Keypoint index as reported by blob_detect",
						"minimum":     0,
					},
					"half_size": map[string]interface{}{
						"type":        "integer",
						"description": "Half the window edge in pixels. Default 0 = three blob radii",
						"default":     0,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional zoom factor (e.g., 4.0). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"run_id", "index"},
			},
		},
		{
			Name:        "blob_sigma_threshold",
			Description: "Split the keypoint sigmas of a detection run into small and large features with Otsu's method.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "Run ID returned by blob_detect",
					},
					"bins": map[string]interface{}{
						"type":        "integer",
						"description": "Histogram bins used for the split. Default 1000",
						"minimum":     2,
						"default":     1000,
					},
				},
				"required": []string{"run_id"},
			},
		},
		{
			Name:        "blob_sigma_histogram",
			Description: "Plot the keypoint sigma distribution of a detection run with its Otsu threshold and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "Run ID returned by blob_detect",
					},
					"bins": map[string]interface{}{
						"type":        "integer",
						"description": "Number of plotted bins. Default 40",
						"minimum":     1,
						"default":     40,
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Threshold line to draw. Default: the Otsu split; 0 draws none",
					},
				},
				"required": []string{"run_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
