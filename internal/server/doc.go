// Package server implements the MCP (Model Context Protocol) server for
// blob detection tools.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line on stdin
// and one response per line on stdout. Supported methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Detection:
//   - blob_detect: Scale-space blob search, returns keypoints and a run_id
//   - blob_synthetic: Write a test image of Gaussian spots
//
// Run inspection (take a run_id from blob_detect):
//   - blob_overlay: Draw keypoint circles over the source image
//   - blob_crop: Zoom into one keypoint
//   - blob_sigma_threshold: Otsu split of keypoint sigmas
//   - blob_sigma_histogram: Plot of the sigma distribution
//
// # Caching
//
// Decoded images and their luminance planes are cached by path for the
// lifetime of the process. Detection runs are cached by a random ID; only
// the most recent runs are kept, so an old run_id eventually stops
// resolving and the detection must be repeated.
//
// # Configuration
//
// Detector defaults come from a tuning file (see the config package) and
// can be overridden per call by blob_detect arguments.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with
// code -32000, the message "Tool execution failed" and the Go error string
// as data. Unknown methods get -32601 and malformed tools/call params -32602.
package server
