package server

import (
	"encoding/json"
	"testing"
)

func toolsByName() map[string]Tool {
	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}
	return toolMap
}

func TestGetToolDefinitions(t *testing.T) {
	expectedTools := []string{
		"image_load",
		"image_dimensions",
		"blob_detect",
		"blob_synthetic",
		"blob_overlay",
		"blob_crop",
		"blob_sigma_threshold",
		"blob_sigma_histogram",
	}

	toolMap := toolsByName()
	if len(toolMap) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(toolMap), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok || len(props) == 0 {
				t.Fatal("InputSchema has no properties")
			}

			// Every required argument must be a declared property.
			if required, ok := tool.InputSchema["required"].([]string); ok {
				for _, r := range required {
					if _, ok := props[r]; !ok {
						t.Errorf("required argument %s is not a property", r)
					}
				}
			}
		})
	}
}

func TestToolDefinitions_Required(t *testing.T) {
	tests := map[string][]string{
		"image_load":           {"path"},
		"image_dimensions":     {"path"},
		"blob_detect":          {"path"},
		"blob_synthetic":       {"output_path"},
		"blob_crop":            {"run_id", "index"},
		"blob_sigma_threshold": {"run_id"},
		"blob_sigma_histogram": {"run_id"},
	}

	toolMap := toolsByName()
	for name, want := range tests {
		required, _ := toolMap[name].InputSchema["required"].([]string)
		if len(required) != len(want) {
			t.Errorf("%s: required = %v, want %v", name, required, want)
			continue
		}
		for i := range want {
			if required[i] != want[i] {
				t.Errorf("%s: required = %v, want %v", name, required, want)
			}
		}
	}

	// blob_overlay accepts either run_id or path, so neither is required.
	if _, ok := toolMap["blob_overlay"].InputSchema["required"]; ok {
		t.Error("blob_overlay should not declare required arguments")
	}
}

func TestToolDefinitions_DetectDefaultsMatchConfig(t *testing.T) {
	s := New()
	params := s.config.Params()
	props := toolsByName()["blob_detect"].InputSchema["properties"].(map[string]interface{})

	defaults := map[string]interface{}{
		"current_sigma":      params.CurrentSigma,
		"initial_sigma":      params.InitialSigma,
		"destination_sigma":  params.DestinationSigma,
		"scales_per_octave":  params.ScalesPerOctave,
		"wide_neighbor_test": params.WideNeighborTest,
		"border_size":        params.BorderSize,
		"octaves":            s.config.GetOctaves(),
		"max_keypoints":      s.config.GetMaxKeypoints(),
	}
	for name, want := range defaults {
		prop, ok := props[name].(map[string]interface{})
		if !ok {
			t.Errorf("blob_detect has no %s property", name)
			continue
		}
		if prop["default"] != want {
			t.Errorf("%s default: got %v, want %v", name, prop["default"], want)
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := New()
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var decoded struct {
		Result struct {
			Tools []Tool `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if len(decoded.Result.Tools) != len(GetToolDefinitions()) {
		t.Errorf("got %d tools, want %d", len(decoded.Result.Tools), len(GetToolDefinitions()))
	}
}
