package server

import (
	"testing"

	"github.com/ironsheep/watermark-tools-mcp/internal/watermark"
)

func toolByName(t *testing.T, name string) Tool {
	t.Helper()
	for _, tool := range GetToolDefinitions() {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return Tool{}
}

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"image_load",
		"image_dimensions",
		"image_sample_color",
		"image_watermark_measure",
		"image_watermark_preview",
		"image_watermark_save",
		"image_watermark_verify",
		"image_exif_read",
		"image_exif_tag",
		"image_exif_gps",
		"image_exif_timestamps",
		"image_thumbnail",
		"image_folder_list",
		"image_ocr_full",
		"image_ocr_info",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("Duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("Tool count: got %d, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	tools := GetToolDefinitions()

	for _, tool := range tools {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Name == "" {
				t.Error("Tool name is empty")
			}
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema == nil {
				t.Fatal("Tool InputSchema is nil")
			}

			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			// Every required parameter must be declared.
			if required, ok := tool.InputSchema["required"].([]string); ok {
				for _, r := range required {
					if _, ok := props[r]; !ok {
						t.Errorf("required parameter %s has no property", r)
					}
				}
			}
		})
	}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	toolsRequiringPath := []string{
		"image_load",
		"image_dimensions",
		"image_watermark_preview",
		"image_exif_read",
		"image_exif_tag",
		"image_exif_gps",
		"image_exif_timestamps",
		"image_thumbnail",
		"image_ocr_full",
	}

	for _, name := range toolsRequiringPath {
		tool := toolByName(t, name)

		t.Run(name, func(t *testing.T) {
			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}

			hasPath := false
			for _, r := range required {
				if r == "path" {
					hasPath = true
					break
				}
			}
			if !hasPath {
				t.Error("Tool should require 'path' parameter")
			}
		})
	}
}

func TestToolDefinitions_WatermarkAnchors(t *testing.T) {
	for _, name := range []string{"image_watermark_preview", "image_watermark_save", "image_watermark_verify"} {
		t.Run(name, func(t *testing.T) {
			props := toolByName(t, name).InputSchema["properties"].(map[string]interface{})

			anchorProp, ok := props["anchor"].(map[string]interface{})
			if !ok {
				t.Fatal("anchor property should exist and be a map")
			}
			enum, ok := anchorProp["enum"].([]string)
			if !ok {
				t.Fatal("anchor should have enum")
			}

			enumMap := make(map[string]bool)
			for _, e := range enum {
				enumMap[e] = true
			}
			for _, a := range watermark.Anchors() {
				if !enumMap[string(a)] {
					t.Errorf("Expected anchor '%s' not in enum", a)
				}
			}
			if anchorProp["default"] != "bottom-right" {
				t.Errorf("anchor default: got %v", anchorProp["default"])
			}
		})
	}
}

func TestToolDefinitions_OptionalDefaults(t *testing.T) {
	toolDefaults := map[string]map[string]interface{}{
		"image_watermark_preview": {
			"text": "Watermark", "font": "Arial", "size": 20,
			"color": "#FFFFFF", "opacity": 128, "margin": 10,
		},
		"image_watermark_save":   {"quality": 90},
		"image_watermark_verify": {"language": "eng"},
		"image_thumbnail":        {"width": 200},
		"image_folder_list":      {"thumbnail_width": 200},
		"image_ocr_full":         {"language": "eng"},
	}

	for toolName, expectedDefaults := range toolDefaults {
		props, ok := toolByName(t, toolName).InputSchema["properties"].(map[string]interface{})
		if !ok {
			t.Errorf("%s: properties should be a map", toolName)
			continue
		}

		for paramName, expectedDefault := range expectedDefaults {
			param, ok := props[paramName].(map[string]interface{})
			if !ok {
				t.Errorf("%s.%s: parameter not found or not a map", toolName, paramName)
				continue
			}
			if actual := param["default"]; actual != expectedDefault {
				t.Errorf("%s.%s: default got %v (%T), want %v", toolName, paramName, actual, actual, expectedDefault)
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer()
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
	}

	resp := s.handleToolsList(req)

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}
