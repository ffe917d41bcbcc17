package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool sends a tools/call request through handleRequest.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult unmarshals the JSON text content of a successful response.
func decodeToolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result %q: %v", text, err)
	}
}

func expectToolError(t *testing.T, resp *MCPResponse) {
	t.Helper()
	if resp.Error == nil {
		t.Fatal("Expected tool error")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

// watermarkArgs returns preview arguments with a deterministic built-in font.
func watermarkArgs(path string) map[string]interface{} {
	return map[string]interface{}{
		"path":    path,
		"text":    "Hello",
		"font":    "Go",
		"size":    20,
		"color":   "#FFFFFF",
		"opacity": 255,
		"anchor":  "top-left",
		"margin":  10,
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	decodeToolResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	var dims imaging.DimensionsResult
	decodeToolResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := newTestServer()
	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"})
	expectToolError(t, resp)
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer()
	resp := callTool(t, s, "image_crop", map[string]interface{}{})
	expectToolError(t, resp)
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer()
	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("Expected -32602 error, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 20, 20, color.RGBA{255, 128, 64, 255})

	var single imaging.ColorResult
	decodeToolResult(t, callTool(t, s, "image_sample_color", map[string]interface{}{
		"path": imgPath, "x": 5, "y": 5,
	}), &single)
	if single.Hex != "#FF8040" {
		t.Errorf("Hex: got %s, want #FF8040", single.Hex)
	}

	var multi imaging.MultiColorResult
	decodeToolResult(t, callTool(t, s, "image_sample_color", map[string]interface{}{
		"path": imgPath,
		"points": []map[string]interface{}{
			{"x": 0, "y": 0, "label": "corner"},
			{"x": 19, "y": 19},
		},
	}), &multi)
	if len(multi.Samples) != 2 || multi.Samples[0].Label != "corner" {
		t.Errorf("Samples: got %+v", multi.Samples)
	}

	expectToolError(t, callTool(t, s, "image_sample_color", map[string]interface{}{"x": 1, "y": 1}))
	expectToolError(t, callTool(t, s, "image_sample_color", map[string]interface{}{"path": imgPath, "x": 20, "y": 0}))
}

func TestHandleToolsCall_WatermarkMeasure(t *testing.T) {
	s := newTestServer()

	var m MeasureResult
	decodeToolResult(t, callTool(t, s, "image_watermark_measure", map[string]interface{}{
		"text": "Hello", "font": "Go", "size": 500,
	}), &m)

	if m.Size != 100 {
		t.Errorf("Size: got %d, want clamp to 100", m.Size)
	}
	if m.Width <= 0 || m.Height <= 0 {
		t.Errorf("ink box should not be empty: %dx%d", m.Width, m.Height)
	}

	expectToolError(t, callTool(t, s, "image_watermark_measure", map[string]interface{}{"text": "   "}))
}

func TestHandleToolsCall_WatermarkPreview(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 200, 100, color.RGBA{0, 0, 0, 255})

	var result PreviewResult
	decodeToolResult(t, callTool(t, s, "image_watermark_preview", watermarkArgs(imgPath)), &result)

	if result.PreviewID == "" {
		t.Fatal("PreviewID should be set")
	}
	if result.Width != 200 || result.Height != 100 {
		t.Errorf("size: got %dx%d, want 200x100", result.Width, result.Height)
	}
	if result.Layout.X != 10 || result.Layout.Y != 10 {
		t.Errorf("top-left placement: got (%d,%d), want (10,10)", result.Layout.X, result.Layout.Y)
	}
	if result.Layout.FontFallback {
		t.Error("built-in Go font should not fall back")
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s", result.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(result.Data)
	if err != nil {
		t.Fatalf("preview is not base64: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("preview is not a PNG: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 100 {
		t.Errorf("preview size: got %dx%d, want 200x100", cfg.Width, cfg.Height)
	}

	// Pixels outside the ink box keep the base color.
	var outside imaging.ColorResult
	decodeToolResult(t, callTool(t, s, "image_sample_color", map[string]interface{}{
		"preview_id": result.PreviewID, "x": 199, "y": 99,
	}), &outside)
	if outside.Hex != "#000000" {
		t.Errorf("pixel outside watermark: got %s, want #000000", outside.Hex)
	}
}

func TestHandleToolsCall_WatermarkPreview_Scaled(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 200, 100, color.RGBA{0, 0, 0, 255})

	args := watermarkArgs(imgPath)
	args["max_preview"] = 50

	var result PreviewResult
	decodeToolResult(t, callTool(t, s, "image_watermark_preview", args), &result)

	if result.PreviewWidth != 50 || result.PreviewHeight != 25 {
		t.Errorf("preview size: got %dx%d, want 50x25", result.PreviewWidth, result.PreviewHeight)
	}
	if result.Width != 200 || result.Height != 100 {
		t.Errorf("stored size: got %dx%d, want 200x100", result.Width, result.Height)
	}
}

func TestHandleToolsCall_WatermarkPreview_DoesNotStack(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 120, 60, color.RGBA{40, 40, 40, 255})

	var first, second PreviewResult
	decodeToolResult(t, callTool(t, s, "image_watermark_preview", watermarkArgs(imgPath)), &first)
	decodeToolResult(t, callTool(t, s, "image_watermark_preview", watermarkArgs(imgPath)), &second)

	if first.PreviewID == second.PreviewID {
		t.Fatal("each preview should get its own id")
	}
	a, err := s.previews.Get(first.PreviewID)
	if err != nil {
		t.Fatalf("first preview missing: %v", err)
	}
	b, err := s.previews.Get(second.PreviewID)
	if err != nil {
		t.Fatalf("second preview missing: %v", err)
	}
	if !a.Result.Image.Equal(b.Result.Image) {
		t.Error("identical renders should produce identical images")
	}

	base, err := s.cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := base.At(15, 15); got != (imaging.Color{R: 40, G: 40, B: 40, A: 255}) {
		t.Errorf("cached base was modified: %+v", got)
	}
}

func TestHandleToolsCall_WatermarkPreview_Invalid(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 50, 50, color.RGBA{0, 0, 0, 255})

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing path", map[string]interface{}{"text": "x"}},
		{"missing file", map[string]interface{}{"path": "/nonexistent/a.png"}},
		{"empty text", map[string]interface{}{"path": imgPath, "text": ""}},
		{"bad color", map[string]interface{}{"path": imgPath, "color": "#GGG"}},
		{"opacity range", map[string]interface{}{"path": imgPath, "opacity": 300}},
		{"negative margin", map[string]interface{}{"path": imgPath, "margin": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectToolError(t, callTool(t, s, "image_watermark_preview", tt.args))
		})
	}
	if s.previews.Len() != 0 {
		t.Errorf("failed renders should not be stored, got %d", s.previews.Len())
	}
}

func TestHandleToolsCall_WatermarkSave(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 160, 90, color.RGBA{0, 0, 128, 255})

	var preview PreviewResult
	decodeToolResult(t, callTool(t, s, "image_watermark_preview", watermarkArgs(imgPath)), &preview)

	out := filepath.Join(t.TempDir(), "out.jpg")
	var saved SaveResult
	decodeToolResult(t, callTool(t, s, "image_watermark_save", map[string]interface{}{
		"preview_id":  preview.PreviewID,
		"output_path": out,
	}), &saved)

	if saved.Format != "jpeg" || saved.MimeType != "image/jpeg" {
		t.Errorf("format: got %s (%s), want jpeg", saved.Format, saved.MimeType)
	}
	if saved.Width != 160 || saved.Height != 90 {
		t.Errorf("size: got %dx%d, want 160x90", saved.Width, saved.Height)
	}
	if len(saved.ID) != 32 {
		t.Errorf("ID should be an MD5 hex digest, got %q", saved.ID)
	}
	if saved.Flattened {
		t.Error("opaque result should not report flattening")
	}

	var dims imaging.DimensionsResult
	decodeToolResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": out}), &dims)
	if dims.Width != 160 || dims.Height != 90 {
		t.Errorf("saved file dimensions: got %dx%d", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_WatermarkSave_RenderFresh(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 80, 40, color.RGBA{0, 0, 0, 255})

	args := watermarkArgs(imgPath)
	args["output_path"] = filepath.Join(t.TempDir(), "out.png")

	var saved SaveResult
	decodeToolResult(t, callTool(t, s, "image_watermark_save", args), &saved)
	if saved.Format != "png" {
		t.Errorf("format: got %s, want png", saved.Format)
	}
}

func TestHandleToolsCall_WatermarkSave_Errors(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 40, 40, color.RGBA{0, 0, 0, 255})
	dir := t.TempDir()

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing output", map[string]interface{}{"path": imgPath}},
		{"unsupported extension", map[string]interface{}{"path": imgPath, "output_path": filepath.Join(dir, "out.xyz")}},
		{"unknown preview", map[string]interface{}{"preview_id": "8f14e45f-ceea-467f-a0e6-5f7e4b1b2c3d", "output_path": filepath.Join(dir, "a.png")}},
		{"malformed preview", map[string]interface{}{"preview_id": "nope", "output_path": filepath.Join(dir, "b.png")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectToolError(t, callTool(t, s, "image_watermark_save", tt.args))
		})
	}
}

func TestHandleToolsCall_WatermarkVerify_UnknownPreview(t *testing.T) {
	s := newTestServer()
	resp := callTool(t, s, "image_watermark_verify", map[string]interface{}{"preview_id": "not-a-uuid"})
	expectToolError(t, resp)
}

func TestHandleToolsCall_ExifWithoutMetadata(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 10, 10, color.RGBA{0, 0, 0, 255})

	var all ExifResult
	decodeToolResult(t, callTool(t, s, "image_exif_read", map[string]interface{}{"path": imgPath}), &all)
	if all.Count != 0 {
		t.Errorf("PNG without EXIF: got %d tags", all.Count)
	}

	var tag ExifTagResult
	decodeToolResult(t, callTool(t, s, "image_exif_tag", map[string]interface{}{"path": imgPath, "tag": "Make"}), &tag)
	if tag.Present {
		t.Error("Make should not be present")
	}

	var gps ExifResult
	decodeToolResult(t, callTool(t, s, "image_exif_gps", map[string]interface{}{"path": imgPath}), &gps)
	if gps.Count != 0 {
		t.Errorf("GPS tags: got %d, want 0", gps.Count)
	}

	var ts map[string]interface{}
	decodeToolResult(t, callTool(t, s, "image_exif_timestamps", map[string]interface{}{"path": imgPath}), &ts)
	if ts["DateTime"] != nil {
		t.Errorf("DateTime: got %v, want null", ts["DateTime"])
	}
}

func TestHandleToolsCall_ExifErrors(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 10, 10, color.RGBA{0, 0, 0, 255})

	expectToolError(t, callTool(t, s, "image_exif_read", map[string]interface{}{"path": "/nonexistent/a.jpg"}))
	expectToolError(t, callTool(t, s, "image_exif_tag", map[string]interface{}{"path": imgPath}))
}

func TestHandleToolsCall_Thumbnail(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{10, 20, 30, 255})

	var thumb ThumbnailInfo
	decodeToolResult(t, callTool(t, s, "image_thumbnail", map[string]interface{}{"path": imgPath, "width": 50}), &thumb)

	if thumb.ThumbnailResult == nil {
		t.Fatal("thumbnail missing")
	}
	if thumb.Width != 50 || thumb.Height != 40 {
		t.Errorf("thumbnail size: got %dx%d, want 50x40", thumb.Width, thumb.Height)
	}
	if len(thumb.ID) != 32 {
		t.Errorf("ID: got %q", thumb.ID)
	}
}

func TestHandleToolsCall_FolderList(t *testing.T) {
	s := newTestServer()
	dir := t.TempDir()

	for _, name := range []string{"b.png", "a.png"} {
		src := createTestImageFile(t, 30, 30, color.RGBA{200, 0, 0, 255})
		data, err := os.ReadFile(src)
		if err != nil {
			t.Fatalf("read fixture: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var result imaging.FolderResult
	decodeToolResult(t, callTool(t, s, "image_folder_list", map[string]interface{}{"folder": dir}), &result)

	if result.Count != 2 {
		t.Fatalf("Count: got %d, want 2", result.Count)
	}
	if result.Images[0].Name != "a" || result.Images[1].Name != "b" {
		t.Errorf("images should be sorted by name: %s, %s", result.Images[0].Name, result.Images[1].Name)
	}
	if result.Images[0].ID != result.Images[1].ID {
		t.Error("identical files should share a content id")
	}

	expectToolError(t, callTool(t, s, "image_folder_list", map[string]interface{}{}))
}

func TestHandleToolsCall_OCRInfo(t *testing.T) {
	s := newTestServer()

	var info map[string]interface{}
	decodeToolResult(t, callTool(t, s, "image_ocr_info", map[string]interface{}{}), &info)
	if _, ok := info["available"]; !ok {
		t.Errorf("OCR info should report availability: %v", info)
	}
}
