package server

import (
	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/ocr"
	"github.com/ironsheep/watermark-tools-mcp/internal/watermark"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func previewIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "ID returned by image_watermark_preview. When set, the stored result is used instead of rendering path again",
	}
}

func anchorNames() []string {
	anchors := watermark.Anchors()
	names := make([]string, len(anchors))
	for i, a := range anchors {
		names[i] = string(a)
	}
	return names
}

// watermarkProperties returns the schema of watermark.Options merged with
// the tool's own properties.
func watermarkProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"text": map[string]interface{}{
			"type":        "string",
			"description": "Watermark text (default \"Watermark\")",
			"default":     watermark.DefaultText,
		},
		"font": map[string]interface{}{
			"type":        "string",
			"description": "Font family name or path to a .ttf/.otf/.ttc file. Unknown families fall back to Go Regular with a warning",
			"default":     watermark.DefaultFontFamily,
		},
		"size": map[string]interface{}{
			"type":        "integer",
			"description": "Font size in pixels, clamped to 10-100 (default 20)",
			"default":     watermark.DefaultFontSize,
		},
		"color": map[string]interface{}{
			"type":        "string",
			"description": "Text color as #RGB, #RRGGBB or #RRGGBBAA (default #FFFFFF). The alpha digits are ignored; use opacity",
			"default":     "#FFFFFF",
		},
		"opacity": map[string]interface{}{
			"type":        "integer",
			"description": "Text opacity 0-255 (default 128)",
			"default":     watermark.DefaultOpacity,
		},
		"anchor": map[string]interface{}{
			"type":        "string",
			"enum":        anchorNames(),
			"description": "Placement of the text box (default bottom-right)",
			"default":     string(watermark.DefaultAnchor),
		},
		"margin": map[string]interface{}{
			"type":        "integer",
			"description": "Distance in pixels from the anchored edges (default 10)",
			"default":     watermark.DefaultMargin,
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, color depth, alpha and file size. The decoded image is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
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
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the color at one pixel, or at several labeled points, of an image file or a watermark preview. Returns hex, RGB, RGBA and HSL.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty(),
					"preview_id": previewIDProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based)",
					},
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "string"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Points to sample instead of x/y",
					},
				},
			},
		},

		// Watermark Operations
		{
			Name:        "image_watermark_measure",
			Description: "Measure the ink box of a watermark text in a given font and size without touching an image.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": watermarkProperties(nil),
			},
		},
		{
			Name:        "image_watermark_preview",
			Description: "Composite a text watermark onto an image. Returns a PNG preview (base64, scaled to max_preview) with the placement, and a preview_id for save, sample and verify calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": watermarkProperties(map[string]interface{}{
					"path": pathProperty(),
					"max_preview": map[string]interface{}{
						"type":        "integer",
						"description": "Longest side of the returned preview in pixels (default from server configuration)",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_watermark_save",
			Description: "Write a watermarked image. Format follows the output extension (.png, .jpg, .bmp, .gif, .tif); formats without alpha are flattened onto white.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": watermarkProperties(map[string]interface{}{
					"path":       pathProperty(),
					"preview_id": previewIDProperty(),
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute destination path",
					},
					"quality": map[string]interface{}{
						"type":        "integer",
						"description": "JPEG quality 1-100 (default 90)",
						"default":     imaging.DefaultJPEGQuality,
					},
				}),
				"required": []string{"output_path"},
			},
		},
		{
			Name:        "image_watermark_verify",
			Description: "Run OCR over the watermark region of a rendered image and report whether the text is legible.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": watermarkProperties(map[string]interface{}{
					"path":       pathProperty(),
					"preview_id": previewIDProperty(),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code (default eng)",
						"default":     ocr.DefaultLanguage,
					},
				}),
			},
		},

		// EXIF Metadata
		{
			Name:        "image_exif_read",
			Description: "Read every EXIF tag of an image, including GPS and maker notes. Images without EXIF return no tags.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_exif_tag",
			Description: "Read a single EXIF tag by name (e.g. Make, Model, DateTimeOriginal).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"tag": map[string]interface{}{
						"type":        "string",
						"description": "EXIF field name",
					},
				},
				"required": []string{"path", "tag"},
			},
		},
		{
			Name:        "image_exif_gps",
			Description: "Read the GPS tags of an image, with decimal Latitude and Longitude when present.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_exif_timestamps",
			Description: "Read DateTime, DateTimeOriginal and DateTimeDigitized. Values that do not parse keep their raw text.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Gallery
		{
			Name:        "image_thumbnail",
			Description: "Create a JPEG thumbnail data URL of an image together with its MD5 content id.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Thumbnail width in pixels (default 200)",
						"default":     imaging.DefaultThumbnailSize,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_folder_list",
			Description: "List the images directly inside a folder with MD5 ids and thumbnails.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"folder": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the folder",
					},
					"thumbnail_width": map[string]interface{}{
						"type":        "integer",
						"description": "Thumbnail width in pixels (default 200)",
						"default":     imaging.DefaultThumbnailSize,
					},
				},
				"required": []string{"folder"},
			},
		},

		// OCR
		{
			Name:        "image_ocr_full",
			Description: "Extract all text from an image using Tesseract OCR.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code (default eng)",
						"default":     ocr.DefaultLanguage,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_ocr_info",
			Description: "Report whether OCR is available, the Tesseract version and installed languages.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
