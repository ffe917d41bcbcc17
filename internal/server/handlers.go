package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/metadata"
	"github.com/ironsheep/watermark-tools-mcp/internal/ocr"
	"github.com/ironsheep/watermark-tools-mcp/internal/watermark"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_watermark_preview").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", params.Name).Msg("tool execution failed")
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

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache or the preview store as needed
//  4. Calls the appropriate imaging/watermark/metadata/ocr function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	// Watermark Operations
	case "image_watermark_measure":
		return s.handleWatermarkMeasure(args)
	case "image_watermark_preview":
		return s.handleWatermarkPreview(args)
	case "image_watermark_save":
		return s.handleWatermarkSave(args)
	case "image_watermark_verify":
		return s.handleWatermarkVerify(args)

	// EXIF Metadata
	case "image_exif_read":
		return s.handleExifRead(args)
	case "image_exif_tag":
		return s.handleExifTag(args)
	case "image_exif_gps":
		return s.handleExifGPS(args)
	case "image_exif_timestamps":
		return s.handleExifTimestamps(args)

	// Gallery
	case "image_thumbnail":
		return s.handleImageThumbnail(args)
	case "image_folder_list":
		return s.handleImageFolderList(args)

	// OCR
	case "image_ocr_full":
		return s.handleImageOCRFull(args)
	case "image_ocr_info":
		return ocr.GetOCRInfo(), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

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

type imageSampleColorArgs struct {
	Path      string `json:"path"`
	PreviewID string `json:"preview_id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Points    []struct {
		X     int    `json:"x"`
		Y     int    `json:"y"`
		Label string `json:"label,omitempty"`
	} `json:"points"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var buf *imaging.ImageBuffer
	switch {
	case a.PreviewID != "":
		p, err := s.previews.Get(a.PreviewID)
		if err != nil {
			return nil, err
		}
		buf = p.Result.Image
	case a.Path != "":
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		buf = img
	default:
		return nil, fmt.Errorf("either path or preview_id is required")
	}

	if len(a.Points) == 0 {
		return imaging.SampleColor(buf, a.X, a.Y)
	}
	points := make([]imaging.LabeledPoint, len(a.Points))
	for i, p := range a.Points {
		points[i] = imaging.LabeledPoint{X: p.X, Y: p.Y, Label: p.Label}
	}
	return imaging.SampleColorsMulti(buf, points)
}

// === Watermark Handlers ===

// MeasureResult reports the ink box of a text before it is placed.
type MeasureResult struct {
	Text    string                `json:"text"`
	Font    string                `json:"font"`
	Size    int                   `json:"size"`
	Width   int                   `json:"width"`
	Height  int                   `json:"height"`
	Metrics watermark.TextMetrics `json:"metrics"`
}

func (s *Server) handleWatermarkMeasure(args json.RawMessage) (interface{}, error) {
	var a watermark.Options
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	spec, err := a.Spec()
	if err != nil {
		return nil, err
	}

	m, err := s.fonts.Measure(spec.Text, spec.FontFamily, spec.FontSize)
	if err != nil {
		return nil, err
	}
	return &MeasureResult{
		Text:    spec.Text,
		Font:    spec.FontFamily,
		Size:    spec.FontSize,
		Width:   m.Width(),
		Height:  m.Height(),
		Metrics: m,
	}, nil
}

type watermarkPreviewArgs struct {
	Path string `json:"path"`
	watermark.Options
	MaxPreview int `json:"max_preview"`
}

// PreviewResult is a rendered watermark together with a scaled PNG preview.
// The full-resolution result stays on the server under PreviewID.
type PreviewResult struct {
	PreviewID     string           `json:"preview_id"`
	Source        string           `json:"source"`
	Width         int              `json:"width"`
	Height        int              `json:"height"`
	PreviewWidth  int              `json:"preview_width"`
	PreviewHeight int              `json:"preview_height"`
	MimeType      string           `json:"mime_type"`
	Data          string           `json:"data"`
	Text          string           `json:"text"`
	Color         string           `json:"color"`
	Opacity       uint8            `json:"opacity"`
	Layout        watermark.Layout `json:"layout"`
	Warnings      []string         `json:"warnings,omitempty"`
}

func (s *Server) handleWatermarkPreview(args json.RawMessage) (interface{}, error) {
	var a watermarkPreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MaxPreview == 0 {
		a.MaxPreview = s.previewMax
	}

	result, err := s.renderWatermark(a.Path, a.Options)
	if err != nil {
		return nil, err
	}
	p := s.previews.Put(a.Path, result)

	scaled, err := imaging.FitPreview(result.Image, a.MaxPreview)
	if err != nil {
		return nil, err
	}
	data, err := imaging.EncodeBytes(scaled, imaging.FormatPNG, s.encodeOpts)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{
		PreviewID:     p.ID.String(),
		Source:        a.Path,
		Width:         result.Image.Width,
		Height:        result.Image.Height,
		PreviewWidth:  scaled.Width,
		PreviewHeight: scaled.Height,
		MimeType:      imaging.FormatPNG.MimeType(),
		Data:          base64.StdEncoding.EncodeToString(data),
		Text:          result.Spec.Text,
		Color:         result.Spec.Color.Hex(),
		Opacity:       result.Spec.Opacity,
		Layout:        result.Layout,
		Warnings:      result.Warnings,
	}, nil
}

type watermarkSaveArgs struct {
	PreviewID string `json:"preview_id"`
	Path      string `json:"path"`
	watermark.Options
	OutputPath string `json:"output_path"`
	Quality    int    `json:"quality"`
}

// SaveResult describes a written watermarked image.
type SaveResult struct {
	OutputPath string `json:"output_path"`
	Format     string `json:"format"`
	MimeType   string `json:"mime_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	ID         string `json:"id"`
	Flattened  bool   `json:"flattened"`
}

func (s *Server) handleWatermarkSave(args json.RawMessage) (interface{}, error) {
	var a watermarkSaveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.OutputPath == "" {
		return nil, fmt.Errorf("output_path is required")
	}

	result, err := s.resultFor(a.PreviewID, a.Path, a.Options)
	if err != nil {
		return nil, err
	}

	opts := s.encodeOpts
	if a.Quality != 0 {
		opts.Quality = a.Quality
	}
	format, err := result.Save(a.OutputPath, opts)
	if err != nil {
		return nil, err
	}
	s.cache.Evict(a.OutputPath)

	id, err := imaging.FileMD5(a.OutputPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("output", a.OutputPath).Str("format", string(format)).Msg("watermarked image saved")

	return &SaveResult{
		OutputPath: a.OutputPath,
		Format:     string(format),
		MimeType:   format.MimeType(),
		Width:      result.Image.Width,
		Height:     result.Image.Height,
		ID:         id,
		Flattened:  !format.SupportsAlpha() && !result.Image.Opaque(),
	}, nil
}

type watermarkVerifyArgs struct {
	PreviewID string `json:"preview_id"`
	Path      string `json:"path"`
	watermark.Options
	Language string `json:"language"`
}

func (s *Server) handleWatermarkVerify(args json.RawMessage) (interface{}, error) {
	var a watermarkVerifyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = ocr.DefaultLanguage
	}

	result, err := s.resultFor(a.PreviewID, a.Path, a.Options)
	if err != nil {
		return nil, err
	}
	return ocr.VerifyWatermark(result.Image, result.Layout.Bounds(), result.Spec.Text, a.Language)
}

// renderWatermark runs a fresh pipeline over the image at path.
func (s *Server) renderWatermark(path string, opts watermark.Options) (*watermark.Result, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	spec, err := opts.Spec()
	if err != nil {
		return nil, err
	}

	p := watermark.NewPipeline(s.fonts, s.logger.With().Str("image", path).Logger())
	if err := p.LoadFile(s.cache, path); err != nil {
		return nil, err
	}
	return p.Run(spec)
}

// resultFor returns the stored preview when previewID is set, and renders
// path otherwise.
func (s *Server) resultFor(previewID, path string, opts watermark.Options) (*watermark.Result, error) {
	if previewID != "" {
		p, err := s.previews.Get(previewID)
		if err != nil {
			return nil, err
		}
		return p.Result, nil
	}
	return s.renderWatermark(path, opts)
}

// === EXIF Metadata Handlers ===

type exifArgs struct {
	Path string `json:"path"`
	Tag  string `json:"tag"`
}

// ExifResult lists the EXIF tags of one image.
type ExifResult struct {
	Path  string        `json:"path"`
	Count int           `json:"count"`
	Tags  metadata.Tags `json:"tags"`
}

// ExifTagResult is a single EXIF tag lookup.
type ExifTagResult struct {
	Path    string      `json:"path"`
	Tag     string      `json:"tag"`
	Present bool        `json:"present"`
	Value   interface{} `json:"value,omitempty"`
}

func (s *Server) handleExifRead(args json.RawMessage) (interface{}, error) {
	var a exifArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	tags, err := metadata.ReadAll(a.Path)
	if err != nil {
		return nil, err
	}
	return &ExifResult{Path: a.Path, Count: len(tags), Tags: tags}, nil
}

func (s *Server) handleExifTag(args json.RawMessage) (interface{}, error) {
	var a exifArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Tag == "" {
		return nil, fmt.Errorf("tag is required")
	}
	value, ok, err := metadata.GetTag(a.Path, a.Tag)
	if err != nil {
		return nil, err
	}
	return &ExifTagResult{Path: a.Path, Tag: a.Tag, Present: ok, Value: value}, nil
}

func (s *Server) handleExifGPS(args json.RawMessage) (interface{}, error) {
	var a exifArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	gps, err := metadata.GetGPS(a.Path)
	if err != nil {
		return nil, err
	}
	return &ExifResult{Path: a.Path, Count: len(gps), Tags: gps}, nil
}

func (s *Server) handleExifTimestamps(args json.RawMessage) (interface{}, error) {
	var a exifArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return metadata.GetTimestamps(a.Path)
}

// === Gallery Handlers ===

type imageThumbnailArgs struct {
	Path  string `json:"path"`
	Width int    `json:"width"`
}

// ThumbnailInfo is a thumbnail with the content id of its source file.
type ThumbnailInfo struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	*imaging.ThumbnailResult
}

func (s *Server) handleImageThumbnail(args json.RawMessage) (interface{}, error) {
	var a imageThumbnailArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Width == 0 {
		a.Width = imaging.DefaultThumbnailSize
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	id, err := imaging.FileMD5(a.Path)
	if err != nil {
		return nil, err
	}
	thumb, err := imaging.Thumbnail(img, a.Width)
	if err != nil {
		return nil, err
	}
	return &ThumbnailInfo{ID: id, Path: a.Path, ThumbnailResult: thumb}, nil
}

type imageFolderListArgs struct {
	Folder         string `json:"folder"`
	ThumbnailWidth int    `json:"thumbnail_width"`
}

func (s *Server) handleImageFolderList(args json.RawMessage) (interface{}, error) {
	var a imageFolderListArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Folder == "" {
		return nil, fmt.Errorf("folder is required")
	}
	if a.ThumbnailWidth == 0 {
		a.ThumbnailWidth = imaging.DefaultThumbnailSize
	}
	return imaging.ListFolder(context.Background(), a.Folder, a.ThumbnailWidth)
}

// === OCR Handlers ===

type imageOCRFullArgs struct {
	Path     string `json:"path"`
	Language string `json:"language"`
}

func (s *Server) handleImageOCRFull(args json.RawMessage) (interface{}, error) {
	var a imageOCRFullArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = ocr.DefaultLanguage
	}
	return ocr.ExtractText(a.Path, a.Language)
}
