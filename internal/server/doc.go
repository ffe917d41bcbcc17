// Package server implements the MCP (Model Context Protocol) server for the
// watermark tools.
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_sample_color: Get color at one or more pixels of a file or preview
//
// Watermark Operations:
//   - image_watermark_measure: Ink box of a text in a font and size
//   - image_watermark_preview: Composite text and return a scaled PNG
//   - image_watermark_save: Write a watermarked image to disk
//   - image_watermark_verify: OCR the watermark region of a result
//
// EXIF Metadata:
//   - image_exif_read, image_exif_tag, image_exif_gps, image_exif_timestamps
//
// Gallery:
//   - image_thumbnail: JPEG thumbnail and MD5 content id
//   - image_folder_list: Thumbnails for every image in a folder
//
// OCR:
//   - image_ocr_full, image_ocr_info
//
// # Previews
//
// image_watermark_preview keeps the full-resolution result in memory under a
// UUID so save, sample and verify calls do not render again. The store holds
// the 32 most recent previews. Every render starts from the cached, unmodified
// source image.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal().Err(err).Msg("server error")
//	}
package server
