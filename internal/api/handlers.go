package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/metadata"
	"github.com/ironsheep/watermark-tools-mcp/internal/watermark"
)

// maxUploadBytes caps the size of an upload request body.
const maxUploadBytes = 32 << 20

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	fonts     *watermark.FontResolver
	opts      imaging.EncodeOptions
	logger    zerolog.Logger
	maxUpload int64
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(fonts *watermark.FontResolver, opts imaging.EncodeOptions, logger zerolog.Logger) *Handlers {
	if fonts == nil {
		fonts = watermark.NewFontResolver(nil)
	}
	return &Handlers{fonts: fonts, opts: opts, logger: logger, maxUpload: maxUploadBytes}
}

// --- Helper Functions ---

// respondWithJSON is a helper to send a JSON response.
func (h *Handlers) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

// respondWithError is a helper to send a JSON error message.
func (h *Handlers) respondWithError(w http.ResponseWriter, code int, message string) {
	h.logger.Warn().Int("status", code).Msg(message)
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, metadata.ErrFileNotFound):
		return http.StatusNotFound
	case watermark.IsInputError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// uploadStatus maps a request parsing error to 413 or 400.
func uploadStatus(err error) int {
	if statusFor(err) == http.StatusRequestEntityTooLarge {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// readUpload returns the bytes and file name of the "image" form file.
func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, "", fmt.Errorf("invalid multipart form: %w", err)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", fmt.Errorf("invalid image file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	return data, header.Filename, nil
}

// parseWatermarkRequest extracts the upload, watermark options and output
// format from a watermark request.
func (h *Handlers) parseWatermarkRequest(w http.ResponseWriter, r *http.Request) ([]byte, string, watermark.Spec, imaging.Format, error) {
	data, name, err := h.readUpload(w, r)
	if err != nil {
		return nil, "", watermark.Spec{}, "", err
	}

	var opts watermark.Options
	if s := r.FormValue("spec"); s != "" {
		if err := json.Unmarshal([]byte(s), &opts); err != nil {
			return nil, "", watermark.Spec{}, "", fmt.Errorf("invalid spec JSON: %w", err)
		}
	}
	spec, err := opts.Spec()
	if err != nil {
		return nil, "", watermark.Spec{}, "", err
	}

	formatName := r.URL.Query().Get("format")
	if formatName == "" {
		formatName = string(imaging.FormatPNG)
	}
	format, err := imaging.ParseFormat(formatName)
	if err != nil {
		return nil, "", watermark.Spec{}, "", err
	}

	return data, name, spec, format, nil
}

// HandleWatermark composites a text watermark onto an uploaded image and
// returns the encoded result.
//
// Form fields: "image" (file) and "spec" (JSON watermark options). The
// "format" query parameter selects the output encoding (default png).
func (h *Handlers) HandleWatermark(w http.ResponseWriter, r *http.Request) {
	data, name, spec, format, err := h.parseWatermarkRequest(w, r)
	if err != nil {
		h.respondWithError(w, uploadStatus(err), err.Error())
		return
	}

	base, _, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("cannot decode image: %v", err))
		return
	}

	logger := h.logger.With().Str("request_id", w.Header().Get(RequestIDHeader)).Logger()
	result, err := watermark.Apply(base, spec, h.fonts, logger)
	if err != nil {
		h.respondWithError(w, statusFor(err), err.Error())
		return
	}

	out, err := result.Encode(format, h.opts)
	if err != nil {
		h.respondWithError(w, statusFor(err), err.Error())
		return
	}

	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if stem == "" || stem == "." {
		stem = "image"
	}
	w.Header().Set("Content-Type", format.MimeType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", stem+"-watermarked."+string(format)))
	w.Header().Set("X-Watermark-Position", fmt.Sprintf("%d,%d", result.Layout.X, result.Layout.Y))
	w.Header().Set("X-Watermark-Size", fmt.Sprintf("%dx%d", result.Layout.TextWidth, result.Layout.TextHeight))
	w.Header().Set("X-Watermark-Font", result.Layout.Font)
	for _, warning := range result.Warnings {
		w.Header().Add("X-Watermark-Warning", warning)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// ExifResponse is the body returned by HandleExif.
type ExifResponse struct {
	Filename   string              `json:"filename"`
	Count      int                 `json:"count"`
	Tags       metadata.Tags       `json:"tags"`
	Timestamps metadata.Timestamps `json:"timestamps"`
}

// HandleExif returns the EXIF tags of an uploaded image.
func (h *Handlers) HandleExif(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.readUpload(w, r)
	if err != nil {
		h.respondWithError(w, uploadStatus(err), err.Error())
		return
	}

	// The EXIF reader works on paths, so the upload is spooled to disk.
	tmp, err := os.CreateTemp("", "exif-*"+filepath.Ext(name))
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tmp.Close()

	tags, err := metadata.ReadAll(tmp.Name())
	if err != nil {
		var readErr *metadata.ReadError
		if errors.As(err, &readErr) {
			h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("cannot read EXIF: %v", readErr.Err))
			return
		}
		h.respondWithError(w, statusFor(err), err.Error())
		return
	}
	timestamps, err := metadata.GetTimestamps(tmp.Name())
	if err != nil {
		h.respondWithError(w, statusFor(err), err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, ExifResponse{
		Filename:   name,
		Count:      len(tags),
		Tags:       tags,
		Timestamps: timestamps,
	})
}

// HandleAnchors lists the accepted anchor names.
func (h *Handlers) HandleAnchors(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"anchors": watermark.Anchors(),
		"default": watermark.DefaultAnchor,
	})
}
