package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
)

// DefaultJPEGQuality is used when an EncodeOptions leaves Quality unset.
const DefaultJPEGQuality = 90

// ErrUnsupportedFormat is returned when a destination extension has no encoder.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// FlattenBackground is the opaque color that alpha is composited onto when
// the destination format cannot store transparency.
var FlattenBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// EncodeOptions controls output encoding.
type EncodeOptions struct {
	// Quality is the JPEG quality (1-100). Zero means DefaultJPEGQuality.
	Quality int
}

// Format names an output encoding.
type Format string

// Supported output formats.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatBMP  Format = "bmp"
	FormatGIF  Format = "gif"
	FormatTIFF Format = "tiff"
)

// MimeType returns the media type of the format.
func (f Format) MimeType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatBMP:
		return "image/bmp"
	case FormatGIF:
		return "image/gif"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "image/png"
	}
}

// SupportsAlpha reports whether the format can store a transparency channel.
func (f Format) SupportsAlpha() bool {
	return f == FormatPNG || f == FormatTIFF
}

// FormatFromPath infers the output format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ParseFormat accepts a format name or extension such as "png", ".JPG" or "tiff".
func ParseFormat(name string) (Format, error) {
	name = strings.TrimPrefix(strings.ToLower(name), ".")
	if name == "" {
		return "", fmt.Errorf("%w: missing extension", ErrUnsupportedFormat)
	}
	f, err := imaging.FormatFromExtension(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	switch f {
	case imaging.PNG:
		return FormatPNG, nil
	case imaging.JPEG:
		return FormatJPEG, nil
	case imaging.BMP:
		return FormatBMP, nil
	case imaging.GIF:
		return FormatGIF, nil
	case imaging.TIFF:
		return FormatTIFF, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Decode decodes an encoded image held in memory.
func Decode(r io.Reader) (*ImageBuffer, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	buf, err := FromImage(img)
	if err != nil {
		return nil, "", err
	}
	return buf, format, nil
}

// Flatten composites the buffer onto an opaque background and returns a new
// opaque image. It is applied automatically before encoding to formats that
// cannot store alpha.
func Flatten(b *ImageBuffer, bg color.NRGBA) *image.NRGBA {
	canvas := imaging.New(b.Width, b.Height, bg)
	return imaging.Overlay(canvas, b.ToDisplay(), image.Point{}, 1.0)
}

// Encode writes the buffer in the given format. Formats without alpha receive
// a copy flattened onto FlattenBackground; the buffer itself is not modified.
func Encode(w io.Writer, b *ImageBuffer, format Format, opts EncodeOptions) error {
	if err := b.Validate(); err != nil {
		return err
	}

	var img image.Image = b.ToDisplay()
	if !format.SupportsAlpha() && !b.Opaque() {
		img = Flatten(b, FlattenBackground)
	}

	var err error
	switch format {
	case FormatPNG:
		err = imgio.PNGEncoder()(w, img)
	case FormatJPEG:
		quality := opts.Quality
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		err = imgio.JPEGEncoder(quality)(w, img)
	case FormatBMP:
		err = imgio.BMPEncoder()(w, img)
	case FormatGIF:
		err = gif.Encode(w, img, &gif.Options{NumColors: 256})
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// EncodeBytes is Encode into a fresh byte slice.
func EncodeBytes(b *ImageBuffer, format Format, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, b, format, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save encodes the buffer to path, inferring the format from the extension.
// The file is written to a temporary sibling first and renamed into place so
// a failed encode never leaves a truncated destination behind.
func Save(b *ImageBuffer, path string, opts EncodeOptions) (Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return "", err
	}

	data, err := EncodeBytes(b, format, opts)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".watermark-*"+filepath.Ext(path))
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(outputMode(path)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to set output file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move output into place: %w", err)
	}
	return format, nil
}

// outputMode keeps the permissions of an existing destination and falls back
// to 0644 for new files.
func outputMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return info.Mode().Perm()
	}
	return 0o644
}
