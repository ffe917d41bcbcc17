package metadata

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// ErrFileNotFound is returned when the image path does not exist.
var ErrFileNotFound = errors.New("file not found")

// ReadError wraps any failure to read or decode an image's metadata.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read EXIF from %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Tags maps EXIF field names to converted values.
type Tags map[string]any

// ReadAll returns every EXIF tag of the image at path, including GPS and
// maker-note fields. IFD pointer tags are omitted.
func ReadAll(path string) (Tags, error) {
	x, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	tags := Tags{}
	if x == nil {
		return tags, nil
	}
	if err := x.Walk(walker(func(name exif.FieldName, tag *tiff.Tag) {
		if strings.HasSuffix(string(name), "IFDPointer") {
			return
		}
		tags[string(name)] = tagValue(tag)
	})); err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return tags, nil
}

// GetTag returns a single tag. The boolean is false when the image has no
// such tag.
func GetTag(path, name string) (any, bool, error) {
	x, err := decodeFile(path)
	if err != nil || x == nil {
		return nil, false, err
	}
	tag, err := x.Get(exif.FieldName(name))
	if err != nil {
		if exif.IsTagNotPresentError(err) {
			return nil, false, nil
		}
		return nil, false, &ReadError{Path: path, Err: err}
	}
	return tagValue(tag), true, nil
}

// GetGPS returns the GPS tags of the image. When latitude and longitude are
// both present and well formed, the signed decimal degrees are added as
// "Latitude" and "Longitude".
func GetGPS(path string) (Tags, error) {
	x, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	gps := Tags{}
	if x == nil {
		return gps, nil
	}
	x.Walk(walker(func(name exif.FieldName, tag *tiff.Tag) {
		if strings.HasPrefix(string(name), "GPS") && !strings.HasSuffix(string(name), "IFDPointer") {
			gps[string(name)] = tagValue(tag)
		}
	}))
	if lat, long, err := x.LatLong(); err == nil {
		gps["Latitude"] = lat
		gps["Longitude"] = long
	}
	return gps, nil
}

// decodeFile returns the EXIF block of path, or nil when the file is a valid
// image without one.
func decodeFile(path string) (*exif.Exif, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	x, err := exif.Decode(f)
	switch {
	case err == nil:
		return x, nil
	case x != nil && !exif.IsCriticalError(err):
		return x, nil
	case x != nil:
		return nil, &ReadError{Path: path, Err: err}
	}

	// No EXIF block was found. That is only an error if the file is not an
	// image at all.

	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return nil, &ReadError{Path: path, Err: serr}
	}
	if _, _, cerr := image.DecodeConfig(f); cerr != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return nil, nil
}

type walker func(name exif.FieldName, tag *tiff.Tag)

func (w walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	w(name, tag)
	return nil
}

// tagValue converts a raw tag into a string, int, float64 or a slice of
// those.
func tagValue(tag *tiff.Tag) any {
	n := int(tag.Count)
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return tag.String()
		}
		return strings.TrimSpace(s)
	case tiff.IntVal:
		vals := make([]int, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Int(i)
			if err != nil {
				return tag.String()
			}
			vals = append(vals, v)
		}
		return single(vals)
	case tiff.RatVal:
		vals := make([]float64, 0, n)
		for i := 0; i < n; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				return tag.String()
			}
			if den == 0 {
				vals = append(vals, 0)
				continue
			}
			vals = append(vals, float64(num)/float64(den))
		}
		return single(vals)
	case tiff.FloatVal:
		vals := make([]float64, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Float(i)
			if err != nil {
				return tag.String()
			}
			vals = append(vals, v)
		}
		return single(vals)
	default:
		return undefinedValue(tag.Val)
	}
}

func single[T any](vals []T) any {
	if len(vals) == 1 {
		return vals[0]
	}
	return vals
}

// undefinedValue renders an UNDEFINED tag as text when it is printable
// (ExifVersion "0230") and as a byte count otherwise (MakerNote).
func undefinedValue(b []byte) string {
	s := strings.TrimRight(string(b), "\x00 ")
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return fmt.Sprintf("<%d bytes>", len(b))
		}
	}
	return s
}
