package watermark

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// FallbackFamily is the built-in font used when a requested family cannot be
// loaded.
const FallbackFamily = "Go"

// fontDPI makes FaceOptions.Size a pixel size.
const fontDPI = 72

var builtinFonts = map[string][]byte{
	"go":        goregular.TTF,
	"goregular": goregular.TTF,
	"gobold":    gobold.TTF,
	"goitalic":  goitalic.TTF,
	"gomono":    gomono.TTF,
}

var errFontNotFound = errors.New("font not found")

// ResolvedFont is a face ready for measuring and drawing.
//
// A font.Face is not safe for concurrent use; every Resolve call returns a
// fresh face.
type ResolvedFont struct {
	// Family is the family that was actually loaded.
	Family string

	// Source is the file the font came from, or "builtin".
	Source string

	// Size is the pixel size of the face.
	Size int

	// Fallback is true when the requested family was replaced.
	Fallback bool

	Face font.Face
}

// FontResolver loads font faces by family name.
//
// Resolution order:
//  1. built-in Go fonts: "Go", "Go Bold", "Go Italic", "Go Mono"
//  2. a path to a .ttf, .otf or .ttc file
//  3. a file in one of the configured directories whose name matches the
//     family, ignoring case, spaces, dashes and underscores
//  4. a file in those directories whose embedded family name matches
//
// Parsed fonts are cached; the resolver is safe for concurrent use.
type FontResolver struct {
	dirs []string

	mu     sync.Mutex
	parsed map[string]*opentype.Font
	index  map[string]string // normalized file stem -> path
	names  map[string]string // normalized sfnt family -> path
}

// NewFontResolver creates a resolver that searches dirs for font files.
// Missing directories are skipped.
func NewFontResolver(dirs []string) *FontResolver {
	return &FontResolver{
		dirs:   dirs,
		parsed: make(map[string]*opentype.Font),
	}
}

// DefaultFontDirs returns the usual system and per-user font directories for
// the current platform.
func DefaultFontDirs() []string {
	home, _ := os.UserHomeDir()
	var dirs []string
	switch runtime.GOOS {
	case "darwin":
		dirs = []string{"/System/Library/Fonts", "/Library/Fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		dirs = []string{filepath.Join(windir, "Fonts")}
	default:
		dirs = []string{"/usr/share/fonts", "/usr/local/share/fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".fonts"), filepath.Join(home, ".local", "share", "fonts"))
		}
	}
	return dirs
}

// Dirs returns the directories searched by the resolver.
func (r *FontResolver) Dirs() []string {
	return append([]string(nil), r.dirs...)
}

// Resolve loads family at size pixels.
//
// When the family cannot be loaded the built-in Go Regular face is returned
// together with a *FontLoadWarning. Any other error means no face could be
// produced at all.
func (r *FontResolver) Resolve(family string, size int) (*ResolvedFont, error) {
	if size <= 0 {
		return nil, inputErr("font_size", fmt.Sprintf("must be positive, got %d", size), nil)
	}

	f, source, err := r.lookup(family)
	if err == nil {
		face, ferr := newFace(f, size)
		if ferr == nil {
			return &ResolvedFont{Family: family, Source: source, Size: size, Face: face}, nil
		}
		err = ferr
	}

	fallback, ferr := r.builtin("go")
	if ferr != nil {
		return nil, fmt.Errorf("failed to load fallback font: %w", ferr)
	}
	face, ferr := newFace(fallback, size)
	if ferr != nil {
		return nil, fmt.Errorf("failed to load fallback font: %w", ferr)
	}
	rf := &ResolvedFont{
		Family:   FallbackFamily,
		Source:   "builtin",
		Size:     size,
		Fallback: true,
		Face:     face,
	}
	return rf, &FontLoadWarning{Family: family, Fallback: FallbackFamily, Err: err}
}

// Measure resolves family at size and measures text with it. A font fallback
// is not reported; use Resolve when the warning matters.
func (r *FontResolver) Measure(text, family string, size int) (TextMetrics, error) {
	rf, err := r.Resolve(family, size)
	var warn *FontLoadWarning
	if err != nil && !errors.As(err, &warn) {
		return TextMetrics{}, err
	}
	defer rf.Face.Close()
	return Measure(rf.Face, text), nil
}

func newFace(f *opentype.Font, size int) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     fontDPI,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

func (r *FontResolver) lookup(family string) (*opentype.Font, string, error) {
	family = strings.TrimSpace(family)
	if family == "" {
		return nil, "", fmt.Errorf("%w: empty family name", errFontNotFound)
	}

	key := normalizeFamily(family)
	if _, ok := builtinFonts[key]; ok {
		f, err := r.builtin(key)
		return f, "builtin", err
	}

	if isFontFile(family) {
		if _, err := os.Stat(family); err == nil {
			f, err := r.load(family)
			return f, family, err
		}
	}

	r.mu.Lock()
	if r.index == nil {
		r.buildIndex()
	}
	path, ok := r.index[key]
	r.mu.Unlock()
	if ok {
		f, err := r.load(path)
		return f, path, err
	}

	r.mu.Lock()
	if r.names == nil {
		r.buildNames()
	}
	path, ok = r.names[key]
	r.mu.Unlock()
	if ok {
		f, err := r.load(path)
		return f, path, err
	}

	return nil, "", fmt.Errorf("%w: %s", errFontNotFound, family)
}

func (r *FontResolver) builtin(key string) (*opentype.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cacheKey := "builtin:" + key
	if f, ok := r.parsed[cacheKey]; ok {
		return f, nil
	}
	f, err := opentype.Parse(builtinFonts[key])
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in font: %w", err)
	}
	r.parsed[cacheKey] = f
	return f, nil
}

// load parses a font file. For collections the first font is used.
func (r *FontResolver) load(path string) (*opentype.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.parsed[path]; ok {
		return f, nil
	}
	f, err := parseFontFile(path)
	if err != nil {
		return nil, err
	}
	r.parsed[path] = f
	return f, nil
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		c, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font collection: %w", err)
		}
		return c.Font(0)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return f, nil
}

// buildIndex maps file stems to paths. Earlier directories win. Must be
// called with r.mu held.
func (r *FontResolver) buildIndex() {
	r.index = make(map[string]string)
	for _, path := range r.fontFiles() {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		key := normalizeFamily(stem)
		if _, exists := r.index[key]; !exists {
			r.index[key] = path
		}
	}
}

// buildNames maps embedded family names to paths. Must be called with r.mu
// held.
func (r *FontResolver) buildNames() {
	r.names = make(map[string]string)
	var buf sfnt.Buffer
	for _, path := range r.fontFiles() {
		f, err := parseFontFile(path)
		if err != nil {
			continue
		}
		name, err := f.Name(&buf, sfnt.NameIDFamily)
		if err != nil || name == "" {
			continue
		}
		key := normalizeFamily(name)
		if _, exists := r.names[key]; !exists {
			r.names[key] = path
			r.parsed[path] = f
		}
	}
}

func (r *FontResolver) fontFiles() []string {
	var files []string
	for _, dir := range r.dirs {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && path != dir {
					return fs.SkipDir
				}
				return nil
			}
			if !d.IsDir() && isFontFile(path) {
				files = append(files, path)
			}
			return nil
		})
	}
	return files
}

func isFontFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttf", ".otf", ".ttc":
		return true
	}
	return false
}

// normalizeFamily lowercases name and drops spaces, dashes and underscores.
func normalizeFamily(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
