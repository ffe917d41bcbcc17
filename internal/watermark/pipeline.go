package watermark

import (
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// State is a step of the watermark pipeline. The pipeline only moves forward,
// one state at a time, except that every run restarts from StateImageLoaded.
type State int

const (
	StateIdle State = iota
	StateImageLoaded
	StateMeasured
	StatePositioned
	StateComposited
	StateReady
)

var stateNames = [...]string{"idle", "image-loaded", "measured", "positioned", "composited", "ready"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Layout records where a watermark was placed.
type Layout struct {
	Anchor       Anchor      `json:"anchor"`
	X            int         `json:"x"`
	Y            int         `json:"y"`
	TextWidth    int         `json:"text_width"`
	TextHeight   int         `json:"text_height"`
	Metrics      TextMetrics `json:"metrics"`
	Font         string      `json:"font"`
	FontSize     int         `json:"font_size"`
	FontFallback bool        `json:"font_fallback"`
}

// Bounds returns the ink box in image coordinates. It may extend past the
// image when the text is larger than the canvas.
func (l Layout) Bounds() image.Rectangle {
	return image.Rect(l.X, l.Y, l.X+l.TextWidth, l.Y+l.TextHeight)
}

// Result is the output of a successful run. Image is a new buffer owned by
// the caller; previews and saves both consume it.
type Result struct {
	Image    *imaging.ImageBuffer
	Spec     Spec
	Layout   Layout
	Warnings []string
}

// Encode writes the result image in format.
func (r *Result) Encode(format imaging.Format, opts imaging.EncodeOptions) ([]byte, error) {
	data, err := imaging.EncodeBytes(r.Image, format, opts)
	if errors.Is(err, imaging.ErrUnsupportedFormat) {
		return nil, inputErr("format", string(format), err)
	}
	return data, err
}

// Save writes the result image to path, choosing the format from the
// extension. Formats without alpha are flattened onto white.
func (r *Result) Save(path string, opts imaging.EncodeOptions) (imaging.Format, error) {
	format, err := imaging.Save(r.Image, path, opts)
	if errors.Is(err, imaging.ErrUnsupportedFormat) {
		return "", inputErr("output_path", "unsupported file extension", err)
	}
	return format, err
}

// Pipeline composites text watermarks onto one base image.
//
// The base is loaded once and kept pristine: every Run starts again from
// StateImageLoaded and renders onto a fresh copy, so repeated previews never
// stack watermarks. A failed step leaves the pipeline in the state it had
// reached and no result is exposed.
//
// A Pipeline is not safe for concurrent use. Separate pipelines may share a
// base buffer because it is only read.
type Pipeline struct {
	fonts  *FontResolver
	logger zerolog.Logger

	state  State
	base   *imaging.ImageBuffer
	result *Result
}

// NewPipeline creates an idle pipeline.
func NewPipeline(fonts *FontResolver, logger zerolog.Logger) *Pipeline {
	if fonts == nil {
		fonts = NewFontResolver(nil)
	}
	return &Pipeline{fonts: fonts, logger: logger}
}

// State returns the state reached by the last operation.
func (p *Pipeline) State() State { return p.state }

// Base returns the loaded base image, or nil when idle.
func (p *Pipeline) Base() *imaging.ImageBuffer { return p.base }

// Result returns the last result, or nil unless the pipeline is Ready.
func (p *Pipeline) Result() *Result {
	if p.state != StateReady {
		return nil
	}
	return p.result
}

// Load sets the base image. The buffer is treated as read-only from now on.
func (p *Pipeline) Load(base *imaging.ImageBuffer) error {
	if err := base.Validate(); err != nil {
		return inputErr("image", "invalid image buffer", err)
	}
	p.base = base
	p.result = nil
	p.setState(StateImageLoaded)
	return nil
}

// LoadFile decodes path through cache and loads it as the base image.
func (p *Pipeline) LoadFile(cache *imaging.ImageCache, path string) error {
	buf, err := cache.Load(path)
	if err != nil {
		if errors.Is(err, imaging.ErrNotFound) {
			return inputErr("image_path", "file not found", err)
		}
		return inputErr("image_path", "cannot decode image", err)
	}
	return p.Load(buf)
}

// Run renders spec onto the base image.
func (p *Pipeline) Run(spec Spec) (*Result, error) {
	if p.base == nil {
		return nil, ErrNoImage
	}
	p.result = nil
	p.setState(StateImageLoaded)

	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var warnings []string
	rf, err := p.fonts.Resolve(spec.FontFamily, spec.FontSize)
	if err != nil {
		var warn *FontLoadWarning
		if !errors.As(err, &warn) {
			return nil, fmt.Errorf("failed to resolve font: %w", err)
		}
		p.logger.Warn().Err(warn.Err).
			Str("family", warn.Family).
			Str("fallback", warn.Fallback).
			Msg("font unavailable, using fallback")
		warnings = append(warnings, warn.Error())
	}
	defer rf.Face.Close()

	m := Measure(rf.Face, spec.Text)
	p.setState(StateMeasured)

	pos := Resolve(spec.Anchor, p.base.Width, p.base.Height, m.Width(), m.Height(), spec.Margin)
	p.setState(StatePositioned)

	img := composite(p.base, spec.Text, rf.Face, m, pos, spec.Color, spec.Opacity)
	p.setState(StateComposited)

	p.result = &Result{
		Image: img,
		Spec:  spec,
		Layout: Layout{
			Anchor:       spec.Anchor,
			X:            pos.X,
			Y:            pos.Y,
			TextWidth:    m.Width(),
			TextHeight:   m.Height(),
			Metrics:      m,
			Font:         rf.Family,
			FontSize:     rf.Size,
			FontFallback: rf.Fallback,
		},
		Warnings: warnings,
	}
	p.setState(StateReady)
	return p.result, nil
}

func (p *Pipeline) setState(s State) {
	p.state = s
	p.logger.Debug().Stringer("state", s).Msg("watermark pipeline")
}

// Apply runs a single-use pipeline over base.
func Apply(base *imaging.ImageBuffer, spec Spec, fonts *FontResolver, logger zerolog.Logger) (*Result, error) {
	p := NewPipeline(fonts, logger)
	if err := p.Load(base); err != nil {
		return nil, err
	}
	return p.Run(spec)
}
