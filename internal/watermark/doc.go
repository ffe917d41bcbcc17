// Package watermark composites text watermarks onto images.
//
// The engine is a short pipeline over an imaging.ImageBuffer:
//
//	resolve font -> measure ink box -> resolve anchor -> render and blend
//
// FontResolver turns a family name into a face, falling back to the built-in
// Go font with a *FontLoadWarning when the family is unavailable. Measure
// returns the real glyph ink bounds of a string. Resolve places that box at
// one of nine anchors. Render rasterizes the glyphs into a coverage mask and
// blends (color, coverage*opacity) over a copy of the base.
//
// Pipeline wraps these steps in an explicit state machine and keeps the base
// image pristine between runs. Spec is the immutable per-run configuration;
// Options is its loosely typed wire form.
package watermark
