// Package imaging provides the image buffer, codec and sampling primitives
// used by the watermark engine and the MCP server.
//
// The central type is ImageBuffer, an owned RGBA8 byte buffer with straight
// (non-premultiplied) alpha. Every decoded image is coerced into this form
// before any compositing happens, and every encoder starts from it.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Pixel Format Bridge
//
// FromImage coerces any image.Image (grayscale, paletted, YCbCr, 16-bit)
// into an ImageBuffer, adding an opaque alpha channel where the source has
// none. ToDisplay and FromDisplay convert to and from *image.NRGBA, which has
// the identical byte layout, so the round trip is byte-exact. ToRGBA exists
// for consumers that insist on premultiplied pixels.
//
// # Encoding
//
// Output formats are chosen from the destination extension: PNG, JPEG, BMP,
// GIF and TIFF. Formats that cannot store alpha receive a copy flattened onto
// opaque white (FlattenBackground); the alpha channel is never dropped without
// flattening.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Cached buffers are shared
// and must be treated as read-only.
package imaging
