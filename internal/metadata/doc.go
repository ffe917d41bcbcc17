// Package metadata reads EXIF metadata from image files.
//
// Tags are returned by their EXIF field names ("Make", "DateTime",
// "GPSLatitude") with values converted to plain Go types: strings, ints,
// float64 for rationals, and slices of those for multi-valued tags. Images
// that carry no EXIF block yield an empty map rather than an error.
package metadata
