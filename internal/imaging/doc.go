// Package imaging loads images and paints occlusion regions over them.
//
// Images are decoded with EXIF orientation applied so that pixel coordinates
// agree with the word boxes an OCR engine reports for the same file.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For boxes, (X,Y) is inclusive (top-left) and (X+Width, Y+Height) is
//     exclusive (bottom-right)
//
// # Masking
//
// [Mask] always works on a copy; the decoded source image is never modified.
// Boxes that extend past the image edge are clipped, and boxes entirely
// outside the image are ignored. Two styles are available:
//   - fill: paint the box with a solid color (default black)
//   - blur: replace the box with a Gaussian blur of its own pixels
//
// # Thread Safety
//
// Every function is stateless and safe for concurrent use. Nothing is cached
// between calls.
package imaging
