// Package imaging provides the raster operations used to turn a rectified
// plate into a binary character mask, plus the loading, encoding and overlay
// helpers the tools need around them.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Results are always anchored
// at the origin, even when the input is a sub-image.
//
// # Pipeline Stages
//
// The processing functions are pure: each returns a new image and never
// modifies its input.
//
//   - ToGrayscale: luminance conversion (BT.601 weights).
//   - EnhanceContrast: gray + top-hat - black-hat, saturated to [0,255], then
//     histogram equalization. Thin dark strokes are pushed toward 0 and the
//     plate background toward 255.
//   - Binarize: adaptive Gaussian or global Otsu thresholding. The result is
//     strictly two-valued; 255 marks ink (character strokes), 0 background.
//
// Morphology uses a square structuring element of side 2*radius+1. Pixels
// outside the image are treated as replicated edge pixels.
//
// # Polarity
//
// Plates usually carry dark characters on a light background (DarkOnLight):
// pixels at or below the threshold become ink. LightOnDark inverts the test
// for reversed plates.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless
// and may be called concurrently; row-parallel stages split work with
// bild's parallel package.
//
// # Error Handling
//
// Errors are returned for invalid parameters (structuring radius < 1, even or
// too small adaptive block sizes), unreadable or undecodable files, and
// encoding failures. Empty images are accepted and yield empty results.
package imaging
