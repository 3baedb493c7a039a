// Package imaging connects image files to the blob detector.
//
// It loads PNG, JPEG and GIF files into a shared cache, converts them to the
// float luminance planes the detector works on, and renders detector output
// back into images: keypoint overlays, keypoint crops and sigma histograms.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y downward. Keypoint coordinates are sub-pixel
// positions in the same frame. Regions are half-open: (x0,y0) inclusive,
// (x1,y1) exclusive.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The rendering functions are
// stateless and never modify their inputs.
//
// # Error Handling
//
// Functions return errors for unreadable files, keypoints or regions outside
// the image, unknown color modes and encoding failures.
package imaging
