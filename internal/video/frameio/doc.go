// Package frameio connects the stabilizer to frames outside the process:
// numbered image files in a directory, or in-memory slices.
//
// Supported inputs are PNG, JPEG, BMP and TIFF; colour images are reduced
// to luma. Output frames are written as 8-bit gray PNGs named
// frame_000000.png, frame_000001.png, ...
package frameio
