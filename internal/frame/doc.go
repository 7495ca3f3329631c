// Package frame provides the low-level building blocks for visual
// stability detection: downscaled raw-RGB frames, a fixed-capacity
// ring buffer of recent frames, and a pixel-level comparator.
//
// Frames are produced by downscaling a captured screenshot to a fixed
// target width (aspect ratio preserved, alpha stripped) so that
// comparisons stay cheap regardless of the live viewport size. The
// comparator exposes a coarse [0,1] sensitivity which is scaled
// internally to a much stricter per-pixel-count tolerance.
package frame
