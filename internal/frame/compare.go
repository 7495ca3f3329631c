package frame

import "fmt"

// Per-channel delta above which a pixel counts as changed.
const channelTolerance = 1

// Pairwise channel delta at or below which a pixel is classified as
// grayscale. Hard-coded in the comparator's tuning; do not reinterpret.
const grayscaleTolerance = 2

// Compare reports whether two same-sized frames differ meaningfully
// under the given sensitivity threshold.
//
// The caller-facing threshold in [0,1] is deliberately 1000x coarser
// than the raw per-pixel tolerance: maxDiffPixels = floor(w*h*t*0.001),
// so a typical threshold of 0.1 maps to a stringent pixel budget. A
// pixel counts as different when any RGB channel moves by more than 1,
// or when its chromatic-vs-grayscale classification flips between the
// frames even though the raw deltas are small (this catches focus rings
// and subtle overlays a pure-delta comparison misses). Comparison
// short-circuits true as soon as the budget is exceeded.
func Compare(a, b *Frame, threshold float64) (bool, error) {
	if a == nil || b == nil {
		return false, &ErrDimensionMismatch{Detail: "nil frame"}
	}
	if a.Width != b.Width || a.Height != b.Height {
		return false, &ErrDimensionMismatch{
			Detail: fmt.Sprintf("%dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height),
		}
	}
	expected := a.Width * a.Height * 3
	if len(a.Data) != expected || len(b.Data) != expected {
		return false, &ErrDimensionMismatch{
			Detail: fmt.Sprintf("buffer length %d/%d, want %d", len(a.Data), len(b.Data), expected),
		}
	}

	maxDiffPixels := int(float64(a.Width*a.Height) * threshold * 0.001)

	diff := 0
	for i := 0; i < expected; i += 3 {
		r1, g1, b1 := a.Data[i], a.Data[i+1], a.Data[i+2]
		r2, g2, b2 := b.Data[i], b.Data[i+1], b.Data[i+2]

		changed := absDiff(r1, r2) > channelTolerance ||
			absDiff(g1, g2) > channelTolerance ||
			absDiff(b1, b2) > channelTolerance

		if !changed && isGrayscale(r1, g1, b1) != isGrayscale(r2, g2, b2) {
			changed = true
		}

		if changed {
			diff++
			if diff > maxDiffPixels {
				return true, nil
			}
		}
	}
	return false, nil
}

// isGrayscale classifies a pixel as grayscale when all pairwise channel
// differences are within the grayscale tolerance.
func isGrayscale(r, g, b byte) bool {
	return absDiff(r, g) <= grayscaleTolerance &&
		absDiff(g, b) <= grayscaleTolerance &&
		absDiff(r, b) <= grayscaleTolerance
}

func absDiff(x, y byte) int {
	if x > y {
		return int(x - y)
	}
	return int(y - x)
}
