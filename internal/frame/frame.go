package frame

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
)

// ErrDimensionMismatch indicates two frames (or a raw buffer and its
// declared dimensions) cannot be compared because their sizes disagree.
type ErrDimensionMismatch struct {
	Detail string
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("frame dimension mismatch: %s", e.Detail)
}

// Frame is a downscaled screenshot in raw RGB form (3 bytes per pixel,
// sRGB, no alpha). Frames are immutable once created.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// Process decodes a captured screenshot (PNG or JPEG), downscales it to
// targetWidth preserving aspect ratio, and strips alpha to raw RGB.
func Process(raw []byte, targetWidth int) (*Frame, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, &ErrDimensionMismatch{Detail: "source image is empty"}
	}

	dstW := targetWidth
	dstH := int(math.Round(float64(srcH) * float64(targetWidth) / float64(srcW)))
	if dstH < 1 {
		dstH = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, bounds, draw.Src, nil)

	data := make([]byte, dstW*dstH*3)
	for y := 0; y < dstH; y++ {
		srcRow := scaled.Pix[y*scaled.Stride:]
		dstRow := data[y*dstW*3:]
		for x := 0; x < dstW; x++ {
			dstRow[x*3+0] = srcRow[x*4+0]
			dstRow[x*3+1] = srcRow[x*4+1]
			dstRow[x*3+2] = srcRow[x*4+2]
		}
	}

	if len(data) != dstW*dstH*3 {
		return nil, &ErrDimensionMismatch{
			Detail: fmt.Sprintf("got %d bytes, want %d for %dx%d", len(data), dstW*dstH*3, dstW, dstH),
		}
	}

	return &Frame{Data: data, Width: dstW, Height: dstH}, nil
}
