// Package downsample implements the fixed-budget integer-ratio box-filter
// downsampler shared by the live capture pipeline.
package downsample

// MaxPixels bounds the destination frame's pixel count.
const MaxPixels = 1920 * 1080

// Frame is a raw or downsampled RGBA image: four interleaved bytes per
// pixel, row-major, no padding between rows.
type Frame struct {
	Width  int
	Height int
	RGBA   []byte
	Scale  int
}

// Downsampler reduces any frame whose pixel count exceeds MaxPixels to an
// integer-scaled RGBA image, reusing a scratch buffer across calls.
type Downsampler struct {
	scratch []byte
}

// New returns a ready-to-use Downsampler.
func New() *Downsampler {
	return &Downsampler{}
}

func isqrtCeil(n int) int {
	if n <= 0 {
		return 0
	}
	r := 1
	for r*r < n {
		r++
	}
	return r
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// computeScale implements spec.md §4.2's algorithm: the minimal integer
// scale >= 1 such that (srcW/scale)*(srcH/scale) <= MaxPixels, capped at 16.
func computeScale(srcW, srcH int) int {
	pixels := srcW * srcH
	if pixels <= MaxPixels {
		return 1
	}
	scale := isqrtCeil(ceilDiv(pixels, MaxPixels))
	if scale < 2 {
		scale = 2
	}
	for scale < 16 && (srcW/scale)*(srcH/scale) > MaxPixels {
		scale++
	}
	return scale
}

// Downsample reduces src to a frame whose pixel count is <= MaxPixels. If
// src already satisfies the budget it is returned unchanged with Scale==1
// (bit-identical to the input, per spec.md's identity property).
func (d *Downsampler) Downsample(src Frame) Frame {
	scale := computeScale(src.Width, src.Height)
	if scale == 1 {
		return Frame{Width: src.Width, Height: src.Height, RGBA: src.RGBA, Scale: 1}
	}

	dstW := src.Width / scale
	dstH := src.Height / scale
	if dstW == 0 || dstH == 0 {
		return Frame{Width: src.Width, Height: src.Height, RGBA: src.RGBA, Scale: 1}
	}

	need := dstW * dstH * 4
	if cap(d.scratch) < need {
		d.scratch = make([]byte, need)
	}
	dst := d.scratch[:need]

	blockPixels := scale * scale
	for dy := 0; dy < dstH; dy++ {
		for dx := 0; dx < dstW; dx++ {
			var rSum, gSum, bSum, aSum int
			baseY := dy * scale
			baseX := dx * scale
			for sy := 0; sy < scale; sy++ {
				rowOff := (baseY+sy)*src.Width*4 + baseX*4
				row := src.RGBA[rowOff : rowOff+scale*4]
				for sx := 0; sx < scale; sx++ {
					p := row[sx*4 : sx*4+4]
					rSum += int(p[0])
					gSum += int(p[1])
					bSum += int(p[2])
					aSum += int(p[3])
				}
			}
			outOff := (dy*dstW + dx) * 4
			dst[outOff+0] = byte(rSum / blockPixels)
			dst[outOff+1] = byte(gSum / blockPixels)
			dst[outOff+2] = byte(bSum / blockPixels)
			dst[outOff+3] = byte(aSum / blockPixels)
		}
	}

	return Frame{Width: dstW, Height: dstH, RGBA: dst, Scale: scale}
}
