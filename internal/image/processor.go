package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Processor runs the decode, resize and JPEG re-encode pipeline.
type Processor interface {
	Name() string
	Process(data []byte, p Params) (*Result, error)
}

type Result struct {
	Data         []byte
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	SourceSize   int64
}

func (r *Result) Size() int64 {
	return int64(len(r.Data))
}

// NativeProcessor implements Processor with pure Go decoders and resampling.
type NativeProcessor struct {
	interp resize.InterpolationFunction
}

func NewProcessor() *NativeProcessor {
	return &NativeProcessor{interp: resize.Bilinear}
}

// NewProcessorWithInterpolation selects the resampling kernel used for downscaling.
func NewProcessorWithInterpolation(interp resize.InterpolationFunction) *NativeProcessor {
	return &NativeProcessor{interp: interp}
}

func (p *NativeProcessor) Name() string {
	return "native"
}

func (p *NativeProcessor) Process(data []byte, params Params) (*Result, error) {
	src, _, err := stdimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrDecode, w, h)
	}

	nw, nh := TargetSize(w, h, params.MaxWidth)

	scaled := src
	if nw != w || nh != h {
		scaled = resize.Resize(uint(nw), uint(nh), src, p.interp)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(scaled), &jpeg.Options{Quality: params.QualityPercent}); err != nil {
		return nil, fmt.Errorf("encode %s: %w", params, err)
	}

	out := scaled.Bounds()
	return &Result{
		Data:         buf.Bytes(),
		Width:        out.Dx(),
		Height:       out.Dy(),
		SourceWidth:  w,
		SourceHeight: h,
		SourceSize:   int64(len(data)),
	}, nil
}

// flatten composites img over an opaque white canvas anchored at the origin.
// JPEG has no alpha channel, so transparent areas would otherwise encode as black.
func flatten(img stdimage.Image) *stdimage.RGBA {
	b := img.Bounds()
	canvas := stdimage.NewRGBA(stdimage.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), stdimage.White, stdimage.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Over)
	return canvas
}

var defaultProcessor Processor = NewProcessor()

// Transform re-encodes src as JPEG at the given quality factor in [0,1],
// capping the width at maxWidth and preserving the aspect ratio.
func Transform(src []byte, quality float64, maxWidth int) ([]byte, error) {
	res, err := defaultProcessor.Process(src, Params{
		QualityPercent: int(math.Round(quality * 100)),
		MaxWidth:       maxWidth,
	})
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}
