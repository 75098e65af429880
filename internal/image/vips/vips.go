// Package vips runs the compression pipeline on libvips through bimg.
package vips

import (
	"fmt"

	"github.com/h2non/bimg"

	"squeeze/internal/image"
)

type Processor struct{}

func NewProcessor() *Processor {
	return &Processor{}
}

func (p *Processor) Name() string {
	return "vips"
}

func (p *Processor) Process(data []byte, params image.Params) (*image.Result, error) {
	size, err := bimg.NewImage(data).Size()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", image.ErrDecode, err)
	}
	if size.Width == 0 || size.Height == 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", image.ErrDecode, size.Width, size.Height)
	}

	width, height := image.TargetSize(size.Width, size.Height, params.MaxWidth)

	// Force pins the exact target box so rounding matches the native backend.
	processed, err := bimg.NewImage(data).Process(bimg.Options{
		Width:         width,
		Height:        height,
		Force:         true,
		Type:          bimg.JPEG,
		Quality:       clampQuality(params.QualityPercent),
		Background:    bimg.Color{R: 255, G: 255, B: 255},
		Flatten:       true,
		StripMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", image.ErrDecode, err)
	}

	out, err := bimg.NewImage(processed).Size()
	if err != nil {
		return nil, fmt.Errorf("get result size %s: %w", params, err)
	}

	return &image.Result{
		Data:         processed,
		Width:        out.Width,
		Height:       out.Height,
		SourceWidth:  size.Width,
		SourceHeight: size.Height,
		SourceSize:   int64(len(data)),
	}, nil
}

// libvips treats 0 as "use default", so the lowest quality is pinned to 1.
func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
