package image

import (
	"bytes"
	"fmt"
	stdimage "image"
)

// TargetSize caps width at maxWidth and scales height proportionally,
// rounding down. Images already within the cap keep their size.
func TargetSize(w, h, maxWidth int) (int, int) {
	if w <= maxWidth {
		return w, h
	}
	nh := int(int64(h) * int64(maxWidth) / int64(w))
	if nh < 1 {
		nh = 1
	}
	return maxWidth, nh
}

// GetSize reads image dimensions from the header without decoding pixels.
func GetSize(data []byte) (int, int, error) {
	cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg.Width, cfg.Height, nil
}
