package image

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var ErrInvalidParams = errors.New("invalid compression parameters")

const (
	DefaultQuality  = 70
	DefaultMaxWidth = 800
)

// QualityOptions are the selectable JPEG qualities in percent, highest first.
var QualityOptions = []int{100, 90, 80, 70, 60, 50, 40, 30, 20, 10}

// MaxWidthOptions are the selectable width caps in pixels.
var MaxWidthOptions = []int{400, 800, 1200, 1600, 2000}

// Params are the compression parameters applied to a source image.
// QualityPercent is the quality factor scaled to 0..100.
type Params struct {
	QualityPercent int
	MaxWidth       int
}

func DefaultParams() Params {
	return Params{QualityPercent: DefaultQuality, MaxWidth: DefaultMaxWidth}
}

// Quality returns the quality factor in [0,1].
func (p Params) Quality() float64 {
	return float64(p.QualityPercent) / 100
}

func (p Params) String() string {
	return fmt.Sprintf("w%d_q%d", p.MaxWidth, p.QualityPercent)
}

// ParseParams reads form values. Empty values fall back to the defaults,
// anything outside the option sets is rejected.
func ParseParams(quality, maxWidth string) (Params, error) {
	p := DefaultParams()

	if s := strings.TrimSpace(quality); s != "" {
		q, err := parseQuality(s)
		if err != nil {
			return Params{}, err
		}
		p.QualityPercent = q
	}

	if s := strings.TrimSpace(maxWidth); s != "" {
		w, err := strconv.Atoi(s)
		if err != nil || !slices.Contains(MaxWidthOptions, w) {
			return Params{}, fmt.Errorf("%w: max width %q", ErrInvalidParams, s)
		}
		p.MaxWidth = w
	}

	return p, nil
}

// parseQuality accepts either a percent ("70") or a factor ("0.7").
func parseQuality(s string) (int, error) {
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: quality %q", ErrInvalidParams, s)
		}
		q := int(f*100 + 0.5)
		if !slices.Contains(QualityOptions, q) {
			return 0, fmt.Errorf("%w: quality %q", ErrInvalidParams, s)
		}
		return q, nil
	}
	q, err := strconv.Atoi(s)
	if err != nil || !slices.Contains(QualityOptions, q) {
		return 0, fmt.Errorf("%w: quality %q", ErrInvalidParams, s)
	}
	return q, nil
}

// DownloadName is the attachment file name for a derived image.
func DownloadName(p Params) string {
	return fmt.Sprintf("compressed_image_w%d_q%d.jpg", p.MaxWidth, p.QualityPercent)
}
