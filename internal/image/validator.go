package image

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"
)

type Format string

const (
	FormatJPEG    Format = "image/jpeg"
	FormatPNG     Format = "image/png"
	FormatGIF     Format = "image/gif"
	FormatWebP    Format = "image/webp"
	FormatBMP     Format = "image/bmp"
	FormatAVIF    Format = "image/avif"
	FormatUnknown Format = ""
)

var magicBytes = map[Format][]byte{
	FormatJPEG: {0xFF, 0xD8, 0xFF},
	FormatPNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	FormatGIF:  {0x47, 0x49, 0x46, 0x38}, // GIF8
	FormatWebP: {0x52, 0x49, 0x46, 0x46}, // RIFF (need to check WEBP at offset 8)
	FormatBMP:  {0x42, 0x4D},             // BM
}

// Source is a user-supplied file accepted for compression. It is never modified after loading.
type Source struct {
	Name        string
	ContentType string
	Format      Format
	Data        []byte
}

func (s *Source) Size() int64 {
	return int64(len(s.Data))
}

// CheckMIME rejects any content type outside image/*.
func CheckMIME(contentType string) error {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	if !strings.HasPrefix(mt, "image/") {
		return fmt.Errorf("%w: content type %q", ErrNotAnImage, contentType)
	}
	return nil
}

// ReadSource checks the declared content type before touching r, then reads at most maxSize bytes.
func ReadSource(r io.Reader, contentType, name string, maxSize int64) (*Source, error) {
	if err := CheckMIME(contentType); err != nil {
		return nil, err
	}

	limited := io.LimitReader(r, maxSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrFileRead)
	}

	return &Source{
		Name:        name,
		ContentType: contentType,
		Format:      DetectFormat(data),
		Data:        data,
	}, nil
}

// DetectFormat sniffs the container format from magic bytes. Unknown data
// yields FormatUnknown and is left for the decoder to reject.
func DetectFormat(data []byte) Format {
	if bytes.HasPrefix(data, magicBytes[FormatJPEG]) {
		return FormatJPEG
	}

	if bytes.HasPrefix(data, magicBytes[FormatPNG]) {
		return FormatPNG
	}

	if bytes.HasPrefix(data, magicBytes[FormatGIF]) {
		return FormatGIF
	}

	// WebP: RIFF....WEBP
	if bytes.HasPrefix(data, magicBytes[FormatWebP]) && len(data) >= 12 {
		if bytes.Equal(data[8:12], []byte("WEBP")) {
			return FormatWebP
		}
	}

	if bytes.HasPrefix(data, magicBytes[FormatBMP]) && len(data) >= 14 {
		return FormatBMP
	}

	// AVIF: ftyp box with avif/avis brand
	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) {
		brand := string(data[8:12])
		if brand == "avif" || brand == "avis" || brand == "mif1" {
			return FormatAVIF
		}
	}

	return FormatUnknown
}
