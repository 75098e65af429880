// Package testutil builds in-memory fixtures shared by package tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"squeeze/internal/config"
	"squeeze/internal/storage"
)

// Gradient returns a w×h RGBA image with a smooth diagonal gradient.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(w, 1)),
				G: uint8(y * 255 / max(h, 1)),
				B: uint8((x + y) * 255 / max(w+h, 1)),
				A: 255,
			})
		}
	}
	return img
}

// Noise returns a w×h image of seeded random pixels. High-entropy content
// makes encoded size track quality closely.
func Noise(w, h int, seed int64) *image.RGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func SampleJPEG() []byte {
	return JPEG(64, 48)
}

func SamplePNG() []byte {
	return PNG(64, 48)
}

func JPEG(w, h int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func PNG(w, h int) []byte {
	return EncodePNG(Gradient(w, h))
}

func EncodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func GIF(w, h int) []byte {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, Gradient(w, h), nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// TransparentPNG returns a fully transparent w×h PNG.
func TransparentPNG(w, h int) []byte {
	return EncodePNG(image.NewNRGBA(image.Rect(0, 0, w, h)))
}

// Corrupt returns bytes with a valid JPEG signature and garbage after it.
func Corrupt() []byte {
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	return append(data, bytes.Repeat([]byte{0x13, 0x37}, 64)...)
}

func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:          "8080",
		DataDir:       t.TempDir(),
		MaxFileSizeMB: 10,
		Backend:       "native",
		CacheEnabled:  true,
		CacheMaxMB:    1,
		CacheTargetMB: 0.5,
		SessionTTLMin: 30,
		RateLimit:     1000,
	}
}

func TestDB(t *testing.T) (*storage.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.NewDB(dir)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dir
}

func TestFilesystem(t *testing.T) (*storage.Filesystem, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFilesystem(dir)
	if err != nil {
		t.Fatalf("NewFilesystem() error = %v", err)
	}
	return fs, dir
}
