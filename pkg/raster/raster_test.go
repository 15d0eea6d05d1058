package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuplot/docuplot/internal/models"
	"github.com/docuplot/docuplot/internal/types"
)

func TestFitBounds(t *testing.T) {
	tests := []struct {
		name       string
		w, h, max  int
		expW, expH int
	}{
		{"within cap untouched", 800, 600, 1024, 800, 600},
		{"exact cap untouched", 1024, 1024, 1024, 1024, 1024},
		{"wide landscape", 2048, 1024, 1024, 1024, 512},
		{"tall portrait", 1000, 4000, 1024, 256, 1024},
		{"square over cap", 3000, 3000, 1024, 1024, 1024},
		{"extreme ratio floors at one", 10000, 10, 100, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitBounds(tt.w, tt.h, tt.max)
			assert.Equal(t, tt.expW, w)
			assert.Equal(t, tt.expH, h)
			assert.LessOrEqual(t, w, tt.max)
			assert.LessOrEqual(t, h, tt.max)
		})
	}
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func TestEncodeDownsamplesToCap(t *testing.T) {
	r := NewWithConfig(types.RasterizerConfig{MaxDim: 256, JPEGQuality: 85})

	page, err := r.encode(testImage(1600, 800), "Q1 2023", 1)
	require.NoError(t, err)

	assert.Equal(t, "Q1 2023", page.Label)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 256, page.Width)
	assert.Equal(t, 128, page.Height)

	// The payload is a decodable JPEG of the reported dimensions.
	decoded, err := jpeg.Decode(bytes.NewReader(page.Data))
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Bounds().Dx())
	assert.Equal(t, 128, decoded.Bounds().Dy())
}

func TestEncodeKeepsSmallPages(t *testing.T) {
	r := NewWithConfig(types.RasterizerConfig{MaxDim: 1024, JPEGQuality: 85})

	page, err := r.encode(testImage(300, 200), "Q2", 3)
	require.NoError(t, err)

	assert.Equal(t, 300, page.Width)
	assert.Equal(t, 200, page.Height)
	assert.Equal(t, 3, page.Page)
}

func TestPageDataURL(t *testing.T) {
	r := NewWithConfig(types.RasterizerConfig{MaxDim: 128, JPEGQuality: 70})

	page, err := r.encode(testImage(64, 64), "Q3", 1)
	require.NoError(t, err)

	url := page.DataURL()
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))
	assert.Greater(t, len(url), len("data:image/jpeg;base64,"))
}

func TestRasterizeRejectsCorruptDocument(t *testing.T) {
	r := NewWithConfig(types.RasterizerConfig{})

	path := filepath.Join(t.TempDir(), "corrupt.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0644))

	_, err := r.Rasterize(context.Background(), models.Document{
		SourceURL: "https://example.com/corrupt.pdf",
		LocalPath: path,
		Label:     "corrupt",
	})
	assert.Error(t, err)
}
