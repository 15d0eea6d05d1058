package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"

	"github.com/docuplot/docuplot/internal/models"
	"github.com/docuplot/docuplot/internal/types"
)

// Rasterizer renders document pages to bounded JPEG images, in page order.
// Page order is load-bearing: it determines what the model sees per page.
type Rasterizer struct {
	config types.RasterizerConfig
}

func NewWithConfig(config types.RasterizerConfig) *Rasterizer {
	if config.MaxDim == 0 {
		config.MaxDim = 1024
	}
	if config.JPEGQuality == 0 {
		config.JPEGQuality = 85
	}
	return &Rasterizer{config: config}
}

// Rasterize converts every page of doc. A document that cannot be opened or
// rendered fails as a whole; the caller excludes it from the fan-out set.
func (r *Rasterizer) Rasterize(ctx context.Context, doc models.Document) ([]models.PageImage, error) {
	fz, err := fitz.New(doc.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", doc.LocalPath, err)
	}
	defer fz.Close()

	pageCount := fz.NumPage()
	if pageCount == 0 {
		return nil, fmt.Errorf("document %s has no pages", doc.LocalPath)
	}

	pages := make([]models.PageImage, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := fz.Image(pageNum)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d of %s: %w", pageNum+1, doc.LocalPath, err)
		}

		page, err := r.encode(img, doc.Label, pageNum+1)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	return pages, nil
}

// encode downsamples img so neither dimension exceeds the cap, preserving
// aspect ratio, then JPEG-encodes it.
func (r *Rasterizer) encode(img image.Image, label string, page int) (models.PageImage, error) {
	bounds := img.Bounds()
	w, h := fitBounds(bounds.Dx(), bounds.Dy(), r.config.MaxDim)

	if w != bounds.Dx() || h != bounds.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.config.JPEGQuality}); err != nil {
		return models.PageImage{}, fmt.Errorf("failed to encode page %d: %w", page, err)
	}

	return models.PageImage{
		Label:  label,
		Page:   page,
		Width:  w,
		Height: h,
		Data:   buf.Bytes(),
	}, nil
}

// fitBounds scales (w, h) down so max(w, h) <= maxDim. Images already within
// the cap keep their dimensions.
func fitBounds(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		scaled := h * maxDim / w
		if scaled < 1 {
			scaled = 1
		}
		return maxDim, scaled
	}
	scaled := w * maxDim / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxDim
}
