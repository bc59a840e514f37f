// Package testutil builds in-memory PDF and image fixtures for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"

	"github.com/go-pdf/fpdf"
)

// TextPDF renders one page per entry, each carrying its text in Helvetica.
func TextPDF(pages ...string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		pdf.AddPage()
		pdf.MultiCell(0, 6, text, "", "L", false)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BlankPDF renders n pages without a text layer, the shape of a scanned file.
func BlankPDF(n int) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	for i := 0; i < n; i++ {
		pdf.AddPage()
		pdf.SetFillColor(200, 200, 200)
		pdf.Rect(20, 20, 170, 250, "F")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NoisePNG encodes a w x h image of random pixels. Noise does not compress,
// so a downscaled JPEG of it is reliably smaller than the PNG.
func NoisePNG(w, h int) ([]byte, error) {
	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
