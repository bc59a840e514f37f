package extract

import (
	"bytes"
	"image"
	"image/jpeg"
	"log/slog"

	// Decoders for the upload formats image.Decode must recognise.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxPixels caps the decoded size of an upload. Larger images are sent as-is.
const maxPixels = 50_000_000

// downscale fits an image within maxEdge pixels on its longest side and
// re-encodes it as JPEG. Images are never enlarged. On any failure, or when
// the result is not smaller, the original bytes and media type are returned.
func downscale(data []byte, mediaType string, maxEdge, quality int) ([]byte, string) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Could not read image header, sending original.", "mediaType", mediaType, "error", err)
		return data, mediaType
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		slog.Warn("Image too large to decode, sending original.", "mediaType", mediaType, "width", cfg.Width, "height", cfg.Height)
		return data, mediaType
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Could not decode image, sending original.", "mediaType", mediaType, "error", err)
		return data, mediaType
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return data, mediaType
	}
	if longest := max(w, h); maxEdge > 0 && longest > maxEdge {
		w = max(1, w*maxEdge/longest)
		h = max(1, h*maxEdge/longest)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		slog.Warn("Could not re-encode image, sending original.", "error", err)
		return data, mediaType
	}
	if buf.Len() >= len(data) {
		return data, mediaType
	}
	slog.Info("Downscaled image.", "format", format, "from", len(data), "to", buf.Len(), "width", w, "height", h)
	return buf.Bytes(), "image/jpeg"
}
