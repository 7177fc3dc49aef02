package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Default pixel bounds for images sent to the vision model
const (
	DefaultMinPixels = 20_000
	DefaultMaxPixels = 30_000_000
)

// decodeLimitFactor bounds the declared size of an image we are willing to decode,
// as a multiple of maxPixels
const decodeLimitFactor = 16

// PreparedImage is an image ready to send to the vision model
type PreparedImage struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	Resized  bool
}

// Pixels returns the pixel count of the prepared image
func (p PreparedImage) Pixels() int {
	return p.Width * p.Height
}

// formats the vision providers accept as-is; anything else is re-encoded as PNG
var passthroughFormats = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// PrepareImage decodes data and applies the pixel bounds.
// ok is false when the image has fewer than minPixels pixels.
// Images over maxPixels are downscaled with the aspect ratio kept and re-encoded as PNG.
// Images declaring more than decodeLimitFactor*maxPixels are rejected before decoding.
func PrepareImage(data []byte, minPixels, maxPixels int) (PreparedImage, bool, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return PreparedImage{}, false, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return PreparedImage{}, false, fmt.Errorf("image declares invalid size %dx%d", cfg.Width, cfg.Height)
	}

	pixels := int64(cfg.Width) * int64(cfg.Height)
	if pixels < int64(minPixels) {
		return PreparedImage{}, false, nil
	}
	if limit := int64(maxPixels) * decodeLimitFactor; pixels > limit {
		return PreparedImage{}, false, fmt.Errorf("image declares %dx%d pixels, over the decode limit of %d", cfg.Width, cfg.Height, limit)
	}

	if pixels <= int64(maxPixels) {
		if mime, ok := passthroughFormats[format]; ok {
			return PreparedImage{Data: data, MIMEType: mime, Width: cfg.Width, Height: cfg.Height}, true, nil
		}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return PreparedImage{}, false, fmt.Errorf("failed to decode %s image: %w", format, err)
	}

	width, height := cfg.Width, cfg.Height
	resized := false
	if pixels > int64(maxPixels) {
		width, height = scaledSize(width, height, maxPixels)
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		src = dst
		resized = true
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, src); err != nil {
		return PreparedImage{}, false, fmt.Errorf("failed to encode png: %w", err)
	}

	return PreparedImage{
		Data:     buf.Bytes(),
		MIMEType: "image/png",
		Width:    width,
		Height:   height,
		Resized:  resized,
	}, true, nil
}

// scaledSize shrinks (w, h) by sqrt(max/pixels), flooring each side so the product never exceeds max.
// A side that would vanish is kept at 1px and the other side is capped at maxPixels.
func scaledSize(w, h, maxPixels int) (int, int) {
	scale := math.Sqrt(float64(maxPixels) / (float64(w) * float64(h)))
	nw := int(math.Floor(float64(w) * scale))
	nh := int(math.Floor(float64(h) * scale))
	if nw < 1 {
		nw = 1
		nh = min(nh, maxPixels)
	}
	if nh < 1 {
		nh = 1
		nw = min(nw, maxPixels)
	}
	return nw, nh
}
