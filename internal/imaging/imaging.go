// Package imaging turns whatever the capture surfaces hand us into the
// JPEG payloads the wire contract expects.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxEdge = 1280
	DefaultQuality = 80
)

// Options controls one normalization pass.
type Options struct {
	MaxEdge int  // cap on the longer edge; 0 means DefaultMaxEdge
	Quality int  // JPEG quality; 0 means DefaultQuality
	Mirror  bool // flip horizontally, for front-camera frames
}

// Normalize decodes data (JPEG/PNG/GIF/WebP), flattens transparency onto
// white, scales the longer edge down to the cap without ever upscaling,
// optionally mirrors, and re-encodes as JPEG.
func Normalize(data []byte, opts Options) ([]byte, error) {
	maxEdge := opts.MaxEdge
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	if quality > 100 {
		quality = 100
	}

	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// JPEG has no alpha channel; composite onto white first so
	// transparent regions of PNG/WebP input do not turn black.
	flat := flattenWhite(img)

	w := flat.Bounds().Dx()
	h := flat.Bounds().Dy()
	newW, newH := fitWithin(w, h, maxEdge)
	if newW != w || newH != h {
		dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), flat, flat.Bounds(), xdraw.Over, nil)
		flat = dst
	}

	if opts.Mirror {
		flat = mirrorHorizontal(flat)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

// ToBase64 encodes payload bytes for the wire: bare standard base64,
// no data URL envelope.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func decode(b []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err == nil {
		return img, nil
	}
	// Some phone exports carry junk before the header; retry the two
	// formats we can pin by magic bytes.
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		if img2, err2 := jpeg.Decode(bytes.NewReader(b)); err2 == nil {
			return img2, nil
		}
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		if img2, err2 := png.Decode(bytes.NewReader(b)); err2 == nil {
			return img2, nil
		}
	}
	return nil, err
}

func flattenWhite(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

// fitWithin returns the dimensions after capping the longer edge,
// preserving aspect ratio. Images already inside the cap keep their size.
func fitWithin(w, h, maxEdge int) (int, int) {
	long := w
	if h > long {
		long = h
	}
	if long <= maxEdge {
		return w, h
	}
	scale := float64(maxEdge) / float64(long)
	newW := int(float64(w)*scale + 0.5)
	newH := int(float64(h)*scale + 0.5)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return newW, newH
}

func mirrorHorizontal(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w := b.Dx()
	h := b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(w-1-x, y, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
