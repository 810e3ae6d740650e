package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidJPEG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func halvesJPEG(t *testing.T, w, h int, left, right color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetRGBA(x, y, left)
			} else {
				img.SetRGBA(x, y, right)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	return cfg.Width, cfg.Height
}

func TestNormalizeCapsLongEdge(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape over cap", 2000, 1000, 1280, 640},
		{"portrait over cap", 1000, 2000, 640, 1280},
		{"exactly at cap", 1280, 720, 1280, 720},
		{"under cap stays put", 800, 600, 800, 600},
		{"tiny never upscales", 320, 200, 320, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Normalize(solidJPEG(t, tt.w, tt.h, red), Options{MaxEdge: 1280, Quality: 80})
			require.NoError(t, err)
			gotW, gotH := decodeDims(t, out)
			assert.Equal(t, tt.wantW, gotW)
			assert.Equal(t, tt.wantH, gotH)
		})
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, cap    int
		wantW, wantH int
	}{
		{2000, 1000, 1280, 1280, 640},
		{1000, 2000, 1280, 640, 1280},
		{1280, 1280, 1280, 1280, 1280},
		{100, 50, 1280, 100, 50},
		{3000, 10, 1280, 1280, 4},
		{5000, 1, 1280, 1280, 1},
	}
	for _, tt := range tests {
		gotW, gotH := fitWithin(tt.w, tt.h, tt.cap)
		assert.Equal(t, tt.wantW, gotW, "width for %dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, gotH, "height for %dx%d", tt.w, tt.h)
	}
}

func TestNormalizeMirrorsFrontFrames(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	src := halvesJPEG(t, 64, 32, red, blue)

	out, err := Normalize(src, Options{MaxEdge: 1280, Quality: 90, Mirror: true})
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// left half was red; after mirroring it reads blue
	l := color.RGBAModel.Convert(img.At(8, 16)).(color.RGBA)
	r := color.RGBAModel.Convert(img.At(56, 16)).(color.RGBA)
	assert.Greater(t, l.B, l.R, "left side should be blue after mirror")
	assert.Greater(t, r.R, r.B, "right side should be red after mirror")
}

func TestNormalizeWithoutMirrorKeepsOrientation(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	src := halvesJPEG(t, 64, 32, red, blue)

	out, err := Normalize(src, Options{MaxEdge: 1280, Quality: 90})
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	l := color.RGBAModel.Convert(img.At(8, 16)).(color.RGBA)
	assert.Greater(t, l.R, l.B, "left side stays red without mirror")
}

func TestNormalizeFlattensTransparencyToWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img)) // fully transparent

	out, err := Normalize(buf.Bytes(), Options{MaxEdge: 1280})
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	c := color.RGBAModel.Convert(decoded.At(16, 16)).(color.RGBA)
	assert.Greater(t, c.R, uint8(240))
	assert.Greater(t, c.G, uint8(240))
	assert.Greater(t, c.B, uint8(240))
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := Normalize([]byte("definitely not an image"), Options{})
	assert.Error(t, err)
}

func TestNormalizedPayloadIsWireReady(t *testing.T) {
	red := color.RGBA{R: 200, G: 30, B: 30, A: 255}
	out, err := Normalize(solidJPEG(t, 2000, 1000, red), Options{})
	require.NoError(t, err)

	encoded := ToBase64(out)
	assert.False(t, strings.HasPrefix(encoded, "data:"))

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	w, h := decodeDims(t, decoded)
	assert.Equal(t, DefaultMaxEdge, w)
	assert.Equal(t, 640, h)
}
