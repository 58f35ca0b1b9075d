// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package picons

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // decoder registration
	"image/png"
	"io"

	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/draw"
)

var (
	// ErrUndecodable is returned with a placeholder when the source bytes
	// are not a supported image. Callers skip the item.
	ErrUndecodable = errors.New("picon source is not a decodable image")
	// ErrTooWide marks sources wider than the configured maximum.
	ErrTooWide = errors.New("picon source exceeds max width")
)

// Picon size presets.
const (
	SizeX   = "xpicons"
	SizeZZZ = "zzzpicons"
)

// Bit depths.
const (
	Depth32 = "32bit"
	Depth8  = "8bit"
)

// transparentIndex is the palette slot reserved for transparent pixels in
// 8-bit output.
const transparentIndex = 255

// Dimensions returns the canvas size for a size preset. Unknown presets
// fall back to xpicons.
func Dimensions(size string) image.Point {
	if size == SizeZZZ {
		return image.Pt(400, 240)
	}
	return image.Pt(220, 132)
}

// NormalizeOptions controls Normalize.
type NormalizeOptions struct {
	Size     image.Point
	MaxWidth int
}

// Placeholder returns a fully transparent canvas of size.
func Placeholder(size image.Point) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 255, 255, 255, 0
	}
	return img
}

// Normalize decodes data and recomposes it into a centered icon on a
// transparent canvas. PNG sources are cropped to their visible pixels
// first. Images are only ever scaled down.
func Normalize(data []byte, opts NormalizeOptions) (*image.NRGBA, error) {
	canvas := Placeholder(opts.Size)
	if len(data) == 0 {
		return canvas, nil
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return canvas, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if opts.MaxWidth > 0 && src.Bounds().Dx() > opts.MaxWidth {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooWide, src.Bounds().Dx(), opts.MaxWidth)
	}

	img := toNRGBA(src)
	if format == "png" {
		img = autocrop(img)
	}
	img = thumbnail(img, opts.Size)
	compose(canvas, img)
	return canvas, nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// autocrop trims the image to the bounding box of non-zero alpha. A fully
// transparent image is returned unchanged.
func autocrop(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A == 0 {
				continue
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	if maxX < minX {
		return img
	}
	crop := image.Rect(minX, minY, maxX+1, maxY+1)
	if crop == b {
		return img
	}
	out := image.NewNRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(out, out.Bounds(), img, crop.Min, draw.Src)
	return out
}

// thumbnail scales img down to fit within size keeping the aspect ratio.
func thumbnail(img *image.NRGBA, size image.Point) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= size.X && h <= size.Y {
		return img
	}
	scale := min(float64(size.X)/float64(w), float64(size.Y)/float64(h))
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	nw, nh = min(nw, size.X), min(nh, size.Y)

	out := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}

// compose pastes img centered onto canvas. Colors are alpha blended and the
// resulting alpha is the screen of both alphas.
func compose(canvas, img *image.NRGBA) {
	cb, ib := canvas.Bounds(), img.Bounds()
	ox := (cb.Dx() - ib.Dx()) / 2
	oy := (cb.Dy() - ib.Dy()) / 2
	for y := 0; y < ib.Dy(); y++ {
		for x := 0; x < ib.Dx(); x++ {
			s := img.NRGBAAt(ib.Min.X+x, ib.Min.Y+y)
			cx, cy := ox+x, oy+y
			d := canvas.NRGBAAt(cx, cy)
			sa := uint32(s.A)
			canvas.SetNRGBA(cx, cy, color.NRGBA{
				R: blend(s.R, d.R, sa),
				G: blend(s.G, d.G, sa),
				B: blend(s.B, d.B, sa),
				A: uint8(255 - (255-uint32(d.A))*(255-sa)/255),
			})
		}
	}
}

func blend(src, dst uint8, alpha uint32) uint8 {
	return uint8((uint32(src)*alpha + uint32(dst)*(255-alpha) + 127) / 255)
}

// Encode writes img as PNG. Depth8 produces a palette image with an
// adaptive palette of 255 colors; pixels with alpha <= 128 map to the
// transparent slot 255.
func Encode(w io.Writer, img *image.NRGBA, depth string) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if depth != Depth8 {
		return enc.Encode(w, img)
	}
	return enc.Encode(w, paletted(img))
}

func paletted(img *image.NRGBA) *image.Paletted {
	b := img.Bounds()
	opaque := image.NewNRGBA(b)
	copy(opaque.Pix, img.Pix)
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 255
	}

	q := quantize.MedianCutQuantizer{}
	pal := q.Quantize(make(color.Palette, 0, transparentIndex), opaque)
	if len(pal) == 0 {
		pal = append(pal, color.NRGBA{A: 255})
	}
	colors := pal[:len(pal):len(pal)]
	for len(pal) < transparentIndex {
		pal = append(pal, color.NRGBA{A: 255})
	}
	pal = append(pal, color.NRGBA{})

	out := image.NewPaletted(b, pal)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if c.A <= 128 {
				out.SetColorIndex(x, y, transparentIndex)
				continue
			}
			c.A = 255
			out.SetColorIndex(x, y, uint8(colors.Index(c)))
		}
	}
	return out
}
