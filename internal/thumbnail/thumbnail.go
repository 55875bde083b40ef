// Package thumbnail turns stored sprite bytes into small fixed-size RGB
// thumbnails and keeps them in memory.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/mmcdole/pokedex/internal/domain"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Thumbnail is a decoded, resized image. Pix holds Width*Height RGB
// triples, row-major.
type Thumbnail struct {
	Width  int
	Height int
	Pix    []uint8
}

// At returns the color of pixel (x, y). Out-of-range coordinates are black.
func (t Thumbnail) At(x, y int) (r, g, b uint8) {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return 0, 0, 0
	}
	i := (y*t.Width + x) * 3
	return t.Pix[i], t.Pix[i+1], t.Pix[i+2]
}

// Size returns the bytes held by the pixel buffer
func (t Thumbnail) Size() int {
	return len(t.Pix)
}

// Build decodes raw and resizes it to width x height with a Catmull-Rom
// kernel. Transparent areas become black. Identical input gives identical
// output.
func Build(raw []byte, width, height int) (Thumbnail, error) {
	if width < 1 || height < 1 {
		return Thumbnail{}, fmt.Errorf("build thumbnail: invalid size %dx%d", width, height)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Thumbnail{}, domain.NewError(domain.ErrParse, "decode image", err)
	}
	if src.Bounds().Empty() {
		return Thumbnail{}, domain.NewError(domain.ErrParse, "decode image", fmt.Errorf("empty image"))
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	pix := make([]uint8, 0, width*height*3)
	for y := 0; y < height; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+width*4]
		for x := 0; x < width; x++ {
			pix = append(pix, row[x*4], row[x*4+1], row[x*4+2])
		}
	}

	return Thumbnail{Width: width, Height: height, Pix: pix}, nil
}
