package loader

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // JPEG decoder.
	_ "image/png"  // PNG decoder.
	"os"

	_ "golang.org/x/image/bmp"  // BMP decoder.
	_ "golang.org/x/image/tiff" // TIFF decoder.
	"gonum.org/v1/gonum/mat"
)

// loadPicture decodes a raster picture into luminance values. The picture
// is flipped vertically so that row 0 is the bottom row, matching FITS.
func loadPicture(path string, _ Params) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return Result{}, fmt.Errorf("decoding picture %s: %w", path, err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Result{}, ErrNoData
	}
	pix := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := h - 1 - y
		for x := 0; x < w; x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			pix[row*w+x] = float64(g.Y)
		}
	}

	var meta Meta
	meta.Set("FORMAT", format)
	meta.Set("NAXIS1", w)
	meta.Set("NAXIS2", h)
	return Result{Image: mat.NewDense(h, w, pix), Meta: meta}, nil
}
